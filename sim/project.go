package sim

// Project is one row of the construction project dataset.
// Field order matches the dataset column order; the first 21 fields are the
// model features, the last five are observed outcomes and are never scored.
type Project struct {
	// District / land
	DistrictClass     string `csv:"district_class" json:"district_class"`
	LandPricePerM2    int    `csv:"land_price_per_m2" json:"land_price_per_m2"`
	SoilComplexity    int    `csv:"soil_complexity" json:"soil_complexity"`
	SiteAccessibility int    `csv:"site_accessibility" json:"site_accessibility"`
	LandAreaM2        int    `csv:"land_area_m2" json:"land_area_m2"`

	// House / project
	HouseAreaM2         float64 `csv:"house_area_m2" json:"house_area_m2"`
	DesignComplexity    int     `csv:"design_complexity" json:"design_complexity"`
	MaterialsClass      string  `csv:"materials_class" json:"materials_class"`
	PlannedDurationDays int     `csv:"planned_duration_days" json:"planned_duration_days"`
	PlannedBudget       float64 `csv:"planned_budget" json:"planned_budget"`

	// Construction
	CrewExperienceYears      int     `csv:"crew_experience_years" json:"crew_experience_years"`
	CrewEfficiencyScore      float64 `csv:"crew_efficiency_score" json:"crew_efficiency_score"`
	CrewCurrentLoad          int     `csv:"crew_current_load" json:"crew_current_load"`
	SupplierReliabilityScore float64 `csv:"supplier_reliability_score" json:"supplier_reliability_score"`
	DeliveryDistanceKm       int     `csv:"delivery_distance_km" json:"delivery_distance_km"`
	WeatherSeason            string  `csv:"weather_season" json:"weather_season"`

	// External / market
	MaterialPriceIndex float64 `csv:"material_price_index" json:"material_price_index"`
	MortgageRate       float64 `csv:"mortgage_rate" json:"mortgage_rate"`
	MarketDemandIndex  float64 `csv:"market_demand_index" json:"market_demand_index"`
	ClientType         string  `csv:"client_type" json:"client_type"`
	LaborCostIndex     float64 `csv:"labor_cost_index" json:"labor_cost_index"`

	// Outcomes
	DelayDays     float64 `csv:"delay_days" json:"delay_days"`
	ActualCost    float64 `csv:"actual_cost" json:"actual_cost"`
	ActualMargin  float64 `csv:"actual_margin" json:"actual_margin"`
	BudgetOverrun int     `csv:"budget_overrun" json:"budget_overrun"`
	FinalProfit   float64 `csv:"final_profit" json:"final_profit"`
}

// Overrun reports the budget_overrun outcome as a bool.
func (p *Project) Overrun() bool {
	return p.BudgetOverrun == 1
}

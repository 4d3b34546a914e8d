package synth

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/constructrisk/riskopt/sim"
)

const baseCostPerM2 = 50000.0

var (
	classes = []string{"econom", "standard", "premium"}
	seasons = []string{"winter", "spring", "summer", "autumn"}
	clients = []string{"private", "commercial"}

	districtWeights  = []float64{0.5, 0.4, 0.1}
	materialsWeights = []float64{0.4, 0.4, 0.2}
	clientWeights    = []float64{0.7, 0.3}
)

// landPrice is the inclusive per-m2 price range of each district class.
var landPrice = map[string][2]int{
	"econom":   {3000, 5000},
	"standard": {6000, 12000},
	"premium":  {15000, 25000},
}

var materialsMultiplier = map[string]float64{"econom": 0.8, "standard": 1.0, "premium": 1.3}

var weatherFactor = map[string]float64{"winter": 5, "spring": 2, "summer": 1, "autumn": 3}

// Generate draws cfg.Projects projects. Every column draws from its own named
// stream, so the same config always yields the same rows.
func Generate(cfg Config) ([]sim.Project, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid generator config: %w", err)
	}
	g := newGenerator(cfg)
	rows := make([]sim.Project, cfg.Projects)
	for i := range rows {
		rows[i] = g.project()
	}
	return rows, nil
}

type generator struct {
	rng *sim.PartitionedRNG

	district, materials, season, client distuv.Categorical
	houseArea, noiseDelay, noiseLogit   distuv.Normal
	supplier                            distuv.Normal
	events                              distuv.Exponential
	matPrice, mortgage, demand, labor   distuv.Uniform
}

func newGenerator(cfg Config) *generator {
	r := sim.NewPartitionedRNG(cfg.Seed)
	return &generator{
		rng:        r,
		district:   distuv.NewCategorical(districtWeights, r.Stream("district_class")),
		materials:  distuv.NewCategorical(materialsWeights, r.Stream("materials_class")),
		season:     distuv.NewCategorical([]float64{1, 1, 1, 1}, r.Stream("weather_season")),
		client:     distuv.NewCategorical(clientWeights, r.Stream("client_type")),
		houseArea:  distuv.Normal{Mu: 150, Sigma: 50, Src: r.Stream("house_area_m2")},
		supplier:   distuv.Normal{Mu: 0.9, Sigma: 0.05, Src: r.Stream("supplier_reliability_score")},
		noiseDelay: distuv.Normal{Mu: 0, Sigma: 5, Src: r.Stream("delay_noise")},
		noiseLogit: distuv.Normal{Mu: 0, Sigma: 0.8, Src: r.Stream("overrun_noise")},
		events:     distuv.Exponential{Rate: 1 / 0.4, Src: r.Stream("unexpected_events")},
		matPrice:   distuv.Uniform{Min: cfg.MaterialPrice.Min, Max: cfg.MaterialPrice.Max, Src: r.Stream("material_price_index")},
		mortgage:   distuv.Uniform{Min: cfg.MortgageRate.Min, Max: cfg.MortgageRate.Max, Src: r.Stream("mortgage_rate")},
		demand:     distuv.Uniform{Min: cfg.MarketDemand.Min, Max: cfg.MarketDemand.Max, Src: r.Stream("market_demand_index")},
		labor:      distuv.Uniform{Min: cfg.LaborCost.Min, Max: cfg.LaborCost.Max, Src: r.Stream("labor_cost_index")},
	}
}

// intIn draws uniformly from [lo, hi] on the named stream.
func (g *generator) intIn(stream string, lo, hi int) int {
	return lo + g.rng.Stream(stream).IntN(hi-lo+1)
}

func pick(c distuv.Categorical, values []string) string {
	return values[int(c.Rand())]
}

func clip(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

func (g *generator) project() sim.Project {
	var p sim.Project

	// District / land
	p.DistrictClass = pick(g.district, classes)
	lp := landPrice[p.DistrictClass]
	p.LandPricePerM2 = g.intIn("land_price_per_m2", lp[0], lp[1])
	p.SoilComplexity = g.intIn("soil_complexity", 1, 5)
	p.SiteAccessibility = g.intIn("site_accessibility", 1, 5)
	p.LandAreaM2 = g.intIn("land_area_m2", 400, 1000)

	// House / project
	p.HouseAreaM2 = clip(g.houseArea.Rand(), 80, 350)
	p.DesignComplexity = g.intIn("design_complexity", 1, 5)
	p.MaterialsClass = pick(g.materials, classes)
	p.PlannedDurationDays = int(p.HouseAreaM2/150*90 + float64(p.DesignComplexity)*10)
	p.PlannedBudget = p.HouseAreaM2*baseCostPerM2*materialsMultiplier[p.MaterialsClass] +
		float64(p.DesignComplexity)*50000 +
		float64(p.LandPricePerM2)*float64(p.LandAreaM2)

	// Construction
	p.CrewExperienceYears = g.intIn("crew_experience_years", 1, 10)
	efficiency := distuv.Normal{
		Mu:    0.8 + float64(p.CrewExperienceYears)/50,
		Sigma: 0.05,
		Src:   g.rng.Stream("crew_efficiency_score"),
	}
	p.CrewEfficiencyScore = clip(efficiency.Rand(), 0.7, 1.0)
	p.CrewCurrentLoad = g.intIn("crew_current_load", 0, 3)
	p.SupplierReliabilityScore = clip(g.supplier.Rand(), 0.7, 1.0)
	management := float64(g.intIn("management_quality", 1, 5)) // hidden: 1 poor, 5 excellent
	p.DeliveryDistanceKm = g.intIn("delivery_distance_km", 5, 50)
	p.WeatherSeason = pick(g.season, seasons)
	weather := weatherFactor[p.WeatherSeason]

	// External / market
	p.MaterialPriceIndex = g.matPrice.Rand()
	p.MortgageRate = g.mortgage.Rand()
	p.MarketDemandIndex = g.demand.Rand()
	p.LaborCostIndex = g.labor.Rand()
	events := clip(g.events.Rand(), 0, 2.0) // hidden force majeure index
	p.ClientType = pick(g.client, clients)

	// Delays
	duration := float64(p.PlannedDurationDays)
	p.DelayDays = math.Max(0, duration*0.05*(5-p.CrewEfficiencyScore*5)+
		(5-p.SupplierReliabilityScore*5)*10+
		float64(p.SoilComplexity)*2+
		float64(p.DeliveryDistanceKm)*0.1+
		weather+
		(6-management)*3.0+
		events*6.0+
		g.noiseDelay.Rand())

	// Actual cost
	cost := p.PlannedBudget * (1 + 0.02*p.DelayDays/duration)
	cost *= p.MaterialPriceIndex
	cost *= 1 + 0.05*(5-p.CrewEfficiencyScore*5)
	cost *= 1 + 0.03*events
	cost *= 1 + 0.04*(p.LaborCostIndex-1.0)/0.1
	if p.ClientType == "commercial" && p.DelayDays > duration*1.1 {
		cost += 0.01 * p.PlannedBudget * p.DelayDays
	}
	p.ActualCost = cost

	// Targets
	p.ActualMargin = (p.PlannedBudget - cost) / p.PlannedBudget
	overrunRatio := cost/(p.PlannedBudget+1e-9) - 1.0
	logit := -1.0 +
		6.0*overrunRatio +
		0.4*(5-management) +
		0.25*float64(p.SoilComplexity-3) +
		0.01*float64(p.DeliveryDistanceKm-30) +
		0.3*(weather-2) +
		0.4*(p.MaterialPriceIndex-1.0)/0.1 +
		g.noiseLogit.Rand()
	prob := 1 / (1 + math.Exp(-logit))
	if g.rng.Stream("budget_overrun").Float64() < prob {
		p.BudgetOverrun = 1
	}
	p.FinalProfit = p.PlannedBudget - cost
	return p
}

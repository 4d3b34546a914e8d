package sim

import (
	"fmt"
	"math"
)

// FieldKind is the declared value type of a schema column.
type FieldKind string

const (
	Categorical FieldKind = "categorical"
	Integer     FieldKind = "integer"
	Float       FieldKind = "float"
)

// FieldRole separates model inputs from observed outcomes.
type FieldRole string

const (
	Feature FieldRole = "feature"
	Outcome FieldRole = "outcome"
)

// Field describes one dataset column and how to read or write it on a Project.
//
// Min/Max are the limits offered by the interactive form. They are descriptive:
// overrides are type-checked, not range-checked. Both zero means unbounded.
// Choices lists the values offered for categorical fields; the authoritative
// alphabet for encoding is the fitted CategoryTable.
type Field struct {
	Name    string
	Kind    FieldKind
	Role    FieldRole
	Min     float64
	Max     float64
	Choices []string

	text  func(*Project) *string
	whole func(*Project) *int
	real  func(*Project) *float64
}

// Bounded reports whether the field carries form limits.
func (f Field) Bounded() bool {
	return f.Min != 0 || f.Max != 0
}

// Text returns a categorical field's value.
func (f Field) Text(p *Project) string {
	if f.text == nil {
		return ""
	}
	return *f.text(p)
}

// Number returns a numeric field's value as float64 (NaN for categorical fields).
func (f Field) Number(p *Project) float64 {
	switch {
	case f.whole != nil:
		return float64(*f.whole(p))
	case f.real != nil:
		return *f.real(p)
	}
	return math.NaN()
}

// Value returns the field's value with its declared Go type (string, int or float64).
func (f Field) Value(p *Project) any {
	switch f.Kind {
	case Categorical:
		return *f.text(p)
	case Integer:
		return *f.whole(p)
	default:
		return *f.real(p)
	}
}

func catField(name string, ref func(*Project) *string, choices ...string) Field {
	return Field{Name: name, Kind: Categorical, Role: Feature, Choices: choices, text: ref}
}

func intField(name string, role FieldRole, lo, hi float64, ref func(*Project) *int) Field {
	return Field{Name: name, Kind: Integer, Role: role, Min: lo, Max: hi, whole: ref}
}

func floatField(name string, role FieldRole, lo, hi float64, ref func(*Project) *float64) Field {
	return Field{Name: name, Kind: Float, Role: role, Min: lo, Max: hi, real: ref}
}

var classChoices = []string{"econom", "standard", "premium"}

// schema lists every dataset column in file order.
var schema = []Field{
	catField("district_class", func(p *Project) *string { return &p.DistrictClass }, classChoices...),
	intField("land_price_per_m2", Feature, 1000, 50000, func(p *Project) *int { return &p.LandPricePerM2 }),
	intField("soil_complexity", Feature, 1, 5, func(p *Project) *int { return &p.SoilComplexity }),
	intField("site_accessibility", Feature, 1, 5, func(p *Project) *int { return &p.SiteAccessibility }),
	intField("land_area_m2", Feature, 100, 5000, func(p *Project) *int { return &p.LandAreaM2 }),
	floatField("house_area_m2", Feature, 50, 1000, func(p *Project) *float64 { return &p.HouseAreaM2 }),
	intField("design_complexity", Feature, 1, 5, func(p *Project) *int { return &p.DesignComplexity }),
	catField("materials_class", func(p *Project) *string { return &p.MaterialsClass }, classChoices...),
	intField("planned_duration_days", Feature, 30, 730, func(p *Project) *int { return &p.PlannedDurationDays }),
	floatField("planned_budget", Feature, 1_000_000, 500_000_000, func(p *Project) *float64 { return &p.PlannedBudget }),
	intField("crew_experience_years", Feature, 1, 10, func(p *Project) *int { return &p.CrewExperienceYears }),
	floatField("crew_efficiency_score", Feature, 0.7, 1.0, func(p *Project) *float64 { return &p.CrewEfficiencyScore }),
	intField("crew_current_load", Feature, 0, 3, func(p *Project) *int { return &p.CrewCurrentLoad }),
	floatField("supplier_reliability_score", Feature, 0.7, 1.0, func(p *Project) *float64 { return &p.SupplierReliabilityScore }),
	intField("delivery_distance_km", Feature, 1, 200, func(p *Project) *int { return &p.DeliveryDistanceKm }),
	catField("weather_season", func(p *Project) *string { return &p.WeatherSeason }, "winter", "spring", "summer", "autumn"),
	floatField("material_price_index", Feature, 0.5, 2.0, func(p *Project) *float64 { return &p.MaterialPriceIndex }),
	floatField("mortgage_rate", Feature, 1.0, 25.0, func(p *Project) *float64 { return &p.MortgageRate }),
	floatField("market_demand_index", Feature, 0.5, 2.0, func(p *Project) *float64 { return &p.MarketDemandIndex }),
	catField("client_type", func(p *Project) *string { return &p.ClientType }, "private", "commercial"),
	floatField("labor_cost_index", Feature, 0.5, 2.0, func(p *Project) *float64 { return &p.LaborCostIndex }),

	floatField("delay_days", Outcome, 0, 0, func(p *Project) *float64 { return &p.DelayDays }),
	floatField("actual_cost", Outcome, 0, 0, func(p *Project) *float64 { return &p.ActualCost }),
	floatField("actual_margin", Outcome, 0, 0, func(p *Project) *float64 { return &p.ActualMargin }),
	intField("budget_overrun", Outcome, 0, 1, func(p *Project) *int { return &p.BudgetOverrun }),
	floatField("final_profit", Outcome, 0, 0, func(p *Project) *float64 { return &p.FinalProfit }),
}

var (
	fieldIndex    = make(map[string]int, len(schema))
	featureFields []Field
)

func init() {
	for i, f := range schema {
		if _, dup := fieldIndex[f.Name]; dup {
			panic(fmt.Sprintf("sim: duplicate schema field %q", f.Name))
		}
		fieldIndex[f.Name] = i
		if f.Role == Feature {
			featureFields = append(featureFields, f)
		}
	}
}

// Fields returns every dataset column in file order.
func Fields() []Field {
	out := make([]Field, len(schema))
	copy(out, schema)
	return out
}

// Columns returns the dataset header in file order.
func Columns() []string {
	names := make([]string, len(schema))
	for i, f := range schema {
		names[i] = f.Name
	}
	return names
}

// FeatureNames returns the model feature columns in training order.
func FeatureNames() []string {
	names := make([]string, len(featureFields))
	for i, f := range featureFields {
		names[i] = f.Name
	}
	return names
}

// CategoricalFeatures returns the names of the categorical feature columns.
func CategoricalFeatures() []string {
	var names []string
	for _, f := range featureFields {
		if f.Kind == Categorical {
			names = append(names, f.Name)
		}
	}
	return names
}

// LookupField returns the schema entry for name.
func LookupField(name string) (Field, bool) {
	i, ok := fieldIndex[name]
	if !ok {
		return Field{}, false
	}
	return schema[i], true
}

package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitCategoryTable_SortedAlphabetCodes(t *testing.T) {
	rows := []Project{
		{DistrictClass: "standard", MaterialsClass: "premium", WeatherSeason: "winter", ClientType: "private"},
		{DistrictClass: "econom", MaterialsClass: "premium", WeatherSeason: "autumn", ClientType: "commercial"},
		{DistrictClass: "premium", MaterialsClass: "econom", WeatherSeason: "summer", ClientType: "private"},
	}
	table := FitCategoryTable(rows)

	assert.Equal(t, []string{"econom", "premium", "standard"}, table.Categories("district_class"))
	assert.Equal(t, []string{"econom", "premium"}, table.Categories("materials_class"))
	assert.Equal(t, []string{"autumn", "summer", "winter"}, table.Categories("weather_season"))

	code, err := table.Code("district_class", "standard")
	require.NoError(t, err)
	assert.Equal(t, 2, code)
	code, err = table.Code("client_type", "commercial")
	require.NoError(t, err)
	assert.Equal(t, 0, code)
}

func TestCategoryTable_UnknownCategoryRejected(t *testing.T) {
	table := FitCategoryTable(testProjects(12))
	_, err := table.Code("weather_season", "monsoon")

	assert.ErrorIs(t, err, ErrInvalidValue)
	assert.ErrorContains(t, err, "monsoon")
}

func TestCategoryTable_Encode_FeatureOrder(t *testing.T) {
	rows := testProjects(12)
	table := FitCategoryTable(rows)

	vec, err := table.Encode(&rows[4])
	require.NoError(t, err)
	require.Len(t, vec, len(FeatureNames()))
	assert.Len(t, FeatureNames(), 21)

	assert.Equal(t, float64(rows[4].LandPricePerM2), vec[1])
	assert.Equal(t, rows[4].HouseAreaM2, vec[5])
	assert.Equal(t, rows[4].LaborCostIndex, vec[20])
	season, _ := table.Code("weather_season", rows[4].WeatherSeason)
	assert.Equal(t, float64(season), vec[15])
}

func TestCategoryTable_RoundTripThroughAlphabets(t *testing.T) {
	rows := testProjects(30)
	table := FitCategoryTable(rows)

	rebuilt, err := NewCategoryTable(table.Alphabets())
	require.NoError(t, err)

	a, err := table.EncodeAll(rows)
	require.NoError(t, err)
	b, err := rebuilt.EncodeAll(rows)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestNewCategoryTable_Rejects(t *testing.T) {
	good := FitCategoryTable(testProjects(12)).Alphabets()
	tests := []struct {
		name    string
		mutate  func(map[string][]string)
		wantErr string
	}{
		{"missing column", func(m map[string][]string) { delete(m, "client_type") }, "has 3 columns"},
		{"unsorted", func(m map[string][]string) { m["client_type"] = []string{"private", "commercial"} }, "sorted and unique"},
		{"duplicate", func(m map[string][]string) { m["client_type"] = []string{"private", "private"} }, "sorted and unique"},
		{"renamed column", func(m map[string][]string) {
			m["client"] = m["client_type"]
			delete(m, "client_type")
		}, "missing column"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := make(map[string][]string)
			for k, v := range good {
				m[k] = v
			}
			tt.mutate(m)
			_, err := NewCategoryTable(m)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestSchema_Columns(t *testing.T) {
	cols := Columns()
	assert.Len(t, cols, 26)
	assert.Equal(t, "district_class", cols[0])
	assert.Equal(t, "final_profit", cols[25])
	assert.Equal(t, []string{"district_class", "materials_class", "weather_season", "client_type"}, CategoricalFeatures())

	f, ok := LookupField("crew_efficiency_score")
	require.True(t, ok)
	assert.Equal(t, Float, f.Kind)
	assert.Equal(t, 0.7, f.Min)
	_, ok = LookupField("colour")
	assert.False(t, ok)
}

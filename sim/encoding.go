package sim

import (
	"fmt"
	"sort"
)

// CategoryTable maps categorical feature values to integer codes.
//
// Codes follow sorted-alphabet order (0..n-1 per column), the same assignment a
// label encoder fit on the training data produces. The table is fit once at
// training time, stored in the artifact bundle and reused verbatim at inference,
// so a category always maps to the same code for baseline and scenario rows.
type CategoryTable struct {
	alphabets map[string][]string
	codes     map[string]map[string]int
}

// FitCategoryTable builds the table from the categorical features of rows.
func FitCategoryTable(rows []Project) *CategoryTable {
	alphabets := make(map[string][]string)
	for _, name := range CategoricalFeatures() {
		f, _ := LookupField(name)
		seen := make(map[string]bool)
		var values []string
		for i := range rows {
			v := f.Text(&rows[i])
			if !seen[v] {
				seen[v] = true
				values = append(values, v)
			}
		}
		sort.Strings(values)
		alphabets[name] = values
	}
	t, _ := NewCategoryTable(alphabets)
	return t
}

// NewCategoryTable rebuilds a table from persisted alphabets.
// Every categorical feature must be present, and each alphabet must be sorted
// and free of duplicates.
func NewCategoryTable(alphabets map[string][]string) (*CategoryTable, error) {
	t := &CategoryTable{
		alphabets: make(map[string][]string, len(alphabets)),
		codes:     make(map[string]map[string]int, len(alphabets)),
	}
	want := CategoricalFeatures()
	if len(alphabets) != len(want) {
		return nil, fmt.Errorf("category table has %d columns, want %d (%v)", len(alphabets), len(want), want)
	}
	for _, name := range want {
		values, ok := alphabets[name]
		if !ok {
			return nil, fmt.Errorf("category table missing column %q", name)
		}
		codes := make(map[string]int, len(values))
		for i, v := range values {
			if i > 0 && values[i-1] >= v {
				return nil, fmt.Errorf("category table column %q: alphabet must be sorted and unique", name)
			}
			codes[v] = i
		}
		t.alphabets[name] = append([]string(nil), values...)
		t.codes[name] = codes
	}
	return t, nil
}

// Alphabets returns a copy of the per-column category lists, suitable for persisting.
func (t *CategoryTable) Alphabets() map[string][]string {
	out := make(map[string][]string, len(t.alphabets))
	for k, v := range t.alphabets {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Categories returns the known values of one categorical column.
func (t *CategoryTable) Categories(field string) []string {
	return append([]string(nil), t.alphabets[field]...)
}

// Code returns the integer code of value in field.
func (t *CategoryTable) Code(field, value string) (int, error) {
	codes, ok := t.codes[field]
	if !ok {
		return 0, unknownField(field)
	}
	c, ok := codes[value]
	if !ok {
		return 0, invalidValue(field, "category %q not in fitted table %v", value, t.alphabets[field])
	}
	return c, nil
}

// Encode returns the feature vector of p in FeatureNames order.
func (t *CategoryTable) Encode(p *Project) ([]float64, error) {
	vec := make([]float64, len(featureFields))
	for i, f := range featureFields {
		if f.Kind != Categorical {
			vec[i] = f.Number(p)
			continue
		}
		c, err := t.Code(f.Name, f.Text(p))
		if err != nil {
			return nil, err
		}
		vec[i] = float64(c)
	}
	return vec, nil
}

// EncodeAll encodes every row; the first failing row aborts with its index.
func (t *CategoryTable) EncodeAll(rows []Project) ([][]float64, error) {
	out := make([][]float64, len(rows))
	for i := range rows {
		vec, err := t.Encode(&rows[i])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = vec
	}
	return out, nil
}

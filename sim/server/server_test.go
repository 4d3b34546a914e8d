package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/constructrisk/riskopt/sim"
	"github.com/constructrisk/riskopt/sim/internal/testutil"
	"github.com/constructrisk/riskopt/sim/journal"
)

var (
	fixtureOnce sync.Once
	fixtureSim  *sim.Simulator
)

// sharedSimulator trains the fixture bundle once for the whole package.
func sharedSimulator(t *testing.T) *sim.Simulator {
	t.Helper()
	fixtureOnce.Do(func() {
		f := testutil.NewFixture(t)
		fixtureSim = f.Simulator(t)
	})
	require.NotNil(t, fixtureSim)
	return fixtureSim
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec, out
}

func TestHealthAndSchema(t *testing.T) {
	s := New(sharedSimulator(t), nil, DefaultConfig())

	rec, body := do(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(testutil.FixtureRows), body["rows"])

	rec, body = do(t, s, http.MethodGet, "/schema", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	fields := body["fields"].([]any)
	require.Len(t, fields, 26)
	first := fields[0].(map[string]any)
	assert.Equal(t, "district_class", first["name"])
	assert.Equal(t, []any{"econom", "premium", "standard"}, first["choices"])
	second := fields[1].(map[string]any)
	assert.Equal(t, 1000.0, second["min"])
}

func TestProject(t *testing.T) {
	s := New(sharedSimulator(t), nil, DefaultConfig())

	rec, body := do(t, s, http.MethodGet, "/projects/0", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body, "materials_class")

	rec, _ = do(t, s, http.MethodGet, "/projects/100000", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, s, http.MethodGet, "/projects/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSimulate_Success(t *testing.T) {
	// GIVEN the default scenario from the console flow
	s := New(sharedSimulator(t), nil, DefaultConfig())
	body := `{"base_index": 0, "overrides": {"materials_class": "premium", "delivery_distance_km": 10}}`

	// WHEN posted
	rec, out := do(t, s, http.MethodPost, "/simulate", body)

	// THEN the six numbers and an assessment come back
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := out["result"].(map[string]any)
	for _, k := range []string{"original_margin_pred", "scenario_margin_pred", "original_risk_prob", "scenario_risk_prob", "delta_margin", "delta_risk"} {
		require.Contains(t, result, k)
		testutil.AssertFinite(t, k, result[k].(float64))
	}
	num := func(k string) float64 { return result[k].(float64) }
	testutil.AssertRelClose(t, "delta_margin", num("scenario_margin_pred")-num("original_margin_pred"), num("delta_margin"), 1e-12)
	testutil.AssertRelClose(t, "delta_risk", num("scenario_risk_prob")-num("original_risk_prob"), num("delta_risk"), 1e-12)
	assessment := out["assessment"].(map[string]any)
	assert.NotEmpty(t, assessment["verdict"])
	assert.NotContains(t, out, "journal_id")
}

func TestSimulate_ErrorMapping(t *testing.T) {
	s := New(sharedSimulator(t), nil, DefaultConfig())
	tests := []struct {
		name   string
		body   string
		status int
		msg    string
	}{
		{"out of range", `{"base_index": 99999}`, http.StatusNotFound, "out of range"},
		{"negative index", `{"base_index": -1}`, http.StatusNotFound, "out of range"},
		{"unknown field", `{"base_index": 0, "overrides": {"colour": "red"}}`, http.StatusBadRequest, "unknown field"},
		{"unknown category", `{"base_index": 0, "overrides": {"materials_class": "luxury"}}`, http.StatusBadRequest, "luxury"},
		{"fraction into integer", `{"base_index": 0, "overrides": {"soil_complexity": 2.5}}`, http.StatusBadRequest, "soil_complexity"},
		{"missing index", `{"overrides": {}}`, http.StatusBadRequest, "base_index is required"},
		{"bad JSON", `{"base_index": `, http.StatusBadRequest, "invalid JSON"},
		{"unknown body key", `{"base_index": 0, "extra": 1}`, http.StatusBadRequest, "invalid JSON"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, out := do(t, s, http.MethodPost, "/simulate", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, out["error"], tt.msg)
		})
	}
}

func TestSimulate_ConcurrentRequestsAgree(t *testing.T) {
	// BDD: a shared simulator serves concurrent reads with identical answers
	s := New(sharedSimulator(t), nil, DefaultConfig())
	body := `{"base_index": 5, "overrides": {"mortgage_rate": 11.5}}`
	_, want := do(t, s, http.MethodPost, "/simulate", body)

	var wg sync.WaitGroup
	results := make([]string, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/simulate", strings.NewReader(body))
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, req)
			results[i] = rec.Body.String()
		}(i)
	}
	wg.Wait()

	wantJSON, err := json.Marshal(want)
	require.NoError(t, err)
	for _, r := range results {
		var got map[string]any
		require.NoError(t, json.Unmarshal([]byte(r), &got))
		gotJSON, err := json.Marshal(got)
		require.NoError(t, err)
		assert.JSONEq(t, string(wantJSON), string(gotJSON))
	}
}

func TestScenarios_WithJournal(t *testing.T) {
	ctx := context.Background()
	j, err := journal.Open(ctx, filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer func() { _ = j.Close() }()
	s := New(sharedSimulator(t), j, DefaultConfig())

	rec, out := do(t, s, http.MethodPost, "/simulate", `{"base_index": 2, "overrides": {"client_type": "commercial"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	id, _ := out["journal_id"].(string)
	require.NotEmpty(t, id)

	rec, out = do(t, s, http.MethodGet, "/scenarios?limit=5", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	list := out["scenarios"].([]any)
	require.Len(t, list, 1)
	entry := list[0].(map[string]any)
	assert.Equal(t, id, entry["id"])
	assert.Equal(t, 2.0, entry["base_index"])

	rec, _ = do(t, s, http.MethodGet, "/scenarios?limit=zero", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScenarios_WithoutJournal(t *testing.T) {
	s := New(sharedSimulator(t), nil, DefaultConfig())
	rec, out := do(t, s, http.MethodGet, "/scenarios", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "journal not configured", out["error"])
}

type failingJournal struct{}

func (failingJournal) Record(context.Context, int, sim.Overrides, sim.ScenarioResult) (journal.Entry, error) {
	return journal.Entry{}, errors.New("disk full")
}

func (failingJournal) List(context.Context, int) ([]journal.Entry, error) {
	return nil, errors.New("disk full")
}

func TestJournalFailures(t *testing.T) {
	s := New(sharedSimulator(t), failingJournal{}, DefaultConfig())

	// A failed journal write does not fail the simulation.
	rec, out := do(t, s, http.MethodPost, "/simulate", `{"base_index": 0}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, out, "journal_id")

	rec, _ = do(t, s, http.MethodGet, "/scenarios", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusFor(&sim.RangeError{Index: 9, Rows: 1}))
	assert.Equal(t, http.StatusBadRequest, statusFor(&sim.FieldError{Field: "x", Err: sim.ErrUnknownField}))
	assert.Equal(t, http.StatusInternalServerError, statusFor(sim.ErrArtifact))

	// An artifact failure that also wraps a field error is still a server fault.
	drift := fmt.Errorf("%w: %w", sim.ErrArtifact, &sim.FieldError{Field: "district_class", Err: sim.ErrInvalidValue})
	assert.Equal(t, http.StatusInternalServerError, statusFor(drift))
}

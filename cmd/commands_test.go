package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/constructrisk/riskopt/sim"
	"github.com/constructrisk/riskopt/sim/server"
)

// testConfig points every path into a temp dir and shrinks the workload.
func testConfig(t *testing.T) Config {
	t.Helper()
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	dir := t.TempDir()
	cfg.Data = filepath.Join(dir, "data", "projects.csv")
	cfg.Artifacts = filepath.Join(dir, "models")
	cfg.Journal = filepath.Join(dir, "journal.db")
	cfg.Synth.Projects = 300
	cfg.Train.Trees = 20
	cfg.Train.MaxDepth = 3
	return cfg
}

// trainedConfig generates a dataset and trains a bundle for it.
func trainedConfig(t *testing.T) Config {
	t.Helper()
	cfg := testConfig(t)
	require.NoError(t, runGenerate(cfg.Synth, cfg.Data))
	var out bytes.Buffer
	require.NoError(t, runTrain(context.Background(), &out, cfg.Data, cfg.Artifacts, cfg.Train))
	return cfg
}

// === Generate / Train Tests ===

func TestGenerateThenTrain_WritesLoadableArtifacts(t *testing.T) {
	cfg := testConfig(t)

	// WHEN generating
	require.NoError(t, runGenerate(cfg.Synth, cfg.Data))

	// THEN the dataset has the requested rows
	ds, err := sim.LoadDataset(cfg.Data)
	require.NoError(t, err)
	assert.Equal(t, 300, ds.Len())

	// WHEN training
	var out bytes.Buffer
	require.NoError(t, runTrain(context.Background(), &out, cfg.Data, cfg.Artifacts, cfg.Train))

	// THEN metrics are printed and the bundle loads
	assert.Contains(t, out.String(), "ROC-AUC")
	assert.Contains(t, out.String(), "MAE")
	b, err := sim.LoadBundle(cfg.Artifacts)
	require.NoError(t, err)
	require.NotNil(t, b.Manifest.Metrics)
	assert.Equal(t, 300, b.Manifest.Metrics.TrainRows+b.Manifest.Metrics.TestRows)
}

func TestGenerate_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Synth.Projects = 0
	assert.Error(t, runGenerate(cfg.Synth, cfg.Data))
}

// === WhatIf Tests ===

func TestWhatIf_TextReport(t *testing.T) {
	cfg := trainedConfig(t)
	var out bytes.Buffer

	err := runWhatIf(context.Background(), &out, cfg, whatifRequest{
		Base: 0,
		Sets: []string{"materials_class=premium", "delivery_distance_km=10"},
	})

	require.NoError(t, err)
	assert.Contains(t, out.String(), "Project 0")
	assert.Contains(t, out.String(), "baseline")
	assert.Contains(t, out.String(), "scenario")
	assert.NotContains(t, out.String(), "Recorded as")
}

func TestWhatIf_JSONMatchesLibrary(t *testing.T) {
	// GIVEN a trained bundle
	cfg := trainedConfig(t)
	sets := []string{"mortgage_rate=11", "client_type=commercial"}

	// WHEN the CLI emits JSON
	var out bytes.Buffer
	require.NoError(t, runWhatIf(context.Background(), &out, cfg, whatifRequest{Base: 3, Sets: sets, JSON: true}))

	// THEN the result equals a direct library call
	var resp server.SimulateResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	overrides, err := sim.ParseOverrides(sets)
	require.NoError(t, err)
	want, err := sim.SimulateScenario(cfg.Data, cfg.Artifacts, 3, overrides)
	require.NoError(t, err)
	assert.Equal(t, want, resp.Result)
	assert.NotEmpty(t, resp.Assessment.Verdict)
}

func TestWhatIf_RecordThenHistory(t *testing.T) {
	ctx := context.Background()
	cfg := trainedConfig(t)

	var out bytes.Buffer
	require.NoError(t, runWhatIf(ctx, &out, cfg, whatifRequest{
		Base:   1,
		Sets:   []string{"crew_experience_years=9"},
		Record: true,
	}))
	assert.Contains(t, out.String(), "Recorded as")

	var hist bytes.Buffer
	require.NoError(t, runHistory(ctx, &hist, cfg.Journal, 10))
	lines := strings.Split(strings.TrimSpace(hist.String()), "\n")
	require.Len(t, lines, 2, "header plus one entry")
	assert.Contains(t, lines[1], `{"crew_experience_years":9}`)
}

func TestWhatIf_Errors(t *testing.T) {
	cfg := trainedConfig(t)
	tests := []struct {
		name string
		req  whatifRequest
		is   error
	}{
		{"unknown field", whatifRequest{Sets: []string{"colour=red"}}, sim.ErrUnknownField},
		{"unknown category", whatifRequest{Sets: []string{"materials_class=luxury"}}, sim.ErrInvalidValue},
		{"non-numeric", whatifRequest{Sets: []string{"mortgage_rate=high"}}, sim.ErrInvalidValue},
		{"index out of range", whatifRequest{Base: 300}, sim.ErrIndexOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := runWhatIf(context.Background(), &out, cfg, tt.req)
			assert.ErrorIs(t, err, tt.is)
		})
	}

	t.Run("record without journal", func(t *testing.T) {
		c := cfg
		c.Journal = ""
		var out bytes.Buffer
		err := runWhatIf(context.Background(), &out, c, whatifRequest{Record: true})
		assert.ErrorContains(t, err, "no journal configured")
	})
}

func TestWhatIf_MissingArtifacts(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, runGenerate(cfg.Synth, cfg.Data))
	var out bytes.Buffer
	err := runWhatIf(context.Background(), &out, cfg, whatifRequest{})
	assert.ErrorIs(t, err, sim.ErrArtifact)
}

// === History Tests ===

func TestHistory_Empty(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runHistory(context.Background(), &out, filepath.Join(t.TempDir(), "j.db"), 0))
	assert.Equal(t, "No scenarios recorded.\n", out.String())

	assert.Error(t, runHistory(context.Background(), &out, "", 0))
}

// === Explain / Describe Tests ===

func TestExplain_PrintsAndWritesWorkbook(t *testing.T) {
	cfg := trainedConfig(t)
	xlsx := filepath.Join(t.TempDir(), "importance.xlsx")
	var out bytes.Buffer

	require.NoError(t, runExplain(&out, cfg.Artifacts, 3, xlsx))

	assert.Contains(t, out.String(), "margin model")
	assert.Contains(t, out.String(), "risk model")
	f, err := excelize.OpenFile(xlsx)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	assert.Equal(t, []string{"margin", "risk"}, f.GetSheetList())
}

func TestDescribe_PrintsProfile(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, runGenerate(cfg.Synth, cfg.Data))
	var out bytes.Buffer

	require.NoError(t, runDescribe(&out, cfg.Data))

	assert.Contains(t, out.String(), "overrun rate")
	assert.Contains(t, out.String(), "delivery_distance_km")
}

// === Demo / Serve Tests ===

func TestDemo_EndToEnd(t *testing.T) {
	// BDD: the walkthrough generates, trains and reports the showcase scenario
	cfg := testConfig(t)
	var out bytes.Buffer

	require.NoError(t, runDemo(context.Background(), &out, cfg))

	assert.Contains(t, out.String(), "ROC-AUC")
	assert.Contains(t, out.String(), "Project 0")
	assert.Contains(t, out.String(), "materials_class:premium")
}

func TestNewHandler_ServesSimulations(t *testing.T) {
	cfg := trainedConfig(t)
	h, cleanup, err := newHandler(context.Background(), cfg)
	require.NoError(t, err)
	defer cleanup()

	req := httptest.NewRequest(http.MethodPost, "/simulate", strings.NewReader(`{"base_index": 0}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp server.SimulateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 0.0, resp.Result.DeltaMargin, "no overrides means no change")
	assert.NotEmpty(t, resp.JournalID, "journal configured in testConfig")
}

func TestNewHandler_WithoutJournal(t *testing.T) {
	cfg := trainedConfig(t)
	cfg.Journal = ""
	h, cleanup, err := newHandler(context.Background(), cfg)
	require.NoError(t, err)
	defer cleanup()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/scenarios", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// Package journal records simulated scenarios in a SQLite database so past
// what-if runs can be listed and replayed.
package journal

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // driver: sqlite

	"github.com/constructrisk/riskopt/sim"
)

// ErrNotFound is returned by Get for an unknown entry id.
var ErrNotFound = errors.New("journal entry not found")

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const schema = `
CREATE TABLE IF NOT EXISTS scenarios (
  id TEXT PRIMARY KEY,
  created_at TEXT NOT NULL,
  base_index INTEGER NOT NULL,
  overrides TEXT NOT NULL,
  original_margin_pred REAL NOT NULL,
  scenario_margin_pred REAL NOT NULL,
  original_risk_prob REAL NOT NULL,
  scenario_risk_prob REAL NOT NULL,
  delta_margin REAL NOT NULL,
  delta_risk REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS scenarios_created_at ON scenarios(created_at);
`

// Entry is one recorded simulation.
type Entry struct {
	ID        string             `json:"id"`
	CreatedAt time.Time          `json:"created_at"`
	BaseIndex int                `json:"base_index"`
	Overrides sim.Overrides      `json:"overrides"`
	Result    sim.ScenarioResult `json:"result"`
}

type record struct {
	ID             string  `db:"id"`
	CreatedAt      string  `db:"created_at"`
	BaseIndex      int     `db:"base_index"`
	Overrides      string  `db:"overrides"`
	OriginalMargin float64 `db:"original_margin_pred"`
	ScenarioMargin float64 `db:"scenario_margin_pred"`
	OriginalRisk   float64 `db:"original_risk_prob"`
	ScenarioRisk   float64 `db:"scenario_risk_prob"`
	DeltaMargin    float64 `db:"delta_margin"`
	DeltaRisk      float64 `db:"delta_risk"`
}

func (r record) entry() (Entry, error) {
	created, err := time.Parse(timeLayout, r.CreatedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("entry %s: bad created_at: %w", r.ID, err)
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(r.Overrides)))
	dec.UseNumber()
	var o sim.Overrides
	if err := dec.Decode(&o); err != nil {
		return Entry{}, fmt.Errorf("entry %s: bad overrides: %w", r.ID, err)
	}
	return Entry{
		ID:        r.ID,
		CreatedAt: created,
		BaseIndex: r.BaseIndex,
		Overrides: o,
		Result: sim.ScenarioResult{
			OriginalMargin: r.OriginalMargin,
			ScenarioMargin: r.ScenarioMargin,
			OriginalRisk:   r.OriginalRisk,
			ScenarioRisk:   r.ScenarioRisk,
			DeltaMargin:    r.DeltaMargin,
			DeltaRisk:      r.DeltaRisk,
		},
	}, nil
}

// Journal is a SQLite-backed scenario log. Safe for concurrent use.
type Journal struct {
	db  *sqlx.DB
	now func() time.Time
}

// Open opens (creating if needed) the journal database at path.
func Open(ctx context.Context, path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating journal directory: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	db, err := sqlx.ConnectContext(ctx, "sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening journal %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating journal schema: %w", err)
	}
	return &Journal{db: db, now: time.Now}, nil
}

// Close releases the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record stores one simulation and returns the stored entry.
func (j *Journal) Record(ctx context.Context, baseIndex int, o sim.Overrides, r sim.ScenarioResult) (Entry, error) {
	if o == nil {
		o = sim.Overrides{}
	}
	data, err := json.Marshal(o)
	if err != nil {
		return Entry{}, fmt.Errorf("encoding overrides: %w", err)
	}
	rec := record{
		ID:             uuid.NewString(),
		CreatedAt:      j.now().UTC().Format(timeLayout),
		BaseIndex:      baseIndex,
		Overrides:      string(data),
		OriginalMargin: r.OriginalMargin,
		ScenarioMargin: r.ScenarioMargin,
		OriginalRisk:   r.OriginalRisk,
		ScenarioRisk:   r.ScenarioRisk,
		DeltaMargin:    r.DeltaMargin,
		DeltaRisk:      r.DeltaRisk,
	}
	_, err = j.db.NamedExecContext(ctx, `
		INSERT INTO scenarios (id, created_at, base_index, overrides,
			original_margin_pred, scenario_margin_pred, original_risk_prob, scenario_risk_prob,
			delta_margin, delta_risk)
		VALUES (:id, :created_at, :base_index, :overrides,
			:original_margin_pred, :scenario_margin_pred, :original_risk_prob, :scenario_risk_prob,
			:delta_margin, :delta_risk)
	`, rec)
	if err != nil {
		return Entry{}, fmt.Errorf("recording scenario: %w", err)
	}
	return rec.entry()
}

// List returns up to limit entries, newest first. limit <= 0 returns all.
func (j *Journal) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	var recs []record
	if err := j.db.SelectContext(ctx, &recs, `
		SELECT * FROM scenarios ORDER BY created_at DESC, rowid DESC LIMIT ?
	`, limit); err != nil {
		return nil, fmt.Errorf("listing scenarios: %w", err)
	}
	out := make([]Entry, 0, len(recs))
	for _, rec := range recs {
		e, err := rec.entry()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Get returns the entry with the given id, or ErrNotFound.
func (j *Journal) Get(ctx context.Context, id string) (Entry, error) {
	var rec record
	err := j.db.GetContext(ctx, &rec, `SELECT * FROM scenarios WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("loading scenario %s: %w", id, err)
	}
	return rec.entry()
}

package sim

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/constructrisk/riskopt/sim/gbt"
)

// BundleFormatVersion is the manifest version written by SaveBundle.
const BundleFormatVersion = 1

// Bundle file names inside an artifact directory.
const (
	ManifestFile    = "bundle.yaml"
	MarginModelFile = "margin_model.json"
	RiskModelFile   = "risk_model.json"
)

// TrainingMetrics summarizes held-out performance of the two predictors.
type TrainingMetrics struct {
	TrainRows    int     `yaml:"train_rows" json:"train_rows"`
	TestRows     int     `yaml:"test_rows" json:"test_rows"`
	MarginMAE    float64 `yaml:"margin_mae" json:"margin_mae"`
	MarginRMSE   float64 `yaml:"margin_rmse" json:"margin_rmse"`
	RiskROCAUC   float64 `yaml:"risk_roc_auc" json:"risk_roc_auc"`
	RiskAccuracy float64 `yaml:"risk_accuracy" json:"risk_accuracy"`
}

// Manifest is the YAML index of an artifact bundle.
type Manifest struct {
	Version     int                 `yaml:"format_version"`
	CreatedAt   time.Time           `yaml:"created_at"`
	Seed        int64               `yaml:"seed"`
	Features    []string            `yaml:"features"`
	Categories  map[string][]string `yaml:"categories"`
	MarginModel string              `yaml:"margin_model"`
	RiskModel   string              `yaml:"risk_model"`
	Metrics     *TrainingMetrics    `yaml:"metrics,omitempty"`
}

// Bundle is everything inference needs besides the dataset: the fitted category
// table and both predictors.
type Bundle struct {
	Manifest Manifest
	Table    *CategoryTable
	Margin   *gbt.Ensemble
	Risk     *gbt.Ensemble
}

// NewBundle assembles a bundle from freshly trained parts.
func NewBundle(table *CategoryTable, margin, risk *gbt.Ensemble, seed int64, metrics *TrainingMetrics) *Bundle {
	return &Bundle{
		Manifest: Manifest{
			Version:     BundleFormatVersion,
			CreatedAt:   time.Now().UTC().Truncate(time.Second),
			Seed:        seed,
			Features:    FeatureNames(),
			Categories:  table.Alphabets(),
			MarginModel: MarginModelFile,
			RiskModel:   RiskModelFile,
			Metrics:     metrics,
		},
		Table:  table,
		Margin: margin,
		Risk:   risk,
	}
}

// Validate checks that the bundle matches the compiled-in schema.
func (b *Bundle) Validate() error {
	if b.Table == nil || b.Margin == nil || b.Risk == nil {
		return errors.New("bundle is missing the category table or a model")
	}
	if b.Manifest.Version != BundleFormatVersion {
		return fmt.Errorf("unsupported bundle format_version %d (want %d)", b.Manifest.Version, BundleFormatVersion)
	}
	if !slices.Equal(b.Manifest.Features, FeatureNames()) {
		return fmt.Errorf("bundle features %v do not match schema features %v", b.Manifest.Features, FeatureNames())
	}
	width := len(b.Manifest.Features)
	if b.Margin.NumFeatures != width || b.Risk.NumFeatures != width {
		return fmt.Errorf("model widths %d/%d do not match %d features", b.Margin.NumFeatures, b.Risk.NumFeatures, width)
	}
	if b.Margin.Objective != gbt.SquaredError {
		return fmt.Errorf("margin model objective %q, want %q", b.Margin.Objective, gbt.SquaredError)
	}
	if b.Risk.Objective != gbt.Logistic {
		return fmt.Errorf("risk model objective %q, want %q", b.Risk.Objective, gbt.Logistic)
	}
	return nil
}

// LoadBundle reads an artifact directory written by SaveBundle.
// Every failure is reported as ErrArtifact.
func LoadBundle(dir string) (*Bundle, error) {
	manifestPath := filepath.Join(dir, ManifestFile)
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, artifactError(manifestPath, err)
	}
	var m Manifest
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&m); err != nil {
		return nil, artifactError(manifestPath, fmt.Errorf("parsing manifest: %w", err))
	}
	if m.MarginModel == "" || m.RiskModel == "" {
		return nil, artifactError(manifestPath, errors.New("manifest does not name both models"))
	}

	table, err := NewCategoryTable(m.Categories)
	if err != nil {
		return nil, artifactError(manifestPath, err)
	}
	b := &Bundle{Manifest: m, Table: table}
	if b.Margin, err = gbt.Load(filepath.Join(dir, m.MarginModel)); err != nil {
		return nil, artifactError(filepath.Join(dir, m.MarginModel), err)
	}
	if b.Risk, err = gbt.Load(filepath.Join(dir, m.RiskModel)); err != nil {
		return nil, artifactError(filepath.Join(dir, m.RiskModel), err)
	}
	if err := b.Validate(); err != nil {
		return nil, artifactError(dir, err)
	}
	return b, nil
}

// SaveBundle writes the manifest and both model files into dir.
func SaveBundle(dir string, b *Bundle) error {
	if err := b.Validate(); err != nil {
		return fmt.Errorf("refusing to save bundle: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating artifact directory: %w", err)
	}
	if err := b.Margin.Save(filepath.Join(dir, b.Manifest.MarginModel)); err != nil {
		return fmt.Errorf("saving margin model: %w", err)
	}
	if err := b.Risk.Save(filepath.Join(dir, b.Manifest.RiskModel)); err != nil {
		return fmt.Errorf("saving risk model: %w", err)
	}
	data, err := yaml.Marshal(&b.Manifest)
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), data, 0o644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

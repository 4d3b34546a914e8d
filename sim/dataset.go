package sim

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/jszwec/csvutil"
)

// Dataset is an immutable, row-ordered view of the project table.
// Row position is the base index used by Simulate.
type Dataset struct {
	rows []Project
}

// NewDataset copies rows into a Dataset.
func NewDataset(rows []Project) *Dataset {
	return &Dataset{rows: slices.Clone(rows)}
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	return len(d.rows)
}

// Row returns a copy of the row at index i.
func (d *Dataset) Row(i int) (Project, error) {
	if i < 0 || i >= len(d.rows) {
		return Project{}, &RangeError{Index: i, Rows: len(d.rows)}
	}
	return d.rows[i], nil
}

// Rows returns a copy of all rows.
func (d *Dataset) Rows() []Project {
	return slices.Clone(d.rows)
}

// LoadDataset reads a project CSV file. Failures are reported as ErrArtifact.
func LoadDataset(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, artifactError(path, err)
	}
	defer func() { _ = f.Close() }()

	rows, err := ReadDataset(f)
	if err != nil {
		return nil, artifactError(path, err)
	}
	return &Dataset{rows: rows}, nil
}

// ReadDataset decodes project rows from CSV. The header must list exactly the
// schema columns in file order.
func ReadDataset(r io.Reader) ([]Project, error) {
	dec, err := csvutil.NewDecoder(csv.NewReader(r))
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty dataset: missing header row")
		}
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	if header := dec.Header(); !slices.Equal(header, Columns()) {
		return nil, fmt.Errorf("dataset header %v does not match schema %v", header, Columns())
	}
	dec.DisallowMissingColumns = true

	var rows []Project
	for {
		var p Project
		err := dec.Decode(&p)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decoding CSV row %d: %w", len(rows), err)
		}
		rows = append(rows, p)
	}
	return rows, nil
}

// WriteDataset writes rows as CSV, creating parent directories as needed.
func WriteDataset(path string, rows []Project) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating dataset directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating dataset file: %w", err)
	}
	if err := EncodeDataset(f, rows); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// EncodeDataset writes the header and rows as CSV to w.
func EncodeDataset(w io.Writer, rows []Project) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	if err := enc.EncodeHeader(Project{}); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	for i := range rows {
		if err := enc.Encode(rows[i]); err != nil {
			return fmt.Errorf("writing CSV row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

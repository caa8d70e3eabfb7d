package sink

import (
	"context"
	"encoding/csv"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ppiankov/gazetteer/internal/model"
)

// CSVSink writes one CSV table per record kind and batch
type CSVSink struct {
	dir string
}

// NewCSVSink creates a CSV sink under dir
func NewCSVSink(dir string) *CSVSink {
	return &CSVSink{dir: dir}
}

// Write writes the batch's incorporation and name change tables
func (s *CSVSink) Write(_ context.Context, batch Batch) error {
	incRows := make([][]string, 0, len(batch.Incorporations))
	for _, inc := range batch.Incorporations {
		incRows = append(incRows, inc.Row())
	}
	if err := writeFile(s.dir, batch.FileName(KindIncorporations, ".csv"), csvTable(model.IncorporationHeader, incRows)); err != nil {
		return err
	}

	ncRows := make([][]string, 0, len(batch.NameChanges))
	for _, nc := range batch.NameChanges {
		ncRows = append(ncRows, nc.Row())
	}
	return writeFile(s.dir, batch.FileName(KindNameChanges, ".csv"), csvTable(model.NameChangeHeader, ncRows))
}

// Close is a no-op; files are closed after each write
func (s *CSVSink) Close() error { return nil }

func csvTable(header []string, rows [][]string) func(io.Writer) error {
	return func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(header); err != nil {
			return err
		}
		if err := cw.WriteAll(rows); err != nil {
			return err
		}
		return cw.Error()
	}
}

// JSONSink writes one JSON array per record kind and batch
type JSONSink struct {
	dir string
}

// NewJSONSink creates a JSON sink under dir
func NewJSONSink(dir string) *JSONSink {
	return &JSONSink{dir: dir}
}

// Write writes the batch as indented JSON arrays
func (s *JSONSink) Write(_ context.Context, batch Batch) error {
	if err := writeFile(s.dir, batch.FileName(KindIncorporations, ".json"), jsonValue(batch.Incorporations)); err != nil {
		return err
	}
	return writeFile(s.dir, batch.FileName(KindNameChanges, ".json"), jsonValue(batch.NameChanges))
}

// Close is a no-op; files are closed after each write
func (s *JSONSink) Close() error { return nil }

func jsonValue(v any) func(io.Writer) error {
	return func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
}

// GobSink writes the master record slices with encoding/gob for reloading
// into Go programs. Per-bulletin batches are ignored.
type GobSink struct {
	dir string
}

// NewGobSink creates a gob sink under dir
func NewGobSink(dir string) *GobSink {
	return &GobSink{dir: dir}
}

// Write encodes a master batch's two record slices
func (s *GobSink) Write(_ context.Context, batch Batch) error {
	if !batch.Master {
		return nil
	}
	if err := writeFile(s.dir, batch.FileName(KindIncorporations, ".gob"), gobValue(batch.Incorporations)); err != nil {
		return err
	}
	return writeFile(s.dir, batch.FileName(KindNameChanges, ".gob"), gobValue(batch.NameChanges))
}

// Close is a no-op; files are closed after each write
func (s *GobSink) Close() error { return nil }

func gobValue(v any) func(io.Writer) error {
	return func(w io.Writer) error {
		return gob.NewEncoder(w).Encode(v)
	}
}

// writeFile creates dir/name (and its parent directories) and fills it
func writeFile(dir, name string, fill func(io.Writer) error) (err error) {
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, closeErr)
		}
	}()

	if err := fill(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

package pepsirf

import (
	"encoding/csv"
	"path/filepath"

	"github.com/ladnerlab/autopepsirf/internal/actions"
	"github.com/ladnerlab/autopepsirf/internal/errors"
	"github.com/ladnerlab/autopepsirf/internal/source"
)

// writePairsFile renders the source table in the grouping format pepsirf
// enrich reads with -s.
func writePairsFile(path string, tbl *source.Table) error {
	if tbl == nil {
		return errors.NewConfigError("source", "enrich needs a source table")
	}
	f, err := createFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := tbl.WritePairs(f); err != nil {
		return errors.NewIOError("write", path, err)
	}
	return nil
}

// writeThreshFile writes a threshold file pairing the z score and col-sum
// matrices with their exact thresholds. Matrix paths are absolute, since
// pepsirf reads them from inside the scipipe task directory.
func writeThreshFile(path string, p actions.EnrichParams) error {
	rows, err := threshRows(p)
	if err != nil {
		return err
	}
	f, err := createFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = '\t'
	if err := w.WriteAll(rows); err != nil {
		return errors.NewIOError("write", path, err)
	}
	return nil
}

func threshRows(p actions.EnrichParams) ([][]string, error) {
	if p.ExactZThresh == "" {
		return nil, errors.NewConfigError("exact_z_thresh", "either a threshold file or exact z thresholds are required")
	}
	zPath, err := filepath.Abs(p.Zscores.Path)
	if err != nil {
		return nil, errors.NewIOError("resolve", p.Zscores.Path, err)
	}
	rows := [][]string{{zPath, p.ExactZThresh}}

	if p.ExactCSThresh != "" {
		csPath, err := filepath.Abs(p.ColSum.Path)
		if err != nil {
			return nil, errors.NewIOError("resolve", p.ColSum.Path, err)
		}
		rows = append(rows, []string{csPath, p.ExactCSThresh})
	}
	return rows, nil
}

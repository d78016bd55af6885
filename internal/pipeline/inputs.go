package pipeline

import (
	"github.com/spf13/afero"

	"github.com/ladnerlab/autopepsirf/internal/artifact"
	"github.com/ladnerlab/autopepsirf/internal/errors"
	"github.com/ladnerlab/autopepsirf/internal/source"
)

// Inputs are the artifacts the diff-enrichment sequence starts from.
type Inputs struct {
	RawData *artifact.Artifact
	Bins    *artifact.Artifact
	// Optional.
	NegativeControl   *artifact.Artifact
	ThreshFile        *artifact.Artifact
	UserDefinedSource *source.Table
}

func (in Inputs) validate() error {
	if in.RawData == nil {
		return errors.NewConfigError("raw_data", "raw data is required")
	}
	if in.Bins == nil {
		return errors.NewConfigError("bins", "peptide bins are required")
	}
	return nil
}

// TSVInputs are Inputs given as file paths. Empty optional paths stay
// unset.
type TSVInputs struct {
	RawData           string
	Bins              string
	NegativeControl   string
	ThreshFile        string
	UserDefinedSource string
}

// Import wraps every path as a typed artifact. The user-defined source
// table, when given, is parsed.
func (t TSVInputs) Import(fs afero.Fs) (Inputs, error) {
	var (
		in  Inputs
		err error
	)
	if t.RawData == "" {
		return in, errors.NewConfigError("raw_data", "raw data path is required")
	}
	if t.Bins == "" {
		return in, errors.NewConfigError("bins", "peptide bins path is required")
	}
	if in.RawData, err = artifact.Import(fs, artifact.RawCounts, t.RawData); err != nil {
		return in, err
	}
	if in.Bins, err = artifact.Import(fs, artifact.PeptideBins, t.Bins); err != nil {
		return in, err
	}
	if in.NegativeControl, err = artifact.ImportOptional(fs, artifact.Normed, t.NegativeControl); err != nil {
		return in, err
	}
	if in.ThreshFile, err = artifact.ImportOptional(fs, artifact.EnrichThresh, t.ThreshFile); err != nil {
		return in, err
	}
	if t.UserDefinedSource != "" {
		if in.UserDefinedSource, err = loadSourceTable(fs, t.UserDefinedSource); err != nil {
			return in, err
		}
	}
	return in, nil
}

func loadSourceTable(fs afero.Fs, path string) (*source.Table, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, errors.NewIOError("open", path, err)
	}
	defer f.Close()

	tbl, err := source.LoadTable(f)
	if err != nil {
		return nil, errors.NewIOError("read source table", path, err)
	}
	return tbl, nil
}

// DeconvInputs adds the deconvolution inputs to Inputs.
type DeconvInputs struct {
	Inputs
	Linked *artifact.Artifact
	// Optional.
	IDNameMap *artifact.Artifact
	// Enriched overrides the enrichment directory deconvolution consumes.
	// By default it is the one produced earlier in the same run.
	Enriched *artifact.Artifact
}

func (in DeconvInputs) validate() error {
	if err := in.Inputs.validate(); err != nil {
		return err
	}
	if in.Linked == nil {
		return errors.NewConfigError("linked", "a linkage map is required for deconvolution")
	}
	return nil
}

// DeconvTSVInputs are DeconvInputs given as file paths.
type DeconvTSVInputs struct {
	TSVInputs
	Linked    string
	IDNameMap string
	Enriched  string
}

// Import wraps every path as a typed artifact.
func (t DeconvTSVInputs) Import(fs afero.Fs) (DeconvInputs, error) {
	var (
		in  DeconvInputs
		err error
	)
	if in.Inputs, err = t.TSVInputs.Import(fs); err != nil {
		return in, err
	}
	if t.Linked == "" {
		return in, errors.NewConfigError("linked", "linkage map path is required")
	}
	if in.Linked, err = artifact.Import(fs, artifact.Link, t.Linked); err != nil {
		return in, err
	}
	if in.IDNameMap, err = artifact.ImportOptional(fs, artifact.DMP, t.IDNameMap); err != nil {
		return in, err
	}
	if in.Enriched, err = artifact.ImportOptional(fs, artifact.PeptideIDList, t.Enriched); err != nil {
		return in, err
	}
	return in, nil
}

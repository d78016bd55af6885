package pipeline

import (
	"strconv"
	"strings"

	"github.com/ladnerlab/autopepsirf/internal/errors"
	"github.com/ladnerlab/autopepsirf/internal/source"
)

// Default parameter values shared by all entry points.
const (
	DefaultExactCSThresh   = "20"
	DefaultStepZThresh     = 5
	DefaultUpperZThresh    = 30
	DefaultLowerZThresh    = 5
	DefaultRawConstraint   = 300000
	DefaultHDI             = 0.95
	DefaultTSVDir          = "./"
	DefaultPrecision       = 2
	DefaultScoringStrategy = "summation"
)

// Scoring strategies accepted by deconvolution.
var ScoringStrategies = []string{"summation", "integer", "fraction"}

// Params holds the parameters of the diff-enrichment sequence.
type Params struct {
	// Source selects the source policy. UserDefined is set by the
	// sequencer when Inputs.UserDefinedSource is present.
	Source source.Flags

	// NegativeID and NegativeNames identify negative controls. The third
	// way, a control matrix, is an input.
	NegativeID    string
	NegativeNames []string
	// DefaultNegativeControls opts in to treating all samples as negative
	// controls when none were identified.
	DefaultNegativeControls bool

	ExactZThresh       string
	ExactCSThresh      string
	ExactZenrichThresh string
	StepZThresh        int
	UpperZThresh       int
	LowerZThresh       int
	RawConstraint      int
	LowRawReads        bool
	FailureReasons     bool
	HDI                float64
	Precision          int

	// TSVDir enables snapshots. TSVBase prefixes every snapshot name.
	TSVDir  string
	TSVBase string
}

// DefaultParams returns Params with the documented defaults. No source
// policy is selected.
func DefaultParams() Params {
	return Params{
		ExactCSThresh:  DefaultExactCSThresh,
		StepZThresh:    DefaultStepZThresh,
		UpperZThresh:   DefaultUpperZThresh,
		LowerZThresh:   DefaultLowerZThresh,
		RawConstraint:  DefaultRawConstraint,
		FailureReasons: true,
		HDI:            DefaultHDI,
		Precision:      DefaultPrecision,
		TSVDir:         DefaultTSVDir,
	}
}

// Validate checks the parameters that do not depend on inputs.
func (p Params) Validate() error {
	if p.HDI < 0 || p.HDI > 1 {
		return errors.NewConfigError("hdi", "must be within [0, 1], got %v", p.HDI)
	}
	if p.TSVBase != "" && p.TSVDir == "" {
		return errors.NewConfigError("tsv_base_str", "a base name needs an output directory")
	}
	if p.RawConstraint < 0 {
		return errors.NewConfigError("raw_constraint", "must not be negative, got %d", p.RawConstraint)
	}
	if p.Precision < 0 {
		return errors.NewConfigError("precision", "must not be negative, got %d", p.Precision)
	}
	for param, v := range map[string]string{
		"exact_z_thresh":       p.ExactZThresh,
		"exact_cs_thresh":      p.ExactCSThresh,
		"exact_zenrich_thresh": p.ExactZenrichThresh,
	} {
		if err := checkThresh(param, v); err != nil {
			return err
		}
	}
	return nil
}

// runsZenrich reports whether the zenrich plot has anything to draw.
func (p Params) runsZenrich() bool {
	if p.ExactZenrichThresh != "" {
		return true
	}
	return p.StepZThresh > 0 && p.LowerZThresh <= p.UpperZThresh
}

// checkThresh accepts an empty value or one or two comma-separated numbers.
func checkThresh(param, v string) error {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	if len(parts) > 2 {
		return errors.NewConfigError(param, "expected one or two comma-separated values, got %q", v)
	}
	for _, part := range parts {
		if _, err := strconv.ParseFloat(strings.TrimSpace(part), 64); err != nil {
			return errors.NewConfigError(param, "%q is not a number", part)
		}
	}
	return nil
}

// DeconvParams holds the parameters of the trailing deconvolution stage.
type DeconvParams struct {
	Threshold             int
	ScoringStrategy       string
	ScoreFiltering        bool
	ScoreTieThreshold     float64
	ScoreOverlapThreshold float64
	SingleThreaded        bool
	// RemoveFileTypes drops the file type suffixes pepsirf appends to
	// per-sample outputs.
	RemoveFileTypes bool
}

// DefaultDeconvParams returns DeconvParams with the documented defaults.
func DefaultDeconvParams() DeconvParams {
	return DeconvParams{ScoringStrategy: DefaultScoringStrategy}
}

// Validate checks the deconvolution parameters.
func (p DeconvParams) Validate() error {
	if p.Threshold < 0 {
		return errors.NewConfigError("threshold", "must not be negative, got %d", p.Threshold)
	}
	known := false
	for _, s := range ScoringStrategies {
		if p.ScoringStrategy == s {
			known = true
		}
	}
	if !known {
		return errors.NewConfigError("scoring_strategy", "unknown strategy %q, want one of %s",
			p.ScoringStrategy, strings.Join(ScoringStrategies, ", "))
	}
	if p.ScoreTieThreshold < 0 {
		return errors.NewConfigError("score_tie_threshold", "must not be negative")
	}
	if p.ScoreOverlapThreshold < 0 {
		return errors.NewConfigError("score_overlap_threshold", "must not be negative")
	}
	return nil
}

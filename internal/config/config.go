package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/ladnerlab/autopepsirf/internal/pepsirf"
	"github.com/ladnerlab/autopepsirf/internal/pipeline"
	"github.com/ladnerlab/autopepsirf/internal/psplot"
	"github.com/ladnerlab/autopepsirf/internal/source"
)

// Config represents the complete autopepsirf configuration
type Config struct {
	Pepsirf    ToolConfig      `mapstructure:"pepsirf"`
	Plot       ToolConfig      `mapstructure:"plot"`
	Source     SourceConfig    `mapstructure:"source"`
	Negative   NegativeConfig  `mapstructure:"negative"`
	Thresholds ThresholdConfig `mapstructure:"thresholds"`
	Deconv     DeconvConfig    `mapstructure:"deconv"`
	Output     OutputConfig    `mapstructure:"output"`
	Workflow   WorkflowConfig  `mapstructure:"workflow"`
	Logging    LoggingConfig   `mapstructure:"logging"`
}

// ToolConfig locates an external binary
type ToolConfig struct {
	// Binary is the executable name or path
	Binary string `mapstructure:"binary"`
}

// SourceConfig selects how the source table is built
type SourceConfig struct {
	// InferPairs keeps replicate groups of two or more samples
	InferPairs bool `mapstructure:"infer_pairs"`
	// FlexibleReps keeps every sample with its group key
	FlexibleReps bool `mapstructure:"flexible_reps"`
	// SelfAsSource makes every sample its own source
	SelfAsSource bool `mapstructure:"self_as_source"`
	// UserDefined is the path of a sampleID/source table that replaces
	// derivation
	UserDefined string `mapstructure:"user_defined"`
}

// Flags returns the policy flags. With nothing selected, infer_pairs is
// assumed.
func (c SourceConfig) Flags() source.Flags {
	f := source.Flags{
		InferPairs:   c.InferPairs,
		FlexibleReps: c.FlexibleReps,
		SelfAsSource: c.SelfAsSource,
	}
	if !f.Any() && c.UserDefined == "" {
		f.InferPairs = true
	}
	return f
}

// NegativeConfig identifies negative controls
type NegativeConfig struct {
	// Control is the path of a negative-control score matrix
	Control string `mapstructure:"control"`
	// ID is the sample name prefix shared by negative controls
	ID string `mapstructure:"id"`
	// Names lists negative control samples explicitly
	Names []string `mapstructure:"names"`
	// DefaultAll treats every sample as a negative control when none of the
	// above is given (default: false)
	DefaultAll bool `mapstructure:"default_all"`
}

// ThresholdConfig holds the enrichment and z score parameters
type ThresholdConfig struct {
	// File is the path of a pepsirf enrich threshold file
	File string `mapstructure:"file"`
	// ExactZ is one or two comma-separated z score thresholds
	ExactZ string `mapstructure:"exact_z"`
	// ExactCS is one or two comma-separated col-sum thresholds (default: "20")
	ExactCS string `mapstructure:"exact_cs"`
	// ExactZenrich fixes the zenrich plot thresholds instead of sweeping
	ExactZenrich string `mapstructure:"exact_zenrich"`
	// StepZ, UpperZ and LowerZ define the zenrich sweep (default: 5, 30, 5)
	StepZ  int `mapstructure:"step_z"`
	UpperZ int `mapstructure:"upper_z"`
	LowerZ int `mapstructure:"lower_z"`
	// RawConstraint is the minimum raw read count per sample (default: 300000)
	RawConstraint int `mapstructure:"raw_constraint"`
	// LowRawReads keeps samples below RawConstraint
	LowRawReads bool `mapstructure:"low_raw_reads"`
	// FailureReasons writes the reasons samples failed enrichment to the log dir
	FailureReasons bool `mapstructure:"failure_reasons"`
	// HDI is the highest density interval fraction (default: 0.95)
	HDI float64 `mapstructure:"hdi"`
	// Precision is the number of decimals pepsirf norm writes (default: 2)
	Precision int `mapstructure:"precision"`
}

// DeconvConfig holds the deconvolution inputs and parameters
type DeconvConfig struct {
	// Linked is the path of the peptide to species linkage map
	Linked string `mapstructure:"linked"`
	// IDNameMap is the path of an optional taxonomic id to name map
	IDNameMap string `mapstructure:"id_name_map"`
	// Enriched overrides the enrichment directory to deconvolve
	Enriched string `mapstructure:"enriched"`
	// Threshold is the minimum score a species needs to be reported
	Threshold int `mapstructure:"threshold"`
	// ScoringStrategy is "summation", "integer" or "fraction" (default: "summation")
	ScoringStrategy       string  `mapstructure:"scoring_strategy"`
	ScoreFiltering        bool    `mapstructure:"score_filtering"`
	ScoreTieThreshold     float64 `mapstructure:"score_tie_threshold"`
	ScoreOverlapThreshold float64 `mapstructure:"score_overlap_threshold"`
	SingleThreaded        bool    `mapstructure:"single_threaded"`
	RemoveFileTypes       bool    `mapstructure:"remove_file_types"`
}

// OutputConfig controls snapshots and the run manifest
type OutputConfig struct {
	// TSVDir receives the TSV snapshots, empty disables them (default: "./")
	TSVDir string `mapstructure:"tsv_dir"`
	// TSVBase prefixes snapshot names (default: "aps-output" when tsv_dir is set)
	TSVBase string `mapstructure:"tsv_base"`
	// Manifest is where the run manifest is written, "-" for stdout
	// (default: manifest.yaml in the run's work directory)
	Manifest string `mapstructure:"manifest"`
}

// WorkflowConfig controls how stages are executed
type WorkflowConfig struct {
	// WorkDir holds one sub-directory of stage outputs per run (default: ".autopepsirf")
	WorkDir string `mapstructure:"work_dir"`
	// PlotGraphs writes a .dot graph of every stage workflow
	PlotGraphs bool `mapstructure:"plot_graphs"`
}

// LoggingConfig controls logging
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn or error (default: "info")
	Level string `mapstructure:"level"`
	// Verbose forces debug logging and un-silences scipipe
	Verbose bool `mapstructure:"verbose"`
}

// Default returns the default configuration
func Default() *Config {
	p := pipeline.DefaultParams()
	return &Config{
		Pepsirf: ToolConfig{Binary: pepsirf.DefaultBinary},
		Plot:    ToolConfig{Binary: psplot.DefaultBinary},
		Thresholds: ThresholdConfig{
			ExactCS:        p.ExactCSThresh,
			StepZ:          p.StepZThresh,
			UpperZ:         p.UpperZThresh,
			LowerZ:         p.LowerZThresh,
			RawConstraint:  p.RawConstraint,
			HDI:            p.HDI,
			Precision:      p.Precision,
			FailureReasons: p.FailureReasons,
		},
		Deconv: DeconvConfig{
			ScoringStrategy: pipeline.DefaultScoringStrategy,
		},
		Output: OutputConfig{
			TSVDir: p.TSVDir,
		},
		Workflow: WorkflowConfig{
			WorkDir: ".autopepsirf",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("pepsirf.binary", defaults.Pepsirf.Binary)
	viper.SetDefault("plot.binary", defaults.Plot.Binary)

	viper.SetDefault("source.infer_pairs", defaults.Source.InferPairs)
	viper.SetDefault("source.flexible_reps", defaults.Source.FlexibleReps)
	viper.SetDefault("source.self_as_source", defaults.Source.SelfAsSource)
	viper.SetDefault("source.user_defined", defaults.Source.UserDefined)

	viper.SetDefault("negative.control", defaults.Negative.Control)
	viper.SetDefault("negative.id", defaults.Negative.ID)
	viper.SetDefault("negative.names", defaults.Negative.Names)
	viper.SetDefault("negative.default_all", defaults.Negative.DefaultAll)

	viper.SetDefault("thresholds.file", defaults.Thresholds.File)
	viper.SetDefault("thresholds.exact_z", defaults.Thresholds.ExactZ)
	viper.SetDefault("thresholds.exact_cs", defaults.Thresholds.ExactCS)
	viper.SetDefault("thresholds.exact_zenrich", defaults.Thresholds.ExactZenrich)
	viper.SetDefault("thresholds.step_z", defaults.Thresholds.StepZ)
	viper.SetDefault("thresholds.upper_z", defaults.Thresholds.UpperZ)
	viper.SetDefault("thresholds.lower_z", defaults.Thresholds.LowerZ)
	viper.SetDefault("thresholds.raw_constraint", defaults.Thresholds.RawConstraint)
	viper.SetDefault("thresholds.low_raw_reads", defaults.Thresholds.LowRawReads)
	viper.SetDefault("thresholds.failure_reasons", defaults.Thresholds.FailureReasons)
	viper.SetDefault("thresholds.hdi", defaults.Thresholds.HDI)
	viper.SetDefault("thresholds.precision", defaults.Thresholds.Precision)

	viper.SetDefault("deconv.linked", defaults.Deconv.Linked)
	viper.SetDefault("deconv.id_name_map", defaults.Deconv.IDNameMap)
	viper.SetDefault("deconv.enriched", defaults.Deconv.Enriched)
	viper.SetDefault("deconv.threshold", defaults.Deconv.Threshold)
	viper.SetDefault("deconv.scoring_strategy", defaults.Deconv.ScoringStrategy)
	viper.SetDefault("deconv.score_filtering", defaults.Deconv.ScoreFiltering)
	viper.SetDefault("deconv.score_tie_threshold", defaults.Deconv.ScoreTieThreshold)
	viper.SetDefault("deconv.score_overlap_threshold", defaults.Deconv.ScoreOverlapThreshold)
	viper.SetDefault("deconv.single_threaded", defaults.Deconv.SingleThreaded)
	viper.SetDefault("deconv.remove_file_types", defaults.Deconv.RemoveFileTypes)

	viper.SetDefault("output.tsv_dir", defaults.Output.TSVDir)
	viper.SetDefault("output.tsv_base", defaults.Output.TSVBase)
	viper.SetDefault("output.manifest", defaults.Output.Manifest)

	viper.SetDefault("workflow.work_dir", defaults.Workflow.WorkDir)
	viper.SetDefault("workflow.plot_graphs", defaults.Workflow.PlotGraphs)

	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.verbose", defaults.Logging.Verbose)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Params converts the configuration into pipeline parameters
func (c *Config) Params() pipeline.Params {
	return pipeline.Params{
		Source:                  c.Source.Flags(),
		NegativeID:              c.Negative.ID,
		NegativeNames:           c.Negative.Names,
		DefaultNegativeControls: c.Negative.DefaultAll,
		ExactZThresh:            c.Thresholds.ExactZ,
		ExactCSThresh:           c.Thresholds.ExactCS,
		ExactZenrichThresh:      c.Thresholds.ExactZenrich,
		StepZThresh:             c.Thresholds.StepZ,
		UpperZThresh:            c.Thresholds.UpperZ,
		LowerZThresh:            c.Thresholds.LowerZ,
		RawConstraint:           c.Thresholds.RawConstraint,
		LowRawReads:             c.Thresholds.LowRawReads,
		FailureReasons:          c.Thresholds.FailureReasons,
		HDI:                     c.Thresholds.HDI,
		Precision:               c.Thresholds.Precision,
		TSVDir:                  c.Output.TSVDir,
		TSVBase:                 c.Output.TSVBase,
	}
}

// DeconvParams converts the deconvolution section into pipeline parameters
func (c *Config) DeconvParams() pipeline.DeconvParams {
	return pipeline.DeconvParams{
		Threshold:             c.Deconv.Threshold,
		ScoringStrategy:       c.Deconv.ScoringStrategy,
		ScoreFiltering:        c.Deconv.ScoreFiltering,
		ScoreTieThreshold:     c.Deconv.ScoreTieThreshold,
		ScoreOverlapThreshold: c.Deconv.ScoreOverlapThreshold,
		SingleThreaded:        c.Deconv.SingleThreaded,
		RemoveFileTypes:       c.Deconv.RemoveFileTypes,
	}
}

// TSVInputs returns the optional input paths of the configuration merged
// with the required raw data and bins paths
func (c *Config) TSVInputs(rawData, bins string) pipeline.TSVInputs {
	return pipeline.TSVInputs{
		RawData:           rawData,
		Bins:              bins,
		NegativeControl:   c.Negative.Control,
		ThreshFile:        c.Thresholds.File,
		UserDefinedSource: c.Source.UserDefined,
	}
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "autopepsirf")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".autopepsirf"
	}
	return filepath.Join(home, ".config", "autopepsirf")
}

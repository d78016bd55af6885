// Package cmd implements the autopepsirf command line.
package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ladnerlab/autopepsirf/internal/config"
	"github.com/ladnerlab/autopepsirf/internal/logging"
)

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}

type rootOptions struct {
	configFile string
	logger     *zap.Logger
}

// NewRootCmd returns the autopepsirf command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{logger: zap.NewNop()}

	rootCmd := &cobra.Command{
		Use:   "autopepsirf",
		Short: "Run the PepSIRF differential enrichment pipelines",
		Long: `autopepsirf sequences pepsirf and ps-plot into the diff-enrichment
pipeline: normalization, z scores, sample info, source table derivation,
enrichment calling and the accompanying plots, optionally followed by
species deconvolution.

Configuration is read from --config, ./autopepsirf.yaml or
$XDG_CONFIG_HOME/autopepsirf/autopepsirf.yaml, and AUTOPEPSIRF_* environment
variables (e.g. AUTOPEPSIRF_THRESHOLDS_HDI for thresholds.hdi).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(opts.configFile); err != nil {
				return err
			}
			if err := bindFlags(cmd); err != nil {
				return err
			}
			logger, err := logging.New(viper.GetString("logging.level"), viper.GetBool("logging.verbose"))
			if err != nil {
				return err
			}
			opts.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = opts.logger.Sync()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&opts.configFile, "config", "c", "", "config file (default is ./autopepsirf.yaml)")
	pf.BoolP("verbose", "v", false, "debug logging and scipipe output")
	pf.String("log-level", "info", "log level: debug, info, warn or error")
	pf.String("work-dir", ".autopepsirf", "directory holding one sub-directory of stage outputs per run")
	pf.Bool("plot-graphs", false, "write a .dot graph of every stage workflow")

	rootCmd.AddCommand(
		newDiffEnrichCmd(opts),
		newDiffEnrichDeconvCmd(opts),
		newDeriveSourceCmd(opts),
		newConfigCmd(),
	)
	return rootCmd
}

func initConfig(configFile string) error {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("autopepsirf")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath(config.ConfigDir())
	}

	viper.SetEnvPrefix("AUTOPEPSIRF")
	// e.g., AUTOPEPSIRF_OUTPUT_TSV_DIR for output.tsv_dir
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
	}
	return nil
}

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"verbose":     "logging.verbose",
	"log-level":   "logging.level",
	"work-dir":    "workflow.work_dir",
	"plot-graphs": "workflow.plot_graphs",

	"pepsirf-binary": "pepsirf.binary",
	"plot-binary":    "plot.binary",

	"infer-pairs":         "source.infer_pairs",
	"flexible-reps":       "source.flexible_reps",
	"self-as-source":      "source.self_as_source",
	"user-defined-source": "source.user_defined",

	"negative-control":          "negative.control",
	"negative-id":               "negative.id",
	"negative-names":            "negative.names",
	"default-negative-controls": "negative.default_all",

	"thresh-file":          "thresholds.file",
	"exact-z-thresh":       "thresholds.exact_z",
	"exact-cs-thresh":      "thresholds.exact_cs",
	"exact-zenrich-thresh": "thresholds.exact_zenrich",
	"step-z-thresh":        "thresholds.step_z",
	"upper-z-thresh":       "thresholds.upper_z",
	"lower-z-thresh":       "thresholds.lower_z",
	"raw-constraint":       "thresholds.raw_constraint",
	"low-raw-reads":        "thresholds.low_raw_reads",
	"failure-reasons":      "thresholds.failure_reasons",
	"hdi":                  "thresholds.hdi",
	"precision":            "thresholds.precision",

	"linked":                  "deconv.linked",
	"id-name-map":             "deconv.id_name_map",
	"enriched":                "deconv.enriched",
	"threshold":               "deconv.threshold",
	"scoring-strategy":        "deconv.scoring_strategy",
	"score-filtering":         "deconv.score_filtering",
	"score-tie-threshold":     "deconv.score_tie_threshold",
	"score-overlap-threshold": "deconv.score_overlap_threshold",
	"single-threaded":         "deconv.single_threaded",
	"remove-file-types":       "deconv.remove_file_types",

	"tsv-dir":  "output.tsv_dir",
	"tsv-base": "output.tsv_base",
	"manifest": "output.manifest",
}

// bindFlags binds the flags of the command being run to their keys. Flags
// are bound per invocation since several commands share keys.
func bindFlags(cmd *cobra.Command) error {
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := viper.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}
	return nil
}

package cmd

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ladnerlab/autopepsirf/internal/config"
	"github.com/ladnerlab/autopepsirf/internal/pepsirf"
	"github.com/ladnerlab/autopepsirf/internal/pipeline"
	"github.com/ladnerlab/autopepsirf/internal/psplot"
	"github.com/ladnerlab/autopepsirf/internal/workflow"
)

type pipelineOptions struct {
	*rootOptions
	rawData string
	bins    string
}

func newDiffEnrichCmd(root *rootOptions) *cobra.Command {
	opts := &pipelineOptions{rootOptions: root}
	cmd := &cobra.Command{
		Use:   "diff-enrich",
		Short: "Normalize, score, call enriched peptides and plot the results",
		Long: `Runs the diff-enrichment pipeline on a raw count matrix:

  norm col_sum, norm diff, norm diff_ratio, zscore, info (sample names),
  info (read counts), read count boxplot, source table derivation, enrich,
  enrichment boxplot, replicate scatters (z score, col-sum) and zenrich.

Intermediate results are copied to --tsv-dir when it is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd.OutOrStdout(), false)
		},
	}
	addInputFlags(cmd, opts)
	addPipelineFlags(cmd)
	return cmd
}

func newDiffEnrichDeconvCmd(root *rootOptions) *cobra.Command {
	opts := &pipelineOptions{rootOptions: root}
	cmd := &cobra.Command{
		Use:   "diff-enrich-deconv",
		Short: "Run diff-enrich followed by species deconvolution",
		Long: `Runs the diff-enrichment pipeline, then pepsirf deconv in batch mode on
the enriched peptides (or on --enriched when given) using the --linked
peptide to species map.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd.OutOrStdout(), true)
		},
	}
	addInputFlags(cmd, opts)
	addPipelineFlags(cmd)
	addDeconvFlags(cmd)
	return cmd
}

func addInputFlags(cmd *cobra.Command, opts *pipelineOptions) {
	cmd.Flags().StringVar(&opts.rawData, "raw-data", "", "raw count matrix (TSV)")
	cmd.Flags().StringVar(&opts.bins, "bins", "", "peptide bins file")
	_ = cmd.MarkFlagRequired("raw-data")
	_ = cmd.MarkFlagRequired("bins")
}

func addPipelineFlags(cmd *cobra.Command) {
	defaults := config.Default()
	f := cmd.Flags()

	f.String("pepsirf-binary", defaults.Pepsirf.Binary, "pepsirf executable")
	f.String("plot-binary", defaults.Plot.Binary, "ps-plot executable")

	f.Bool("infer-pairs", false, "pair replicates sharing a name prefix, dropping singletons (default policy)")
	f.Bool("flexible-reps", false, "group replicates sharing a name prefix, keeping any group size")
	f.Bool("self-as-source", false, "make every sample its own source")
	f.String("user-defined-source", "", "sampleID/source table to use instead of deriving one")

	f.String("negative-control", "", "negative control score matrix")
	f.String("negative-id", "", "sample name prefix of negative controls")
	f.StringSlice("negative-names", nil, "negative control sample names")
	f.Bool("default-negative-controls", false, "treat all samples as negative controls when none are given")

	f.String("thresh-file", "", "pepsirf enrich threshold file")
	f.String("exact-z-thresh", "", "one or two comma-separated z score thresholds")
	f.String("exact-cs-thresh", defaults.Thresholds.ExactCS, "one or two comma-separated col-sum thresholds")
	f.String("exact-zenrich-thresh", "", "fixed zenrich thresholds instead of a sweep")
	f.Int("step-z-thresh", defaults.Thresholds.StepZ, "zenrich sweep step")
	f.Int("upper-z-thresh", defaults.Thresholds.UpperZ, "zenrich sweep upper bound")
	f.Int("lower-z-thresh", defaults.Thresholds.LowerZ, "zenrich sweep lower bound")
	f.Int("raw-constraint", defaults.Thresholds.RawConstraint, "minimum raw read count per sample")
	f.Bool("low-raw-reads", false, "keep samples below the raw read constraint")
	f.Bool("failure-reasons", defaults.Thresholds.FailureReasons, "write enrichment failure reasons to the log directory")
	f.Float64("hdi", defaults.Thresholds.HDI, "highest density interval for z scores")
	f.Int("precision", defaults.Thresholds.Precision, "decimals written by pepsirf norm")

	f.String("tsv-dir", defaults.Output.TSVDir, "directory receiving TSV snapshots, empty to disable")
	f.String("tsv-base", "", `file name base of TSV snapshots (default "aps-output")`)
	f.String("manifest", "", `run manifest path, "-" for stdout (default <work-dir>/<run>/manifest.yaml)`)
}

func addDeconvFlags(cmd *cobra.Command) {
	defaults := config.Default()
	f := cmd.Flags()

	f.String("linked", "", "peptide to species linkage map")
	f.String("id-name-map", "", "taxonomic id to name map")
	f.String("enriched", "", "enriched peptide directory to deconvolve instead of this run's")
	f.Int("threshold", 0, "minimum score for a species to be reported")
	f.String("scoring-strategy", defaults.Deconv.ScoringStrategy, "summation, integer or fraction")
	f.Bool("score-filtering", false, "filter species by score instead of peptide count")
	f.Float64("score-tie-threshold", 0, "score tie threshold")
	f.Float64("score-overlap-threshold", 0, "score overlap threshold")
	f.Bool("single-threaded", false, "run deconvolution on one thread")
	f.Bool("remove-file-types", false, "drop file type suffixes from deconvolution outputs")
}

// manifester is implemented by pipeline results.
type manifester interface {
	Manifest() ([]byte, error)
}

func (o *pipelineOptions) run(stdout io.Writer, deconv bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	id := uuid.NewString()
	workDir, err := filepath.Abs(filepath.Join(cfg.Workflow.WorkDir, id))
	if err != nil {
		return err
	}
	log := o.logger.With(zap.String("run", id))

	exec, err := workflow.NewExecutor(workflow.ExecutorConf{
		WorkDir:    workDir,
		Quiet:      !cfg.Logging.Verbose,
		PlotGraphs: cfg.Workflow.PlotGraphs,
	}, log)
	if err != nil {
		return err
	}
	defer exec.Close()

	seq := pipeline.New(
		pepsirf.NewRunner(cfg.Pepsirf.Binary, exec, log),
		psplot.NewPlotter(cfg.Plot.Binary, cfg.Pepsirf.Binary, exec),
		pipeline.WithLogger(log),
		pipeline.WithRunID(id),
	)
	log.Info("Starting pipeline", zap.String("work_dir", workDir), zap.Bool("deconv", deconv))

	in := cfg.TSVInputs(o.rawData, o.bins)
	var res manifester
	if deconv {
		res, err = seq.DiffEnrichDeconvTSV(pipeline.DeconvTSVInputs{
			TSVInputs: in,
			Linked:    cfg.Deconv.Linked,
			IDNameMap: cfg.Deconv.IDNameMap,
			Enriched:  cfg.Deconv.Enriched,
		}, cfg.Params(), cfg.DeconvParams())
	} else {
		res, err = seq.DiffEnrichTSV(in, cfg.Params())
	}
	if err != nil {
		return err
	}

	manifest := cfg.Output.Manifest
	if manifest == "" {
		manifest = filepath.Join(workDir, "manifest.yaml")
	}
	return writeManifest(afero.NewOsFs(), stdout, manifest, res, log)
}

func writeManifest(fs afero.Fs, stdout io.Writer, path string, res manifester, log *zap.Logger) error {
	data, err := res.Manifest()
	if err != nil {
		return fmt.Errorf("rendering manifest: %w", err)
	}
	if path == "-" {
		_, err = stdout.Write(data)
		return err
	}
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	log.Info("Wrote manifest", zap.String("path", path))
	return nil
}

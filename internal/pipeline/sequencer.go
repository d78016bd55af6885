// Package pipeline sequences the pepsirf and plotting actions of the
// autopepsirf workflows.
//
// Four entry points are provided. DiffEnrich runs normalization, z scores,
// sample info, source derivation, enrichment and the plots in a fixed
// order. DiffEnrichDeconv appends batch deconvolution. The TSV variants
// import plain file paths first. Each stage blocks until done and the first
// failure aborts the run.
package pipeline

import (
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/ladnerlab/autopepsirf/internal/actions"
	"github.com/ladnerlab/autopepsirf/internal/artifact"
	"github.com/ladnerlab/autopepsirf/internal/errors"
	"github.com/ladnerlab/autopepsirf/internal/snapshot"
	"github.com/ladnerlab/autopepsirf/internal/source"
)

// Snapshot keys that are not artifact outputs.
const (
	sourceOutput = "source"
)

// Sequencer runs the pipelines against injected delegates.
type Sequencer struct {
	pepsirf actions.Pepsirf
	plotter actions.Plotter
	fs      afero.Fs
	log     *zap.Logger
	runID   string
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(s *Sequencer) { s.log = log }
}

// WithFs sets the filesystem used for snapshots, imports and sample-name
// files. The default is the OS filesystem.
func WithFs(fs afero.Fs) Option {
	return func(s *Sequencer) { s.fs = fs }
}

// WithRunID fixes the run ID. By default each run gets a new UUID.
func WithRunID(id string) Option {
	return func(s *Sequencer) { s.runID = id }
}

// New returns a Sequencer calling pepsirf and plotter.
func New(pepsirf actions.Pepsirf, plotter actions.Plotter, opts ...Option) *Sequencer {
	s := &Sequencer{
		pepsirf: pepsirf,
		plotter: plotter,
		fs:      afero.NewOsFs(),
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DiffEnrich runs the diff-enrichment sequence.
func (s *Sequencer) DiffEnrich(in Inputs, p Params) (*Result, error) {
	r, err := s.start(in, p)
	if err != nil {
		return nil, err
	}
	if err := r.diffEnrich(); err != nil {
		return nil, err
	}
	return r.finish(), nil
}

// DiffEnrichTSV imports file paths and runs DiffEnrich.
func (s *Sequencer) DiffEnrichTSV(t TSVInputs, p Params) (*Result, error) {
	in, err := t.Import(s.fs)
	if err != nil {
		return nil, err
	}
	return s.DiffEnrich(in, p)
}

// DiffEnrichDeconv runs the diff-enrichment sequence followed by batch
// deconvolution of the enriched peptides.
func (s *Sequencer) DiffEnrichDeconv(in DeconvInputs, p Params, dp DeconvParams) (*DeconvResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := dp.Validate(); err != nil {
		return nil, err
	}
	r, err := s.start(in.Inputs, p)
	if err != nil {
		return nil, err
	}
	if err := r.diffEnrich(); err != nil {
		return nil, err
	}
	out, err := r.deconv(in, dp)
	if err != nil {
		return nil, err
	}
	return &DeconvResult{
		Result:        *r.finish(),
		Deconv:        out.Dir,
		ScorePerRound: out.ScorePerRound,
		AssignmentMap: out.AssignmentMap,
	}, nil
}

// DiffEnrichDeconvTSV imports file paths and runs DiffEnrichDeconv.
func (s *Sequencer) DiffEnrichDeconvTSV(t DeconvTSVInputs, p Params, dp DeconvParams) (*DeconvResult, error) {
	in, err := t.Import(s.fs)
	if err != nil {
		return nil, err
	}
	return s.DiffEnrichDeconv(in, p, dp)
}

// run is the state of one pipeline invocation.
type run struct {
	*Sequencer
	log    *zap.Logger
	in     Inputs
	p      Params
	policy source.Policy
	snap   *snapshot.Writer
	res    *Result
	neg    actions.NegativeControls
	began  time.Time
}

func (s *Sequencer) start(in Inputs, p Params) (*run, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if in.ThreshFile == nil && p.ExactZThresh == "" {
		return nil, errors.NewConfigError("thresh_file", "enrichment needs a threshold file or an exact z threshold")
	}

	flags := p.Source
	flags.UserDefined = in.UserDefinedSource != nil
	policy, err := flags.Resolve()
	if err != nil {
		return nil, err
	}

	id := s.runID
	if id == "" {
		id = uuid.NewString()
	}
	r := &run{
		Sequencer: s,
		log:       s.log.With(zap.String("run", id)),
		in:        in,
		p:         p,
		policy:    policy,
		snap:      snapshot.NewWriter(s.fs, p.TSVDir, p.TSVBase),
		res:       &Result{RunID: id, Policy: policy, Snapshots: map[string]string{}},
		neg: actions.NegativeControls{
			Data:  in.NegativeControl,
			ID:    p.NegativeID,
			Names: p.NegativeNames,
		},
		began: time.Now(),
	}
	if err := r.snap.Prepare(); err != nil {
		return nil, err
	}
	r.log.Info("Starting run",
		zap.Stringer("source_policy", policy),
		zap.String("raw_data", in.RawData.Path),
		zap.String("tsv_dir", r.snap.Dir()))
	return r, nil
}

func (r *run) finish() *Result {
	r.res.NegativeControls = r.neg.Names
	r.res.Elapsed = time.Since(r.began)
	r.log.Info("Run finished", zap.String("elapsed", fmtDuration(r.res.Elapsed)))
	return r.res
}

// stage runs fn and logs its outcome. Errors pass through unchanged.
func (r *run) stage(name string, fn func() error) error {
	r.log.Info("Running stage", zap.String("stage", name))
	start := time.Now()
	if err := fn(); err != nil {
		r.log.Error("Stage failed", zap.String("stage", name), zap.Error(err))
		return err
	}
	r.log.Debug("Stage done", zap.String("stage", name), zap.Duration("took", time.Since(start)))
	return nil
}

// save snapshots a as name and records it under output.
func (r *run) save(output string, a *artifact.Artifact, name string) error {
	path, err := r.snap.Save(a, name)
	if err != nil {
		return err
	}
	r.recordSnapshot(output, path)
	return nil
}

func (r *run) recordSnapshot(output, path string) {
	if path == "" {
		return
	}
	r.res.Snapshots[output] = path
	r.log.Info("Wrote snapshot", zap.String("output", output), zap.String("path", path))
}

func (r *run) diffEnrich() error {
	var (
		p    = r.p
		res  = r.res
		base = r.snap.Base()
		err  error
	)

	err = r.stage("norm col_sum", func() (err error) {
		res.ColSum, err = r.pepsirf.Norm(actions.NormParams{
			PeptideScores: r.in.RawData,
			Approach:      actions.NormColSum,
			Precision:     p.Precision,
		})
		return err
	})
	if err != nil {
		return err
	}
	if err := r.save("col_sum", res.ColSum, base+snapshot.SuffixColSum); err != nil {
		return err
	}

	if r.neg.Data != nil && r.neg.ID == "" && len(r.neg.Names) == 0 {
		err = r.stage("info negative control names", func() error {
			names, err := r.pepsirf.InfoSNPN(actions.InfoParams{Input: r.neg.Data})
			if err != nil {
				return err
			}
			r.neg.Names, err = r.readNames(names)
			return err
		})
		if err != nil {
			return err
		}
	}

	err = r.stage("norm diff", func() (err error) {
		res.Diff, err = r.pepsirf.Norm(actions.NormParams{
			PeptideScores:    res.ColSum,
			Approach:         actions.NormDiff,
			NegativeControls: r.neg,
			Precision:        p.Precision,
		})
		return err
	})
	if err != nil {
		return err
	}
	if err := r.save("diff", res.Diff, base+snapshot.SuffixDiff); err != nil {
		return err
	}

	err = r.stage("norm diff_ratio", func() (err error) {
		res.DiffRatio, err = r.pepsirf.Norm(actions.NormParams{
			PeptideScores:    res.ColSum,
			Approach:         actions.NormDiffRatio,
			NegativeControls: r.neg,
			Precision:        p.Precision,
		})
		return err
	})
	if err != nil {
		return err
	}
	if err := r.save("diff_ratio", res.DiffRatio, base+snapshot.SuffixDiffRatio); err != nil {
		return err
	}

	err = r.stage("zscore", func() (err error) {
		res.Zscore, res.NaN, err = r.pepsirf.Zscore(actions.ZscoreParams{
			Scores: res.Diff,
			Bins:   r.in.Bins,
			HDI:    p.HDI,
		})
		return err
	})
	if err != nil {
		return err
	}
	if err := r.save("zscore", res.Zscore, snapshot.ZscoreName(base, p.HDI)); err != nil {
		return err
	}
	if err := r.save("nan", res.NaN, snapshot.NaNName(base, p.HDI)); err != nil {
		return err
	}

	err = r.stage("info sample names", func() (err error) {
		res.SampleNames, err = r.pepsirf.InfoSNPN(actions.InfoParams{Input: r.in.RawData})
		return err
	})
	if err != nil {
		return err
	}
	if err := r.save("sample_names", res.SampleNames, base+snapshot.SuffixSampleNames); err != nil {
		return err
	}

	err = r.stage("info read counts", func() (err error) {
		res.ReadCounts, err = r.pepsirf.InfoSumOfProbes(actions.InfoParams{Input: r.in.RawData})
		return err
	})
	if err != nil {
		return err
	}
	if err := r.save("read_counts", res.ReadCounts, base+snapshot.SuffixReadCounts); err != nil {
		return err
	}

	err = r.stage("read counts boxplot", func() (err error) {
		res.RCBoxplot, err = r.plotter.ReadCountsBoxplot(actions.RCBoxplotParams{
			ReadCounts: res.ReadCounts,
			PNGOutDir:  r.snap.Dir(),
		})
		return err
	})
	if err != nil {
		return err
	}

	if err := r.stage("derive source", r.deriveSource); err != nil {
		return err
	}

	err = r.stage("enrich", func() (err error) {
		res.EnrichDir, err = r.pepsirf.Enrich(actions.EnrichParams{
			Source:         res.Source,
			ThreshFile:     r.in.ThreshFile,
			Zscores:        res.Zscore,
			ColSum:         res.ColSum,
			ExactZThresh:   p.ExactZThresh,
			ExactCSThresh:  p.ExactCSThresh,
			RawScores:      r.in.RawData,
			RawConstraint:  p.RawConstraint,
			LowRawReads:    p.LowRawReads,
			FailureReasons: p.FailureReasons,
		})
		return err
	})
	if err != nil {
		return err
	}
	enrichName := snapshot.EnrichName(p.ExactZThresh, p.ExactCSThresh, p.HDI, p.RawConstraint)
	if err := r.save("enrich_dir", res.EnrichDir, enrichName); err != nil {
		return err
	}

	err = r.stage("enrichment boxplot", func() (err error) {
		res.EnrichBoxplot, err = r.plotter.EnrichmentRCBoxplot(actions.EnrichBoxplotParams{
			EnrichedDir: res.EnrichDir,
			PNGOutDir:   r.snap.Dir(),
		})
		return err
	})
	if err != nil {
		return err
	}

	err = r.stage("zscore scatter", func() (err error) {
		res.ZscoreScatter, err = r.plotter.RepScatters(actions.RepScatterParams{
			Source:  res.Source,
			Zscores: res.Zscore,
		})
		return err
	})
	if err != nil {
		return err
	}

	err = r.stage("col_sum scatter", func() (err error) {
		res.ColSumScatter, err = r.plotter.RepScatters(actions.RepScatterParams{
			Source:  res.Source,
			PlotLog: true,
			ColSum:  res.ColSum,
		})
		return err
	})
	if err != nil {
		return err
	}

	if !p.runsZenrich() {
		r.log.Info("Skipping zenrich plot, no exact threshold and an empty z sweep",
			zap.Int("step", p.StepZThresh), zap.Int("lower", p.LowerZThresh), zap.Int("upper", p.UpperZThresh))
		return nil
	}
	return r.stage("zenrich", func() (err error) {
		res.Zenrich, err = r.plotter.Zenrich(actions.ZenrichParams{
			Data:             res.ColSum,
			Zscores:          res.Zscore,
			Source:           res.Source,
			NegativeControls: r.neg,
			StepZThresh:      p.StepZThresh,
			UpperZThresh:     p.UpperZThresh,
			LowerZThresh:     p.LowerZThresh,
			ExactZThresh:     p.ExactZenrichThresh,
			ExactCSThresh:    p.ExactCSThresh,
		})
		return err
	})
}

// deriveSource builds the source table from the sample names, or takes the
// user-defined one, and snapshots it.
func (r *run) deriveSource() error {
	if r.policy == source.UserDefined {
		r.res.Source = r.in.UserDefinedSource
	} else {
		samples, err := r.readNames(r.res.SampleNames)
		if err != nil {
			return err
		}
		d, err := source.Derive(samples, r.policy, source.Options{
			ControlsSupplied:        r.neg.Supplied(),
			DefaultNegativeControls: r.p.DefaultNegativeControls,
		})
		if err != nil {
			return err
		}
		r.res.Source = d.Table
		if d.NegativeControlsDefaulted {
			r.neg.Names = d.NegativeControls
			r.res.NegativeControlsDefaulted = true
			r.log.Warn("No negative controls given, treating all samples as negative controls",
				zap.Int("samples", len(samples)))
		}
	}

	if !r.neg.Supplied() {
		r.log.Warn("No negative controls given, continuing without")
	}
	if r.res.Source.Len() == 0 {
		r.log.Warn("Source table is empty", zap.Stringer("source_policy", r.policy))
	}

	path, err := r.snap.SaveTable(r.res.Source, snapshot.SourceTableName)
	if err != nil {
		return err
	}
	r.recordSnapshot(sourceOutput, path)
	return nil
}

func (r *run) deconv(in DeconvInputs, dp DeconvParams) (*actions.DeconvOutput, error) {
	enriched := in.Enriched
	if enriched == nil {
		enriched = r.res.EnrichDir
	}

	var out *actions.DeconvOutput
	err := r.stage("deconv", func() (err error) {
		out, err = r.pepsirf.Deconv(actions.DeconvParams{
			Enriched:              enriched,
			Threshold:             dp.Threshold,
			Linked:                in.Linked,
			ScoringStrategy:       dp.ScoringStrategy,
			ScoreFiltering:        dp.ScoreFiltering,
			ScoreTieThreshold:     dp.ScoreTieThreshold,
			ScoreOverlapThreshold: dp.ScoreOverlapThreshold,
			IDNameMap:             in.IDNameMap,
			SingleThreaded:        dp.SingleThreaded,
			RemoveFileTypes:       dp.RemoveFileTypes,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := r.save("deconv_dir", out.Dir, r.snap.Base()+snapshot.SuffixDeconv); err != nil {
		return nil, err
	}
	return out, nil
}

// readNames reads a sample-name list written by pepsirf info.
func (r *run) readNames(a *artifact.Artifact) ([]string, error) {
	f, err := r.fs.Open(a.Path)
	if err != nil {
		return nil, errors.NewIOError("open", a.Path, err)
	}
	defer f.Close()

	names, err := source.ReadSampleNames(f)
	if err != nil {
		return nil, errors.NewIOError("read sample names", a.Path, err)
	}
	return names, nil
}

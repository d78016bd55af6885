// Package pepsirf runs the PepSIRF analysis modules (norm, zscore, info,
// enrich, deconv) through scipipe, one workflow per action.
package pepsirf

import (
	"fmt"
	"os"
	"path/filepath"

	sp "github.com/scipipe/scipipe"
	spcomp "github.com/scipipe/scipipe/components"
	"go.uber.org/zap"

	"github.com/ladnerlab/autopepsirf/internal/actions"
	"github.com/ladnerlab/autopepsirf/internal/artifact"
	"github.com/ladnerlab/autopepsirf/internal/errors"
	"github.com/ladnerlab/autopepsirf/internal/workflow"
)

// DefaultBinary is the pepsirf executable looked up on PATH.
const DefaultBinary = "pepsirf"

// Runner implements actions.Pepsirf on top of the pepsirf binary.
type Runner struct {
	binary string
	exec   *workflow.Executor
	log    *zap.Logger
}

var _ actions.Pepsirf = (*Runner)(nil)

// NewRunner returns a Runner calling binary, with stages run by exec.
func NewRunner(binary string, exec *workflow.Executor, log *zap.Logger) *Runner {
	if binary == "" {
		binary = DefaultBinary
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{binary: binary, exec: exec, log: log}
}

var normTypes = map[string]artifact.Type{
	actions.NormColSum:    artifact.Normed,
	actions.NormDiff:      artifact.NormedDifference,
	actions.NormDiffRatio: artifact.NormedDiffRatio,
}

// Norm runs one normalization approach.
func (r *Runner) Norm(p actions.NormParams) (*artifact.Artifact, error) {
	typ, ok := normTypes[p.Approach]
	if !ok {
		return nil, errors.NewConfigError("normalize_approach", "unsupported approach %q", p.Approach)
	}

	stage := r.exec.Stage("norm_" + p.Approach)
	out := r.exec.OutPath(stage, ".tsv")
	neg := p.NegativeControls

	err := r.exec.Run(stage, []string{out}, func(wf *sp.Workflow) {
		scores := spcomp.NewFileSource(wf, stage+"_scores", p.PeptideScores.Path)
		norm := NewNorm(wf, r.exec.Proc(stage), NormConf{
			Binary:              r.binary,
			Approach:            p.Approach,
			Precision:           p.Precision,
			WithNegativeControl: neg.Data != nil,
			NegativeID:          neg.ID,
			NegativeNames:       neg.Names,
			LogFile:             r.exec.LogPath(stage, ".out"),
		})
		norm.InPeptideScores().From(scores.Out())
		if neg.Data != nil {
			negSrc := spcomp.NewFileSource(wf, stage+"_negctrl", neg.Data.Path)
			norm.InNegativeControl().From(negSrc.Out())
		}
		norm.SetOut("normed", out)
	})
	if err != nil {
		return nil, err
	}
	return artifact.New(typ, out), nil
}

// Zscore computes z scores and the accompanying NaN report.
func (r *Runner) Zscore(p actions.ZscoreParams) (*artifact.Artifact, *artifact.Artifact, error) {
	stage := r.exec.Stage("zscore")
	zOut := r.exec.OutPath(stage, ".tsv")
	nanOut := r.exec.OutPath(stage, ".nan")

	err := r.exec.Run(stage, []string{zOut, nanOut}, func(wf *sp.Workflow) {
		scores := spcomp.NewFileSource(wf, stage+"_scores", p.Scores.Path)
		bins := spcomp.NewFileSource(wf, stage+"_bins", p.Bins.Path)
		zscore := NewZscore(wf, r.exec.Proc(stage), ZscoreConf{
			Binary:  r.binary,
			HDI:     p.HDI,
			LogFile: r.exec.LogPath(stage, ".out"),
		})
		zscore.InScores().From(scores.Out())
		zscore.InBins().From(bins.Out())
		zscore.SetOut("zscores", zOut)
		zscore.SetOut("nan", nanOut)
	})
	if err != nil {
		return nil, nil, err
	}
	return artifact.New(artifact.Zscore, zOut), artifact.New(artifact.ZscoreNan, nanOut), nil
}

// InfoSNPN lists the sample names of a matrix.
func (r *Runner) InfoSNPN(p actions.InfoParams) (*artifact.Artifact, error) {
	return r.info(p, InfoSamples, "info_samples", artifact.InfoSNPN)
}

// InfoSumOfProbes reports the per-sample read counts of a matrix.
func (r *Runner) InfoSumOfProbes(p actions.InfoParams) (*artifact.Artifact, error) {
	return r.info(p, InfoColSums, "info_sum_of_probes", artifact.InfoSumOfProbes)
}

func (r *Runner) info(p actions.InfoParams, mode InfoMode, name string, typ artifact.Type) (*artifact.Artifact, error) {
	stage := r.exec.Stage(name)
	out := r.exec.OutPath(stage, ".tsv")

	err := r.exec.Run(stage, []string{out}, func(wf *sp.Workflow) {
		input := spcomp.NewFileSource(wf, stage+"_input", p.Input.Path)
		info := NewInfo(wf, r.exec.Proc(stage), InfoConf{
			Binary:  r.binary,
			Mode:    mode,
			LogFile: r.exec.LogPath(stage, ".out"),
		})
		info.InInput().From(input.Out())
		info.SetOut("info", out)
	})
	if err != nil {
		return nil, err
	}
	return artifact.New(typ, out), nil
}

// Enrich calls enriched peptides for every replicate group of the source
// table. Without a threshold file, one is written from the exact thresholds.
func (r *Runner) Enrich(p actions.EnrichParams) (*artifact.Artifact, error) {
	stage := r.exec.Stage("enrich")
	out := r.exec.OutPath(stage, "")

	pairsPath := r.exec.OutPath(stage, ".pairs.tsv")
	if err := writePairsFile(pairsPath, p.Source); err != nil {
		return nil, err
	}

	threshPath := ""
	if p.ThreshFile != nil {
		threshPath = p.ThreshFile.Path
	} else {
		threshPath = r.exec.OutPath(stage, ".thresh.tsv")
		if err := writeThreshFile(threshPath, p); err != nil {
			return nil, err
		}
		r.log.Debug("Wrote threshold file", zap.String("path", threshPath))
	}

	failureFile := ""
	if p.FailureReasons {
		failureFile = r.exec.LogPath(stage, ".failures.tsv")
	}

	err := r.exec.Run(stage, []string{out}, func(wf *sp.Workflow) {
		thresh := spcomp.NewFileSource(wf, stage+"_thresh", threshPath)
		pairs := spcomp.NewFileSource(wf, stage+"_pairs", pairsPath)
		raw := spcomp.NewFileSource(wf, stage+"_raw", p.RawScores.Path)
		enrich := NewEnrich(wf, r.exec.Proc(stage), EnrichConf{
			Binary:        r.binary,
			RawConstraint: p.RawConstraint,
			LowRawReads:   p.LowRawReads,
			FailureFile:   failureFile,
			LogFile:       r.exec.LogPath(stage, ".out"),
		})
		enrich.InThreshFile().From(thresh.Out())
		enrich.InPairs().From(pairs.Out())
		enrich.InRawScores().From(raw.Out())
		enrich.SetOut("outdir", out)
	})
	if err != nil {
		return nil, err
	}
	return artifact.New(artifact.Enrichment, out), nil
}

// Deconv runs batch deconvolution over an enrichment directory.
func (r *Runner) Deconv(p actions.DeconvParams) (*actions.DeconvOutput, error) {
	stage := r.exec.Stage("deconv")
	out := r.exec.OutPath(stage, "")
	rounds := r.exec.OutPath(stage, "_score_per_round")
	assignments := r.exec.OutPath(stage, "_peptide_assignment_map")

	err := r.exec.Run(stage, []string{out, rounds, assignments}, func(wf *sp.Workflow) {
		enriched := spcomp.NewFileSource(wf, stage+"_enriched", p.Enriched.Path)
		linked := spcomp.NewFileSource(wf, stage+"_linked", p.Linked.Path)
		deconv := NewDeconv(wf, r.exec.Proc(stage), DeconvConf{
			Binary:                r.binary,
			Threshold:             p.Threshold,
			ScoringStrategy:       p.ScoringStrategy,
			ScoreFiltering:        p.ScoreFiltering,
			ScoreTieThreshold:     p.ScoreTieThreshold,
			ScoreOverlapThreshold: p.ScoreOverlapThreshold,
			WithIDNameMap:         p.IDNameMap != nil,
			SingleThreaded:        p.SingleThreaded,
			RemoveFileTypes:       p.RemoveFileTypes,
			LogFile:               r.exec.LogPath(stage, ".out"),
		})
		deconv.InEnriched().From(enriched.Out())
		deconv.InLinked().From(linked.Out())
		if p.IDNameMap != nil {
			idMap := spcomp.NewFileSource(wf, stage+"_idmap", p.IDNameMap.Path)
			deconv.InIDNameMap().From(idMap.Out())
		}
		deconv.SetOut("outdir", out)
		deconv.SetOut("rounds", rounds)
		deconv.SetOut("assignments", assignments)
	})
	if err != nil {
		return nil, err
	}
	return &actions.DeconvOutput{
		Dir:           artifact.New(artifact.DeconvolutionDir, out),
		ScorePerRound: artifact.New(artifact.DeconvolutionDir, rounds),
		AssignmentMap: artifact.New(artifact.DeconvolutionDir, assignments),
	}, nil
}

func createFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.NewIOError("mkdir", filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.NewIOError("create", path, err)
	}
	return f, nil
}

// fs is a short for fmt.Sprintf
func fs(pat string, v ...interface{}) string {
	return fmt.Sprintf(pat, v...)
}

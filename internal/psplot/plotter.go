// Package psplot runs the PepSIRF plotting actions (read-count and
// enrichment boxplots, replicate scatters, zenrich) through scipipe.
package psplot

import (
	"fmt"
	"os"
	"path/filepath"

	sp "github.com/scipipe/scipipe"
	spcomp "github.com/scipipe/scipipe/components"

	"github.com/ladnerlab/autopepsirf/internal/actions"
	"github.com/ladnerlab/autopepsirf/internal/artifact"
	"github.com/ladnerlab/autopepsirf/internal/errors"
	"github.com/ladnerlab/autopepsirf/internal/source"
	"github.com/ladnerlab/autopepsirf/internal/workflow"
)

// DefaultBinary is the plotting executable looked up on PATH.
const DefaultBinary = "ps-plot"

// Plotter implements actions.Plotter on top of the plotting binary.
type Plotter struct {
	binary        string
	pepsirfBinary string
	exec          *workflow.Executor
}

var _ actions.Plotter = (*Plotter)(nil)

// NewPlotter returns a Plotter calling binary. pepsirfBinary is handed to
// zenrich, which runs its own enrichment sweep.
func NewPlotter(binary, pepsirfBinary string, exec *workflow.Executor) *Plotter {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Plotter{binary: binary, pepsirfBinary: pepsirfBinary, exec: exec}
}

// ReadCountsBoxplot plots the per-sample read counts.
func (p *Plotter) ReadCountsBoxplot(params actions.RCBoxplotParams) (*artifact.Artifact, error) {
	return p.boxplot("rc_boxplot", params.ReadCounts, BoxplotConf{
		Binary:    p.binary,
		PNGOutDir: params.PNGOutDir,
	})
}

// EnrichmentRCBoxplot plots the enriched peptide counts per sample group.
func (p *Plotter) EnrichmentRCBoxplot(params actions.EnrichBoxplotParams) (*artifact.Artifact, error) {
	return p.boxplot("enrich_boxplot", params.EnrichedDir, BoxplotConf{
		Binary:    p.binary,
		Enriched:  true,
		PNGOutDir: params.PNGOutDir,
	})
}

func (p *Plotter) boxplot(name string, in *artifact.Artifact, conf BoxplotConf) (*artifact.Artifact, error) {
	stage := p.exec.Stage(name)
	out := p.exec.OutPath(stage, ".viz")

	err := p.exec.Run(stage, []string{out}, func(wf *sp.Workflow) {
		src := spcomp.NewFileSource(wf, stage+"_in", in.Path)
		plot := NewBoxplot(wf, p.exec.Proc(stage), conf)
		plot.InData().From(src.Out())
		plot.SetOut("viz", out)
	})
	if err != nil {
		return nil, err
	}
	return artifact.New(artifact.Visualization, out), nil
}

// RepScatters plots replicates of each source against each other, from
// either the z scores or the col-sum matrix.
func (p *Plotter) RepScatters(params actions.RepScatterParams) (*artifact.Artifact, error) {
	matrix, flag, name := params.Zscores, "--zscore", "zscore_scatter"
	if matrix == nil {
		matrix, flag, name = params.ColSum, "--col-sum", "colsum_scatter"
	}
	if matrix == nil {
		return nil, errors.NewConfigError("repScatters", "either a z score or a col-sum matrix is required")
	}

	stage := p.exec.Stage(name)
	out := p.exec.OutPath(stage, ".viz")
	sourcePath := p.exec.OutPath(stage, ".source.tsv")
	if err := writeSourceFile(sourcePath, params.Source); err != nil {
		return nil, err
	}

	err := p.exec.Run(stage, []string{out}, func(wf *sp.Workflow) {
		src := spcomp.NewFileSource(wf, stage+"_source", sourcePath)
		mat := spcomp.NewFileSource(wf, stage+"_matrix", matrix.Path)
		plot := NewRepScatters(wf, p.exec.Proc(stage), RepScattersConf{
			Binary:     p.binary,
			MatrixFlag: flag,
			PlotLog:    params.PlotLog,
		})
		plot.InSource().From(src.Out())
		plot.InMatrix().From(mat.Out())
		plot.SetOut("viz", out)
	})
	if err != nil {
		return nil, err
	}
	return artifact.New(artifact.Visualization, out), nil
}

// Zenrich plots col-sum against z scores with the enrichment thresholds.
func (p *Plotter) Zenrich(params actions.ZenrichParams) (*artifact.Artifact, error) {
	stage := p.exec.Stage("zenrich")
	out := p.exec.OutPath(stage, ".viz")
	sourcePath := p.exec.OutPath(stage, ".source.tsv")
	if err := writeSourceFile(sourcePath, params.Source); err != nil {
		return nil, err
	}
	neg := params.NegativeControls

	err := p.exec.Run(stage, []string{out}, func(wf *sp.Workflow) {
		data := spcomp.NewFileSource(wf, stage+"_data", params.Data.Path)
		zscores := spcomp.NewFileSource(wf, stage+"_zscores", params.Zscores.Path)
		src := spcomp.NewFileSource(wf, stage+"_source", sourcePath)
		plot := NewZenrich(wf, p.exec.Proc(stage), ZenrichConf{
			Binary:           p.binary,
			PepsirfBinary:    p.pepsirfBinary,
			NegativeNames:    neg.Names,
			NegativeID:       neg.ID,
			WithNegativeData: neg.Data != nil,
			StepZThresh:      params.StepZThresh,
			UpperZThresh:     params.UpperZThresh,
			LowerZThresh:     params.LowerZThresh,
			ExactZThresh:     params.ExactZThresh,
			ExactCSThresh:    params.ExactCSThresh,
		})
		plot.InData().From(data.Out())
		plot.InZscores().From(zscores.Out())
		plot.InSource().From(src.Out())
		if neg.Data != nil {
			negData := spcomp.NewFileSource(wf, stage+"_negdata", neg.Data.Path)
			plot.InNegativeData().From(negData.Out())
		}
		plot.SetOut("viz", out)
	})
	if err != nil {
		return nil, err
	}
	return artifact.New(artifact.Visualization, out), nil
}

func writeSourceFile(path string, tbl *source.Table) error {
	if tbl == nil {
		return errors.NewConfigError("source", "plot needs a source table")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.NewIOError("mkdir", filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.NewIOError("create", path, err)
	}
	defer f.Close()

	if err := tbl.WriteTSV(f); err != nil {
		return errors.NewIOError("write", path, err)
	}
	return nil
}

// fs is a short for fmt.Sprintf
func fs(pat string, v ...interface{}) string {
	return fmt.Sprintf(pat, v...)
}

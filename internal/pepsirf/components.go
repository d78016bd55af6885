package pepsirf

import (
	"strconv"
	"strings"

	sp "github.com/scipipe/scipipe"

	"github.com/ladnerlab/autopepsirf/internal/workflow"
)

// ----------------------------------------------------------------------------
// Norm
// ----------------------------------------------------------------------------

// Norm runs `pepsirf norm` on a score matrix
type Norm struct {
	*sp.Process
}

// NormConf contains parameters for initializing a Norm process
type NormConf struct {
	Binary              string
	Approach            string
	Precision           int
	WithNegativeControl bool
	NegativeID          string
	NegativeNames       []string
	LogFile             string
}

// NewNorm returns a new Norm process
func NewNorm(wf *sp.Workflow, name string, params NormConf) *Norm {
	return &Norm{wf.NewProc(name, normCmd(params))}
}

func normCmd(params NormConf) string {
	cmd := params.Binary + ` norm -p {i:scores}` +
		` -a ` + params.Approach +
		fs(` --precision %d`, params.Precision)
	if params.WithNegativeControl {
		cmd += ` -s {i:negctrl}`
	}
	if params.NegativeID != "" {
		cmd += ` -n ` + workflow.Quote(params.NegativeID)
	}
	if len(params.NegativeNames) > 0 {
		cmd += ` -N ` + workflow.Quote(strings.Join(params.NegativeNames, ","))
	}
	return cmd + ` -o {o:normed}` + logRedirect(params.LogFile)
}

func (p *Norm) InPeptideScores() *sp.InPort  { return p.In("scores") }
func (p *Norm) InNegativeControl() *sp.InPort { return p.In("negctrl") }
func (p *Norm) OutNormed() *sp.OutPort        { return p.Out("normed") }

// ----------------------------------------------------------------------------
// Z scores
// ----------------------------------------------------------------------------

// Zscore runs `pepsirf zscore` against a set of peptide bins
type Zscore struct {
	*sp.Process
}

// ZscoreConf contains parameters for initializing a Zscore process
type ZscoreConf struct {
	Binary  string
	HDI     float64
	LogFile string
}

// NewZscore returns a new Zscore process
func NewZscore(wf *sp.Workflow, name string, params ZscoreConf) *Zscore {
	return &Zscore{wf.NewProc(name, zscoreCmd(params))}
}

func zscoreCmd(params ZscoreConf) string {
	return params.Binary + ` zscore -s {i:scores} -b {i:bins}` +
		` -d ` + strconv.FormatFloat(params.HDI, 'f', -1, 64) +
		` -o {o:zscores} -n {o:nan}` + logRedirect(params.LogFile)
}

func (p *Zscore) InScores() *sp.InPort    { return p.In("scores") }
func (p *Zscore) InBins() *sp.InPort      { return p.In("bins") }
func (p *Zscore) OutZscores() *sp.OutPort { return p.Out("zscores") }
func (p *Zscore) OutNaN() *sp.OutPort     { return p.Out("nan") }

// ----------------------------------------------------------------------------
// Info
// ----------------------------------------------------------------------------

// InfoMode selects what `pepsirf info` reports.
type InfoMode string

const (
	InfoSamples InfoMode = "-s"
	InfoColSums InfoMode = "-c"
)

// Info runs `pepsirf info` on a matrix
type Info struct {
	*sp.Process
}

// InfoConf contains parameters for initializing an Info process
type InfoConf struct {
	Binary  string
	Mode    InfoMode
	LogFile string
}

// NewInfo returns a new Info process
func NewInfo(wf *sp.Workflow, name string, params InfoConf) *Info {
	return &Info{wf.NewProc(name, infoCmd(params))}
}

func infoCmd(params InfoConf) string {
	return params.Binary + ` info -i {i:input} ` + string(params.Mode) + ` {o:info}` + logRedirect(params.LogFile)
}

func (p *Info) InInput() *sp.InPort  { return p.In("input") }
func (p *Info) OutInfo() *sp.OutPort { return p.Out("info") }

// ----------------------------------------------------------------------------
// Enrich
// ----------------------------------------------------------------------------

// Enrich runs `pepsirf enrich` over the replicate pairs of a source table
type Enrich struct {
	*sp.Process
}

// EnrichConf contains parameters for initializing an Enrich process
type EnrichConf struct {
	Binary        string
	RawConstraint int
	LowRawReads   bool
	FailureFile   string
	LogFile       string
}

// NewEnrich returns a new Enrich process
func NewEnrich(wf *sp.Workflow, name string, params EnrichConf) *Enrich {
	return &Enrich{wf.NewProc(name, enrichCmd(params))}
}

func enrichCmd(params EnrichConf) string {
	cmd := params.Binary + ` enrich -t {i:thresh} -s {i:pairs} -r {i:raw}` +
		fs(` --raw_score_constraint %d`, params.RawConstraint)
	if params.LowRawReads {
		cmd += ` --low_raw_reads`
	}
	if params.FailureFile != "" {
		cmd += ` -f ` + workflow.Quote(params.FailureFile)
	}
	return cmd + ` -o {o:outdir}` + logRedirect(params.LogFile)
}

func (p *Enrich) InThreshFile() *sp.InPort { return p.In("thresh") }
func (p *Enrich) InPairs() *sp.InPort      { return p.In("pairs") }
func (p *Enrich) InRawScores() *sp.InPort  { return p.In("raw") }
func (p *Enrich) OutDir() *sp.OutPort      { return p.Out("outdir") }

// ----------------------------------------------------------------------------
// Deconv
// ----------------------------------------------------------------------------

// Deconv runs `pepsirf deconv` in batch mode over a directory of enriched
// peptide files
type Deconv struct {
	*sp.Process
}

// DeconvConf contains parameters for initializing a Deconv process
type DeconvConf struct {
	Binary                string
	Threshold             int
	ScoringStrategy       string
	ScoreFiltering        bool
	ScoreTieThreshold     float64
	ScoreOverlapThreshold float64
	WithIDNameMap         bool
	SingleThreaded        bool
	RemoveFileTypes       bool
	LogFile               string
}

// NewDeconv returns a new Deconv process
func NewDeconv(wf *sp.Workflow, name string, params DeconvConf) *Deconv {
	return &Deconv{wf.NewProc(name, deconvCmd(params))}
}

func deconvCmd(params DeconvConf) string {
	cmd := params.Binary + ` deconv -e {i:enriched} -l {i:linked}` +
		fs(` -t %d`, params.Threshold) +
		` --scoring_strategy ` + params.ScoringStrategy +
		` --score_tie_threshold ` + strconv.FormatFloat(params.ScoreTieThreshold, 'f', -1, 64) +
		` --score_overlap_threshold ` + strconv.FormatFloat(params.ScoreOverlapThreshold, 'f', -1, 64)
	if params.ScoreFiltering {
		cmd += ` --score_filtering`
	}
	if params.WithIDNameMap {
		cmd += ` --id_name_map {i:idmap}`
	}
	if params.SingleThreaded {
		cmd += ` --single_threaded`
	}
	if params.RemoveFileTypes {
		cmd += ` --remove_file_types`
	}
	return cmd + ` --score_per_round {o:rounds} --peptide_assignment_map {o:assignments} -o {o:outdir}` +
		logRedirect(params.LogFile)
}

func (p *Deconv) InEnriched() *sp.InPort        { return p.In("enriched") }
func (p *Deconv) InLinked() *sp.InPort          { return p.In("linked") }
func (p *Deconv) InIDNameMap() *sp.InPort       { return p.In("idmap") }
func (p *Deconv) OutDir() *sp.OutPort           { return p.Out("outdir") }
func (p *Deconv) OutScorePerRound() *sp.OutPort { return p.Out("rounds") }
func (p *Deconv) OutAssignmentMap() *sp.OutPort { return p.Out("assignments") }

func logRedirect(logFile string) string {
	if logFile == "" {
		return ""
	}
	return ` >> ` + workflow.Quote(logFile)
}

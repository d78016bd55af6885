package psplot

import (
	"strings"

	sp "github.com/scipipe/scipipe"

	"github.com/ladnerlab/autopepsirf/internal/workflow"
)

// ----------------------------------------------------------------------------
// Boxplots
// ----------------------------------------------------------------------------

// Boxplot renders either the read-count or the enriched-count boxplot
type Boxplot struct {
	*sp.Process
}

// BoxplotConf contains parameters for initializing a Boxplot process
type BoxplotConf struct {
	Binary string
	// Enriched selects enrichmentRCBoxplot over readCountsBoxplot.
	Enriched  bool
	PNGOutDir string
}

// NewBoxplot returns a new Boxplot process
func NewBoxplot(wf *sp.Workflow, name string, params BoxplotConf) *Boxplot {
	return &Boxplot{wf.NewProc(name, boxplotCmd(params))}
}

func boxplotCmd(params BoxplotConf) string {
	cmd := params.Binary + ` readCountsBoxplot --read-counts {i:in}`
	if params.Enriched {
		cmd = params.Binary + ` enrichmentRCBoxplot --enriched-dir {i:in}`
	}
	if params.PNGOutDir != "" {
		cmd += ` --png-out-dir ` + workflow.Quote(params.PNGOutDir)
	}
	return cmd + ` --visualization {o:viz}`
}

func (p *Boxplot) InData() *sp.InPort            { return p.In("in") }
func (p *Boxplot) OutVisualization() *sp.OutPort { return p.Out("viz") }

// ----------------------------------------------------------------------------
// Replicate scatters
// ----------------------------------------------------------------------------

// RepScatters plots replicate against replicate for every source group
type RepScatters struct {
	*sp.Process
}

// RepScattersConf contains parameters for initializing a RepScatters process
type RepScattersConf struct {
	Binary string
	// MatrixFlag is --zscore or --col-sum.
	MatrixFlag string
	PlotLog    bool
}

// NewRepScatters returns a new RepScatters process
func NewRepScatters(wf *sp.Workflow, name string, params RepScattersConf) *RepScatters {
	return &RepScatters{wf.NewProc(name, repScattersCmd(params))}
}

func repScattersCmd(params RepScattersConf) string {
	cmd := params.Binary + ` repScatters --source {i:source} --source-column source`
	if params.PlotLog {
		cmd += ` --plot-log`
	}
	return cmd + ` ` + params.MatrixFlag + ` {i:matrix} --visualization {o:viz}`
}

func (p *RepScatters) InSource() *sp.InPort          { return p.In("source") }
func (p *RepScatters) InMatrix() *sp.InPort          { return p.In("matrix") }
func (p *RepScatters) OutVisualization() *sp.OutPort { return p.Out("viz") }

// ----------------------------------------------------------------------------
// Zenrich
// ----------------------------------------------------------------------------

// Zenrich plots col-sum against z score, marking the enrichment thresholds
type Zenrich struct {
	*sp.Process
}

// ZenrichConf contains parameters for initializing a Zenrich process
type ZenrichConf struct {
	Binary           string
	PepsirfBinary    string
	NegativeNames    []string
	NegativeID       string
	WithNegativeData bool
	StepZThresh      int
	UpperZThresh     int
	LowerZThresh     int
	ExactZThresh     string
	ExactCSThresh    string
}

// NewZenrich returns a new Zenrich process
func NewZenrich(wf *sp.Workflow, name string, params ZenrichConf) *Zenrich {
	return &Zenrich{wf.NewProc(name, zenrichCmd(params))}
}

func zenrichCmd(params ZenrichConf) string {
	cmd := params.Binary + ` zenrich --data {i:data} --zscores {i:zscores} --source {i:source} --source-column source`
	if len(params.NegativeNames) > 0 {
		cmd += ` --negative-controls ` + workflow.Quote(strings.Join(params.NegativeNames, ","))
	}
	if params.NegativeID != "" {
		cmd += ` --negative-id ` + workflow.Quote(params.NegativeID)
	}
	if params.WithNegativeData {
		cmd += ` --negative-data {i:negdata}`
	}
	cmd += fs(` --step-z-thresh %d --upper-z-thresh %d --lower-z-thresh %d`,
		params.StepZThresh, params.UpperZThresh, params.LowerZThresh)
	if params.ExactZThresh != "" {
		cmd += ` --exact-z-thresh ` + workflow.Quote(params.ExactZThresh)
	}
	if params.ExactCSThresh != "" {
		cmd += ` --exact-cs-thresh ` + workflow.Quote(params.ExactCSThresh)
	}
	return cmd + ` --pepsirf-binary ` + workflow.Quote(params.PepsirfBinary) + ` --visualization {o:viz}`
}

func (p *Zenrich) InData() *sp.InPort            { return p.In("data") }
func (p *Zenrich) InZscores() *sp.InPort         { return p.In("zscores") }
func (p *Zenrich) InSource() *sp.InPort          { return p.In("source") }
func (p *Zenrich) InNegativeData() *sp.InPort    { return p.In("negdata") }
func (p *Zenrich) OutVisualization() *sp.OutPort { return p.Out("viz") }

// Package actions declares the external operations the pipelines are built
// from. Implementations wrap the pepsirf binary (package pepsirf) and the
// plotting tool (package psplot); the pipelines only see these interfaces.
package actions

import (
	"github.com/ladnerlab/autopepsirf/internal/artifact"
	"github.com/ladnerlab/autopepsirf/internal/source"
)

// Normalization approaches understood by pepsirf norm.
const (
	NormColSum    = "col_sum"
	NormDiff      = "diff"
	NormDiffRatio = "diff_ratio"
)

// NegativeControls identifies the negative-control samples. Any
// combination may be set; an empty value means no explicit controls.
type NegativeControls struct {
	Data  *artifact.Artifact
	ID    string
	Names []string
}

// Supplied reports whether any explicit identification is present.
func (n NegativeControls) Supplied() bool {
	return n.Data != nil || n.ID != "" || len(n.Names) > 0
}

// NormParams configures one normalization.
type NormParams struct {
	PeptideScores    *artifact.Artifact
	Approach         string
	NegativeControls NegativeControls
	Precision        int
}

// ZscoreParams configures the z-score computation.
type ZscoreParams struct {
	Scores *artifact.Artifact
	Bins   *artifact.Artifact
	HDI    float64
}

// InfoParams names the matrix to describe.
type InfoParams struct {
	Input *artifact.Artifact
}

// EnrichParams configures enrichment calling.
type EnrichParams struct {
	Source         *source.Table
	ThreshFile     *artifact.Artifact
	Zscores        *artifact.Artifact
	ColSum         *artifact.Artifact
	ExactZThresh   string
	ExactCSThresh  string
	RawScores      *artifact.Artifact
	RawConstraint  int
	LowRawReads    bool
	FailureReasons bool
}

// DeconvParams configures batch deconvolution.
type DeconvParams struct {
	Enriched              *artifact.Artifact
	Threshold             int
	Linked                *artifact.Artifact
	ScoringStrategy       string
	ScoreFiltering        bool
	ScoreTieThreshold     float64
	ScoreOverlapThreshold float64
	IDNameMap             *artifact.Artifact
	SingleThreaded        bool
	RemoveFileTypes       bool
}

// DeconvOutput holds the three artifacts deconvolution produces.
type DeconvOutput struct {
	Dir           *artifact.Artifact
	ScorePerRound *artifact.Artifact
	AssignmentMap *artifact.Artifact
}

// Pepsirf is the analysis side of the pipeline.
type Pepsirf interface {
	Norm(p NormParams) (*artifact.Artifact, error)
	Zscore(p ZscoreParams) (zscores, nan *artifact.Artifact, err error)
	InfoSNPN(p InfoParams) (*artifact.Artifact, error)
	InfoSumOfProbes(p InfoParams) (*artifact.Artifact, error)
	Enrich(p EnrichParams) (*artifact.Artifact, error)
	Deconv(p DeconvParams) (*DeconvOutput, error)
}

// RCBoxplotParams configures the read-count boxplot.
type RCBoxplotParams struct {
	ReadCounts *artifact.Artifact
	PNGOutDir  string
}

// EnrichBoxplotParams configures the enriched-count boxplot.
type EnrichBoxplotParams struct {
	EnrichedDir *artifact.Artifact
	PNGOutDir   string
}

// RepScatterParams configures a replicate scatter. Exactly one of Zscores
// and ColSum is set.
type RepScatterParams struct {
	Source  *source.Table
	PlotLog bool
	Zscores *artifact.Artifact
	ColSum  *artifact.Artifact
}

// ZenrichParams configures the zenrich scatter.
type ZenrichParams struct {
	Data             *artifact.Artifact
	Zscores          *artifact.Artifact
	Source           *source.Table
	NegativeControls NegativeControls
	StepZThresh      int
	UpperZThresh     int
	LowerZThresh     int
	ExactZThresh     string
	ExactCSThresh    string
}

// Plotter is the visualization side of the pipeline.
type Plotter interface {
	ReadCountsBoxplot(p RCBoxplotParams) (*artifact.Artifact, error)
	EnrichmentRCBoxplot(p EnrichBoxplotParams) (*artifact.Artifact, error)
	RepScatters(p RepScatterParams) (*artifact.Artifact, error)
	Zenrich(p ZenrichParams) (*artifact.Artifact, error)
}

package pipeline

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ladnerlab/autopepsirf/internal/artifact"
	"github.com/ladnerlab/autopepsirf/internal/source"
)

// Result holds every artifact of a diff-enrichment run.
type Result struct {
	RunID string

	ColSum        *artifact.Artifact
	Diff          *artifact.Artifact
	DiffRatio     *artifact.Artifact
	Zscore        *artifact.Artifact
	NaN           *artifact.Artifact
	SampleNames   *artifact.Artifact
	ReadCounts    *artifact.Artifact
	RCBoxplot     *artifact.Artifact
	EnrichDir     *artifact.Artifact
	EnrichBoxplot *artifact.Artifact
	ZscoreScatter *artifact.Artifact
	ColSumScatter *artifact.Artifact
	// Zenrich is nil when the zenrich plot was skipped.
	Zenrich *artifact.Artifact

	Policy source.Policy
	Source *source.Table
	// NegativeControls lists the control names passed to the delegates.
	NegativeControls []string
	// NegativeControlsDefaulted is true when every sample was taken as a
	// negative control.
	NegativeControlsDefaulted bool

	// Snapshots maps output names to the snapshot files written for them.
	Snapshots map[string]string
	Elapsed   time.Duration
}

// Output is one named artifact of a run.
type Output struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Path     string `yaml:"path"`
	Snapshot string `yaml:"snapshot,omitempty"`
}

// Outputs lists the produced artifacts in return order. Skipped outputs
// are left out.
func (r *Result) Outputs() []Output {
	return r.collect([]namedArtifact{
		{"col_sum", r.ColSum},
		{"diff", r.Diff},
		{"diff_ratio", r.DiffRatio},
		{"zscore", r.Zscore},
		{"nan", r.NaN},
		{"sample_names", r.SampleNames},
		{"read_counts", r.ReadCounts},
		{"rc_boxplot", r.RCBoxplot},
		{"enrich_dir", r.EnrichDir},
		{"enrich_count_boxplot", r.EnrichBoxplot},
		{"zscore_scatter", r.ZscoreScatter},
		{"colsum_scatter", r.ColSumScatter},
		{"zenrich", r.Zenrich},
	})
}

type namedArtifact struct {
	name string
	a    *artifact.Artifact
}

func (r *Result) collect(named []namedArtifact) []Output {
	var out []Output
	for _, n := range named {
		if n.a == nil {
			continue
		}
		out = append(out, Output{
			Name:     n.name,
			Type:     string(n.a.Type),
			Path:     n.a.Path,
			Snapshot: r.Snapshots[n.name],
		})
	}
	return out
}

type manifest struct {
	RunID                     string   `yaml:"run_id"`
	Elapsed                   string   `yaml:"elapsed"`
	SourcePolicy              string   `yaml:"source_policy"`
	SourceRows                int      `yaml:"source_rows"`
	SourceSnapshot            string   `yaml:"source_snapshot,omitempty"`
	NegativeControls          []string `yaml:"negative_controls,omitempty"`
	NegativeControlsDefaulted bool     `yaml:"negative_controls_defaulted"`
	Outputs                   []Output `yaml:"outputs"`
}

func (r *Result) manifest(outputs []Output) manifest {
	m := manifest{
		RunID:                     r.RunID,
		Elapsed:                   fmtDuration(r.Elapsed),
		SourcePolicy:              r.Policy.String(),
		SourceSnapshot:            r.Snapshots[sourceOutput],
		NegativeControls:          r.NegativeControls,
		NegativeControlsDefaulted: r.NegativeControlsDefaulted,
		Outputs:                   outputs,
	}
	if r.Source != nil {
		m.SourceRows = r.Source.Len()
	}
	return m
}

// Manifest renders the run as YAML.
func (r *Result) Manifest() ([]byte, error) {
	return yaml.Marshal(r.manifest(r.Outputs()))
}

// DeconvResult adds the deconvolution outputs to Result.
type DeconvResult struct {
	Result
	Deconv        *artifact.Artifact
	ScorePerRound *artifact.Artifact
	AssignmentMap *artifact.Artifact
}

// Outputs lists the produced artifacts in return order.
func (r *DeconvResult) Outputs() []Output {
	return append(r.Result.Outputs(), r.collect([]namedArtifact{
		{"deconv_dir", r.Deconv},
		{"score_per_round", r.ScorePerRound},
		{"peptide_assignment_map", r.AssignmentMap},
	})...)
}

// Manifest renders the run as YAML.
func (r *DeconvResult) Manifest() ([]byte, error) {
	return yaml.Marshal(r.manifest(r.Outputs()))
}

// fmtDuration renders t as days-hh:mm:ss.
func fmtDuration(t time.Duration) string {
	t = t.Round(time.Second)
	d := t / (24 * time.Hour)
	t -= d * (24 * time.Hour)
	h := t / time.Hour
	t -= h * time.Hour
	m := t / time.Minute
	t -= m * time.Minute
	s := t / time.Second
	return fmt.Sprintf("%d-%02d:%02d:%02d", d, h, m, s)
}

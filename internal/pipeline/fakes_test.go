package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/ladnerlab/autopepsirf/internal/actions"
	"github.com/ladnerlab/autopepsirf/internal/artifact"
	"github.com/ladnerlab/autopepsirf/internal/errors"
)

var errFake = errors.New("fake tool exited with status 1")

// fakeTools records every delegate call and leaves a small file behind for
// each output, so snapshots have something to copy.
type fakeTools struct {
	fs         afero.Fs
	samples    []string
	negSamples []string
	failAt     string

	calls   []string
	norms   []actions.NormParams
	enrich  actions.EnrichParams
	scatter []actions.RepScatterParams
	zenrich *actions.ZenrichParams
	deconv  actions.DeconvParams
}

func newFakeTools(fs afero.Fs, samples ...string) *fakeTools {
	return &fakeTools{fs: fs, samples: samples}
}

func (f *fakeTools) call(name string) error {
	f.calls = append(f.calls, name)
	if name == f.failAt {
		return errFake
	}
	return nil
}

func (f *fakeTools) file(t artifact.Type, name, content string) *artifact.Artifact {
	path := fmt.Sprintf("/work/%02d_%s", len(f.calls), name)
	if err := afero.WriteFile(f.fs, path, []byte(content), 0o644); err != nil {
		panic(err)
	}
	return artifact.New(t, path)
}

func (f *fakeTools) dir(t artifact.Type, name string, files ...string) *artifact.Artifact {
	path := fmt.Sprintf("/work/%02d_%s", len(f.calls), name)
	for _, file := range files {
		if err := afero.WriteFile(f.fs, filepath.Join(path, file), []byte(file+"\n"), 0o644); err != nil {
			panic(err)
		}
	}
	return artifact.New(t, path)
}

func (f *fakeTools) Norm(p actions.NormParams) (*artifact.Artifact, error) {
	f.norms = append(f.norms, p)
	if err := f.call("norm_" + p.Approach); err != nil {
		return nil, err
	}
	return f.file(artifact.Normed, p.Approach+".tsv", "Sequence name\tA_1\n"), nil
}

func (f *fakeTools) Zscore(p actions.ZscoreParams) (*artifact.Artifact, *artifact.Artifact, error) {
	if err := f.call("zscore"); err != nil {
		return nil, nil, err
	}
	return f.file(artifact.Zscore, "zscore.tsv", "z\n"), f.file(artifact.ZscoreNan, "zscore.nan", "nan\n"), nil
}

func (f *fakeTools) InfoSNPN(p actions.InfoParams) (*artifact.Artifact, error) {
	if err := f.call("info_snpn"); err != nil {
		return nil, err
	}
	names := f.samples
	if p.Input.Type != artifact.RawCounts {
		names = f.negSamples
	}
	return f.file(artifact.InfoSNPN, "snpn.tsv", strings.Join(names, "\n")+"\n"), nil
}

func (f *fakeTools) InfoSumOfProbes(p actions.InfoParams) (*artifact.Artifact, error) {
	if err := f.call("info_sop"); err != nil {
		return nil, err
	}
	return f.file(artifact.InfoSumOfProbes, "sop.tsv", "Sample name\tSum of probe scores\n"), nil
}

func (f *fakeTools) Enrich(p actions.EnrichParams) (*artifact.Artifact, error) {
	f.enrich = p
	if err := f.call("enrich"); err != nil {
		return nil, err
	}
	return f.dir(artifact.Enrichment, "enrich", "A_1~A_2_enriched.txt"), nil
}

func (f *fakeTools) Deconv(p actions.DeconvParams) (*actions.DeconvOutput, error) {
	f.deconv = p
	if err := f.call("deconv"); err != nil {
		return nil, err
	}
	return &actions.DeconvOutput{
		Dir:           f.dir(artifact.DeconvolutionDir, "deconv", "A_1~A_2_deconv.tsv"),
		ScorePerRound: f.dir(artifact.DeconvolutionDir, "rounds", "round_1"),
		AssignmentMap: f.dir(artifact.DeconvolutionDir, "assignments", "A_1~A_2_map.tsv"),
	}, nil
}

func (f *fakeTools) ReadCountsBoxplot(p actions.RCBoxplotParams) (*artifact.Artifact, error) {
	if err := f.call("rc_boxplot"); err != nil {
		return nil, err
	}
	return f.file(artifact.Visualization, "rc_boxplot.viz", "viz"), nil
}

func (f *fakeTools) EnrichmentRCBoxplot(p actions.EnrichBoxplotParams) (*artifact.Artifact, error) {
	if err := f.call("enrich_boxplot"); err != nil {
		return nil, err
	}
	return f.file(artifact.Visualization, "enrich_boxplot.viz", "viz"), nil
}

func (f *fakeTools) RepScatters(p actions.RepScatterParams) (*artifact.Artifact, error) {
	f.scatter = append(f.scatter, p)
	if err := f.call("rep_scatters"); err != nil {
		return nil, err
	}
	return f.file(artifact.Visualization, "rep_scatters.viz", "viz"), nil
}

func (f *fakeTools) Zenrich(p actions.ZenrichParams) (*artifact.Artifact, error) {
	f.zenrich = &p
	if err := f.call("zenrich"); err != nil {
		return nil, err
	}
	return f.file(artifact.Visualization, "zenrich.viz", "viz"), nil
}

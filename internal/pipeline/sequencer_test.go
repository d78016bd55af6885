package pipeline

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ladnerlab/autopepsirf/internal/artifact"
	"github.com/ladnerlab/autopepsirf/internal/errors"
	"github.com/ladnerlab/autopepsirf/internal/source"
)

func testInputs() Inputs {
	return Inputs{
		RawData: artifact.New(artifact.RawCounts, "/in/raw.tsv"),
		Bins:    artifact.New(artifact.PeptideBins, "/in/bins.tsv"),
	}
}

func testParams() Params {
	p := DefaultParams()
	p.Source.InferPairs = true
	p.ExactZThresh = "6,10"
	p.NegativeNames = []string{"SB_1", "SB_2"}
	p.TSVDir = "/out"
	p.TSVBase = "run"
	return p
}

func newTestSequencer(tools *fakeTools) *Sequencer {
	return New(tools, tools, WithFs(tools.fs), WithRunID("run-1"))
}

var diffEnrichStages = []string{
	"norm_col_sum",
	"norm_diff",
	"norm_diff_ratio",
	"zscore",
	"info_snpn",
	"info_sop",
	"rc_boxplot",
	"enrich",
	"enrich_boxplot",
	"rep_scatters",
	"rep_scatters",
	"zenrich",
}

func TestDiffEnrichStageOrder(t *testing.T) {
	fs := afero.NewMemMapFs()
	tools := newFakeTools(fs, "A_1", "A_2", "B_1")

	res, err := newTestSequencer(tools).DiffEnrich(testInputs(), testParams())
	require.NoError(t, err)

	if diff := cmp.Diff(diffEnrichStages, tools.calls); diff != "" {
		t.Errorf("stage order mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "run-1", res.RunID)
	assert.Equal(t, source.InferPairs, res.Policy)
	assert.Equal(t, []source.Row{{SampleID: "A_1", Source: "A"}, {SampleID: "A_2", Source: "A"}}, res.Source.Rows)
	assert.NotNil(t, res.Zenrich)
	assert.Len(t, res.Outputs(), 13)

	// col_sum feeds diff and diff_ratio, diff feeds zscore
	require.Len(t, tools.norms, 3)
	assert.Equal(t, res.ColSum, tools.norms[1].PeptideScores)
	assert.Equal(t, res.ColSum, tools.norms[2].PeptideScores)
	assert.Equal(t, []string{"SB_1", "SB_2"}, tools.norms[1].NegativeControls.Names)
	assert.Empty(t, tools.norms[0].NegativeControls.Names)

	assert.Same(t, res.Source, tools.enrich.Source)
	assert.Equal(t, res.Zscore, tools.enrich.Zscores)
	assert.Equal(t, "6,10", tools.enrich.ExactZThresh)
	assert.True(t, tools.enrich.FailureReasons)
	require.Len(t, tools.scatter, 2)
	assert.NotNil(t, tools.scatter[0].Zscores)
	assert.False(t, tools.scatter[0].PlotLog)
	assert.NotNil(t, tools.scatter[1].ColSum)
	assert.True(t, tools.scatter[1].PlotLog)
}

func TestDiffEnrichSnapshots(t *testing.T) {
	fs := afero.NewMemMapFs()
	tools := newFakeTools(fs, "A_1", "A_2", "B_1")

	res, err := newTestSequencer(tools).DiffEnrich(testInputs(), testParams())
	require.NoError(t, err)

	for _, path := range []string{
		"/out/run_CS.tsv",
		"/out/run_SBD.tsv",
		"/out/run_SBDR.tsv",
		"/out/run_Z-HDI95.tsv",
		"/out/run_Z-HDI95.nan",
		"/out/run_SN.tsv",
		"/out/run_RC.tsv",
		"/out/samples_source.tsv",
		"/out/6-10Z-HDI95_20CS_300000raw/A_1~A_2_enriched.txt",
	} {
		exists, err := afero.Exists(fs, path)
		require.NoError(t, err)
		assert.True(t, exists, path)
	}

	data, err := afero.ReadFile(fs, "/out/samples_source.tsv")
	require.NoError(t, err)
	assert.Equal(t, "sampleID\tsource\nA_1\tA\nA_2\tA\n", string(data))
	assert.Equal(t, "/out/run_Z-HDI95.tsv", res.Snapshots["zscore"])
}

func TestDiffEnrichWithoutSnapshots(t *testing.T) {
	fs := afero.NewMemMapFs()
	tools := newFakeTools(fs, "A_1", "A_2")

	p := testParams()
	p.TSVDir = ""
	p.TSVBase = ""
	res, err := newTestSequencer(tools).DiffEnrich(testInputs(), p)
	require.NoError(t, err)
	assert.Empty(t, res.Snapshots)

	exists, err := afero.DirExists(fs, "/out")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestNegativeControlNamesFromMatrix(t *testing.T) {
	fs := afero.NewMemMapFs()
	tools := newFakeTools(fs, "A_1", "A_2")
	tools.negSamples = []string{"SB_1", "SB_2", "SB_3"}

	in := testInputs()
	in.NegativeControl = artifact.New(artifact.Normed, "/in/neg.tsv")
	p := testParams()
	p.NegativeNames = nil

	res, err := newTestSequencer(tools).DiffEnrich(in, p)
	require.NoError(t, err)

	assert.Equal(t, []string{"norm_col_sum", "info_snpn", "norm_diff"}, tools.calls[:3])
	assert.Equal(t, tools.negSamples, tools.norms[1].NegativeControls.Names)
	assert.Equal(t, in.NegativeControl, tools.norms[1].NegativeControls.Data)
	assert.Equal(t, tools.negSamples, res.NegativeControls)
	assert.False(t, res.NegativeControlsDefaulted)
}

func TestDefaultNegativeControls(t *testing.T) {
	for _, tc := range []struct {
		name      string
		optIn     bool
		defaulted bool
		controls  []string
	}{
		{name: "opted in", optIn: true, defaulted: true, controls: []string{"A_1", "A_2", "B_1"}},
		{name: "not opted in", optIn: false, defaulted: false, controls: nil},
	} {
		t.Run(tc.name, func(t *testing.T) {
			tools := newFakeTools(afero.NewMemMapFs(), "A_1", "A_2", "B_1")
			p := testParams()
			p.NegativeNames = nil
			p.DefaultNegativeControls = tc.optIn

			res, err := newTestSequencer(tools).DiffEnrich(testInputs(), p)
			require.NoError(t, err)

			assert.Equal(t, tc.defaulted, res.NegativeControlsDefaulted)
			assert.Equal(t, tc.controls, res.NegativeControls)
			require.NotNil(t, tools.zenrich)
			assert.Equal(t, tc.controls, tools.zenrich.NegativeControls.Names)
		})
	}
}

func TestZenrichSkipped(t *testing.T) {
	tools := newFakeTools(afero.NewMemMapFs(), "A_1", "A_2")
	p := testParams()
	p.StepZThresh = 0

	res, err := newTestSequencer(tools).DiffEnrich(testInputs(), p)
	require.NoError(t, err)
	assert.Nil(t, res.Zenrich)
	assert.NotContains(t, tools.calls, "zenrich")
	assert.Len(t, res.Outputs(), 12)

	tools = newFakeTools(afero.NewMemMapFs(), "A_1", "A_2")
	p.ExactZenrichThresh = "10"
	res, err = newTestSequencer(tools).DiffEnrich(testInputs(), p)
	require.NoError(t, err)
	assert.NotNil(t, res.Zenrich)
	assert.Equal(t, "10", tools.zenrich.ExactZThresh)
}

func TestFailFast(t *testing.T) {
	fs := afero.NewMemMapFs()
	tools := newFakeTools(fs, "A_1", "A_2")
	tools.failAt = "norm_diff"

	res, err := newTestSequencer(tools).DiffEnrich(testInputs(), testParams())
	assert.Nil(t, res)
	assert.ErrorIs(t, err, errFake)
	assert.Equal(t, []string{"norm_col_sum", "norm_diff"}, tools.calls)

	// snapshots of completed stages stay
	exists, err := afero.Exists(fs, "/out/run_CS.tsv")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestUserDefinedSource(t *testing.T) {
	tools := newFakeTools(afero.NewMemMapFs(), "A_1", "A_2", "B_1")
	tbl := &source.Table{}
	tbl.Add("A_1", "grp")
	tbl.Add("B_1", "grp")

	in := testInputs()
	in.UserDefinedSource = tbl
	p := testParams()
	p.Source = source.Flags{}

	res, err := newTestSequencer(tools).DiffEnrich(in, p)
	require.NoError(t, err)
	assert.Equal(t, source.UserDefined, res.Policy)
	assert.Same(t, tbl, tools.enrich.Source)
}

func TestConfigErrors(t *testing.T) {
	for name, mutate := range map[string]func(*Inputs, *Params){
		"base without dir":    func(_ *Inputs, p *Params) { p.TSVDir = "" },
		"no source policy":    func(_ *Inputs, p *Params) { p.Source = source.Flags{} },
		"two source policies": func(_ *Inputs, p *Params) { p.Source.SelfAsSource = true },
		"policy and user table": func(in *Inputs, _ *Params) {
			in.UserDefinedSource = &source.Table{}
		},
		"hdi above one":     func(_ *Inputs, p *Params) { p.HDI = 1.5 },
		"non numeric z":     func(_ *Inputs, p *Params) { p.ExactZThresh = "a,b" },
		"three cs values":   func(_ *Inputs, p *Params) { p.ExactCSThresh = "1,2,3" },
		"no thresholds":     func(_ *Inputs, p *Params) { p.ExactZThresh = "" },
		"missing raw data":  func(in *Inputs, _ *Params) { in.RawData = nil },
		"missing bins":      func(in *Inputs, _ *Params) { in.Bins = nil },
		"negative raw":      func(_ *Inputs, p *Params) { p.RawConstraint = -1 },
		"precision below 0": func(_ *Inputs, p *Params) { p.Precision = -1 },
	} {
		t.Run(name, func(t *testing.T) {
			tools := newFakeTools(afero.NewMemMapFs(), "A_1", "A_2")
			in, p := testInputs(), testParams()
			mutate(&in, &p)

			_, err := newTestSequencer(tools).DiffEnrich(in, p)
			assert.True(t, errors.IsConfiguration(err), "got %v", err)
			assert.Empty(t, tools.calls)
		})
	}
}

func TestDiffEnrichTSV(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/in/raw.tsv", []byte("Sequence name\tA_1\tA_2\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/in/bins.tsv", []byte("p1\tp2\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/in/source.csv", []byte("sampleID,source\nA_1,A\nA_2,A\n"), 0o644))

	tools := newFakeTools(fs, "A_1", "A_2")
	p := testParams()
	p.Source = source.Flags{}

	res, err := newTestSequencer(tools).DiffEnrichTSV(TSVInputs{
		RawData:           "/in/raw.tsv",
		Bins:              "/in/bins.tsv",
		UserDefinedSource: "/in/source.csv",
	}, p)
	require.NoError(t, err)
	assert.Equal(t, source.UserDefined, res.Policy)
	assert.Equal(t, 2, res.Source.Len())
	assert.Equal(t, artifact.RawCounts, tools.norms[0].PeptideScores.Type)
	assert.Nil(t, tools.enrich.ThreshFile)

	_, err = newTestSequencer(tools).DiffEnrichTSV(TSVInputs{
		RawData:    "/in/raw.tsv",
		Bins:       "/in/bins.tsv",
		ThreshFile: "/in/missing.tsv",
	}, testParams())
	assert.True(t, errors.IsIO(err), "got %v", err)
}

func TestDiffEnrichDeconv(t *testing.T) {
	fs := afero.NewMemMapFs()
	tools := newFakeTools(fs, "A_1", "A_2")

	in := DeconvInputs{Inputs: testInputs(), Linked: artifact.New(artifact.Link, "/in/linked.tsv")}
	dp := DefaultDeconvParams()
	dp.Threshold = 3

	res, err := newTestSequencer(tools).DiffEnrichDeconv(in, testParams(), dp)
	require.NoError(t, err)

	want := append(append([]string(nil), diffEnrichStages...), "deconv")
	if diff := cmp.Diff(want, tools.calls); diff != "" {
		t.Errorf("stage order mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, res.EnrichDir, tools.deconv.Enriched)
	assert.Equal(t, 3, tools.deconv.Threshold)
	assert.Equal(t, "summation", tools.deconv.ScoringStrategy)
	assert.NotNil(t, res.ScorePerRound)
	assert.NotNil(t, res.AssignmentMap)
	assert.Len(t, res.Outputs(), 16)

	exists, err := afero.Exists(fs, "/out/run_deconv/A_1~A_2_deconv.tsv")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestDiffEnrichDeconvEnrichedOverride(t *testing.T) {
	tools := newFakeTools(afero.NewMemMapFs(), "A_1", "A_2")
	enriched := artifact.New(artifact.PeptideIDList, "/in/enriched")
	in := DeconvInputs{
		Inputs:   testInputs(),
		Linked:   artifact.New(artifact.Link, "/in/linked.tsv"),
		Enriched: enriched,
	}

	_, err := newTestSequencer(tools).DiffEnrichDeconv(in, testParams(), DefaultDeconvParams())
	require.NoError(t, err)
	assert.Same(t, enriched, tools.deconv.Enriched)
}

func TestDiffEnrichDeconvConfigErrors(t *testing.T) {
	linked := artifact.New(artifact.Link, "/in/linked.tsv")
	for name, tc := range map[string]struct {
		in DeconvInputs
		dp DeconvParams
	}{
		"missing linkage map": {in: DeconvInputs{Inputs: testInputs()}, dp: DefaultDeconvParams()},
		"unknown strategy":    {in: DeconvInputs{Inputs: testInputs(), Linked: linked}, dp: DeconvParams{ScoringStrategy: "max"}},
		"negative tie":        {in: DeconvInputs{Inputs: testInputs(), Linked: linked}, dp: DeconvParams{ScoringStrategy: "integer", ScoreTieThreshold: -1}},
	} {
		t.Run(name, func(t *testing.T) {
			tools := newFakeTools(afero.NewMemMapFs(), "A_1", "A_2")
			_, err := newTestSequencer(tools).DiffEnrichDeconv(tc.in, testParams(), tc.dp)
			assert.True(t, errors.IsConfiguration(err), "got %v", err)
			assert.Empty(t, tools.calls)
		})
	}
}

func TestDiffEnrichDeconvTSV(t *testing.T) {
	fs := afero.NewMemMapFs()
	for _, path := range []string{"/in/raw.tsv", "/in/bins.tsv", "/in/linked.tsv", "/in/map.dmp"} {
		require.NoError(t, afero.WriteFile(fs, path, []byte("x\n"), 0o644))
	}
	tools := newFakeTools(fs, "A_1", "A_2")

	res, err := newTestSequencer(tools).DiffEnrichDeconvTSV(DeconvTSVInputs{
		TSVInputs: TSVInputs{RawData: "/in/raw.tsv", Bins: "/in/bins.tsv"},
		Linked:    "/in/linked.tsv",
		IDNameMap: "/in/map.dmp",
	}, testParams(), DefaultDeconvParams())
	require.NoError(t, err)
	assert.NotNil(t, res.Deconv)
	assert.Equal(t, artifact.Link, tools.deconv.Linked.Type)
	assert.Equal(t, artifact.DMP, tools.deconv.IDNameMap.Type)

	_, err = newTestSequencer(tools).DiffEnrichDeconvTSV(DeconvTSVInputs{
		TSVInputs: TSVInputs{RawData: "/in/raw.tsv", Bins: "/in/bins.tsv"},
	}, testParams(), DefaultDeconvParams())
	assert.True(t, errors.IsConfiguration(err), "got %v", err)
}

func TestManifest(t *testing.T) {
	tools := newFakeTools(afero.NewMemMapFs(), "A_1", "A_2")
	res, err := newTestSequencer(tools).DiffEnrich(testInputs(), testParams())
	require.NoError(t, err)

	data, err := res.Manifest()
	require.NoError(t, err)

	var m manifest
	require.NoError(t, yaml.Unmarshal(data, &m))
	assert.Equal(t, "run-1", m.RunID)
	assert.Equal(t, "infer-pairs", m.SourcePolicy)
	assert.Equal(t, 2, m.SourceRows)
	assert.Equal(t, "/out/samples_source.tsv", m.SourceSnapshot)
	require.Len(t, m.Outputs, 13)
	assert.Equal(t, "col_sum", m.Outputs[0].Name)
	assert.Equal(t, "/out/run_CS.tsv", m.Outputs[0].Snapshot)
	assert.Equal(t, "zenrich", m.Outputs[12].Name)
}

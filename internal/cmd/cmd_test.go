package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ladnerlab/autopepsirf/internal/config"
	"github.com/ladnerlab/autopepsirf/internal/errors"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestDeriveSourceFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "samples.txt")
	require.NoError(t, os.WriteFile(path, []byte("A_1\nA_2\n\nB_1\n"), 0o644))

	out, err := execute(t, "", "derive-source", path)
	require.NoError(t, err)
	assert.Equal(t, "sampleID\tsource\nA_1\tA\nA_2\tA\n", out)
}

func TestDeriveSourceFromStdin(t *testing.T) {
	out, err := execute(t, "A_1\nA_2\nB_1\n", "derive-source", "--policy", "flexible-replicates", "--pairs")
	require.NoError(t, err)
	assert.Equal(t, "A_1\tA_2\nB_1\n", out)
}

func TestDeriveSourceToFile(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out", "samples_source.tsv")
	out, err := execute(t, "x_1\ny_1\n", "derive-source", "-p", "self-as-source", "-o", dst)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "sampleID\tsource\nx_1\tx_1\ny_1\ty_1\n", string(data))
}

func TestDeriveSourceErrors(t *testing.T) {
	_, err := execute(t, "A_1\n", "derive-source", "--policy", "pairs-of-three")
	assert.ErrorContains(t, err, "unknown source policy")

	_, err = execute(t, "A_1\n", "derive-source", "--policy", "user-defined")
	assert.ErrorContains(t, err, "loaded, not derived")

	_, err = execute(t, "", "derive-source", filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorContains(t, err, "io error")
}

func TestConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "autopepsirf.yaml")
	require.NoError(t, os.WriteFile(path, []byte("thresholds:\n  exact_z: \"6,10\"\n  step_z: 2\n"), 0o644))
	t.Setenv("AUTOPEPSIRF_THRESHOLDS_HDI", "0.9")

	out, err := execute(t, "", "--config", path, "config")
	require.NoError(t, err)
	assert.Contains(t, out, "exact_z:")
	assert.Contains(t, out, "6,10")
	assert.Contains(t, out, "step_z: 2")
	assert.Contains(t, out, "0.9")
}

func TestConfigFileMissing(t *testing.T) {
	_, err := execute(t, "", "--config", filepath.Join(t.TempDir(), "nope.yaml"), "config")
	assert.ErrorContains(t, err, "reading config")
}

func TestDiffEnrichFlags(t *testing.T) {
	_, err := execute(t, "", "diff-enrich")
	assert.ErrorContains(t, err, "required flag")

	// validation fails before any stage runs
	_, err = execute(t, "", "diff-enrich", "--raw-data", "raw.tsv", "--bins", "bins.tsv", "--hdi", "2")
	var verrs config.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "thresholds.hdi", verrs[0].Field)

	_, err = execute(t, "", "diff-enrich-deconv", "--raw-data", "raw.tsv", "--bins", "bins.tsv",
		"--scoring-strategy", "max")
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "deconv.scoring_strategy", verrs[0].Field)
}

func TestDiffEnrichWithoutSnapshots(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "raw.tsv")

	_, err := execute(t, "", "diff-enrich", "--work-dir", t.TempDir(), "--tsv-dir", "",
		"--raw-data", missing, "--bins", missing, "--exact-z-thresh", "6,10")

	// gets past validation and fails on the missing input
	var verrs config.ValidationErrors
	assert.False(t, errors.As(err, &verrs), "unexpected validation error: %v", err)
	assert.True(t, errors.IsIO(err))
}

type fakeManifest string

func (m fakeManifest) Manifest() ([]byte, error) { return []byte(m), nil }

func TestWriteManifest(t *testing.T) {
	fs := afero.NewMemMapFs()
	var stdout bytes.Buffer

	require.NoError(t, writeManifest(fs, &stdout, "-", fakeManifest("run_id: x\n"), zap.NewNop()))
	assert.Equal(t, "run_id: x\n", stdout.String())

	require.NoError(t, writeManifest(fs, &stdout, "/runs/manifest.yaml", fakeManifest("run_id: y\n"), zap.NewNop()))
	data, err := afero.ReadFile(fs, "/runs/manifest.yaml")
	require.NoError(t, err)
	assert.Equal(t, "run_id: y\n", string(data))
}

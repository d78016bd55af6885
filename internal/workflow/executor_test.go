package workflow

import (
	"os"
	"path/filepath"
	"testing"

	sp "github.com/scipipe/scipipe"
	spcomp "github.com/scipipe/scipipe/components"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ladnerlab/autopepsirf/internal/errors"
)

func newTestExecutor(t *testing.T) *Executor {
	t.Helper()
	e, err := NewExecutor(ExecutorConf{WorkDir: filepath.Join(t.TempDir(), "work"), Quiet: true}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

// runCommand runs command as a one-process stage reading input on {i:in}
// and writing {o:out}.
func runCommand(e *Executor, name, command, input, out string) error {
	stage := e.Stage(name)
	return e.Run(stage, []string{out}, func(wf *sp.Workflow) {
		proc := wf.NewProc(e.Proc(stage), command)
		src := spcomp.NewFileSource(wf, stage+"_in", input)
		proc.In("in").From(src.Out())
		proc.SetOut("out", out)
	})
}

func writeInput(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.tsv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func tempDirsOf(t *testing.T, e *Executor) []string {
	t.Helper()
	matches, err := filepath.Glob("_scipipe_tmp.*" + e.tag + "*")
	require.NoError(t, err)
	return matches
}

func TestStageNumbering(t *testing.T) {
	e := newTestExecutor(t)

	assert.Equal(t, "01_norm_col_sum", e.Stage("norm_col_sum"))
	assert.Equal(t, "02_norm_diff", e.Stage("norm_diff"))
	assert.Equal(t, filepath.Join(e.WorkDir(), "02_norm_diff.tsv"), e.OutPath("02_norm_diff", ".tsv"))
	assert.Equal(t, "02_norm_diff."+e.tag, e.Proc("02_norm_diff"))
}

func TestNewExecutorCreatesLogDir(t *testing.T) {
	work := filepath.Join(t.TempDir(), "run")
	e, err := NewExecutor(ExecutorConf{WorkDir: work}, nil)
	require.NoError(t, err)
	defer e.Close()

	info, err := os.Stat(filepath.Join(work, "logs"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.FileExists(t, filepath.Join(work, "logs", "scipipe.log"))

	logPath := e.LogPath("03_zscore", ".out")
	assert.True(t, filepath.IsAbs(logPath))
	assert.Equal(t, "03_zscore.out", filepath.Base(logPath))
}

func TestRunWritesOutput(t *testing.T) {
	e := newTestExecutor(t)
	in := writeInput(t, "Sequence name\tA_1\n")
	out := e.OutPath("01_copy", ".tsv")

	require.NoError(t, runCommand(e, "copy", "cat {i:in} > {o:out}", in, out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "Sequence name\tA_1\n", string(data))
	assert.Empty(t, tempDirsOf(t, e))

	scipipeLog, err := os.ReadFile(filepath.Join(e.logDir, "scipipe.log"))
	require.NoError(t, err)
	assert.Contains(t, string(scipipeLog), "AUDIT")
}

func TestRunFailingCommand(t *testing.T) {
	e := newTestExecutor(t)
	in := writeInput(t, "x\n")
	out := e.OutPath("01_copy", ".tsv")

	err := runCommand(e, "copy", "echo partial > {o:out} && echo broken >&2 && false", in, out)

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDelegate))
	assert.ErrorContains(t, err, "01_copy")
	assert.ErrorContains(t, err, "broken")
	assert.NoFileExists(t, out)
	assert.Empty(t, tempDirsOf(t, e))
}

func TestRunMissingOutput(t *testing.T) {
	e := newTestExecutor(t)
	in := writeInput(t, "x\n")
	out := e.OutPath("01_noop", ".tsv")

	err := runCommand(e, "noop", "true {i:in} {o:out}", in, out)

	assert.True(t, errors.IsDelegate(err))
	assert.ErrorContains(t, err, "expected output")
}

func TestRunAfterFailedRunOnSameInput(t *testing.T) {
	in := writeInput(t, "Sequence name\tA_1\n")

	failed := newTestExecutor(t)
	err := runCommand(failed, "copy", "false {i:in} > {o:out}", in, failed.OutPath("01_copy", ".tsv"))
	require.True(t, errors.IsDelegate(err))

	next := newTestExecutor(t)
	out := next.OutPath("01_copy", ".tsv")
	require.NoError(t, runCommand(next, "copy", "cat {i:in} > {o:out}", in, out))
	assert.FileExists(t, out)
}

func TestQuote(t *testing.T) {
	for in, expected := range map[string]string{
		"plain":      "'plain'",
		"with space": "'with space'",
		"it's":       `'it'\''s'`,
		"A_1,A_2":    "'A_1,A_2'",
		"":           "''",
	} {
		if actual := Quote(in); actual != expected {
			t.Errorf("Wrong quoting of %q:\nEXPECTED:\n%s\nACTUAL:\n%s\n", in, expected, actual)
		}
	}
}

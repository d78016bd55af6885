// Package workflow runs single pipeline stages as scipipe workflows.
//
// Every external action becomes one small workflow: file sources for the
// inputs, one process for the tool, and the outputs left in the run's work
// directory. Stages are numbered in the order they run, so the work
// directory reads like a log of the pipeline.
package workflow

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	sp "github.com/scipipe/scipipe"
	"go.uber.org/zap"

	"github.com/ladnerlab/autopepsirf/internal/errors"
)

// Executor runs stages one at a time. It is not safe for concurrent use.
type Executor struct {
	workDir    string
	logDir     string
	tag        string
	quiet      bool
	plotGraphs bool
	log        *zap.Logger
	scipipeLog *os.File
	seq        int
}

// ExecutorConf contains parameters for initializing an Executor
type ExecutorConf struct {
	// WorkDir receives every stage output.
	WorkDir string
	// Quiet keeps scipipe's own log lines out of stderr. They are always
	// written to logs/scipipe.log.
	Quiet bool
	// PlotGraphs writes a .dot graph of each stage workflow to the log dir.
	PlotGraphs bool
}

// NewExecutor creates the work and log directories and returns an Executor.
// Close releases its scipipe log file.
func NewExecutor(conf ExecutorConf, log *zap.Logger) (*Executor, error) {
	if log == nil {
		log = zap.NewNop()
	}
	workDir, err := filepath.Abs(conf.WorkDir)
	if err != nil {
		return nil, errors.NewIOError("resolve", conf.WorkDir, err)
	}
	logDir := filepath.Join(workDir, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, errors.NewIOError("mkdir", logDir, err)
	}
	logPath := filepath.Join(logDir, "scipipe.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.NewIOError("open", logPath, err)
	}
	return &Executor{
		workDir:    workDir,
		logDir:     logDir,
		tag:        uuid.NewString()[:8],
		quiet:      conf.Quiet,
		plotGraphs: conf.PlotGraphs,
		log:        log,
		scipipeLog: logFile,
	}, nil
}

// Close closes the scipipe log file.
func (e *Executor) Close() error {
	scipipeOut.set(nil)
	return e.scipipeLog.Close()
}

// WorkDir returns the directory stage outputs are written to.
func (e *Executor) WorkDir() string { return e.workDir }

// Stage returns a fresh, numbered stage name.
func (e *Executor) Stage(name string) string {
	e.seq++
	return fs("%02d_%s", e.seq, name)
}

// Proc returns the scipipe process name for a stage. scipipe keys its
// temporary directories, created in the current directory, on the process
// name and input paths, so the name carries a per-executor tag.
func (e *Executor) Proc(stage string) string {
	return stage + "." + e.tag
}

// OutPath returns the work-dir path of a stage output.
func (e *Executor) OutPath(stage, suffix string) string {
	return filepath.Join(e.workDir, stage+suffix)
}

// LogPath returns the absolute path of a stage's tool log. It is absolute
// because scipipe runs commands inside a temporary sub-directory.
func (e *Executor) LogPath(stage, suffix string) string {
	return filepath.Join(e.logDir, stage+suffix)
}

// Run builds the stage workflow with build, runs it to completion and checks
// that every path in outs exists afterwards. A failing command is returned
// as a DelegateError for the stage.
func (e *Executor) Run(stage string, outs []string, build func(wf *sp.Workflow)) error {
	e.installLog()
	// scipipe opens the file it is given for every workflow; the real log
	// goes through the loggers installed above.
	wf := sp.NewWorkflowCustomLogFile(stage, 1, os.DevNull)
	build(wf)

	tasks := &taskRunner{}
	for _, proc := range wf.Procs() {
		if p, ok := proc.(*sp.Process); ok {
			p.CustomExecute = tasks.execute
		}
	}

	if e.plotGraphs {
		wf.PlotGraph(e.LogPath(stage, ".dot"))
	}

	e.log.Debug("Running stage", zap.String("stage", stage), zap.Strings("outputs", outs))
	wf.Run()

	if err := tasks.err(); err != nil {
		return errors.NewDelegateError(stage, err)
	}
	for _, out := range outs {
		if _, err := os.Stat(out); err != nil {
			return errors.NewDelegateError(stage, fmt.Errorf("expected output %s: %w", out, err))
		}
	}
	return nil
}

func (e *Executor) installLog() {
	var w io.Writer = e.scipipeLog
	if !e.quiet {
		w = io.MultiWriter(e.scipipeLog, os.Stderr)
	}
	installScipipeLog()
	scipipeOut.set(w)
}

// taskRunner executes scipipe tasks in place of scipipe's own shell runner,
// which exits the process when a command fails.
type taskRunner struct {
	mu       sync.Mutex
	failures []error
}

func (r *taskRunner) execute(t *sp.Task) {
	cmd := exec.Command("bash", "-c", t.Command)
	cmd.Dir = t.TempDir()
	out, err := cmd.CombinedOutput()
	if err == nil {
		return
	}

	// Drop partial outputs so scipipe has nothing to move into the work
	// dir. It removes the emptied temp dir itself.
	if rmErr := os.RemoveAll(t.TempDir()); rmErr == nil {
		os.MkdirAll(t.TempDir(), 0o755)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, &commandError{
		command: t.Command,
		output:  strings.TrimSpace(string(out)),
		cause:   err,
	})
}

func (r *taskRunner) err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return errors.Join(r.failures...)
}

type commandError struct {
	command string
	output  string
	cause   error
}

func (e *commandError) Error() string {
	msg := fs("command failed: %v\ncommand: %s", e.cause, e.command)
	if e.output != "" {
		msg += "\noutput: " + e.output
	}
	return msg
}

func (e *commandError) Unwrap() error { return e.cause }

// Quote single-quotes s for the shell.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// fs is a short for fmt.Sprintf
func fs(pat string, v ...interface{}) string {
	return fmt.Sprintf(pat, v...)
}

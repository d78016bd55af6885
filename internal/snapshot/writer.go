// Package snapshot writes TSV renderings of pipeline artifacts to an output
// directory, under names derived from the pipeline parameters.
package snapshot

import (
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/ladnerlab/autopepsirf/internal/artifact"
	"github.com/ladnerlab/autopepsirf/internal/errors"
	"github.com/ladnerlab/autopepsirf/internal/source"
)

// Writer copies artifacts into Dir. A Writer with an empty Dir is disabled
// and every Save is a no-op.
type Writer struct {
	fs   afero.Fs
	dir  string
	base string
}

// NewWriter returns a Writer for dir. An empty base falls back to
// DefaultBase.
func NewWriter(fs afero.Fs, dir, base string) *Writer {
	if dir != "" && base == "" {
		base = DefaultBase
	}
	return &Writer{fs: fs, dir: dir, base: base}
}

// Enabled reports whether snapshots are written at all.
func (w *Writer) Enabled() bool { return w.dir != "" }

// Dir returns the snapshot directory.
func (w *Writer) Dir() string { return w.dir }

// Base returns the file name base.
func (w *Writer) Base() string { return w.base }

// Prepare creates the snapshot directory.
func (w *Writer) Prepare() error {
	if !w.Enabled() {
		return nil
	}
	if err := w.fs.MkdirAll(w.dir, 0o755); err != nil {
		return errors.NewIOError("mkdir", w.dir, err)
	}
	return nil
}

// Save copies the file or directory behind a into the snapshot directory as
// name and returns the written path. Existing files are overwritten.
func (w *Writer) Save(a *artifact.Artifact, name string) (string, error) {
	if !w.Enabled() || a == nil {
		return "", nil
	}
	dst := filepath.Join(w.dir, name)

	info, err := w.fs.Stat(a.Path)
	if err != nil {
		return "", errors.NewIOError("stat", a.Path, err)
	}
	if info.IsDir() {
		err = w.copyDir(a.Path, dst)
	} else {
		err = w.copyFile(a.Path, dst, info.Mode())
	}
	if err != nil {
		return "", err
	}
	return dst, nil
}

// SaveTable renders tbl as TSV into the snapshot directory as name.
func (w *Writer) SaveTable(tbl *source.Table, name string) (string, error) {
	if !w.Enabled() {
		return "", nil
	}
	dst := filepath.Join(w.dir, name)
	if err := WriteTable(w.fs, dst, tbl); err != nil {
		return "", err
	}
	return dst, nil
}

// WriteTable renders tbl as TSV at path on fs.
func WriteTable(fs afero.Fs, path string, tbl *source.Table) error {
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.NewIOError("mkdir", filepath.Dir(path), err)
	}
	f, err := fs.Create(path)
	if err != nil {
		return errors.NewIOError("create", path, err)
	}
	if err := tbl.WriteTSV(f); err != nil {
		f.Close()
		return errors.NewIOError("write", path, err)
	}
	if err := f.Close(); err != nil {
		return errors.NewIOError("close", path, err)
	}
	return nil
}

func (w *Writer) copyFile(src, dst string, mode os.FileMode) error {
	in, err := w.fs.Open(src)
	if err != nil {
		return errors.NewIOError("open", src, err)
	}
	defer in.Close()

	out, err := w.fs.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode.Perm()|0o200)
	if err != nil {
		return errors.NewIOError("create", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.NewIOError("write", dst, err)
	}
	if err := out.Close(); err != nil {
		return errors.NewIOError("close", dst, err)
	}
	return nil
}

func (w *Writer) copyDir(src, dst string) error {
	return afero.Walk(w.fs, src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return errors.NewIOError("walk", path, err)
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return errors.NewIOError("resolve", path, err)
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			if err := w.fs.MkdirAll(target, 0o755); err != nil {
				return errors.NewIOError("mkdir", target, err)
			}
			return nil
		}
		return w.copyFile(path, target, info.Mode())
	})
}

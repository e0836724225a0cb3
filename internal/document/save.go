package document

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakoblorz/go-projectdoc/internal/codec"
	"github.com/jakoblorz/go-projectdoc/internal/filesystem"
	"github.com/jakoblorz/go-projectdoc/internal/jobs"
	"github.com/jakoblorz/go-projectdoc/internal/models"
	"github.com/jakoblorz/go-projectdoc/internal/views"
)

// Save phases, as reported by SaveError.
const (
	PhaseWrite   = "write"
	PhaseVerify  = "verify"
	PhaseRotate  = "rotate"
	PhaseReplace = "replace"
)

// SaveError describes a failed save. Unless it says otherwise, the file
// that was being replaced is untouched.
type SaveError struct {
	Path  string
	Temp  string
	Phase string
	Err   error

	// Kept is set when the new content could not be moved into place and
	// was left at Temp.
	Kept bool
}

func (e *SaveError) Error() string {
	if e.Kept {
		return fmt.Sprintf("failed to save %s during %s: %v; the new content was kept in %s",
			e.Path, e.Phase, e.Err, e.Temp)
	}
	return fmt.Sprintf("failed to save %s during %s: %v; the original file %s is safe",
		e.Path, e.Phase, e.Err, e.Path)
}

func (e *SaveError) Unwrap() error {
	return e.Err
}

// OriginalSafe reports whether the target file still holds its previous
// content.
func (e *SaveError) OriginalSafe() bool {
	return !e.Kept
}

type saveSnapshot struct {
	path     string
	data     []byte
	revision uint64
}

// Save writes the document to path (or the current file path when path is
// empty) and waits for the result. With keepBackups the previous file is
// rotated to path.bak.
func (d *Document) Save(path string, keepBackups bool) error {
	return <-d.SaveAsync(path, keepBackups)
}

// SaveAsync starts a save in the background. The returned channel receives
// exactly one value.
func (d *Document) SaveAsync(path string, keepBackups bool) <-chan error {
	result := make(chan error, 1)
	err := d.do(func() {
		snap, err := d.snapshot(path)
		if err != nil {
			result <- err
			return
		}

		opts := writeOptions{keepBackups: keepBackups, keepFailed: d.cfg.Document.KeepFailedSaves}
		fs := d.fs
		job := func(tok *jobs.Token) (any, error) {
			return nil, writeAtomic(tok, fs, snap.path, snap.data, opts)
		}

		a := jobs.NewAdapter("save", job, saveListener{d: d, snap: snap}, d.adapterOptions()...)
		d.saves[a] = result
		if err := d.startJob(a); err != nil {
			delete(d.saves, a)
			result <- err
		}
	})
	if err != nil {
		result <- err
	}
	return result
}

// snapshot encodes the tree on the loop so the write can run off it.
func (d *Document) snapshot(path string) (*saveSnapshot, error) {
	if d.state != models.StateLoaded {
		return nil, invalidState("save", d.state)
	}
	if path == "" {
		path = d.filePath
	}
	if path == "" {
		return nil, ErrNoPath
	}

	data, err := codec.Encode(&codec.Project{Title: d.title, Tree: d.tree, Bindings: d.bindings})
	if err != nil {
		return nil, &SaveError{Path: path, Phase: PhaseWrite, Err: err}
	}
	return &saveSnapshot{path: path, data: data, revision: d.revision}, nil
}

type saveListener struct {
	d    *Document
	snap *saveSnapshot
}

func (l saveListener) OnJobResult(a *jobs.Adapter, _ any) {
	d := l.d
	result := l.finish(a)

	if d.state == models.StateLoaded {
		d.filePath = l.snap.path
		// mutations made while writing keep the document dirty
		if d.revision == l.snap.revision {
			d.dirty = false
		}
		d.registry.Fire(views.KindProjectStateChanged)
	}
	d.logger.Info("project saved", zap.String("path", l.snap.path))
	if result != nil {
		result <- nil
	}
}

func (l saveListener) OnJobFailed(a *jobs.Adapter, err error) {
	d := l.d
	result := l.finish(a)

	d.lastErr = err
	d.logger.Error("project save failed", zap.String("path", l.snap.path), zap.Error(err))
	if result != nil {
		result <- err
	}
}

func (l saveListener) finish(a *jobs.Adapter) chan error {
	delete(l.d.adapters, a)
	ch := l.d.saves[a]
	delete(l.d.saves, a)
	return ch
}

type writeOptions struct {
	keepBackups bool
	keepFailed  bool
}

// writeAtomic performs the three save phases: write to a fresh sibling
// file, verify it decodes, then move it into place.
func writeAtomic(tok *jobs.Token, fs filesystem.FileSystem, path string, data []byte, opts writeOptions) error {
	temp := nextFreeName(fs, path)

	fail := func(phase string, err error) error {
		if !opts.keepFailed {
			if fs.Exists(temp) {
				_ = fs.Remove(temp)
			}
		}
		return &SaveError{Path: path, Temp: temp, Phase: phase, Err: err}
	}

	// phase 1
	if err := fs.WriteFile(temp, data, 0644); err != nil {
		return fail(PhaseWrite, err)
	}

	// phase 2
	written, err := fs.ReadFile(temp)
	if err == nil {
		err = codec.Verify(written)
	}
	if err != nil {
		return fail(PhaseVerify, err)
	}

	if err := tok.Err(); err != nil {
		return fail(PhaseVerify, err)
	}

	// phase 3
	backup := path + ".bak"
	rotated := false
	aside := ""
	if fs.Exists(path) {
		if opts.keepBackups {
			// the old backup is only dropped once the new file is in place
			if fs.Exists(backup) {
				aside = nextFreeName(fs, backup)
				if err := fs.Rename(backup, aside); err != nil {
					return fail(PhaseRotate, fmt.Errorf("failed to move old backup aside: %w", err))
				}
			}
			if err := fs.Rename(path, backup); err != nil {
				restoreBackup(fs, aside, backup)
				return fail(PhaseRotate, fmt.Errorf("failed to create backup: %w", err))
			}
			rotated = true
		} else if err := fs.Remove(path); err != nil {
			return fail(PhaseRotate, fmt.Errorf("failed to remove previous file: %w", err))
		}
	}

	if err := fs.Rename(temp, path); err != nil {
		if rotated {
			if restoreErr := fs.Rename(backup, path); restoreErr == nil {
				restoreBackup(fs, aside, backup)
				return fail(PhaseReplace, err)
			}
		}
		return &SaveError{Path: path, Temp: temp, Phase: PhaseReplace, Err: err, Kept: true}
	}
	if aside != "" {
		_ = fs.Remove(aside)
	}
	return nil
}

// restoreBackup moves a backup set aside by writeAtomic back into place.
func restoreBackup(fs filesystem.FileSystem, aside, backup string) {
	if aside != "" {
		_ = fs.Rename(aside, backup)
	}
}

// nextFreeName returns the first path.N, N >= 1, that does not exist.
func nextFreeName(fs filesystem.FileSystem, path string) string {
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s.%d", path, n)
		if !fs.Exists(candidate) {
			return candidate
		}
	}
}

// IsSaveError reports whether err is a SaveError.
func IsSaveError(err error) bool {
	var saveErr *SaveError
	return errors.As(err, &saveErr)
}

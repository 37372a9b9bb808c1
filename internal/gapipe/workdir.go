package gapipe

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"gapipe/internal/repo"
	"gapipe/internal/services"
)

const lockFileName = "gapipe.lock"

// Workdir is the per-object working directory: the configuration snapshot,
// the run log, the exception log, and a lock so two runs cannot share it.
type Workdir struct {
	Dir          string
	SnapshotFile string
	LogFile      string

	lock *flock.Flock
}

// NewWorkdir derives the working directory layout from the object identity
// via the configuration snapshot product's canonical path.
func NewWorkdir(r *repo.Repository, id Identity) (*Workdir, error) {
	snapshot, err := r.ProductPath(ProductGAObjectConfig, id.ToRepo())
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(snapshot)
	base := strings.TrimSuffix(filepath.Base(snapshot), filepath.Ext(snapshot))
	return &Workdir{
		Dir:          dir,
		SnapshotFile: snapshot,
		LogFile:      filepath.Join(dir, "log", base+".log"),
	}, nil
}

// TracebackFile is the append-mode exception log written next to the run log.
func (w *Workdir) TracebackFile() string {
	ext := filepath.Ext(w.LogFile)
	return w.LogFile[:len(w.LogFile)-len(ext)] + ".traceback"
}

// Create makes the directory tree.
func (w *Workdir) Create() error {
	for _, dir := range []string{w.Dir, filepath.Dir(w.LogFile)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return services.Wrap(services.ErrTransient, "workdir", "create", dir, err)
		}
	}
	return nil
}

// Lock takes the working directory lock without blocking. A held lock means
// another run is processing the same object.
func (w *Workdir) Lock() error {
	if w.lock == nil {
		w.lock = flock.New(filepath.Join(w.Dir, lockFileName))
	}
	ok, err := w.lock.TryLock()
	if err != nil {
		return services.Wrap(services.ErrTransient, "workdir", "lock", w.Dir, err)
	}
	if !ok {
		return services.Wrap(services.ErrValidation, "workdir", "lock",
			fmt.Sprintf("working directory %s is locked by another run", w.Dir), nil)
	}
	return nil
}

// Unlock releases the lock if held. Safe to call more than once.
func (w *Workdir) Unlock() error {
	if w.lock == nil {
		return nil
	}
	return w.lock.Unlock()
}

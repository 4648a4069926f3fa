// Package backfill assigns identifiers to the records of JSON array files
// and rewrites the files in place.
package backfill

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sha1n/uuid-backfill/internal/document"
	"github.com/sha1n/uuid-backfill/internal/identity"
)

// DefaultLockTimeout bounds how long a rewrite waits for another process.
const DefaultLockTimeout = 10 * time.Second

// Status is the outcome of processing one file.
type Status int

const (
	// StatusUpdated means identifiers were added and the file was rewritten.
	StatusUpdated Status = iota
	// StatusUnchanged means every record already had an identifier.
	StatusUnchanged
	// StatusWouldUpdate means identifiers would be added, but this was a dry run.
	StatusWouldUpdate
	// StatusFailed means processing stopped with an error and nothing was written.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusUpdated:
		return "updated"
	case StatusUnchanged:
		return "unchanged"
	case StatusWouldUpdate:
		return "would_update"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result describes what happened to one file.
type Result struct {
	Path   string
	Status Status
	Added  int    // identifiers added, or that would be added in a dry run
	Diff   string // unified diff, dry run only
	Err    error  // set when Status is StatusFailed
}

// Summary aggregates the results of a run.
type Summary struct {
	Files     int
	Updated   int
	Unchanged int
	Failed    int
	Added     int
}

// HasFailures reports whether any file failed.
func (s Summary) HasFailures() bool {
	return s.Failed > 0
}

func (s *Summary) add(r Result) {
	s.Files++
	s.Added += r.Added
	switch r.Status {
	case StatusUpdated, StatusWouldUpdate:
		s.Updated++
	case StatusUnchanged:
		s.Unchanged++
	case StatusFailed:
		s.Failed++
	}
}

// Observer is notified as each file of a run is processed.
type Observer interface {
	Started(path string)
	Finished(res Result)
}

// Options configures a Backfiller. Zero values select the defaults.
type Options struct {
	Field       string
	Generator   identity.Generator
	Indent      int
	DryRun      bool
	LockDir     string
	LockTimeout time.Duration
	WriteFile   WriteFunc
	Logger      *slog.Logger
	// Root, when set, confines processing to files whose real path lies
	// inside it. Symlinks are followed before the check.
	Root string
}

// Backfiller adds missing identifiers to JSON array files.
// It holds no per-file state; each file is processed in isolation.
type Backfiller struct {
	opts Options
}

// New creates a Backfiller, filling in defaults for unset options.
func New(opts Options) *Backfiller {
	if opts.Field == "" {
		opts.Field = DefaultField
	}
	if opts.Generator == nil {
		opts.Generator = identity.V4{}
	}
	if opts.Indent <= 0 {
		opts.Indent = document.DefaultIndent
	}
	if opts.LockDir == "" {
		opts.LockDir = DefaultLockDir()
	}
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = DefaultLockTimeout
	}
	if opts.WriteFile == nil {
		opts.WriteFile = WriteFileAtomic
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Backfiller{opts: opts}
}

// DefaultLockDir returns the directory holding rewrite lock files. It is
// private to the current user: the user cache dir when there is one,
// otherwise a uid-suffixed directory under the temp dir.
func DefaultLockDir() string {
	return defaultLockDir(os.UserCacheDir, os.Getuid())
}

func defaultLockDir(cacheDir func() (string, error), uid int) string {
	if dir, err := cacheDir(); err == nil && dir != "" {
		return filepath.Join(dir, "uuid-backfill", "locks")
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("uuid-backfill-locks-%d", uid))
}

// Field returns the member name identifiers are stored under.
func (b *Backfiller) Field() string {
	return b.opts.Field
}

// DryRun reports whether the Backfiller only previews changes.
func (b *Backfiller) DryRun() bool {
	return b.opts.DryRun
}

// Run processes paths one after another, in order. A failure on one file
// never stops the others. Run only returns an error when ctx is canceled
// before every path was processed.
func (b *Backfiller) Run(ctx context.Context, paths []string, obs Observer) (Summary, error) {
	var summary Summary
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		if obs != nil {
			obs.Started(path)
		}
		res := b.Process(ctx, path)
		summary.add(res)
		if obs != nil {
			obs.Finished(res)
		}
	}
	return summary, nil
}

// Process runs the full cycle for one file: existence check, parse, shape
// validation, identifier assignment and, if anything changed, the rewrite.
func (b *Backfiller) Process(ctx context.Context, path string) Result {
	res := b.process(ctx, path)
	if res.Err != nil {
		res.Status = StatusFailed
		b.opts.Logger.Debug("File failed", "path", path, "error", res.Err)
	} else {
		b.opts.Logger.Debug("File processed", "path", path, "status", res.Status.String(), "added", res.Added)
	}
	return res
}

func (b *Backfiller) process(ctx context.Context, path string) Result {
	res := Result{Path: path}

	target, perm, err := resolve(path)
	if err != nil {
		res.Err = err
		return res
	}
	if b.opts.Root != "" {
		if err := confine(b.opts.Root, path, target); err != nil {
			res.Err = err
			return res
		}
	}

	if !b.opts.DryRun {
		lock := NewFileLock(LockPathFor(b.opts.LockDir, target))
		if err := b.acquire(ctx, lock, path); err != nil {
			res.Err = fmt.Errorf("%w '%s': %w", ErrLock, path, err)
			return res
		}
		defer func() {
			if err := lock.Unlock(); err != nil {
				b.opts.Logger.Warn("Failed to release file lock", "path", path, "lock", lock.Path(), "error", err)
			}
		}()
	}

	data, err := os.ReadFile(target)
	if err != nil {
		res.Err = fmt.Errorf("%w: %w", ErrFileNotFound, err)
		return res
	}

	doc, err := document.Parse(data)
	if err != nil {
		res.Err = fmt.Errorf("%w: %w", ErrParse, err)
		return res
	}

	added, err := Assign(doc, b.opts.Field, b.opts.Generator)
	if err != nil {
		res.Err = err
		return res
	}
	if added == 0 {
		res.Status = StatusUnchanged
		return res
	}

	out, err := document.Marshal(doc, document.WithIndent(b.opts.Indent))
	if err != nil {
		res.Err = fmt.Errorf("%w: %w", ErrWrite, err)
		return res
	}

	res.Added = added
	if b.opts.DryRun {
		diff, err := unifiedDiff(path, data, out)
		if err != nil {
			res.Err = fmt.Errorf("failed to render diff: %w", err)
			return res
		}
		res.Status = StatusWouldUpdate
		res.Diff = diff
		return res
	}

	if err := b.opts.WriteFile(target, out, perm); err != nil {
		res.Added = 0
		res.Err = fmt.Errorf("%w: %w", ErrWrite, err)
		return res
	}
	res.Status = StatusUpdated
	return res
}

// acquire takes the lock without waiting when it is free, and otherwise
// waits up to the configured timeout.
func (b *Backfiller) acquire(ctx context.Context, lock *FileLock, path string) error {
	acquired, err := lock.TryLock()
	if err != nil {
		return err
	}
	if acquired {
		return nil
	}

	b.opts.Logger.Debug("Waiting for file lock", "path", path, "lock", lock.Path(), "timeout", b.opts.LockTimeout)
	if err := lock.LockWithContext(ctx, b.opts.LockTimeout); err != nil {
		b.opts.Logger.Warn("Failed to acquire file lock", "path", path, "lock", lock.Path(), "error", err)
		return err
	}
	return nil
}

// confine rejects target unless it lies inside root once both are resolved.
func confine(root, path, target string) error {
	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOutsideRoot, err)
	}
	realRoot, err = filepath.Abs(realRoot)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOutsideRoot, err)
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOutsideRoot, err)
	}

	rel, err := filepath.Rel(realRoot, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%w: '%s' resolves outside '%s'", ErrOutsideRoot, path, root)
	}
	return nil
}

// resolve checks that path names a regular file and returns the real file
// behind any symlinks along with its permission bits.
func resolve(path string) (string, fs.FileMode, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", 0, fmt.Errorf("%w: '%s' does not exist", ErrFileNotFound, path)
		}
		return "", 0, fmt.Errorf("%w: %w", ErrFileNotFound, err)
	}
	if !info.Mode().IsRegular() {
		return "", 0, fmt.Errorf("%w: '%s' is not a regular file", ErrFileNotFound, path)
	}

	target, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %w", ErrFileNotFound, err)
	}
	return target, info.Mode().Perm(), nil
}

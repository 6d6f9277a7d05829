// Package store implements the content-addressable store (component C):
// each distinct archive's extracted contents are kept exactly once,
// keyed by the archive's content hash, with a completion sentinel
// guarding against partially-extracted trees. Grounded on the teacher's
// fs.go (CopyDir/CopyFile/renameWithFallback atomic-rename-with-fallback
// idiom, generalized here to hardlink-or-copy) and
// original_source/crates/libretto-cache/src/lib.rs (cache-entry layout,
// last-accessed tracking, prune-by-age), with per-key locking via
// gofrs/flock (vendored by the teacher as theckman/go-flock) rather than
// a single process-wide mutex, since store must also be safe across
// concurrent libretto processes per spec §5.
package store

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const sentinelName = ".complete"

// casLockTimeout bounds how long Store waits to acquire a key's exclusive
// lock before giving up with a fatal CasLockTimeoutError, per spec
// §5/§7's CasLockTimeout(key) -- another process holding the lock (stuck
// extracting, or dead without releasing it) must not wedge this one
// forever.
const casLockTimeout = 30 * time.Second

// CasLockTimeoutError is returned when a key's store lock could not be
// acquired within casLockTimeout.
type CasLockTimeoutError struct{ Key string }

func (e *CasLockTimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s acquiring store lock for %s", casLockTimeout, e.Key)
}

// Store is a content-addressable directory tree rooted at Dir. Each
// entry lives at Dir/<key> with a sibling Dir/<key>.complete sentinel
// file written only after extraction has fully succeeded.
type Store struct {
	dir string
}

// New returns a Store rooted at dir, creating it if necessary.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating store root %s", dir)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) entryPath(key string) string    { return filepath.Join(s.dir, key) }
func (s *Store) sentinelPath(key string) string { return filepath.Join(s.dir, key+sentinelName) }
func (s *Store) lockPath(key string) string     { return filepath.Join(s.dir, key+".lock") }

// Lookup returns the entry directory for key and true iff its
// completion sentinel is present, per spec §4.7's invariant that a
// lookup either returns a fully populated directory or nothing.
func (s *Store) Lookup(key string) (string, bool) {
	path := s.entryPath(key)
	if _, err := os.Stat(s.sentinelPath(key)); err != nil {
		return "", false
	}
	if info, err := os.Stat(path); err != nil || !info.IsDir() {
		return "", false
	}
	touchAccessTime(s.sentinelPath(key))
	return path, true
}

// Store extracts archivePath (a zip or tar[.gz] file) under an exclusive
// per-key lock and installs it at key's entry path, returning that path.
// If key is already complete by the time the lock is acquired (a losing
// racer), the existing entry is returned without re-extracting, and
// sourceURL is discarded: the sentinel keeps whichever URL completed
// the entry first, per spec §6's documented either-is-valid choice.
func (s *Store) Store(key, archivePath, sourceURL string) (string, error) {
	fl := flock.New(s.lockPath(key))
	ctx, cancel := context.WithTimeout(context.Background(), casLockTimeout)
	defer cancel()
	locked, lockErr := fl.TryLockContext(ctx, 50*time.Millisecond)
	if !locked {
		if lockErr == context.DeadlineExceeded {
			return "", &CasLockTimeoutError{Key: key}
		}
		return "", errors.Wrapf(lockErr, "acquiring store lock for %s", key)
	}
	defer fl.Unlock()

	if path, ok := s.Lookup(key); ok {
		return path, nil
	}

	entryPath := s.entryPath(key)
	tempPath := entryPath + ".tmp-" + uuid.NewString()
	if err := os.MkdirAll(tempPath, 0o755); err != nil {
		return "", errors.Wrap(err, "creating temp extraction directory")
	}
	// Any failure past this point must not leave tempPath behind.
	succeeded := false
	defer func() {
		if !succeeded {
			os.RemoveAll(tempPath)
		}
	}()

	if err := extractArchive(archivePath, tempPath); err != nil {
		return "", errors.Wrapf(err, "extracting %s", archivePath)
	}

	if err := fsyncDir(tempPath); err != nil {
		return "", errors.Wrap(err, "fsyncing extracted tree")
	}

	os.RemoveAll(entryPath)
	if err := os.Rename(tempPath, entryPath); err != nil {
		return "", errors.Wrap(err, "renaming extracted tree into place")
	}

	if err := writeSentinel(s.sentinelPath(key), sourceURL); err != nil {
		return "", errors.Wrap(err, "writing completion sentinel")
	}

	succeeded = true
	return entryPath, nil
}

// LinkInto materializes entryPath's contents at vendorPath, replacing
// anything already there. Each file is hardlinked where possible; a
// hardlink failure (cross-device, or an unsupported filesystem) falls
// back to a plain copy, mirroring the teacher's renameWithFallback's
// cross-device fallback shape.
func LinkInto(entryPath, vendorPath string) error {
	if err := os.RemoveAll(vendorPath); err != nil {
		return errors.Wrapf(err, "clearing existing vendor path %s", vendorPath)
	}
	if err := os.MkdirAll(vendorPath, 0o755); err != nil {
		return errors.Wrap(err, "creating vendor directory")
	}

	return filepath.Walk(entryPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(entryPath, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		dest := filepath.Join(vendorPath, rel)

		if info.IsDir() {
			return os.MkdirAll(dest, info.Mode())
		}
		if info.Mode()&os.ModeSymlink != 0 {
			target, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(target, dest)
		}

		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		if err := os.Link(path, dest); err != nil {
			return copyFile(path, dest, info.Mode())
		}
		return nil
	})
}

// Prune removes entries whose sentinel has not been accessed (via
// Lookup or creation) within maxAge, returning the number removed.
func (s *Store) Prune(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, errors.Wrap(err, "reading store root")
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, sentinelName) {
			continue
		}
		key := strings.TrimSuffix(name, sentinelName)
		if key == "" {
			continue
		}

		info, err := os.Stat(filepath.Join(s.dir, name))
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		os.RemoveAll(s.entryPath(key))
		os.Remove(s.sentinelPath(key))
		os.Remove(s.lockPath(key))
		removed++
	}
	return removed, nil
}

// writeSentinel creates the completion marker, recording sourceURL for
// debugging per spec §6's CAS layout (".complete (non-empty; contains
// source URL for debugging)").
func writeSentinel(path, sourceURL string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintf(f, "%s\n", sourceURL)
	return err
}

func touchAccessTime(path string) {
	now := time.Now()
	os.Chtimes(path, now, now)
}

func fsyncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}

func copyFile(src, dest string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

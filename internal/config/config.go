// Package config locates a project root by walking up from the working
// directory looking for a manifest file, and resolves the cache
// directory libretto's registry/download/store components share.
// Grounded on the teacher's main.go (findProjectRoot/
// findProjectRootFromWD's upward directory walk) and context.go (Ctx as
// a small process-wide struct built once at startup).
package config

import (
	"os"
	"path/filepath"

	"github.com/libretto-pm/libretto/internal/manifest"
	"github.com/pkg/errors"
)

// ErrProjectNotFound is returned when no manifest file is found walking
// up from the starting directory to the filesystem root.
var ErrProjectNotFound = errors.New("could not find " + manifest.FileName + " in this or any parent directory")

// Config is the resolved, process-wide set of filesystem locations
// libretto's components operate against.
type Config struct {
	// ProjectRoot is the directory containing the manifest file.
	ProjectRoot string
	// CacheDir is the root of the shared registry-metadata/CAS cache.
	CacheDir string
	// VendorDir is where resolved packages are materialized.
	VendorDir string
}

// FindProjectRoot walks up from start (or the working directory, if
// start is empty) looking for a manifest file.
func FindProjectRoot(start string) (string, error) {
	from := start
	if from == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", errors.Wrap(err, "getting working directory")
		}
		from = wd
	}
	from = filepath.Clean(from)

	for {
		candidate := filepath.Join(from, manifest.FileName)
		if _, err := os.Stat(candidate); err == nil {
			return from, nil
		} else if !os.IsNotExist(err) {
			return "", err
		}

		parent := filepath.Dir(from)
		if parent == from {
			return "", ErrProjectNotFound
		}
		from = parent
	}
}

// Load builds a Config rooted at the discovered project root, with the
// cache directory resolved per-platform (honoring LIBRETTO_CACHE_DIR if
// set, the way the teacher's Ctx honors GOPATH overrides).
func Load(startDir string) (*Config, error) {
	root, err := FindProjectRoot(startDir)
	if err != nil {
		return nil, err
	}

	cacheDir := os.Getenv("LIBRETTO_CACHE_DIR")
	if cacheDir == "" {
		cacheDir, err = defaultCacheDir()
		if err != nil {
			return nil, err
		}
	}

	return &Config{
		ProjectRoot: root,
		CacheDir:    cacheDir,
		VendorDir:   filepath.Join(root, "vendor"),
	}, nil
}

func defaultCacheDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", errors.Wrap(err, "resolving user cache directory")
	}
	return filepath.Join(base, "libretto"), nil
}

package registry

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// metadataTTL is how long a cached package payload is trusted before the
// client revalidates it against the registry, per spec §4.3.
const metadataTTL = 5 * time.Minute

// diskCache persists raw registry response bodies under
// "<cacheDir>/metadata/<owner>~<name>.json", mtime-gated by metadataTTL.
// Grounded on the teacher's repo_cache.go (per-project on-disk cache dir
// layout), generalized to a flat metadata namespace since component F has
// no per-project scoping.
type diskCache struct {
	dir string
}

func newDiskCache(cacheDir string) *diskCache {
	return &diskCache{dir: filepath.Join(cacheDir, "metadata")}
}

func (c *diskCache) pathFor(key string) string {
	safe := strings.ReplaceAll(key, "/", "~")
	return filepath.Join(c.dir, safe+".json")
}

// read returns the cached body for key and whether it is still within TTL.
// A stale or missing entry returns (nil, false); callers that hit this
// path fall through to a live fetch.
func (c *diskCache) read(key string) ([]byte, bool) {
	path := c.pathFor(key)
	info, err := os.Stat(path)
	if err != nil {
		return nil, false
	}
	if time.Since(info.ModTime()) > metadataTTL {
		return nil, false
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	return body, true
}

// write persists body for key, creating the cache directory as needed.
// Failures are non-fatal: metadata caching is an optimization, not a
// correctness requirement, so a write error just means the next fetch
// misses the cache again.
func (c *diskCache) write(key string, body []byte) {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return
	}
	tmp := c.pathFor(key) + ".tmp"
	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		return
	}
	_ = os.Rename(tmp, c.pathFor(key))
}

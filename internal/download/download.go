// Package download implements the streaming artifact downloader
// (component D): range-resumable HTTP GET into a temp file with an
// incremental hasher, retry/backoff, and an atomic same-filesystem
// rename on completion. Grounded on
// original_source/crates/libretto-downloader/src/client.rs (HTTP/2
// client shape, Range-resume, status-to-error mapping) and the teacher's
// vcs_repo.go (network retries around a streamed checkout) and fs.go
// (renameWithFallback's atomic-rename-with-fallback pattern).
package download

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
)

const (
	connectTimeout = 5 * time.Second
	totalTimeout   = 15 * time.Second
	maxRetries     = 3
)

// Progress is updated with every chunk written to the temp file, so a
// caller (the planner) can report aggregate transfer counters across
// concurrent downloads via atomic loads, per spec §4.6.
type Progress struct {
	BytesTransferred int64
}

// Result is the outcome of a successful Download.
type Result struct {
	// Path is the final destination path the temp file was renamed to.
	Path string
	// ActualChecksum is the hex-encoded sha256 of the downloaded content.
	ActualChecksum string
	BytesTransferred int64
}

// ChecksumMismatchError is returned when the downloaded content's hash
// does not match the caller-supplied expected checksum.
type ChecksumMismatchError struct {
	Expected, Actual string
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch: expected %s, got %s", e.Expected, e.Actual)
}

// Client downloads artifacts over HTTP with retry, resume, and
// integrity verification.
type Client struct {
	httpClient *http.Client
}

// NewClient builds a download Client using a connect/total timeout
// policy matching the registry fetcher's, per spec §4.3/§4.6.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: totalTimeout,
			Transport: &http.Transport{
				DialContext: dialContext,
			},
		},
	}
}

// Download retrieves url into destTempPath, verifying against
// expectedChecksum if non-empty, then atomically renames destTempPath to
// finalPath. progress, if non-nil, is updated after every write.
func (c *Client) Download(ctx context.Context, url, expectedChecksum, destTempPath, finalPath string, progress *Progress) (*Result, error) {
	hasher := sha256.New()
	var written int64

	if info, err := os.Stat(destTempPath); err == nil && info.Size() > 0 {
		w, err := rehashExisting(destTempPath, hasher)
		if err != nil {
			// Rehashing the partial file failed; cheaper to discard and
			// restart than to risk hashing corrupt bytes into a resume.
			os.Remove(destTempPath)
		} else {
			written = w
		}
	}

	f, err := os.OpenFile(destTempPath, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "opening temp file")
	}
	defer f.Close()

	if _, err := f.Seek(written, io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "seeking temp file")
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries), ctx)

	op := func() error {
		n, err := c.fetchInto(ctx, url, written, f, hasher, progress)
		written += n

		var rangeErr *RangeInvalidatedError
		var ignoredErr *RangeIgnoredError
		if errors.As(err, &rangeErr) || errors.As(err, &ignoredErr) {
			// The server rejected our resume point, or ignored it and sent
			// the full body anyway; either way the partial bytes already
			// hashed are no longer trustworthy, so restart from zero on
			// the next attempt within this same backoff policy.
			hasher = sha256.New()
			written = 0
			if truncErr := f.Truncate(0); truncErr != nil {
				return backoff.Permanent(truncErr)
			}
			if _, seekErr := f.Seek(0, io.SeekStart); seekErr != nil {
				return backoff.Permanent(seekErr)
			}
			return errors.New("restarting after range invalidation")
		}
		return err
	}

	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}

	actual := hex.EncodeToString(hasher.Sum(nil))
	if expectedChecksum != "" {
		if subtle.ConstantTimeCompare([]byte(actual), []byte(expectedChecksum)) != 1 {
			f.Close()
			os.Remove(destTempPath)
			return nil, &ChecksumMismatchError{Expected: expectedChecksum, Actual: actual}
		}
	}

	if err := f.Close(); err != nil {
		return nil, errors.Wrap(err, "closing temp file")
	}
	if err := renameAtomic(destTempPath, finalPath); err != nil {
		return nil, err
	}

	return &Result{Path: finalPath, ActualChecksum: actual, BytesTransferred: written}, nil
}

// fetchInto issues the GET (plain or Range, depending on alreadyHave)
// and streams the body through hasher into f, updating progress as it
// goes. Returns the number of bytes newly written.
func (c *Client) fetchInto(ctx context.Context, url string, alreadyHave int64, f *os.File, hasher io.Writer, progress *Progress) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, backoff.Permanent(err)
	}
	if alreadyHave > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", alreadyHave))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, errors.Wrap(err, "issuing download request")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return 0, backoff.Permanent(&NotFoundError{URL: url})
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return 0, backoff.Permanent(&AuthRequiredError{URL: url})
	case resp.StatusCode == http.StatusTooManyRequests:
		return 0, &RateLimitedError{URL: url}
	case alreadyHave > 0 && resp.StatusCode == http.StatusOK:
		// The server didn't honor our Range request and is sending the
		// full body from byte zero; our already-hashed partial bytes
		// would otherwise get the full body appended after them, per
		// spec §4.6's resume contract. Discard this response and let the
		// caller reset and restart from scratch.
		return 0, backoff.Permanent(&RangeIgnoredError{URL: url})
	case alreadyHave > 0 && resp.StatusCode >= 400 && resp.StatusCode < 500:
		// A 4xx mid-resume invalidates whatever range state the server
		// thought we had; fail this attempt fatally and let the caller
		// restart the whole download from zero on its next top-level try.
		return 0, backoff.Permanent(&RangeInvalidatedError{URL: url, Status: resp.StatusCode})
	case resp.StatusCode >= 500:
		return 0, errors.Errorf("server error %d fetching %s", resp.StatusCode, url)
	case resp.StatusCode >= 400:
		return 0, backoff.Permanent(errors.Errorf("client error %d fetching %s", resp.StatusCode, url))
	case resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent:
		return 0, backoff.Permanent(errors.Errorf("unexpected status %d fetching %s", resp.StatusCode, url))
	}

	mw := io.MultiWriter(f, hasher)
	n, err := io.Copy(&progressWriter{w: mw, progress: progress}, resp.Body)
	if err != nil {
		return n, errors.Wrap(err, "streaming response body")
	}
	return n, nil
}

type progressWriter struct {
	w        io.Writer
	progress *Progress
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	if p.progress != nil && n > 0 {
		p.progress.BytesTransferred += int64(n)
	}
	return n, err
}

// rehashExisting re-derives the hasher's state by reading an existing
// partial temp file from disk, so a resumed download's final hash
// covers the bytes from both before and after the resume point.
func rehashExisting(path string, hasher io.Writer) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return io.Copy(hasher, f)
}

// renameAtomic performs the final temp-to-destination move. Grounded on
// the teacher's renameWithFallback: on POSIX, os.Rename is already atomic
// within one filesystem; the directory is created first since the
// destination's parent may not exist yet for a fresh cache key.
func renameAtomic(tempPath, finalPath string) error {
	if err := os.MkdirAll(filepath.Dir(finalPath), 0o755); err != nil {
		return errors.Wrap(err, "creating destination directory")
	}
	if err := os.Rename(tempPath, finalPath); err != nil {
		return errors.Wrap(err, "renaming into place")
	}
	return nil
}

// Package registry implements the concurrent metadata fetcher (component F):
// an HTTP/2 client over the registry's packages.json protocol, with
// per-name request coalescing, on-disk TTL caching, and minified-delta
// expansion. Grounded on the teacher's deducer.go/source_manager.go
// (concurrent per-source metadata fetch pattern) and maven.go
// (registry-flavored HTTP client shape), generalized to spec §4.3/§6/§7.
package registry

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/klauspost/compress/zstd"
	"github.com/libretto-pm/libretto/internal/model"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/http2"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	connectTimeout = 5 * time.Second
	totalTimeout   = 15 * time.Second
	maxRetries     = 3
)

// Client fetches package metadata from a Composer-flavored registry,
// coalescing concurrent requests for the same package name and caching
// responses on disk, per spec §4.3.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      *diskCache
	group      singleflight.Group
	stats      Stats
	log        *logrus.Entry

	// limiter smooths the outbound request rate across every in-flight
	// Fetch once the registry hints back off via a 429's Retry-After; it
	// starts unlimited and is only ever tightened, never by a single
	// fetch's own retry loop but for every concurrent caller at once.
	limiter *rate.Limiter
}

// NewClient builds a Client against the given registry base URL (e.g.
// "https://repo.packagist.org"), storing its on-disk cache under cacheDir.
func NewClient(baseURL, cacheDir string, log *logrus.Entry) (*Client, error) {
	transport := &http.Transport{
		DialContext: (&net.Dialer{Timeout: connectTimeout}).DialContext,
	}
	if err := http2.ConfigureTransport(transport); err != nil {
		return nil, errors.Wrap(err, "configuring HTTP/2 transport")
	}

	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   totalTimeout,
		},
		cache:   newDiskCache(cacheDir),
		log:     log.WithField("component", "registry"),
		limiter: rate.NewLimiter(rate.Inf, 1),
	}, nil
}

// Stats returns the client's cumulative request/byte/cache-hit counters.
func (c *Client) Stats() *Stats { return &c.stats }

// Fetch retrieves every known version entry for name. A package the
// registry reports as absent (404) yields (nil, nil), per spec §4.3's
// "returns None if absent" contract.
func (c *Client) Fetch(ctx context.Context, name model.Name) ([]model.VersionEntry, error) {
	v, err, _ := c.group.Do(name.String(), func() (interface{}, error) {
		return c.fetchUncoalesced(ctx, name)
	})
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	return v.([]model.VersionEntry), nil
}

func (c *Client) fetchUncoalesced(ctx context.Context, name model.Name) ([]model.VersionEntry, error) {
	cacheKey := string(name)

	if body, fresh := c.cache.read(cacheKey); fresh {
		c.stats.addCacheHit()
		entries, err := parsePackagePayload(name, body)
		if err == nil {
			return entries, nil
		}
		c.log.WithError(err).WithField("package", name).Warn("discarding corrupt cache entry")
	}

	body, status, err := c.fetchWithRetry(ctx, name)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}

	c.cache.write(cacheKey, body)

	return parsePackagePayload(name, body)
}

// fetchWithRetry issues the HTTP request, retrying transient failures
// (connection errors, 5xx, 429 with backoff) up to maxRetries times, per
// spec §7. 4xx other than 408/429 fails immediately.
func (c *Client) fetchWithRetry(ctx context.Context, name model.Name) ([]byte, int, error) {
	reqURL := fmt.Sprintf("%s/p2/%s.json", c.baseURL, url.PathEscape(string(name)))

	var (
		body   []byte
		status int
	)

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries)
	policy = backoff.WithContext(policy, ctx)

	op := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		c.stats.addRequest()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Accept-Encoding", "gzip, deflate, zstd")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return errors.Wrap(err, "issuing request")
		}
		defer resp.Body.Close()

		status = resp.StatusCode

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return nil
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return backoff.Permanent(&AuthRequiredError{Host: req.URL.Host})
		case resp.StatusCode == http.StatusTooManyRequests:
			retryAfter, hasRetryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
			if hasRetryAfter && retryAfter > 0 {
				c.limiter.SetLimit(rate.Every(time.Duration(retryAfter) * time.Second))
			}
			return &RateLimitedError{RetryAfterSeconds: retryAfter, HasRetryAfter: hasRetryAfter}
		case resp.StatusCode >= 500:
			return &NetworkError{URL: reqURL, Status: resp.StatusCode, Transient: true}
		case resp.StatusCode >= 400:
			return backoff.Permanent(&NetworkError{URL: reqURL, Status: resp.StatusCode, Transient: false})
		}

		raw, err := decodeBody(resp)
		if err != nil {
			return errors.Wrap(err, "decoding response body")
		}
		c.stats.addBytes(int64(len(raw)))
		body = raw
		return nil
	}

	if err := backoff.Retry(op, policy); err != nil {
		return nil, 0, err
	}
	return body, status, nil
}

func parseRetryAfter(h string) (int, bool) {
	if h == "" {
		return 0, false
	}
	n, err := strconv.Atoi(h)
	if err != nil {
		return 0, false
	}
	return n, true
}

// decodeBody transparently unwraps gzip/deflate/zstd content encodings;
// net/http already handles gzip when the Transport set the request header
// itself, but since we set Accept-Encoding explicitly net/http leaves the
// body untouched and expects us to decode it.
func decodeBody(resp *http.Response) ([]byte, error) {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		r, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	case "deflate":
		r, err := zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	case "zstd":
		r, err := zstd.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	default:
		return raw, nil
	}
}

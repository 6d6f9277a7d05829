package download

import (
	"context"
	"fmt"
	"net"
)

var dialContext = (&net.Dialer{Timeout: connectTimeout}).DialContext

// ensure dialContext satisfies the shape net/http.Transport expects.
var _ func(context.Context, string, string) (net.Conn, error) = dialContext

// NotFoundError surfaces a 404 for the download URL.
type NotFoundError struct{ URL string }

func (e *NotFoundError) Error() string { return fmt.Sprintf("not found: %s", e.URL) }

// AuthRequiredError surfaces a 401/403 for the download URL.
type AuthRequiredError struct{ URL string }

func (e *AuthRequiredError) Error() string { return fmt.Sprintf("authentication required: %s", e.URL) }

// RateLimitedError surfaces a 429 for the download URL.
type RateLimitedError struct{ URL string }

func (e *RateLimitedError) Error() string { return fmt.Sprintf("rate limited: %s", e.URL) }

// RangeInvalidatedError surfaces a 4xx received mid-resume: the partial
// temp file's range state is no longer trustworthy and the caller must
// restart the download from byte zero.
type RangeInvalidatedError struct {
	URL    string
	Status int
}

func (e *RangeInvalidatedError) Error() string {
	return fmt.Sprintf("range request invalidated (status %d) for %s, restart required", e.Status, e.URL)
}

// RangeIgnoredError surfaces a 200 OK received in response to a Range
// request mid-resume: the server doesn't support (or chose not to honor)
// resumable downloads and is sending the full body from byte zero, so the
// partial bytes already hashed into the running hasher must be discarded
// and the whole download restarted from scratch.
type RangeIgnoredError struct {
	URL string
}

func (e *RangeIgnoredError) Error() string {
	return fmt.Sprintf("server ignored range request for %s, restart required", e.URL)
}

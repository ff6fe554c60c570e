package autodesk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/filebridge/internal/core/domain"
)

// wrapTransportError classifies a failure that happened before an HTTP
// status was obtained: token retrieval, DNS, connection resets.
func wrapTransportError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, domain.ErrCircuitOpen) {
		// An open breaker means the downstream was recently failing;
		// treat it like any other transient connection problem.
		return domain.NewVendorError(domain.KindConnTransient, err)
	}

	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) && rerr.Response != nil {
		switch {
		case rerr.Response.StatusCode == http.StatusUnauthorized:
			return domain.NewVendorError(domain.KindAuthTransient, err)
		case rerr.Response.StatusCode == http.StatusTooManyRequests:
			return domain.NewRateLimitError(err, retryAfterOf(rerr.Response.Header))
		case rerr.Response.StatusCode >= http.StatusInternalServerError:
			return domain.NewVendorError(domain.KindConnTransient, err)
		default:
			// Bad client id or secret is a configuration problem.
			return domain.NewVendorError(domain.KindPermanent, err)
		}
	}
	return domain.NewVendorError(domain.KindConnTransient, err)
}

// apiStatusError preserves the HTTP status of an API failure so
// callers can special-case codes like 404 after classification.
type apiStatusError struct {
	status int
	url    string
}

func (e *apiStatusError) Error() string {
	return fmt.Sprintf("autodesk api returned %d for %s", e.status, e.url)
}

// isStatusNotFound reports whether err carries an HTTP 404.
func isStatusNotFound(err error) bool {
	var serr *apiStatusError
	return errors.As(err, &serr) && serr.status == http.StatusNotFound
}

// wrapStatusError classifies a non-2xx API response.
func wrapStatusError(status int, header http.Header, url string) error {
	err := &apiStatusError{status: status, url: url}
	switch {
	case status == http.StatusUnauthorized:
		return domain.NewVendorError(domain.KindAuthTransient, err)
	case status == http.StatusTooManyRequests:
		return domain.NewRateLimitError(err, retryAfterOf(header))
	case status >= http.StatusInternalServerError:
		return domain.NewVendorError(domain.KindConnTransient, err)
	default:
		return domain.NewVendorError(domain.KindPermanent, err)
	}
}

// retryAfterOf parses the Retry-After header, zero when absent.
func retryAfterOf(header http.Header) time.Duration {
	value := header.Get("Retry-After")
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

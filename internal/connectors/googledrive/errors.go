package googledrive

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"google.golang.org/api/googleapi"

	"github.com/custodia-labs/filebridge/internal/core/domain"
)

// rateLimitReasons are the 403 reason codes Google uses for quota
// problems; other 403s are real permission failures.
var rateLimitReasons = map[string]bool{
	"rateLimitExceeded":     true,
	"userRateLimitExceeded": true,
	"dailyLimitExceeded":    true,
}

// wrapError classifies a Drive API failure into the vendor error
// taxonomy the retry policy acts on.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		// Transport-level failure: DNS, reset connections, timeouts.
		return domain.NewVendorError(domain.KindConnTransient, err)
	}

	switch {
	case gerr.Code == http.StatusUnauthorized:
		return domain.NewVendorError(domain.KindAuthTransient, err)

	case gerr.Code == http.StatusForbidden:
		for _, e := range gerr.Errors {
			if rateLimitReasons[e.Reason] {
				return domain.NewRateLimitError(err, retryAfterOf(gerr))
			}
		}
		return domain.NewVendorError(domain.KindPermanent, err)

	case gerr.Code == http.StatusTooManyRequests:
		return domain.NewRateLimitError(err, retryAfterOf(gerr))

	case gerr.Code >= http.StatusInternalServerError:
		return domain.NewVendorError(domain.KindConnTransient, err)

	default:
		return domain.NewVendorError(domain.KindPermanent, err)
	}
}

// retryAfterOf parses the Retry-After header, zero when absent.
func retryAfterOf(gerr *googleapi.Error) time.Duration {
	values := gerr.Header.Values("Retry-After")
	if len(values) == 0 {
		return 0
	}
	if seconds, err := strconv.Atoi(values[0]); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(values[0]); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

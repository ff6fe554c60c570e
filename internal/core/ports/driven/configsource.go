package driven

import (
	"context"

	"github.com/custodia-labs/filebridge/internal/core/domain"
)

// ConfigSource supplies the endpoint set from configuration.
// Implementations validate before returning: schedules are well-formed
// and vendor-required detail fields are present.
type ConfigSource interface {
	// LoadEndpoints returns the validated endpoint descriptors.
	LoadEndpoints(ctx context.Context) ([]domain.Endpoint, error)

	// Watch invokes onChange whenever the underlying configuration
	// changes, blocking until ctx is done.
	Watch(ctx context.Context, onChange func()) error
}

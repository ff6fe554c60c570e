package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/filebridge/internal/core/domain"
	"github.com/custodia-labs/filebridge/internal/core/ports/driven"
)

// fakeClient is a scriptable vendor client for service tests.
type fakeClient struct {
	mu sync.Mutex

	vendor   domain.VendorType
	files    []domain.FileMetadata
	listErr  error   // terminal error emitted after files
	authErrs []error // consumed one per Authenticate call

	healthy bool

	authCalls int
	listCalls int
	lastSince time.Time
	lastMax   int
	closed    int
}

func (c *fakeClient) Type() domain.VendorType { return c.vendor }

func (c *fakeClient) Authenticate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authCalls++
	if len(c.authErrs) > 0 {
		err := c.authErrs[0]
		c.authErrs = c.authErrs[1:]
		return err
	}
	return nil
}

func (c *fakeClient) ListFiles(ctx context.Context, since time.Time, maxResults int) (<-chan domain.FileMetadata, <-chan error) {
	c.mu.Lock()
	c.listCalls++
	c.lastSince = since
	c.lastMax = maxResults
	files := make([]domain.FileMetadata, len(c.files))
	copy(files, c.files)
	listErr := c.listErr
	c.mu.Unlock()

	out := make(chan domain.FileMetadata)
	errs := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errs)
		sent := 0
		for _, meta := range files {
			if maxResults > 0 && sent >= maxResults {
				return
			}
			select {
			case out <- meta:
				sent++
			case <-ctx.Done():
				return
			}
		}
		if listErr != nil {
			errs <- listErr
		}
	}()
	return out, errs
}

func (c *fakeClient) GetFileMetadata(ctx context.Context, externalID string) (*domain.FileMetadata, error) {
	for _, meta := range c.files {
		if meta.ExternalID == externalID {
			m := meta
			return &m, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (c *fakeClient) HealthCheck(ctx context.Context) bool { return c.healthy }

func (c *fakeClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return nil
}

// fakeFactory hands out one shared client per vendor type.
type fakeFactory struct {
	mu        sync.Mutex
	clients   map[domain.VendorType]*fakeClient
	createErr error
	creates   int
}

func newFakeFactory(clients ...*fakeClient) *fakeFactory {
	f := &fakeFactory{clients: make(map[domain.VendorType]*fakeClient)}
	for _, c := range clients {
		f.clients[c.vendor] = c
	}
	return f
}

func (f *fakeFactory) Create(endpoint domain.Endpoint) (driven.VendorClient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.createErr != nil {
		return nil, f.createErr
	}
	client, ok := f.clients[endpoint.Vendor]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedType, endpoint.Vendor)
	}
	return client, nil
}

func (f *fakeFactory) Register(vendor domain.VendorType, builder driven.ClientBuilder) {}

func (f *fakeFactory) SupportedVendors() []domain.VendorType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.VendorType, 0, len(f.clients))
	for v := range f.clients {
		out = append(out, v)
	}
	return out
}

// failingFileStore wraps a FileStore and fails upserts for one file.
type failingFileStore struct {
	driven.FileStore
	failExternalID string
}

func (s *failingFileStore) Upsert(ctx context.Context, meta domain.FileMetadata, endpointID string) (*domain.FileRecord, bool, error) {
	if meta.ExternalID == s.failExternalID {
		return nil, false, fmt.Errorf("constraint violation on %s", meta.ExternalID)
	}
	return s.FileStore.Upsert(ctx, meta, endpointID)
}

func driveEndpoint(id string) domain.Endpoint {
	return domain.Endpoint{
		ID:        id,
		Name:      "Drive " + id,
		Vendor:    domain.VendorGoogleDrive,
		ProjectID: "proj-1",
		UserID:    "user-1",
		Details:   map[string]string{"folder_id": "root"},
		Schedule:  domain.Schedule{Type: domain.ScheduleManual},
		Active:    true,
	}
}

func driveFile(id string, updatedAt time.Time) domain.FileMetadata {
	return domain.FileMetadata{
		ExternalID:        id,
		Name:              id + ".pdf",
		MIMEType:          "application/pdf",
		Size:              1024,
		ExternalUpdatedAt: updatedAt,
	}
}

package googledrive

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"

	"github.com/custodia-labs/filebridge/internal/core/domain"
)

func driveEndpoint(details map[string]string) domain.Endpoint {
	return domain.Endpoint{
		ID:        "ep-1",
		Vendor:    domain.VendorGoogleDrive,
		ProjectID: "proj-1",
		UserID:    "user-1",
		Details:   details,
	}
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(driveEndpoint(nil))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = New(driveEndpoint(map[string]string{"refresh_token": "r"}))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNewAcceptsAccessToken(t *testing.T) {
	client, err := New(driveEndpoint(map[string]string{"access_token": "tok"}))
	require.NoError(t, err)
	assert.Equal(t, domain.VendorGoogleDrive, client.Type())
}

func TestNewAcceptsRefreshToken(t *testing.T) {
	client, err := New(driveEndpoint(map[string]string{
		"refresh_token": "r",
		"client_id":     "id",
		"client_secret": "secret",
	}))
	require.NoError(t, err)
	assert.NotNil(t, client.tokenSource)
}

func TestListQueryIncludesWatermarkAndFolder(t *testing.T) {
	client, err := New(driveEndpoint(map[string]string{
		"access_token": "tok",
		"folder_id":    "folder-9",
	}))
	require.NoError(t, err)

	since := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	assert.Equal(t,
		"trashed = false and modifiedTime > '2026-03-10T12:00:00Z' and 'folder-9' in parents",
		client.listQuery(since))
}

func TestListFilesUnauthenticatedFailsPermanently(t *testing.T) {
	client, err := New(driveEndpoint(map[string]string{"access_token": "tok"}))
	require.NoError(t, err)

	files, errs := client.ListFiles(context.Background(), time.Time{}, 0)
	for range files {
		t.Fatal("no files expected")
	}
	listErr := <-errs
	require.Error(t, listErr)
	assert.Equal(t, domain.KindPermanent, domain.KindOf(listErr))
}

func TestWrapErrorClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		kind domain.ErrorKind
	}{
		{
			name: "unauthorized is auth transient",
			err:  &googleapi.Error{Code: http.StatusUnauthorized},
			kind: domain.KindAuthTransient,
		},
		{
			name: "forbidden quota reason is rate limited",
			err: &googleapi.Error{
				Code:   http.StatusForbidden,
				Errors: []googleapi.ErrorItem{{Reason: "userRateLimitExceeded"}},
			},
			kind: domain.KindRateLimited,
		},
		{
			name: "forbidden without quota reason is permanent",
			err:  &googleapi.Error{Code: http.StatusForbidden},
			kind: domain.KindPermanent,
		},
		{
			name: "too many requests is rate limited",
			err:  &googleapi.Error{Code: http.StatusTooManyRequests},
			kind: domain.KindRateLimited,
		},
		{
			name: "not found is permanent",
			err:  &googleapi.Error{Code: http.StatusNotFound},
			kind: domain.KindPermanent,
		},
		{
			name: "server error is connection transient",
			err:  &googleapi.Error{Code: http.StatusBadGateway},
			kind: domain.KindConnTransient,
		},
		{
			name: "transport error is connection transient",
			err:  errors.New("connection reset by peer"),
			kind: domain.KindConnTransient,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			wrapped := wrapError(tc.err)
			assert.Equal(t, tc.kind, domain.KindOf(wrapped))
			assert.ErrorIs(t, wrapped, tc.err)
		})
	}
}

func TestWrapErrorPassesContextErrors(t *testing.T) {
	assert.Equal(t, context.Canceled, wrapError(context.Canceled))
	assert.NoError(t, wrapError(nil))
}

func TestRetryAfterParsing(t *testing.T) {
	withHeader := &googleapi.Error{
		Code:   http.StatusTooManyRequests,
		Header: http.Header{"Retry-After": []string{"45"}},
	}
	wrapped := wrapError(withHeader)
	assert.Equal(t, 45*time.Second, domain.RetryAfterOf(wrapped))

	noHeader := &googleapi.Error{Code: http.StatusTooManyRequests}
	assert.Zero(t, domain.RetryAfterOf(wrapError(noHeader)))

	garbage := &googleapi.Error{
		Code:   http.StatusTooManyRequests,
		Header: http.Header{"Retry-After": []string{"whenever"}},
	}
	assert.Zero(t, domain.RetryAfterOf(wrapError(garbage)))
}

func TestToMetadata(t *testing.T) {
	meta := toMetadata(&drive.File{
		Id:           "file-1",
		Name:         "report.pdf",
		MimeType:     "application/pdf",
		Size:         2048,
		WebViewLink:  "https://drive.google.com/file/d/file-1",
		CreatedTime:  "2026-01-02T03:04:05Z",
		ModifiedTime: "2026-02-03T04:05:06Z",
		Parents:      []string{"folder-9"},
	})

	assert.Equal(t, "file-1", meta.ExternalID)
	assert.Equal(t, "report.pdf", meta.Name)
	assert.Equal(t, int64(2048), meta.Size)
	assert.Equal(t, "application/pdf", meta.MIMEType)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), meta.ExternalCreatedAt)
	assert.Equal(t, time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC), meta.ExternalUpdatedAt)
	assert.Equal(t, "folder-9", meta.Vendor["parent_id"])
}

func TestToMetadataToleratesMissingTimestamps(t *testing.T) {
	meta := toMetadata(&drive.File{Id: "file-2", Name: "x"})
	assert.True(t, meta.ExternalCreatedAt.IsZero())
	assert.True(t, meta.ExternalUpdatedAt.IsZero())
	assert.Nil(t, meta.Vendor)
}

// Package googledrive implements the vendor client for the Google
// Drive API v3. Listings are incremental on modifiedTime and paced by a
// local token bucket so one endpoint cannot burn the per-user quota.
package googledrive

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/custodia-labs/filebridge/internal/core/domain"
	"github.com/custodia-labs/filebridge/internal/core/ports/driven"
)

const (
	// mimeTypeFolder is Drive's folder MIME type; folders are skipped in
	// listings.
	mimeTypeFolder = "application/vnd.google-apps.folder"

	// tokenURL is Google's OAuth2 token endpoint for refresh grants.
	tokenURL = "https://oauth2.googleapis.com/token"

	// pageSize is the Drive listing page size.
	pageSize = 100

	// Local pacing for Drive API calls. Drive allows roughly 12k
	// queries per minute per user; 8/s with a small burst stays well
	// under that while keeping large listings quick.
	requestsPerSecond = 8
	requestBurst      = 10

	listFields = "nextPageToken, files(id, name, mimeType, size, webViewLink, createdTime, modifiedTime, parents)"
	fileFields = "id, name, mimeType, size, webViewLink, createdTime, modifiedTime, parents"
)

// Client is the Google Drive vendor client for one endpoint.
type Client struct {
	endpoint domain.Endpoint
	folderID string

	tokenSource oauth2.TokenSource
	svc         *drive.Service
	pacer       *rate.Limiter
}

var _ driven.VendorClient = (*Client)(nil)

// Builder adapts New to the connector factory signature.
func Builder(endpoint domain.Endpoint) (driven.VendorClient, error) {
	return New(endpoint)
}

// New creates a client from the endpoint's vendor details. Credentials
// are either a bare access_token or a refresh_token with its OAuth2
// client pair. Structurally missing credentials fail here, before any
// network call.
func New(endpoint domain.Endpoint) (*Client, error) {
	ts, err := tokenSourceFor(endpoint.Details)
	if err != nil {
		return nil, err
	}
	return &Client{
		endpoint:    endpoint,
		folderID:    endpoint.Details["folder_id"],
		tokenSource: ts,
		pacer:       rate.NewLimiter(rate.Limit(requestsPerSecond), requestBurst),
	}, nil
}

func tokenSourceFor(details map[string]string) (oauth2.TokenSource, error) {
	if refresh := details["refresh_token"]; refresh != "" {
		clientID := details["client_id"]
		clientSecret := details["client_secret"]
		if clientID == "" || clientSecret == "" {
			return nil, fmt.Errorf("%w: refresh_token requires client_id and client_secret", domain.ErrInvalidInput)
		}
		cfg := &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: tokenURL},
		}
		return cfg.TokenSource(context.Background(), &oauth2.Token{RefreshToken: refresh}), nil
	}
	if access := details["access_token"]; access != "" {
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: access}), nil
	}
	return nil, fmt.Errorf("%w: google drive endpoint needs access_token or refresh_token", domain.ErrInvalidInput)
}

// Type returns the vendor type identifier.
func (c *Client) Type() domain.VendorType {
	return domain.VendorGoogleDrive
}

// Authenticate builds the Drive service and probes it with an About
// call so credential problems surface before the listing starts.
func (c *Client) Authenticate(ctx context.Context) error {
	svc, err := drive.NewService(ctx, option.WithTokenSource(c.tokenSource))
	if err != nil {
		return wrapError(err)
	}
	if err := c.pacer.Wait(ctx); err != nil {
		return err
	}
	if _, err := svc.About.Get().Fields("user").Context(ctx).Do(); err != nil {
		return wrapError(err)
	}
	c.svc = svc
	return nil
}

// ListFiles streams files modified after since, newest pages last.
// Folders are filtered out; maxResults of zero means unbounded.
func (c *Client) ListFiles(ctx context.Context, since time.Time, maxResults int) (<-chan domain.FileMetadata, <-chan error) {
	files := make(chan domain.FileMetadata)
	errs := make(chan error, 1)

	go func() {
		defer close(files)
		defer close(errs)

		if c.svc == nil {
			errs <- domain.NewVendorError(domain.KindPermanent, errors.New("client is not authenticated"))
			return
		}

		query := c.listQuery(since)
		sent := 0
		pageToken := ""
		for {
			if err := c.pacer.Wait(ctx); err != nil {
				errs <- err
				return
			}

			call := c.svc.Files.List().
				Q(query).
				OrderBy("modifiedTime").
				PageSize(pageSize).
				Fields(googleapi.Field(listFields)).
				Context(ctx)
			if pageToken != "" {
				call = call.PageToken(pageToken)
			}

			list, err := call.Do()
			if err != nil {
				errs <- wrapError(err)
				return
			}

			for _, f := range list.Files {
				if f.MimeType == mimeTypeFolder {
					continue
				}
				select {
				case files <- toMetadata(f):
				case <-ctx.Done():
					errs <- ctx.Err()
					return
				}
				sent++
				if maxResults > 0 && sent >= maxResults {
					return
				}
			}

			if list.NextPageToken == "" {
				return
			}
			pageToken = list.NextPageToken
		}
	}()

	return files, errs
}

func (c *Client) listQuery(since time.Time) string {
	query := fmt.Sprintf("trashed = false and modifiedTime > '%s'", since.UTC().Format(time.RFC3339))
	if c.folderID != "" {
		query += fmt.Sprintf(" and '%s' in parents", c.folderID)
	}
	return query
}

// GetFileMetadata fetches one file by its Drive ID.
func (c *Client) GetFileMetadata(ctx context.Context, externalID string) (*domain.FileMetadata, error) {
	if c.svc == nil {
		return nil, domain.NewVendorError(domain.KindPermanent, errors.New("client is not authenticated"))
	}
	if err := c.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	f, err := c.svc.Files.Get(externalID).
		Fields(googleapi.Field(fileFields)).
		Context(ctx).
		Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
			return nil, fmt.Errorf("file %q: %w", externalID, domain.ErrNotFound)
		}
		return nil, wrapError(err)
	}
	meta := toMetadata(f)
	return &meta, nil
}

// HealthCheck reports whether Drive is reachable with the configured
// credentials.
func (c *Client) HealthCheck(ctx context.Context) bool {
	if c.svc == nil {
		return c.Authenticate(ctx) == nil
	}
	if err := c.pacer.Wait(ctx); err != nil {
		return false
	}
	_, err := c.svc.About.Get().Fields("user").Context(ctx).Do()
	return err == nil
}

// Close releases client resources. The Drive service holds no
// connections that need explicit teardown.
func (c *Client) Close() error {
	c.svc = nil
	return nil
}

func toMetadata(f *drive.File) domain.FileMetadata {
	meta := domain.FileMetadata{
		ExternalID: f.Id,
		Name:       f.Name,
		Link:       f.WebViewLink,
		Size:       f.Size,
		MIMEType:   f.MimeType,
	}
	if t, err := time.Parse(time.RFC3339, f.CreatedTime); err == nil {
		meta.ExternalCreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, f.ModifiedTime); err == nil {
		meta.ExternalUpdatedAt = t
	}
	if len(f.Parents) > 0 {
		meta.Vendor = map[string]string{"parent_id": f.Parents[0]}
	}
	return meta
}

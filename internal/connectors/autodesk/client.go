// Package autodesk implements the vendor client for the Autodesk
// Construction Cloud Data Management API. Authentication uses the
// two-legged OAuth2 client-credentials grant; listings page through a
// folder's contents with JSON:API next links. Calls run through a
// circuit breaker so a flapping ACC region does not get hammered.
package autodesk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/custodia-labs/filebridge/internal/core/domain"
	"github.com/custodia-labs/filebridge/internal/core/ports/driven"
	"github.com/custodia-labs/filebridge/internal/ratelimit"
)

const (
	defaultBaseURL = "https://developer.api.autodesk.com"
	authPath       = "/authentication/v2/token"
	scopeDataRead  = "data:read"
	pageLimit      = 100

	breakerFailures  = 5
	breakerSuccesses = 2
	breakerTimeout   = 30 * time.Second

	// maxConcurrentCalls bounds simultaneous requests per client. ACC
	// throttles aggressively, so keep the footprint small.
	maxConcurrentCalls = 4

	resourceTypeItem = "items"
)

// Client is the Autodesk Construction Cloud vendor client for one
// endpoint.
type Client struct {
	endpoint  domain.Endpoint
	projectID string
	folderID  string

	baseURL     string
	httpClient  *http.Client
	tokenSource oauth2.TokenSource
	breaker     *ratelimit.Breaker
	gate        *ratelimit.Gate
}

var _ driven.VendorClient = (*Client)(nil)

// Builder adapts New to the connector factory signature.
func Builder(endpoint domain.Endpoint) (driven.VendorClient, error) {
	return New(endpoint)
}

// New creates a client from the endpoint's vendor details. The details
// must carry the OAuth2 client pair plus the ACC project and folder to
// list (acc_project_id, folder_id).
func New(endpoint domain.Endpoint) (*Client, error) {
	for _, key := range []string{"client_id", "client_secret", "acc_project_id", "folder_id"} {
		if endpoint.Details[key] == "" {
			return nil, fmt.Errorf("%w: autodesk endpoint needs %s", domain.ErrInvalidInput, key)
		}
	}
	return &Client{
		endpoint:  endpoint,
		projectID: endpoint.Details["acc_project_id"],
		folderID:  endpoint.Details["folder_id"],
		baseURL:   defaultBaseURL,
		breaker:   ratelimit.NewBreaker(breakerFailures, breakerSuccesses, breakerTimeout),
		gate:      ratelimit.NewGate(maxConcurrentCalls),
	}, nil
}

// Type returns the vendor type identifier.
func (c *Client) Type() domain.VendorType {
	return domain.VendorAutodesk
}

// Authenticate obtains a two-legged token and builds the API client.
// Token retrieval failures are classified so the retry policy can tell
// a bad secret from a flaky token service.
func (c *Client) Authenticate(ctx context.Context) error {
	cfg := &clientcredentials.Config{
		ClientID:     c.endpoint.Details["client_id"],
		ClientSecret: c.endpoint.Details["client_secret"],
		TokenURL:     c.baseURL + authPath,
		Scopes:       []string{scopeDataRead},
	}

	ts := cfg.TokenSource(ctx)
	if _, err := ts.Token(); err != nil {
		return wrapTransportError(err)
	}

	c.tokenSource = ts
	c.httpClient = oauth2.NewClient(context.Background(), ts)
	return nil
}

// ListFiles streams items from the configured folder modified after
// since. Sub-folders are skipped; maxResults of zero means unbounded.
func (c *Client) ListFiles(ctx context.Context, since time.Time, maxResults int) (<-chan domain.FileMetadata, <-chan error) {
	files := make(chan domain.FileMetadata)
	errs := make(chan error, 1)

	go func() {
		defer close(files)
		defer close(errs)

		if c.httpClient == nil {
			errs <- domain.NewVendorError(domain.KindPermanent, errors.New("client is not authenticated"))
			return
		}

		sent := 0
		next := c.contentsURL(since)
		for next != "" {
			page, err := c.fetchPage(ctx, next)
			if err != nil {
				errs <- err
				return
			}

			versions := indexVersions(page.Included)
			for _, res := range page.Data {
				if res.Type != resourceTypeItem {
					continue
				}
				if !since.IsZero() && !res.Attributes.LastModifiedTime.After(since) {
					continue
				}
				select {
				case files <- toMetadata(res, versions):
				case <-ctx.Done():
					errs <- ctx.Err()
					return
				}
				sent++
				if maxResults > 0 && sent >= maxResults {
					return
				}
			}

			next = page.Links.nextHref()
		}
	}()

	return files, errs
}

// contentsURL builds the first page URL for the folder listing.
func (c *Client) contentsURL(since time.Time) string {
	query := url.Values{}
	query.Set("page[limit]", fmt.Sprintf("%d", pageLimit))
	if !since.IsZero() {
		query.Set("filter[lastModifiedTime]-ge", since.UTC().Format(time.RFC3339))
	}
	return fmt.Sprintf("%s/data/v1/projects/%s/folders/%s/contents?%s",
		c.baseURL, url.PathEscape(c.projectID), url.PathEscape(c.folderID), query.Encode())
}

// fetchPage retrieves one listing page through the circuit breaker.
func (c *Client) fetchPage(ctx context.Context, pageURL string) (*contentsPage, error) {
	var page contentsPage
	err := c.breaker.Do(ctx, func(ctx context.Context) error {
		return c.getJSON(ctx, pageURL, &page)
	})
	if err != nil {
		return nil, wrapIfBare(err)
	}
	return &page, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	if err := c.gate.Enter(ctx); err != nil {
		return err
	}
	defer c.gate.Leave()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return domain.NewVendorError(domain.KindPermanent, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return wrapTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return wrapStatusError(resp.StatusCode, resp.Header, rawURL)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.NewVendorError(domain.KindConnTransient, fmt.Errorf("decoding response from %s: %w", rawURL, err))
	}
	return nil
}

// wrapIfBare classifies errors that escaped the per-request wrapping,
// which in practice is only the breaker's rejection.
func wrapIfBare(err error) error {
	var ve *domain.VendorError
	if errors.As(err, &ve) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return wrapTransportError(err)
}

// GetFileMetadata fetches one item by its URN.
func (c *Client) GetFileMetadata(ctx context.Context, externalID string) (*domain.FileMetadata, error) {
	if c.httpClient == nil {
		return nil, domain.NewVendorError(domain.KindPermanent, errors.New("client is not authenticated"))
	}

	itemURL := fmt.Sprintf("%s/data/v1/projects/%s/items/%s",
		c.baseURL, url.PathEscape(c.projectID), url.PathEscape(externalID))

	var body itemResponse
	err := c.breaker.Do(ctx, func(ctx context.Context) error {
		return c.getJSON(ctx, itemURL, &body)
	})
	if err != nil {
		if isStatusNotFound(err) {
			return nil, fmt.Errorf("item %q: %w", externalID, domain.ErrNotFound)
		}
		return nil, wrapIfBare(err)
	}

	meta := toMetadata(body.Data, indexVersions(body.Included))
	return &meta, nil
}

// HealthCheck reports whether the ACC project folder is reachable with
// the configured credentials.
func (c *Client) HealthCheck(ctx context.Context) bool {
	if c.httpClient == nil {
		if err := c.Authenticate(ctx); err != nil {
			return false
		}
	}

	probeURL := fmt.Sprintf("%s/data/v1/projects/%s/folders/%s?page[limit]=1",
		c.baseURL, url.PathEscape(c.projectID), url.PathEscape(c.folderID))

	var body json.RawMessage
	err := c.breaker.Do(ctx, func(ctx context.Context) error {
		return c.getJSON(ctx, probeURL, &body)
	})
	return err == nil
}

// Close releases client resources.
func (c *Client) Close() error {
	c.httpClient = nil
	c.tokenSource = nil
	return nil
}

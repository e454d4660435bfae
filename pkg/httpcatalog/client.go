// Package httpcatalog is a JSON-over-HTTP adapter for the artifact listing
// service, implementing drop.ItemCatalog for hosts that talk to a container
// endpoint directly.
package httpcatalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/dropkit/dropfetch/pkg/drop"
	"github.com/dropkit/dropfetch/pkg/logging"
)

var (
	sharedClient *http.Client
	clientOnce   sync.Once
)

// getHTTPClient returns the shared HTTP client with connection pooling.
func getHTTPClient() *http.Client {
	clientOnce.Do(func() {
		transport := &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			MaxConnsPerHost:     20,
			IdleConnTimeout:     90 * time.Second,
			ForceAttemptHTTP2:   true,
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
		}

		sharedClient = &http.Client{Transport: transport}
	})

	return sharedClient
}

// Options configures the catalog client.
type Options struct {
	// BaseURL is the root of the listing service, e.g.
	// "https://artifacts.example.com/_apis/resources".
	BaseURL string
	// Token is sent as a bearer token when non-empty.
	Token string
}

// Client implements drop.ItemCatalog against an HTTP listing endpoint.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  logging.Interface
}

// New builds a catalog client. A nil logger discards log output.
func New(opts Options, logger logging.Interface) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("httpcatalog: base URL is required")
	}
	if logger == nil {
		logger = logging.Discard()
	}

	return &Client{
		baseURL: opts.BaseURL,
		token:   opts.Token,
		http:    getHTTPClient(),
		logger:  logger,
	}, nil
}

type itemDTO struct {
	Path            string `json:"path"`
	ItemType        string `json:"itemType"`
	FileLength      int64  `json:"fileLength"`
	ContentID       string `json:"contentId,omitempty"`
	CompressionType string `json:"compressionType,omitempty"`
}

// ListItems queries all items under a container root.
func (c *Client) ListItems(ctx context.Context, containerID int64, scope string, opts drop.ListOptions) ([]drop.ArtifactItem, error) {
	q := url.Values{}
	if scope != "" {
		q.Set("scope", scope)
	}
	if opts.RootFilter != "" {
		q.Set("itemPath", opts.RootFilter)
	}
	q.Set("shallow", strconv.FormatBool(opts.Shallow))
	q.Set("includeContentMetadata", strconv.FormatBool(opts.IncludeStoreMetadata))

	endpoint := fmt.Sprintf("%s/containers/%d/items?%s", c.baseURL, containerID, q.Encode())
	resp, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("list items", endpoint, resp)
	}

	var dtos []itemDTO
	if err := json.NewDecoder(resp.Body).Decode(&dtos); err != nil {
		return nil, fmt.Errorf("httpcatalog: decoding item listing: %w", err)
	}

	items := make([]drop.ArtifactItem, 0, len(dtos))
	for _, dto := range dtos {
		items = append(items, dto.toItem())
	}

	c.logger.WithField("container", containerID).WithField("items", len(items)).Debug("listed container items")

	return items, nil
}

// OpenReadStream opens the raw byte stream of one item for the direct
// transport. The caller owns the returned body.
func (c *Client) OpenReadStream(ctx context.Context, containerID int64, itemPath string, scope string) (io.ReadCloser, error) {
	q := url.Values{}
	q.Set("itemPath", itemPath)
	if scope != "" {
		q.Set("scope", scope)
	}

	endpoint := fmt.Sprintf("%s/containers/%d/stream?%s", c.baseURL, containerID, q.Encode())
	resp, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, statusError("open stream", itemPath, resp)
	}

	return resp.Body, nil
}

func (c *Client) get(ctx context.Context, endpoint string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json, application/octet-stream")

	return c.http.Do(req)
}

// statusError maps HTTP failures onto the transport error taxonomy; server
// errors are retryable, client errors are not.
func statusError(op, path string, resp *http.Response) error {
	err := fmt.Errorf("unexpected status %s", resp.Status)

	return &drop.TransportError{
		Op:        op,
		Path:      path,
		Err:       err,
		Retryable: resp.StatusCode >= 500,
	}
}

func (dto itemDTO) toItem() drop.ArtifactItem {
	item := drop.ArtifactItem{
		Path:       dto.Path,
		Kind:       drop.ItemKindFile,
		ByteLength: dto.FileLength,
	}
	if dto.ItemType == "folder" {
		item.Kind = drop.ItemKindFolder
	}
	if dto.ContentID != "" {
		compression := drop.CompressionNone
		if dto.CompressionType == "gzip" {
			compression = drop.CompressionGZip
		}
		item.Store = &drop.StoreMetadata{
			ContentHash: dto.ContentID,
			Compression: compression,
		}
	}

	return item
}

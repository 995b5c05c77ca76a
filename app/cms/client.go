package cms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// maxResponseSize bounds how much of a CMS response is read.
const maxResponseSize = 20 << 20

// Client talks to a Payload CMS REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Find lists documents of a collection. The query is passed through as-is.
func (c *Client) Find(ctx context.Context, collection string, query url.Values) ([]byte, error) {
	return c.get(ctx, "/"+url.PathEscape(collection), query)
}

func (c *Client) FindByID(ctx context.Context, collection, id, depth string) ([]byte, error) {
	query := url.Values{}
	if depth != "" {
		query.Set("depth", depth)
	}
	return c.get(ctx, "/"+url.PathEscape(collection)+"/"+url.PathEscape(id), query)
}

// FindBySlug returns the first document whose slug matches.
func (c *Client) FindBySlug(ctx context.Context, collection, slug, depth string) ([]byte, error) {
	where, err := json.Marshal(map[string]any{"slug": map[string]string{"equals": slug}})
	if err != nil {
		return nil, fmt.Errorf("failed to encode slug filter: %w", err)
	}

	query := url.Values{}
	if depth != "" {
		query.Set("depth", depth)
	}
	query.Set("where", string(where))

	data, err := c.Find(ctx, collection, query)
	if err != nil {
		return nil, err
	}

	var result struct {
		Docs []json.RawMessage `json:"docs"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", ErrUpstream, err)
	}
	if len(result.Docs) == 0 {
		return nil, fmt.Errorf("%w: %s with slug %s", ErrNotFound, collection, slug)
	}

	return result.Docs[0], nil
}

// FindMedia fetches a single media document.
func (c *Client) FindMedia(ctx context.Context, id string) (json.RawMessage, error) {
	return c.get(ctx, "/media/"+url.PathEscape(id), nil)
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if c.baseURL == "" {
		return nil, ErrNotConfigured
	}

	apiURL := c.baseURL + path
	if len(query) > 0 {
		apiURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrUpstream, err)
	}
	req.Header.Set("Accept", "application/json")

	slog.Debug("Fetching from CMS API", "url", apiURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrConnection, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: HTTP %d", ErrAuth, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("%w: HTTP %d", ErrUpstream, resp.StatusCode)
	}

	return data, nil
}

// Package xcam is the HTTP client for the XCam listing and live-info API.
package xcam

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// Broadcast is one online broadcaster as reported by the listing API.
type Broadcast struct {
	Username string  `json:"username"`
	Preview  Preview `json:"preview"`
}

// Preview carries the preview-stream hint, when the API provides one.
type Preview struct {
	Src string `json:"src"`
}

// LiveInfo is the per-user live-session response. Both URLs are optional.
type LiveInfo struct {
	CDNURL  string `json:"cdnURL"`
	EdgeURL string `json:"edgeURL"`
}

type listingResponse struct {
	Broadcasts struct {
		Items []Broadcast `json:"items"`
	} `json:"broadcasts"`
}

// Client calls the XCam API. All methods are safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates an API client with the given base URL and request timeout.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// OnlineBroadcasts returns one page of online broadcasters, optionally
// filtered by country. An empty or absent item list is not an error.
func (c *Client) OnlineBroadcasts(ctx context.Context, page, limit int, country string) ([]Broadcast, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	if country != "" {
		q.Set("country", country)
	}

	var resp listingResponse
	if err := c.getJSON(ctx, "/?"+q.Encode(), &resp); err != nil {
		return nil, err
	}

	c.logger.Debug("listing page fetched",
		zap.Int("page", page),
		zap.Int("count", len(resp.Broadcasts.Items)))
	return resp.Broadcasts.Items, nil
}

// LiveInfo returns live-session info for a single user, including the
// cdnURL/edgeURL stream fallbacks when present.
func (c *Client) LiveInfo(ctx context.Context, username string) (*LiveInfo, error) {
	var info LiveInfo
	if err := c.getJSON(ctx, "/user/"+url.PathEscape(username)+"/liveInfo", &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("api request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("api status: %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

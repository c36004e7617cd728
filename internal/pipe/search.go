package pipe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// SearchClient queries the capture service's search endpoint.
type SearchClient struct {
	BaseURL string
	HTTP    *http.Client
}

// NewSearchClient creates a search client for the given service address.
func NewSearchClient(baseURL string) *SearchClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &SearchClient{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

// SearchQuery describes one search against captured content.
type SearchQuery struct {
	Query       string
	ContentType string // "ocr", "audio", or "all"
	StartTime   time.Time
	EndTime     time.Time
	Limit       int
}

// SearchResponse is the service's search reply.
type SearchResponse struct {
	Data []SearchResult `json:"data"`
}

// SearchResult is one matched capture.
type SearchResult struct {
	Type    string        `json:"type"`
	Content SearchContent `json:"content"`
}

// SearchContent holds the fields common to OCR and audio matches.
type SearchContent struct {
	Timestamp     time.Time `json:"timestamp"`
	AppName       string    `json:"app_name,omitempty"`
	WindowName    string    `json:"window_name,omitempty"`
	Text          string    `json:"text,omitempty"`
	Transcription string    `json:"transcription,omitempty"`
	DeviceName    string    `json:"device_name,omitempty"`
}

// Search runs one query and returns the matched captures.
func (c *SearchClient) Search(ctx context.Context, sq SearchQuery) (*SearchResponse, error) {
	q := url.Values{}
	if sq.Query != "" {
		q.Set("q", sq.Query)
	}
	if sq.ContentType != "" {
		q.Set("content_type", sq.ContentType)
	}
	if !sq.StartTime.IsZero() {
		q.Set("start_time", sq.StartTime.Format(time.RFC3339))
	}
	if !sq.EndTime.IsZero() {
		q.Set("end_time", sq.EndTime.Format(time.RFC3339))
	}
	if sq.Limit > 0 {
		q.Set("limit", strconv.Itoa(sq.Limit))
	}

	endpoint := strings.TrimRight(c.BaseURL, "/") + "/search?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search captures: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned %s", resp.Status)
	}

	var out SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return &out, nil
}

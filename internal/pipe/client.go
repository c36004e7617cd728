package pipe

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// DefaultBaseURL is the local capture service address.
const DefaultBaseURL = "http://localhost:3030"

// StreamClient reads the capture service's frame stream over SSE. One client
// owns one connection; ReadEvent is called in a loop until io.EOF (clean end
// of the historical backfill) or a transport error.
type StreamClient struct {
	body    io.ReadCloser
	scanner *bufio.Scanner

	closeOnce sync.Once
	closeErr  error
}

// OpenStream connects to the frame stream for the given window. The service
// is asked for descending order, but callers must not rely on it.
func OpenStream(baseURL string, windowStart, windowEnd time.Time) (*StreamClient, error) {
	q := url.Values{}
	q.Set("start_time", windowStart.Format(time.RFC3339))
	q.Set("end_time", windowEnd.Format(time.RFC3339))
	q.Set("order", "descending")

	endpoint := strings.TrimRight(baseURL, "/") + "/stream/frames?" + q.Encode()
	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	// No client timeout: the stream stays open for the life of the window.
	resp, err := (&http.Client{}).Do(req)
	if err != nil {
		return nil, fmt.Errorf("open frame stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("frame stream returned %s", resp.Status)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024) // 1MB buffer for encoded frames

	return &StreamClient{body: resp.Body, scanner: scanner}, nil
}

// ReadEvent blocks until the next SSE event arrives and returns its data
// payload. io.EOF means the server closed the stream cleanly.
func (c *StreamClient) ReadEvent() ([]byte, error) {
	var data []string
	for c.scanner.Scan() {
		line := c.scanner.Text()
		if line == "" {
			if len(data) > 0 {
				return []byte(strings.Join(data, "\n")), nil
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue // SSE comment
		}
		if rest, ok := strings.CutPrefix(line, "data:"); ok {
			data = append(data, strings.TrimPrefix(rest, " "))
		}
	}
	if err := c.scanner.Err(); err != nil {
		return nil, fmt.Errorf("read frame stream: %w", err)
	}
	if len(data) > 0 {
		return []byte(strings.Join(data, "\n")), nil
	}
	return nil, io.EOF
}

// Close releases the connection. Safe to call more than once.
func (c *StreamClient) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.body.Close()
	})
	return c.closeErr
}

package pipe

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func sseServer(t *testing.T, events []string, check func(r *http.Request)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, ev := range events {
			fmt.Fprint(w, ev)
		}
	}))
}

func TestOpenStreamRequestShape(t *testing.T) {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	var got *http.Request
	srv := sseServer(t, nil, func(r *http.Request) { got = r })
	defer srv.Close()

	c, err := OpenStream(srv.URL+"/", start, end)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if got.URL.Path != "/stream/frames" {
		t.Errorf("path = %q", got.URL.Path)
	}
	q := got.URL.Query()
	if q.Get("start_time") != start.Format(time.RFC3339) {
		t.Errorf("start_time = %q", q.Get("start_time"))
	}
	if q.Get("end_time") != end.Format(time.RFC3339) {
		t.Errorf("end_time = %q", q.Get("end_time"))
	}
	if q.Get("order") != "descending" {
		t.Errorf("order = %q", q.Get("order"))
	}
	if got.Header.Get("Accept") != "text/event-stream" {
		t.Errorf("accept = %q", got.Header.Get("Accept"))
	}
}

func TestOpenStreamRejectsNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := OpenStream(srv.URL, time.Now(), time.Now()); err == nil {
		t.Fatal("expected an error for a 503 response")
	}
}

func TestReadEventParsesSSE(t *testing.T) {
	srv := sseServer(t, []string{
		": ping\n\n",
		"data: {\"first\":1}\n\n",
		"data: part one\ndata: part two\n\n",
		"data:{\"no-space\":true}\n\n",
	}, nil)
	defer srv.Close()

	c, err := OpenStream(srv.URL, time.Now(), time.Now())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	want := []string{
		`{"first":1}`,
		"part one\npart two",
		`{"no-space":true}`,
	}
	for i, w := range want {
		data, err := c.ReadEvent()
		if err != nil {
			t.Fatalf("event %d: %v", i, err)
		}
		if string(data) != w {
			t.Errorf("event %d = %q, want %q", i, data, w)
		}
	}
	if _, err := c.ReadEvent(); !errors.Is(err, io.EOF) {
		t.Errorf("err after clean close = %v, want io.EOF", err)
	}
}

func TestReadEventFlushesFinalUnterminatedEvent(t *testing.T) {
	srv := sseServer(t, []string{"data: last words\n"}, nil)
	defer srv.Close()

	c, err := OpenStream(srv.URL, time.Now(), time.Now())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	data, err := c.ReadEvent()
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "last words" {
		t.Errorf("data = %q", data)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	srv := sseServer(t, nil, nil)
	defer srv.Close()

	c, err := OpenStream(srv.URL, time.Now(), time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
}

package pipe

import (
	"testing"
	"time"
)

func TestIsKeepAlive(t *testing.T) {
	cases := []struct {
		data string
		want bool
	}{
		{"keep-alive-text", true},
		{"  keep-alive-text \n", true},
		{`{"timestamp":"2024-06-01T12:00:00Z"}`, false},
		{"", false},
	}
	for _, tc := range cases {
		if got := IsKeepAlive([]byte(tc.data)); got != tc.want {
			t.Errorf("IsKeepAlive(%q) = %v, want %v", tc.data, got, tc.want)
		}
	}
}

func TestParseEntry(t *testing.T) {
	raw := `{
		"timestamp": "2024-06-01T12:00:00Z",
		"devices": [{
			"device_id": "display-1",
			"frame": "aGVsbG8=",
			"metadata": {
				"file_path": "/tmp/f.mp4",
				"app_name": "Editor",
				"window_name": "main.go",
				"ocr_text": "package main",
				"timestamp": "2024-06-01T12:00:01Z"
			},
			"audio": [{"device_name": "mic", "transcription": "hi", "duration_secs": 1.5}]
		}]
	}`
	entry, err := ParseEntry([]byte(raw))
	if err != nil {
		t.Fatal(err)
	}
	if !entry.Timestamp.Equal(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("timestamp = %v", entry.Timestamp)
	}
	if len(entry.Devices) != 1 {
		t.Fatalf("devices = %d", len(entry.Devices))
	}
	d := entry.Devices[0]
	if d.DeviceID != "display-1" || d.Metadata.AppName != "Editor" {
		t.Errorf("device = %+v", d)
	}
	if len(d.Audio) != 1 || d.Audio[0].Transcription != "hi" {
		t.Errorf("audio = %+v", d.Audio)
	}
}

func TestParseEntryRejectsMalformed(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"not json", "garbage"},
		{"missing timestamp", `{"devices":[{"device_id":"d"}]}`},
		{"no devices", `{"timestamp":"2024-06-01T12:00:00Z","devices":[]}`},
	}
	for _, tc := range cases {
		if _, err := ParseEntry([]byte(tc.data)); err == nil {
			t.Errorf("%s: expected an error", tc.name)
		}
	}
}

// Package pipe provides the client and wire types for talking to a screenpipe
// capture service: the SSE frame stream and the search endpoint.
package pipe

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// keepAlivePayload is the sentinel the service emits between frame batches to
// hold the stream open. It is not a frame batch.
const keepAlivePayload = "keep-alive-text"

// StreamTimeSeriesEntry is one timestamped batch of device captures. The
// timestamp is the batch's unique key.
type StreamTimeSeriesEntry struct {
	Timestamp time.Time     `json:"timestamp"`
	Devices   []DeviceFrame `json:"devices"`
}

// DeviceFrame is one device's captured image, metadata, and audio for a batch.
type DeviceFrame struct {
	DeviceID string        `json:"device_id"`
	Frame    string        `json:"frame"` // encoded image payload, opaque to this client
	Metadata FrameMetadata `json:"metadata"`
	Audio    []AudioEntry  `json:"audio"`
}

// FrameMetadata describes the capture a frame was taken from.
type FrameMetadata struct {
	FilePath   string    `json:"file_path"`
	AppName    string    `json:"app_name"`
	WindowName string    `json:"window_name"`
	OCRText    string    `json:"ocr_text"`
	Timestamp  time.Time `json:"timestamp"`
}

// AudioEntry is one transcribed audio segment attached to a frame.
type AudioEntry struct {
	DeviceName    string  `json:"device_name"`
	IsInput       bool    `json:"is_input"`
	Transcription string  `json:"transcription"`
	AudioFilePath string  `json:"audio_file_path"`
	DurationSecs  float64 `json:"duration_secs"`
	StartOffset   float64 `json:"start_offset"`
}

// IsKeepAlive reports whether an event payload is the keep-alive sentinel.
func IsKeepAlive(data []byte) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte(keepAlivePayload))
}

// ParseEntry decodes a frame batch payload. A batch without a timestamp or
// with an empty devices list is rejected.
func ParseEntry(data []byte) (*StreamTimeSeriesEntry, error) {
	var entry StreamTimeSeriesEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("unmarshal frame batch: %w", err)
	}
	if entry.Timestamp.IsZero() {
		return nil, fmt.Errorf("frame batch missing timestamp")
	}
	if len(entry.Devices) == 0 {
		return nil, fmt.Errorf("frame batch has no devices")
	}
	return &entry, nil
}

// Package agents defines the context selectors: named pure reducers that each
// turn a set of frame batches into a task-specific payload for the query
// engine. The set is a closed variant enum so adding one is a compile-checked
// case, and unknown names fail closed to the default.
package agents

import (
	"time"

	"github.com/mvandermeulen/screenpipe/internal/pipe"
)

// ID selects one reducer variant.
type ID int

const (
	ContextMaster ID = iota // default
	WindowTracker
	TextScanner
	AudioTranscriber
)

// Agent pairs a reducer variant with its user-facing identity.
type Agent struct {
	ID          ID
	Name        string
	Description string
}

// All returns the registry, default first.
func All() []Agent {
	return []Agent{
		{ContextMaster, "context-master", "analyzes everything: apps, windows, text and audio"},
		{WindowTracker, "window-tracker", "focuses on app and window usage"},
		{TextScanner, "text-scanner", "analyzes visible text (OCR)"},
		{AudioTranscriber, "audio-transcriber", "focuses on audio transcriptions"},
	}
}

// ByName resolves an agent identifier, falling back to the default variant
// for anything unknown.
func ByName(name string) Agent {
	all := All()
	for _, a := range all {
		if a.Name == name {
			return a
		}
	}
	return all[0]
}

// FullFrame is the context-master payload for one batch.
type FullFrame struct {
	Timestamp time.Time    `json:"timestamp"`
	Devices   []FullDevice `json:"devices"`
}

// FullDevice carries a device's capture minus the encoded image.
type FullDevice struct {
	DeviceID string             `json:"device_id"`
	Metadata pipe.FrameMetadata `json:"metadata"`
	Audio    []pipe.AudioEntry  `json:"audio"`
}

// WindowFrame is the window-tracker payload for one batch.
type WindowFrame struct {
	Timestamp time.Time   `json:"timestamp"`
	Windows   []AppWindow `json:"windows"`
}

// AppWindow is one device's focused app and window.
type AppWindow struct {
	AppName    string `json:"app_name"`
	WindowName string `json:"window_name"`
}

// TextFrame is the text-scanner payload for one batch.
type TextFrame struct {
	Timestamp time.Time `json:"timestamp"`
	Text      []string  `json:"text"`
}

// AudioFrame is the audio-transcriber payload for one batch.
type AudioFrame struct {
	Timestamp time.Time         `json:"timestamp"`
	Audio     []pipe.AudioEntry `json:"audio"`
}

// Reduce applies the agent's variant to the given batches. Reducers are total
// over well-formed batches and deterministic: the same input always yields
// the same payload.
func (a Agent) Reduce(entries []pipe.StreamTimeSeriesEntry) any {
	switch a.ID {
	case WindowTracker:
		out := make([]WindowFrame, 0, len(entries))
		for _, e := range entries {
			wf := WindowFrame{Timestamp: e.Timestamp}
			for _, d := range e.Devices {
				wf.Windows = append(wf.Windows, AppWindow{
					AppName:    d.Metadata.AppName,
					WindowName: d.Metadata.WindowName,
				})
			}
			out = append(out, wf)
		}
		return out

	case TextScanner:
		out := make([]TextFrame, 0, len(entries))
		for _, e := range entries {
			tf := TextFrame{Timestamp: e.Timestamp}
			for _, d := range e.Devices {
				if d.Metadata.OCRText != "" {
					tf.Text = append(tf.Text, d.Metadata.OCRText)
				}
			}
			out = append(out, tf)
		}
		return out

	case AudioTranscriber:
		out := make([]AudioFrame, 0, len(entries))
		for _, e := range entries {
			af := AudioFrame{Timestamp: e.Timestamp}
			for _, d := range e.Devices {
				af.Audio = append(af.Audio, d.Audio...)
			}
			out = append(out, af)
		}
		return out

	default: // ContextMaster
		out := make([]FullFrame, 0, len(entries))
		for _, e := range entries {
			ff := FullFrame{Timestamp: e.Timestamp}
			for _, d := range e.Devices {
				ff.Devices = append(ff.Devices, FullDevice{
					DeviceID: d.DeviceID,
					Metadata: d.Metadata,
					Audio:    d.Audio,
				})
			}
			out = append(out, ff)
		}
		return out
	}
}

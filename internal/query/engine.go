package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// State tracks the engine lifecycle for one query round.
type State int

const (
	Idle State = iota
	AwaitingFirstToken
	Streaming
	Errored
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingFirstToken:
		return "awaiting"
	case Streaming:
		return "streaming"
	case Errored:
		return "errored"
	default:
		return "unknown"
	}
}

// Engine preconditions rejected at the boundary with no state mutation.
var (
	ErrEmptyQuestion = errors.New("question is empty")
	ErrNoContext     = errors.New("no context payload; a committed selection is required")
)

// completionStream is the slice of the completion client's stream the engine
// needs; it lets tests substitute a scripted stream.
type completionStream interface {
	Recv() (openai.ChatCompletionStreamResponse, error)
	Close() error
}

type streamOpener interface {
	openStream(ctx context.Context, req openai.ChatCompletionRequest) (completionStream, error)
}

type openaiOpener struct {
	cli *openai.Client
}

func (o openaiOpener) openStream(ctx context.Context, req openai.ChatCompletionRequest) (completionStream, error) {
	return o.cli.CreateChatCompletionStream(ctx, req)
}

// Request describes one query over an extracted context payload.
type Request struct {
	History          []Message
	Question         string
	Payload          any // reducer output for the committed selection
	AgentDescription string
	Now              time.Time
}

// Engine issues cancellable streaming queries against a completion service.
// At most one query is in flight; Begin closes any prior stream before
// adopting a new one. State transitions happen on the caller's event loop;
// Ask itself only opens the stream and may run in a background command.
type Engine struct {
	opener streamOpener
	model  string

	state State
	live  *AnswerStream
}

// NewEngine builds an engine against an OpenAI-compatible completion service.
// An empty baseURL uses the service's default.
func NewEngine(apiKey, baseURL, model string) *Engine {
	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}
	return &Engine{
		opener: openaiOpener{cli: openai.NewClientWithConfig(clientConfig)},
		model:  model,
	}
}

// State returns the engine's current lifecycle state.
func (e *Engine) State() State { return e.state }

// Busy reports whether a query is in flight.
func (e *Engine) Busy() bool {
	return e.state == AwaitingFirstToken || e.state == Streaming
}

// Ask opens one streaming completion for the request. The caller reads the
// returned stream to exhaustion (io.EOF) or closes it to cancel. Preconditions
// are rejected with no state mutation.
func (e *Engine) Ask(req Request) (*AnswerStream, error) {
	if strings.TrimSpace(req.Question) == "" {
		return nil, ErrEmptyQuestion
	}
	if req.Payload == nil {
		return nil, ErrNoContext
	}

	messages, err := buildMessages(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := e.opener.openStream(ctx, openai.ChatCompletionRequest{
		Model:    e.model,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open completion stream: %w", err)
	}
	return &AnswerStream{stream: stream, cancel: cancel}, nil
}

// Begin adopts a newly opened answer stream, cancelling any query still in
// flight first.
func (e *Engine) Begin(s *AnswerStream) {
	if e.live != nil {
		e.live.Close()
	}
	e.live = s
	e.state = AwaitingFirstToken
}

// NoteDelta records that tokens are arriving.
func (e *Engine) NoteDelta() {
	if e.state == AwaitingFirstToken {
		e.state = Streaming
	}
}

// Finish records a clean stream end.
func (e *Engine) Finish() {
	if e.live != nil {
		e.live.Close()
		e.live = nil
	}
	e.state = Idle
}

// Fail records a transport or upstream failure. The notice is surfaced once
// by the caller; ClearError returns the engine to idle afterwards.
func (e *Engine) Fail() {
	if e.live != nil {
		e.live.Close()
		e.live = nil
	}
	e.state = Errored
}

// ClearError acknowledges a surfaced failure.
func (e *Engine) ClearError() {
	if e.state == Errored {
		e.state = Idle
	}
}

// Cancel aborts the in-flight query, if any. Partial output already rendered
// is retained by the caller, never rolled back here.
func (e *Engine) Cancel() {
	if e.live != nil {
		e.live.Close()
		e.live = nil
	}
	e.state = Idle
}

// buildMessages assembles the completion request: one system instruction,
// the prior turns, then a final user turn combining the serialized context
// payload with the question.
func buildMessages(req Request) ([]openai.ChatCompletionMessage, error) {
	payload, err := json.Marshal(req.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal context payload: %w", err)
	}

	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}
	zone, offset := now.Zone()

	system := fmt.Sprintf(
		"You are a helpful assistant analyzing screen and audio captures from the user's day. "+
			"Agent focus: %s.\n"+
			"Current time: %s. Viewer timezone: %s (UTC%s).\n"+
			"All timestamps in the provided context data are UTC. Convert timestamps to the "+
			"viewer's local time when answering, unless UTC is explicitly requested.",
		req.AgentDescription,
		now.Format(time.RFC3339),
		zone,
		formatOffset(offset),
	)

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: system},
	}
	for _, m := range req.History {
		role := openai.ChatMessageRoleUser
		if m.Role == RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: fmt.Sprintf("Context data:\n%s\n\nQuestion: %s", payload, strings.TrimSpace(req.Question)),
	})
	return messages, nil
}

func formatOffset(seconds int) string {
	sign := "+"
	if seconds < 0 {
		sign = "-"
		seconds = -seconds
	}
	return fmt.Sprintf("%s%02d:%02d", sign, seconds/3600, (seconds%3600)/60)
}

// AnswerStream yields incremental text deltas for one query round.
type AnswerStream struct {
	stream completionStream
	cancel context.CancelFunc

	closeOnce sync.Once
}

// Recv blocks until the next text delta. io.EOF means the answer is complete.
func (s *AnswerStream) Recv() (string, error) {
	resp, err := s.stream.Recv()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		return "", fmt.Errorf("read completion stream: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Delta.Content, nil
}

// Close aborts the stream. Safe to call more than once.
func (s *AnswerStream) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.stream.Close()
	})
}

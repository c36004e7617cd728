package query

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// scriptedStream replays a fixed sequence of deltas, then a terminal error.
type scriptedStream struct {
	deltas   []string
	final    error
	pos      int
	closed   int
	noChoice bool
}

func (s *scriptedStream) Recv() (openai.ChatCompletionStreamResponse, error) {
	if s.pos >= len(s.deltas) {
		return openai.ChatCompletionStreamResponse{}, s.final
	}
	d := s.deltas[s.pos]
	s.pos++
	if s.noChoice {
		return openai.ChatCompletionStreamResponse{}, nil
	}
	return openai.ChatCompletionStreamResponse{
		Choices: []openai.ChatCompletionStreamChoice{
			{Delta: openai.ChatCompletionStreamChoiceDelta{Content: d}},
		},
	}, nil
}

func (s *scriptedStream) Close() error {
	s.closed++
	return nil
}

type fakeOpener struct {
	stream  *scriptedStream
	openErr error
	lastReq openai.ChatCompletionRequest
}

func (f *fakeOpener) openStream(_ context.Context, req openai.ChatCompletionRequest) (completionStream, error) {
	f.lastReq = req
	if f.openErr != nil {
		return nil, f.openErr
	}
	return f.stream, nil
}

func testEngine(opener streamOpener) *Engine {
	return &Engine{opener: opener, model: "gpt-4o"}
}

func validRequest() Request {
	return Request{
		Question:         "what happened?",
		Payload:          []string{"frame context"},
		AgentDescription: "analyzes everything",
		Now:              time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestAskRejectsEmptyQuestion(t *testing.T) {
	e := testEngine(&fakeOpener{})
	req := validRequest()
	req.Question = "   \t "
	if _, err := e.Ask(req); !errors.Is(err, ErrEmptyQuestion) {
		t.Errorf("err = %v, want ErrEmptyQuestion", err)
	}
	if e.State() != Idle {
		t.Errorf("rejected ask should not move state, got %v", e.State())
	}
}

func TestAskRejectsMissingContext(t *testing.T) {
	e := testEngine(&fakeOpener{})
	req := validRequest()
	req.Payload = nil
	if _, err := e.Ask(req); !errors.Is(err, ErrNoContext) {
		t.Errorf("err = %v, want ErrNoContext", err)
	}
}

func TestAskWrapsOpenError(t *testing.T) {
	opened := errors.New("dial tcp: connection refused")
	e := testEngine(&fakeOpener{openErr: opened})
	if _, err := e.Ask(validRequest()); !errors.Is(err, opened) {
		t.Errorf("err = %v, want wrapped open error", err)
	}
}

func TestStreamDeltasThenEOF(t *testing.T) {
	fake := &fakeOpener{stream: &scriptedStream{
		deltas: []string{"You ", "opened ", "the editor."},
		final:  io.EOF,
	}}
	e := testEngine(fake)

	s, err := e.Ask(validRequest())
	if err != nil {
		t.Fatal(err)
	}
	e.Begin(s)
	if e.State() != AwaitingFirstToken {
		t.Fatalf("state = %v, want awaiting", e.State())
	}

	var got string
	for {
		delta, err := s.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		e.NoteDelta()
		got += delta
	}
	if got != "You opened the editor." {
		t.Errorf("accumulated = %q", got)
	}
	if e.State() != Streaming {
		t.Errorf("state = %v, want streaming", e.State())
	}
	e.Finish()
	if e.State() != Idle || e.Busy() {
		t.Errorf("state after finish = %v", e.State())
	}
	if fake.stream.closed == 0 {
		t.Error("finish should close the stream")
	}
}

func TestRecvWrapsTransportError(t *testing.T) {
	broken := errors.New("unexpected EOF")
	fake := &fakeOpener{stream: &scriptedStream{deltas: []string{"partial"}, final: broken}}
	e := testEngine(fake)

	s, err := e.Ask(validRequest())
	if err != nil {
		t.Fatal(err)
	}
	e.Begin(s)

	if delta, err := s.Recv(); err != nil || delta != "partial" {
		t.Fatalf("first recv = %q, %v", delta, err)
	}
	if _, err := s.Recv(); !errors.Is(err, broken) {
		t.Errorf("err = %v, want wrapped transport error", err)
	}

	e.Fail()
	if e.State() != Errored {
		t.Errorf("state = %v, want errored", e.State())
	}
	e.ClearError()
	if e.State() != Idle {
		t.Errorf("state = %v, want idle after clear", e.State())
	}
}

func TestRecvEmptyChoices(t *testing.T) {
	s := &AnswerStream{
		stream: &scriptedStream{deltas: []string{"ignored"}, final: io.EOF, noChoice: true},
		cancel: func() {},
	}
	if delta, err := s.Recv(); err != nil || delta != "" {
		t.Errorf("empty-choice recv = %q, %v", delta, err)
	}
}

func TestAnswerStreamCloseIsIdempotent(t *testing.T) {
	ss := &scriptedStream{final: io.EOF}
	cancelled := 0
	s := &AnswerStream{stream: ss, cancel: func() { cancelled++ }}
	s.Close()
	s.Close()
	s.Close()
	if ss.closed != 1 || cancelled != 1 {
		t.Errorf("close ran %d times, cancel %d times, want 1 each", ss.closed, cancelled)
	}
}

func TestBeginCancelsPriorQuery(t *testing.T) {
	first := &scriptedStream{deltas: []string{"a"}, final: io.EOF}
	second := &scriptedStream{deltas: []string{"b"}, final: io.EOF}
	e := testEngine(&fakeOpener{})

	e.Begin(&AnswerStream{stream: first, cancel: func() {}})
	e.Begin(&AnswerStream{stream: second, cancel: func() {}})

	if first.closed != 1 {
		t.Error("starting a second query should close the first stream")
	}
	if second.closed != 0 {
		t.Error("second stream should still be open")
	}
	if e.State() != AwaitingFirstToken {
		t.Errorf("state = %v", e.State())
	}
}

func TestCancelRetainsNothingLive(t *testing.T) {
	ss := &scriptedStream{deltas: []string{"a"}, final: io.EOF}
	e := testEngine(&fakeOpener{})
	e.Begin(&AnswerStream{stream: ss, cancel: func() {}})
	e.Cancel()
	if ss.closed != 1 {
		t.Error("cancel should close the stream")
	}
	if e.State() != Idle || e.Busy() {
		t.Errorf("state = %v after cancel", e.State())
	}
}

func TestBuildMessagesShape(t *testing.T) {
	fake := &fakeOpener{stream: &scriptedStream{final: io.EOF}}
	e := testEngine(fake)

	req := validRequest()
	req.History = []Message{
		{Role: RoleUser, Content: "earlier question"},
		{Role: RoleAssistant, Content: "earlier answer"},
	}
	if _, err := e.Ask(req); err != nil {
		t.Fatal(err)
	}

	msgs := fake.lastReq.Messages
	if len(msgs) != 4 {
		t.Fatalf("got %d messages, want system + 2 history + user", len(msgs))
	}
	if msgs[0].Role != openai.ChatMessageRoleSystem {
		t.Errorf("first message role = %q", msgs[0].Role)
	}
	if !strings.Contains(msgs[0].Content, "analyzes everything") {
		t.Error("system prompt missing agent description")
	}
	if !strings.Contains(msgs[0].Content, "UTC") {
		t.Error("system prompt missing timezone guidance")
	}
	if msgs[1].Role != openai.ChatMessageRoleUser || msgs[2].Role != openai.ChatMessageRoleAssistant {
		t.Errorf("history roles = %q, %q", msgs[1].Role, msgs[2].Role)
	}
	last := msgs[len(msgs)-1]
	if last.Role != openai.ChatMessageRoleUser {
		t.Errorf("final role = %q", last.Role)
	}
	if !strings.Contains(last.Content, "frame context") {
		t.Error("final turn missing context payload")
	}
	if !strings.Contains(last.Content, "Question: what happened?") {
		t.Error("final turn missing question")
	}
	if !fake.lastReq.Stream {
		t.Error("request should ask for a stream")
	}
	if fake.lastReq.Model != "gpt-4o" {
		t.Errorf("model = %q", fake.lastReq.Model)
	}
}

func TestFormatOffset(t *testing.T) {
	cases := []struct {
		seconds int
		want    string
	}{
		{0, "+00:00"},
		{3600, "+01:00"},
		{-18000, "-05:00"},
		{19800, "+05:30"},
	}
	for _, tc := range cases {
		if got := formatOffset(tc.seconds); got != tc.want {
			t.Errorf("formatOffset(%d) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}

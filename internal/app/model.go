package app

import (
	"errors"
	"io"
	"log"
	"strings"
	"time"

	"github.com/mvandermeulen/screenpipe/internal/agents"
	"github.com/mvandermeulen/screenpipe/internal/config"
	"github.com/mvandermeulen/screenpipe/internal/db"
	"github.com/mvandermeulen/screenpipe/internal/ingest"
	"github.com/mvandermeulen/screenpipe/internal/pipe"
	"github.com/mvandermeulen/screenpipe/internal/query"
	"github.com/mvandermeulen/screenpipe/internal/selection"
	"github.com/mvandermeulen/screenpipe/internal/timeline"

	tea "github.com/charmbracelet/bubbletea"
)

// nudgeStep is the keyboard selection step, in axis percent (~15 minutes).
const nudgeStep = 100.0 / 96

// axisRow is the terminal row the 24-hour axis renders on, for mouse
// hit-testing: header, status, divider, then the axis.
const axisRow = 3

// Model is the root bubbletea model for the timeline TUI.
type Model struct {
	cfg *config.Config

	// Ingestion
	sess *ingest.Session

	// Selection
	selector *selection.Selector
	refDay   time.Time
	dragging bool

	// Agents
	agentList []agents.Agent
	agentIdx  int

	// Query
	engine       *query.Engine
	conv         query.Conversation
	acc          *query.Accumulator
	answer       *query.AnswerStream
	lastQuestion string
	lastRange    selection.Range

	// Query log
	queryLog *db.Store

	// UI state
	input  string
	notice string
	now    time.Time
	width  int
	height int
}

// New creates the root model and computes the initial ingestion window.
func New(cfg *config.Config) Model {
	now := time.Now()
	sess := ingest.NewSession(timeline.New())
	sess.Refresh(now)

	return Model{
		cfg:       cfg,
		sess:      sess,
		selector:  selection.New(),
		agentList: agents.All(),
		engine:    query.NewEngine(cfg.APIKey, cfg.BaseURL, cfg.Model),
		refDay:    now,
		now:       now,
	}
}

// Init opens the frame stream for the initial window, opens the query log,
// and starts the clock.
func (m Model) Init() tea.Cmd {
	start, end := m.sess.Window()
	return tea.Batch(
		openStreamCmd(m.cfg.PipeURL, start, end),
		openQueryLogCmd(m.cfg.DBPath),
		tickCmd(),
	)
}

// Commands

func openStreamCmd(baseURL string, start, end time.Time) tea.Cmd {
	return func() tea.Msg {
		c, err := pipe.OpenStream(baseURL, start, end)
		if err != nil {
			return StreamOpenErrorMsg{Err: err}
		}
		return StreamOpenedMsg{Client: c}
	}
}

func readFrameCmd(c *pipe.StreamClient) tea.Cmd {
	return func() tea.Msg {
		entry, err := ingest.Next(c)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return StreamEndMsg{Client: c}
			}
			return StreamErrorMsg{Client: c, Err: err}
		}
		return FrameBatchMsg{Client: c, Entry: *entry}
	}
}

func startQueryCmd(e *query.Engine, req query.Request) tea.Cmd {
	return func() tea.Msg {
		stream, err := e.Ask(req)
		if err != nil {
			return QueryStartErrorMsg{Err: err}
		}
		return QueryStartedMsg{Stream: stream}
	}
}

func readDeltaCmd(s *query.AnswerStream) tea.Cmd {
	return func() tea.Msg {
		delta, err := s.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return QueryDoneMsg{Stream: s}
			}
			return QueryErrorMsg{Stream: s, Err: err}
		}
		return QueryDeltaMsg{Stream: s, Delta: delta}
	}
}

func openQueryLogCmd(path string) tea.Cmd {
	return func() tea.Msg {
		store, err := db.Open(path)
		if err != nil {
			log.Printf("[db] query log unavailable: %v", err)
			return nil
		}
		return queryLogOpenedMsg{store: store}
	}
}

func saveExchangeCmd(store *db.Store, ex db.Exchange) tea.Cmd {
	return func() tea.Msg {
		return exchangeSavedMsg{err: store.SaveExchange(ex)}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(30*time.Second, func(t time.Time) tea.Msg {
		return TickMsg{Now: t}
	})
}

func clearNoticeCmd() tea.Cmd {
	return tea.Tick(5*time.Second, func(time.Time) tea.Msg {
		return ClearNoticeMsg{}
	})
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case StreamOpenedMsg:
		m.sess.Attach(msg.Client)
		return m, readFrameCmd(msg.Client)

	case StreamOpenErrorMsg:
		m.sess.FailTransport(msg.Err)
		return m, nil

	// One frame read is always pending per connection. Closing a connection
	// deliberately (refresh, quit) makes that read fail; its message arrives
	// tagged with a client the session no longer owns and is dropped here so
	// a stale failure can never tear down the replacement stream.
	case FrameBatchMsg:
		if msg.Client != m.sess.Client() {
			return m, nil
		}
		m.sess.Apply(msg.Entry)
		if msg.Client != nil {
			return m, readFrameCmd(msg.Client)
		}
		return m, nil

	case StreamEndMsg:
		if msg.Client != m.sess.Client() {
			return m, nil
		}
		m.sess.FinishBackfill()
		return m, nil

	case StreamErrorMsg:
		if msg.Client != m.sess.Client() {
			return m, nil
		}
		m.sess.FailTransport(msg.Err)
		return m, nil

	case QueryStartedMsg:
		m.engine.Begin(msg.Stream)
		m.answer = msg.Stream
		m.acc = query.NewAccumulator()
		return m, readDeltaCmd(msg.Stream)

	case QueryStartErrorMsg:
		log.Printf("[query] open failed: %v", msg.Err)
		m.notice = "AI request failed, please try again"
		return m, clearNoticeCmd()

	// Cancelling a query closes its stream while one delta read is still
	// pending; that read comes back as an error tagged with the old stream.
	// Only messages from the current answer stream may touch query state, so
	// a cancel never manufactures a failure notice and a stale error never
	// orphans the query that replaced it.
	case QueryDeltaMsg:
		if msg.Stream != m.answer {
			return m, nil
		}
		m.engine.NoteDelta()
		if m.acc != nil {
			m.acc.Apply(msg.Delta)
		}
		if m.answer != nil {
			return m, readDeltaCmd(m.answer)
		}
		return m, nil

	case QueryDoneMsg:
		if msg.Stream != m.answer {
			return m, nil
		}
		return m.finishQuery()

	case QueryErrorMsg:
		if msg.Stream != m.answer {
			return m, nil
		}
		log.Printf("[query] stream failed: %v", msg.Err)
		m.conv.Commit(m.acc) // partial answer is kept, never rolled back
		m.acc = nil
		m.answer = nil
		m.engine.Fail()
		m.notice = "AI request failed, please try again"
		return m, clearNoticeCmd()

	case TickMsg:
		m.now = msg.Now
		return m, tickCmd()

	case ClearNoticeMsg:
		m.notice = ""
		m.engine.ClearError()
		return m, nil

	case queryLogOpenedMsg:
		m.queryLog = msg.store
		return m, nil

	case exchangeSavedMsg:
		if msg.err != nil {
			log.Printf("[db] save exchange: %v", msg.err)
		}
		return m, nil
	}

	return m, nil
}

// handleKey processes key presses. While a selection is committed, printable
// keys feed the question input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyCtrlC:
		m.shutdown()
		return m, tea.Quit

	case KeyEsc:
		if m.engine.Busy() {
			m.cancelQuery()
			return m, nil
		}
		if m.selector.HasSelection() {
			m.dismissSelection()
		}
		return m, nil

	case KeyAgent:
		m.agentIdx = (m.agentIdx + 1) % len(m.agentList)
		return m, nil

	case KeyCursorLeft:
		m.sess.Store().StepCursor(1) // older
		return m, nil

	case KeyCursorRight:
		m.sess.Store().StepCursor(-1) // newer
		return m, nil

	case KeyNudgeLeft:
		m.selector.Nudge(-nudgeStep)
		return m, nil

	case KeyNudgeRight:
		m.selector.Nudge(nudgeStep)
		return m, nil

	case KeyEnter:
		cmd := m.submitQuery()
		return m, cmd

	case KeyBackspace:
		if m.input != "" {
			runes := []rune(m.input)
			m.input = string(runes[:len(runes)-1])
		}
		return m, nil

	case KeyQuit:
		if !m.typing() {
			m.shutdown()
			return m, tea.Quit
		}

	case KeyRefresh:
		if !m.typing() {
			return m.refresh()
		}
	}

	if m.typing() {
		switch msg.Type {
		case tea.KeyRunes:
			m.input += string(msg.Runes)
		case tea.KeySpace:
			m.input += " "
		}
	}
	return m, nil
}

// handleMouse drives the range selector from axis gestures.
func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button == tea.MouseButtonLeft && msg.Y == axisRow {
			// A fresh drag discards the prior selection and starts a new
			// query session.
			m.cancelQuery()
			m.conv.Reset()
			m.input = ""
			m.selector.PointerDown(m.percentAtX(msg.X))
			m.dragging = true
		}

	case tea.MouseActionMotion:
		if m.dragging {
			m.selector.PointerMove(m.percentAtX(msg.X))
		}

	case tea.MouseActionRelease:
		if m.dragging {
			m.selector.PointerUp()
			m.dragging = false
		}
	}
	return m, nil
}

// typing reports whether keystrokes feed the question input.
func (m Model) typing() bool {
	return m.selector.IsCommitted()
}

func (m Model) percentAtX(x int) float64 {
	if m.width <= 1 {
		return 0
	}
	return float64(x) / float64(m.width-1) * 100
}

// submitQuery issues a query for the committed selection. Empty questions and
// uncommitted selections are rejected with no state change.
func (m *Model) submitQuery() tea.Cmd {
	question := strings.TrimSpace(m.input)
	if question == "" || !m.selector.IsCommitted() {
		return nil
	}

	// A second submission cancels the in-flight query; its partial answer is
	// committed first.
	if m.engine.Busy() {
		m.cancelQuery()
	}

	history := append([]query.Message(nil), m.conv.Messages()...)

	r := m.selector.Range(m.refDay)
	frames := m.sess.Store().InRange(r.Start, r.End)
	agent := m.agentList[m.agentIdx]
	payload := agent.Reduce(frames)

	m.conv.Append(query.RoleUser, question)
	m.lastQuestion = question
	m.lastRange = r
	m.input = ""

	return startQueryCmd(m.engine, query.Request{
		History:          history,
		Question:         question,
		Payload:          payload,
		AgentDescription: agent.Description,
		Now:              time.Now(),
	})
}

// finishQuery commits the streamed answer and logs the exchange.
func (m Model) finishQuery() (tea.Model, tea.Cmd) {
	var answerText string
	if m.acc != nil {
		answerText = m.acc.Text()
	}
	m.conv.Commit(m.acc)
	m.acc = nil
	m.answer = nil
	m.engine.Finish()

	if m.queryLog != nil && answerText != "" {
		return m, saveExchangeCmd(m.queryLog, db.Exchange{
			Question:   m.lastQuestion,
			Answer:     answerText,
			Agent:      m.agentList[m.agentIdx].Name,
			RangeStart: m.lastRange.Start,
			RangeEnd:   m.lastRange.End,
			Model:      m.cfg.Model,
		})
	}
	return m, nil
}

// cancelQuery aborts the in-flight query, keeping any partial answer.
func (m *Model) cancelQuery() {
	if m.answer != nil {
		m.answer.Close()
		m.answer = nil
	}
	m.conv.Commit(m.acc)
	m.acc = nil
	m.engine.Cancel()
}

// dismissSelection clears the selection and resets the conversation.
func (m *Model) dismissSelection() {
	m.cancelQuery()
	m.selector.Dismiss()
	m.conv.Reset()
	m.input = ""
	m.lastQuestion = ""
}

// refresh restarts ingestion over a freshly computed window.
func (m Model) refresh() (tea.Model, tea.Cmd) {
	m.sess.Stop()
	now := time.Now()
	m.refDay = now
	start, end := m.sess.Refresh(now)
	return m, openStreamCmd(m.cfg.PipeURL, start, end)
}

func (m Model) shutdown() {
	m.cancelQuery()
	m.sess.Stop()
	if m.queryLog != nil {
		m.queryLog.Close()
	}
}

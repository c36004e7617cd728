package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/mvandermeulen/screenpipe/internal/query"
	"github.com/mvandermeulen/screenpipe/internal/timeaxis"
	"github.com/mvandermeulen/screenpipe/internal/ui"
)

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var sections []string

	sections = append(sections, m.renderHeader())
	sections = append(sections, m.renderStatusBar())
	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))
	sections = append(sections, m.renderAxis())
	sections = append(sections, m.renderHourLabels())
	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))
	sections = append(sections, m.renderFramePanel())
	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))
	sections = append(sections, m.renderChatPanel())

	if m.notice != "" {
		sections = append(sections, ui.ErrorStyle.Render("! ")+ui.ErrorTextStyle.Render(m.notice))
	}
	sections = append(sections, m.renderFooter())

	return strings.Join(sections, "\n")
}

func (m Model) renderHeader() string {
	title := ui.TitleStyle.Render("SCREENPIPE TIMELINE")
	day := ui.DimStyle.Render(" — " + m.refDay.Format("Mon Jan 2"))
	return title + day
}

func (m Model) renderStatusBar() string {
	var parts []string

	store := m.sess.Store()
	switch {
	case m.sess.Err() != "":
		parts = append(parts, ui.ErrorTextStyle.Render("✕ "+m.sess.Err()))
	case m.sess.Loading():
		parts = append(parts, ui.LoadingStyle.Render("⟳ loading frames..."))
	default:
		parts = append(parts, ui.LiveBadgeStyle.Render("● LIVE"))
	}

	parts = append(parts, ui.StatusStyle.Render(fmt.Sprintf("%d frames", store.Len())))
	parts = append(parts, ui.SelectedStyle.Render("agent: "+m.agentList[m.agentIdx].Name))

	if m.selector.HasSelection() {
		r := m.selector.Range(m.refDay)
		parts = append(parts, ui.StatusStyle.Render(fmt.Sprintf("selection %s–%s",
			r.Start.Format("15:04"), r.End.Format("15:04"))))
	}

	if m.engine.Busy() {
		parts = append(parts, ui.StreamingStyle.Render("⟳ AI"))
	}

	return strings.Join(parts, "  ")
}

// renderAxis draws the fixed 24-hour axis: frames, selection, playback
// cursor, and the "now" marker.
func (m Model) renderAxis() string {
	w := m.width
	if w < 2 {
		return ""
	}

	chars := make([]rune, w)
	for i := range chars {
		chars[i] = '─'
	}

	type mark struct{ frame, cursor bool }
	marks := make([]mark, w)

	store := m.sess.Store()
	cursor := -1
	if store.HasCursor() {
		cursor = store.Cursor()
	}
	for i := 0; i < store.Len(); i++ {
		e := store.At(i)
		var metaTS = e.Timestamp
		if len(e.Devices) > 0 {
			metaTS = e.Devices[0].Metadata.Timestamp
		}
		idx := m.axisIndex(timeaxis.PercentForFrame(metaTS, e.Timestamp))
		marks[idx].frame = true
		if i == cursor {
			marks[idx].cursor = true
		}
	}

	selStart, selEnd := -1, -1
	if m.selector.HasSelection() {
		sp, ep := m.selector.Percents()
		selStart, selEnd = m.axisIndex(sp), m.axisIndex(ep)
	}

	nowIdx := m.axisIndex(timeaxis.PercentForInstant(m.now))

	var b strings.Builder
	for i := 0; i < w; i++ {
		ch, style := chars[i], ui.AxisStyle
		switch {
		case i == nowIdx:
			ch, style = '┃', ui.AxisNowStyle
		case marks[i].cursor:
			ch, style = '◆', ui.AxisCursorStyle
		case marks[i].frame:
			ch, style = '•', ui.AxisFrameStyle
		}
		if selStart >= 0 && i >= selStart && i <= selEnd {
			style = ui.AxisSelectionStyle
			if ch == '─' {
				ch = '█'
			}
		}
		b.WriteString(style.Render(string(ch)))
	}
	return b.String()
}

func (m Model) renderHourLabels() string {
	w := m.width
	chars := []rune(strings.Repeat(" ", w))
	for _, h := range []int{0, 6, 12, 18} {
		idx := m.axisIndex(float64(h) / 24 * 100)
		label := fmt.Sprintf("%02d:00", h)
		for j, r := range label {
			if idx+j < w {
				chars[idx+j] = r
			}
		}
	}
	return ui.DimStyle.Render(string(chars))
}

func (m Model) axisIndex(percent float64) int {
	idx := int(timeaxis.ClampPercent(percent) / 100 * float64(m.width-1))
	if idx < 0 {
		idx = 0
	}
	if idx > m.width-1 {
		idx = m.width - 1
	}
	return idx
}

// renderFramePanel shows the batch under the playback cursor.
func (m Model) renderFramePanel() string {
	entry, ok := m.sess.Store().Current()
	if !ok {
		return ui.DimStyle.Render("  no frames yet")
	}

	var lines []string
	lines = append(lines, ui.TimestampStyle.Render(entry.Timestamp.Format("[15:04:05]"))+
		ui.DimStyle.Render(fmt.Sprintf(" frame %d/%d", m.sess.Store().Cursor()+1, m.sess.Store().Len())))

	for _, d := range entry.Devices {
		info := ui.PanelTitleStyle.Render(d.Metadata.AppName)
		if d.Metadata.WindowName != "" {
			info += ui.DimStyle.Render(" · " + truncateToWidth(d.Metadata.WindowName, 40))
		}
		lines = append(lines, "  "+info)
		if d.Metadata.OCRText != "" {
			snippet := truncateToWidth(strings.Join(strings.Fields(d.Metadata.OCRText), " "), max(10, m.width-6))
			lines = append(lines, "  "+ui.DimStyle.Render(snippet))
		}
		if n := len(d.Audio); n > 0 {
			lines = append(lines, "  "+ui.DimStyle.Render(fmt.Sprintf("%d audio segment(s)", n)))
		}
	}

	if len(lines) > 5 {
		lines = lines[:5]
	}
	return strings.Join(lines, "\n")
}

// renderChatPanel shows the conversation, the live answer, and the input.
func (m Model) renderChatPanel() string {
	height := m.chatHeight()

	var lines []string
	if !m.selector.HasSelection() {
		lines = append(lines, ui.DimStyle.Render("  drag on the axis to select a time range, then ask about it"))
	} else {
		textWidth := max(10, m.width-8)
		for _, msg := range m.conv.Render(m.acc) {
			var prefix string
			var style lipgloss.Style
			if msg.Role == query.RoleUser {
				prefix, style = "you ", ui.UserMsgStyle
			} else {
				prefix, style = " ai ", ui.AssistantMsgStyle
			}
			for i, wl := range wrapText(msg.Content, textWidth) {
				if i == 0 {
					lines = append(lines, ui.DimStyle.Render(prefix)+style.Render(wl))
				} else {
					lines = append(lines, "    "+style.Render(wl))
				}
			}
		}
		if m.engine.Busy() && (m.acc == nil || m.acc.Text() == "") {
			lines = append(lines, ui.StreamingStyle.Render("    thinking..."))
		}
	}

	// Keep the tail, leave the last row for input.
	content := height - 1
	if len(lines) > content {
		lines = lines[len(lines)-content:]
	}
	for len(lines) < content {
		lines = append(lines, "")
	}

	if m.typing() {
		lines = append(lines, ui.SelectedStyle.Render("> ")+m.input+ui.LoadingStyle.Render("▌"))
	} else {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func (m Model) chatHeight() int {
	// header, status, 3 dividers, axis, labels, frame panel (up to 5),
	// notice, footer
	reserved := 14
	return max(3, m.height-reserved)
}

func (m Model) renderFooter() string {
	var parts []string
	if m.typing() {
		parts = append(parts, ui.FooterKeyStyle.Render("Enter")+ui.FooterDescStyle.Render(" Ask"))
		parts = append(parts, ui.FooterKeyStyle.Render("Esc")+ui.FooterDescStyle.Render(" Dismiss"))
	} else {
		parts = append(parts, ui.FooterKeyStyle.Render("Drag")+ui.FooterDescStyle.Render(" Select"))
		parts = append(parts, ui.FooterKeyStyle.Render("[/]")+ui.FooterDescStyle.Render(" Adjust"))
		parts = append(parts, ui.FooterKeyStyle.Render("r")+ui.FooterDescStyle.Render(" Refresh"))
		parts = append(parts, ui.FooterKeyStyle.Render("q")+ui.FooterDescStyle.Render(" Quit"))
	}
	parts = append(parts, ui.FooterKeyStyle.Render("←/→")+ui.FooterDescStyle.Render(" Frame"))
	parts = append(parts, ui.FooterKeyStyle.Render("Tab")+ui.FooterDescStyle.Render(" Agent"))
	return strings.Join(parts, "  ")
}

// Helpers

// truncateToWidth shortens s to at most width terminal cells, appending an
// ellipsis when anything was cut. Counts cells, not runes, so wide characters
// never overflow.
func truncateToWidth(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}

	cells := 0
	for i, r := range s {
		w := runewidth.RuneWidth(r)
		if cells+w > width-1 {
			return s[:i] + "…"
		}
		cells += w
	}
	return s
}

func wrapText(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}

	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		var current string
		for _, word := range strings.Fields(paragraph) {
			if current == "" {
				current = word
			} else if len(current)+1+len(word) <= width {
				current += " " + word
			} else {
				lines = append(lines, current)
				current = word
			}
		}
		if current != "" {
			lines = append(lines, current)
		} else {
			lines = append(lines, "")
		}
	}
	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}

package app

// Key binding constants used in handleKey.
const (
	KeyQuit        = "q"
	KeyCtrlC       = "ctrl+c"
	KeyEsc         = "esc"
	KeyRefresh     = "r"
	KeyAgent       = "tab"
	KeyEnter       = "enter"
	KeyBackspace   = "backspace"
	KeyCursorLeft  = "left"
	KeyCursorRight = "right"
	KeyNudgeLeft   = "["
	KeyNudgeRight  = "]"
)

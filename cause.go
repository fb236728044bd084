package ctlplane

// Cause identifies what originated a task: the same vocabulary the
// dispatcher uses to decide scheduling and response shaping.
type Cause string

const (
	CauseKeymap    Cause = "keymap"
	CauseMacro     Cause = "macro"
	CauseScript    Cause = "script"
	CauseCommand   Cause = "command"
	CauseUI        Cause = "ui"
	CauseHTTP      Cause = "http"
	CauseFileXfer  Cause = "file-transfer"
	CauseIdle      Cause = "idle"
	CausePassword  Cause = "password"
	CausePaste     Cause = "paste"
	CauseRedraw    Cause = "redraw"
	CauseKeypad    Cause = "keypad"
	CauseDefault   Cause = "default"
	CauseString    Cause = "string"
)

// Package emulator is a headless stand-in for the 3270 terminal core
// that dispatch.Dispatcher, httpd, and peer sessions are wired against
// by cmd/x3270d. Real screen-buffer semantics, TN3270E negotiation, and
// keyboard mapping are out of scope (spec §1's Non-goals); this package
// exists only to give the control-plane packages something concrete to
// report status against and lock/unlock, the way a test double stands
// in for a dependency whose real implementation is someone else's
// module.
//
// Grounded on peer.StatusProvider and httpd.ScreenRenderer's interface
// shapes, and on dispatch.KeyboardLocker, rather than on any one
// existing file — there is no terminal concept to adapt one from.
package emulator

import (
	"fmt"
	"html"
	"strconv"
	"sync"

	"github.com/x3270ctl/ctlplane"
)

// Engine holds the minimal state the control plane needs to report: a
// fixed-size text grid, a cursor, and a keyboard-lock flag.
type Engine struct {
	mu       sync.Mutex
	rows     int
	cols     int
	cursorR  int
	cursorC  int
	locked   bool
	connName string
	lines    []string
}

// New builds an Engine with the given screen geometry, disconnected and
// with the keyboard unlocked.
func New(rows, cols int) *Engine {
	return &Engine{rows: rows, cols: cols, lines: make([]string, rows)}
}

// StatusLine implements peer.StatusProvider.
func (e *Engine) StatusLine() ctlplane.StatusLine {
	e.mu.Lock()
	defer e.mu.Unlock()

	keyboardLock := "U"
	if e.locked {
		keyboardLock = "L"
	}
	conn := e.connName
	if conn == "" {
		conn = "N"
	}
	return ctlplane.StatusLine{
		KeyboardLock: keyboardLock,
		Mode3270:     "I",
		Formatted:    "U",
		Protected:    "U",
		Connection:   conn,
		EmulatorMode: "2",
		Model:        "4",
		Rows:         strconv.Itoa(e.rows),
		Columns:      strconv.Itoa(e.cols),
		CursorRow:    strconv.Itoa(e.cursorR),
		CursorCol:    strconv.Itoa(e.cursorC),
		WindowID:     "0x0",
	}
}

// RenderScreenHTML implements httpd.ScreenRenderer with a <pre> dump of
// the current lines — a faithful-enough stand-in given there is no
// real 3270 attribute model behind it.
func (e *Engine) RenderScreenHTML() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := "<pre>"
	for _, l := range e.lines {
		out += html.EscapeString(l) + "\n"
	}
	return out + "</pre>"
}

// LockKeyboard and UnlockKeyboard implement dispatch.KeyboardLocker.
func (e *Engine) LockKeyboard() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.locked = true
}

func (e *Engine) UnlockKeyboard() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.locked = false
}

// SetConnection records the host string shown in the status line's
// Connection field, the way Connect(...)/host-reconnect would in a
// real core.
func (e *Engine) SetConnection(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.connName = name
}

// SetLine pokes a screen row, for the demonstration Set()/Query()
// actions cmd/x3270d registers. A row outside the grid is an error.
func (e *Engine) SetLine(row int, text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if row < 0 || row >= e.rows {
		return fmt.Errorf("emulator: row %d out of range 0..%d", row, e.rows-1)
	}
	e.lines[row] = text
	return nil
}

// Line returns a screen row's text.
func (e *Engine) Line(row int) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if row < 0 || row >= e.rows {
		return "", fmt.Errorf("emulator: row %d out of range 0..%d", row, e.rows-1)
	}
	return e.lines[row], nil
}

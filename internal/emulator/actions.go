package emulator

import (
	"strconv"

	"github.com/x3270ctl/ctlplane/dispatch"
)

// Actions returns the demonstration action table cmd/x3270d registers
// against the Dispatcher: just enough native/REST-reachable behavior
// (Connect, Set, Query, Quit) to exercise the control plane end to end
// without any real 3270 wire protocol behind it.
func (e *Engine) Actions(quit func()) map[string]dispatch.ActionFunc {
	return map[string]dispatch.ActionFunc{
		"Connect": e.actionConnect,
		"Set":     e.actionSet,
		"Query":   e.actionQuery,
		"Quit":    actionQuit(quit),
	}
}

// actionConnect implements Connect(host) — it does not actually dial
// anything (TN3270E negotiation is out of scope); it only updates the
// status line's Connection field so a caller can see the effect.
func (e *Engine) actionConnect(rc *dispatch.RunContext) {
	args := rc.Command().Args
	if len(args) != 1 {
		rc.Fail("Connect: exactly one argument (host) required")
		return
	}
	e.SetConnection(args[0])
	rc.Succeed()
}

// actionSet implements Set(row,text) — pokes a screen row for
// screen.html/interact.html to show.
func (e *Engine) actionSet(rc *dispatch.RunContext) {
	args := rc.Command().Args
	if len(args) != 2 {
		rc.Fail("Set: exactly two arguments (row, text) required")
		return
	}
	row, err := strconv.Atoi(args[0])
	if err != nil {
		rc.Fail("Set: row must be an integer")
		return
	}
	if err := e.SetLine(row, args[1]); err != nil {
		rc.Fail(err.Error())
		return
	}
	rc.Succeed()
}

// actionQuery implements Query(keyword) — currently only
// Query(Connection) and Query(KeyboardLock), mirroring the status
// line's own fields.
func (e *Engine) actionQuery(rc *dispatch.RunContext) {
	args := rc.Command().Args
	if len(args) != 1 {
		rc.Fail("Query: exactly one argument required")
		return
	}
	status := e.StatusLine()
	switch args[0] {
	case "Connection":
		rc.Succeed(status.Connection)
	case "KeyboardLock":
		rc.Succeed(status.KeyboardLock)
	default:
		rc.Fail("Query: unknown keyword " + args[0])
	}
}

// actionQuit wraps the shutdown trigger cmd/x3270d supplies as a plain
// action, so a peer script or REST client can stop the process the
// same way spec §6.7 describes Quit as the clean-exit path.
func actionQuit(quit func()) dispatch.ActionFunc {
	return func(rc *dispatch.RunContext) {
		rc.Succeed()
		go quit()
	}
}

package ctlplane

// Callback is a task source's vtable — a "tcb" (task callback block)
// expressed as a Go interface instead of a C function-pointer table.
// dispatch.Dispatcher holds one Callback per task and drives it
// without knowing whether the task came from a peer socket, an HTTP
// session, a child script, or the built-in UI.
//
// Optional capabilities (a source that can Run itself re-entrantly,
// solicit interactive input, or echo commands back to its origin) are
// discovered via type assertion against Runner, InputRequester, and
// Echoer — the same pattern a CLI backend uses for Resumer, Streamer,
// and InputFormatter when negotiating optional behavior with its
// caller.
type Callback interface {
	// Name identifies the source for tracing (e.g. "peer:3", "http:7").
	Name() string

	// Cause reports what kind of source this is.
	Cause() Cause

	// Capabilities reports the negotiated capability bitmask.
	Capabilities() Capability

	// Data delivers one line of action output. success is false for
	// error-stream data (routed as errd: when the source negotiated
	// CapErrD, data: otherwise).
	Data(line string, success bool)

	// Done fires when the running action completes. dispatch.Dispatcher
	// pops the completed task from its queue whatever Done returns; the
	// return value does not keep a task on its queue.
	Done(success, aborted bool) (taskComplete bool)

	// CloseScript disables the source: aborts any pending input request
	// or pass-through, kills any child process, and unwinds its queue.
	CloseScript()
}

// Runner is implemented by sources that drive their own re-entrant work
// loop once activated (e.g. a peer session with more buffered input).
type Runner interface {
	Run()
}

// InputRequester is implemented by sources that can solicit interactive
// input mid-action (spec §4.1 "Input requests").
type InputRequester interface {
	// SetInputRequest stashes an opaque handle on the task while it waits
	// for a reply.
	SetInputRequest(handle string)
	// GetInputRequest returns the pending handle, if any.
	GetInputRequest() (handle string, ok bool)
	// SetIRState/GetIRState back a small keyed slot table an action can
	// use to stash state across a single input-request round trip.
	SetIRState(key, value string)
	GetIRState(key string) (value string, ok bool)
}

// Echoer is implemented by interactive sources that echo the command
// they're about to run back to their origin before executing it.
type Echoer interface {
	EchoCommand(cmd Command)
}

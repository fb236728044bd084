package ctlplane

import "time"

// EventKind identifies what a streamed Event carries.
type EventKind string

const (
	// EventData is one line of normal action output.
	EventData EventKind = "data"
	// EventErrData is one line of error-stream action output (emitted
	// as errd: instead of data: for sources that negotiated CapErrD).
	EventErrData EventKind = "errd"
	// EventInputEcho is an echoed (visible) input-request prompt.
	EventInputEcho EventKind = "inpt"
	// EventInputNoEcho is a masked (password-style) input-request
	// prompt; Event.Content is base64-encoded per spec §6.1.
	EventInputNoEcho EventKind = "inpw"
	// EventPassThru notifies a registering script that one of its
	// pass-through actions was invoked.
	EventPassThru EventKind = "passthru"
	// EventDone is the terminal event for a command: Event.Success holds
	// the ok/error outcome. dispatch leaves Event.Status empty.
	EventDone EventKind = "done"
)

// Event is one piece of streamed output from a running task.
type Event struct {
	Kind EventKind

	// Content is the payload: an output line for Data/ErrData, a prompt
	// for InputEcho/InputNoEcho, a JSON-encoded passthru envelope for
	// PassThru.
	Content string

	// Status is a slot for the 12-field status line. dispatch never sets
	// it; peer sessions read the status line from their StatusProvider
	// at write time instead.
	Status string

	// Success is populated on EventDone: true -> "ok", false -> "error".
	Success bool

	Timestamp time.Time
}

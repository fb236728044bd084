package ctlplane

// Source is the minimal descriptor a transport gives the dispatcher when
// submitting a command — it carries identity and negotiated behavior but
// no transport-specific runtime state (no sockets, no pipes). Transports
// embed Source inside their own session/process types, which additionally
// implement Callback.
//
// Source is a value type: identity and configuration, no mutexes or
// channels.
type Source struct {
	// ID uniquely identifies this source (e.g. "peer:3", "http:7").
	ID string

	// Cause reports what kind of source this is.
	Cause Cause

	// Capabilities is the negotiated capability bitmask.
	Capabilities Capability

	// QueueID names a queue. dispatch.Dispatcher.Submit does not read
	// it: a task joins the shared base queue, or a freshly pushed queue
	// when Capabilities has CapNewTaskQ, whatever QueueID holds.
	QueueID string
}

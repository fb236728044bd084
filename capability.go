package ctlplane

// Capability is a bitmask a source reports to the dispatcher describing
// how its responses should be shaped.
type Capability uint8

const (
	// Interactive sources have bare text treated as commands, not JSON.
	CapInteractive Capability = 1 << iota
	// ErrD sources want error output tagged distinctly (errd: vs data:).
	CapErrD
	// PWInput sources support password/no-echo input prompts.
	CapPWInput
	// UI marks a source as the built-in GUI (affects a handful of
	// dispatcher shortcuts that don't apply to scripted sources).
	CapUI
	// NewTaskQ requests that this task run on a freshly pushed queue
	// rather than the originating source's existing queue.
	CapNewTaskQ
	// Peer marks a source as a peer-protocol session (pipe/socket),
	// distinguishing it from HTTP and child-script sources for the
	// purposes of keyboard-lock and cookie bookkeeping.
	CapPeer
	// NeedCookie requires the security cookie to be verified before the
	// source's first action runs.
	CapNeedCookie
)

// Has reports whether all bits in want are set in c.
func (c Capability) Has(want Capability) bool {
	return c&want == want
}

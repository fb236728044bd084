package peer

import "github.com/x3270ctl/ctlplane"

// StatusProvider supplies the 12-field status line (spec §6.1/§6.2)
// appended to every command's response. The emulator core implements
// this; peer has no terminal state of its own.
type StatusProvider interface {
	StatusLine() ctlplane.StatusLine
}

// SessionOptions configures a new peer Session.
type SessionOptions struct {
	// ID identifies the session for tracing (e.g. "peer:3").
	ID string
	// Status supplies the status line on every response.
	Status StatusProvider
	// Interactive forces native-syntax-only framing, bypassing JSON
	// auto-detection (spec §4.2).
	Interactive bool
}

// capabilityKeyword maps a Capabilities(...) argument (spec §6.4) to
// its bit.
func capabilityKeyword(kw string) (ctlplane.Capability, bool) {
	switch kw {
	case "interactive":
		return ctlplane.CapInteractive, true
	case "pwinput":
		return ctlplane.CapPWInput, true
	case "errd":
		return ctlplane.CapErrD, true
	default:
		return 0, false
	}
}

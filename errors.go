package ctlplane

import "errors"

// Sentinel errors shared by the dispatcher and its transports.
var (
	// ErrUnavailable indicates a listener or subprocess could not be
	// started (bind failed, binary not found, port in use).
	ErrUnavailable = errors.New("ctlplane: unavailable")

	// ErrTerminated indicates a Run's source was closed before the task
	// completed (socket EOF, child death, closescript).
	ErrTerminated = errors.New("ctlplane: terminated")

	// ErrSessionNotFound indicates a lookup against a peer/HTTP session
	// id, pass-through tag, or input-request handle found nothing live.
	ErrSessionNotFound = errors.New("ctlplane: session not found")

	// ErrUnknownAction indicates a Command's Name has no registered
	// engine action and no matching pass-through registration.
	ErrUnknownAction = errors.New("ctlplane: unknown action")

	// ErrBadCookie indicates a source presented a missing or mismatching
	// security cookie.
	ErrBadCookie = errors.New("ctlplane: bad cookie")

	// ErrLateCookie indicates a native-syntax Cookie(...) command arrived
	// after a session's first command — rejected per the Open Question
	// decision in SPEC_FULL.md (cookie is valid only as the first
	// command of a session).
	ErrLateCookie = errors.New("ctlplane: cookie valid only as first command")
)

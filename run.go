package ctlplane

import "context"

// Run is a handle to one in-flight (or completed) command execution,
// returned by dispatch.Dispatcher.Submit. It is the caller-facing analog
// of the dispatcher's internal Task: transports read Events to produce
// their wire-level responses (data:/errd:/inpt:/status/ok framing for
// peer, REST bodies for HTTP) and call Abort to cancel.
//
// Run is an interface so it can be wrapped with tracing or test doubles.
type Run interface {
	// Events returns the channel carrying this run's output. It is
	// closed when the task reaches EventDone and that event has been
	// delivered.
	Events() <-chan Event

	// Abort cancels the run: equivalent to CloseScript on its Callback.
	Abort()

	// Wait blocks until the run completes.
	Wait()

	// Err returns the terminal error, if any, after Wait returns.
	Err() error
}

// DrainRun consumes run.Events(), calling handler for each event, until
// EventDone arrives or the channel closes. It exists because a handler
// may itself need to submit further commands (e.g. HTTP's to3270 REST
// adapter waiting on PENDING) without blocking the dispatcher — the same
// concurrent send/drain shape any long-lived streaming consumer needs.
func DrainRun(ctx context.Context, run Run, handler func(Event) error) error {
	for {
		select {
		case ev, ok := <-run.Events():
			if !ok {
				return run.Err()
			}
			if err := handler(ev); err != nil {
				run.Abort()
				return err
			}
			if ev.Kind == EventDone {
				return nil
			}
		case <-ctx.Done():
			run.Abort()
			return ctx.Err()
		}
	}
}

// Package eventfilter provides composable channel middleware for
// filtering ctlplane.Event streams, so a streaming consumer can pick
// the event granularity it needs out of a dispatch.Run's Events()
// channel. No other package in this module imports it.
//
// Retargeted from filter/filter.go's agentrun.Message combinators —
// same pipe/trySend shape, same "spawns a goroutine, closes the
// returned channel" contract, now keyed on ctlplane.EventKind instead
// of agentrun.MessageType.
package eventfilter

import (
	"context"

	"github.com/x3270ctl/ctlplane"
)

// Kinds returns a channel that only passes events of the given kinds.
// Spawns a goroutine that exits when ctx is cancelled or ch is closed.
func Kinds(ctx context.Context, ch <-chan ctlplane.Event, kinds ...ctlplane.EventKind) <-chan ctlplane.Event {
	allowed := make(map[ctlplane.EventKind]struct{}, len(kinds))
	for _, k := range kinds {
		allowed[k] = struct{}{}
	}
	return pipe(ctx, ch, func(ev ctlplane.Event) bool {
		_, ok := allowed[ev.Kind]
		return ok
	})
}

// DataOnly returns a channel passing only EventData and EventErrData —
// the lines a rest/text-style consumer renders, with no status or
// input-prompt framing.
func DataOnly(ctx context.Context, ch <-chan ctlplane.Event) <-chan ctlplane.Event {
	return Kinds(ctx, ch, ctlplane.EventData, ctlplane.EventErrData)
}

// UntilDone returns a channel that passes every event up to and
// including the first EventDone, then closes — the shape a REST
// adapter wants when it can only render one terminal response per
// request (spec §4.5's to3270 COMPLETE/FAILURE outcomes).
func UntilDone(ctx context.Context, ch <-chan ctlplane.Event) <-chan ctlplane.Event {
	out := make(chan ctlplane.Event)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				if !trySend(ctx, out, ev) {
					return
				}
				if ev.Kind == ctlplane.EventDone {
					return
				}
			}
		}
	}()
	return out
}

// pipe spawns a goroutine that reads from ch, passes events matching
// the predicate to the returned channel, and closes it when ch closes
// or ctx is cancelled. Callers must either drain the returned channel
// or cancel ctx to avoid goroutine leaks.
func pipe(ctx context.Context, ch <-chan ctlplane.Event, accept func(ctlplane.Event) bool) <-chan ctlplane.Event {
	out := make(chan ctlplane.Event)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				if accept(ev) && !trySend(ctx, out, ev) {
					return
				}
			}
		}
	}()
	return out
}

// trySend sends ev on out, returning true on success, or false if ctx
// is cancelled before the send completes.
func trySend(ctx context.Context, out chan<- ctlplane.Event, ev ctlplane.Event) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

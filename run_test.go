package ctlplane

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeRun is a minimal Run test double: events are fed in directly,
// Abort just records that it was called.
type fakeRun struct {
	events   chan Event
	err      error
	aborted  bool
	waitDone chan struct{}
}

func newFakeRun() *fakeRun {
	return &fakeRun{
		events:   make(chan Event, 8),
		waitDone: make(chan struct{}),
	}
}

func (f *fakeRun) Events() <-chan Event { return f.events }
func (f *fakeRun) Abort()               { f.aborted = true }
func (f *fakeRun) Wait()                { <-f.waitDone }
func (f *fakeRun) Err() error           { return f.err }

func TestDrainRunNormal(t *testing.T) {
	r := newFakeRun()
	r.events <- Event{Kind: EventData, Content: "hello"}
	r.events <- Event{Kind: EventDone, Status: "U F U U N I 2 62 32 0 0 0x0", Success: true}

	var got []Event
	err := DrainRun(context.Background(), r, func(ev Event) error {
		got = append(got, ev)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, EventData, got[0].Kind)
	require.Equal(t, EventDone, got[1].Kind)
	require.False(t, r.aborted)
}

func TestDrainRunHandlerError(t *testing.T) {
	r := newFakeRun()
	r.events <- Event{Kind: EventData, Content: "x"}

	handlerErr := errors.New("handler failed")
	err := DrainRun(context.Background(), r, func(Event) error {
		return handlerErr
	})
	require.ErrorIs(t, err, handlerErr)
	require.True(t, r.aborted)
}

func TestDrainRunContextCancellation(t *testing.T) {
	r := newFakeRun()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := DrainRun(ctx, r, func(Event) error {
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	require.True(t, r.aborted)
}

func TestDrainRunChannelClosed(t *testing.T) {
	r := newFakeRun()
	r.err = errors.New("terminated early")
	close(r.events)

	err := DrainRun(context.Background(), r, func(Event) error {
		return nil
	})
	require.ErrorIs(t, err, r.err)
}

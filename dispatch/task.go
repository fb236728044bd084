package dispatch

import (
	"sync"

	"github.com/x3270ctl/ctlplane"
)

type taskState int

const (
	stateRunnable taskState = iota
	stateWaitingInput
	stateWaitingPassthrough
	stateDone
)

// Task is one queued invocation: a Command bound to the Callback that
// originated it, plus whatever suspension state the dispatcher needs to
// resume it later (an input-request handle, a pass-through tag). It is
// the dispatcher's internal analog of a running subprocess handle: the
// thing that actually holds state between Submit and the terminal Done
// event.
type Task struct {
	id  string
	cmd ctlplane.Command
	cb  ctlplane.Callback
	src ctlplane.Source

	events chan ctlplane.Event

	mu      sync.Mutex
	state   taskState
	queue   *taskQueue
	irState  map[string]string
	irWant   string // handle assigned by the last RequestInput, cleared on resume
	ptagWant string // p-tag assigned by the last pass-through invocation

	// resume is set by whichever suspension mechanism (input request,
	// pass-through) is pending; invoking it re-arms the task as runnable.
	resume func(value string, aborted bool)

	success bool
	err     error
	done    chan struct{}
	doneOnce sync.Once
}

var _ ctlplane.Run = (*Task)(nil)

func newTask(id string, cmd ctlplane.Command, cb ctlplane.Callback, src ctlplane.Source) *Task {
	return &Task{
		id:      id,
		cmd:     cmd,
		cb:      cb,
		src:     src,
		events:  make(chan ctlplane.Event, 16),
		irState: make(map[string]string),
		done:    make(chan struct{}),
	}
}

// Events implements ctlplane.Run.
func (t *Task) Events() <-chan ctlplane.Event { return t.events }

// Wait implements ctlplane.Run.
func (t *Task) Wait() { <-t.done }

// Err implements ctlplane.Run.
func (t *Task) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Abort implements ctlplane.Run: it is the dispatcher-facing half of
// Callback.CloseScript, used both when a source closes voluntarily and
// when DrainRun's caller gives up.
func (t *Task) Abort() {
	t.mu.Lock()
	resume := t.resume
	t.resume = nil
	t.mu.Unlock()
	if resume != nil {
		resume("", true)
	}
}

func (t *Task) emit(ev ctlplane.Event) {
	select {
	case t.events <- ev:
	default:
		// A slow or absent consumer must never stall the dispatcher loop;
		// the line is dropped rather than blocking task scheduling.
	}
}

func (t *Task) finish(success bool, err error) {
	t.doneOnce.Do(func() {
		t.success = success
		t.err = err
		t.emit(ctlplane.Event{Kind: ctlplane.EventDone, Success: success})
		close(t.events)
		close(t.done)
	})
}

// complete marks the task done and runs finish exactly once.
func (t *Task) complete(success bool, err error) {
	t.mu.Lock()
	t.state = stateDone
	t.resume = nil
	t.mu.Unlock()
	t.finish(success, err)
}

// suspendForInput parks the task awaiting an interactive reply.
func (t *Task) suspendForInput(handle string, resume func(value string, aborted bool)) {
	t.mu.Lock()
	t.state = stateWaitingInput
	t.irWant = handle
	t.resume = resume
	t.mu.Unlock()
}

// suspendForPassthrough parks the task awaiting Succeed/Fail on a p-tag.
func (t *Task) suspendForPassthrough(ptag string, resume func(value string, aborted bool)) {
	t.mu.Lock()
	t.state = stateWaitingPassthrough
	t.ptagWant = ptag
	t.resume = resume
	t.mu.Unlock()
}

// resumeNow invokes the pending resume closure, if any, clearing
// suspension state first so re-entrant suspension in the same call
// works cleanly.
func (t *Task) resumeNow(value string, aborted bool) bool {
	t.mu.Lock()
	resume := t.resume
	t.resume = nil
	t.irWant = ""
	t.ptagWant = ""
	if resume != nil {
		t.state = stateRunnable
	}
	t.mu.Unlock()
	if resume == nil {
		return false
	}
	resume(value, aborted)
	return true
}

func (t *Task) setIRState(key, value string) {
	t.mu.Lock()
	t.irState[key] = value
	t.mu.Unlock()
}

func (t *Task) getIRState(key string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.irState[key]
	return v, ok
}

func (t *Task) inputHandle() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.irWant == "" {
		return "", false
	}
	return t.irWant, true
}

func (t *Task) passthroughTag() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ptagWant == "" {
		return "", false
	}
	return t.ptagWant, true
}

// Package dispatch implements the task dispatcher (spec §4.1): the
// single point through which every action from every source — peer
// sessions, HTTP requests, child scripts, the built-in UI — is
// serialized, suspended, and resumed.
//
// Scheduling follows the same shape a CLI subprocess backend uses to
// model a running child: one goroutine drives a cooperative loop, and
// anything that would block (a human reply, a pass-through round trip,
// a child process) suspends by registering a resumption closure and
// returning, rather than parking the loop goroutine itself.
package dispatch

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/x3270ctl/ctlplane"
	"github.com/x3270ctl/ctlplane/dispatch/internal/errfmt"
)

// KeyboardLocker is implemented by the embedding application (the
// emulator engine) to back the keyboard-lock side effect Script()
// triggers by default (spec §4.1 "Keyboard lock").
type KeyboardLocker interface {
	LockKeyboard()
	UnlockKeyboard()
}

// Dispatcher is the task scheduler. The zero value is not usable; build
// one with New.
type Dispatcher struct {
	log *logrus.Entry
	kbl KeyboardLocker

	mu          sync.Mutex
	queues      []*taskQueue
	actions     map[string]ActionFunc
	passthrough map[string]*passthroughReg // action name -> registration
	pendingPT   map[string]*Task           // p-tag -> invoking task
	inputs      map[string]*Task           // handle -> waiting task
	nextQueueID uint64
	cookie      string
	closed      bool

	wake chan struct{}
}

// Option configures a Dispatcher at construction time.
type Option func(*Dispatcher)

// WithKeyboardLocker wires the engine's keyboard-lock hooks.
func WithKeyboardLocker(kbl KeyboardLocker) Option {
	return func(d *Dispatcher) { d.kbl = kbl }
}

// WithCookie sets the process-wide security cookie every new task must
// present before its first action runs. An empty cookie (the default)
// disables the check.
func WithCookie(cookie string) Option {
	return func(d *Dispatcher) { d.cookie = cookie }
}

// WithLogger overrides the default logrus logger.
func WithLogger(log *logrus.Logger) Option {
	return func(d *Dispatcher) { d.log = log.WithField("component", "dispatch") }
}

// New creates a Dispatcher with actions registered from the given
// table and starts its scheduling goroutine.
func New(actions map[string]ActionFunc, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		log:         logrus.StandardLogger().WithField("component", "dispatch"),
		actions:     make(map[string]ActionFunc, len(actions)),
		passthrough: make(map[string]*passthroughReg),
		pendingPT:   make(map[string]*Task),
		inputs:      make(map[string]*Task),
		queues:      []*taskQueue{{id: "base"}},
		wake:        make(chan struct{}, 1),
	}
	for name, fn := range actions {
		d.actions[name] = fn
	}
	d.registerBuiltins()
	go d.loop()
	return d
}

func (d *Dispatcher) notify() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Submit enqueues cmd on behalf of src and returns a handle to the
// running task. If src.Capabilities requests CapNewTaskQ, a fresh queue
// is pushed for this task (used for macro-style re-entrant invocation);
// otherwise it joins the base queue.
func (d *Dispatcher) Submit(ctx context.Context, cmd ctlplane.Command, cb ctlplane.Callback) ctlplane.Run {
	src := callbackSource(cb)
	t := newTask(uuid.NewString(), cmd, cb, src)

	d.mu.Lock()
	q := d.queues[0]
	if src.Capabilities.Has(ctlplane.CapNewTaskQ) {
		q = &taskQueue{id: uuid.NewString()}
		d.queues = append(d.queues, q)
	}
	q.push(t)
	t.mu.Lock()
	t.state = stateRunnable
	t.mu.Unlock()
	d.mu.Unlock()
	d.notify()

	go d.watchContext(ctx, t)
	return t
}

// Enqueue is Submit's re-entrant form: it lets an already-running
// ActionFunc push a sub-command (a macro expanding into further
// actions) onto a freshly pushed queue that drains before the calling
// task's queue resumes, matching spec §4.1's "deepest queue runs first."
func (rc *RunContext) Enqueue(cmd ctlplane.Command) ctlplane.Run {
	d := rc.disp
	t := newTask(uuid.NewString(), cmd, rc.task.cb, rc.task.src)

	d.mu.Lock()
	q := &taskQueue{id: uuid.NewString()}
	d.queues = append(d.queues, q)
	q.push(t)
	t.mu.Lock()
	t.state = stateRunnable
	t.mu.Unlock()
	d.mu.Unlock()
	d.notify()

	return t
}

func (d *Dispatcher) watchContext(ctx context.Context, t *Task) {
	select {
	case <-ctx.Done():
		t.Abort()
	case <-t.done:
	}
}

func callbackSource(cb ctlplane.Callback) ctlplane.Source {
	return ctlplane.Source{
		ID:           cb.Name(),
		Cause:        cb.Cause(),
		Capabilities: cb.Capabilities(),
	}
}

// loop is the dispatcher's single scheduling goroutine.
func (d *Dispatcher) loop() {
	for {
		d.mu.Lock()
		task, changed := d.advanceLocked()
		d.mu.Unlock()
		if task == nil {
			if changed {
				continue
			}
			<-d.wake
			continue
		}
		d.runOne(task)
		d.notify()
	}
}

// advanceLocked returns the current runnable task, popping any fully
// drained nested queues and already-completed front tasks first. Must
// hold d.mu.
func (d *Dispatcher) advanceLocked() (*Task, bool) {
	changed := false
	for {
		top := d.queues[len(d.queues)-1]
		if top.empty() {
			if len(d.queues) == 1 {
				return nil, changed
			}
			d.queues = d.queues[:len(d.queues)-1]
			changed = true
			continue
		}
		t := top.front()
		t.mu.Lock()
		st := t.state
		t.mu.Unlock()
		switch st {
		case stateDone:
			top.popFront()
			changed = true
			continue
		case stateRunnable:
			return t, changed
		default:
			return nil, changed
		}
	}
}

func (d *Dispatcher) runOne(t *Task) {
	rc := &RunContext{disp: d, task: t, ctx: context.Background()}

	action := d.lookupAction(t.cmd.Name)
	if action == nil {
		if d.invokeRegisteredPassthrough(rc) {
			return
		}
		rc.Fail(errfmt.Truncate(ctlplane.ErrUnknownAction.Error() + ": " + t.cmd.Name))
		return
	}
	action(rc)

	t.mu.Lock()
	stillRunnable := t.state == stateRunnable
	t.mu.Unlock()
	if stillRunnable {
		d.completeTask(t, true, nil)
	}
}

func (d *Dispatcher) lookupAction(name string) ActionFunc {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.actions[name]
}

func (d *Dispatcher) completeTask(t *Task, success bool, err error) {
	handle, waitingInput := t.inputHandle()
	ptag, waitingPT := t.passthroughTag()
	if waitingInput || waitingPT {
		d.mu.Lock()
		if waitingInput {
			delete(d.inputs, handle)
		}
		if waitingPT {
			delete(d.pendingPT, ptag)
		}
		d.mu.Unlock()
	}
	t.complete(success, err)
	taskComplete := t.cb.Done(success, false)
	_ = taskComplete // not acted on: the completed task is popped either way
}

func (d *Dispatcher) newInputHandle(t *Task) string {
	handle := uuid.NewString()
	d.mu.Lock()
	d.inputs[handle] = t
	d.mu.Unlock()
	return handle
}

// ResumeInput delivers a reply to a pending input request. aborted
// corresponds to the native-syntax ResumeInput(-Abort) form.
func (d *Dispatcher) ResumeInput(handle, value string, aborted bool) error {
	d.mu.Lock()
	t, ok := d.inputs[handle]
	if ok {
		delete(d.inputs, handle)
	}
	d.mu.Unlock()
	if !ok {
		return ctlplane.ErrSessionNotFound
	}
	t.resumeNow(value, aborted)
	d.notify()
	return nil
}

// VerifyCookie checks presented against the configured security cookie.
// It returns true when no cookie is configured. Callers on a bad
// cookie must apply the randomized 1-2s delay themselves via
// BadCookieDelay before closing the connection, per spec §4.1.
func (d *Dispatcher) VerifyCookie(presented string) bool {
	d.mu.Lock()
	want := d.cookie
	d.mu.Unlock()
	if want == "" {
		return true
	}
	return presented == want
}

// RequiresCookie reports whether a process-wide cookie is configured.
func (d *Dispatcher) RequiresCookie() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cookie != ""
}

// BadCookieDelay blocks for a randomized 1-2s interval, to blunt
// brute-force attempts against the security cookie (spec §4.1).
func BadCookieDelay() {
	time.Sleep(time.Second + rand.N(time.Second))
}

// LockKeyboard and UnlockKeyboard delegate to the configured
// KeyboardLocker, if any (spec §4.1 "Keyboard lock"). launcher does not
// call them: it drives the KeyboardLocker in its own Config directly,
// locking at Start and unlocking at Wait or Kill.
func (d *Dispatcher) LockKeyboard() {
	if d.kbl != nil {
		d.kbl.LockKeyboard()
	}
}

func (d *Dispatcher) UnlockKeyboard() {
	if d.kbl != nil {
		d.kbl.UnlockKeyboard()
	}
}

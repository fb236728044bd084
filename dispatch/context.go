package dispatch

import (
	"context"

	"github.com/x3270ctl/ctlplane"
)

// ActionFunc implements one registered action. It runs on the
// dispatcher's single scheduling goroutine and must not block: any
// wait for I/O, a child process, or a human reply must be expressed by
// calling one of RunContext's suspend methods and returning. Exactly
// one of Succeed, Fail, RequestInput, or Suspend must be called
// before an ActionFunc returns (directly, or later from a resumption
// closure) — an action that returns without calling any of them is
// treated as an immediate, outputless success.
type ActionFunc func(rc *RunContext)

// RunContext is the handle an ActionFunc uses to read its invocation
// and report output, completion, or suspension. It plays the role the
// teacher's process gives a backend: the seam between generic
// scheduling and one action's specific behavior.
type RunContext struct {
	disp *Dispatcher
	task *Task
	ctx  context.Context
}

// Context returns the cancellation context for this invocation.
func (rc *RunContext) Context() context.Context { return rc.ctx }

// Command returns the action name and arguments being invoked.
func (rc *RunContext) Command() ctlplane.Command { return rc.task.cmd }

// Source returns the descriptor of the task's originating source.
func (rc *RunContext) Source() ctlplane.Source { return rc.task.src }

// Data emits one line of output. success false routes it as error-stream
// data (errd:) for sources that negotiated CapErrD.
func (rc *RunContext) Data(line string, success bool) {
	kind := ctlplane.EventData
	if !success {
		kind = ctlplane.EventErrData
	}
	rc.task.emit(ctlplane.Event{Kind: kind, Content: line})
	rc.task.cb.Data(line, success)
}

// Succeed emits each of lines as successful data and completes the task
// successfully.
func (rc *RunContext) Succeed(lines ...string) {
	for _, l := range lines {
		rc.Data(l, true)
	}
	rc.disp.completeTask(rc.task, true, nil)
}

// Fail emits msg as error data and completes the task unsuccessfully.
func (rc *RunContext) Fail(msg string) {
	rc.Data(msg, false)
	rc.disp.completeTask(rc.task, false, errString(msg))
}

// RequestInput suspends the task pending an interactive reply (spec
// §4.1 "Input requests"). echo selects inpt:/inpw: framing. continue_
// is invoked with the reply's decoded value once ResumeInput or
// ResumeInput(-Abort) runs; it must itself call Succeed/Fail or suspend
// again.
func (rc *RunContext) RequestInput(echo bool, prompt string, continue_ func(value string, aborted bool)) {
	handle := rc.disp.newInputHandle(rc.task)
	if ir, ok := rc.task.cb.(ctlplane.InputRequester); ok {
		ir.SetInputRequest(handle)
	}
	kind := ctlplane.EventInputEcho
	if !echo {
		kind = ctlplane.EventInputNoEcho
	}
	rc.task.emit(ctlplane.Event{Kind: kind, Content: prompt})
	rc.task.suspendForInput(handle, func(value string, aborted bool) {
		continue_(value, aborted)
	})
}

// SetIRState/GetIRState back the small keyed slot table an action can
// use to stash state across one input-request round trip.
func (rc *RunContext) SetIRState(key, value string) { rc.task.setIRState(key, value) }
func (rc *RunContext) GetIRState(key string) (string, bool) { return rc.task.getIRState(key) }

// Suspend parks the task on something only Go code can resume — a
// child process exit, a listener timeout — rather than a wire-protocol
// reply. It emits no event of its own (the action reports whatever it
// likes via Data/Succeed/Fail once resumed). The returned function
// resumes the task exactly once, from any goroutine; calling it is the
// launcher package's analogue of a SIGCHLD handler feeding back into
// the single-threaded control-plane loop.
func (rc *RunContext) Suspend(onResume func(aborted bool)) func(aborted bool) {
	t := rc.task
	d := rc.disp
	t.suspendForInput("", func(_ string, aborted bool) { onResume(aborted) })
	return func(aborted bool) {
		t.resumeNow("", aborted)
		d.notify()
	}
}

func errString(s string) error {
	return stringError(s)
}

type stringError string

func (e stringError) Error() string { return string(e) }

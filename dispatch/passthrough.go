package dispatch

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/x3270ctl/ctlplane"
)

// passthroughReg is one script-registered pass-through action (spec
// §4.1 "Pass-through actions"). owner is who receives the passthru
// notification when the action is invoked — the registering script,
// not whichever task invokes it.
type passthroughReg struct {
	name      string
	help      string
	helpParms string
	owner     ctlplane.Callback
}

// passthruEnvelope is the JSON shape delivered to the registering
// script's Data callback when its action is invoked.
type passthruEnvelope struct {
	Action string   `json:"action"`
	PTag   string   `json:"p-tag"`
	Args   []string `json:"args"`
}

func (d *Dispatcher) registerBuiltins() {
	d.actions["Register"] = actionRegister
	d.actions["Succeed"] = actionSucceed
	d.actions["Fail"] = actionFail
	d.actions["ResumeInput"] = actionResumeInput
}

// actionRegister implements Register(name[,help[,helpParms]]).
func actionRegister(rc *RunContext) {
	args := rc.Command().Args
	if len(args) == 0 {
		rc.Fail("Register: action name required")
		return
	}
	reg := &passthroughReg{name: args[0], owner: rc.task.cb}
	if len(args) > 1 {
		reg.help = args[1]
	}
	if len(args) > 2 {
		reg.helpParms = args[2]
	}
	rc.disp.mu.Lock()
	rc.disp.passthrough[reg.name] = reg
	rc.disp.mu.Unlock()
	rc.Succeed()
}

// invokeRegisteredPassthrough handles a command whose name matches a
// pass-through registration rather than a built-in action. It returns
// false if no such registration exists.
func (d *Dispatcher) invokeRegisteredPassthrough(rc *RunContext) bool {
	d.mu.Lock()
	reg, ok := d.passthrough[rc.task.cmd.Name]
	d.mu.Unlock()
	if !ok {
		return false
	}

	ptag := uuid.NewString()
	env := passthruEnvelope{Action: rc.task.cmd.Name, PTag: ptag, Args: rc.task.cmd.Args}
	payload, err := json.Marshal(env)
	if err != nil {
		rc.Fail("pass-through: " + err.Error())
		return true
	}

	d.mu.Lock()
	d.pendingPT[ptag] = rc.task
	d.mu.Unlock()

	reg.owner.Data(string(payload), true)
	rc.task.emit(ctlplane.Event{Kind: ctlplane.EventPassThru, Content: string(payload)})

	rc.task.suspendForPassthrough(ptag, func(value string, failed bool) {
		if failed {
			rc.Fail(value)
		} else {
			rc.Succeed(value)
		}
	})
	return true
}

// actionSucceed implements the overloaded Succeed action: with a first
// argument matching a pending pass-through tag, Succeed(p-tag[,text])
// resolves that OTHER (suspended) task; otherwise Succeed(line...)
// completes the CURRENT task successfully, each argument becoming one
// line of output — the same generic-success primitive a script uses
// directly and the one the framer's parse-error recovery never needs
// (only Fail is synthesized there).
func actionSucceed(rc *RunContext) {
	args := rc.Command().Args
	if target, ptag, ok := lookupPendingPassthrough(rc, args); ok {
		target.resumeNow(textArg(args), false)
		rc.Succeed()
		rc.disp.notify()
		_ = ptag
		return
	}
	rc.Succeed(args...)
}

// actionFail implements the overloaded Fail action: with a first
// argument matching a pending pass-through tag, Fail(p-tag[,text])
// resolves that OTHER (suspended) task as a failure; otherwise
// Fail(message) fails the CURRENT task — the same primitive a script
// uses directly and the one the peer framer synthesizes on a JSON
// parse error (spec §4.2).
func actionFail(rc *RunContext) {
	args := rc.Command().Args
	if target, ptag, ok := lookupPendingPassthrough(rc, args); ok {
		target.resumeNow(textArg(args), true)
		rc.Succeed()
		rc.disp.notify()
		_ = ptag
		return
	}
	msg := ""
	if len(args) > 0 {
		msg = args[0]
	}
	rc.Fail(msg)
}

// lookupPendingPassthrough reports whether args[0] names a currently
// pending pass-through tag, removing it from the table if so.
func lookupPendingPassthrough(rc *RunContext, args []string) (*Task, string, bool) {
	if len(args) == 0 {
		return nil, "", false
	}
	ptag := args[0]
	d := rc.disp
	d.mu.Lock()
	target, ok := d.pendingPT[ptag]
	if ok {
		delete(d.pendingPT, ptag)
	}
	d.mu.Unlock()
	return target, ptag, ok
}

func textArg(args []string) string {
	if len(args) > 1 {
		return args[1]
	}
	return ""
}

// actionResumeInput implements ResumeInput(<base64>) / ResumeInput(-Abort).
func actionResumeInput(rc *RunContext) {
	ir, ok := rc.task.cb.(ctlplane.InputRequester)
	if !ok {
		rc.Fail("ResumeInput: source does not support input requests")
		return
	}
	handle, ok := ir.GetInputRequest()
	if !ok {
		rc.Fail("ResumeInput: no input request pending")
		return
	}

	args := rc.Command().Args
	aborted := len(args) > 0 && args[0] == "-Abort"
	value := ""
	if !aborted && len(args) > 0 {
		value = args[0]
	}

	ir.SetInputRequest("")
	if err := rc.disp.ResumeInput(handle, value, aborted); err != nil {
		rc.Fail("ResumeInput: " + err.Error())
		return
	}
	rc.Succeed()
}

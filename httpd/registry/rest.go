package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/x3270ctl/ctlplane"
	"github.com/x3270ctl/ctlplane/dispatch"
)

// Outcome is to3270's verdict for one REST-bridged command (spec §4.5).
type Outcome int

const (
	// Complete: the task finished (successfully or not) before the
	// adapter returned.
	Complete Outcome = iota
	// Pending: the task suspended on interactive input or a pass-through
	// round trip the REST caller cannot service; to3270 reports this as
	// a failure result rather than holding the connection open — see
	// DESIGN.md for why async_done's true suspend/resume isn't wired.
	Pending
	// Invalid: the command text itself could not be parsed.
	Invalid
	// Failure: the dispatcher rejected or failed the command.
	Failure
)

// restCallback collects one command's output synchronously for to3270.
type restCallback struct {
	name string
	data []string
	errd []string
}

func (c *restCallback) Name() string                      { return c.name }
func (c *restCallback) Cause() ctlplane.Cause              { return ctlplane.CauseHTTP }
func (c *restCallback) Capabilities() ctlplane.Capability  { return ctlplane.CapErrD }
func (c *restCallback) Data(line string, success bool) {
	if success {
		c.data = append(c.data, line)
	} else {
		c.errd = append(c.errd, line)
	}
}
func (c *restCallback) Done(success, aborted bool) bool { return true }
func (c *restCallback) CloseScript()                    {}

// To3270 submits cmd to disp and blocks for its completion, per spec
// §4.5's "to3270(cmd, callback, dhandle, request_ct, return_ct)"
// interface. name identifies the REST session for tracing.
func To3270(ctx context.Context, disp *dispatch.Dispatcher, name string, cmd ctlplane.Command) (Outcome, bool, []string, []string, string) {
	cb := &restCallback{name: name}
	run := disp.Submit(ctx, cmd, cb)

	var status string
	var success bool
	for ev := range run.Events() {
		switch ev.Kind {
		case ctlplane.EventData:
			cb.data = append(cb.data, ev.Content)
		case ctlplane.EventErrData:
			cb.errd = append(cb.errd, ev.Content)
		case ctlplane.EventInputEcho, ctlplane.EventInputNoEcho, ctlplane.EventPassThru:
			run.Abort()
			return Pending, false, cb.data, cb.errd, ""
		case ctlplane.EventDone:
			success = ev.Success
			status = ev.Status
		}
	}
	if success {
		return Complete, true, cb.data, cb.errd, status
	}
	return Failure, false, cb.data, cb.errd, status
}

// RenderText renders a to3270 result as spec §4.5's rest/text/...
// shape: lines only.
func RenderText(data []string) []byte {
	return []byte(strings.Join(data, "\n") + "\n")
}

// RenderSText renders spec §4.5's rest/stext/... shape: status line,
// blank line, then text.
func RenderSText(status string, data []string) []byte {
	return []byte(status + "\n\n" + strings.Join(data, "\n") + "\n")
}

// RenderHTML renders spec §4.5's rest/html/... shape: HTML with status
// and result sections.
func RenderHTML(status string, data, errd []string, success bool) []byte {
	var b strings.Builder
	b.WriteString("<html><body>\n")
	fmt.Fprintf(&b, "<h2>Status</h2><pre>%s</pre>\n", status)
	b.WriteString("<h2>Result</h2><pre>\n")
	for _, l := range data {
		b.WriteString(htmlEscape(l))
		b.WriteByte('\n')
	}
	for _, l := range errd {
		b.WriteString(htmlEscape(l))
		b.WriteByte('\n')
	}
	b.WriteString("</pre>\n")
	fmt.Fprintf(&b, "<p>success: %v</p>\n</body></html>\n", success)
	return []byte(b.String())
}

// RenderJSON renders spec §4.5/§6.2's JSON envelope shape.
func RenderJSON(status string, data, errd []string, success bool) []byte {
	type envelope struct {
		Result    []string `json:"result"`
		ResultErr []bool   `json:"result-err"`
		Status    string   `json:"status"`
		Success   bool     `json:"success"`
	}
	env := envelope{Status: status, Success: success}
	for _, l := range data {
		env.Result = append(env.Result, l)
		env.ResultErr = append(env.ResultErr, false)
	}
	for _, l := range errd {
		env.Result = append(env.Result, l)
		env.ResultErr = append(env.ResultErr, true)
	}
	body, _ := json.Marshal(env)
	return append(body, '\n')
}

func htmlEscape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}

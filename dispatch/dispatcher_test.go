package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/x3270ctl/ctlplane"
)

// fakeCallback is a minimal ctlplane.Callback + InputRequester test
// double recording every line of output it receives.
type fakeCallback struct {
	name string
	mu   sync.Mutex
	data []string
	done bool
	ok   bool
	handle string
}

func newFakeCallback(name string) *fakeCallback { return &fakeCallback{name: name} }

func (f *fakeCallback) Name() string                    { return f.name }
func (f *fakeCallback) Cause() ctlplane.Cause            { return ctlplane.CauseScript }
func (f *fakeCallback) Capabilities() ctlplane.Capability { return 0 }
func (f *fakeCallback) CloseScript()                     {}

func (f *fakeCallback) Data(line string, success bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data = append(f.data, line)
}

func (f *fakeCallback) Done(success, aborted bool) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.done = true
	f.ok = success
	return true
}

func (f *fakeCallback) SetInputRequest(handle string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handle = handle
}

func (f *fakeCallback) GetInputRequest() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.handle == "" {
		return "", false
	}
	return f.handle, true
}

func (f *fakeCallback) SetIRState(string, string)        {}
func (f *fakeCallback) GetIRState(string) (string, bool) { return "", false }

var _ ctlplane.Callback = (*fakeCallback)(nil)
var _ ctlplane.InputRequester = (*fakeCallback)(nil)

func waitDone(t *testing.T, run ctlplane.Run) {
	t.Helper()
	select {
	case <-doneSignal(run):
	case <-time.After(2 * time.Second):
		t.Fatal("task did not complete in time")
	}
}

func doneSignal(run ctlplane.Run) <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		run.Wait()
		close(ch)
	}()
	return ch
}

func TestSubmitSimpleSuccess(t *testing.T) {
	d := New(map[string]ActionFunc{
		"Echo": func(rc *RunContext) {
			rc.Succeed(rc.Command().Args...)
		},
	})
	cb := newFakeCallback("test:1")
	run := d.Submit(context.Background(), ctlplane.Command{Name: "Echo", Args: []string{"hello"}}, cb)
	waitDone(t, run)

	require.NoError(t, run.Err())
	cb.mu.Lock()
	defer cb.mu.Unlock()
	require.Equal(t, []string{"hello"}, cb.data)
	require.True(t, cb.done)
	require.True(t, cb.ok)
}

func TestSubmitUnknownAction(t *testing.T) {
	d := New(map[string]ActionFunc{})
	cb := newFakeCallback("test:2")
	run := d.Submit(context.Background(), ctlplane.Command{Name: "Bogus"}, cb)
	waitDone(t, run)

	cb.mu.Lock()
	defer cb.mu.Unlock()
	require.True(t, cb.done)
	require.False(t, cb.ok)
}

func TestRequestInputRoundTrip(t *testing.T) {
	d := New(map[string]ActionFunc{
		"Ask": func(rc *RunContext) {
			rc.RequestInput(true, "name?", func(value string, aborted bool) {
				if aborted {
					rc.Fail("aborted")
					return
				}
				rc.Succeed("hello " + value)
			})
		},
	})
	cb := newFakeCallback("test:3")
	run := d.Submit(context.Background(), ctlplane.Command{Name: "Ask"}, cb)

	require.Eventually(t, func() bool {
		_, ok := cb.GetInputRequest()
		return ok
	}, time.Second, 5*time.Millisecond)

	handle, _ := cb.GetInputRequest()
	require.NoError(t, d.ResumeInput(handle, "world", false))
	waitDone(t, run)

	cb.mu.Lock()
	defer cb.mu.Unlock()
	require.Contains(t, cb.data, "hello world")
	require.True(t, cb.ok)
}

func TestPassthroughRoundTrip(t *testing.T) {
	d := New(map[string]ActionFunc{})
	script := newFakeCallback("script:1")
	d.Submit(context.Background(), ctlplane.Command{Name: "Register", Args: []string{"Greet"}}, script)

	caller := newFakeCallback("caller:1")
	run := d.Submit(context.Background(), ctlplane.Command{Name: "Greet", Args: []string{"world"}}, caller)

	require.Eventually(t, func() bool {
		script.mu.Lock()
		defer script.mu.Unlock()
		return len(script.data) > 0
	}, time.Second, 5*time.Millisecond)

	var ptag string
	script.mu.Lock()
	payload := script.data[len(script.data)-1]
	script.mu.Unlock()
	require.Contains(t, payload, `"action":"Greet"`)
	ptag = extractPTag(t, payload)

	succeedRun := d.Submit(context.Background(), ctlplane.Command{Name: "Succeed", Args: []string{ptag, "hi world"}}, script)
	waitDone(t, succeedRun)
	waitDone(t, run)

	caller.mu.Lock()
	defer caller.mu.Unlock()
	require.Contains(t, caller.data, "hi world")
	require.True(t, caller.ok)
}

func extractPTag(t *testing.T, payload string) string {
	t.Helper()
	const key = `"p-tag":"`
	i := indexOf(payload, key)
	require.GreaterOrEqual(t, i, 0)
	rest := payload[i+len(key):]
	j := indexOf(rest, `"`)
	require.GreaterOrEqual(t, j, 0)
	return rest[:j]
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

func TestAbortWhileWaitingForInput(t *testing.T) {
	d := New(map[string]ActionFunc{
		"Ask": func(rc *RunContext) {
			rc.RequestInput(true, "x?", func(value string, aborted bool) {
				if aborted {
					rc.Fail("aborted by caller")
					return
				}
				rc.Succeed(value)
			})
		},
	})
	cb := newFakeCallback("test:4")
	run := d.Submit(context.Background(), ctlplane.Command{Name: "Ask"}, cb)

	require.Eventually(t, func() bool {
		_, ok := cb.GetInputRequest()
		return ok
	}, time.Second, 5*time.Millisecond)

	run.Abort()
	waitDone(t, run)

	cb.mu.Lock()
	defer cb.mu.Unlock()
	require.False(t, cb.ok)
}

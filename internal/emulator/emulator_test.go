package emulator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/x3270ctl/ctlplane"
	"github.com/x3270ctl/ctlplane/dispatch"
)

// fakeCallback is a minimal ctlplane.Callback test double recording
// every line of output and the final success flag.
type fakeCallback struct {
	mu   sync.Mutex
	data []string
	done chan struct{}
	ok   bool
}

func newFakeCallback() *fakeCallback { return &fakeCallback{done: make(chan struct{})} }

func (f *fakeCallback) Name() string                    { return "test" }
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
	f.ok = success
	f.mu.Unlock()
	close(f.done)
	return true
}

func runAction(t *testing.T, actions map[string]dispatch.ActionFunc, name string, args ...string) (bool, []string) {
	t.Helper()
	disp := dispatch.New(actions)
	cb := newFakeCallback()
	disp.Submit(context.Background(), ctlplane.Command{Name: name, Args: args}, cb)
	select {
	case <-cb.done:
	case <-time.After(2 * time.Second):
		t.Fatal("action did not complete in time")
	}
	return cb.ok, cb.data
}

func TestStatusLineReflectsLockAndGeometry(t *testing.T) {
	e := New(24, 80)
	status := e.StatusLine()
	require.Equal(t, "U", status.KeyboardLock)
	require.Equal(t, "24", status.Rows)
	require.Equal(t, "80", status.Columns)

	e.LockKeyboard()
	require.Equal(t, "L", e.StatusLine().KeyboardLock)
	e.UnlockKeyboard()
	require.Equal(t, "U", e.StatusLine().KeyboardLock)
}

func TestSetLineRejectsOutOfRange(t *testing.T) {
	e := New(24, 80)
	require.Error(t, e.SetLine(24, "x"))
	require.NoError(t, e.SetLine(0, "hello"))
	line, err := e.Line(0)
	require.NoError(t, err)
	require.Equal(t, "hello", line)
}

func TestRenderScreenHTMLEscapesContent(t *testing.T) {
	e := New(2, 80)
	require.NoError(t, e.SetLine(0, "<script>"))
	html := e.RenderScreenHTML()
	require.Contains(t, html, "&lt;script&gt;")
}

func TestActionsConnectSetQuery(t *testing.T) {
	e := New(24, 80)
	actions := e.Actions(func() {})

	ok, _ := runAction(t, actions, "Connect", "host.example.com:23")
	require.True(t, ok)

	ok, _ = runAction(t, actions, "Set", "0", "hello")
	require.True(t, ok)

	ok, data := runAction(t, actions, "Query", "Connection")
	require.True(t, ok)
	require.Equal(t, []string{"host.example.com:23"}, data)

	ok, _ = runAction(t, actions, "Query", "Bogus")
	require.False(t, ok)
}

func TestActionQuitInvokesCallback(t *testing.T) {
	e := New(24, 80)
	quit := make(chan struct{})
	actions := e.Actions(func() { close(quit) })

	ok, _ := runAction(t, actions, "Quit")
	require.True(t, ok)

	select {
	case <-quit:
	case <-time.After(2 * time.Second):
		t.Fatal("quit was not invoked")
	}
}

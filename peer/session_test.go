package peer

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/x3270ctl/ctlplane"
	"github.com/x3270ctl/ctlplane/dispatch"
)

type fixedStatus struct{ line ctlplane.StatusLine }

func (f fixedStatus) StatusLine() ctlplane.StatusLine { return f.line }

func testDispatcher() *dispatch.Dispatcher {
	return dispatch.New(map[string]dispatch.ActionFunc{
		"String": func(rc *dispatch.RunContext) {
			rc.Data("typed: "+rc.Command().Args[0], true)
			rc.Succeed()
		},
		"Oops": func(rc *dispatch.RunContext) {
			rc.Fail("deliberate failure")
		},
	})
}

func newTestSession(t *testing.T, opts SessionOptions) (*Session, net.Conn) {
	t.Helper()
	serverConn, clientConn := net.Pipe()
	sess := NewSession(serverConn, testDispatcher(), opts)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go sess.Serve(ctx, serverConn)
	return sess, clientConn
}

func readLines(t *testing.T, r *bufio.Reader, n int) []string {
	t.Helper()
	lines := make([]string, 0, n)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < n; i++ {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			lines = append(lines, line[:len(line)-1])
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for output")
	}
	return lines
}

func TestSessionNativeModeRoundTrip(t *testing.T) {
	status := fixedStatus{line: ctlplane.StatusLine{
		KeyboardLock: "U", Mode3270: "U", Formatted: "U", Protected: "U",
		Connection: "C", EmulatorMode: "I", Model: "2", Rows: "24",
		Columns: "80", CursorRow: "0", CursorCol: "0", WindowID: "0x0",
	}}
	_, conn := newTestSession(t, SessionOptions{ID: "peer:1", Status: status})

	_, err := conn.Write([]byte("String(\"hi\")\n"))
	require.NoError(t, err)

	r := bufio.NewReader(conn)
	lines := readLines(t, r, 3)
	require.Equal(t, []string{"data: typed: hi", status.StatusLine().String(), "ok"}, lines)
}

func TestSessionNativeModeFailure(t *testing.T) {
	_, conn := newTestSession(t, SessionOptions{ID: "peer:1"})

	_, err := conn.Write([]byte("Oops()\n"))
	require.NoError(t, err)

	r := bufio.NewReader(conn)
	lines := readLines(t, r, 2)
	require.Equal(t, []string{"", "error"}, lines)
}

func TestSessionJSONModeRoundTrip(t *testing.T) {
	_, conn := newTestSession(t, SessionOptions{ID: "peer:1"})

	_, err := conn.Write([]byte(`{"action":"String","args":["hi"]}` + "\n"))
	require.NoError(t, err)

	r := bufio.NewReader(conn)
	lines := readLines(t, r, 1)
	require.Len(t, lines, 1)
	require.Contains(t, lines[0], `"result":["typed: hi"]`)
	require.Contains(t, lines[0], `"success":true`)
}

func TestSessionCookieNegotiationRejectsBadCookie(t *testing.T) {
	disp := dispatch.New(map[string]dispatch.ActionFunc{}, dispatch.WithCookie("secret"))
	serverConn, clientConn := net.Pipe()
	sess := NewSession(serverConn, disp, SessionOptions{ID: "peer:1"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sess.Serve(ctx, serverConn)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = clientConn.Write([]byte("Cookie(wrong)\n"))
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("write did not complete")
	}

	buf := make([]byte, 1)
	clientConn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, err := clientConn.Read(buf)
	require.Error(t, err)
}

func TestSessionCookieNegotiationAcceptsGoodCookie(t *testing.T) {
	disp := dispatch.New(map[string]dispatch.ActionFunc{
		"Enter": func(rc *dispatch.RunContext) { rc.Succeed() },
	}, dispatch.WithCookie("secret"))
	serverConn, clientConn := net.Pipe()
	sess := NewSession(serverConn, disp, SessionOptions{ID: "peer:1"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sess.Serve(ctx, serverConn)

	_, err := clientConn.Write([]byte("Cookie(secret)\nEnter()\n"))
	require.NoError(t, err)

	r := bufio.NewReader(clientConn)
	lines := readLines(t, r, 2)
	require.Equal(t, []string{"", "ok"}, lines)
}

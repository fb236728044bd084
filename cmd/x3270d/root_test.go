package main

import (
	"context"
	"errors"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/x3270ctl/ctlplane/dispatch"
	"github.com/x3270ctl/ctlplane/internal/emulator"
)

func TestRunServerRequiresATransport(t *testing.T) {
	err := runServer(context.Background(), config{})
	require.Error(t, err)
	require.Equal(t, exitConfigError, exitCode(err))
}

func TestRunServerBadScriptPortBindSpec(t *testing.T) {
	err := runServer(context.Background(), config{ScriptPort: "not-a-port"})
	require.Error(t, err)
	require.Equal(t, exitListenError, exitCode(err))
}

func TestRunServerStartsAndStopsOnCancel(t *testing.T) {
	port := freePort(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runServer(ctx, config{ScriptPort: port, Rows: 24, Cols: 80}) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runServer did not return after cancel")
	}
}

// freePort returns a currently-unused TCP port number as a string, by
// binding and immediately releasing it.
func freePort(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return strconv.Itoa(port)
}

func TestListenBindRejectsBadSpec(t *testing.T) {
	_, err := listenBind("not-a-port", false, false)
	require.Error(t, err)
}

func TestListenBindBindsEphemeralPort(t *testing.T) {
	ln, err := listenBind(freePort(t), false, false)
	require.NoError(t, err)
	defer ln.Close()
	require.NotEmpty(t, ln.Addr().String())
}

func TestDialCallbackConnectsToListener(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			conn.Close()
		}
	}()

	eng := emulator.New(24, 80)
	spec := ln.Addr().String()
	sess, conn, err := dialCallback(spec, dispatch.New(nil), eng, false, false)
	require.NoError(t, err)
	require.NotNil(t, sess)
	conn.Close()
}

func TestExitCodeDefaultsToOneForPlainError(t *testing.T) {
	require.Equal(t, 1, exitCode(errors.New("boom")))
}

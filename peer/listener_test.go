package peer

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/x3270ctl/ctlplane/dispatch"
)

func TestListenerAcceptsAndServes(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	disp := dispatch.New(map[string]dispatch.ActionFunc{
		"Enter": func(rc *dispatch.RunContext) { rc.Succeed() },
	})
	l := NewListener(ln, disp, ListenerOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = l.Serve(ctx) }()
	defer l.Close()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("Enter()\n"))
	require.NoError(t, err)

	r := bufio.NewReader(conn)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line1, err := r.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "\n", line1)
	line2, err := r.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "ok\n", line2)
}

func TestListenerCloseStopsAccepting(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	disp := dispatch.New(map[string]dispatch.ActionFunc{})
	l := NewListener(ln, disp, ListenerOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- l.Serve(ctx) }()

	require.NoError(t, l.Close())

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after Close")
	}
}

func TestListenerSingleClosesAfterFirstAccept(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()

	disp := dispatch.New(map[string]dispatch.ActionFunc{
		"Enter": func(rc *dispatch.RunContext) { rc.Succeed() },
	})
	l := NewListener(ln, disp, ListenerOptions{Single: true})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- l.Serve(ctx) }()

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("Enter()\n"))
	require.NoError(t, err)
	r := bufio.NewReader(conn)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err = r.ReadString('\n')
	require.NoError(t, err)

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after its single accepted connection")
	}

	_, err = net.DialTimeout("tcp", addr, time.Second)
	require.Error(t, err)
}

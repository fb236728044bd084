package peer

import (
	"context"
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/x3270ctl/ctlplane/dispatch"
)

// Listener accepts peer connections on a net.Listener (a Unix socket, a
// named pipe wrapped as net.Conn, or a TCP listener for the script
// port) and spawns one Session per connection (spec §4.2).
//
// Structurally grounded on engine/acp/engine.go's Start/spawn pattern:
// one long-lived accept loop handing each connection to its own
// goroutine, with a map tracking live sessions for Close to close.
type Listener struct {
	ln   net.Listener
	disp *dispatch.Dispatcher
	opts ListenerOptions
	log  *logrus.Entry

	nextID atomic.Uint64

	mu       sync.Mutex
	sessions map[*Session]struct{}
	closed   bool
}

// ListenerOptions configures every Session a Listener spawns.
type ListenerOptions struct {
	// Status supplies the status line for every spawned session.
	Status StatusProvider
	// Interactive forces native-syntax-only framing on every connection,
	// the INTERACTIVE mode named in spec §4.2.
	Interactive bool
	// Prefix names the Session.Name() sequence ("peer" -> "peer:1",
	// "peer:2", ...).
	Prefix string
	// Single closes the listener immediately after accepting its first
	// connection (spec §4.6 "-Single"), instead of accepting for the
	// life of Serve. The first session still runs to completion; only
	// further accepts are refused.
	Single bool
}

// NewListener wraps ln, dispatching accepted connections to disp.
func NewListener(ln net.Listener, disp *dispatch.Dispatcher, opts ListenerOptions) *Listener {
	if opts.Prefix == "" {
		opts.Prefix = "peer"
	}
	return &Listener{
		ln:       ln,
		disp:     disp,
		opts:     opts,
		log:      logrus.StandardLogger().WithField("component", "peer"),
		sessions: make(map[*Session]struct{}),
	}
}

// Serve accepts connections until ctx is canceled or the listener
// errors. It blocks; run it in a goroutine.
func (l *Listener) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = l.ln.Close()
	}()

	for {
		conn, err := l.ln.Accept()
		if err != nil {
			l.mu.Lock()
			closed := l.closed
			l.mu.Unlock()
			if closed {
				return nil
			}
			return err
		}
		if l.opts.Single {
			_ = l.ln.Close()
			go l.handle(ctx, conn)
			return nil
		}
		go l.handle(ctx, conn)
	}
}

func (l *Listener) handle(ctx context.Context, conn net.Conn) {
	id := l.nextID.Add(1)
	name := l.opts.Prefix + ":" + strconv.FormatUint(id, 10)

	sess := NewSession(conn, l.disp, SessionOptions{
		ID:          name,
		Status:      l.opts.Status,
		Interactive: l.opts.Interactive,
	})

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		_ = conn.Close()
		return
	}
	l.sessions[sess] = struct{}{}
	l.mu.Unlock()

	l.log.WithField("peer", name).Info("peer connected")
	sess.Serve(ctx, conn)
	l.log.WithField("peer", name).Info("peer disconnected")

	l.mu.Lock()
	delete(l.sessions, sess)
	l.mu.Unlock()
}

// Close stops accepting new connections and closes every live session.
func (l *Listener) Close() error {
	l.mu.Lock()
	l.closed = true
	sessions := make([]*Session, 0, len(l.sessions))
	for s := range l.sessions {
		sessions = append(sessions, s)
	}
	l.mu.Unlock()

	err := l.ln.Close()
	for _, s := range sessions {
		s.CloseScript()
	}
	return err
}

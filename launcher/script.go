package launcher

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/x3270ctl/ctlplane/cookiefile"
	"github.com/x3270ctl/ctlplane/dispatch"
	"github.com/x3270ctl/ctlplane/peer"
)

// HTTPServer is the seam launcher uses to hand a child's dedicated REST
// listener off to the HTTP package, without importing it directly —
// httpd.Server satisfies this at the cmd/x3270d wiring layer, keeping
// launcher buildable (and testable with a fake) on its own.
type HTTPServer interface {
	Serve(ln net.Listener) error
	Close() error
}

// HTTPServerFactory builds an HTTPServer bound to the same Dispatcher
// a Script() child's peer listener uses, so REST requests and native
// peer commands from the same child land on the same task queue.
type HTTPServerFactory func(disp *dispatch.Dispatcher) HTTPServer

// Config carries the environment-wide pieces Script needs on every
// invocation: the dispatcher commands are submitted to, the status
// source peer sessions report, the security cookie file children
// authenticate with, and the keyboard locker Script's default (non
// -NoLock, non -Async) behavior drives.
type Config struct {
	Dispatcher  *dispatch.Dispatcher
	Status      peer.StatusProvider
	CookiePath  string
	KeyboardLock dispatch.KeyboardLocker
	NewHTTP     HTTPServerFactory
	Log         *logrus.Entry
}

// asyncTeardownDelay is how long an -Async child's listeners stay open
// after the child exits, so a browser-style client has time to connect
// (spec §4.6 "Lifetime").
const asyncTeardownDelay = 3 * time.Second

// Process is a running (or just-finished) child script.
type Process struct {
	cfg  Config
	opts ScriptOptions

	peerLn net.Listener
	httpLn net.Listener
	peerL  *peer.Listener
	http   HTTPServer

	pipe     *pipeConn
	pipeSess *peer.Session

	child *child

	PeerPort int
	HTTPPort int
}

// Start spawns opts.Program per spec §4.6: binds the ephemeral peer and
// HTTP listeners, opens the legacy line-protocol pipes (unless
// Interactive), sets up the environment, and launches the process.
// It does not wait for the child; callers drive completion with Wait.
func Start(ctx context.Context, cfg Config, opts ScriptOptions) (*Process, error) {
	log := cfg.Log
	if log == nil {
		log = logrus.StandardLogger().WithField("component", "launcher")
	}

	peerLn, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("launcher: binding peer listener: %w", err)
	}
	httpLn, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		peerLn.Close()
		return nil, fmt.Errorf("launcher: binding http listener: %w", err)
	}

	p := &Process{
		cfg:      cfg,
		opts:     opts,
		peerLn:   peerLn,
		httpLn:   httpLn,
		PeerPort: peerLn.Addr().(*net.TCPAddr).Port,
		HTTPPort: httpLn.Addr().(*net.TCPAddr).Port,
	}

	p.peerL = peer.NewListener(peerLn, cfg.Dispatcher, peer.ListenerOptions{
		Status: cfg.Status,
		Single: opts.Single,
	})
	go func() {
		if err := p.peerL.Serve(ctx); err != nil {
			log.WithError(err).Debug("launcher: peer listener stopped")
		}
	}()

	if cfg.NewHTTP != nil {
		p.http = cfg.NewHTTP(cfg.Dispatcher)
		go func() {
			if err := p.http.Serve(httpLn); err != nil {
				log.WithError(err).Debug("launcher: http listener stopped")
			}
		}()
	}

	cookie := ""
	if cfg.CookiePath != "" {
		cookie, err = cookiefile.Load(cfg.CookiePath)
		if err != nil {
			p.closeListeners()
			return nil, fmt.Errorf("launcher: %w", err)
		}
	}

	env := p.childEnv(cookie)

	var extraFiles []*os.File
	var childOutW, childInR *os.File
	if !opts.Interactive {
		outR, outW, err := os.Pipe()
		if err != nil {
			p.closeListeners()
			return nil, fmt.Errorf("launcher: opening X3270OUTPUT pipe: %w", err)
		}
		inR, inW, err := os.Pipe()
		if err != nil {
			outR.Close()
			outW.Close()
			p.closeListeners()
			return nil, fmt.Errorf("launcher: opening X3270INPUT pipe: %w", err)
		}
		// The child's fds start at 3, in ExtraFiles order: fd 3 is
		// where it writes commands (X3270OUTPUT), fd 4 is where it
		// reads results (X3270INPUT).
		extraFiles = []*os.File{outW, inR}
		childOutW, childInR = outW, inR
		env = append(env, "X3270OUTPUT=3", "X3270INPUT=4")
		p.pipe = &pipeConn{r: outR, w: inW}
	}

	c, err := spawn(opts, env, extraFiles)
	if err != nil {
		if childOutW != nil {
			childOutW.Close()
			childInR.Close()
		}
		p.closeListeners()
		return nil, fmt.Errorf("launcher: spawning %s: %w", opts.Program, err)
	}
	p.child = c

	// The child now owns its own dup'd copies of outW/inR; close the
	// parent's references to them so EOF propagates correctly when the
	// child exits.
	if childOutW != nil {
		childOutW.Close()
		childInR.Close()
	}

	if p.pipe != nil {
		p.pipeSess = peer.NewSession(p.pipe, cfg.Dispatcher, peer.SessionOptions{
			ID:     "script-pipe",
			Status: cfg.Status,
		})
		go p.pipeSess.Serve(ctx, p.pipe)
	}

	if !opts.NoLock && !opts.Async && cfg.KeyboardLock != nil {
		cfg.KeyboardLock.LockKeyboard()
	}

	return p, nil
}

// childEnv builds the X3270PORT/X3270URL/X3270COOKIEFILE environment
// variables spec §4.6 names. X3270OUTPUT/X3270INPUT (legacy pipe FD
// indices) are appended separately by Start, once the pipe pair and
// its ExtraFiles ordering are known.
func (p *Process) childEnv(cookie string) []string {
	env := []string{
		fmt.Sprintf("X3270PORT=%d", p.PeerPort),
		fmt.Sprintf("X3270URL=http://127.0.0.1:%d/", p.HTTPPort),
	}
	if cookie != "" {
		env = append(env, "X3270COOKIEFILE="+p.cfg.CookiePath)
	}
	return env
}

func (p *Process) closeListeners() {
	p.peerLn.Close()
	p.httpLn.Close()
	if p.http != nil {
		p.http.Close()
	}
	if p.pipe != nil {
		p.pipe.Close()
	}
}

// Wait blocks until the child exits, returning the error-mapped
// termination message (spec §4.6 "Error mapping"), or "" for a clean
// exit. Pending peer commands from the child are discarded; its
// accumulated stdout is returned as the task's final output.
func (p *Process) Wait() (stdout []string, status string, err error) {
	stdout, status, err = p.child.wait()
	p.teardown()
	return stdout, status, err
}

// Kill terminates the child immediately (SIGTERM, then SIGKILL after a
// grace period if it doesn't exit) without waiting for its natural
// completion — used when the originating source closes early.
func (p *Process) Kill() {
	p.child.stop()
	p.teardown()
}

func (p *Process) teardown() {
	if !p.opts.NoLock && !p.opts.Async && p.cfg.KeyboardLock != nil {
		p.cfg.KeyboardLock.UnlockKeyboard()
	}
	delay := time.Duration(0)
	if p.opts.Async {
		delay = asyncTeardownDelay
	}
	if delay == 0 {
		p.closeListeners()
		return
	}
	time.AfterFunc(delay, p.closeListeners)
}

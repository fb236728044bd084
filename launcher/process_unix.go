//go:build !windows

package launcher

import (
	"bufio"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"

	"github.com/x3270ctl/ctlplane/launcher/internal/exitfmt"
)

// gracePeriod is how long child gets to exit cleanly after SIGTERM
// before stop escalates to SIGKILL — the same two-step shutdown
// engine/cli/process.go uses for a CLI backend subprocess.
const gracePeriod = 2 * time.Second

// child wraps one spawned *exec.Cmd and its captured stdout, using the
// same cmdDone/done/finishOnce shape as engine/cli/process.go, stripped
// of that file's Resumer/Streamer/turn-replacement machinery: a
// Script() child is a single one-shot process with no resume concept.
type child struct {
	cmd       *exec.Cmd
	ptyMaster *os.File

	mu      sync.Mutex
	lines   []string
	done    chan struct{}
	once    sync.Once
	status  string
	waitErr error
}

// spawn starts opts.Program with opts.Args and env appended to the
// current environment. extraFiles, if non-nil, become the child's fds
// starting at 3 (in order) — used to hand over the X3270OUTPUT/
// X3270INPUT pipe ends. Interactive children (spec §4.6 "Plumbing") get
// a real pty instead of a plain pipe, so a full-screen program the
// script launches still has a terminal to draw on; its combined
// output is still scraped into lines for Data() reporting, same as a
// non-interactive child.
func spawn(opts ScriptOptions, env []string, extraFiles []*os.File) (*child, error) {
	cmd := exec.Command(opts.Program, opts.Args...)
	cmd.Env = append(os.Environ(), env...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	cmd.ExtraFiles = extraFiles

	c := &child{cmd: cmd, done: make(chan struct{})}

	if opts.Interactive {
		master, err := pty.Start(cmd)
		if err != nil {
			return nil, err
		}
		c.ptyMaster = master
		if !opts.NoStdoutRedirect {
			go c.captureLines(master)
		}
		go c.run()
		return c, nil
	}

	var stdout io.ReadCloser
	capture := !opts.NoStdoutRedirect
	if capture {
		var err error
		stdout, err = cmd.StdoutPipe()
		if err != nil {
			return nil, err
		}
		cmd.Stderr = cmd.Stdout
	} else {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	if capture {
		go c.captureLines(stdout)
	}
	go c.run()

	return c, nil
}

func (c *child) captureLines(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		c.mu.Lock()
		c.lines = append(c.lines, line)
		c.mu.Unlock()
	}
}

func (c *child) run() {
	err := c.cmd.Wait()
	if c.ptyMaster != nil {
		c.ptyMaster.Close()
	}
	c.mu.Lock()
	c.waitErr = err
	c.status = exitfmt.Describe(c.cmd.Path, err)
	c.mu.Unlock()
	c.finish()
}

func (c *child) finish() {
	c.once.Do(func() { close(c.done) })
}

// wait blocks for the child to exit and returns its captured stdout
// lines plus the error-mapped status message.
func (c *child) wait() ([]string, string, error) {
	<-c.done
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lines...), c.status, c.waitErr
}

// stop sends SIGTERM, then escalates to SIGKILL if the child hasn't
// exited within gracePeriod.
func (c *child) stop() {
	if c.cmd.Process == nil {
		return
	}
	_ = c.cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-c.done:
		return
	case <-time.After(gracePeriod):
		_ = c.cmd.Process.Kill()
		<-c.done
	}
}

package peer

import (
	"bufio"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/x3270ctl/ctlplane"
	"github.com/x3270ctl/ctlplane/dispatch"
)

// Session is one peer connection (pipe or socket): it reads lines,
// frames them as native or JSON commands, submits them to a
// dispatch.Dispatcher one at a time, and shapes the dispatcher's Events
// back into the wire protocol (spec §4.2, §6.1, §6.2).
//
// Structurally grounded on engine/acp/conn.go's single mutex-protected
// writer, with ReadLoop's per-message dispatch replaced by framing and
// sequential (not id-correlated) request/response shaping.
type Session struct {
	id     string
	disp   *dispatch.Dispatcher
	status StatusProvider
	log    *logrus.Entry

	w      io.Writer
	wmu    sync.Mutex
	closer io.Closer

	framer Framer

	mu              sync.Mutex
	caps            ctlplane.Capability
	negotiating     bool
	closed          bool
	pendingIRHandle string
	irState         map[string]string
	batchNewQueue   bool
	curAccum        *jsonAccum
	lastJSONMode    bool
}

var _ ctlplane.Callback = (*Session)(nil)
var _ ctlplane.InputRequester = (*Session)(nil)

// NewSession wraps rw (a pipe or socket) as a peer session submitting
// commands to disp.
func NewSession(rw io.ReadWriter, disp *dispatch.Dispatcher, opts SessionOptions) *Session {
	closer, _ := rw.(io.Closer)
	s := &Session{
		id:          opts.ID,
		disp:        disp,
		status:      opts.Status,
		log:         logrus.StandardLogger().WithField("session", opts.ID),
		w:           rw,
		closer:      closer,
		framer:      Framer{Interactive: opts.Interactive},
		caps:        ctlplane.CapPeer,
		negotiating: true,
		irState:     make(map[string]string),
	}
	if opts.Interactive {
		s.caps |= ctlplane.CapInteractive
	}
	if disp.RequiresCookie() {
		s.caps |= ctlplane.CapNeedCookie
	}
	return s
}

// Serve reads rw until EOF or a fatal framing error, submitting every
// decoded command to the dispatcher in turn and writing its shaped
// response. It blocks until the connection closes.
func (s *Session) Serve(ctx context.Context, r io.Reader) {
	reader := bufio.NewReaderSize(r, 4096)
	buf := make([]byte, 4096)
	for {
		s.mu.Lock()
		closed := s.closed
		s.mu.Unlock()
		if closed {
			return
		}
		n, err := reader.Read(buf)
		if n > 0 {
			for _, frame := range s.framer.Feed(buf[:n]) {
				s.runFrame(ctx, frame)
				s.mu.Lock()
				closed = s.closed
				s.mu.Unlock()
				if closed {
					return
				}
			}
		}
		if err != nil {
			s.CloseScript()
			return
		}
	}
}

// runFrame executes every command in frame sequentially, intercepting
// Cookie/Capabilities negotiation commands at the front of the session
// before anything reaches the dispatcher (spec §6.4).
func (s *Session) runFrame(ctx context.Context, frame Frame) {
	cmds := frame.Commands
	if s.negotiationOpen() {
		cmds = s.consumeNegotiation(cmds)
		if s.closedNow() {
			return
		}
	}

	s.mu.Lock()
	s.lastJSONMode = frame.JSONMode
	s.mu.Unlock()

	if frame.JSONMode && len(frame.Commands) > 1 {
		s.setBatchNewQueue(true)
	}
	for _, cmd := range cmds {
		run := s.disp.Submit(ctx, cmd, s)
		s.setBatchNewQueue(false)
		_ = ctlplane.DrainRun(ctx, run, func(ev ctlplane.Event) error {
			s.writeEvent(ev, frame.JSONMode)
			return nil
		})
		if s.closedNow() {
			return
		}
	}
}

func (s *Session) setBatchNewQueue(v bool) {
	s.mu.Lock()
	s.batchNewQueue = v
	s.mu.Unlock()
}

func (s *Session) negotiationOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.negotiating
}

func (s *Session) closedNow() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// consumeNegotiation peels off a leading Cookie(...) and/or
// Capabilities(...) command from cmds, applying them directly rather
// than submitting them as dispatcher actions, and returns the
// remaining commands to run normally.
func (s *Session) consumeNegotiation(cmds []ctlplane.Command) []ctlplane.Command {
	for len(cmds) > 0 {
		cmd := cmds[0]
		switch cmd.Name {
		case "Cookie":
			presented := ""
			if len(cmd.Args) > 0 {
				presented = cmd.Args[0]
			}
			if !s.disp.VerifyCookie(presented) {
				dispatch.BadCookieDelay()
				s.CloseScript()
				return nil
			}
			s.mu.Lock()
			s.caps &^= ctlplane.CapNeedCookie
			s.mu.Unlock()
			cmds = cmds[1:]
		case "Capabilities":
			s.mu.Lock()
			for _, kw := range cmd.Args {
				if bit, ok := capabilityKeyword(kw); ok {
					s.caps |= bit
				}
			}
			s.mu.Unlock()
			cmds = cmds[1:]
		default:
			s.mu.Lock()
			s.negotiating = false
			needCookie := s.caps.Has(ctlplane.CapNeedCookie)
			s.mu.Unlock()
			if needCookie {
				dispatch.BadCookieDelay()
				s.CloseScript()
				return nil
			}
			return cmds
		}
	}
	return cmds
}

// writeEvent renders one dispatcher Event in the session's negotiated
// wire shape.
func (s *Session) writeEvent(ev ctlplane.Event, jsonMode bool) {
	if jsonMode {
		s.writeJSONEvent(ev)
		return
	}
	s.writeNativeEvent(ev)
}

func (s *Session) writeNativeEvent(ev ctlplane.Event) {
	switch ev.Kind {
	case ctlplane.EventData:
		s.writeLine("data: " + ev.Content)
	case ctlplane.EventErrData:
		s.writeLine("errd: " + ev.Content)
	case ctlplane.EventInputEcho:
		s.writeLine("inpt: " + base64.StdEncoding.EncodeToString([]byte(ev.Content)))
	case ctlplane.EventInputNoEcho:
		s.writeLine("inpw: " + base64.StdEncoding.EncodeToString([]byte(ev.Content)))
	case ctlplane.EventPassThru:
		// Pass-through notifications ride the same data: channel; the
		// registering script recognizes its shape by content, not kind.
		s.writeLine("data: " + ev.Content)
	case ctlplane.EventDone:
		s.writeLine(s.statusLine())
		if ev.Success {
			s.writeLine("ok")
		} else {
			s.writeLine("error")
		}
	}
}

// statusLine renders the status provider's current state, or the empty
// line a session with no provider (e.g. a bare dispatcher test harness)
// falls back to. Dispatch has no notion of terminal state of its own
// (spec keeps the scheduler and the 3270 display model separate), so
// the status line is always read fresh at write time rather than
// carried on the Event.
func (s *Session) statusLine() string {
	if s.status == nil {
		return ""
	}
	return s.status.StatusLine().String()
}

// jsonAccum buffers one command's worth of output lines for JSON
// shaping, since the JSON response is a single object emitted only
// once the command finishes (spec §6.2) rather than streamed per line.
type jsonAccum struct {
	result    []string
	resultErr []bool
}

// writeJSONEvent accumulates one event into the current command's
// response object, flushing it on EventDone. Sessions process one
// command at a time (runFrame is sequential), so a single accumulator
// slot suffices.
func (s *Session) writeJSONEvent(ev ctlplane.Event) {
	s.mu.Lock()
	if s.curAccum == nil {
		s.curAccum = &jsonAccum{}
	}
	acc := s.curAccum
	switch ev.Kind {
	case ctlplane.EventData:
		acc.result = append(acc.result, ev.Content)
		acc.resultErr = append(acc.resultErr, false)
	case ctlplane.EventErrData:
		acc.result = append(acc.result, ev.Content)
		acc.resultErr = append(acc.resultErr, true)
	case ctlplane.EventInputEcho, ctlplane.EventInputNoEcho, ctlplane.EventPassThru:
		acc.result = append(acc.result, ev.Content)
		acc.resultErr = append(acc.resultErr, false)
	}
	var flush func()
	if ev.Kind == ctlplane.EventDone {
		s.curAccum = nil
		status := s.statusLine()
		flush = func() {
			s.writeLine(EncodeJSONResponse(acc.result, acc.resultErr, status, ev.Success))
		}
	}
	s.mu.Unlock()
	if flush != nil {
		flush()
	}
}

func (s *Session) writeLine(line string) {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	fmt.Fprintf(s.w, "%s\n", line)
}

// --- ctlplane.Callback ---

func (s *Session) Name() string { return s.id }

func (s *Session) Cause() ctlplane.Cause { return ctlplane.CauseScript }

func (s *Session) Capabilities() ctlplane.Capability {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.caps
	if s.batchNewQueue {
		c |= ctlplane.CapNewTaskQ
	}
	return c
}

func (s *Session) Data(line string, success bool) {
	// Callback.Data is used for pass-through notifications delivered
	// out-of-band from the registering script's own task stream; ride
	// the same writeEvent path as a data line, shaped per this
	// session's most recently negotiated mode.
	kind := ctlplane.EventData
	if !success {
		kind = ctlplane.EventErrData
	}
	s.mu.Lock()
	jsonMode := s.lastJSONMode
	s.mu.Unlock()
	s.writeEvent(ctlplane.Event{Kind: kind, Content: line}, jsonMode)
}

func (s *Session) Done(success, aborted bool) (taskComplete bool) {
	return true
}

func (s *Session) CloseScript() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	if s.closer != nil {
		_ = s.closer.Close()
	}
}

// --- ctlplane.InputRequester ---

func (s *Session) SetInputRequest(handle string) {
	s.mu.Lock()
	s.pendingIRHandle = handle
	s.mu.Unlock()
}

func (s *Session) GetInputRequest() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingIRHandle, s.pendingIRHandle != ""
}

func (s *Session) SetIRState(key, value string) {
	s.mu.Lock()
	s.irState[key] = value
	s.mu.Unlock()
}

func (s *Session) GetIRState(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.irState[key]
	return v, ok
}

// ParseCookieLine exposes native-syntax parsing of the first
// negotiation line for callers (e.g. tests, or a transport that reads
// the first line before handing off to Serve) that want to validate a
// session's opening line without a live connection.
func ParseCookieLine(line string) ([]ctlplane.Command, error) {
	return ParseNativeLine(line)
}

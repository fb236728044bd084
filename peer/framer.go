package peer

import (
	"bytes"

	"github.com/x3270ctl/ctlplane"
	"github.com/x3270ctl/ctlplane/jsonvalue"
)

// Frame is one decoded unit of input: either one or more native-syntax
// commands from a single line, or one or more JSON commands decoded
// from a (possibly multi-line) buffered JSON value. JSONMode records
// which wire shape the response should use (spec §6.1 vs §6.2).
type Frame struct {
	Commands []ctlplane.Command
	JSONMode bool
}

// Framer implements the input half of the s3270 line protocol (spec
// §4.2): it tells native syntax from JSON by the first non-whitespace
// byte of a line, and — the one place this protocol is NOT simply
// line-oriented — lets an incomplete JSON value span multiple newlines
// by re-parsing the whole accumulated buffer from scratch each time a
// further line arrives, exactly the resumability contract
// jsonvalue.Parse documents.
//
// Structurally grounded on engine/acp/conn.go's bufio.Scanner-based
// line reader, adapted here to hand-rolled buffering since the
// JSON-incomplete case needs to inspect and retain partial lines that
// bufio.Scanner's split-function model doesn't expose cleanly.
type Framer struct {
	// Interactive, when true, forces every line to native syntax
	// regardless of its leading character (spec §4.2: "the session is
	// NOT INTERACTIVE").
	Interactive bool

	buf []byte
}

// Feed appends newly read bytes and returns every Frame that became
// complete as a result. Carriage returns are dropped per spec §4.2.
func (f *Framer) Feed(data []byte) []Frame {
	for _, b := range data {
		if b != '\r' {
			f.buf = append(f.buf, b)
		}
	}

	var frames []Frame
	for {
		fr, ok := f.takeOne()
		if !ok {
			return frames
		}
		frames = append(frames, fr)
	}
}

// takeOne attempts to pull exactly one complete Frame off the front of
// f.buf, consuming the bytes it used. It returns ok=false when no
// complete frame is available yet.
func (f *Framer) takeOne() (Frame, bool) {
	searchFrom := 0
	for {
		rel := bytes.IndexByte(f.buf[searchFrom:], '\n')
		if rel < 0 {
			return Frame{}, false
		}
		end := searchFrom + rel
		line := f.buf[:end]

		if !f.wantsJSON(line) {
			cmds, err := ParseNativeLine(string(line))
			f.buf = f.buf[end+1:]
			if err != nil {
				return Frame{Commands: []ctlplane.Command{{Name: "Fail", Args: []string{err.Error()}}}}, true
			}
			return Frame{Commands: cmds}, true
		}

		n, _, perr := jsonvalue.Parse(line)
		if perr != nil && perr.Code == jsonvalue.Incomplete {
			searchFrom = end + 1
			continue
		}
		f.buf = f.buf[end+1:]
		if perr != nil {
			return Frame{JSONMode: true, Commands: []ctlplane.Command{{Name: "Fail", Args: []string{perr.Error()}}}}, true
		}
		cmds, cerr := commandsFromParsedJSON(n)
		if cerr != nil {
			return Frame{JSONMode: true, Commands: []ctlplane.Command{{Name: "Fail", Args: []string{cerr.Error()}}}}, true
		}
		return Frame{JSONMode: true, Commands: cmds}, true
	}
}

// wantsJSON reports whether line should be parsed as JSON: the first
// non-whitespace byte is '{', '[', or '"', and the session isn't
// INTERACTIVE.
func (f *Framer) wantsJSON(line []byte) bool {
	if f.Interactive {
		return false
	}
	for _, b := range line {
		switch b {
		case ' ', '\t':
			continue
		case '{', '[', '"':
			return true
		default:
			return false
		}
	}
	return false
}

func commandsFromParsedJSON(n *jsonvalue.Node) ([]ctlplane.Command, error) {
	switch n.Type() {
	case jsonvalue.Array:
		cmds := make([]ctlplane.Command, 0, n.Len())
		for i := 0; i < n.Len(); i++ {
			cmd, err := commandFromNode(n.At(i))
			if err != nil {
				return nil, err
			}
			cmds = append(cmds, cmd)
		}
		return cmds, nil
	case jsonvalue.Object:
		cmd, err := commandFromNode(n)
		if err != nil {
			return nil, err
		}
		return []ctlplane.Command{cmd}, nil
	default:
		return nil, &jsonvalue.ParseError{Code: jsonvalue.Syntax, Message: "expected a command object or array"}
	}
}

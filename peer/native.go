package peer

import (
	"fmt"
	"strings"

	"github.com/x3270ctl/ctlplane"
)

// ParseNativeLine tokenizes one line of native-syntax actions (spec
// §4.2): zero or more whitespace-separated Name(arg1,arg2,…) forms,
// with double-quoted arguments per the quoting rules Command.String
// produces on the way out. Cross-checked against the quoting behavior
// of the one pack example that is itself a native-syntax x3270 client
// (msradam-3270Connect) — see DESIGN.md.
func ParseNativeLine(line string) ([]ctlplane.Command, error) {
	t := &nativeTokenizer{s: line}
	var cmds []ctlplane.Command
	for {
		t.skipSpace()
		if t.atEnd() {
			return cmds, nil
		}
		cmd, err := t.parseCommand()
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, cmd)
	}
}

type nativeTokenizer struct {
	s   string
	pos int
}

func (t *nativeTokenizer) atEnd() bool { return t.pos >= len(t.s) }

func (t *nativeTokenizer) peek() byte {
	if t.atEnd() {
		return 0
	}
	return t.s[t.pos]
}

func (t *nativeTokenizer) skipSpace() {
	for !t.atEnd() {
		switch t.s[t.pos] {
		case ' ', '\t', '\r':
			t.pos++
		default:
			return
		}
	}
}

func (t *nativeTokenizer) parseCommand() (ctlplane.Command, error) {
	start := t.pos
	for !t.atEnd() && t.s[t.pos] != '(' {
		if isSpace(t.s[t.pos]) {
			return ctlplane.Command{}, fmt.Errorf("peer: expected '(' after action name %q", t.s[start:t.pos])
		}
		t.pos++
	}
	if t.atEnd() {
		return ctlplane.Command{}, fmt.Errorf("peer: unterminated action %q: missing '('", t.s[start:])
	}
	name := t.s[start:t.pos]
	if name == "" {
		return ctlplane.Command{}, fmt.Errorf("peer: empty action name at position %d", start)
	}
	t.pos++ // consume '('

	cmd := ctlplane.Command{Name: name}
	if t.peek() == ')' {
		t.pos++
		return cmd, nil
	}
	for {
		arg, err := t.parseArg()
		if err != nil {
			return ctlplane.Command{}, err
		}
		cmd.Args = append(cmd.Args, arg)
		if t.atEnd() {
			return ctlplane.Command{}, fmt.Errorf("peer: unterminated argument list for %q", name)
		}
		switch t.s[t.pos] {
		case ',':
			t.pos++
			continue
		case ')':
			t.pos++
			return cmd, nil
		default:
			return ctlplane.Command{}, fmt.Errorf("peer: expected ',' or ')' in %q, got %q", name, string(t.s[t.pos]))
		}
	}
}

func (t *nativeTokenizer) parseArg() (string, error) {
	if t.peek() == '"' {
		return t.parseQuotedArg()
	}
	start := t.pos
	for !t.atEnd() && t.s[t.pos] != ',' && t.s[t.pos] != ')' {
		t.pos++
	}
	return t.s[start:t.pos], nil
}

func (t *nativeTokenizer) parseQuotedArg() (string, error) {
	t.pos++ // opening quote
	var b strings.Builder
	for {
		if t.atEnd() {
			return "", fmt.Errorf("peer: unterminated quoted argument")
		}
		c := t.s[t.pos]
		switch c {
		case '"':
			t.pos++
			return b.String(), nil
		case '\\':
			t.pos++
			if t.atEnd() {
				return "", fmt.Errorf("peer: unterminated escape in quoted argument")
			}
			nc := t.s[t.pos]
			switch nc {
			case '"', '\\':
				b.WriteByte(nc)
			default:
				b.WriteByte('\\')
				b.WriteByte(nc)
			}
			t.pos++
		default:
			b.WriteByte(c)
			t.pos++
		}
	}
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\r':
		return true
	default:
		return false
	}
}

package jsonvalue

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Parse decodes one JSON value from data per RFC 8259. On success it
// also reports the number of bytes consumed, so callers driving a
// stream (the peer protocol's JSON-mode framer) can detect trailing
// content on the same line.
//
// A truncated-but-otherwise-valid prefix returns a *ParseError with
// Code == Incomplete and Offset set to where input ran out. The caller
// must not retry from that offset: it must accumulate more bytes and
// call Parse again on the full, extended buffer, per spec §4.3.
func Parse(data []byte) (*Node, int, *ParseError) {
	p := &parser{data: data, line: 1, column: 1}
	v := p.parseValue()
	if p.err != nil {
		return nil, 0, p.err
	}
	end := p.pos
	p.skipSpace()
	if p.pos < len(p.data) {
		return nil, 0, p.errorAt(Extra, end, "unexpected trailing content")
	}
	return v, end, nil
}

type parser struct {
	data   []byte
	pos    int
	line   int
	column int
	err    *ParseError
}

func (p *parser) errorAt(code Code, offset int, msg string) *ParseError {
	return &ParseError{Code: code, Offset: offset, Line: p.line, Column: p.column, Message: msg}
}

func (p *parser) fail(code Code, msg string) {
	if p.err == nil {
		p.err = p.errorAt(code, p.pos, msg)
	}
}

func (p *parser) incomplete(msg string) {
	if p.err == nil {
		p.err = p.errorAt(Incomplete, p.pos, msg)
	}
}

// peek returns the next byte without consuming it, or (0, false) at EOF.
func (p *parser) peek() (byte, bool) {
	if p.pos >= len(p.data) {
		return 0, false
	}
	return p.data[p.pos], true
}

func (p *parser) advance() {
	if p.pos >= len(p.data) {
		return
	}
	if p.data[p.pos] == '\n' {
		p.line++
		p.column = 1
	} else {
		p.column++
	}
	p.pos++
}

func (p *parser) skipSpace() {
	for {
		b, ok := p.peek()
		if !ok {
			return
		}
		switch b {
		case ' ', '\t', '\r', '\n', '\f':
			p.advance()
		default:
			return
		}
	}
}

func (p *parser) parseValue() *Node {
	p.skipSpace()
	b, ok := p.peek()
	if !ok {
		p.incomplete("expected a value")
		return nil
	}
	switch {
	case b == '{':
		return p.parseObject()
	case b == '[':
		return p.parseArray()
	case b == '"':
		return p.parseStringNode()
	case (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z'):
		return p.parseBareword()
	case b == '-' || (b >= '0' && b <= '9'):
		return p.parseNumber()
	default:
		if b >= utf8.RuneSelf {
			p.validateUTF8Lookahead()
			if p.err != nil {
				return nil
			}
		}
		p.fail(Syntax, "unexpected character")
		return nil
	}
}

// validateUTF8Lookahead checks that the bytes at p.pos begin a valid
// UTF-8 sequence, failing with UTF8 rather than Syntax when they don't:
// malformed encoding is a distinct error from a merely unexpected (but
// validly-encoded) character.
func (p *parser) validateUTF8Lookahead() {
	rest := p.data[p.pos:]
	r, size := utf8.DecodeRune(rest)
	if r == utf8.RuneError && size <= 1 {
		if !utf8.FullRune(rest) {
			p.incomplete("truncated UTF-8 sequence")
			return
		}
		p.fail(UTF8, "invalid UTF-8 sequence")
	}
}

func (p *parser) expect(b byte) bool {
	got, ok := p.peek()
	if !ok {
		p.incomplete("expected '" + string(b) + "'")
		return false
	}
	if got != b {
		p.fail(Syntax, "expected '"+string(b)+"'")
		return false
	}
	p.advance()
	return true
}

func (p *parser) parseObject() *Node {
	start := p.pos
	p.advance() // '{'
	obj := NewObject()

	p.skipSpace()
	if b, ok := p.peek(); ok && b == '}' {
		p.advance()
		return obj
	}
	if _, ok := p.peek(); !ok {
		p.incompleteFrom(start, "unterminated object")
		return nil
	}

	for {
		p.skipSpace()
		b, ok := p.peek()
		if !ok {
			p.incompleteFrom(start, "unterminated object")
			return nil
		}
		if b != '"' {
			p.fail(Syntax, "expected string key")
			return nil
		}
		key := p.parseStringRaw()
		if p.err != nil {
			return nil
		}
		p.skipSpace()
		if !p.expect(':') {
			return nil
		}
		val := p.parseValue()
		if p.err != nil {
			return nil
		}
		obj.Set(key, val)

		p.skipSpace()
		b, ok = p.peek()
		if !ok {
			p.incompleteFrom(start, "unterminated object")
			return nil
		}
		if b == ',' {
			p.advance()
			continue
		}
		if b == '}' {
			p.advance()
			return obj
		}
		p.fail(Syntax, "expected ',' or '}'")
		return nil
	}
}

func (p *parser) parseArray() *Node {
	start := p.pos
	p.advance() // '['
	arr := NewArray()

	p.skipSpace()
	if b, ok := p.peek(); ok && b == ']' {
		p.advance()
		return arr
	}
	if _, ok := p.peek(); !ok {
		p.incompleteFrom(start, "unterminated array")
		return nil
	}

	for {
		val := p.parseValue()
		if p.err != nil {
			return nil
		}
		arr.Append(val)

		p.skipSpace()
		b, ok := p.peek()
		if !ok {
			p.incompleteFrom(start, "unterminated array")
			return nil
		}
		if b == ',' {
			p.advance()
			continue
		}
		if b == ']' {
			p.advance()
			return arr
		}
		p.fail(Syntax, "expected ',' or ']'")
		return nil
	}
}

func (p *parser) incompleteFrom(start int, msg string) {
	if p.err == nil {
		p.err = p.errorAt(Incomplete, p.pos, msg)
	}
}

// parseBareword accumulates a run of alphabetic bytes and matches it
// against the three JSON keywords. Reaching EOF mid-run terminates the
// bareword rather than reporting Incomplete — unlike an unterminated
// string or an unclosed brace, there is no following delimiter to wait
// for, so a bareword is always "done" once the letters stop, even if
// that's because the buffer ran out.
func (p *parser) parseBareword() *Node {
	start := p.pos
	for {
		b, ok := p.peek()
		if !ok {
			break
		}
		if (b < 'a' || b > 'z') && (b < 'A' || b > 'Z') {
			break
		}
		p.advance()
	}
	switch string(p.data[start:p.pos]) {
	case "true":
		return NewBool(true)
	case "false":
		return NewBool(false)
	case "null":
		return NewNull()
	default:
		p.fail(Syntax, "invalid literal")
		return nil
	}
}

// parseNumber accumulates a run of number-grammar bytes (digits, '.',
// 'e'/'E', '+', '-') and validates the whole run once it stops —
// mirroring the original tokenizer's JK_NUMBER state, which likewise
// treats end-of-input as ending the token rather than as Incomplete:
// a number has no closing delimiter to wait for.
func (p *parser) parseNumber() *Node {
	start := p.pos
	for {
		b, ok := p.peek()
		if !ok {
			break
		}
		switch b {
		case '-', '+', '.', 'e', 'E', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
			p.advance()
		default:
			goto done
		}
	}
done:
	text := string(p.data[start:p.pos])
	if !isValidNumberLiteral(text) {
		p.fail(Syntax, "invalid number")
		return nil
	}

	if !strings.ContainsAny(text, ".eE") {
		if n, err := strconv.ParseInt(text, 10, 64); err == nil {
			return NewInt(n)
		}
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		p.err = p.errorAt(Overflow, start, "number out of range")
		return nil
	}
	return NewDouble(f)
}

// isValidNumberLiteral reports whether text matches the JSON number
// grammar: an optional '-', an integer part, an optional '.' fraction,
// and an optional exponent.
func isValidNumberLiteral(text string) bool {
	i := 0
	n := len(text)
	if i < n && text[i] == '-' {
		i++
	}
	digitStart := i
	for i < n && text[i] >= '0' && text[i] <= '9' {
		i++
	}
	if i == digitStart {
		return false
	}
	if i < n && text[i] == '.' {
		i++
		fracStart := i
		for i < n && text[i] >= '0' && text[i] <= '9' {
			i++
		}
		if i == fracStart {
			return false
		}
	}
	if i < n && (text[i] == 'e' || text[i] == 'E') {
		i++
		if i < n && (text[i] == '+' || text[i] == '-') {
			i++
		}
		expStart := i
		for i < n && text[i] >= '0' && text[i] <= '9' {
			i++
		}
		if i == expStart {
			return false
		}
	}
	return i == n
}

// parseStringNode parses a quoted string and wraps it as a String node.
func (p *parser) parseStringNode() *Node {
	s := p.parseStringRaw()
	if p.err != nil {
		return nil
	}
	return NewString(s)
}

// parseStringRaw parses a quoted JSON string, returning its WTF-8
// decoded content.
func (p *parser) parseStringRaw() string {
	start := p.pos
	p.advance() // opening quote
	var buf []byte

	for {
		b, ok := p.peek()
		if !ok {
			p.incompleteFrom(start, "unterminated string")
			return ""
		}
		switch {
		case b == '"':
			p.advance()
			return string(buf)
		case b == '\\':
			p.advance()
			eb, ok := p.peek()
			if !ok {
				p.incompleteFrom(start, "truncated escape")
				return ""
			}
			switch eb {
			case '"', '\\', '/':
				buf = append(buf, eb)
				p.advance()
			case 'b':
				buf = append(buf, '\b')
				p.advance()
			case 'f':
				buf = append(buf, '\f')
				p.advance()
			case 'n':
				buf = append(buf, '\n')
				p.advance()
			case 'r':
				buf = append(buf, '\r')
				p.advance()
			case 't':
				buf = append(buf, '\t')
				p.advance()
			case 'u':
				p.advance()
				r1, ok := p.parseHex4(start)
				if !ok {
					return ""
				}
				if isHighSurrogate(r1) {
					save := p.pos
					if b2, ok2 := p.peek(); ok2 && b2 == '\\' {
						p.advance()
						if b3, ok3 := p.peek(); ok3 && b3 == 'u' {
							p.advance()
							r2, ok4 := p.parseHex4(start)
							if !ok4 {
								return ""
							}
							if isLowSurrogate(r2) {
								buf = appendWTF8(buf, combineSurrogates(r1, r2))
								continue
							}
							// Not a low surrogate: r1 stays isolated,
							// and r2 is processed on its own below.
							buf = appendWTF8(buf, r1)
							if isHighSurrogate(r2) || isLowSurrogate(r2) {
								buf = appendWTF8(buf, r2)
							} else {
								buf = utf8.AppendRune(buf, r2)
							}
							continue
						}
					}
					p.pos = save
					buf = appendWTF8(buf, r1)
					continue
				}
				if isLowSurrogate(r1) {
					buf = appendWTF8(buf, r1)
					continue
				}
				buf = utf8.AppendRune(buf, r1)
			default:
				p.fail(Syntax, "invalid escape")
				return ""
			}
		case b < 0x20:
			p.fail(Syntax, "unescaped control character in string")
			return ""
		default:
			buf = append(buf, b)
			p.advance()
		}
	}
}

func (p *parser) parseHex4(start int) (rune, bool) {
	var v rune
	for i := 0; i < 4; i++ {
		b, ok := p.peek()
		if !ok {
			p.incompleteFrom(start, "truncated \\u escape")
			return 0, false
		}
		var digit rune
		switch {
		case b >= '0' && b <= '9':
			digit = rune(b - '0')
		case b >= 'a' && b <= 'f':
			digit = rune(b-'a') + 10
		case b >= 'A' && b <= 'F':
			digit = rune(b-'A') + 10
		default:
			p.fail(Syntax, "invalid \\u escape")
			return 0, false
		}
		v = v<<4 | digit
		p.advance()
	}
	return v, true
}

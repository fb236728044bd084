// Package httpd implements the hand-rolled HTTP/1.1 server from spec
// §4.4: a byte-by-byte request-line/header/body state machine over raw
// net.Conn, not net/http. net/http's server bakes in RFC-compliant
// leniencies (header folding, chunked transfer codecs, automatic
// Expect: 100-continue handling) that spec §4.4's own testable
// properties deliberately forbid — see DESIGN.md for the specific
// invariant this would violate. golang.org/x/net/http/httpguts
// supplies the token/header-value validators the original x3270
// httpd-core.c hand-rolls in C.
package httpd

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// request is one parsed HTTP request.
type request struct {
	Method        string
	Path          string // decoded, slash-collapsed
	RawQuery      string
	Query         url.Values
	Proto         string // "HTTP/1.1" or "HTTP/1.0"
	Header        map[string]string
	Host          string
	ContentType   string
	ContentLength int
	Body          []byte
	KeepAlive     bool
}

var knownVerbs = map[string]bool{
	"GET": true, "HEAD": true, "POST": true, "PUT": true, "DELETE": true,
	"OPTIONS": true, "PATCH": true, "TRACE": true, "CONNECT": true,
}

var supportedVerbs = map[string]bool{"GET": true, "HEAD": true, "POST": true}

// DefaultMaxBodyBytes is the request body cap NewServer applies when
// the caller doesn't override it (spec §9 Open Question 2).
const DefaultMaxBodyBytes = 8192

// readRequest parses one request off br. A nil request with a nil
// error means the peer closed the connection cleanly before sending
// anything. An httpError with raw set means the input wasn't
// recognizable as HTTP at all and must be answered with no HTTP
// framing, per spec §4.4 step 1. maxBody caps the declared
// Content-Length; a request claiming more is rejected with 413
// without ever reading the oversized body off the wire.
func readRequest(br *bufio.Reader, maxBody int) (*request, *httpError) {
	line, err := readLine(br)
	if err != nil {
		if err == io.EOF && line == "" {
			return nil, nil
		}
		return nil, &httpError{code: 400, msg: "unexpected EOF", raw: true}
	}
	if line == "" {
		return nil, &httpError{code: 400, msg: "empty request line", raw: true}
	}
	if line[0] == ' ' || line[0] == '\t' {
		return nil, &httpError{code: 400, msg: "leading whitespace", raw: true}
	}

	fields := strings.Fields(line)
	if len(fields) != 2 && len(fields) != 3 {
		return nil, &httpError{code: 400, msg: "malformed request line", raw: true}
	}

	req := &request{Method: fields[0], Proto: "HTTP/1.0", KeepAlive: false}
	if len(fields) == 3 {
		if !validProto(fields[2]) {
			return nil, &httpError{code: 400, msg: "malformed protocol token", raw: true}
		}
		req.Proto = fields[2]
		req.KeepAlive = req.Proto == "HTTP/1.1"
	}

	if !knownVerbs[req.Method] {
		return nil, newHTTPError(400, "unknown method %q", req.Method)
	}
	if !supportedVerbs[req.Method] {
		return nil, newHTTPError(501, "method %q not implemented", req.Method)
	}

	rawURI := fields[1]
	if err := parseURI(req, rawURI); err != nil {
		return nil, newHTTPError(400, "%s", err)
	}

	req.Header = make(map[string]string)
	for {
		line, err := readLine(br)
		if err != nil {
			return nil, &httpError{code: 400, msg: "truncated headers", raw: true}
		}
		if line == "" {
			break
		}
		name, value, err := parseHeaderLine(line)
		if err != nil {
			return nil, newHTTPError(400, "%s", err)
		}
		lname := strings.ToLower(name)
		if _, dup := req.Header[lname]; dup {
			return nil, newHTTPError(400, "duplicate header %q", name)
		}
		req.Header[lname] = value

		switch lname {
		case "host":
			req.Host = value
		case "connection":
			if strings.EqualFold(strings.TrimSpace(value), "close") {
				req.KeepAlive = false
			}
		case "content-type":
			req.ContentType = value
		case "content-length":
			n, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil || n < 0 {
				return nil, newHTTPError(400, "bad Content-Length")
			}
			if n > maxBody {
				return nil, newHTTPError(413, "request body of %d bytes exceeds the %d-byte cap", n, maxBody)
			}
			req.ContentLength = n
		}
	}

	if req.Proto == "HTTP/1.1" && req.Host == "" {
		return nil, newHTTPError(400, "missing Host header")
	}

	if req.ContentLength > 0 {
		body := make([]byte, req.ContentLength)
		if _, err := io.ReadFull(br, body); err != nil {
			return nil, &httpError{code: 400, msg: "truncated body", raw: true}
		}
		req.Body = body
	}

	return req, nil
}

func validProto(tok string) bool {
	if !strings.HasPrefix(tok, "HTTP/") {
		return false
	}
	rest := tok[len("HTTP/"):]
	parts := strings.SplitN(rest, ".", 2)
	if len(parts) != 2 {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
		for _, r := range p {
			if r < '0' || r > '9' {
				return false
			}
		}
	}
	return true
}

func parseHeaderLine(line string) (name, value string, err error) {
	i := strings.IndexByte(line, ':')
	if i <= 0 {
		return "", "", fmt.Errorf("malformed header line %q", line)
	}
	name = line[:i]
	if name[0] == ':' || !httpguts.ValidHeaderFieldName(name) {
		return "", "", fmt.Errorf("invalid header field name %q", name)
	}
	value = strings.TrimSpace(line[i+1:])
	if !httpguts.ValidHeaderFieldValue(value) {
		return "", "", fmt.Errorf("invalid header field value for %q", name)
	}
	return name, value, nil
}

// parseURI accepts "http://host/path?query" (host ignored) or
// "/path?query", collapsing repeated slashes in the path after
// decoding each component once.
func parseURI(req *request, raw string) error {
	s := raw
	if strings.HasPrefix(s, "http://") {
		rest := s[len("http://"):]
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			s = rest[i:]
		} else {
			s = "/"
		}
	}
	u, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("malformed URI: %w", err)
	}
	if u.Path == "" {
		u.Path = "/"
	}
	req.Path = collapseSlashes(u.Path)
	req.RawQuery = u.RawQuery
	req.Query, err = url.ParseQuery(u.RawQuery)
	if err != nil {
		return fmt.Errorf("malformed query: %w", err)
	}
	return nil
}

func collapseSlashes(path string) string {
	var b strings.Builder
	prevSlash := false
	for _, r := range path {
		if r == '/' {
			if prevSlash {
				continue
			}
			prevSlash = true
		} else {
			prevSlash = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// readLine reads one CRLF- or LF-terminated line, stripping the
// terminator and any trailing CR.
func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil {
		return strings.TrimRight(line, "\r\n"), err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

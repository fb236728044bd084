package httpd

import "fmt"

// statusText maps the small set of codes this server ever emits to
// their reason phrases.
var statusText = map[int]string{
	200: "OK",
	301: "Moved Permanently",
	400: "Bad Request",
	403: "Forbidden",
	404: "Not Found",
	413: "Request Entity Too Large",
	501: "Not Implemented",
}

// httpError is an error response destined for the client, carrying
// enough to render in whichever content type the request negotiated.
type httpError struct {
	code int
	msg  string
	// raw marks a request that wasn't recognizable as HTTP at all: the
	// response is the bare reason text with no status line or headers,
	// so a misdirected non-HTTP client isn't misled (spec §4.4 step 1).
	raw bool
}

func (e *httpError) Error() string { return fmt.Sprintf("%d %s", e.code, e.msg) }

func newHTTPError(code int, format string, args ...any) *httpError {
	return &httpError{code: code, msg: fmt.Sprintf(format, args...)}
}

// errorBody renders an httpError per spec §4.4 "Error bodies": plain
// text, an HTML envelope, or the command-line JSON shape, selected by
// the negotiated content type.
func errorBody(ct string, e *httpError) (string, []byte) {
	reason := statusText[e.code]
	switch ct {
	case "text/html":
		return ct, []byte(fmt.Sprintf("<html><body><h1>%d %s</h1><p>%s</p></body></html>\n", e.code, reason, htmlEscapeText(e.msg)))
	case "application/json":
		return ct, []byte(fmt.Sprintf(`{"result":[%q],"result-err":[true],"status":""}`+"\n", e.msg))
	default:
		return "text/plain", []byte(fmt.Sprintf("%d %s: %s\n", e.code, reason, e.msg))
	}
}

func htmlEscapeText(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '&':
			out = append(out, "&amp;"...)
		case '<':
			out = append(out, "&lt;"...)
		case '>':
			out = append(out, "&gt;"...)
		default:
			out = append(out, s[i])
		}
	}
	return string(out)
}

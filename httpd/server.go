package httpd

import (
	"bufio"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/netutil"

	"github.com/x3270ctl/ctlplane/dispatch"
	"github.com/x3270ctl/ctlplane/httpd/registry"
)

// IdleTimeout is the fixed per-session idle timer spec §5 names.
const IdleTimeout = 15 * time.Second

// maxConns bounds concurrent HTTP sessions per listener, applied via
// golang.org/x/net/netutil.LimitListener rather than leaving accept
// fan-in unbounded.
const maxConns = 256

// Server is the spec §4.4 HTTP/1.1 server. The zero value is not
// usable; build one with NewServer.
type Server struct {
	reg     *registry.Registry
	cookie  string
	maxBody int
	log     *logrus.Entry

	mu     sync.Mutex
	ln     net.Listener
	closed bool
}

// NewServer builds a Server dispatching dynamic paths against reg.
// cookie, if non-empty, is the value every request must present as
// Cookie: x3270-security=<value> (spec §6.3). The request body cap
// defaults to DefaultMaxBodyBytes; use SetMaxBodyBytes to override it.
func NewServer(reg *registry.Registry, cookie string) *Server {
	return &Server{
		reg:     reg,
		cookie:  cookie,
		maxBody: DefaultMaxBodyBytes,
		log:     logrus.StandardLogger().WithField("component", "httpd"),
	}
}

// SetMaxBodyBytes overrides the request body cap a declared
// Content-Length is checked against; a request over the cap gets 413
// before its body is ever read off the wire.
func (s *Server) SetMaxBodyBytes(n int) {
	s.mu.Lock()
	s.maxBody = n
	s.mu.Unlock()
}

// Serve accepts connections on ln (wrapped in a connection limiter)
// until Close is called. It implements launcher.HTTPServer.
func (s *Server) Serve(ln net.Listener) error {
	limited := netutil.LimitListener(ln, maxConns)
	s.mu.Lock()
	s.ln = limited
	s.mu.Unlock()

	for {
		conn, err := limited.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return nil
			}
			return err
		}
		go s.handleConn(conn)
	}
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	s.mu.Lock()
	s.closed = true
	ln := s.ln
	s.mu.Unlock()
	if ln == nil {
		return nil
	}
	return ln.Close()
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	br := bufio.NewReader(conn)

	for {
		conn.SetReadDeadline(time.Now().Add(IdleTimeout))
		s.mu.Lock()
		maxBody := s.maxBody
		s.mu.Unlock()
		req, herr := readRequest(br, maxBody)
		if req == nil && herr == nil {
			return
		}
		if herr != nil {
			s.writeError(conn, "HTTP/1.1", herr)
			return
		}

		if s.cookie != "" && !cookiePresented(req.Header["cookie"], s.cookie) {
			dispatch.BadCookieDelay()
			s.writeError(conn, req.Proto, newHTTPError(403, "missing or invalid security cookie"))
			return
		}

		keepAlive := s.serveOne(conn, req)
		if !keepAlive {
			return
		}
	}
}

func (s *Server) writeError(conn net.Conn, proto string, herr *httpError) {
	if herr.raw {
		conn.Write([]byte(herr.msg + "\n"))
		return
	}
	ct, body := errorBody("text/plain", herr)
	writeResponse(conn, proto, response{Code: herr.code, ContentType: ct, Body: body})
}

// serveOne matches req against the registry and writes its response,
// returning whether the connection should stay open for another
// request.
func (s *Server) serveOne(conn net.Conn, req *request) bool {
	m, ok := s.reg.Lookup(req.Path, req.RawQuery)
	if !ok {
		ct, body := errorBody("text/plain", newHTTPError(404, "no such object: %s", req.Path))
		writeResponse(conn, req.Proto, response{Code: 404, ContentType: ct, Body: body, KeepAlive: req.KeepAlive})
		return req.KeepAlive
	}
	if m.RedirectTo != "" {
		writeResponse(conn, req.Proto, response{Code: 301, Location: m.RedirectTo, KeepAlive: req.KeepAlive})
		return req.KeepAlive
	}

	e := m.Entry
	verb := verbFor(req.Method)
	if !e.Verbs.Has(verb) && !(verb == registry.VerbHEAD && e.Verbs.Has(registry.VerbGET)) {
		ct, body := errorBody("text/plain", newHTTPError(501, "method %s not allowed on %s", req.Method, e.Path))
		writeResponse(conn, req.Proto, response{Code: 501, ContentType: ct, Body: body, KeepAlive: req.KeepAlive})
		return req.KeepAlive
	}

	resp := s.render(req, m)
	resp.KeepAlive = req.KeepAlive
	if req.Method == "HEAD" {
		writeHeadResponse(conn, req.Proto, resp)
	} else {
		writeResponse(conn, req.Proto, resp)
	}
	return req.KeepAlive
}

func (s *Server) render(req *request, m registry.MatchResult) response {
	e := m.Entry
	switch e.Kind {
	case registry.KindDir:
		return response{Code: 200, ContentType: "text/html", Body: registry.RenderIndex(s.reg, e.Path)}
	case registry.KindFixedText, registry.KindFixedBinary:
		return response{Code: 200, ContentType: e.ContentType, Body: e.Body}
	case registry.KindDynTerm, registry.KindDynNonterm:
		result, err := e.Handler(&registry.Request{
			Method:      req.Method,
			Rest:        m.Rest,
			Query:       req.Query,
			ContentType: req.ContentType,
			Body:        req.Body,
		})
		if err != nil {
			ct, body := errorBody("text/plain", newHTTPError(400, "%s", err))
			return response{Code: 400, ContentType: ct, Body: body}
		}
		return response{Code: result.StatusCode, ContentType: result.ContentType, Body: result.Body}
	default:
		ct, body := errorBody("text/plain", newHTTPError(404, "unknown entry kind"))
		return response{Code: 404, ContentType: ct, Body: body}
	}
}

func verbFor(method string) registry.Verb {
	switch method {
	case "HEAD":
		return registry.VerbHEAD
	case "POST":
		return registry.VerbPOST
	default:
		return registry.VerbGET
	}
}

// cookiePresented reports whether cookieHeader contains
// "x3270-security=<want>" among its semicolon-separated pairs.
func cookiePresented(cookieHeader, want string) bool {
	for _, part := range strings.Split(cookieHeader, ";") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) == 2 && kv[0] == "x3270-security" && kv[1] == want {
			return true
		}
	}
	return false
}

package httpd

import (
	"bufio"
	"strings"
	"testing"
)

func parse(t *testing.T, raw string) (*request, *httpError) {
	t.Helper()
	return readRequest(bufio.NewReader(strings.NewReader(raw)), DefaultMaxBodyBytes)
}

func TestReadRequestSimpleGET(t *testing.T) {
	req, herr := parse(t, "GET /3270/ HTTP/1.1\r\nHost: localhost\r\n\r\n")
	if herr != nil {
		t.Fatalf("unexpected error: %v", herr)
	}
	if req.Method != "GET" || req.Path != "/3270/" || req.Proto != "HTTP/1.1" {
		t.Fatalf("got %+v", req)
	}
	if !req.KeepAlive {
		t.Fatal("expected HTTP/1.1 to keep alive")
	}
}

func TestReadRequestHTTP10DefaultsClose(t *testing.T) {
	req, herr := parse(t, "GET / HTTP/1.0\r\n\r\n")
	if herr != nil {
		t.Fatalf("unexpected error: %v", herr)
	}
	if req.KeepAlive {
		t.Fatal("expected HTTP/1.0 to default to close")
	}
}

func TestReadRequestMissingHostOnHTTP11(t *testing.T) {
	_, herr := parse(t, "GET / HTTP/1.1\r\n\r\n")
	if herr == nil || herr.code != 400 {
		t.Fatalf("expected 400, got %+v", herr)
	}
}

func TestReadRequestUnknownVerb(t *testing.T) {
	_, herr := parse(t, "BOGUS / HTTP/1.1\r\nHost: h\r\n\r\n")
	if herr == nil || herr.code != 400 {
		t.Fatalf("expected 400, got %+v", herr)
	}
}

func TestReadRequestUnsupportedVerb(t *testing.T) {
	_, herr := parse(t, "PUT / HTTP/1.1\r\nHost: h\r\n\r\n")
	if herr == nil || herr.code != 501 {
		t.Fatalf("expected 501, got %+v", herr)
	}
}

func TestReadRequestLeadingWhitespaceIsRaw(t *testing.T) {
	_, herr := parse(t, " GET / HTTP/1.1\r\n\r\n")
	if herr == nil || !herr.raw {
		t.Fatalf("expected a raw error, got %+v", herr)
	}
}

func TestReadRequestDuplicateHeaderRejected(t *testing.T) {
	_, herr := parse(t, "GET / HTTP/1.1\r\nHost: a\r\nHost: b\r\n\r\n")
	if herr == nil || herr.code != 400 {
		t.Fatalf("expected 400, got %+v", herr)
	}
}

func TestReadRequestConnectionCloseDisablesKeepAlive(t *testing.T) {
	req, herr := parse(t, "GET / HTTP/1.1\r\nHost: h\r\nConnection: close\r\n\r\n")
	if herr != nil {
		t.Fatalf("unexpected error: %v", herr)
	}
	if req.KeepAlive {
		t.Fatal("expected Connection: close to disable keep-alive")
	}
}

func TestReadRequestReadsBody(t *testing.T) {
	req, herr := parse(t, "POST /x HTTP/1.1\r\nHost: h\r\nContent-Length: 5\r\n\r\nhello")
	if herr != nil {
		t.Fatalf("unexpected error: %v", herr)
	}
	if string(req.Body) != "hello" {
		t.Fatalf("got body %q", req.Body)
	}
}

func TestReadRequestCollapsesRepeatedSlashes(t *testing.T) {
	req, herr := parse(t, "GET //3270//rest HTTP/1.1\r\nHost: h\r\n\r\n")
	if herr != nil {
		t.Fatalf("unexpected error: %v", herr)
	}
	if req.Path != "/3270/rest" {
		t.Fatalf("got path %q", req.Path)
	}
}

func TestReadRequestPercentDecodesPathKeepingQuerySafe(t *testing.T) {
	req, herr := parse(t, "GET /3270/rest/text/Query%28Host%29?x=1%262 HTTP/1.1\r\nHost: h\r\n\r\n")
	if herr != nil {
		t.Fatalf("unexpected error: %v", herr)
	}
	if req.Path != "/3270/rest/text/Query(Host)" {
		t.Fatalf("got path %q", req.Path)
	}
	if req.Query.Get("x") != "1&2" {
		t.Fatalf("got query %v", req.Query)
	}
}

func TestReadRequestReturnsNilOnCleanEOF(t *testing.T) {
	req, herr := parse(t, "")
	if req != nil || herr != nil {
		t.Fatalf("expected (nil, nil), got (%+v, %+v)", req, herr)
	}
}

func TestReadRequestOversizedContentLengthRejectedWith413(t *testing.T) {
	raw := "POST /x HTTP/1.1\r\nHost: h\r\nContent-Length: 9000\r\n\r\n"
	_, herr := readRequest(bufio.NewReader(strings.NewReader(raw)), 8192)
	if herr == nil || herr.code != 413 {
		t.Fatalf("expected 413, got %+v", herr)
	}
}

func TestReadRequestContentLengthAtCapAccepted(t *testing.T) {
	body := strings.Repeat("a", 8)
	raw := "POST /x HTTP/1.1\r\nHost: h\r\nContent-Length: 8\r\n\r\n" + body
	req, herr := readRequest(bufio.NewReader(strings.NewReader(raw)), 8)
	if herr != nil {
		t.Fatalf("unexpected error: %v", herr)
	}
	if string(req.Body) != body {
		t.Fatalf("got body %q", req.Body)
	}
}

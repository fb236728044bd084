package httpd

import (
	"fmt"
	"io"
	"time"
)

// response is a buffered reply: buffering the body first lets the
// status line carry an exact Content-Length, per spec §4.4 "Response
// formatting".
type response struct {
	Code        int
	ContentType string
	Body        []byte
	KeepAlive   bool
	Location    string
}

var textContentTypes = map[string]bool{
	"text/plain": true,
	"text/html":  true,
}

func writeResponse(w io.Writer, proto string, r response) error {
	reason := statusText[r.Code]
	if reason == "" {
		reason = "Unknown"
	}
	ct := r.ContentType
	if textContentTypes[ct] {
		ct += "; charset=utf-8"
	}

	var b []byte
	b = append(b, fmt.Sprintf("%s %d %s\r\n", proto, r.Code, reason)...)
	b = append(b, fmt.Sprintf("Date: %s\r\n", time.Now().UTC().Format(time.RFC1123))...)
	b = append(b, "Server: x3270d\r\n"...)
	if !r.KeepAlive {
		b = append(b, "Connection: close\r\n"...)
	}
	if r.Location != "" {
		b = append(b, fmt.Sprintf("Location: %s\r\n", r.Location)...)
	}
	if ct != "" {
		b = append(b, fmt.Sprintf("Content-Type: %s\r\n", ct)...)
	}
	b = append(b, fmt.Sprintf("Content-Length: %d\r\n", len(r.Body))...)
	b = append(b, "\r\n"...)
	b = append(b, r.Body...)
	_, err := w.Write(b)
	return err
}

// writeHeadResponse writes r's headers with an empty body, per spec
// §4.4 "Responses to HEAD omit the body" — Content-Length still
// reflects what a GET would have returned.
func writeHeadResponse(w io.Writer, proto string, r response) error {
	bodyLen := len(r.Body)
	r.Body = nil
	reason := statusText[r.Code]
	if reason == "" {
		reason = "Unknown"
	}
	ct := r.ContentType
	if textContentTypes[ct] {
		ct += "; charset=utf-8"
	}
	var b []byte
	b = append(b, fmt.Sprintf("%s %d %s\r\n", proto, r.Code, reason)...)
	b = append(b, fmt.Sprintf("Date: %s\r\n", time.Now().UTC().Format(time.RFC1123))...)
	b = append(b, "Server: x3270d\r\n"...)
	if !r.KeepAlive {
		b = append(b, "Connection: close\r\n"...)
	}
	if ct != "" {
		b = append(b, fmt.Sprintf("Content-Type: %s\r\n", ct)...)
	}
	b = append(b, fmt.Sprintf("Content-Length: %d\r\n", bodyLen)...)
	b = append(b, "\r\n"...)
	_, err := w.Write(b)
	return err
}

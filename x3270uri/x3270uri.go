// Package x3270uri parses the x3270 session descriptor URI grammar
// (spec §4.8): telnet://, telnets://, tn3270://, tn3270s:// with an
// optional [user[:pass]@]host[:port] authority and a handful of
// recognized query keys.
//
// Built directly on net/url, which already parses the generic
// scheme://authority/path?query shape; x3270uri adds only the
// TLS/ANSI-prefix inference, default ports, and query validation the
// scheme requires — another engine/internal/*-style leaf package, no
// ecosystem dependency fits a bespoke URI dialect like this one.
package x3270uri

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
)

// Prefix selects the negotiated terminal protocol implied by the
// scheme: ansiPrefix for telnet/telnets, tn3270Prefix for tn3270/tn3270s.
type Prefix int

const (
	TN3270Prefix Prefix = iota
	ANSIPrefix
)

// Descriptor is a parsed session URI.
type Descriptor struct {
	Prefix   Prefix
	TLS      bool
	User     string
	Password string
	Host     string
	Port     int

	LUNames        []string
	AcceptHostname string
	WaitOutput     bool
	VerifyHostCert bool
}

var schemes = map[string]struct {
	prefix      Prefix
	tls         bool
	defaultPort int
}{
	"telnet":  {ANSIPrefix, false, 23},
	"telnets": {ANSIPrefix, true, 992},
	"tn3270":  {TN3270Prefix, false, 23},
	"tn3270s": {TN3270Prefix, true, 992},
}

// Parse parses raw as an x3270 session descriptor URI.
func Parse(raw string) (Descriptor, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Descriptor{}, fmt.Errorf("x3270uri: %w", err)
	}

	scheme, ok := schemes[u.Scheme]
	if !ok {
		return Descriptor{}, fmt.Errorf("x3270uri: unrecognized scheme %q", u.Scheme)
	}

	d := Descriptor{
		Prefix:         scheme.prefix,
		TLS:            scheme.tls,
		Host:           u.Hostname(),
		Port:           scheme.defaultPort,
		VerifyHostCert: true,
	}
	if d.Host == "" {
		return Descriptor{}, fmt.Errorf("x3270uri: missing host in %q", raw)
	}
	if u.User != nil {
		d.User = u.User.Username()
		d.Password, _ = u.User.Password()
	}
	if portStr := u.Port(); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil || port < 1 || port > 65535 {
			return Descriptor{}, fmt.Errorf("x3270uri: invalid port %q in %q", portStr, raw)
		}
		d.Port = port
	}

	q := u.Query()
	for key := range q {
		switch key {
		case "lu", "accepthostname", "waitoutput", "verifyhostcert":
		default:
			return Descriptor{}, fmt.Errorf("x3270uri: unrecognized query key %q", key)
		}
	}
	if lu := q.Get("lu"); lu != "" {
		d.LUNames = splitComma(lu)
	}
	d.AcceptHostname = q.Get("accepthostname")
	if v := q.Get("waitoutput"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Descriptor{}, fmt.Errorf("x3270uri: invalid waitoutput=%q", v)
		}
		d.WaitOutput = b
	}
	if v := q.Get("verifyhostcert"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Descriptor{}, fmt.Errorf("x3270uri: invalid verifyhostcert=%q", v)
		}
		d.VerifyHostCert = b
	}

	return d, nil
}

func splitComma(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}

// Addr renders the host:port pair for net.Dial.
func (d Descriptor) Addr() string {
	return net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
}

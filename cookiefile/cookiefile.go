// Package cookiefile implements the security cookie file semantics
// described in spec §6.6: generation, validation, and
// read/rewrite-on-absent-or-invalid handling for the 64-character
// token dispatch.Dispatcher verifies on each peer connection.
//
// Grounded structurally on original_source/Common/cookiefile.c's
// cookiefile_init: read the file if present; an absent or empty file
// triggers generation and a rewrite, while a cookie containing
// whitespace or a disallowed character is rejected with an error; mode
// is forced to 0400 (POSIX) in every case that succeeds. crypto/rand replaces the C original's random()/strlen(cookie_chars)
// generator: crypto/rand is used wherever a security-sensitive token is
// generated, never math/rand, and a session cookie qualifies.
package cookiefile

import (
	"crypto/rand"
	"fmt"
	"os"
	"strings"
)

// Length is the fixed cookie length (spec §6.6).
const Length = 64

const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-_."

// disallowed holds the characters spec §6.6 forbids in a cookie,
// beyond whitespace (checked separately, so this set lists no space).
const disallowed = `=;"\(),#@:?`

// Load reads the cookie from path, generating and writing a fresh one
// if the file is absent or empty, and rejecting a present-but-invalid
// cookie. The file's mode is set to 0400 in every case that succeeds.
func Load(path string) (string, error) {
	var cookie string

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		cookie = strings.TrimRight(string(data), " \t\r\n")
		if cookie == "" {
			cookie, err = generate()
			if err != nil {
				return "", err
			}
			if err := os.WriteFile(path, []byte(cookie), 0o400); err != nil {
				return "", fmt.Errorf("cookiefile: rewriting %s: %w", path, err)
			}
		} else if err := Validate(cookie); err != nil {
			return "", fmt.Errorf("cookiefile: %s: %w", path, err)
		}
	case os.IsNotExist(err):
		cookie, err = generate()
		if err != nil {
			return "", err
		}
		if err := os.WriteFile(path, []byte(cookie), 0o400); err != nil {
			return "", fmt.Errorf("cookiefile: creating %s: %w", path, err)
		}
	default:
		return "", fmt.Errorf("cookiefile: reading %s: %w", path, err)
	}

	if err := os.Chmod(path, 0o400); err != nil {
		return "", fmt.Errorf("cookiefile: chmod %s: %w", path, err)
	}
	return cookie, nil
}

// Validate reports whether cookie is free of whitespace and the
// disallowed punctuation set from spec §6.6.
func Validate(cookie string) error {
	for _, r := range cookie {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			return fmt.Errorf("cookie contains whitespace")
		}
	}
	if i := strings.IndexAny(cookie, disallowed); i >= 0 {
		return fmt.Errorf("cookie contains invalid character %q", cookie[i])
	}
	return nil
}

// generate produces a fresh random Length-byte cookie drawn from
// alphabet.
func generate() (string, error) {
	raw := make([]byte, Length)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("cookiefile: generating cookie: %w", err)
	}
	buf := make([]byte, Length)
	for i, b := range raw {
		buf[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(buf), nil
}

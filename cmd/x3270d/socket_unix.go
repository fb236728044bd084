//go:build !windows

package main

import (
	"fmt"
	"net"
	"os"
)

// listenSocket binds the POSIX /tmp/x3sck.<pid> unix-domain socket
// spec §6.7's -socket flag names.
func listenSocket() (net.Listener, error) {
	path := fmt.Sprintf("/tmp/x3sck.%d", os.Getpid())
	os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", path, err)
	}
	return ln, nil
}

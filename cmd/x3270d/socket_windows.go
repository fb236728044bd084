//go:build windows

package main

import (
	"fmt"
	"net"
)

// listenSocket: -socket is POSIX-only (spec §6.7); Windows has no unix
// domain socket namespace at this path, so the flag is rejected rather
// than silently ignored.
func listenSocket() (net.Listener, error) {
	return nil, fmt.Errorf("-socket is not supported on Windows")
}

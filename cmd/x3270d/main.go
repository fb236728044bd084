package main

import (
	"fmt"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "x3270d: %v\n", err)
		os.Exit(exitCode(err))
	}
}

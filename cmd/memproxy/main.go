// Package main provides the entry point for the memproxy server.
package main

import (
	"fmt"
	"os"

	"github.com/xiaot623/gogo/memproxy/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Package main provides the entry point for the reclaim artifact cleaner CLI.
package main

import (
	"os"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}

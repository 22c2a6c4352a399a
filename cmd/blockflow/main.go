// Package main provides the blockflow command line tool for inspecting stored documents.
package main

import (
	"context"
	"os"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		os.Exit(1)
	}
}

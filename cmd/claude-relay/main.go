package main

import (
	"context"
	"fmt"
	"os"
)

// version is set by goreleaser via ldflags.
var version = "dev"

func main() {
	if err := RootCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

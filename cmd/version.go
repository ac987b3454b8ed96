package cmd

import (
	"fmt"
	"runtime"
)

// Version information (injected at build time via ldflags).
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// runVersion displays version and build information.
func runVersion() {
	fmt.Printf("sherpa %s\n", Version)
	fmt.Printf("  build time: %s\n", BuildTime)
	fmt.Printf("  commit:     %s\n", GitCommit)
	fmt.Printf("  go:         %s\n", runtime.Version())
}

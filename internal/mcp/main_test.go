package mcp

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain enables goroutine leak detection for all tests in the mcp
// package. Sessions over in-memory transports must shut down cleanly.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// Transport read loops park in the poller briefly after Close
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

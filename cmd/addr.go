package cmd

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
)

// parseServeAddr resolves the listen address for serve. The address
// can be given with -addr / --addr or as a bare positional argument
// (sherpa serve :8080); defaultAddr applies when neither is present.
func parseServeAddr(args []string, defaultAddr string) (string, error) {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	addr := fs.String("addr", defaultAddr, "listen address (host:port)")

	if err := fs.Parse(args); err != nil {
		return "", fmt.Errorf("parsing serve flags: %w", err)
	}
	switch fs.NArg() {
	case 0:
	case 1:
		*addr = fs.Arg(0)
	default:
		return "", fmt.Errorf("unexpected arguments after %q", fs.Arg(0))
	}

	if err := validateAddr(*addr); err != nil {
		return "", fmt.Errorf("invalid address %q: %w", *addr, err)
	}
	return *addr, nil
}

// validateAddr checks that addr is a host:port the HTTP server can
// bind. The host part may be empty (all interfaces) or a name; the
// port must be numeric, with 0 meaning a kernel-assigned port.
func validateAddr(addr string) error {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("must be in host:port format: %w", err)
	}
	if strings.ContainsAny(host, " \t\r\n") {
		return fmt.Errorf("invalid host %q", host)
	}
	if _, err := strconv.ParseUint(port, 10, 16); err != nil {
		return fmt.Errorf("port must be a number between 0 and 65535, got %q", port)
	}
	return nil
}

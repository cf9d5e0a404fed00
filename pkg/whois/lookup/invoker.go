package lookup

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"
)

// ErrLookupFailed is returned when the WHOIS client fails, writes to
// stderr, or exceeds the timeout.
var ErrLookupFailed = errors.New("whois lookup failed")

// Invoker runs a WHOIS lookup for an IP and returns the raw text
// output. Injected into the handler so tests can supply fakes.
type Invoker func(ctx context.Context, ip string) (string, error)

// SystemWhois returns an Invoker that runs the system whois client as
// a separate process per lookup. The timeout bounds a hung client: the
// process is killed and the lookup fails rather than blocking.
func SystemWhois(timeout time.Duration) Invoker {
	return func(ctx context.Context, ip string) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		cmd := exec.CommandContext(ctx, "whois", ip)
		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		err := cmd.Run()
		if ctx.Err() == context.DeadlineExceeded {
			return "", ErrLookupFailed
		}
		if err != nil || stderr.Len() > 0 {
			return "", ErrLookupFailed
		}

		return strings.TrimSpace(stdout.String()), nil
	}
}

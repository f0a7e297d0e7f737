package perception

import (
	"context"
	"errors"
	"net"
	"strings"
)

// FailureClass categorizes a backend failure for the gateway's escalation
// policy. The type is an open string so new classes can be introduced
// without touching every switch.
type FailureClass string

const (
	FailureQuota            FailureClass = "quota"
	FailureAuth             FailureClass = "auth"
	FailureModelUnavailable FailureClass = "modelUnavailable"
	FailureNetwork          FailureClass = "network"
	FailureServer           FailureClass = "server"
	FailureUnknown          FailureClass = "unknown"
)

// classifierVocabulary maps provider error wording to failure classes.
// Order matters: earlier entries win, so quota phrasing that also mentions
// "limit" is not misread.
var classifierVocabulary = []struct {
	class   FailureClass
	markers []string
}{
	{FailureQuota, []string{"resource_exhausted", "quota", "429", "rate limit"}},
	{FailureAuth, []string{"authentication", "api key", "unauthenticated", "invalid key", "permission", "forbidden", "403"}},
	{FailureModelUnavailable, []string{"not found", "404", "unknown model"}},
	{FailureNetwork, []string{"connection", "timeout", "network", "no such host"}},
	{FailureServer, []string{"500", "503", "internal", "server error", "overloaded"}},
}

// Classify maps a raw backend error onto a FailureClass by case-insensitive
// substring inspection of its message. This is inherently a best-effort
// heuristic over provider wording, not a guarantee; unrecognized errors are
// FailureUnknown and the gateway treats them as non-retryable.
func Classify(err error) FailureClass {
	if err == nil {
		return FailureUnknown
	}

	// Timeouts are retried like any transient network fault.
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureNetwork
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureNetwork
	}

	msg := strings.ToLower(err.Error())
	for _, entry := range classifierVocabulary {
		for _, marker := range entry.markers {
			if strings.Contains(msg, marker) {
				return entry.class
			}
		}
	}
	return FailureUnknown
}

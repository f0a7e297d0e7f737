package perception

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestClassify_Vocabulary(t *testing.T) {
	cases := []struct {
		msg  string
		want FailureClass
	}{
		{"API request failed with status 429: RESOURCE_EXHAUSTED", FailureQuota},
		{"you have exceeded your quota", FailureQuota},
		{"Rate limit reached, slow down", FailureQuota},
		{"API request failed with status 403: forbidden", FailureAuth},
		{"invalid key provided", FailureAuth},
		{"request had invalid authentication credentials", FailureAuth},
		{"permission denied on project", FailureAuth},
		{"API request failed with status 404: model not found", FailureModelUnavailable},
		{"unknown model gemini-9000", FailureModelUnavailable},
		{"dial tcp: connection refused", FailureNetwork},
		{"context deadline exceeded (Client.Timeout)", FailureNetwork},
		{"network is unreachable", FailureNetwork},
		{"API request failed with status 500: internal error", FailureServer},
		{"API request failed with status 503: service unavailable", FailureServer},
		{"the model is overloaded", FailureServer},
		{"something inexplicable happened", FailureUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.msg, func(t *testing.T) {
			if got := Classify(errors.New(tc.msg)); got != tc.want {
				t.Errorf("Classify(%q) = %s, want %s", tc.msg, got, tc.want)
			}
		})
	}
}

func TestClassify_CaseInsensitive(t *testing.T) {
	if got := Classify(errors.New("QUOTA EXCEEDED")); got != FailureQuota {
		t.Errorf("expected quota, got %s", got)
	}
}

func TestClassify_DeadlineExceeded(t *testing.T) {
	err := fmt.Errorf("request failed: %w", context.DeadlineExceeded)
	if got := Classify(err); got != FailureNetwork {
		t.Errorf("expected network for deadline exceeded, got %s", got)
	}
}

func TestClassify_Nil(t *testing.T) {
	if got := Classify(nil); got != FailureUnknown {
		t.Errorf("expected unknown for nil error, got %s", got)
	}
}

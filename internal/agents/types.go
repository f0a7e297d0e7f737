// Package agents implements the three call shapes of the debugging
// pipeline: Detect finds errors, Repair proposes a fix, Verify judges it.
// Each invocation renders a prompt template, routes it through the recovery
// gateway, and parses the response into a typed result.
package agents

import (
	"context"
	"strings"
)

// Generator is the capability agents need from the gateway: a prompt in,
// raw text out. Satisfied by *perception.Gateway.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ErrorKind categorizes a detected error.
type ErrorKind string

const (
	KindSyntax  ErrorKind = "Syntax"
	KindRuntime ErrorKind = "Runtime"
	KindLogical ErrorKind = "Logical"
)

// ErrorReport is one error found by Detect. Line is 1-based; zero means the
// backend could not attribute the error to a line.
type ErrorReport struct {
	Kind        ErrorKind `json:"type"`
	Line        int       `json:"line,omitempty"`
	Description string    `json:"description"`
}

// FixResult is Repair's proposed correction.
type FixResult struct {
	FixedCode   string `json:"fixed_code"`
	Explanation string `json:"explanation"`
}

// ValidationResult is Verify's judgment of a proposed fix.
type ValidationResult struct {
	Verdict  string `json:"status"`
	Feedback string `json:"feedback"`
}

// Approved reports whether the verdict accepts the fix. Comparison is
// case-insensitive because backends are inconsistent about casing.
func (v ValidationResult) Approved() bool {
	return strings.EqualFold(strings.TrimSpace(v.Verdict), "Approved")
}

// InvalidInputError marks a precondition violation caught before any
// backend call is spent.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return "invalid input: " + e.Reason
}

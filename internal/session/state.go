// Package session runs the debugging control loop: detect errors, propose a
// fix, verify it, retry up to a bound, and hand back an immutable record of
// everything that happened.
package session

import (
	"time"

	"codemedic/internal/agents"
)

// Status is the lifecycle state of a debug session. Transitions are
// monotonic: once a session leaves StatusInProgress it never re-enters it.
type Status string

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusNoErrors   Status = "NO_ERRORS"
	StatusFixed      Status = "FIXED"
	StatusFailed     Status = "FAILED"
)

// Terminal reports whether the status ends a session.
func (s Status) Terminal() bool {
	return s != StatusInProgress
}

// FixAttempt records one pass through the fix/verify loop. Attempts are
// append-only; Seq is 1-based and dense.
type FixAttempt struct {
	Seq         int                     `json:"attempt"`
	FixedCode   string                  `json:"fixed_code"`
	Explanation string                  `json:"explanation"`
	Validation  agents.ValidationResult `json:"validation"`
}

// DebugState is the full record of one debug session. It is mutated only by
// the orchestrator while Status is StatusInProgress and is effectively
// immutable once returned.
//
// Invariants: len(Attempts) never exceeds the configured bound, and
// FinalCode is set exactly when Status is StatusFixed or StatusNoErrors.
type DebugState struct {
	ID             string               `json:"id"`
	OriginalCode   string               `json:"original_code"`
	DetectedErrors []agents.ErrorReport `json:"detected_errors"`
	Attempts       []FixAttempt         `json:"fix_attempts"`
	FinalCode      string               `json:"final_code,omitempty"`
	Status         Status               `json:"status"`
	StartedAt      time.Time            `json:"started_at"`
	FinishedAt     time.Time            `json:"finished_at"`
}

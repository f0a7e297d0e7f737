package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"codemedic/internal/agents"
	"codemedic/internal/logging"
)

// Orchestrator sequences the three agent invocations for a session.
// It owns the DebugState for the session's lifetime; the gateway it calls
// through is shared and safe for concurrent sessions.
type Orchestrator struct {
	gw          agents.Generator
	maxAttempts int
}

// New creates an orchestrator bound to a gateway. maxAttempts is the
// fix/verify retry bound; values below 1 are clamped to 1.
func New(gw agents.Generator, maxAttempts int) *Orchestrator {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Orchestrator{gw: gw, maxAttempts: maxAttempts}
}

// Run executes one full debug session over the input code.
//
// The control loop: detect errors; if none, finish clean. Otherwise repair
// and verify, retrying rejected fixes up to the attempt bound. The same
// original code and detected-error list feed every retry; only the proposed
// fix varies. A failed detection is terminal with zero attempts, because a
// session has nothing usable to proceed on. A failed repair or verify call
// consumes an attempt as if the fix had been rejected.
//
// Run returns an error only for invalid input; every backend-side outcome is
// absorbed into the returned state's Status.
func (o *Orchestrator) Run(ctx context.Context, code string) (*DebugState, error) {
	if strings.TrimSpace(code) == "" {
		return nil, &agents.InvalidInputError{Reason: "code must not be empty"}
	}

	state := &DebugState{
		ID:           uuid.NewString(),
		OriginalCode: code,
		Status:       StatusInProgress,
		StartedAt:    time.Now(),
	}

	logging.Session("session %s: scanning", state.ID)

	detected, err := agents.Detect(ctx, o.gw, code)
	if err != nil {
		var invalid *agents.InvalidInputError
		if errors.As(err, &invalid) {
			return nil, err
		}
		// No usable error report means nothing to repair against.
		logging.Session("session %s: detection failed, terminal: %v", state.ID, err)
		return o.finish(state, StatusFailed, ""), nil
	}

	if len(detected) == 0 {
		logging.Session("session %s: no errors found", state.ID)
		return o.finish(state, StatusNoErrors, code), nil
	}

	state.DetectedErrors = detected
	logging.Session("session %s: %d error(s) detected", state.ID, len(detected))

	for attempt := 1; attempt <= o.maxAttempts; attempt++ {
		logging.SessionDebug("session %s: fix attempt %d/%d", state.ID, attempt, o.maxAttempts)

		fix, err := agents.Repair(ctx, o.gw, code, detected)
		if err != nil {
			logging.Session("session %s: repair failed on attempt %d: %v", state.ID, attempt, err)
			state.Attempts = append(state.Attempts, rejectedAttempt(attempt, FixResultNone(), err))
			continue
		}

		verdict, err := agents.Verify(ctx, o.gw, code, fix.FixedCode, detected)
		if err != nil {
			logging.Session("session %s: verify failed on attempt %d: %v", state.ID, attempt, err)
			state.Attempts = append(state.Attempts, rejectedAttempt(attempt, fix, err))
			continue
		}

		state.Attempts = append(state.Attempts, FixAttempt{
			Seq:         attempt,
			FixedCode:   fix.FixedCode,
			Explanation: fix.Explanation,
			Validation:  verdict,
		})

		if verdict.Approved() {
			logging.Session("session %s: fix approved on attempt %d", state.ID, attempt)
			return o.finish(state, StatusFixed, Normalize(fix.FixedCode)), nil
		}

		logging.Session("session %s: fix rejected on attempt %d: %s", state.ID, attempt, verdict.Feedback)
	}

	logging.Session("session %s: attempt bound reached without approval", state.ID)
	return o.finish(state, StatusFailed, ""), nil
}

func (o *Orchestrator) finish(state *DebugState, status Status, finalCode string) *DebugState {
	state.Status = status
	state.FinalCode = finalCode
	state.FinishedAt = time.Now()
	return state
}

// FixResultNone is the empty fix recorded when the repair call itself fails.
func FixResultNone() agents.FixResult {
	return agents.FixResult{}
}

// rejectedAttempt converts an invocation failure into a rejected-equivalent
// attempt so the failure still counts toward the attempt bound and stays
// visible in the session history.
func rejectedAttempt(seq int, fix agents.FixResult, err error) FixAttempt {
	return FixAttempt{
		Seq:         seq,
		FixedCode:   fix.FixedCode,
		Explanation: fix.Explanation,
		Validation: agents.ValidationResult{
			Verdict:  "Rejected",
			Feedback: "invocation failed: " + err.Error(),
		},
	}
}

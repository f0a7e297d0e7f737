package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"codemedic/internal/extract"
	"codemedic/internal/logging"
)

// extractRetries bounds how many times an invocation re-issues its call when
// the backend answered but the answer carried no usable structured record.
// Each re-issue passes through the gateway's full escalation policy again.
const extractRetries = 2

// Detect asks the backend to scan code for errors. An empty error slice is a
// valid outcome and means the code is clean.
func Detect(ctx context.Context, g Generator, code string) ([]ErrorReport, error) {
	if strings.TrimSpace(code) == "" {
		return nil, &InvalidInputError{Reason: "code must not be empty"}
	}

	prompt := strings.ReplaceAll(detectPrompt, "{{CODE}}", code)

	obj, err := callStructured(ctx, g, prompt, "errors")
	if err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}

	var errs []ErrorReport
	if err := json.Unmarshal(obj["errors"], &errs); err != nil {
		return nil, fmt.Errorf("detect: malformed errors field: %w", err)
	}
	logging.Agents("detect found %d error(s)", len(errs))
	return errs, nil
}

// Repair asks the backend for a minimal fix addressing the detected errors.
func Repair(ctx context.Context, g Generator, code string, errs []ErrorReport) (FixResult, error) {
	if err := validateRepairInput(code, errs); err != nil {
		return FixResult{}, err
	}

	prompt := strings.ReplaceAll(repairPrompt, "{{CODE}}", code)
	prompt = strings.ReplaceAll(prompt, "{{ERRORS}}", marshalErrors(errs))

	obj, err := callStructured(ctx, g, prompt, "fixed_code", "explanation")
	if err != nil {
		return FixResult{}, fmt.Errorf("repair: %w", err)
	}

	res := FixResult{
		FixedCode:   decodeString(obj["fixed_code"]),
		Explanation: decodeString(obj["explanation"]),
	}
	logging.AgentsDebug("repair proposed %d bytes of code", len(res.FixedCode))
	return res, nil
}

// Verify asks the backend to judge whether the fixed code resolves every
// detected error without collateral changes.
func Verify(ctx context.Context, g Generator, original, fixed string, errs []ErrorReport) (ValidationResult, error) {
	if strings.TrimSpace(original) == "" {
		return ValidationResult{}, &InvalidInputError{Reason: "original code must not be empty"}
	}
	if strings.TrimSpace(fixed) == "" {
		return ValidationResult{}, &InvalidInputError{Reason: "fixed code must not be empty"}
	}
	if err := validateErrorList(errs); err != nil {
		return ValidationResult{}, err
	}

	prompt := strings.ReplaceAll(verifyPrompt, "{{ORIGINAL}}", original)
	prompt = strings.ReplaceAll(prompt, "{{FIXED}}", fixed)
	prompt = strings.ReplaceAll(prompt, "{{ERRORS}}", marshalErrors(errs))

	obj, err := callStructured(ctx, g, prompt, "status", "feedback")
	if err != nil {
		return ValidationResult{}, fmt.Errorf("verify: %w", err)
	}

	res := ValidationResult{
		Verdict:  decodeString(obj["status"]),
		Feedback: decodeString(obj["feedback"]),
	}
	logging.Agents("verify verdict: %s", res.Verdict)
	return res, nil
}

func validateRepairInput(code string, errs []ErrorReport) error {
	if strings.TrimSpace(code) == "" {
		return &InvalidInputError{Reason: "code must not be empty"}
	}
	return validateErrorList(errs)
}

func validateErrorList(errs []ErrorReport) error {
	if len(errs) == 0 {
		return &InvalidInputError{Reason: "error list must not be empty"}
	}
	for i, e := range errs {
		if e.Kind == "" || strings.TrimSpace(e.Description) == "" {
			return &InvalidInputError{Reason: fmt.Sprintf("error report %d missing kind or description", i+1)}
		}
	}
	return nil
}

// callStructured issues the prompt through the gateway and parses one JSON
// object with the required fields out of the raw response. A response with
// no usable record is treated like a backend failure: the call is re-issued,
// re-entering the gateway's retry and fallback policy.
func callStructured(ctx context.Context, g Generator, prompt string, required ...string) (map[string]json.RawMessage, error) {
	var lastErr error
	for attempt := 0; attempt <= extractRetries; attempt++ {
		raw, err := g.Generate(ctx, prompt)
		if err != nil {
			return nil, fmt.Errorf("backend call failed: %w", err)
		}

		obj, err := extract.ParseObject(raw, required...)
		if err == nil {
			return obj, nil
		}
		lastErr = err
		logging.AgentsDebug("unusable response (attempt %d): %v", attempt+1, err)
	}
	return nil, fmt.Errorf("no usable structured response after %d attempts: %w", extractRetries+1, lastErr)
}

func marshalErrors(errs []ErrorReport) string {
	data, err := json.MarshalIndent(errs, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(data)
}

func decodeString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		// Backends occasionally emit non-string values; keep the raw text.
		return strings.Trim(string(raw), "\"")
	}
	return s
}

package agents

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// scriptedGenerator returns each queued response in order and records the
// prompts it was given.
type scriptedGenerator struct {
	responses []string
	errs      []error
	prompts   []string
}

func (s *scriptedGenerator) Generate(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	i := len(s.prompts) - 1
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.responses) {
		return s.responses[i], nil
	}
	return "", errors.New("script exhausted")
}

func TestDetect_ParsesReports(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		`{"errors": [
			{"type": "Syntax", "line": 2, "description": "missing colon"},
			{"type": "Logical", "description": "loop never terminates"}
		]}`,
	}}

	errs, err := Detect(context.Background(), gen, "def foo()\n    pass")
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(errs) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(errs))
	}
	if errs[0].Kind != KindSyntax || errs[0].Line != 2 {
		t.Errorf("unexpected first report: %+v", errs[0])
	}
	if errs[1].Kind != KindLogical || errs[1].Line != 0 {
		t.Errorf("unexpected second report: %+v", errs[1])
	}

	if len(gen.prompts) != 1 {
		t.Fatalf("expected 1 backend call, got %d", len(gen.prompts))
	}
	if !strings.Contains(gen.prompts[0], "def foo()") {
		t.Error("prompt does not contain the code under analysis")
	}
	if strings.Contains(gen.prompts[0], "{{CODE}}") {
		t.Error("placeholder left unsubstituted")
	}
}

func TestDetect_CleanCode(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{`{"errors": []}`}}

	errs, err := Detect(context.Background(), gen, "print('hello')")
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(errs) != 0 {
		t.Errorf("expected no reports, got %v", errs)
	}
}

func TestDetect_EmptyInputNoBackendCall(t *testing.T) {
	gen := &scriptedGenerator{}

	_, err := Detect(context.Background(), gen, "   \n\t  ")
	var invalid *InvalidInputError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidInputError, got %v", err)
	}
	if len(gen.prompts) != 0 {
		t.Errorf("precondition failure must not reach the backend, got %d calls", len(gen.prompts))
	}
}

func TestDetect_RetriesUnusableResponse(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		"I could not find any JSON to give you.",
		`{"wrong_field": true}`,
		`{"errors": [{"type": "Runtime", "description": "division by zero"}]}`,
	}}

	errs, err := Detect(context.Background(), gen, "x = 1/0")
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(errs) != 1 || errs[0].Kind != KindRuntime {
		t.Errorf("unexpected reports: %v", errs)
	}
	if len(gen.prompts) != 3 {
		t.Errorf("expected 3 calls (2 unusable + 1 good), got %d", len(gen.prompts))
	}
}

func TestDetect_ExhaustsExtractionRetries(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		"nothing", "still nothing", "nope",
	}}

	_, err := Detect(context.Background(), gen, "x = 1")
	if err == nil {
		t.Fatal("expected failure after exhausting retries")
	}
	if len(gen.prompts) != extractRetries+1 {
		t.Errorf("expected %d calls, got %d", extractRetries+1, len(gen.prompts))
	}
}

func TestDetect_BackendErrorNotRetried(t *testing.T) {
	gen := &scriptedGenerator{errs: []error{errors.New("backend down")}}

	_, err := Detect(context.Background(), gen, "x = 1")
	if err == nil {
		t.Fatal("expected error")
	}
	if len(gen.prompts) != 1 {
		t.Errorf("hard backend errors must not be retried here, got %d calls", len(gen.prompts))
	}
}

func TestRepair_SubstitutesCodeAndErrors(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		`{"fixed_code": "def foo():\n    pass", "explanation": "added colon"}`,
	}}

	reports := []ErrorReport{{Kind: KindSyntax, Line: 1, Description: "missing colon"}}
	fix, err := Repair(context.Background(), gen, "def foo()\n    pass", reports)
	if err != nil {
		t.Fatalf("Repair failed: %v", err)
	}
	if fix.FixedCode != "def foo():\n    pass" {
		t.Errorf("unexpected fixed code: %q", fix.FixedCode)
	}
	if fix.Explanation != "added colon" {
		t.Errorf("unexpected explanation: %q", fix.Explanation)
	}

	p := gen.prompts[0]
	if !strings.Contains(p, "missing colon") {
		t.Error("prompt does not carry the detected errors")
	}
	if strings.Contains(p, "{{ERRORS}}") || strings.Contains(p, "{{CODE}}") {
		t.Error("placeholders left unsubstituted")
	}
}

func TestRepair_RejectsEmptyErrorList(t *testing.T) {
	gen := &scriptedGenerator{}

	_, err := Repair(context.Background(), gen, "x = 1", nil)
	var invalid *InvalidInputError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidInputError, got %v", err)
	}
	if len(gen.prompts) != 0 {
		t.Error("precondition failure must not reach the backend")
	}
}

func TestRepair_RejectsIncompleteReport(t *testing.T) {
	cases := []ErrorReport{
		{Kind: "", Description: "no kind"},
		{Kind: KindSyntax, Description: "   "},
	}
	for _, bad := range cases {
		_, err := Repair(context.Background(), &scriptedGenerator{}, "x = 1", []ErrorReport{bad})
		var invalid *InvalidInputError
		if !errors.As(err, &invalid) {
			t.Errorf("report %+v: expected InvalidInputError, got %v", bad, err)
		}
	}
}

func TestVerify_ApprovedVerdict(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		"Here is my judgment:\n```json\n{\"status\": \"Approved\", \"feedback\": \"all errors resolved\"}\n```",
	}}

	reports := []ErrorReport{{Kind: KindSyntax, Description: "missing colon"}}
	res, err := Verify(context.Background(), gen, "def foo()", "def foo():", reports)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !res.Approved() {
		t.Errorf("expected approval, got verdict %q", res.Verdict)
	}
	if res.Feedback != "all errors resolved" {
		t.Errorf("unexpected feedback: %q", res.Feedback)
	}

	p := gen.prompts[0]
	for _, placeholder := range []string{"{{ORIGINAL}}", "{{FIXED}}", "{{ERRORS}}"} {
		if strings.Contains(p, placeholder) {
			t.Errorf("placeholder %s left unsubstituted", placeholder)
		}
	}
}

func TestVerify_RejectedVerdict(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		`{"status": "Rejected", "feedback": "fix changed unrelated lines"}`,
	}}

	reports := []ErrorReport{{Kind: KindLogical, Description: "off by one"}}
	res, err := Verify(context.Background(), gen, "a", "b", reports)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if res.Approved() {
		t.Error("rejected verdict must not count as approval")
	}
}

func TestVerify_EmptyFixedCode(t *testing.T) {
	reports := []ErrorReport{{Kind: KindSyntax, Description: "x"}}
	_, err := Verify(context.Background(), &scriptedGenerator{}, "a", "  ", reports)
	var invalid *InvalidInputError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidInputError, got %v", err)
	}
}

func TestApproved_CaseAndWhitespace(t *testing.T) {
	cases := []struct {
		verdict string
		want    bool
	}{
		{"Approved", true},
		{"approved", true},
		{"APPROVED", true},
		{"  Approved ", true},
		{"Rejected", false},
		{"Approved with reservations", false},
		{"", false},
	}
	for _, tc := range cases {
		got := ValidationResult{Verdict: tc.verdict}.Approved()
		if got != tc.want {
			t.Errorf("Approved(%q) = %v, want %v", tc.verdict, got, tc.want)
		}
	}
}

func TestDecodeString_NonStringValue(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		`{"fixed_code": "x = 1", "explanation": 42}`,
	}}

	reports := []ErrorReport{{Kind: KindSyntax, Description: "x"}}
	fix, err := Repair(context.Background(), gen, "x == 1", reports)
	if err != nil {
		t.Fatalf("Repair failed: %v", err)
	}
	if fix.Explanation != "42" {
		t.Errorf("expected raw text for non-string value, got %q", fix.Explanation)
	}
}

package agents

// Prompt templates are opaque text as far as the pipeline is concerned.
// The only contracts are the literal placeholders ({{CODE}}, {{ERRORS}},
// {{ORIGINAL}}, {{FIXED}}), the required JSON fields each response must
// carry, and the role markers the stub responder keys on.

const detectPrompt = `
Scanner agent -- specialized in code analysis

ROLE:
- Analyze the given code
- Identify syntax, runtime, and logical errors
- Do NOT fix the code
- Do NOT suggest improvements
- Do NOT rewrite any part of the code

RULES:
- Only report errors that cause incorrect behavior
- Be precise and concise

OUTPUT FORMAT (STRICT JSON ONLY):
{
  "errors": [
    {
      "type": "Syntax | Runtime | Logical",
      "line": number or null,
      "description": "Clear explanation"
    }
  ]
}

CODE:
{{CODE}}
`

const repairPrompt = `
Fixer agent -- code corrector

ROLE:
- Fix ONLY the detected errors
- Apply the MINIMAL change required
- Preserve original intent and structure

CODE RULES (MANDATORY):
- Output must be valid, executable code
- Respect the language's indentation strictly
- Do NOT add or remove unrelated lines

OUTPUT FORMAT (STRICT JSON ONLY):
{
  "fixed_code": "Clean, properly indented code",
  "explanation": "Clear, human-readable explanation of what was fixed and why"
}

ORIGINAL CODE:
{{CODE}}

DETECTED ERRORS:
{{ERRORS}}
`

const verifyPrompt = `
Validator agent -- strict quality standards

ROLE:
- Verify the fix resolves all detected errors
- Ensure no new issues are introduced

RULES:
- Reject if any original error remains
- Reject if unrelated changes are made

OUTPUT FORMAT (STRICT JSON ONLY):
{
  "status": "Approved | Rejected",
  "feedback": "Reason"
}

ORIGINAL CODE:
{{ORIGINAL}}

FIXED CODE:
{{FIXED}}

ERRORS:
{{ERRORS}}
`

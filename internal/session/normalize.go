package session

import "strings"

// Normalize canonicalizes model-produced code before it becomes a session's
// final output: the common leading indentation shared by all non-blank lines
// is removed and surrounding whitespace is trimmed. Backends indent their
// answers inconsistently, so this runs on every approved fix. The operation
// is idempotent.
func Normalize(code string) string {
	lines := strings.Split(code, "\n")

	margin := ""
	found := false
	for _, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == "" {
			// Whitespace-only lines do not constrain the margin.
			continue
		}
		indent := line[:len(line)-len(trimmed)]
		if !found {
			margin = indent
			found = true
			continue
		}
		margin = commonPrefix(margin, indent)
		if margin == "" {
			break
		}
	}

	if margin != "" {
		for i, line := range lines {
			if strings.HasPrefix(line, margin) {
				lines[i] = line[len(margin):]
			} else if strings.TrimSpace(line) == "" {
				lines[i] = ""
			}
		}
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func commonPrefix(a, b string) string {
	i := 0
	for i < len(a) && i < len(b) && a[i] == b[i] {
		i++
	}
	return a[:i]
}

package llm

import "strings"

// sqlPrefixes are the statement keywords the fallback line scan accepts.
var sqlPrefixes = []string{"SELECT", "WITH", "INSERT", "UPDATE", "DELETE"}

// parseResponse splits raw model output into reasoning and SQL. It expects
// the Reasoning:/SQL: format but tolerates deviation: markdown fences are
// stripped, and when no SQL: marker is present the text is scanned for a
// line starting with a statement keyword. If nothing looks like SQL the
// whole text becomes the reasoning and the SQL is left empty.
func parseResponse(raw string) Response {
	text := strings.TrimSpace(raw)

	if idx := findMarker(text, "SQL:"); idx >= 0 {
		reasoning := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text[:idx]), "Reasoning:"))
		sql := stripFences(text[idx+len("SQL:"):])
		return Response{Reasoning: reasoning, SQL: sql}
	}

	if reasoning, sql := scanForStatement(text); sql != "" {
		return Response{Reasoning: reasoning, SQL: sql}
	}

	return Response{Reasoning: text, SQL: ""}
}

// findMarker locates the first occurrence of marker at the start of a line.
func findMarker(text, marker string) int {
	if strings.HasPrefix(text, marker) {
		return 0
	}
	idx := strings.Index(text, "\n"+marker)
	if idx < 0 {
		return -1
	}
	return idx + 1
}

// scanForStatement splits the text at the first line that starts with a
// SQL keyword: everything before it is kept as reasoning, everything from
// it onward is the statement, fences stripped.
func scanForStatement(text string) (reasoning, sql string) {
	cleaned := stripFences(text)
	lines := strings.Split(cleaned, "\n")
	for i, line := range lines {
		upper := strings.ToUpper(strings.TrimSpace(line))
		for _, prefix := range sqlPrefixes {
			if strings.HasPrefix(upper, prefix) {
				reasoning = strings.TrimSpace(strings.Join(lines[:i], "\n"))
				sql = strings.TrimSpace(strings.Join(lines[i:], "\n"))
				return reasoning, sql
			}
		}
	}
	return "", ""
}

// stripFences removes a surrounding ```sql markdown fence if present.
func stripFences(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```sql")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(trimmed, "```")
		return strings.TrimSpace(trimmed)
	}
	return trimmed
}

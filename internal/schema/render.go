package schema

import "strings"

// Render converts a table into the canonical text form used both as the
// embedding document for semantic search and as the schema context block in
// generation prompts. Keeping one rendering means what the index matched on
// is exactly what the model sees.
func Render(t Table) string {
	var b strings.Builder
	b.WriteString("Table: ")
	b.WriteString(t.Name)
	b.WriteString("\n")

	if t.Description != "" {
		b.WriteString("Description: ")
		b.WriteString(t.Description)
		b.WriteString("\n")
	}

	b.WriteString("Columns:\n")
	for _, col := range t.Columns {
		b.WriteString("- ")
		b.WriteString(col.Name)
		b.WriteString(": ")
		b.WriteString(col.DataType)
		if col.Description != "" {
			b.WriteString(" - ")
			b.WriteString(col.Description)
		}
		if col.IsPrimaryKey {
			b.WriteString(" (PK)")
		}
		if col.IsForeignKey && col.References != "" {
			b.WriteString(" (FK to ")
			b.WriteString(col.References)
			b.WriteString(")")
		}
		b.WriteString("\n")
	}

	return b.String()
}

// RenderAll renders multiple tables separated by blank lines.
func RenderAll(tables []Table) string {
	parts := make([]string, len(tables))
	for i, t := range tables {
		parts[i] = Render(t)
	}
	return strings.Join(parts, "\n")
}

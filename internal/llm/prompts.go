package llm

import (
	"fmt"
	"strings"

	"github.com/querysmith/querysmith/internal/schema"
)

const systemPrompt = `You are an expert SQL analyst. Given database table schemas and a user question, write a SQL query that answers the question.

Respond in exactly this format:

Reasoning: <one or two sentences explaining which tables and columns you chose and why>
SQL: <the SQL query>

Use only the tables and columns provided. Do not invent columns. Return a single SQL statement.`

// buildUserPrompt renders the request into the user message. A corrective
// request includes the failed statement and the database error so the model
// can repair it.
func buildUserPrompt(req Request) string {
	var b strings.Builder

	b.WriteString("Available table schemas:\n\n")
	b.WriteString(schema.RenderAll(req.Tables))
	b.WriteString("\n\n")

	if req.Corrective() {
		fmt.Fprintf(&b, "The following SQL query failed:\n%s\n\n", req.PriorSQL)
		fmt.Fprintf(&b, "Database error:\n%s\n\n", req.PriorError)
		fmt.Fprintf(&b, "Original question: %s\n\n", req.Question)
		b.WriteString("Write a corrected SQL query that fixes the error and answers the question.")
	} else {
		fmt.Fprintf(&b, "Question: %s", req.Question)
	}

	return b.String()
}

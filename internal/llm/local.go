package llm

import (
	"context"
	"fmt"
	"strings"
)

// Local is a deterministic offline provider. It builds a trivial SELECT over
// the first retrieved table, which is enough for smoke tests and demos
// without any API key.
type Local struct{}

var _ Provider = (*Local)(nil)

// NewLocal creates the offline provider.
func NewLocal() *Local {
	return &Local{}
}

func (l *Local) Name() string {
	return "local"
}

func (l *Local) GenerateSQL(_ context.Context, req Request) (Response, error) {
	if len(req.Tables) == 0 {
		return Response{
			Reasoning: "No table schemas were provided, so a constant query is returned.",
			SQL:       "SELECT 1 AS test",
		}, nil
	}

	t := req.Tables[0]
	cols := make([]string, 0, 3)
	for _, c := range t.Columns {
		cols = append(cols, c.Name)
		if len(cols) == 3 {
			break
		}
	}
	selection := "*"
	if len(cols) > 0 {
		selection = strings.Join(cols, ", ")
	}

	return Response{
		Reasoning: fmt.Sprintf("Selected table %s as the most relevant match for the question.", t.Name),
		SQL:       fmt.Sprintf("SELECT %s FROM %s LIMIT 10", selection, t.Name),
	}, nil
}

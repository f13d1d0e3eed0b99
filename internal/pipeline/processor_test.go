package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/querysmith/querysmith/internal/dbregistry"
	"github.com/querysmith/querysmith/internal/llm"
	"github.com/querysmith/querysmith/internal/schema"
)

type stubCatalog struct {
	summaries []dbregistry.Summary
	tables    map[string][]schema.Table
	tablesErr error
	listErr   error
}

func (s *stubCatalog) List(context.Context) ([]dbregistry.Summary, error) {
	return s.summaries, s.listErr
}

func (s *stubCatalog) Get(id string) (dbregistry.Entry, error) {
	for _, sum := range s.summaries {
		if sum.ID == id {
			return dbregistry.Entry{ID: id, Name: sum.Name, Type: sum.Type}, nil
		}
	}
	return dbregistry.Entry{}, dbregistry.ErrNotFound
}

func (s *stubCatalog) Tables(_ context.Context, id string) ([]schema.Table, error) {
	if s.tablesErr != nil {
		return nil, s.tablesErr
	}
	return s.tables[id], nil
}

type stubModels struct {
	provider llm.Provider
	entry    llm.Entry
	err      error
}

func (s *stubModels) Provider(string) (llm.Provider, llm.Entry, error) {
	return s.provider, s.entry, s.err
}

// stubProvider replays canned responses or errors in call order.
type stubProvider struct {
	responses []llm.Response
	errs      []error
	requests  []llm.Request
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) GenerateSQL(_ context.Context, req llm.Request) (llm.Response, error) {
	i := len(s.requests)
	s.requests = append(s.requests, req)
	if i < len(s.errs) && s.errs[i] != nil {
		return llm.Response{}, s.errs[i]
	}
	if i < len(s.responses) {
		return s.responses[i], nil
	}
	return llm.Response{Reasoning: "mock query", SQL: "SELECT 1"}, nil
}

type stubRetriever struct {
	tables []schema.Table
	err    error
}

func (s *stubRetriever) Retrieve(context.Context, string, string) ([]schema.Table, error) {
	return s.tables, s.err
}

// stubExecutor fails the first n calls, then succeeds.
type stubExecutor struct {
	failFirst int
	calls     int
	outcome   *ExecutionOutcome
}

func (s *stubExecutor) Execute(context.Context, string, string) (*ExecutionOutcome, error) {
	s.calls++
	if s.calls <= s.failFirst {
		return nil, errors.New("syntax error near FROM")
	}
	if s.outcome != nil {
		return s.outcome, nil
	}
	return &ExecutionOutcome{Columns: []string{}, Rows: [][]any{}}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func usersTable() schema.Table {
	return schema.Table{
		Name: "users",
		Columns: []schema.Column{
			{Name: "id", DataType: "integer", IsPrimaryKey: true},
			{Name: "name", DataType: "text"},
			{Name: "email", DataType: "text"},
		},
	}
}

func newTestProcessor(catalog *stubCatalog, provider llm.Provider, retriever Retriever, executor QueryExecutor) *Processor {
	models := &stubModels{provider: provider, entry: llm.Entry{ID: "default", Provider: "openai"}}
	return NewProcessor(catalog, models, retriever, executor, testLogger())
}

func TestProcessSkipExecution(t *testing.T) {
	catalog := &stubCatalog{summaries: []dbregistry.Summary{{ID: "sales", Name: "Sales"}}}
	provider := &stubProvider{responses: []llm.Response{
		{Reasoning: "mock query", SQL: "SELECT id, name, email FROM users LIMIT 10"},
	}}
	retriever := &stubRetriever{tables: []schema.Table{usersTable()}}
	executor := &stubExecutor{}
	p := newTestProcessor(catalog, provider, retriever, executor)

	resp := p.Process(context.Background(), Request{Query: "list users", DatabaseID: "sales"})

	if !resp.Success {
		t.Errorf("expected success, got error %q", resp.Error)
	}
	if resp.SQL != "SELECT id, name, email FROM users LIMIT 10" {
		t.Errorf("sql = %q", resp.SQL)
	}
	if resp.Result != nil {
		t.Error("expected no execution outcome")
	}
	if resp.Trace.Attempts != 1 {
		t.Errorf("attempts = %d", resp.Trace.Attempts)
	}
	if resp.Trace.Reasoning != "mock query" {
		t.Errorf("reasoning = %q", resp.Trace.Reasoning)
	}
	if executor.calls != 0 {
		t.Errorf("executor called %d times", executor.calls)
	}
}

func TestProcessExecuteSuccess(t *testing.T) {
	catalog := &stubCatalog{summaries: []dbregistry.Summary{{ID: "sales"}}}
	provider := &stubProvider{responses: []llm.Response{{Reasoning: "r", SQL: "SELECT name FROM users"}}}
	retriever := &stubRetriever{tables: []schema.Table{usersTable()}}
	executor := &stubExecutor{outcome: &ExecutionOutcome{Columns: []string{"name"}, Rows: [][]any{{"alice"}}, RowCount: 1}}
	p := newTestProcessor(catalog, provider, retriever, executor)

	resp := p.Process(context.Background(), Request{Query: "names", Execute: true, DatabaseID: "sales"})

	if !resp.Success {
		t.Fatalf("expected success, got %q", resp.Error)
	}
	if resp.Result == nil || resp.Result.RowCount != 1 {
		t.Errorf("result = %+v", resp.Result)
	}
	if len(resp.Trace.Errors) != 0 {
		t.Errorf("errors = %v", resp.Trace.Errors)
	}
}

func TestProcessSingleRetrySucceeds(t *testing.T) {
	catalog := &stubCatalog{summaries: []dbregistry.Summary{{ID: "sales"}}}
	provider := &stubProvider{responses: []llm.Response{
		{Reasoning: "first try", SQL: "SELECT nam FROM users"},
		{Reasoning: "fixed the column name", SQL: "SELECT name FROM users"},
	}}
	retriever := &stubRetriever{tables: []schema.Table{usersTable()}}
	executor := &stubExecutor{failFirst: 1}
	p := newTestProcessor(catalog, provider, retriever, executor)

	resp := p.Process(context.Background(), Request{Query: "names", Execute: true, DatabaseID: "sales"})

	if !resp.Success {
		t.Fatalf("expected success after retry, got %q", resp.Error)
	}
	if resp.Error != "" {
		t.Errorf("top-level error should be cleared, got %q", resp.Error)
	}
	if resp.Trace.Attempts != 2 {
		t.Errorf("attempts = %d", resp.Trace.Attempts)
	}
	if len(resp.Trace.Errors) != 1 {
		t.Errorf("expected exactly one recorded error, got %v", resp.Trace.Errors)
	}
	if resp.SQL != "SELECT name FROM users" {
		t.Errorf("sql = %q", resp.SQL)
	}
	if !strings.Contains(resp.Trace.Reasoning, "Retry attempt 2:") {
		t.Errorf("reasoning missing retry tag: %q", resp.Trace.Reasoning)
	}
	if provider.requests[1].PriorSQL != "SELECT nam FROM users" {
		t.Errorf("corrective request missing prior sql: %+v", provider.requests[1])
	}
	if provider.requests[1].PriorError == "" {
		t.Error("corrective request missing prior error")
	}
}

func TestProcessExhaustedRetry(t *testing.T) {
	catalog := &stubCatalog{summaries: []dbregistry.Summary{{ID: "sales"}}}
	provider := &stubProvider{responses: []llm.Response{
		{Reasoning: "a", SQL: "SELECT first FROM users"},
		{Reasoning: "b", SQL: "SELECT second FROM users"},
	}}
	retriever := &stubRetriever{tables: []schema.Table{usersTable()}}
	executor := &stubExecutor{failFirst: 100}
	p := newTestProcessor(catalog, provider, retriever, executor)

	resp := p.Process(context.Background(), Request{Query: "names", Execute: true, DatabaseID: "sales"})

	if resp.Success {
		t.Fatal("expected failure")
	}
	if resp.Error == "" {
		t.Error("expected top-level error")
	}
	if len(resp.Trace.Errors) != 2 {
		t.Errorf("expected exactly two recorded errors, got %v", resp.Trace.Errors)
	}
	if executor.calls != 2 {
		t.Errorf("executor called %d times, want 2", executor.calls)
	}
	if len(provider.requests) != 2 {
		t.Errorf("generator called %d times, want 2", len(provider.requests))
	}
	if resp.Trace.Attempts != 2 {
		t.Errorf("attempts = %d", resp.Trace.Attempts)
	}
	if resp.SQL != "SELECT first FROM users" {
		t.Errorf("sql = %q, want the first attempt's statement", resp.SQL)
	}
	if resp.Trace.GeneratedSQL != "SELECT second FROM users" {
		t.Errorf("trace sql = %q, want the corrected statement", resp.Trace.GeneratedSQL)
	}
}

func TestProcessDefaultDatabaseIsFirstListed(t *testing.T) {
	catalog := &stubCatalog{summaries: []dbregistry.Summary{{ID: "a"}, {ID: "b"}}}
	provider := &stubProvider{}
	retriever := &stubRetriever{tables: []schema.Table{usersTable()}}
	p := newTestProcessor(catalog, provider, retriever, &stubExecutor{})

	resp := p.Process(context.Background(), Request{Query: "anything"})

	if resp.DatabaseID != "a" {
		t.Errorf("database id = %q, want a", resp.DatabaseID)
	}
}

func TestProcessNoDatabases(t *testing.T) {
	catalog := &stubCatalog{}
	p := newTestProcessor(catalog, &stubProvider{}, &stubRetriever{}, &stubExecutor{})

	resp := p.Process(context.Background(), Request{Query: "anything"})

	if resp.Success {
		t.Fatal("expected failure")
	}
	if resp.Error == "" {
		t.Error("expected top-level error")
	}
}

func TestProcessNoModel(t *testing.T) {
	catalog := &stubCatalog{summaries: []dbregistry.Summary{{ID: "sales"}}}
	models := &stubModels{err: llm.ErrModelNotFound}
	p := NewProcessor(catalog, models, &stubRetriever{}, &stubExecutor{}, testLogger())

	resp := p.Process(context.Background(), Request{Query: "anything"})

	if resp.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(resp.Error, "model") {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestProcessGenerationFailureWithoutExecution(t *testing.T) {
	catalog := &stubCatalog{summaries: []dbregistry.Summary{{ID: "sales"}}}
	provider := &stubProvider{errs: []error{errors.New("backend unavailable")}}
	retriever := &stubRetriever{tables: []schema.Table{usersTable()}}
	p := newTestProcessor(catalog, provider, retriever, &stubExecutor{})

	resp := p.Process(context.Background(), Request{Query: "anything", DatabaseID: "sales"})

	if !resp.Success {
		t.Fatalf("skip-execution requests succeed even with empty sql, got %q", resp.Error)
	}
	if resp.SQL != "" {
		t.Errorf("sql = %q", resp.SQL)
	}
	if !strings.Contains(resp.Trace.Reasoning, "backend unavailable") {
		t.Errorf("reasoning should carry the failure: %q", resp.Trace.Reasoning)
	}
}

func TestProcessEmptySQLTreatedAsExecutionFailure(t *testing.T) {
	catalog := &stubCatalog{summaries: []dbregistry.Summary{{ID: "sales"}}}
	provider := &stubProvider{errs: []error{errors.New("backend down"), errors.New("backend down")}}
	retriever := &stubRetriever{tables: []schema.Table{usersTable()}}
	executor := &stubExecutor{}
	p := newTestProcessor(catalog, provider, retriever, executor)

	resp := p.Process(context.Background(), Request{Query: "anything", Execute: true, DatabaseID: "sales"})

	if resp.Success {
		t.Fatal("expected failure")
	}
	if executor.calls != 0 {
		t.Errorf("empty sql must not reach the database, calls = %d", executor.calls)
	}
	if len(resp.Trace.Errors) != 2 {
		t.Errorf("errors = %v", resp.Trace.Errors)
	}
}

func TestProcessRecoversPanic(t *testing.T) {
	catalog := &stubCatalog{summaries: []dbregistry.Summary{{ID: "sales"}}}
	p := newTestProcessor(catalog, &stubProvider{}, panickingRetriever{}, &stubExecutor{})

	resp := p.Process(context.Background(), Request{Query: "anything", DatabaseID: "sales"})

	if resp.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(resp.Error, "internal error") {
		t.Errorf("error = %q", resp.Error)
	}
}

type panickingRetriever struct{}

func (panickingRetriever) Retrieve(context.Context, string, string) ([]schema.Table, error) {
	panic("index corrupted")
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/querysmith/querysmith/internal/llm"
	"github.com/querysmith/querysmith/internal/schema"
)

// retryCeiling bounds the attempt counter. The corrective path still runs
// at most once per request; raising the ceiling alone does not add rounds.
const retryCeiling = 3

// Retriever resolves candidate tables for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query, databaseID string) ([]schema.Table, error)
}

// QueryExecutor runs SQL against a registered database.
type QueryExecutor interface {
	Execute(ctx context.Context, databaseID, sqlText string) (*ExecutionOutcome, error)
}

// Processor drives one request through resolve, retrieve, generate,
// execute, and the single corrective retry. Process never returns an
// error; every outcome is expressed in the QueryResponse.
type Processor struct {
	databases DatabaseCatalog
	models    ModelCatalog
	retriever Retriever
	executor  QueryExecutor
	logger    *slog.Logger
}

// NewProcessor wires the processing core.
func NewProcessor(databases DatabaseCatalog, models ModelCatalog, retriever Retriever, executor QueryExecutor, logger *slog.Logger) *Processor {
	return &Processor{
		databases: databases,
		models:    models,
		retriever: retriever,
		executor:  executor,
		logger:    logger,
	}
}

// Process handles one request end to end and always returns a complete
// QueryResponse. Unexpected faults are caught at this boundary and folded
// into the response as its top-level error.
func (p *Processor) Process(ctx context.Context, req Request) (resp *QueryResponse) {
	trace := Trace{Attempts: 1, Errors: []string{}}
	resp = &QueryResponse{Query: req.Query}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("query processing aborted", "panic", r)
			resp.Trace = trace
			resp.Error = fmt.Sprintf("internal error: %v", r)
			resp.Success = false
		}
	}()

	provider, modelEntry, err := p.models.Provider(req.ModelID)
	if err != nil {
		return p.failure(resp, trace, fmt.Sprintf("resolving model: %v", err))
	}
	resp.Provider = modelEntry.Provider

	databaseID := req.DatabaseID
	if databaseID == "" {
		summaries, err := p.databases.List(ctx)
		if err != nil {
			return p.failure(resp, trace, fmt.Sprintf("listing databases: %v", err))
		}
		if len(summaries) == 0 {
			return p.failure(resp, trace, "no databases are registered")
		}
		databaseID = summaries[0].ID
	}
	resp.DatabaseID = databaseID

	tables, err := p.retriever.Retrieve(ctx, req.Query, databaseID)
	if err != nil {
		return p.failure(resp, trace, fmt.Sprintf("retrieving schemas: %v", err))
	}
	trace.RetrievedSchemas = tables

	gen := p.generate(ctx, provider, llm.Request{Question: req.Query, Tables: tables})
	trace.Reasoning = gen.Reasoning
	trace.GeneratedSQL = gen.SQL
	resp.SQL = gen.SQL

	if !req.Execute {
		resp.Success = true
		resp.Trace = trace
		return resp
	}

	outcome, err := p.execute(ctx, databaseID, gen.SQL)
	if err == nil {
		resp.Result = outcome
		resp.Success = true
		resp.Trace = trace
		return resp
	}

	p.logger.Warn("query execution failed", "database_id", databaseID, "error", err)
	trace.Errors = append(trace.Errors, err.Error())
	resp.Error = err.Error()
	resp.Success = false

	if trace.Attempts < retryCeiling {
		trace.Attempts++
		fix := p.generate(ctx, provider, llm.Request{
			Question:   req.Query,
			Tables:     tables,
			PriorSQL:   gen.SQL,
			PriorError: err.Error(),
		})
		trace.Reasoning += fmt.Sprintf("\n\nRetry attempt %d:\n%s", trace.Attempts, fix.Reasoning)
		trace.GeneratedSQL = fix.SQL

		// The response keeps the first statement unless the correction
		// actually succeeds; the trace always holds the corrected one.
		outcome, err = p.execute(ctx, databaseID, fix.SQL)
		if err == nil {
			resp.SQL = fix.SQL
			resp.Result = outcome
			resp.Success = true
			resp.Error = ""
		} else {
			p.logger.Warn("corrected query failed", "database_id", databaseID, "error", err)
			trace.Errors = append(trace.Errors, err.Error())
			resp.Error = err.Error()
		}
	}

	resp.Trace = trace
	return resp
}

// generate calls the provider and degrades backend failures to an empty
// SQL response so they flow through the same path as execution failures.
func (p *Processor) generate(ctx context.Context, provider llm.Provider, req llm.Request) llm.Response {
	resp, err := provider.GenerateSQL(ctx, req)
	if err != nil {
		p.logger.Warn("sql generation failed", "provider", provider.Name(), "error", err)
		return llm.Response{Reasoning: fmt.Sprintf("generation failed: %v", err)}
	}
	return resp
}

// execute refuses empty statements locally instead of sending them to the
// database.
func (p *Processor) execute(ctx context.Context, databaseID, sqlText string) (*ExecutionOutcome, error) {
	if strings.TrimSpace(sqlText) == "" {
		return nil, errors.New("no executable SQL was generated")
	}
	return p.executor.Execute(ctx, databaseID, sqlText)
}

func (p *Processor) failure(resp *QueryResponse, trace Trace, msg string) *QueryResponse {
	resp.Trace = trace
	resp.Error = msg
	resp.Success = false
	return resp
}

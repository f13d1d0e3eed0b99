package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/querysmith/querysmith/internal/pipeline"
)

// NewMCPServer exposes the query pipeline and database catalog as MCP
// tools so agent hosts can query registered databases directly.
func NewMCPServer(deps Deps) *server.MCPServer {
	s := server.NewMCPServer(
		"querysmith",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions("querysmith turns natural-language questions into SQL against registered databases and optionally executes them."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("query",
			mcp.WithDescription("Answer a natural-language question by generating (and optionally executing) SQL against a registered database."),
			mcp.WithString("query", mcp.Description("The natural-language question"), mcp.Required()),
			mcp.WithBoolean("execute", mcp.Description("Execute the generated SQL and return rows (default false)")),
			mcp.WithString("database_id", mcp.Description("Target database id; defaults to the first registered database")),
			mcp.WithString("model_id", mcp.Description("Model id or provider name; defaults to the first registered model")),
		),
		mcpQuery(deps),
	)

	s.AddTool(
		mcp.NewTool("list_databases",
			mcp.WithDescription("List registered databases with their engine type and connection status."),
		),
		mcpListDatabases(deps),
	)

	s.AddTool(
		mcp.NewTool("list_tables",
			mcp.WithDescription("List table schemas for one registered database."),
			mcp.WithString("database_id", mcp.Description("Database id"), mcp.Required()),
		),
		mcpListTables(deps),
	)

	return s
}

func mcpQuery(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}

		resp := deps.Processor.Process(ctx, pipeline.Request{
			Query:      query,
			Execute:    req.GetBool("execute", false),
			DatabaseID: req.GetString("database_id", ""),
			ModelID:    req.GetString("model_id", ""),
		})

		b, err := json.Marshal(resp)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal response: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpListDatabases(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		summaries, err := deps.Databases.List(ctx)
		if err != nil {
			return mcpError(fmt.Sprintf("listing databases failed: %v", err)), nil
		}
		b, err := json.Marshal(summaries)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal databases: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpListTables(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("database_id")
		if err != nil {
			return mcpError("database_id is required"), nil
		}
		tables, err := deps.Databases.Tables(ctx, id)
		if err != nil {
			return mcpError(fmt.Sprintf("listing tables failed: %v", err)), nil
		}
		b, err := json.Marshal(tables)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal tables: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}

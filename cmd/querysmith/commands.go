package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/querysmith/querysmith/internal/dbregistry"
	"github.com/querysmith/querysmith/internal/llm"
	"github.com/querysmith/querysmith/internal/pipeline"
)

// --- query ---

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Ask a natural-language question against a registered database",
	Long: `Ask a natural-language question against a registered database.

Examples:
  querysmith query "how many users signed up last month"
  querysmith query "top 5 products by revenue" --execute
  querysmith query "list open orders" --database sales --model claude`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		execute, _ := cmd.Flags().GetBool("execute")
		database, _ := cmd.Flags().GetString("database")
		model, _ := cmd.Flags().GetString("model")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/api/queries", pipeline.Request{
			Query:      args[0],
			Execute:    execute,
			DatabaseID: database,
			ModelID:    model,
		})
		if err != nil {
			return err
		}

		var result pipeline.QueryResponse
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printLabel("Database", "%s", result.DatabaseID)
		printLabel("Provider", "%s", result.Provider)
		if result.Trace.Reasoning != "" {
			printLabel("Reasoning", "%s", result.Trace.Reasoning)
		}
		printLabel("SQL", "%s", result.SQL)

		if result.Result != nil {
			fmt.Fprintln(os.Stdout)
			printRows(result.Result)
		}

		if !result.Success {
			printError("query failed: %s", result.Error)
			return fmt.Errorf("query failed")
		}
		return nil
	},
}

func printRows(outcome *pipeline.ExecutionOutcome) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if len(outcome.Columns) > 0 {
		fmt.Fprintln(w, strings.Join(outcome.Columns, "\t"))
	}
	for _, row := range outcome.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = fmt.Sprint(v)
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	w.Flush()
	fmt.Fprintf(os.Stdout, "(%d rows)\n", outcome.RowCount)
}

// --- db ---

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage registered databases",
}

var dbListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered databases",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/api/databases")
		if err != nil {
			return err
		}

		var result struct {
			Databases []dbregistry.Summary `json:"databases"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if len(result.Databases) == 0 {
			fmt.Fprintln(os.Stdout, "no databases registered")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tTYPE\tCONNECTED")
		for _, d := range result.Databases {
			fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", d.ID, d.Name, d.Type, d.Connected)
		}
		return w.Flush()
	},
}

var dbAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a database",
	Long: `Register a database.

Examples:
  querysmith db add --name sales --type postgres --dsn postgres://localhost/sales
  querysmith db add --name app --type sqlite --dsn /var/data/app.db`,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		dbType, _ := cmd.Flags().GetString("type")
		dsn, _ := cmd.Flags().GetString("dsn")
		description, _ := cmd.Flags().GetString("description")

		if name == "" || dsn == "" {
			return fmt.Errorf("--name and --dsn are required")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/api/databases", map[string]string{
			"name":        name,
			"type":        dbType,
			"dsn":         dsn,
			"description": description,
		})
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Registered database %s (%s)", name, result["id"])
		return nil
	},
}

var dbRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a registered database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/api/databases/"+args[0])
		if err != nil {
			return err
		}
		if err := decodeJSON(resp, nil); err != nil {
			return err
		}

		printSuccess("Removed database %s", args[0])
		return nil
	},
}

var dbTablesCmd = &cobra.Command{
	Use:   "tables <id>",
	Short: "Show table schemas for a registered database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/api/databases/"+args[0]+"/tables")
		if err != nil {
			return err
		}

		var result struct {
			Tables []struct {
				Name    string `json:"name"`
				Columns []struct {
					Name     string `json:"name"`
					DataType string `json:"data_type"`
				} `json:"columns"`
			} `json:"tables"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		for _, t := range result.Tables {
			fmt.Fprintln(os.Stdout, colorize(colorBold, t.Name))
			for _, c := range t.Columns {
				fmt.Fprintf(os.Stdout, "  %s %s\n", c.Name, c.DataType)
			}
		}
		return nil
	},
}

// --- models ---

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Manage registered language models",
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered models",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/api/models")
		if err != nil {
			return err
		}

		var result struct {
			Models []llm.Entry `json:"models"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tPROVIDER\tMODEL")
		for _, m := range result.Models {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", m.ID, m.Name, m.Provider, m.Model)
		}
		return w.Flush()
	},
}

var modelsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a model",
	Long: `Register a model.

Examples:
  querysmith models add --id claude --provider anthropic --model claude-sonnet-4-20250514
  querysmith models add --id offline --provider local`,
	RunE: func(cmd *cobra.Command, args []string) error {
		id, _ := cmd.Flags().GetString("id")
		name, _ := cmd.Flags().GetString("name")
		provider, _ := cmd.Flags().GetString("provider")
		model, _ := cmd.Flags().GetString("model")
		apiKey, _ := cmd.Flags().GetString("api-key")

		if id == "" || provider == "" {
			return fmt.Errorf("--id and --provider are required")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/api/models", llm.Entry{
			ID:       id,
			Name:     name,
			Provider: provider,
			Model:    model,
			APIKey:   apiKey,
		})
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Registered model %s", result["id"])
		return nil
	},
}

var modelsRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a registered model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/api/models/"+args[0])
		if err != nil {
			return err
		}
		if err := decodeJSON(resp, nil); err != nil {
			return err
		}

		printSuccess("Removed model %s", args[0])
		return nil
	},
}

var modelsProvidersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List supported providers",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/api/models/providers")
		if err != nil {
			return err
		}

		var result struct {
			Providers []string `json:"providers"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		for _, p := range result.Providers {
			fmt.Fprintln(os.Stdout, p)
		}
		return nil
	},
}

func init() {
	queryCmd.Flags().Bool("execute", false, "execute the generated SQL and print rows")
	queryCmd.Flags().String("database", "", "database id (defaults to the first registered)")
	queryCmd.Flags().String("model", "", "model id or provider name")

	dbAddCmd.Flags().String("name", "", "display name")
	dbAddCmd.Flags().String("type", "postgres", "engine type (postgres, mysql, sqlite)")
	dbAddCmd.Flags().String("dsn", "", "connection string")
	dbAddCmd.Flags().String("description", "", "optional description")

	dbCmd.AddCommand(dbListCmd)
	dbCmd.AddCommand(dbAddCmd)
	dbCmd.AddCommand(dbRemoveCmd)
	dbCmd.AddCommand(dbTablesCmd)

	modelsAddCmd.Flags().String("id", "", "model id")
	modelsAddCmd.Flags().String("name", "", "display name")
	modelsAddCmd.Flags().String("provider", "", "provider (openai, anthropic, local)")
	modelsAddCmd.Flags().String("model", "", "provider model name")
	modelsAddCmd.Flags().String("api-key", "", "api key stored server-side")

	modelsCmd.AddCommand(modelsListCmd)
	modelsCmd.AddCommand(modelsAddCmd)
	modelsCmd.AddCommand(modelsRemoveCmd)
	modelsCmd.AddCommand(modelsProvidersCmd)
}

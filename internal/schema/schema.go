// Package schema holds the database schema model shared by introspection,
// retrieval, and SQL generation. Instances are immutable snapshots: adapters
// build them during introspection and nothing mutates them afterwards.
package schema

// Column describes a single column in a table.
type Column struct {
	Name         string `json:"name"`
	DataType     string `json:"data_type"`
	Description  string `json:"description,omitempty"`
	IsPrimaryKey bool   `json:"is_primary_key"`
	IsForeignKey bool   `json:"is_foreign_key"`
	References   string `json:"references,omitempty"` // "table.column"
}

// Table describes a table and its columns in introspection order.
type Table struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Columns     []Column `json:"columns"`
}

// Database is a full on-demand snapshot of a registered database:
// identity plus every table the adapter reported.
type Database struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Description string  `json:"description,omitempty"`
	Tables      []Table `json:"tables"`
}

package api

import (
	"context"
	"database/sql"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// DBHandler serves read-only SQL over the DuckDB households mirror.
type DBHandler struct {
	db *sql.DB
}

// NewDBHandler creates a new database handler. db may be nil.
func NewDBHandler(db *sql.DB) *DBHandler {
	return &DBHandler{db: db}
}

// RegisterRoutes registers database routes with Huma.
func (h *DBHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/tables", h.ListTables, huma.OperationTags("db"))
	huma.Post(api, "/api/v1/query", h.Query, huma.OperationTags("db"))
	huma.Get(api, "/api/v1/summary", h.Summary, huma.OperationTags("db"))
}

// TablesOutput is the response for listing tables.
type TablesOutput struct {
	Body struct {
		Tables []string `json:"tables" doc:"List of table names"`
	}
}

// ListTables returns all DuckDB tables.
func (h *DBHandler) ListTables(ctx context.Context, input *struct{}) (*TablesOutput, error) {
	if h.db == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}

	rows, err := h.db.QueryContext(ctx, "SHOW TABLES")
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list tables", err)
	}
	defer rows.Close()

	out := &TablesOutput{}
	out.Body.Tables = []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err == nil {
			out.Body.Tables = append(out.Body.Tables, name)
		}
	}
	return out, nil
}

// QueryInput is the input for SQL queries.
type QueryInput struct {
	Body struct {
		Query string `json:"query" required:"true" minLength:"1" doc:"Read-only SQL query" example:"SELECT tier, count(*) FROM households GROUP BY tier"`
	}
}

// QueryOutput is the response for SQL queries.
type QueryOutput struct {
	Body QueryResult
}

// QueryResult holds the rows of a query.
type QueryResult struct {
	Columns []string         `json:"columns" doc:"Column names"`
	Rows    []map[string]any `json:"rows" doc:"Query results"`
	Count   int              `json:"count" doc:"Number of rows returned"`
}

// readOnlyPrefixes are the statement kinds /api/v1/query accepts.
var readOnlyPrefixes = []string{"select", "with", "show", "describe", "summarize"}

// Query executes a read-only SQL query against DuckDB.
func (h *DBHandler) Query(ctx context.Context, input *QueryInput) (*QueryOutput, error) {
	if h.db == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}
	if !isReadOnly(input.Body.Query) {
		return nil, huma.Error400BadRequest("Only read-only statements are allowed")
	}

	result, err := h.run(ctx, input.Body.Query)
	if err != nil {
		return nil, huma.Error400BadRequest("Query failed: " + err.Error())
	}
	return &QueryOutput{Body: result}, nil
}

// TierSummary counts mirrored households per ventilation tier.
type TierSummary struct {
	Tier  string `json:"tier" doc:"Ventilation tier" example:"kurang"`
	Count int    `json:"count" doc:"Households in the tier" example:"12"`
}

// Summary returns per-tier counts from the households mirror.
func (h *DBHandler) Summary(ctx context.Context, input *struct{}) (*struct{ Body []TierSummary }, error) {
	if h.db == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}

	rows, err := h.db.QueryContext(ctx, "SELECT tier, count(*) FROM households GROUP BY tier ORDER BY tier")
	if err != nil {
		return nil, huma.Error503ServiceUnavailable("Households not mirrored yet", err)
	}
	defer rows.Close()

	summary := []TierSummary{}
	for rows.Next() {
		var s TierSummary
		if err := rows.Scan(&s.Tier, &s.Count); err != nil {
			return nil, huma.Error500InternalServerError("Failed to read summary", err)
		}
		summary = append(summary, s)
	}
	return &struct{ Body []TierSummary }{Body: summary}, nil
}

func (h *DBHandler) run(ctx context.Context, query string) (QueryResult, error) {
	rows, err := h.db.QueryContext(ctx, query)
	if err != nil {
		return QueryResult{}, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return QueryResult{}, err
	}

	results := []map[string]any{}
	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			continue
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		results = append(results, row)
	}
	return QueryResult{Columns: columns, Rows: results, Count: len(results)}, rows.Err()
}

func isReadOnly(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if strings.Contains(strings.TrimSuffix(q, ";"), ";") {
		return false
	}
	for _, p := range readOnlyPrefixes {
		if strings.HasPrefix(q, p) {
			return true
		}
	}
	return false
}

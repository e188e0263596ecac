// Package sqlstore implements the embedded-SQL storage backend on top of
// modernc.org/sqlite, a pure-Go SQL driver (no cgo). load_by_temperature
// pushes its filter into a WHERE clause over use_frequency bounds rather
// than the stored temperature column, so a threshold configuration change
// never requires a data migration.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/maric-labs/registrytools/internal/model"
	"github.com/maric-labs/registrytools/internal/registryerr"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS tools (
	name TEXT PRIMARY KEY,
	description TEXT NOT NULL,
	mcp_server TEXT,
	defer_loading INTEGER NOT NULL DEFAULT 1,
	tags TEXT,
	category TEXT,
	use_frequency INTEGER NOT NULL DEFAULT 0,
	last_used TEXT,
	temperature TEXT NOT NULL DEFAULT 'cold',
	input_schema TEXT,
	output_schema TEXT
);
CREATE INDEX IF NOT EXISTS idx_tools_temperature ON tools(temperature);
CREATE INDEX IF NOT EXISTS idx_tools_use_frequency ON tools(use_frequency);
`

const timeLayout = time.RFC3339Nano

// Store is the embedded-SQL storage backend. path must end in ".db".
type Store struct {
	db         *sql.DB
	thresholds model.Thresholds
}

// New opens (creating if absent) a sqlite database at path.
func New(path string, thresholds model.Thresholds) (*Store, error) {
	if !strings.HasSuffix(path, ".db") {
		return nil, fmt.Errorf("sqlstore: path %q must end in .db: %w", path, registryerr.ErrConfiguration)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", path, joinErr(registryerr.ErrStorage, err))
	}
	db.SetMaxOpenConns(1)
	return &Store{db: db, thresholds: thresholds}, nil
}

func (s *Store) Initialize(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("sqlstore: create schema: %w", joinErr(registryerr.ErrStorage, err))
	}
	return nil
}

func (s *Store) Validate(ctx context.Context) error {
	var name string
	err := s.db.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type='table' AND name='tools'`).Scan(&name)
	if err == sql.ErrNoRows {
		return fmt.Errorf("sqlstore: tools table missing: %w", registryerr.ErrConfiguration)
	}
	if err != nil {
		return fmt.Errorf("sqlstore: validate: %w", joinErr(registryerr.ErrStorage, err))
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) LoadAll(ctx context.Context) ([]model.Tool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, description, mcp_server, defer_loading, tags, category, use_frequency, last_used, temperature, input_schema, output_schema FROM tools ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: load all: %w", joinErr(registryerr.ErrStorage, err))
	}
	defer rows.Close()
	return scanRows(rows)
}

func scanRows(rows *sql.Rows) ([]model.Tool, error) {
	var out []model.Tool
	for rows.Next() {
		t, err := scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: scan row: %w", joinErr(registryerr.ErrStorage, err))
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: iterate rows: %w", joinErr(registryerr.ErrStorage, err))
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOne(row scanner) (model.Tool, error) {
	var (
		name, description, temperature string
		mcpServer, category            sql.NullString
		tagsJSON, lastUsed             sql.NullString
		inputSchema, outputSchema      sql.NullString
		deferLoading, useFrequency     int
	)
	if err := row.Scan(&name, &description, &mcpServer, &deferLoading, &tagsJSON, &category, &useFrequency, &lastUsed, &temperature, &inputSchema, &outputSchema); err != nil {
		return model.Tool{}, err
	}

	t := model.Tool{
		Name:         name,
		Description:  description,
		MCPServer:    mcpServer.String,
		DeferLoading: deferLoading != 0,
		Category:     category.String,
		UseFrequency: useFrequency,
		Temperature:  model.Tier(temperature),
	}
	if tagsJSON.Valid && tagsJSON.String != "" {
		_ = json.Unmarshal([]byte(tagsJSON.String), &t.Tags)
	}
	if lastUsed.Valid && lastUsed.String != "" {
		if ts, err := time.Parse(timeLayout, lastUsed.String); err == nil {
			t.LastUsed = &ts
		}
	}
	if inputSchema.Valid && inputSchema.String != "" {
		t.InputSchema = json.RawMessage(inputSchema.String)
	}
	if outputSchema.Valid && outputSchema.String != "" {
		t.OutputSchema = json.RawMessage(outputSchema.String)
	}
	return t, nil
}

const upsertSQL = `
INSERT OR REPLACE INTO tools
	(name, description, mcp_server, defer_loading, tags, category, use_frequency, last_used, temperature, input_schema, output_schema)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func (s *Store) Save(ctx context.Context, tool model.Tool) error {
	args, err := toArgs(tool)
	if err != nil {
		return fmt.Errorf("sqlstore: save %s: %w", tool.Name, joinErr(registryerr.ErrInternal, err))
	}
	if _, err := s.db.ExecContext(ctx, upsertSQL, args...); err != nil {
		return fmt.Errorf("sqlstore: save %s: %w", tool.Name, joinErr(registryerr.ErrStorage, err))
	}
	return nil
}

// SaveMany wraps all upserts in a single transaction, rolling back on any
// failure.
func (s *Store) SaveMany(ctx context.Context, tools []model.Tool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlstore: begin tx: %w", joinErr(registryerr.ErrStorage, err))
	}

	stmt, err := tx.PrepareContext(ctx, upsertSQL)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("sqlstore: prepare upsert: %w", joinErr(registryerr.ErrStorage, err))
	}
	defer stmt.Close()

	for _, tool := range tools {
		args, err := toArgs(tool)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("sqlstore: save_many %s: %w", tool.Name, joinErr(registryerr.ErrInternal, err))
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("sqlstore: save_many %s: %w", tool.Name, joinErr(registryerr.ErrStorage, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlstore: commit save_many: %w", joinErr(registryerr.ErrStorage, err))
	}
	return nil
}

func toArgs(t model.Tool) ([]any, error) {
	tagsJSON, err := json.Marshal(t.SortedTags())
	if err != nil {
		return nil, err
	}
	var lastUsed any
	if t.LastUsed != nil {
		lastUsed = t.LastUsed.UTC().Format(timeLayout)
	}
	var inputSchema, outputSchema any
	if len(t.InputSchema) > 0 {
		inputSchema = string(t.InputSchema)
	}
	if len(t.OutputSchema) > 0 {
		outputSchema = string(t.OutputSchema)
	}
	return []any{
		t.Name, t.Description, nullableString(t.MCPServer), boolToInt(t.DeferLoading),
		string(tagsJSON), nullableString(t.Category), t.UseFrequency, lastUsed,
		string(t.Temperature), inputSchema, outputSchema,
	}, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (s *Store) Delete(ctx context.Context, name string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tools WHERE name = ?`, name)
	if err != nil {
		return false, fmt.Errorf("sqlstore: delete %s: %w", name, joinErr(registryerr.ErrStorage, err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlstore: delete %s rows affected: %w", name, joinErr(registryerr.ErrStorage, err))
	}
	return n > 0, nil
}

func (s *Store) Exists(ctx context.Context, name string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM tools WHERE name = ?`, name).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("sqlstore: exists %s: %w", name, joinErr(registryerr.ErrStorage, err))
	}
	return count > 0, nil
}

// LoadByTemperature pushes the filter down as a WHERE clause on
// use_frequency bounds matching the configured thresholds, per spec
// §4.4.2.
func (s *Store) LoadByTemperature(ctx context.Context, tier model.Tier, limit int) ([]model.Tool, error) {
	var where string
	var args []any
	switch tier {
	case model.TierHot:
		where = "use_frequency >= ?"
		args = []any{s.thresholds.HotUseFrequency}
	case model.TierWarm:
		where = "use_frequency >= ? AND use_frequency < ?"
		args = []any{s.thresholds.WarmUseFrequency, s.thresholds.HotUseFrequency}
	default:
		where = "use_frequency < ?"
		args = []any{s.thresholds.WarmUseFrequency}
	}

	query := fmt.Sprintf(`SELECT name, description, mcp_server, defer_loading, tags, category, use_frequency, last_used, temperature, input_schema, output_schema FROM tools WHERE %s ORDER BY name`, where)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: load_by_temperature %s: %w", tier, joinErr(registryerr.ErrStorage, err))
	}
	defer rows.Close()
	return scanRows(rows)
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM tools`).Scan(&count); err != nil {
		return 0, fmt.Errorf("sqlstore: count: %w", joinErr(registryerr.ErrStorage, err))
	}
	return count, nil
}

func (s *Store) IsEmpty(ctx context.Context) (bool, error) {
	n, err := s.Count(ctx)
	return n == 0, err
}

func (s *Store) Get(ctx context.Context, name string) (model.Tool, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT name, description, mcp_server, defer_loading, tags, category, use_frequency, last_used, temperature, input_schema, output_schema FROM tools WHERE name = ?`, name)
	t, err := scanOne(row)
	if err == sql.ErrNoRows {
		return model.Tool{}, false, nil
	}
	if err != nil {
		return model.Tool{}, false, fmt.Errorf("sqlstore: get %s: %w", name, joinErr(registryerr.ErrStorage, err))
	}
	return t, true, nil
}

func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tools`); err != nil {
		return fmt.Errorf("sqlstore: clear: %w", joinErr(registryerr.ErrStorage, err))
	}
	return nil
}

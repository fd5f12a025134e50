// Package database provides dialect-abstracted persistence for the
// session/world-interaction engine, backed by either SQLite
// (modernc.org/sqlite, pure Go, used for tests and small deployments) or
// PostgreSQL (lib/pq), selected through the Dialect abstraction.
package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Database wraps the SQL connection and provides schema migration.
type Database struct {
	db      *sql.DB
	dialect Dialect
}

// Open opens or creates the SQLite database at the given path.
func Open(path string) (*Database, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	dialect := NewDialect(DialectSQLite)
	for _, stmt := range dialect.InitStatements() {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run init statement %q: %w", stmt, err)
		}
	}

	d := &Database{db: db, dialect: dialect}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return d, nil
}

// OpenPostgres opens a PostgreSQL database at the given DSN.
func OpenPostgres(dsn string) (*Database, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	dialect := NewDialect(DialectPostgres)
	for _, stmt := range dialect.InitStatements() {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run init statement %q: %w", stmt, err)
		}
	}

	d := &Database{db: db, dialect: dialect}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return d, nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

func (d *Database) DB() *sql.DB {
	return d.db
}

func (d *Database) Dialect() Dialect {
	return d.dialect
}

// migrate creates the engine's schema if it doesn't exist. Tables mirror
// the repository contract (§6.1): players, NPC placements, greetings,
// item awards, inventory/room/warehouse stacks, currency, merchant stock,
// paths, and terminal history.
func (d *Database) migrate() error {
	ci := d.dialect.CaseInsensitiveCollation()
	nameType, historyID := "TEXT", "INTEGER PRIMARY KEY AUTOINCREMENT"
	if d.dialect.DriverName() == "postgres" {
		nameType, historyID = "CITEXT", "SERIAL PRIMARY KEY"
	}

	migrations := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS players (
			id TEXT PRIMARY KEY,
			name %s UNIQUE NOT NULL %s,
			token_hash TEXT NOT NULL,
			resonance INTEGER NOT NULL DEFAULT 10,
			fortitude INTEGER NOT NULL DEFAULT 10,
			capacity_weight REAL NOT NULL DEFAULT 100.0,
			current_map_id TEXT NOT NULL DEFAULT '',
			current_room_id TEXT NOT NULL DEFAULT '',
			always_first_time INTEGER NOT NULL DEFAULT 1
		)`, nameType, ci),

		`CREATE TABLE IF NOT EXISTS npc_placements (
			room_id TEXT NOT NULL,
			npc_id TEXT NOT NULL,
			slot INTEGER NOT NULL DEFAULT 0,
			definition_id TEXT NOT NULL,
			state_json TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (room_id, npc_id)
		)`,

		`CREATE TABLE IF NOT EXISTS greetings (
			player_id TEXT NOT NULL,
			npc_id TEXT NOT NULL,
			PRIMARY KEY (player_id, npc_id)
		)`,

		`CREATE TABLE IF NOT EXISTS item_awards (
			player_id TEXT NOT NULL,
			npc_id TEXT NOT NULL,
			item_id TEXT NOT NULL,
			awarded_at TIMESTAMP NOT NULL,
			PRIMARY KEY (player_id, npc_id, item_id)
		)`,

		`CREATE TABLE IF NOT EXISTS player_items (
			player_id TEXT NOT NULL,
			item_id TEXT NOT NULL,
			quantity INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (player_id, item_id)
		)`,

		`CREATE TABLE IF NOT EXISTS room_items (
			room_id TEXT NOT NULL,
			item_id TEXT NOT NULL,
			quantity INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (room_id, item_id)
		)`,

		`CREATE TABLE IF NOT EXISTS player_currency (
			player_id TEXT NOT NULL,
			item_id TEXT NOT NULL,
			quantity INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (player_id, item_id)
		)`,

		`CREATE TABLE IF NOT EXISTS player_bank (
			player_id TEXT NOT NULL,
			item_id TEXT NOT NULL,
			quantity INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (player_id, item_id)
		)`,

		`CREATE TABLE IF NOT EXISTS warehouse_items (
			player_id TEXT NOT NULL,
			warehouse_key TEXT NOT NULL,
			item_id TEXT NOT NULL,
			quantity INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (player_id, warehouse_key, item_id)
		)`,

		`CREATE TABLE IF NOT EXISTS warehouse_deeds (
			player_id TEXT NOT NULL,
			warehouse_key TEXT NOT NULL,
			PRIMARY KEY (player_id, warehouse_key)
		)`,

		`CREATE TABLE IF NOT EXISTS merchant_stock (
			room_id TEXT NOT NULL,
			item_id TEXT NOT NULL,
			price INTEGER NOT NULL DEFAULT 0,
			stock INTEGER NOT NULL DEFAULT -1,
			buyable INTEGER NOT NULL DEFAULT 1,
			sellable INTEGER NOT NULL DEFAULT 1,
			PRIMARY KEY (room_id, item_id)
		)`,

		`CREATE TABLE IF NOT EXISTS paths (
			id TEXT PRIMARY KEY,
			player_id TEXT NOT NULL,
			name TEXT NOT NULL,
			kind TEXT NOT NULL,
			map_id TEXT NOT NULL,
			origin_room_id TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS path_steps (
			path_id TEXT NOT NULL,
			step_index INTEGER NOT NULL,
			room_id TEXT NOT NULL,
			direction TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (path_id, step_index)
		)`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS terminal_history (
			id %s,
			player_id TEXT NOT NULL,
			line TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`, historyID),

		`CREATE INDEX IF NOT EXISTS idx_terminal_history_player ON terminal_history(player_id)`,
		`CREATE INDEX IF NOT EXISTS idx_path_steps_path ON path_steps(path_id)`,
		`CREATE INDEX IF NOT EXISTS idx_paths_player ON paths(player_id)`,
	}

	for _, m := range migrations {
		if _, err := d.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}

	// Idempotent column additions for fields introduced after the initial
	// release, ignoring "duplicate column" errors on existing databases.
	safeMigrations := []string{
		`ALTER TABLE players ADD COLUMN window_id TEXT NOT NULL DEFAULT ''`,
	}
	for _, m := range safeMigrations {
		_, _ = d.db.Exec(m)
	}

	return nil
}

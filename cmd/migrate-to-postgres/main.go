// migrate-to-postgres copies every row out of a SQLite deployment into a
// PostgreSQL one, table by table, preserving primary keys. Schema creation
// on the PostgreSQL side is delegated to internal/database.OpenPostgres so
// the migration never drifts from the engine's own migrations.
//
// Usage:
//
//	go run ./cmd/migrate-to-postgres \
//	    -sqlite data/gridkeep.db \
//	    -pg-dsn "host=localhost port=5432 user=gridkeep password=gridkeep dbname=gridkeep sslmode=disable"
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/lawnchairsociety/gridkeep/server/internal/database"
)

// tables lists every table migrate() creates, in dependency order (a
// table never references one that appears after it).
var tables = []string{
	"players",
	"npc_placements",
	"greetings",
	"item_awards",
	"player_items",
	"room_items",
	"player_currency",
	"player_bank",
	"warehouse_items",
	"warehouse_deeds",
	"merchant_stock",
	"paths",
	"path_steps",
	"terminal_history",
}

func main() {
	sqlitePath := flag.String("sqlite", "data/gridkeep.db", "Path to the SQLite database file")
	pgDSN := flag.String("pg-dsn", "", "PostgreSQL connection string (required)")
	dryRun := flag.Bool("dry-run", false, "Count rows without writing to PostgreSQL")
	flag.Parse()

	if *pgDSN == "" {
		log.Fatal("-pg-dsn is required")
	}

	log.Println("gridkeep SQLite to PostgreSQL migration")

	src, err := database.Open(*sqlitePath)
	if err != nil {
		log.Fatalf("failed to open SQLite database: %v", err)
	}
	defer src.Close()

	var dst *database.Database
	if !*dryRun {
		dst, err = database.OpenPostgres(*pgDSN)
		if err != nil {
			log.Fatalf("failed to open PostgreSQL database: %v", err)
		}
		defer dst.Close()
	}

	var total int64
	for _, table := range tables {
		count, err := copyTable(src.DB(), dstDB(dst), table, *dryRun)
		if err != nil {
			log.Fatalf("failed to migrate table %s: %v", table, err)
		}
		log.Printf("  %s: %d rows", table, count)
		total += count
	}

	log.Printf("migration complete, %d rows total", total)
	if *dryRun {
		log.Println("(dry run, nothing was written)")
	}
}

func dstDB(d *database.Database) *sql.DB {
	if d == nil {
		return nil
	}
	return d.DB()
}

// copyTable streams every row of table from src to dst using the
// destination's own placeholder numbering, generic over column shape so
// a schema change here never needs a matching hand-written copier.
func copyTable(src, dst *sql.DB, table string, dryRun bool) (int64, error) {
	rows, err := src.Query(fmt.Sprintf("SELECT * FROM %s", table))
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return 0, err
	}

	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	insertSQL := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT DO NOTHING",
		table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))

	var count int64
	for rows.Next() {
		values := make([]any, len(cols))
		scanTargets := make([]any, len(cols))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return count, err
		}

		if dryRun {
			count++
			continue
		}

		if _, err := dst.Exec(insertSQL, values...); err != nil {
			return count, fmt.Errorf("insert into %s: %w", table, err)
		}
		count++
	}
	return count, rows.Err()
}

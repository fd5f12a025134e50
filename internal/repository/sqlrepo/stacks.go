package sqlrepo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lawnchairsociety/gridkeep/server/internal/database"
	"github.com/lawnchairsociety/gridkeep/server/internal/repository"
)

// stackRows, upsertStack and decrementStack cover the repeated
// (owner_id, item_id, quantity) shape shared by player_items, room_items,
// player_currency and player_bank, rather than writing four near-identical
// copies of each operation.

func stackRows(ctx context.Context, db *database.Database, qb *database.QueryBuilder, query, owner string) ([]repository.ItemStackRow, error) {
	rows, err := db.DB().QueryContext(ctx, qb.Build(query), owner)
	if err != nil {
		return nil, fmt.Errorf("query stack rows: %w", err)
	}
	defer rows.Close()

	var out []repository.ItemStackRow
	for rows.Next() {
		var row repository.ItemStackRow
		if err := rows.Scan(&row.ItemID, &row.Quantity); err != nil {
			return nil, fmt.Errorf("scan stack row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func upsertStack(ctx context.Context, db *database.Database, qb *database.QueryBuilder, table, ownerCol, owner, itemID string, qty int) error {
	query := fmt.Sprintf(`INSERT INTO %s (%s, item_id, quantity) VALUES (?, ?, ?)
		ON CONFLICT (%s, item_id) DO UPDATE SET quantity = quantity + excluded.quantity`, table, ownerCol, ownerCol)
	_, err := db.DB().ExecContext(ctx, qb.Build(query), owner, itemID, qty)
	if err != nil {
		return fmt.Errorf("upsert stack in %s: %w", table, err)
	}
	return nil
}

// decrementStack removes up to qty units, clipping to the amount actually
// present, and returns how many were actually removed.
func decrementStack(ctx context.Context, db *database.Database, qb *database.QueryBuilder, table, ownerCol, owner, itemID string, qty int) (int, error) {
	var current int
	readQuery := fmt.Sprintf(`SELECT quantity FROM %s WHERE %s = ? AND item_id = ?`, table, ownerCol)
	err := db.DB().QueryRowContext(ctx, qb.Build(readQuery), owner, itemID).Scan(&current)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read stack from %s: %w", table, err)
	}

	taken := qty
	if taken > current {
		taken = current
	}

	updateQuery := fmt.Sprintf(`UPDATE %s SET quantity = quantity - ? WHERE %s = ? AND item_id = ?`, table, ownerCol)
	if _, err := db.DB().ExecContext(ctx, qb.Build(updateQuery), taken, owner, itemID); err != nil {
		return 0, fmt.Errorf("decrement stack in %s: %w", table, err)
	}
	return taken, nil
}

package storage

import (
	"context"
	"database/sql"
	"fmt"
)

type Item struct {
	ID  string
	Qty int
}

// Loot is what opening a container yields.
type Loot struct {
	Item  string
	Qty   int
	Coins int64
}

func (db *DB) Inventory(ctx context.Context, userID string) ([]Item, error) {
	rows, err := db.sql.QueryContext(ctx, `
		SELECT item_id, qty FROM inventory WHERE user_id = ? AND qty > 0 ORDER BY item_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.Qty); err != nil {
			return nil, fmt.Errorf("scan inventory: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// GrantItem adds qty of an item, creating the player if needed.
func (db *DB) GrantItem(ctx context.Context, userID, itemID string, qty int) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := db.playerTx(ctx, tx, userID); err != nil {
			return err
		}
		return addItemTx(ctx, tx, userID, itemID, qty)
	})
}

// OpenContainer consumes one container and applies the rolled loot atomically.
func (db *DB) OpenContainer(ctx context.Context, userID, containerID string, loot Loot) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := db.playerTx(ctx, tx, userID); err != nil {
			return err
		}
		if err := takeItemTx(ctx, tx, userID, containerID); err != nil {
			return err
		}
		if loot.Item != "" && loot.Qty > 0 {
			if err := addItemTx(ctx, tx, userID, loot.Item, loot.Qty); err != nil {
				return err
			}
		}
		if loot.Coins != 0 {
			return adjustBalanceTx(ctx, tx, userID, loot.Coins, db.now())
		}
		return nil
	})
}

func addItemTx(ctx context.Context, tx *sql.Tx, userID, itemID string, qty int) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO inventory (user_id, item_id, qty) VALUES (?, ?, ?)
		ON CONFLICT(user_id, item_id) DO UPDATE SET qty = qty + excluded.qty`, userID, itemID, qty)
	if err != nil {
		return fmt.Errorf("add item %s: %w", itemID, err)
	}
	return nil
}

func takeItemTx(ctx context.Context, tx *sql.Tx, userID, itemID string) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE inventory SET qty = qty - 1 WHERE user_id = ? AND item_id = ? AND qty > 0`, userID, itemID)
	if err != nil {
		return fmt.Errorf("take item %s: %w", itemID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNoItem
	}
	return nil
}

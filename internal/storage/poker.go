package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type Seat struct {
	TableID  string
	UserID   string
	Stack    int64
	SeatedAt time.Time
}

// Seats lists who sits at a table, in seating order.
func (db *DB) Seats(ctx context.Context, tableID string) ([]Seat, error) {
	rows, err := db.sql.QueryContext(ctx, `
		SELECT table_id, user_id, stack, seated_at FROM poker_seats
		WHERE table_id = ? ORDER BY seated_at, user_id`, tableID)
	if err != nil {
		return nil, fmt.Errorf("query seats: %w", err)
	}
	defer rows.Close()

	var out []Seat
	for rows.Next() {
		var s Seat
		var seated int64
		if err := rows.Scan(&s.TableID, &s.UserID, &s.Stack, &seated); err != nil {
			return nil, fmt.Errorf("scan seat: %w", err)
		}
		s.SeatedAt = time.Unix(seated, 0)
		out = append(out, s)
	}
	return out, rows.Err()
}

// SeatCounts returns the number of occupied seats per table.
func (db *DB) SeatCounts(ctx context.Context) (map[string]int, error) {
	rows, err := db.sql.QueryContext(ctx, `SELECT table_id, COUNT(*) FROM poker_seats GROUP BY table_id`)
	if err != nil {
		return nil, fmt.Errorf("count seats: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scan seat count: %w", err)
		}
		out[id] = n
	}
	return out, rows.Err()
}

// Sit moves buyIn from the player's balance onto a table stack.
func (db *DB) Sit(ctx context.Context, tableID, userID string, buyIn int64, maxSeats int) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := db.playerTx(ctx, tx, userID); err != nil {
			return err
		}
		var taken, mine int
		err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*), COALESCE(SUM(user_id = ?), 0) FROM poker_seats WHERE table_id = ?`,
			userID, tableID).Scan(&taken, &mine)
		if err != nil {
			return fmt.Errorf("check table: %w", err)
		}
		if mine > 0 {
			return ErrAlreadySeated
		}
		if taken >= maxSeats {
			return ErrTableFull
		}
		now := db.now()
		if err := adjustBalanceTx(ctx, tx, userID, -buyIn, now); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO poker_seats (table_id, user_id, stack, seated_at) VALUES (?, ?, ?, ?)`,
			tableID, userID, buyIn, now.Unix())
		if err != nil {
			return fmt.Errorf("sit: %w", err)
		}
		return nil
	})
}

// Stand returns the player's stack to their balance and frees the seat.
func (db *DB) Stand(ctx context.Context, tableID, userID string) (int64, error) {
	var stack int64
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			SELECT stack FROM poker_seats WHERE table_id = ? AND user_id = ?`, tableID, userID).Scan(&stack)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotSeated
		}
		if err != nil {
			return fmt.Errorf("load seat: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM poker_seats WHERE table_id = ? AND user_id = ?`, tableID, userID); err != nil {
			return fmt.Errorf("stand: %w", err)
		}
		return adjustBalanceTx(ctx, tx, userID, stack, db.now())
	})
	return stack, err
}

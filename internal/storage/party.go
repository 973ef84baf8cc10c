package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Party roles: the roster travels with the player, the army garrisons.
const (
	RoleRoster = "roster"
	RoleArmy   = "army"
)

type Member struct {
	ID        int64
	Name      string
	Role      string
	Power     int
	CreatedAt time.Time
}

// Members lists the user's party members with the given role.
func (db *DB) Members(ctx context.Context, userID, role string) ([]Member, error) {
	rows, err := db.sql.QueryContext(ctx, `
		SELECT id, name, role, power, created_at FROM party_members
		WHERE user_id = ? AND role = ? ORDER BY id`, userID, role)
	if err != nil {
		return nil, fmt.Errorf("query party: %w", err)
	}
	defer rows.Close()

	var out []Member
	for rows.Next() {
		var m Member
		var created int64
		if err := rows.Scan(&m.ID, &m.Name, &m.Role, &m.Power, &created); err != nil {
			return nil, fmt.Errorf("scan party: %w", err)
		}
		m.CreatedAt = time.Unix(created, 0)
		out = append(out, m)
	}
	return out, rows.Err()
}

// Recruit pays cost and adds a member to the party. A positive maxRoster
// caps the number of roster members; ErrPartyFull is returned at the cap.
func (db *DB) Recruit(ctx context.Context, userID, name, role string, power int, cost int64, maxRoster int) (Member, error) {
	m := Member{Name: name, Role: role, Power: power}
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := db.playerTx(ctx, tx, userID); err != nil {
			return err
		}
		if err := checkRosterTx(ctx, tx, userID, role, maxRoster); err != nil {
			return err
		}
		now := db.now()
		if err := adjustBalanceTx(ctx, tx, userID, -cost, now); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO party_members (user_id, name, role, power, created_at)
			VALUES (?, ?, ?, ?, ?)`, userID, name, role, power, now.Unix())
		if err != nil {
			return fmt.Errorf("recruit: %w", err)
		}
		m.ID, _ = res.LastInsertId()
		m.CreatedAt = time.Unix(now.Unix(), 0)
		return nil
	})
	return m, err
}

// Dismiss removes a member owned by the user.
func (db *DB) Dismiss(ctx context.Context, userID string, memberID int64) error {
	res, err := db.sql.ExecContext(ctx, `DELETE FROM party_members WHERE id = ? AND user_id = ?`, memberID, userID)
	if err != nil {
		return fmt.Errorf("dismiss: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Reassign moves a member between roster and army. Moving into a roster
// that already holds maxRoster members fails with ErrPartyFull.
func (db *DB) Reassign(ctx context.Context, userID string, memberID int64, role string, maxRoster int) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		var current string
		err := tx.QueryRowContext(ctx, `
			SELECT role FROM party_members WHERE id = ? AND user_id = ?`, memberID, userID).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("reassign: %w", err)
		}
		if current == role {
			return nil
		}
		if err := checkRosterTx(ctx, tx, userID, role, maxRoster); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE party_members SET role = ? WHERE id = ? AND user_id = ?`, role, memberID, userID); err != nil {
			return fmt.Errorf("reassign: %w", err)
		}
		return nil
	})
}

// checkRosterTx fails with ErrPartyFull when one more roster member would
// exceed maxRoster. Other roles and a non-positive cap are not limited.
func checkRosterTx(ctx context.Context, tx *sql.Tx, userID, role string, maxRoster int) error {
	if role != RoleRoster || maxRoster <= 0 {
		return nil
	}
	var n int
	err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM party_members WHERE user_id = ? AND role = ?`, userID, RoleRoster).Scan(&n)
	if err != nil {
		return fmt.Errorf("count roster: %w", err)
	}
	if n >= maxRoster {
		return ErrPartyFull
	}
	return nil
}

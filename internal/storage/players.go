package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const (
	starterBalance   int64 = 100
	starterContainer       = "wooden-crate"
)

type Player struct {
	UserID     string
	Balance    int64
	XP         int64
	HP         int
	MaxHP      int
	LastWorkAt time.Time
	CreatedAt  time.Time
}

// Level is derived from experience: every level costs 100 xp more than the last.
func (p Player) Level() int {
	level, need, xp := 1, int64(100), p.XP
	for xp >= need {
		xp -= need
		level++
		need += 100
	}
	return level
}

// Player returns the user's profile, creating it with starter goods on first use.
func (db *DB) Player(ctx context.Context, userID string) (Player, error) {
	var p Player
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		p, err = db.playerTx(ctx, tx, userID)
		return err
	})
	return p, err
}

func (db *DB) playerTx(ctx context.Context, tx *sql.Tx, userID string) (Player, error) {
	now := db.now().Unix()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO players (user_id, balance, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO NOTHING`, userID, starterBalance, now, now)
	if err != nil {
		return Player{}, fmt.Errorf("ensure player: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		if err := addItemTx(ctx, tx, userID, starterContainer, 1); err != nil {
			return Player{}, err
		}
	}

	var p Player
	var lastWork, created int64
	err = tx.QueryRowContext(ctx, `
		SELECT user_id, balance, xp, hp, max_hp, last_work_at, created_at
		FROM players WHERE user_id = ?`, userID).
		Scan(&p.UserID, &p.Balance, &p.XP, &p.HP, &p.MaxHP, &lastWork, &created)
	if err != nil {
		return Player{}, fmt.Errorf("load player: %w", err)
	}
	if lastWork > 0 {
		p.LastWorkAt = time.Unix(lastWork, 0)
	}
	p.CreatedAt = time.Unix(created, 0)
	return p, nil
}

// Work pays the player for a shift unless the cooldown since the last one is
// still running.
func (db *DB) Work(ctx context.Context, userID string, pay int64, cooldown time.Duration) (Player, error) {
	var p Player
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		if p, err = db.playerTx(ctx, tx, userID); err != nil {
			return err
		}
		now := db.now()
		if !p.LastWorkAt.IsZero() {
			if left := p.LastWorkAt.Add(cooldown).Sub(now); left > 0 {
				return &CooldownError{Remaining: left}
			}
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE players SET balance = balance + ?, xp = xp + ?, last_work_at = ?, updated_at = ?
			WHERE user_id = ?`, pay, pay/10, now.Unix(), now.Unix(), userID); err != nil {
			return fmt.Errorf("pay shift: %w", err)
		}
		p.Balance += pay
		p.XP += pay / 10
		p.LastWorkAt = time.Unix(now.Unix(), 0)
		return nil
	})
	return p, err
}

// Rest charges price and restores heal hit points, capped at max hp.
func (db *DB) Rest(ctx context.Context, userID string, price int64, heal int) (Player, error) {
	var p Player
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		if p, err = db.playerTx(ctx, tx, userID); err != nil {
			return err
		}
		if p.Balance < price {
			return ErrInsufficientFunds
		}
		p.Balance -= price
		p.HP = min(p.MaxHP, p.HP+heal)
		_, err = tx.ExecContext(ctx, `
			UPDATE players SET balance = ?, hp = ?, updated_at = ? WHERE user_id = ?`,
			p.Balance, p.HP, db.now().Unix(), userID)
		if err != nil {
			return fmt.Errorf("rest: %w", err)
		}
		return nil
	})
	return p, err
}

func adjustBalanceTx(ctx context.Context, tx *sql.Tx, userID string, delta int64, now time.Time) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE players SET balance = balance + ?, updated_at = ?
		WHERE user_id = ? AND balance + ? >= 0`, delta, now.Unix(), userID, delta)
	if err != nil {
		return fmt.Errorf("adjust balance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrInsufficientFunds
	}
	return nil
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const (
	QuestActive = "active"
	QuestDone   = "done"
)

type QuestState struct {
	QuestID    string
	Status     string
	AcceptedAt time.Time
}

// Quests returns the user's quest log keyed by quest id.
func (db *DB) Quests(ctx context.Context, userID string) (map[string]QuestState, error) {
	rows, err := db.sql.QueryContext(ctx, `
		SELECT quest_id, status, accepted_at FROM quests WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("query quests: %w", err)
	}
	defer rows.Close()

	out := make(map[string]QuestState)
	for rows.Next() {
		var q QuestState
		var accepted int64
		if err := rows.Scan(&q.QuestID, &q.Status, &accepted); err != nil {
			return nil, fmt.Errorf("scan quest: %w", err)
		}
		q.AcceptedAt = time.Unix(accepted, 0)
		out[q.QuestID] = q
	}
	return out, rows.Err()
}

func (db *DB) AcceptQuest(ctx context.Context, userID, questID string) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := db.playerTx(ctx, tx, userID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO quests (user_id, quest_id, status, accepted_at) VALUES (?, ?, ?, ?)
			ON CONFLICT(user_id, quest_id) DO NOTHING`, userID, questID, QuestActive, db.now().Unix())
		if err != nil {
			return fmt.Errorf("accept quest: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrQuestTaken
		}
		return nil
	})
}

// CompleteQuest turns in an active quest once duration has passed since it
// was accepted, paying reward coins and xp.
func (db *DB) CompleteQuest(ctx context.Context, userID, questID string, duration time.Duration, reward, xp int64) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		var accepted int64
		err := tx.QueryRowContext(ctx, `
			SELECT accepted_at FROM quests WHERE user_id = ? AND quest_id = ? AND status = ?`,
			userID, questID, QuestActive).Scan(&accepted)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load quest: %w", err)
		}
		now := db.now()
		if left := time.Unix(accepted, 0).Add(duration).Sub(now); left > 0 {
			return &CooldownError{Remaining: left}
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE quests SET status = ? WHERE user_id = ? AND quest_id = ?`, QuestDone, userID, questID); err != nil {
			return fmt.Errorf("complete quest: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE players SET balance = balance + ?, xp = xp + ?, updated_at = ? WHERE user_id = ?`,
			reward, xp, now.Unix(), userID)
		if err != nil {
			return fmt.Errorf("pay quest: %w", err)
		}
		return nil
	})
}

package storage

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) (*DB, *time.Time) {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "game.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	db.now = func() time.Time { return now }
	return db, &now
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "game.db")
	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()
	assert.NoError(t, db.Ping(context.Background()))
}

func TestPlayerStarterKit(t *testing.T) {
	db, _ := openTestDB(t)
	ctx := context.Background()

	p, err := db.Player(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, starterBalance, p.Balance)
	assert.Equal(t, 1, p.Level())

	items, err := db.Inventory(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []Item{{ID: starterContainer, Qty: 1}}, items)

	// A second lookup must not hand out another crate.
	_, err = db.Player(ctx, "u1")
	require.NoError(t, err)
	items, _ = db.Inventory(ctx, "u1")
	assert.Equal(t, 1, items[0].Qty)
}

func TestWorkCooldown(t *testing.T) {
	db, now := openTestDB(t)
	ctx := context.Background()

	p, err := db.Work(ctx, "u1", 50, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, starterBalance+50, p.Balance)

	*now = now.Add(20 * time.Minute)
	_, err = db.Work(ctx, "u1", 50, time.Hour)
	var cd *CooldownError
	require.ErrorAs(t, err, &cd)
	assert.Equal(t, 40*time.Minute, cd.Remaining)

	*now = now.Add(40 * time.Minute)
	p, err = db.Work(ctx, "u1", 50, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, starterBalance+100, p.Balance)
	assert.EqualValues(t, 10, p.XP)
}

func TestRest(t *testing.T) {
	db, _ := openTestDB(t)
	ctx := context.Background()

	_, err := db.Rest(ctx, "u1", starterBalance+1, 10)
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	p, err := db.Rest(ctx, "u1", 5, 10)
	require.NoError(t, err)
	assert.Equal(t, starterBalance-5, p.Balance)
	assert.Equal(t, p.MaxHP, p.HP)
}

func TestOpenContainer(t *testing.T) {
	db, _ := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.OpenContainer(ctx, "u1", starterContainer, Loot{Item: "herb", Qty: 2, Coins: 15}))

	items, err := db.Inventory(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []Item{{ID: "herb", Qty: 2}}, items)
	p, _ := db.Player(ctx, "u1")
	assert.Equal(t, starterBalance+15, p.Balance)

	err = db.OpenContainer(ctx, "u1", starterContainer, Loot{Coins: 1})
	assert.ErrorIs(t, err, ErrNoItem)
}

func TestParty(t *testing.T) {
	db, _ := openTestDB(t)
	ctx := context.Background()

	m, err := db.Recruit(ctx, "u1", "Brom", RoleRoster, 3, 40, 6)
	require.NoError(t, err)
	_, err = db.Recruit(ctx, "u1", "Ysa", RoleRoster, 2, 40, 6)
	require.NoError(t, err)
	_, err = db.Recruit(ctx, "u1", "Kell", RoleRoster, 2, 40, 6)
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	require.NoError(t, db.Reassign(ctx, "u1", m.ID, RoleArmy, 6))
	roster, err := db.Members(ctx, "u1", RoleRoster)
	require.NoError(t, err)
	army, err := db.Members(ctx, "u1", RoleArmy)
	require.NoError(t, err)
	require.Len(t, roster, 1)
	require.Len(t, army, 1)
	assert.Equal(t, "Brom", army[0].Name)

	assert.ErrorIs(t, db.Dismiss(ctx, "u2", m.ID), ErrNotFound)
	require.NoError(t, db.Dismiss(ctx, "u1", m.ID))
	army, _ = db.Members(ctx, "u1", RoleArmy)
	assert.Empty(t, army)
}

func TestPartyRosterCap(t *testing.T) {
	db, _ := openTestDB(t)
	ctx := context.Background()

	for _, name := range []string{"Brom", "Ysa"} {
		_, err := db.Recruit(ctx, "u1", name, RoleRoster, 1, 0, 2)
		require.NoError(t, err)
	}
	_, err := db.Recruit(ctx, "u1", "Kell", RoleRoster, 1, 0, 2)
	assert.ErrorIs(t, err, ErrPartyFull)
	p, _ := db.Player(ctx, "u1")
	assert.Equal(t, starterBalance, p.Balance)

	// The army is not capped, but nobody can move from it into a full roster.
	guard, err := db.Recruit(ctx, "u1", "Tor", RoleArmy, 1, 0, 2)
	require.NoError(t, err)
	assert.ErrorIs(t, db.Reassign(ctx, "u1", guard.ID, RoleRoster, 2), ErrPartyFull)
	assert.NoError(t, db.Reassign(ctx, "u1", guard.ID, RoleArmy, 2))
	assert.ErrorIs(t, db.Reassign(ctx, "u1", guard.ID+100, RoleRoster, 2), ErrNotFound)

	roster, err := db.Members(ctx, "u1", RoleRoster)
	require.NoError(t, err)
	assert.Len(t, roster, 2)
}

func TestPartyRosterCapConcurrent(t *testing.T) {
	db, _ := openTestDB(t)
	ctx := context.Background()
	_, err := db.Player(ctx, "u1")
	require.NoError(t, err)

	var wg sync.WaitGroup
	var full atomic.Int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := db.Recruit(ctx, "u1", "Brom", RoleRoster, 1, 0, 3)
			if errors.Is(err, ErrPartyFull) {
				full.Add(1)
				return
			}
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	roster, err := db.Members(ctx, "u1", RoleRoster)
	require.NoError(t, err)
	assert.Len(t, roster, 3)
	assert.EqualValues(t, 5, full.Load())
}

func TestQuests(t *testing.T) {
	db, now := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.AcceptQuest(ctx, "u1", "rats"))
	assert.ErrorIs(t, db.AcceptQuest(ctx, "u1", "rats"), ErrQuestTaken)

	var cd *CooldownError
	require.ErrorAs(t, db.CompleteQuest(ctx, "u1", "rats", time.Hour, 30, 20), &cd)

	*now = now.Add(time.Hour)
	require.NoError(t, db.CompleteQuest(ctx, "u1", "rats", time.Hour, 30, 20))
	assert.ErrorIs(t, db.CompleteQuest(ctx, "u1", "rats", time.Hour, 30, 20), ErrNotFound)

	log, err := db.Quests(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, QuestDone, log["rats"].Status)
	p, _ := db.Player(ctx, "u1")
	assert.Equal(t, starterBalance+30, p.Balance)
	assert.EqualValues(t, 20, p.XP)
}

func TestPokerSeats(t *testing.T) {
	db, _ := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Sit(ctx, "t1", "u1", 50, 2))
	assert.ErrorIs(t, db.Sit(ctx, "t1", "u1", 50, 2), ErrAlreadySeated)
	require.NoError(t, db.Sit(ctx, "t1", "u2", 50, 2))
	assert.ErrorIs(t, db.Sit(ctx, "t1", "u3", 50, 2), ErrTableFull)
	assert.ErrorIs(t, db.Sit(ctx, "t2", "u3", 500, 2), ErrInsufficientFunds)

	counts, err := db.SeatCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"t1": 2}, counts)

	stack, err := db.Stand(ctx, "t1", "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 50, stack)
	_, err = db.Stand(ctx, "t1", "u1")
	assert.ErrorIs(t, err, ErrNotSeated)

	p, _ := db.Player(ctx, "u1")
	assert.Equal(t, starterBalance, p.Balance)
}

func TestConcurrentWrites(t *testing.T) {
	db, _ := openTestDB(t)
	ctx := context.Background()
	_, err := db.Player(ctx, "u1")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, db.GrantItem(ctx, "u1", "herb", 1))
		}()
	}
	wg.Wait()

	items, err := db.Inventory(ctx, "u1")
	require.NoError(t, err)
	assert.Contains(t, items, Item{ID: "herb", Qty: 8})
}

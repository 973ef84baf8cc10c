package saga

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/saga-bot/internal/command"
	"github.com/keshon/saga-bot/internal/content"
	"github.com/keshon/saga-bot/internal/storage"
	"github.com/keshon/saga-bot/internal/ui/nav"
)

type replier struct{ sent []nav.Payload }

func (r *replier) Reply(ctx context.Context, p nav.Payload) (string, error) {
	r.sent = append(r.sent, p)
	return "m1", nil
}

func (r *replier) ReplyEphemeral(ctx context.Context, p nav.Payload) error {
	r.sent = append(r.sent, p)
	return nil
}

type harness struct {
	router *nav.Router
	table  *nav.Table
	deps   nav.Deps
	key    nav.Key
	first  nav.Payload
}

func start(t *testing.T) *harness {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "game.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	cat, err := content.Default()
	require.NoError(t, err)

	deps := nav.Deps{DB: db, Content: cat, Vault: nav.NewVault(time.Minute)}
	table := nav.NewTable()
	r := &replier{}
	cmd := &Saga{Table: table}
	require.NoError(t, cmd.RunSlash(context.Background(), deps.Context("u1", "g1", "c1"), &command.Invocation{Name: "saga", Reply: r}))
	require.Len(t, r.sent, 1)

	return &harness{
		router: nav.NewRouter(table, deps),
		table:  table,
		deps:   deps,
		key:    nav.Key{UserID: "u1", MessageID: "m1"},
		first:  r.sent[0],
	}
}

func (h *harness) click(customID string, values ...string) nav.Response {
	return h.router.Dispatch(context.Background(), nav.Callback{
		UserID: "u1", GuildID: "g1", ChannelID: "c1", MessageID: "m1",
		CustomID: customID, Values: values,
	})
}

func (h *harness) stack(t *testing.T) []string {
	t.Helper()
	s, err := h.table.Acquire(context.Background(), h.key)
	require.NoError(t, err)
	defer s.Release()
	return s.Stack().IDs()
}

func customIDs(p nav.Payload) []string {
	var out []string
	for _, c := range p.Controls() {
		out = append(out, c.CustomID)
	}
	return out
}

func TestSagaOpenAndClose(t *testing.T) {
	h := start(t)
	assert.Equal(t, "Saga", h.first.Embed.Title)
	assert.Contains(t, customIDs(h.first), "saga.root:close")
	assert.Equal(t, []string{RootID}, h.stack(t))

	resp := h.click("saga.root:close")
	require.NoError(t, resp.Err)
	assert.Equal(t, nav.ResponseClose, resp.Kind)
	assert.Zero(t, h.table.Len())
}

func TestSagaDescendAndReturn(t *testing.T) {
	h := start(t)

	resp := h.click("saga.root:tavern")
	require.NoError(t, resp.Err)
	assert.Equal(t, "The Prancing Boar", resp.Payload.Embed.Title)
	assert.Equal(t, []string{RootID, TavernID}, h.stack(t))

	resp = h.click("saga.tavern:back")
	require.NoError(t, resp.Err)
	assert.Equal(t, "Saga", resp.Payload.Embed.Title)
	assert.Contains(t, resp.Payload.Embed.Description, "Tavern visits this trip: 1")
	assert.Equal(t, []string{RootID}, h.stack(t))
}

func TestSagaStaleTavernControl(t *testing.T) {
	h := start(t)
	h.click("saga.root:tavern")
	h.click("saga.tavern:back")

	resp := h.click("saga.tavern:leave")
	assert.Equal(t, nav.ResponseNotice, resp.Kind)
	assert.Equal(t, nav.MsgStale, resp.Notice)
	assert.Equal(t, []string{RootID}, h.stack(t))
}

func TestTavernDrinkAndLeave(t *testing.T) {
	h := start(t)
	h.click("saga.root:tavern")

	resp := h.click("saga.tavern:drink:mead")
	require.NoError(t, resp.Err)
	assert.Contains(t, resp.Payload.Embed.Description, "Honey Mead")

	p, err := h.deps.DB.Player(context.Background(), "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 100-12, p.Balance)

	resp = h.click("saga.tavern:leave")
	require.NoError(t, resp.Err)
	assert.Equal(t, []string{RootID}, h.stack(t))
}

func TestTavernCannotAfford(t *testing.T) {
	h := start(t)
	h.click("saga.root:tavern")
	for i := 0; i < 3; i++ {
		h.click("saga.tavern:drink:tonic")
	}
	resp := h.click("saga.tavern:drink:tonic")
	require.NoError(t, resp.Err)
	assert.Equal(t, "You cannot afford that.", resp.Payload.Embed.Description)
	for _, c := range resp.Payload.Controls() {
		if c.CustomID == "saga.tavern:drink:tonic" {
			assert.True(t, c.Disabled)
		}
	}
}

func TestQuestBoard(t *testing.T) {
	h := start(t)

	resp := h.click("saga.root:quests")
	require.NoError(t, resp.Err)
	assert.Contains(t, resp.Payload.Embed.Description, "Page 1/2")
	assert.Contains(t, customIDs(resp.Payload), "saga.quests:accept:rats")

	resp = h.click("saga.quests:accept:rats")
	require.NoError(t, resp.Err)
	assert.Contains(t, resp.Payload.Embed.Description, "Cellar Rats")
	assert.Contains(t, customIDs(resp.Payload), "saga.quests:turnin:rats")

	resp = h.click("saga.quests:turnin:rats")
	require.NoError(t, resp.Err)
	assert.Contains(t, resp.Payload.Embed.Description, "Not done yet")

	resp = h.click("saga.quests:next")
	require.NoError(t, resp.Err)
	assert.Contains(t, resp.Payload.Embed.Description, "Page 2/2")
	resp = h.click("saga.quests:next")
	assert.Contains(t, resp.Payload.Embed.Description, "Page 2/2")

	resp = h.click("saga.quests:back")
	require.NoError(t, resp.Err)
	assert.Equal(t, []string{RootID}, h.stack(t))
}

func TestUnknownActionKeepsScreen(t *testing.T) {
	h := start(t)
	resp := h.click("saga.root:dance")
	assert.Equal(t, nav.ResponseNotice, resp.Kind)
	assert.ErrorIs(t, resp.Err, nav.ErrHandlerFailed)
	assert.Equal(t, []string{RootID}, h.stack(t))
}

// Package discord connects the gateway to the command dispatcher and the
// navigation router.
package discord

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/keshon/saga-bot/internal/command"
	"github.com/keshon/saga-bot/internal/config"
	"github.com/keshon/saga-bot/internal/storage"
	"github.com/keshon/saga-bot/internal/ui/nav"
	"github.com/keshon/saga-bot/pkg/retrylimit"
	"github.com/keshon/saga-bot/pkg/util"
)

// guildSyncWorkers bounds concurrent slash command syncs on startup.
const guildSyncWorkers = 4

// Bot is a Discord bot
type Bot struct {
	dg         *discordgo.Session
	cfg        *config.Config
	settings   *storage.Settings
	dispatcher *command.Dispatcher
	router     *nav.Router
	limiter    *retrylimit.AdaptiveLimiter
	policy     retrylimit.Policy
	hashes     hashCache

	// ctx is the Run context, handed to event handlers.
	ctx context.Context

	mu     sync.Mutex
	synced map[string]bool
}

// NewSession creates a gateway session without connecting it.
func NewSession(token string) (*discordgo.Session, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent
	return dg, nil
}

func New(dg *discordgo.Session, cfg *config.Config, settings *storage.Settings, dispatcher *command.Dispatcher, router *nav.Router) *Bot {
	policy := retrylimit.DefaultPolicy()
	policy.Classify = classifyREST
	return &Bot{
		dg:         dg,
		cfg:        cfg,
		settings:   settings,
		dispatcher: dispatcher,
		router:     router,
		limiter:    retrylimit.NewAdaptiveLimiter(rate.Limit(20), rate.Limit(1), rate.Limit(45), rate.Limit(1), 0.5),
		policy:     policy,
		hashes:     hashCache{dir: filepath.Join(filepath.Dir(cfg.StoragePath), "commands")},
		ctx:        context.Background(),
		synced:     make(map[string]bool),
	}
}

// Latency is the gateway heartbeat round trip.
func (b *Bot) Latency() time.Duration {
	return b.dg.HeartbeatLatency()
}

// Run connects to the gateway and serves events until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	b.ctx = ctx

	b.dg.AddHandler(b.onReady)
	b.dg.AddHandler(b.onGuildCreate)
	b.dg.AddHandler(b.onMessageCreate)
	b.dg.AddHandler(b.onInteractionCreate)

	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	defer b.dg.Close()

	<-ctx.Done()
	log.Info().Msg("Shutdown signal received, closing gateway")
	return nil
}

// call runs one REST request through the shared limiter and retry policy.
func (b *Bot) call(ctx context.Context, fn func(opts ...discordgo.RequestOption) error) error {
	return retrylimit.Do(ctx, b.limiter, b.policy, func(ctx context.Context) error {
		return fn(discordgo.WithContext(ctx))
	})
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	var guilds []string
	for _, g := range r.Guilds {
		if b.cfg.Blacklisted(g.ID) {
			b.leaveGuild(g.ID)
			continue
		}
		guilds = append(guilds, g.ID)
	}

	if b.cfg.InitSlashCommands {
		_ = util.Parallel(b.ctx, guilds, guildSyncWorkers, func(ctx context.Context, guildID string) error {
			b.syncGuild(ctx, guildID)
			return nil
		})
	} else {
		log.Info().Msg("Registering slash commands skipped")
	}

	log.Info().Str("user", r.User.Username).Int("guilds", len(guilds)).Msg("Discord bot is running")
}

func (b *Bot) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	if b.cfg.Blacklisted(g.ID) {
		b.leaveGuild(g.ID)
		return
	}
	if b.cfg.InitSlashCommands {
		b.syncGuild(b.ctx, g.ID)
	}
}

func (b *Bot) leaveGuild(guildID string) {
	log.Info().Str("guild", guildID).Msg("Leaving blacklisted guild")
	err := b.call(b.ctx, func(opts ...discordgo.RequestOption) error {
		return b.dg.GuildLeave(guildID, opts...)
	})
	if err != nil {
		log.Error().Err(err).Str("guild", guildID).Msg("Failed to leave guild")
	}
}

// syncGuild registers slash commands once per guild per process.
func (b *Bot) syncGuild(ctx context.Context, guildID string) {
	b.mu.Lock()
	if b.synced[guildID] {
		b.mu.Unlock()
		return
	}
	b.synced[guildID] = true
	b.mu.Unlock()

	if err := b.registerCommands(ctx, guildID); err != nil {
		log.Error().Err(err).Str("guild", guildID).Msg("Error registering slash commands")
		b.mu.Lock()
		delete(b.synced, guildID)
		b.mu.Unlock()
	}
}

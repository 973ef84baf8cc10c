// cmd/discord/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/keshon/saga-bot/internal/command"
	"github.com/keshon/saga-bot/internal/commands"
	"github.com/keshon/saga-bot/internal/config"
	"github.com/keshon/saga-bot/internal/content"
	"github.com/keshon/saga-bot/internal/discord"
	"github.com/keshon/saga-bot/internal/logging"
	"github.com/keshon/saga-bot/internal/status"
	"github.com/keshon/saga-bot/internal/storage"
	"github.com/keshon/saga-bot/internal/ui/nav"
	"github.com/keshon/saga-bot/pkg/jobmgr"
)

const appName = "saga-bot"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Error().Err(err).Msg("Bot exited with error")
		os.Exit(1)
	}
	log.Info().Msg("Discord bot exited cleanly")
}

func run(ctx context.Context) error {
	cfg, err := config.New()
	if err != nil {
		return err
	}

	logFile, err := logging.Setup(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return err
	}
	defer logFile.Close()

	log.Info().Str("app", appName).Msg("Starting bot")

	settings, err := storage.NewSettings(ctx, cfg.StoragePath)
	if err != nil {
		return err
	}
	defer settings.Close()

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	catalog, err := content.Load(cfg.ContentPath)
	if err != nil {
		return err
	}

	table := nav.NewTable(
		nav.WithIdle(cfg.SessionIdle),
		nav.WithSweepInterval(cfg.SessionSweep),
		nav.WithMaxDepth(cfg.NavMaxDepth),
	)
	defer table.Shutdown()

	vault := nav.NewVault(cfg.SessionIdle)
	router := nav.NewRouter(table, nav.Deps{DB: db, Content: catalog, Vault: vault}, nav.WithDeadline(cfg.InteractionTimeout))

	dg, err := discord.NewSession(cfg.DiscordToken)
	if err != nil {
		return err
	}

	reg := command.NewRegistry()
	deps := commands.Deps{
		Registry: reg,
		Prefix:   cfg.CommandPrefix,
		Latency:  dg.HeartbeatLatency,
		History:  settings,
		Catalog:  catalog,
		Dice:     content.NewDice(nil),
		Table:    table,
	}
	err = commands.Register(deps,
		command.WithRecover(),
		command.WithCommandLogger(settings),
		command.WithEnabledCheck(settings),
		command.WithRateLimit(rate.Limit(cfg.CommandRate), cfg.CommandBurst),
	)
	if err != nil {
		return err
	}

	bot := discord.New(dg, cfg, settings, command.NewDispatcher(reg, command.WithDeadline(cfg.InteractionTimeout)), router)

	// A failing gateway or status server brings the whole process down.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	essential := func(run func(context.Context) error) func(context.Context) error {
		return func(ctx context.Context) error {
			defer cancel()
			return run(ctx)
		}
	}

	jobs := jobmgr.NewManager(ctx, func(s string) { log.Debug().Msg(s) })
	if err := jobs.Start("sessions", table.Run); err != nil {
		return err
	}
	if err := jobs.Start("vault", func(ctx context.Context) error {
		return sweepVault(ctx, vault, cfg.SessionSweep)
	}); err != nil {
		return err
	}
	if cfg.StatusAddr != "" {
		srv := status.New(cfg.StatusAddr, db, table, jobs)
		if err := jobs.Start("status", essential(srv.Run)); err != nil {
			return err
		}
	}
	if err := jobs.Start("discord", essential(bot.Run)); err != nil {
		return err
	}

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	return jobs.Wait()
}

func sweepVault(ctx context.Context, v *nav.Vault, every time.Duration) error {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if n := v.Sweep(); n > 0 {
				log.Debug().Int("dropped", n).Msg("Vault entries expired")
			}
		}
	}
}

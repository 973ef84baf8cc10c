// cmd/cli is the operator tool: database migrations, content checks and
// per-guild settings without a running bot.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/keshon/saga-bot/internal/content"
	"github.com/keshon/saga-bot/internal/storage"
	"github.com/keshon/saga-bot/pkg/util"
)

// paths share their keys and defaults with the bot config.
type paths struct {
	DB      string `env:"DB_PATH" envDefault:"data/saga.db"`
	Store   string `env:"STORAGE_PATH" envDefault:"data/datastore.json"`
	Content string `env:"CONTENT_PATH"`
}

func main() {
	_ = godotenv.Load()
	if err := newRootCmd(env.Options{}).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(opts env.Options) *cobra.Command {
	var p paths
	root := &cobra.Command{
		Use:           "saga-cli",
		Short:         "Maintenance tasks for saga-bot",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			defaults, err := env.ParseAsWithOptions[paths](opts)
			if err != nil {
				return err
			}
			f := cmd.Flags()
			if !f.Changed("db") {
				p.DB = defaults.DB
			}
			if !f.Changed("store") {
				p.Store = defaults.Store
			}
			if !f.Changed("content") {
				p.Content = defaults.Content
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&p.DB, "db", "", "sqlite database path (DB_PATH)")
	root.PersistentFlags().StringVar(&p.Store, "store", "", "guild settings file (STORAGE_PATH)")
	root.PersistentFlags().StringVar(&p.Content, "content", "", "content catalog override (CONTENT_PATH)")

	root.AddCommand(
		migrateCmd(&p),
		contentCmd(&p),
		playerCmd(&p),
		prefixCmd(&p),
		toggleCmd(&p, "disable", "Disable a command in a guild", (*storage.Settings).DisableCommand),
		toggleCmd(&p, "enable", "Re-enable a command in a guild", (*storage.Settings).EnableCommand),
		historyCmd(&p),
	)
	return root
}

func migrateCmd(p *paths) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the game database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := storage.Open(p.DB)
			if err != nil {
				return err
			}
			defer db.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "database %s is up to date\n", p.DB)
			return nil
		},
	}
}

func contentCmd(p *paths) *cobra.Command {
	return &cobra.Command{
		Use:   "content",
		Short: "Validate the content catalog and print a summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := content.Load(p.Content)
			if err != nil {
				return err
			}
			src := p.Content
			if src == "" {
				src = "embedded"
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "catalog: %s\n", src)
			fmt.Fprintf(out, "jobs: %d\nquests: %d\ndrinks: %d\ncontainers: %d\ntables: %d\n",
				len(c.Jobs), len(c.Quests), len(c.Drinks), len(c.Containers), len(c.Tables))
			return nil
		},
	}
}

func playerCmd(p *paths) *cobra.Command {
	return &cobra.Command{
		Use:   "player <user-id>",
		Short: "Show a player's balance and inventory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := storage.Open(p.DB)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			pl, err := db.Player(ctx, args[0])
			if err != nil {
				return err
			}
			items, err := db.Inventory(ctx, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "user %s: level %d, %d coins, %d xp, %d/%d hp\n",
				pl.UserID, pl.Level(), pl.Balance, pl.XP, pl.HP, pl.MaxHP)
			for _, it := range items {
				fmt.Fprintf(out, "  %s x%d\n", it.ID, it.Qty)
			}
			return nil
		},
	}
}

func withSettings(cmd *cobra.Command, p *paths, fn func(s *storage.Settings) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := storage.NewSettings(ctx, p.Store)
	if err != nil {
		return err
	}
	if err := fn(s); err != nil {
		s.Close()
		return err
	}
	return s.Close()
}

func prefixCmd(p *paths) *cobra.Command {
	return &cobra.Command{
		Use:   "prefix <guild-id> [prefix]",
		Short: "Show or set a guild's command prefix",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSettings(cmd, p, func(s *storage.Settings) error {
				if len(args) == 2 {
					if err := s.SetPrefix(args[0], args[1]); err != nil {
						return err
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "prefix for %s: %s\n", args[0], s.Prefix(args[0], "(default)"))
				return nil
			})
		},
	}
}

func toggleCmd(p *paths, use, short string, apply func(*storage.Settings, string, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <guild-id> <command>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSettings(cmd, p, func(s *storage.Settings) error {
				if err := apply(s, args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%sd %s in %s\n", use, args[1], args[0])
				return nil
			})
		},
	}
}

func historyCmd(p *paths) *cobra.Command {
	return &cobra.Command{
		Use:   "history <guild-id>",
		Short: "Print the recent command log of a guild",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSettings(cmd, p, func(s *storage.Settings) error {
				recs, err := s.CommandHistory(args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(recs) == 0 {
					fmt.Fprintln(out, "no commands recorded")
					return nil
				}
				for _, r := range recs {
					fmt.Fprintf(out, "%s %s /%s %s\n", util.FormatDateTpl(r.Datetime, "YYYY-MM-DD hh:mm"), r.Username, r.Command, r.Param)
				}
				return nil
			})
		},
	}
}

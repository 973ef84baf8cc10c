package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	DiscordToken       string        `env:"DISCORD_TOKEN,required,notEmpty"`
	GuildBlacklist     []string      `env:"DISCORD_GUILD_BLACKLIST" envSeparator:","`
	InitSlashCommands  bool          `env:"INIT_SLASH_COMMANDS" envDefault:"true"`
	CommandPrefix      string        `env:"COMMAND_PREFIX" envDefault:"!"`
	StoragePath        string        `env:"STORAGE_PATH" envDefault:"data/datastore.json"`
	DBPath             string        `env:"DB_PATH" envDefault:"data/saga.db"`
	ContentPath        string        `env:"CONTENT_PATH"`
	SessionIdle        time.Duration `env:"SESSION_IDLE" envDefault:"15m"`
	SessionSweep       time.Duration `env:"SESSION_SWEEP" envDefault:"1m"`
	NavMaxDepth        int           `env:"NAV_MAX_DEPTH" envDefault:"16"`
	InteractionTimeout time.Duration `env:"INTERACTION_DEADLINE" envDefault:"3s"`
	StatusAddr         string        `env:"STATUS_ADDR"`
	LogLevel           string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFile            string        `env:"LOG_FILE"`
	CommandRate        float64       `env:"COMMAND_RATE" envDefault:"1"`
	CommandBurst       int           `env:"COMMAND_BURST" envDefault:"5"`
}

// New loads .env if present and parses the environment.
func New() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("No .env file found, falling back to system environment variables")
	}
	return Parse(env.Options{})
}

// Parse reads the configuration using opts. Tests pass Options.Environment.
func Parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.CommandPrefix == "" {
		errs = append(errs, errors.New("COMMAND_PREFIX must not be empty"))
	}
	if c.SessionIdle <= 0 {
		errs = append(errs, errors.New("SESSION_IDLE must be positive"))
	}
	if c.SessionSweep <= 0 || c.SessionSweep > c.SessionIdle {
		errs = append(errs, errors.New("SESSION_SWEEP must be positive and not above SESSION_IDLE"))
	}
	if c.NavMaxDepth < 1 {
		errs = append(errs, errors.New("NAV_MAX_DEPTH must be at least 1"))
	}
	if c.InteractionTimeout <= 0 {
		errs = append(errs, errors.New("INTERACTION_DEADLINE must be positive"))
	}
	if c.CommandRate <= 0 || c.CommandBurst < 1 {
		errs = append(errs, errors.New("COMMAND_RATE and COMMAND_BURST must be positive"))
	}
	return errors.Join(errs...)
}

// Blacklisted reports whether the bot should ignore a guild.
func (c *Config) Blacklisted(guildID string) bool {
	for _, id := range c.GuildBlacklist {
		if id == guildID {
			return true
		}
	}
	return false
}

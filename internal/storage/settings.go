package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/keshon/datastore"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	commandHistoryLimit int = 20
	settingsSaveEvery       = 30 * time.Second
)

// Settings keeps per-guild bot configuration in a JSON datastore.
type Settings struct {
	ds     *datastore.DataStore
	cancel context.CancelFunc
	mu     sync.Mutex
}

type CommandHistoryRecord struct {
	ChannelID string    `json:"channel_id"`
	GuildID   string    `json:"guild_id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Command   string    `json:"command"`
	Param     string    `json:"param"`
	Datetime  time.Time `json:"datetime"`
}

type GuildRecord struct {
	Prefix           string                 `json:"prefix,omitempty"`
	CommandsDisabled []string               `json:"cmd_disabled"`
	CommandsHistory  []CommandHistoryRecord `json:"cmd_history"`
}

// NewSettings opens the datastore at filePath. Autosave stops when ctx is
// done or on Close, whichever comes first.
func NewSettings(ctx context.Context, filePath string) (*Settings, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return nil, fmt.Errorf("create settings dir: %w", err)
	}
	ctx, cancel := context.WithCancel(ctx)
	ds, err := datastore.New(ctx, filePath,
		datastore.WithSaveInterval(settingsSaveEvery),
		datastore.WithLogger(slog.New(zerolog.NewSlogHandler(log.Logger))),
	)
	if err != nil {
		cancel()
		return nil, err
	}
	return &Settings{ds: ds, cancel: cancel}, nil
}

// Close stops autosave and flushes to disk.
func (s *Settings) Close() error {
	s.cancel()
	return s.ds.Close()
}

func (s *Settings) guildRecord(guildID string) (*GuildRecord, error) {
	var record GuildRecord
	if _, err := s.ds.Get(guildID, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *Settings) update(guildID string, fn func(r *GuildRecord)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.guildRecord(guildID)
	if err != nil {
		return err
	}
	fn(record)
	return s.ds.Set(guildID, record)
}

// Prefix returns the guild's prefix override, or fallback when none is set.
func (s *Settings) Prefix(guildID, fallback string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, err := s.guildRecord(guildID)
	if err != nil || record.Prefix == "" {
		return fallback
	}
	return record.Prefix
}

func (s *Settings) SetPrefix(guildID, prefix string) error {
	return s.update(guildID, func(r *GuildRecord) { r.Prefix = prefix })
}

// AppendCommandHistory records an invocation, keeping only the latest entries.
func (s *Settings) AppendCommandHistory(guildID string, rec CommandHistoryRecord) error {
	return s.update(guildID, func(r *GuildRecord) {
		r.CommandsHistory = append(r.CommandsHistory, rec)
		if len(r.CommandsHistory) > commandHistoryLimit {
			r.CommandsHistory = r.CommandsHistory[len(r.CommandsHistory)-commandHistoryLimit:]
		}
	})
}

func (s *Settings) CommandHistory(guildID string) ([]CommandHistoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, err := s.guildRecord(guildID)
	if err != nil {
		return nil, err
	}
	return record.CommandsHistory, nil
}

func (s *Settings) DisableCommand(guildID, name string) error {
	return s.update(guildID, func(r *GuildRecord) {
		if !slices.Contains(r.CommandsDisabled, name) {
			r.CommandsDisabled = append(r.CommandsDisabled, name)
		}
	})
}

func (s *Settings) EnableCommand(guildID, name string) error {
	return s.update(guildID, func(r *GuildRecord) {
		r.CommandsDisabled = slices.DeleteFunc(r.CommandsDisabled, func(g string) bool { return g == name })
	})
}

func (s *Settings) IsDisabled(guildID, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, err := s.guildRecord(guildID)
	if err != nil {
		return false, err
	}
	return slices.Contains(record.CommandsDisabled, name), nil
}

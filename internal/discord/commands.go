package discord

import (
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"github.com/keshon/saga-bot/internal/command"
)

// registerCommands syncs slash commands for a guild with Discord:
// deletes obsolete ones, creates/updates commands whose definition has changed.
func (b *Bot) registerCommands(ctx context.Context, guildID string) error {
	appID, err := b.appID(ctx)
	if err != nil {
		return err
	}

	var remote []*discordgo.ApplicationCommand
	err = b.call(ctx, func(opts ...discordgo.RequestOption) (err error) {
		remote, err = b.dg.ApplicationCommands(appID, guildID, opts...)
		return err
	})
	if err != nil {
		return fmt.Errorf("list commands: %w", err)
	}
	remoteByName := make(map[string]*discordgo.ApplicationCommand, len(remote))
	for _, c := range remote {
		remoteByName[c.Name] = c
	}

	local := commandDefinitions(b.dispatcher.Registry())
	hashes := b.hashes.load(guildID)

	b.deleteObsoleteCommands(ctx, appID, guildID, remoteByName, local, hashes)
	b.upsertChangedCommands(ctx, appID, guildID, remoteByName, local, hashes)

	b.hashes.save(guildID, hashes)
	return nil
}

// deleteObsoleteCommands removes commands from Discord that are no longer in the local registry.
func (b *Bot) deleteObsoleteCommands(ctx context.Context, appID, guildID string, remote map[string]*discordgo.ApplicationCommand, local []*discordgo.ApplicationCommand, hashes map[string]string) {
	localNames := make(map[string]struct{}, len(local))
	for _, d := range local {
		localNames[d.Name] = struct{}{}
	}

	for name, rc := range remote {
		if _, exists := localNames[name]; exists {
			continue
		}
		log.Info().Str("guild", guildID).Str("command", name).Msg("Deleting obsolete command")
		err := b.call(ctx, func(opts ...discordgo.RequestOption) error {
			return b.dg.ApplicationCommandDelete(appID, guildID, rc.ID, opts...)
		})
		if err != nil {
			log.Error().Err(err).Str("guild", guildID).Str("command", name).Msg("Failed to delete command")
			continue
		}
		delete(hashes, name)
	}
}

// upsertChangedCommands creates or updates commands whose hash differs from
// the cached value or that are missing remotely.
func (b *Bot) upsertChangedCommands(ctx context.Context, appID, guildID string, remote map[string]*discordgo.ApplicationCommand, defs []*discordgo.ApplicationCommand, hashes map[string]string) {
	var changed []*discordgo.ApplicationCommand
	for _, d := range defs {
		_, registered := remote[d.Name]
		if !registered || hashes[d.Name] != hashCommand(d) {
			changed = append(changed, d)
		}
	}
	if len(changed) == 0 {
		return
	}

	log.Info().Str("guild", guildID).Int("count", len(changed)).Msg("Registering changed commands")
	for _, d := range changed {
		err := b.call(ctx, func(opts ...discordgo.RequestOption) error {
			_, err := b.dg.ApplicationCommandCreate(appID, guildID, d, opts...)
			return err
		})
		if err != nil {
			log.Error().Err(err).Str("guild", guildID).Str("command", d.Name).Msg("Failed to register command")
			continue
		}
		hashes[d.Name] = hashCommand(d)
		log.Debug().Str("guild", guildID).Str("command", d.Name).Msg("Registered command")
	}
}

// appID returns the bot's application ID, fetching from Discord if not cached in State.
func (b *Bot) appID(ctx context.Context) (string, error) {
	if b.dg.State != nil && b.dg.State.User != nil && b.dg.State.User.ID != "" {
		return b.dg.State.User.ID, nil
	}
	var u *discordgo.User
	err := b.call(ctx, func(opts ...discordgo.RequestOption) (err error) {
		u, err = b.dg.User("@me", opts...)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to fetch bot user: %w", err)
	}
	return u.ID, nil
}

// commandDefinitions builds slash definitions for every advertised command.
func commandDefinitions(reg *command.Registry) []*discordgo.ApplicationCommand {
	var defs []*discordgo.ApplicationCommand
	for _, c := range reg.Slash() {
		defs = append(defs, commandDefinition(c.Register()))
	}
	return defs
}

func commandDefinition(d command.Descriptor) *discordgo.ApplicationCommand {
	def := &discordgo.ApplicationCommand{
		Type:        discordgo.ChatApplicationCommand,
		Name:        d.Name,
		Description: d.Description,
	}
	for _, o := range d.Options {
		opt := &discordgo.ApplicationCommandOption{
			Type:        optionType(o.Type),
			Name:        o.Name,
			Description: o.Description,
			Required:    o.Required,
		}
		for _, ch := range o.Choices {
			opt.Choices = append(opt.Choices, &discordgo.ApplicationCommandOptionChoice{Name: ch.Name, Value: ch.Value})
		}
		def.Options = append(def.Options, opt)
	}
	return def
}

func optionType(t command.OptionType) discordgo.ApplicationCommandOptionType {
	switch t {
	case command.OptionInteger:
		return discordgo.ApplicationCommandOptionInteger
	case command.OptionUser:
		return discordgo.ApplicationCommandOptionUser
	case command.OptionBool:
		return discordgo.ApplicationCommandOptionBoolean
	default:
		return discordgo.ApplicationCommandOptionString
	}
}

// --- Command hash cache ---

type hashCache struct {
	dir string
}

func (h hashCache) path(guildID string) string {
	return filepath.Join(h.dir, guildID+".json")
}

func (h hashCache) load(guildID string) map[string]string {
	out := make(map[string]string)
	if data, err := os.ReadFile(h.path(guildID)); err == nil {
		_ = json.Unmarshal(data, &out)
	}
	return out
}

func (h hashCache) save(guildID string, hashes map[string]string) {
	path := h.path(guildID)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to create command cache dir")
		return
	}
	data, err := json.MarshalIndent(hashes, "", "  ")
	if err == nil {
		err = os.WriteFile(path, data, 0644)
	}
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to save command cache")
	}
}

// --- Command hashing ---

// hashCommand returns a deterministic SHA-1 of a command's stable fields.
// Used to skip re-registration when nothing has changed.
func hashCommand(c *discordgo.ApplicationCommand) string {
	stable := map[string]any{
		"name":        c.Name,
		"description": c.Description,
		"type":        c.Type,
	}
	if len(c.Options) > 0 {
		stable["options"] = normalizeOptions(c.Options)
	}
	data, _ := json.Marshal(stable)
	sum := sha1.Sum(data)
	return fmt.Sprintf("%x", sum)
}

func normalizeOptions(opts []*discordgo.ApplicationCommandOption) []map[string]any {
	out := make([]map[string]any, len(opts))
	for i, o := range opts {
		entry := map[string]any{
			"name":        o.Name,
			"description": o.Description,
			"type":        o.Type,
			"required":    o.Required,
		}
		if len(o.Choices) > 0 {
			choices := make([]map[string]any, len(o.Choices))
			for j, ch := range o.Choices {
				choices[j] = map[string]any{"name": ch.Name, "value": ch.Value}
			}
			entry["choices"] = choices
		}
		if len(o.Options) > 0 {
			entry["options"] = normalizeOptions(o.Options)
		}
		out[i] = entry
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i]["name"].(string) < out[j]["name"].(string)
	})
	return out
}

package nav

import (
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/keshon/saga-bot/internal/content"
	"github.com/keshon/saga-bot/internal/storage"
)

// Deps are the long-lived collaborators every Context is built from.
type Deps struct {
	DB      *storage.DB
	Content *content.Catalog
	Vault   *Vault
}

// Context is the read-only bag handed to a screen for one render or callback.
// It must not be retained after the call returns.
type Context struct {
	DB        *storage.DB
	Content   *content.Catalog
	UserID    string
	GuildID   string
	ChannelID string

	vault *Vault
}

// Context builds a bag for one invocation.
func (d Deps) Context(userID, guildID, channelID string) *Context {
	return &Context{
		DB:        d.DB,
		Content:   d.Content,
		UserID:    userID,
		GuildID:   guildID,
		ChannelID: channelID,
		vault:     d.Vault,
	}
}

// CustomID encodes a control id for screen. Payloads that would overflow the
// limit (or look like a vault reference) are parked in the vault.
func (c *Context) CustomID(screen, action, payload string) string {
	if c.vault != nil && strings.HasPrefix(payload, vaultMarker) {
		payload = c.vault.Put(payload)
	}
	id, err := EncodeCustomID(screen, action, payload)
	if err == nil {
		return id
	}
	if c.vault != nil && payload != "" {
		if id, err = EncodeCustomID(screen, action, c.vault.Put(payload)); err == nil {
			return id
		}
	}
	log.Warn().Err(err).Str("screen", screen).Str("action", action).Msg("Dropping control payload")
	return screen + sep + action
}

// Button builds a button control addressed to screen.
func (c *Context) Button(screen, action, payload, label string, style Style) Control {
	return Control{
		Kind:     KindButton,
		Label:    label,
		Style:    style,
		CustomID: c.CustomID(screen, action, payload),
	}
}

// Select builds a select control addressed to screen.
func (c *Context) Select(screen, action, placeholder string, opts []SelectOption) Control {
	return Control{
		Kind:        KindSelect,
		Placeholder: placeholder,
		CustomID:    c.CustomID(screen, action, ""),
		Options:     opts,
	}
}

// BackButton pops the current screen.
func (c *Context) BackButton(screen string) Control {
	return c.Button(screen, ActionBack, "", "Back", StyleSecondary)
}

// CloseButton ends the whole navigation.
func (c *Context) CloseButton(screen string) Control {
	return c.Button(screen, ActionClose, "", "Close", StyleDanger)
}

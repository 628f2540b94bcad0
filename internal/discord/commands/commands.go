// Package commands implements the yomu slash commands: joining and
// leaving voice channels, picking the synthesis voice, and editing the
// per-guild replacement dictionary.
package commands

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/yomu/internal/reader"
	"github.com/MrWong99/yomu/pkg/speech"
)

// Service is the application surface the command handlers drive. The
// concrete implementation lives in internal/app.
type Service interface {
	// Join connects to a voice channel and starts reading textChannelID
	// aloud. Returns reader.ErrAlreadyConnected when the guild already
	// has a session.
	Join(ctx context.Context, guildID, voiceChannelID, textChannelID string) error

	// Leave stops the guild's session and disconnects. Returns
	// reader.ErrNotConnected when there is none.
	Leave(ctx context.Context, guildID string) error

	// Session returns the guild's live session, or reader.ErrNotConnected.
	Session(guildID string) (*reader.Session, error)

	// Speakers lists the synthesis engine's voice catalogue.
	Speakers() []speech.Speaker

	// SetSpeaker persists the guild's voice choice and applies it to the
	// live session if any. Returns speech.ErrUnknownSpeaker for ids the
	// engine does not offer.
	SetSpeaker(ctx context.Context, guildID string, id int) error

	// Speaker returns the guild's effective speaker id.
	Speaker(guildID string) int

	// AddRule appends a dictionary rule and returns its id.
	AddRule(guildID, pattern, replacement string, isRegex bool) (string, error)

	// RemoveRule deletes the rule at a zero-based position. Returns
	// reader.ErrIndexOutOfRange when the position does not name a rule.
	RemoveRule(guildID string, index int) (reader.Rule, error)

	// RemoveRuleByID deletes the rule with the given id.
	RemoveRuleByID(guildID, id string) (reader.Rule, error)

	// Rules lists the guild's dictionary rules in application order.
	Rules(guildID string) ([]reader.Rule, error)
}

// interactionUserID extracts the user ID from an interaction, handling
// both guild (Member) and DM (User) contexts.
func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

// optionMap indexes interaction options by name, descending into a
// subcommand's options when present.
func optionMap(data discordgo.ApplicationCommandInteractionData) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	opts := data.Options
	if len(opts) == 1 && opts[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		opts = opts[0].Options
	}
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(opts))
	for _, o := range opts {
		m[o.Name] = o
	}
	return m
}

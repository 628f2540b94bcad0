package discord

import (
	"context"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/yomu/internal/reader"
)

// SessionSource resolves live reading sessions for event ingest and tears
// them down when the voice channel empties.
type SessionSource interface {
	Session(guildID string) (*reader.Session, error)
	Leave(ctx context.Context, guildID string) error
}

// Events feeds gateway events into the per-guild reading sessions: chat
// messages become queue items, voice state changes become spoken presence
// notices.
type Events struct {
	sessions SessionSource
	log      *slog.Logger

	// IgnorePrefix drops messages starting with this string, so commands
	// aimed at other bots are not read aloud.
	IgnorePrefix string
}

// NewEvents creates the ingest and attaches its handlers to the bot's
// gateway session.
func NewEvents(bot *Bot, sessions SessionSource, log *slog.Logger) *Events {
	if log == nil {
		log = slog.Default()
	}
	e := &Events{
		sessions:     sessions,
		log:          log,
		IgnorePrefix: "!",
	}
	s := bot.Session()
	s.AddHandler(e.handleMessageCreate)
	s.AddHandler(e.handleVoiceStateUpdate)
	return e
}

// shouldRead reports whether a message belongs in the speech queue:
// non-bot author, the session's monitored channel, and not a command for
// some other bot.
func shouldRead(monitoredChannel, channelID, content string, authorBot bool, prefix string) bool {
	if authorBot {
		return false
	}
	if channelID != monitoredChannel {
		return false
	}
	if prefix != "" && strings.HasPrefix(content, prefix) {
		return false
	}
	return true
}

func (e *Events) handleMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.GuildID == "" || m.Author == nil {
		return
	}
	sess, err := e.sessions.Session(m.GuildID)
	if err != nil {
		return // not reading in this guild
	}
	if !shouldRead(sess.MonitoredChannel(), m.ChannelID, m.Content, m.Author.Bot, e.IgnorePrefix) {
		return
	}

	sess.EnqueueMessage(reader.Message{
		AuthorID:      m.Author.ID,
		AuthorName:    displayName(m.Member, m.Author),
		Content:       m.Content,
		HasAttachment: len(m.Attachments) > 0,
	})
}

// voiceEvent classifies a voice state change relative to the session's
// voice channel.
type voiceEvent int

const (
	voiceNone voiceEvent = iota
	voiceJoined
	voiceLeft
)

// classifyVoiceChange maps a channel transition to a presence event.
// Mute, deafen and stream toggles keep the channel unchanged and
// classify as none.
func classifyVoiceChange(oldChannel, newChannel, sessionChannel string) voiceEvent {
	if oldChannel == newChannel {
		return voiceNone
	}
	switch sessionChannel {
	case newChannel:
		return voiceJoined
	case oldChannel:
		return voiceLeft
	}
	return voiceNone
}

func (e *Events) handleVoiceStateUpdate(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	if v.GuildID == "" || v.UserID == s.State.User.ID {
		return
	}
	if v.Member != nil && v.Member.User != nil && v.Member.User.Bot {
		return
	}
	sess, err := e.sessions.Session(v.GuildID)
	if err != nil {
		return
	}

	oldChannel := ""
	if v.BeforeUpdate != nil {
		oldChannel = v.BeforeUpdate.ChannelID
	}

	switch classifyVoiceChange(oldChannel, v.ChannelID, sess.VoiceChannel()) {
	case voiceJoined:
		sess.Announce(reader.JoinNotice(displayName(v.Member, memberUser(v.Member))))
	case voiceLeft:
		sess.Announce(reader.LeaveNotice(displayName(v.Member, memberUser(v.Member))))
		e.maybeLeaveEmptyChannel(s, v.GuildID, sess.VoiceChannel())
	}
}

// maybeLeaveEmptyChannel disconnects the session when no listeners remain
// in its voice channel.
func (e *Events) maybeLeaveEmptyChannel(s *discordgo.Session, guildID, voiceChannel string) {
	guild, err := s.State.Guild(guildID)
	if err != nil {
		return
	}
	for _, vs := range guild.VoiceStates {
		if vs.ChannelID == voiceChannel && vs.UserID != s.State.User.ID {
			return
		}
	}

	e.log.Info("voice channel empty, leaving", "guild_id", guildID)
	if err := e.sessions.Leave(context.Background(), guildID); err != nil {
		e.log.Warn("failed to leave empty channel", "guild_id", guildID, "error", err)
	}
}

func memberUser(m *discordgo.Member) *discordgo.User {
	if m == nil {
		return nil
	}
	return m.User
}

// displayName picks the name spoken for a user: the guild nickname when
// set, otherwise the global display name, otherwise the username.
func displayName(m *discordgo.Member, u *discordgo.User) string {
	if m != nil && m.Nick != "" {
		return m.Nick
	}
	if u == nil {
		return ""
	}
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

// Package discord provides an [audio.Platform] implementation backed by
// Discord voice channels via the bwmarrin/discordgo library. It bridges
// yomu's PCM [audio.Clip] playback model with Discord's Opus-based voice
// transport.
//
// The platform requires an active *discordgo.Session (owned by the bot
// layer). Each call to [Platform.Connect] joins the specified voice channel
// and returns a [Sink] that plays one clip at a time, encoding PCM to Opus
// on the fly.
package discord

import (
	"context"
	"fmt"

	"github.com/MrWong99/yomu/pkg/audio"
	"github.com/bwmarrin/discordgo"
)

// Compile-time interface assertion.
var _ audio.Platform = (*Platform)(nil)

// Platform implements [audio.Platform] using discordgo voice connections.
// It requires an active *discordgo.Session (owned by the bot layer).
//
// Platform is safe for concurrent use.
type Platform struct {
	session *discordgo.Session
}

// New creates a new Discord Platform for the given session.
func New(session *discordgo.Session) *Platform {
	return &Platform{session: session}
}

// Connect joins the voice channel identified by guildID and channelID and
// returns an active [audio.Sink]. The supplied ctx governs the
// connection-setup phase only; once the Sink is returned it lives until
// [Sink.Disconnect] is called.
func (p *Platform) Connect(ctx context.Context, guildID, channelID string) (audio.Sink, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Join the voice channel: mute=false (we send audio), deaf=true (we
	// never consume incoming audio).
	vc, err := p.session.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		return nil, fmt.Errorf("discord: join voice channel %q: %w", channelID, err)
	}

	return newSink(vc), nil
}

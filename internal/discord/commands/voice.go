package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/yomu/internal/discord"
	"github.com/MrWong99/yomu/internal/reader"
)

// joinTimeout bounds the voice gateway handshake.
const joinTimeout = 30 * time.Second

// VoiceCommands holds the dependencies for /join and /leave.
type VoiceCommands struct {
	svc Service
}

// NewVoiceCommands creates a VoiceCommands and registers its handlers
// with the bot's router.
func NewVoiceCommands(bot *discord.Bot, svc Service) *VoiceCommands {
	vc := &VoiceCommands{svc: svc}
	vc.Register(bot.Router())
	return vc
}

// Register registers the /join and /leave commands with the router.
func (vc *VoiceCommands) Register(router *discord.CommandRouter) {
	router.RegisterCommand("join", vc.JoinDefinition(), vc.handleJoin)
	router.RegisterCommand("leave", vc.LeaveDefinition(), vc.handleLeave)
}

// JoinDefinition returns the /join command definition for Discord.
func (vc *VoiceCommands) JoinDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "join",
		Description: "Join a voice channel and read a text channel aloud",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionChannel,
				Name:        "voice_channel",
				Description: "Voice channel to speak in. Defaults to the one you are in.",
				ChannelTypes: []discordgo.ChannelType{
					discordgo.ChannelTypeGuildVoice,
					discordgo.ChannelTypeGuildStageVoice,
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionChannel,
				Name:        "text_channel",
				Description: "Text channel to read aloud. Defaults to this one.",
				ChannelTypes: []discordgo.ChannelType{
					discordgo.ChannelTypeGuildText,
				},
			},
		},
	}
}

// LeaveDefinition returns the /leave command definition for Discord.
func (vc *VoiceCommands) LeaveDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "leave",
		Description: "Stop reading and leave the voice channel",
	}
}

// handleJoin handles /join. The voice and text channel options override the
// invoker's current voice channel and the invoking text channel.
func (vc *VoiceCommands) handleJoin(s *discordgo.Session, i *discordgo.InteractionCreate) {
	guildID := i.GuildID
	userID := interactionUserID(i)

	invokerVoice := ""
	if vs, err := s.State.VoiceState(guildID, userID); err == nil && vs != nil {
		invokerVoice = vs.ChannelID
	}

	voiceChannel, textChannel := joinTargets(optionMap(i.ApplicationCommandData()), invokerVoice, i.ChannelID)
	if voiceChannel == "" {
		discord.RespondEphemeral(s, i, "Join a voice channel or pass the voice_channel option.")
		return
	}

	// Connecting involves a voice gateway handshake, so defer the reply.
	discord.DeferReply(s, i)

	ctx, cancel := context.WithTimeout(context.Background(), joinTimeout)
	defer cancel()

	if err := vc.svc.Join(ctx, guildID, voiceChannel, textChannel); err != nil {
		if errors.Is(err, reader.ErrAlreadyConnected) {
			discord.FollowUp(s, i, "Already reading in this guild. Use /leave first.")
			return
		}
		discord.FollowUp(s, i, fmt.Sprintf("Failed to join: %v", err))
		return
	}

	discord.FollowUp(s, i, fmt.Sprintf("Reading <#%s> aloud in <#%s>.", textChannel, voiceChannel))
}

// joinTargets resolves the voice and text channel for /join. Explicit
// options win; otherwise the invoker's voice channel and the invoking text
// channel are used. An empty voice channel means the invoker is not in
// voice and gave no override.
func joinTargets(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, invokerVoice, invokingChannel string) (voiceChannel, textChannel string) {
	voiceChannel = invokerVoice
	if opt, ok := opts["voice_channel"]; ok {
		voiceChannel = opt.ChannelValue(nil).ID
	}
	textChannel = invokingChannel
	if opt, ok := opts["text_channel"]; ok {
		textChannel = opt.ChannelValue(nil).ID
	}
	return voiceChannel, textChannel
}

// handleLeave handles /leave.
func (vc *VoiceCommands) handleLeave(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), joinTimeout)
	defer cancel()

	if err := vc.svc.Leave(ctx, i.GuildID); err != nil {
		if errors.Is(err, reader.ErrNotConnected) {
			discord.RespondEphemeral(s, i, "Not reading in this guild.")
			return
		}
		discord.RespondError(s, i, fmt.Errorf("leave: %w", err))
		return
	}

	discord.RespondEphemeral(s, i, "Left the voice channel.")
}

package commands

import (
	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/yomu/internal/discord"
)

// HelpCommands implements /help.
type HelpCommands struct{}

// NewHelpCommands creates a HelpCommands and registers its handler with
// the bot's router.
func NewHelpCommands(bot *discord.Bot) *HelpCommands {
	hc := &HelpCommands{}
	hc.Register(bot.Router())
	return hc
}

// Register registers the /help command with the router.
func (hc *HelpCommands) Register(router *discord.CommandRouter) {
	router.RegisterCommand("help", hc.Definition(), hc.handleHelp)
}

// Definition returns the /help command definition for Discord.
func (hc *HelpCommands) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "help",
		Description: "Show how to use the read-aloud bot",
	}
}

func (hc *HelpCommands) handleHelp(s *discordgo.Session, i *discordgo.InteractionCreate) {
	discord.RespondEmbed(s, i, &discordgo.MessageEmbed{
		Title: "yomu — text to speech",
		Description: "Reads this text channel aloud in your voice channel.\n" +
			"Messages are read in arrival order, one at a time.",
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:  "/join",
				Value: "Start reading. Defaults to your voice channel and this text channel; both can be overridden with the channel options.",
			},
			{
				Name:  "/leave",
				Value: "Stop reading and disconnect.",
			},
			{
				Name:  "/speaker set · /speaker list",
				Value: "Pick the reading voice. Suggestions appear as you type.",
			},
			{
				Name:  "/dictionary add · remove · list",
				Value: "Replace words before they are read, e.g. abbreviations or usernames. Patterns may be regular expressions.",
			},
		},
	})
}

package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/yomu/internal/discord"
	"github.com/MrWong99/yomu/internal/reader"
)

// DictionaryCommands holds the dependencies for the /dictionary command
// group.
type DictionaryCommands struct {
	svc Service
}

// NewDictionaryCommands creates a DictionaryCommands and registers its
// handlers with the bot's router.
func NewDictionaryCommands(bot *discord.Bot, svc Service) *DictionaryCommands {
	dc := &DictionaryCommands{svc: svc}
	dc.Register(bot.Router())
	return dc
}

// Register registers the /dictionary command group with the router.
func (dc *DictionaryCommands) Register(router *discord.CommandRouter) {
	router.RegisterCommand("dictionary", dc.Definition(), func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		discord.RespondEphemeral(s, i, "Please use a subcommand: `/dictionary add`, `/dictionary remove` or `/dictionary list`.")
	})
	router.RegisterHandler("dictionary/add", dc.handleAdd)
	router.RegisterHandler("dictionary/remove", dc.handleRemove)
	router.RegisterHandler("dictionary/list", dc.handleList)
	router.RegisterAutocomplete("dictionary/remove", dc.autocompleteRule)
}

// Definition returns the ApplicationCommand definition for Discord.
func (dc *DictionaryCommands) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "dictionary",
		Description: "Edit the pronunciation dictionary",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "add",
				Description: "Add a replacement rule",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "pattern",
						Description: "Text to replace before reading",
						Required:    true,
					},
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "replacement",
						Description: "What to say instead",
						Required:    true,
					},
					{
						Type:        discordgo.ApplicationCommandOptionBoolean,
						Name:        "regex",
						Description: "Treat the pattern as a regular expression",
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "remove",
				Description: "Remove a replacement rule",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:         discordgo.ApplicationCommandOptionString,
						Name:         "rule",
						Description:  "The rule to remove (or its position)",
						Required:     true,
						Autocomplete: true,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "list",
				Description: "Show the current rules",
			},
		},
	}
}

// handleAdd handles /dictionary add.
func (dc *DictionaryCommands) handleAdd(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := optionMap(i.ApplicationCommandData())
	pattern := opts["pattern"].StringValue()
	replacement := opts["replacement"].StringValue()
	isRegex := false
	if o, ok := opts["regex"]; ok {
		isRegex = o.BoolValue()
	}

	if _, err := dc.svc.AddRule(i.GuildID, pattern, replacement, isRegex); err != nil {
		discord.RespondError(s, i, fmt.Errorf("add rule: %w", err))
		return
	}

	kind := ""
	if isRegex {
		kind = " (regex)"
	}
	discord.RespondEphemeral(s, i, fmt.Sprintf("Added rule%s: `%s` → `%s`", kind, pattern, replacement))
}

// handleRemove handles /dictionary remove. The rule option carries either
// an opaque id picked from autocomplete or a zero-based position typed by
// hand.
func (dc *DictionaryCommands) handleRemove(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := optionMap(i.ApplicationCommandData())
	raw := opts["rule"].StringValue()

	var (
		removed reader.Rule
		err     error
	)
	if index, convErr := strconv.Atoi(raw); convErr == nil {
		removed, err = dc.svc.RemoveRule(i.GuildID, index)
	} else {
		removed, err = dc.svc.RemoveRuleByID(i.GuildID, raw)
	}
	if err != nil {
		if errors.Is(err, reader.ErrIndexOutOfRange) {
			discord.RespondEphemeral(s, i, "No such rule. Use /dictionary list.")
			return
		}
		discord.RespondError(s, i, fmt.Errorf("remove rule: %w", err))
		return
	}

	discord.RespondEphemeral(s, i, fmt.Sprintf("Removed rule: `%s` → `%s`", removed.Pattern, removed.Replacement))
}

// handleList handles /dictionary list.
func (dc *DictionaryCommands) handleList(s *discordgo.Session, i *discordgo.InteractionCreate) {
	rules, err := dc.svc.Rules(i.GuildID)
	if err != nil {
		discord.RespondError(s, i, fmt.Errorf("list rules: %w", err))
		return
	}
	if len(rules) == 0 {
		discord.RespondEphemeral(s, i, "The dictionary is empty.")
		return
	}

	var b strings.Builder
	for idx, r := range rules {
		kind := ""
		if r.IsRegex {
			kind = " (regex)"
		}
		fmt.Fprintf(&b, "`%d` `%s` → `%s`%s\n", idx, r.Pattern, r.Replacement, kind)
		if b.Len() > 3800 {
			b.WriteString("…\n")
			break
		}
	}

	discord.RespondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       "Pronunciation dictionary",
		Description: b.String(),
	})
}

// autocompleteRule suggests removable rules matching the typed query.
func (dc *DictionaryCommands) autocompleteRule(s *discordgo.Session, i *discordgo.InteractionCreate) {
	rules, err := dc.svc.Rules(i.GuildID)
	if err != nil {
		discord.RespondChoices(s, i, nil)
		return
	}

	query := strings.ToLower(focusedValue(i.ApplicationCommandData()))
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, maxChoices)
	for idx, r := range rules {
		label := fmt.Sprintf("%d: %s → %s", idx, r.Pattern, r.Replacement)
		if query != "" && !strings.Contains(strings.ToLower(label), query) {
			continue
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  truncateChoice(label),
			Value: r.ID,
		})
		if len(choices) == maxChoices {
			break
		}
	}
	discord.RespondChoices(s, i, choices)
}

// truncateChoice keeps a choice label within Discord's 100 character cap.
func truncateChoice(s string) string {
	const max = 100
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

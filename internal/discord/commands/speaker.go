package commands

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/antzucaro/matchr"
	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/yomu/internal/discord"
	"github.com/MrWong99/yomu/pkg/speech"
)

// maxChoices is the Discord cap on autocomplete choices.
const maxChoices = 25

// SpeakerCommands holds the dependencies for the /speaker command group.
type SpeakerCommands struct {
	svc Service
}

// NewSpeakerCommands creates a SpeakerCommands and registers its handlers
// with the bot's router.
func NewSpeakerCommands(bot *discord.Bot, svc Service) *SpeakerCommands {
	sc := &SpeakerCommands{svc: svc}
	sc.Register(bot.Router())
	return sc
}

// Register registers the /speaker command group with the router.
func (sc *SpeakerCommands) Register(router *discord.CommandRouter) {
	router.RegisterCommand("speaker", sc.Definition(), func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		discord.RespondEphemeral(s, i, "Please use a subcommand: `/speaker set` or `/speaker list`.")
	})
	router.RegisterHandler("speaker/set", sc.handleSet)
	router.RegisterHandler("speaker/list", sc.handleList)
	router.RegisterAutocomplete("speaker/set", sc.autocompleteVoice)
}

// Definition returns the ApplicationCommand definition for Discord.
func (sc *SpeakerCommands) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "speaker",
		Description: "Choose the reading voice",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "set",
				Description: "Switch to a different voice",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:         discordgo.ApplicationCommandOptionString,
						Name:         "voice",
						Description:  "The voice to read with",
						Required:     true,
						Autocomplete: true,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "list",
				Description: "Show the available voices",
			},
		},
	}
}

// handleSet handles /speaker set.
func (sc *SpeakerCommands) handleSet(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := optionMap(i.ApplicationCommandData())
	raw, ok := opts["voice"]
	if !ok {
		discord.RespondEphemeral(s, i, "The voice option is required.")
		return
	}

	id, err := strconv.Atoi(raw.StringValue())
	if err != nil {
		discord.RespondEphemeral(s, i, "Pick a voice from the suggestions.")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := sc.svc.SetSpeaker(ctx, i.GuildID, id); err != nil {
		if errors.Is(err, speech.ErrUnknownSpeaker) {
			discord.RespondEphemeral(s, i, fmt.Sprintf("Voice %d does not exist. Use /speaker list.", id))
			return
		}
		discord.RespondError(s, i, fmt.Errorf("set speaker: %w", err))
		return
	}

	name := speakerName(sc.svc.Speakers(), id)
	discord.RespondEphemeral(s, i, fmt.Sprintf("Reading voice set to **%s** (%d).", name, id))
}

// handleList handles /speaker list.
func (sc *SpeakerCommands) handleList(s *discordgo.Session, i *discordgo.InteractionCreate) {
	speakers := sc.svc.Speakers()
	if len(speakers) == 0 {
		discord.RespondEphemeral(s, i, "The speech engine reported no voices.")
		return
	}

	current := sc.svc.Speaker(i.GuildID)
	var b strings.Builder
	for _, sp := range speakers {
		marker := ""
		if sp.ID == current {
			marker = " ← current"
		}
		fmt.Fprintf(&b, "`%d` %s%s\n", sp.ID, sp.Name, marker)
		if b.Len() > 3800 {
			b.WriteString("…\n")
			break
		}
	}

	discord.RespondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       "Available voices",
		Description: b.String(),
	})
}

// autocompleteVoice suggests voices ranked by similarity to the typed
// query.
func (sc *SpeakerCommands) autocompleteVoice(s *discordgo.Session, i *discordgo.InteractionCreate) {
	query := focusedValue(i.ApplicationCommandData())
	ranked := rankSpeakers(query, sc.svc.Speakers(), maxChoices)

	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(ranked))
	for _, sp := range ranked {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  fmt.Sprintf("%s (%d)", sp.Name, sp.ID),
			Value: strconv.Itoa(sp.ID),
		})
	}
	discord.RespondChoices(s, i, choices)
}

// rankSpeakers orders the catalogue by relevance to query and returns at
// most limit entries. An empty query keeps catalogue order. Substring
// matches outrank pure string distance hits, which are scored with
// Jaro-Winkler so typos still find their voice.
func rankSpeakers(query string, speakers []speech.Speaker, limit int) []speech.Speaker {
	out := make([]speech.Speaker, len(speakers))
	copy(out, speakers)

	if query != "" {
		q := strings.ToLower(query)
		score := func(sp speech.Speaker) float64 {
			name := strings.ToLower(sp.Name)
			s := matchr.JaroWinkler(q, name, false)
			if strings.Contains(name, q) || strings.Contains(strconv.Itoa(sp.ID), q) {
				s += 1
			}
			return s
		}
		sort.SliceStable(out, func(a, b int) bool {
			return score(out[a]) > score(out[b])
		})
	}

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// focusedValue returns the string the user has typed into the focused
// autocomplete option.
func focusedValue(data discordgo.ApplicationCommandInteractionData) string {
	opts := data.Options
	if len(opts) == 1 && opts[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		opts = opts[0].Options
	}
	for _, o := range opts {
		if o.Focused {
			return o.StringValue()
		}
	}
	return ""
}

func speakerName(speakers []speech.Speaker, id int) string {
	for _, sp := range speakers {
		if sp.ID == id {
			return sp.Name
		}
	}
	return "unknown"
}

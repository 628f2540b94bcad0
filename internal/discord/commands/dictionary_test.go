package commands

import (
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
)

func TestDictionaryDefinition(t *testing.T) {
	t.Parallel()

	dc := &DictionaryCommands{}
	def := dc.Definition()

	if def.Name != "dictionary" {
		t.Errorf("Name = %q, want %q", def.Name, "dictionary")
	}

	expectedSubs := []string{"add", "remove", "list"}
	if len(def.Options) != len(expectedSubs) {
		t.Fatalf("Options count = %d, want %d", len(def.Options), len(expectedSubs))
	}
	for i, name := range expectedSubs {
		if def.Options[i].Name != name {
			t.Errorf("subcommand[%d] = %q, want %q", i, def.Options[i].Name, name)
		}
	}

	addOpts := def.Options[0].Options
	if len(addOpts) != 3 {
		t.Fatalf("add options count = %d, want 3", len(addOpts))
	}
	if !addOpts[0].Required || !addOpts[1].Required {
		t.Error("pattern and replacement must be required")
	}
	if addOpts[2].Name != "regex" || addOpts[2].Required {
		t.Errorf("regex option = %+v, want optional boolean", addOpts[2])
	}

	removeOpts := def.Options[1].Options
	if len(removeOpts) != 1 || !removeOpts[0].Autocomplete {
		t.Errorf("remove options = %+v, want one autocompleted option", removeOpts)
	}
}

func TestTruncateChoice(t *testing.T) {
	t.Parallel()

	short := "0: a → b"
	if got := truncateChoice(short); got != short {
		t.Errorf("truncateChoice(short) = %q, want unchanged", got)
	}

	long := strings.Repeat("あ", 150)
	got := truncateChoice(long)
	if runes := []rune(got); len(runes) != 100 {
		t.Errorf("truncated length = %d runes, want 100", len(runes))
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("truncated choice missing ellipsis: %q", got)
	}
}

func TestOptionMap(t *testing.T) {
	t.Parallel()

	data := discordgo.ApplicationCommandInteractionData{
		Name: "dictionary",
		Options: []*discordgo.ApplicationCommandInteractionDataOption{
			{
				Name: "add",
				Type: discordgo.ApplicationCommandOptionSubCommand,
				Options: []*discordgo.ApplicationCommandInteractionDataOption{
					{Name: "pattern", Type: discordgo.ApplicationCommandOptionString, Value: "abc"},
					{Name: "replacement", Type: discordgo.ApplicationCommandOptionString, Value: "xyz"},
				},
			},
		},
	}

	m := optionMap(data)
	if len(m) != 2 {
		t.Fatalf("optionMap returned %d entries, want 2", len(m))
	}
	if m["pattern"].StringValue() != "abc" || m["replacement"].StringValue() != "xyz" {
		t.Errorf("optionMap = %+v", m)
	}
}

func TestInteractionUserID(t *testing.T) {
	t.Parallel()

	guild := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Member: &discordgo.Member{User: &discordgo.User{ID: "u1"}},
	}}
	if got := interactionUserID(guild); got != "u1" {
		t.Errorf("interactionUserID(guild) = %q, want %q", got, "u1")
	}

	dm := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		User: &discordgo.User{ID: "u2"},
	}}
	if got := interactionUserID(dm); got != "u2" {
		t.Errorf("interactionUserID(dm) = %q, want %q", got, "u2")
	}

	empty := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{}}
	if got := interactionUserID(empty); got != "" {
		t.Errorf("interactionUserID(empty) = %q, want empty", got)
	}
}

// Package app wires the yomu subsystems into a running application and
// implements the command service the Discord layer drives.
//
// The App owns the session registry, the preference store and the speech
// provider. For testing, inject mock implementations via functional
// options (WithProvider, WithPlatform). When an option is not provided,
// New creates real implementations from the config.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/MrWong99/yomu/internal/config"
	"github.com/MrWong99/yomu/internal/discord"
	"github.com/MrWong99/yomu/internal/discord/commands"
	"github.com/MrWong99/yomu/internal/observe"
	"github.com/MrWong99/yomu/internal/reader"
	"github.com/MrWong99/yomu/internal/store"
	"github.com/MrWong99/yomu/pkg/audio"
	"github.com/MrWong99/yomu/pkg/speech"
	"github.com/MrWong99/yomu/pkg/speech/elevenlabs"
	"github.com/MrWong99/yomu/pkg/speech/gtts"
	"github.com/MrWong99/yomu/pkg/speech/voicevox"
)

// Compile-time interface checks.
var (
	_ commands.Service      = (*App)(nil)
	_ discord.SessionSource = (*App)(nil)
)

// App owns all subsystem lifetimes and serves the slash commands and
// event ingest.
type App struct {
	cfg      *config.Config
	registry *reader.Registry
	prefs    *store.Store
	synth    speech.Provider
	platform audio.Platform
	metrics  *observe.Metrics
	log      *slog.Logger

	// offline holds dictionaries edited while a guild has no live
	// session, keyed by guild id.
	mu      sync.Mutex
	offline map[string]*reader.Dictionary

	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithProvider injects a speech provider instead of creating one from
// config.
func WithProvider(p speech.Provider) Option {
	return func(a *App) { a.synth = p }
}

// WithPlatform injects an audio platform. Required: the Discord layer
// passes its voice platform here, tests pass a mock.
func WithPlatform(p audio.Platform) Option {
	return func(a *App) { a.platform = p }
}

// WithStore injects an opened preference store.
func WithStore(s *store.Store) Option {
	return func(a *App) { a.prefs = s }
}

// WithLogger overrides the default logger.
func WithLogger(log *slog.Logger) Option {
	return func(a *App) { a.log = log }
}

// New creates an App by wiring all subsystems together.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{
		cfg:     cfg,
		metrics: observe.DefaultMetrics(),
		offline: make(map[string]*reader.Dictionary),
	}
	for _, o := range opts {
		o(a)
	}
	if a.log == nil {
		a.log = slog.Default()
	}
	a.registry = reader.NewRegistry(a.metrics)

	if a.prefs == nil {
		dir := cfg.Store.Dir
		if dir == "" {
			dir = "./data"
		}
		s, err := store.Open(dir, a.log)
		if err != nil {
			return nil, fmt.Errorf("app: open preference store: %w", err)
		}
		a.prefs = s
	}

	if a.synth == nil {
		p, err := buildProvider(ctx, cfg.Speech)
		if err != nil {
			return nil, fmt.Errorf("app: build speech provider: %w", err)
		}
		a.synth = p
	}

	if a.platform == nil {
		return nil, fmt.Errorf("app: an audio platform is required (WithPlatform)")
	}

	return a, nil
}

// buildProvider constructs the configured speech engine.
func buildProvider(ctx context.Context, entry config.ProviderEntry) (speech.Provider, error) {
	switch entry.Name {
	case "voicevox":
		return voicevox.New(ctx, entry.BaseURL)
	case "elevenlabs":
		var opts []elevenlabs.Option
		if entry.Model != "" {
			opts = append(opts, elevenlabs.WithModel(entry.Model))
		}
		return elevenlabs.New(ctx, entry.APIKey, opts...)
	case "gtts":
		return gtts.New(), nil
	default:
		return nil, fmt.Errorf("unknown speech provider %q", entry.Name)
	}
}

// Registry exposes the session registry for the presence updater.
func (a *App) Registry() *reader.Registry {
	return a.registry
}

// Speakers lists the engine's voice catalogue.
func (a *App) Speakers() []speech.Speaker {
	return a.synth.Speakers()
}

// Session returns the guild's live session, or reader.ErrNotConnected.
func (a *App) Session(guildID string) (*reader.Session, error) {
	return a.registry.Get(guildID)
}

// defaultSpeaker resolves the engine-wide fallback voice.
func (a *App) defaultSpeaker() int {
	if a.cfg.Reading.DefaultSpeaker > 0 {
		return a.cfg.Reading.DefaultSpeaker
	}
	return 1
}

// Speaker returns the guild's effective speaker id: the live session's,
// else the stored preference, else the default.
func (a *App) Speaker(guildID string) int {
	if sess, err := a.registry.Get(guildID); err == nil {
		return sess.Speaker()
	}
	if id, ok := a.prefs.Speaker(guildID); ok {
		return id
	}
	return a.defaultSpeaker()
}

// Join connects to a voice channel and starts a reading session for the
// guild, restoring its stored voice and dictionary. The session greets
// the channel once connected.
func (a *App) Join(ctx context.Context, guildID, voiceChannelID, textChannelID string) error {
	if _, err := a.registry.Get(guildID); err == nil {
		return fmt.Errorf("app: join guild %s: %w", guildID, reader.ErrAlreadyConnected)
	}

	sink, err := a.platform.Connect(ctx, guildID, voiceChannelID)
	if err != nil {
		return fmt.Errorf("app: connect voice: %w", err)
	}

	speakerID := a.defaultSpeaker()
	if id, ok := a.prefs.Speaker(guildID); ok && speech.HasSpeaker(a.synth, id) {
		speakerID = id
	}

	sess, err := a.registry.Create(ctx, reader.Config{
		GuildID:          guildID,
		MonitoredChannel: textChannelID,
		VoiceChannel:     voiceChannelID,
		Sink:             sink,
		Synth:            a.synth,
		SpeakerID:        speakerID,
		NamePrefix:       reader.NamePrefixPolicy(a.cfg.Reading.NamePrefix),
		SynthesisTimeout: a.cfg.Speech.SynthesisTimeout.Std(),
		Metrics:          a.metrics,
		Logger:           a.log,
	})
	if err != nil {
		if derr := sink.Disconnect(); derr != nil {
			a.log.Warn("failed to release sink after create race", "guild_id", guildID, "error", derr)
		}
		return err
	}

	a.mu.Lock()
	offline := a.offline[guildID]
	delete(a.offline, guildID)
	a.mu.Unlock()
	if offline != nil {
		sess.Dictionary().Restore(offline.Snapshot())
	} else {
		sess.Dictionary().Restore(a.prefs.Dictionary(guildID))
	}

	sess.Announce(reader.Greeting)
	a.log.Info("reading session started",
		"guild_id", guildID, "voice_channel", voiceChannelID, "text_channel", textChannelID)
	return nil
}

// Leave persists the guild's preferences and tears its session down.
func (a *App) Leave(ctx context.Context, guildID string) error {
	sess, err := a.registry.Get(guildID)
	if err != nil {
		return err
	}

	a.prefs.SetSpeaker(guildID, sess.Speaker())
	a.prefs.SetDictionary(guildID, sess.Dictionary().Snapshot())
	if err := a.prefs.Save(); err != nil {
		a.log.Warn("failed to persist preferences on leave", "guild_id", guildID, "error", err)
	}

	return a.registry.Destroy(ctx, guildID)
}

// SetSpeaker persists the guild's voice choice and applies it to the live
// session if any.
func (a *App) SetSpeaker(_ context.Context, guildID string, id int) error {
	if !speech.HasSpeaker(a.synth, id) {
		return fmt.Errorf("app: set speaker %d: %w", id, speech.ErrUnknownSpeaker)
	}
	if sess, err := a.registry.Get(guildID); err == nil {
		if err := sess.SetSpeaker(id); err != nil {
			return err
		}
	}
	a.prefs.SetSpeaker(guildID, id)
	if err := a.prefs.Save(); err != nil {
		return fmt.Errorf("app: persist speaker: %w", err)
	}
	return nil
}

// dictionary returns the guild's live dictionary, or its offline one
// (lazily restored from the store).
func (a *App) dictionary(guildID string) *reader.Dictionary {
	if sess, err := a.registry.Get(guildID); err == nil {
		return sess.Dictionary()
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	d, ok := a.offline[guildID]
	if !ok {
		d = reader.NewDictionary()
		d.Restore(a.prefs.Dictionary(guildID))
		a.offline[guildID] = d
	}
	return d
}

// persistDictionary writes the dictionary's current state to the store.
func (a *App) persistDictionary(guildID string, d *reader.Dictionary) error {
	a.prefs.SetDictionary(guildID, d.Snapshot())
	if err := a.prefs.Save(); err != nil {
		return fmt.Errorf("app: persist dictionary: %w", err)
	}
	return nil
}

// AddRule appends a dictionary rule and returns its id.
func (a *App) AddRule(guildID, pattern, replacement string, isRegex bool) (string, error) {
	d := a.dictionary(guildID)
	id := d.Add(pattern, replacement, isRegex)
	if err := a.persistDictionary(guildID, d); err != nil {
		return "", err
	}
	return id, nil
}

// RemoveRule deletes the rule at a zero-based position.
func (a *App) RemoveRule(guildID string, index int) (reader.Rule, error) {
	d := a.dictionary(guildID)
	r, err := d.RemoveAt(index)
	if err != nil {
		return reader.Rule{}, err
	}
	return r, a.persistDictionary(guildID, d)
}

// RemoveRuleByID deletes the rule with the given id.
func (a *App) RemoveRuleByID(guildID, id string) (reader.Rule, error) {
	d := a.dictionary(guildID)
	r, err := d.RemoveByID(id)
	if err != nil {
		return reader.Rule{}, err
	}
	return r, a.persistDictionary(guildID, d)
}

// Rules lists the guild's dictionary rules in application order.
func (a *App) Rules(guildID string) ([]reader.Rule, error) {
	return a.dictionary(guildID).Rules(), nil
}

// Shutdown tears down all sessions and flushes preferences. It respects
// the context deadline for the session teardown.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		a.log.Info("shutting down", "sessions", a.registry.Len())

		a.registry.Each(func(s *reader.Session) {
			a.prefs.SetSpeaker(s.GuildID(), s.Speaker())
			a.prefs.SetDictionary(s.GuildID(), s.Dictionary().Snapshot())
		})

		done := make(chan error, 1)
		go func() { done <- a.registry.DestroyAll(ctx) }()
		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("session teardown error", "error", err)
			}
		case <-ctx.Done():
			a.log.Warn("shutdown deadline exceeded before sessions closed")
			shutdownErr = ctx.Err()
		}

		if err := a.prefs.Save(); err != nil {
			a.log.Warn("failed to flush preference store", "error", err)
			if shutdownErr == nil {
				shutdownErr = err
			}
		}

		a.log.Info("shutdown complete")
	})
	return shutdownErr
}

// Package reader implements the per-guild read-aloud engine: the text
// normalisation pipeline, the replacement dictionary, and the session
// actor that serialises synthesis and playback so that at most one item
// sounds per guild at any time.
package reader

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MrWong99/yomu/internal/observe"
	"github.com/MrWong99/yomu/pkg/audio"
	"github.com/MrWong99/yomu/pkg/speech"
)

// NamePrefixPolicy controls when the author attribution prefix is spoken.
type NamePrefixPolicy string

const (
	// PrefixAlways speaks the author name before every message.
	PrefixAlways NamePrefixPolicy = "always"

	// PrefixOnChange speaks the author name only when it differs from
	// the previous message's author.
	PrefixOnChange NamePrefixPolicy = "on_change"
)

// DefaultSynthesisTimeout bounds a single synthesis call when the session
// config does not override it.
const DefaultSynthesisTimeout = 30 * time.Second

// Config carries everything a Session needs. GuildID, Sink and Synth are
// required; the rest have sensible zero-value fallbacks.
type Config struct {
	GuildID          string
	MonitoredChannel string
	VoiceChannel     string
	Sink             audio.Sink
	Synth            speech.Provider
	SpeakerID        int
	NamePrefix       NamePrefixPolicy
	SynthesisTimeout time.Duration
	Metrics          *observe.Metrics
	Logger           *slog.Logger
}

// Session is the read-aloud engine for one guild. Messages are queued in
// arrival order and spoken strictly sequentially by a single actor
// goroutine; producers never block on playback.
type Session struct {
	guildID          string
	monitoredChannel string
	voiceChannel     string
	sink             audio.Sink
	synth            speech.Provider
	dict             *Dictionary
	metrics          *observe.Metrics
	log              *slog.Logger
	synthTimeout     time.Duration
	namePrefix       NamePrefixPolicy

	mu         sync.Mutex
	queue      []string
	playing    bool
	closed     bool
	speakerID  int
	lastAuthor string

	wake   chan struct{}
	cancel context.CancelFunc
	done   chan struct{}
}

func newSession(ctx context.Context, cfg Config) *Session {
	if cfg.SynthesisTimeout <= 0 {
		cfg.SynthesisTimeout = DefaultSynthesisTimeout
	}
	if cfg.NamePrefix == "" {
		cfg.NamePrefix = PrefixAlways
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		guildID:          cfg.GuildID,
		monitoredChannel: cfg.MonitoredChannel,
		voiceChannel:     cfg.VoiceChannel,
		sink:             cfg.Sink,
		synth:            cfg.Synth,
		dict:             NewDictionary(),
		metrics:          cfg.Metrics,
		log:              cfg.Logger.With("guild_id", cfg.GuildID),
		synthTimeout:     cfg.SynthesisTimeout,
		namePrefix:       cfg.NamePrefix,
		speakerID:        cfg.SpeakerID,
		wake:             make(chan struct{}, 1),
		cancel:           cancel,
		done:             make(chan struct{}),
	}
	go s.run(ctx)
	return s
}

// GuildID returns the guild this session reads for.
func (s *Session) GuildID() string { return s.guildID }

// MonitoredChannel returns the text channel whose messages are read aloud.
func (s *Session) MonitoredChannel() string { return s.monitoredChannel }

// VoiceChannel returns the voice channel the session plays into.
func (s *Session) VoiceChannel() string { return s.voiceChannel }

// Dictionary returns the session's replacement dictionary.
func (s *Session) Dictionary() *Dictionary { return s.dict }

// Speaker returns the current speaker id.
func (s *Session) Speaker() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speakerID
}

// SetSpeaker switches the voice used for subsequent items. Items already
// queued are also affected since the speaker is resolved at synthesis
// time. Returns speech.ErrUnknownSpeaker if the provider does not offer
// the id.
func (s *Session) SetSpeaker(id int) error {
	if !speech.HasSpeaker(s.synth, id) {
		return fmt.Errorf("reader: set speaker %d: %w", id, speech.ErrUnknownSpeaker)
	}
	s.mu.Lock()
	s.speakerID = id
	s.mu.Unlock()
	return nil
}

// Playing reports whether an item is currently sounding.
func (s *Session) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

// QueueLen reports the number of items waiting to be spoken, not counting
// one that is currently sounding.
func (s *Session) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// EnqueueMessage normalises a chat message and appends it to the speech
// queue. Never blocks on playback.
func (s *Session) EnqueueMessage(msg Message) {
	s.mu.Lock()
	withName := s.namePrefix == PrefixAlways || msg.AuthorID != s.lastAuthor
	s.lastAuthor = msg.AuthorID
	s.mu.Unlock()

	s.enqueue(Normalize(msg, s.dict, withName))
}

// Announce appends a pre-formed notice (join greeting, presence change)
// to the speech queue, bypassing normalisation. The next chat message is
// treated as an author change so its name prefix is spoken.
func (s *Session) Announce(text string) {
	s.mu.Lock()
	s.lastAuthor = ""
	s.mu.Unlock()
	s.enqueue(text)
}

func (s *Session) enqueue(text string) {
	s.mu.Lock()
	if s.closed {
		// A producer can still hold a reference after the registry
		// destroyed the session; the item must not land in metrics
		// the drain loop will never balance.
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, text)
	s.mu.Unlock()
	s.metrics.RecordEnqueued(context.Background(), s.guildID)

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// run is the session actor. It owns the drain loop; exactly one item is
// synthesised and played at a time, in queue order.
func (s *Session) run(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.wake:
		}
		s.drainQueue(ctx)
	}
}

func (s *Session) drainQueue(ctx context.Context) {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 || ctx.Err() != nil {
			s.mu.Unlock()
			return
		}
		text := s.queue[0]
		s.queue = s.queue[1:]
		speakerID := s.speakerID
		s.mu.Unlock()

		s.metrics.RecordDequeued(ctx, s.guildID)
		s.speak(ctx, text, speakerID)
	}
}

// speak synthesises one item and plays it to completion. Failures drop the
// item and let draining continue; they never wedge the queue.
func (s *Session) speak(ctx context.Context, text string, speakerID int) {
	synthCtx, cancel := context.WithTimeout(ctx, s.synthTimeout)
	start := time.Now()
	wav, err := s.synth.Synthesize(synthCtx, text, speakerID)
	cancel()
	s.metrics.RecordSynthesis(ctx, s.guildID, time.Since(start).Seconds())
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.log.Error("synthesis failed, dropping item", "error", err)
		s.metrics.RecordDropped(ctx, s.guildID, "synthesis")
		return
	}

	clip, err := audio.DecodeWAV(wav)
	if err != nil {
		s.log.Error("engine returned undecodable audio, dropping item", "error", err)
		s.metrics.RecordDropped(ctx, s.guildID, "synthesis")
		return
	}

	s.mu.Lock()
	s.playing = true
	s.mu.Unlock()
	s.metrics.SoundingItems.Add(ctx, 1)
	defer func() {
		s.mu.Lock()
		s.playing = false
		s.mu.Unlock()
		s.metrics.SoundingItems.Add(ctx, -1)
	}()

	playDone := make(chan error, 1)
	playStart := time.Now()
	if err := s.sink.Play(clip, func(err error) { playDone <- err }); err != nil {
		s.log.Error("playback did not start, dropping item", "error", err)
		s.metrics.RecordDropped(ctx, s.guildID, "playback")
		return
	}

	select {
	case err = <-playDone:
	case <-ctx.Done():
		// Session is being destroyed; cut playback and wait for the
		// sink to confirm before releasing the connection.
		s.sink.Stop()
		err = <-playDone
	}
	if err != nil {
		s.log.Error("playback failed", "error", err)
		s.metrics.RecordDropped(ctx, s.guildID, "playback")
		return
	}
	s.metrics.RecordSpoken(ctx, s.guildID, time.Since(playStart).Seconds())
}

// close stops the actor, discards pending items and disconnects the sink.
// Called by the registry; idempotent via the registry's own bookkeeping.
func (s *Session) close() error {
	s.cancel()
	<-s.done

	s.mu.Lock()
	s.closed = true
	dropped := len(s.queue)
	s.queue = nil
	s.mu.Unlock()
	if dropped > 0 {
		s.log.Info("discarded pending items on disconnect", "count", dropped)
		s.metrics.RecordDiscarded(context.Background(), s.guildID, dropped)
	}

	if err := s.sink.Disconnect(); err != nil {
		return fmt.Errorf("reader: disconnect sink: %w", err)
	}
	return nil
}

package reader

import (
	"context"
	"errors"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/MrWong99/yomu/internal/observe"
	audiomock "github.com/MrWong99/yomu/pkg/audio/mock"
	"github.com/MrWong99/yomu/pkg/speech"
	speechmock "github.com/MrWong99/yomu/pkg/speech/mock"

	"github.com/MrWong99/yomu/pkg/audio"
)

// testWAV is a minimal decodable clip the mock provider hands back.
var testWAV = audio.EncodeWAV(audio.Clip{
	PCM:    make([]byte, 640),
	Format: audio.Format{SampleRate: 16000, Channels: 1},
})

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func newTestSession(t *testing.T, cfg Config) (*Session, func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	if cfg.GuildID == "" {
		cfg.GuildID = "guild-1"
	}
	if cfg.SpeakerID == 0 {
		cfg.SpeakerID = 1
	}
	s := newSession(ctx, cfg)
	return s, func() {
		cancel()
		<-s.done
	}
}

func TestSessionSpeaksInOrder(t *testing.T) {
	t.Parallel()

	sink := &audiomock.Sink{AutoComplete: true}
	synth := &speechmock.Provider{Result: testWAV}
	s, stop := newTestSession(t, Config{Sink: sink, Synth: synth})
	defer stop()

	s.EnqueueMessage(Message{AuthorID: "u1", AuthorName: "alice", Content: "one"})
	s.EnqueueMessage(Message{AuthorID: "u2", AuthorName: "bob", Content: "two"})
	s.EnqueueMessage(Message{AuthorID: "u3", AuthorName: "carol", Content: "three"})

	waitFor(t, func() bool { return sink.PlayCount() == 3 })

	got := synth.CallTexts()
	want := []string{"aliceさん、one", "bobさん、two", "carolさん、three"}
	if len(got) != len(want) {
		t.Fatalf("synthesized %d items, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("item %d = %q, want %q", i, got[i], want[i])
		}
	}
	if c := sink.Concurrency(); c > 1 {
		t.Errorf("observed %d concurrent playbacks, want at most 1", c)
	}
}

func TestSessionOneItemSoundsAtATime(t *testing.T) {
	t.Parallel()

	sink := &audiomock.Sink{}
	synth := &speechmock.Provider{Result: testWAV}
	s, stop := newTestSession(t, Config{Sink: sink, Synth: synth})
	defer stop()

	s.EnqueueMessage(Message{AuthorID: "u1", Content: "first"})
	s.EnqueueMessage(Message{AuthorID: "u1", Content: "second"})

	waitFor(t, func() bool { return sink.PlayCount() == 1 })
	if !s.Playing() {
		t.Error("Playing() = false while a clip is sounding")
	}
	if sink.PlayCount() != 1 {
		t.Fatalf("second item started before first completed")
	}

	sink.CompleteCurrent(nil)
	waitFor(t, func() bool { return sink.PlayCount() == 2 })

	sink.CompleteCurrent(nil)
	waitFor(t, func() bool { return !s.Playing() })

	if c := sink.Concurrency(); c != 1 {
		t.Errorf("max concurrent playbacks = %d, want 1", c)
	}
}

func TestSessionIdleWhenQueueEmpty(t *testing.T) {
	t.Parallel()

	sink := &audiomock.Sink{AutoComplete: true}
	synth := &speechmock.Provider{Result: testWAV}
	s, stop := newTestSession(t, Config{Sink: sink, Synth: synth})
	defer stop()

	// Nothing enqueued: no synthesis, not playing.
	time.Sleep(20 * time.Millisecond)
	if got := len(synth.CallTexts()); got != 0 {
		t.Errorf("synthesize called %d times on empty queue", got)
	}
	if s.Playing() {
		t.Error("Playing() = true with empty queue")
	}
}

func TestSessionSynthesisFailureDropsItem(t *testing.T) {
	t.Parallel()

	sink := &audiomock.Sink{AutoComplete: true}
	synth := &speechmock.Provider{
		SynthesizeFunc: func(_ context.Context, text string, _ int) ([]byte, error) {
			if text == "bad" {
				return nil, errors.New("engine exploded")
			}
			return testWAV, nil
		},
	}
	s, stop := newTestSession(t, Config{Sink: sink, Synth: synth})
	defer stop()

	s.EnqueueMessage(Message{AuthorID: "u1", Content: "bad"})
	s.EnqueueMessage(Message{AuthorID: "u1", Content: "good"})

	// The failed item is dropped and the next one still plays.
	waitFor(t, func() bool { return sink.PlayCount() == 1 })
	texts := synth.CallTexts()
	if len(texts) != 2 {
		t.Fatalf("synthesize called %d times, want 2", len(texts))
	}
}

func TestSessionUndecodableAudioDropsItem(t *testing.T) {
	t.Parallel()

	sink := &audiomock.Sink{AutoComplete: true}
	synth := &speechmock.Provider{
		SynthesizeFunc: func(_ context.Context, text string, _ int) ([]byte, error) {
			if text == "junk" {
				return []byte("not a wav"), nil
			}
			return testWAV, nil
		},
	}
	s, stop := newTestSession(t, Config{Sink: sink, Synth: synth})
	defer stop()

	s.EnqueueMessage(Message{AuthorID: "u1", Content: "junk"})
	s.EnqueueMessage(Message{AuthorID: "u1", Content: "fine"})

	waitFor(t, func() bool { return sink.PlayCount() == 1 })
	if s.QueueLen() != 0 {
		t.Errorf("QueueLen() = %d after drain, want 0", s.QueueLen())
	}
}

func TestSessionSetSpeaker(t *testing.T) {
	t.Parallel()

	sink := &audiomock.Sink{AutoComplete: true}
	synth := &speechmock.Provider{
		Catalog: []speech.Speaker{
			{ID: 1, Name: "ずんだもん (ノーマル)"},
			{ID: 3, Name: "四国めたん (あまあま)"},
		},
		Result: testWAV,
	}
	s, stop := newTestSession(t, Config{Sink: sink, Synth: synth})
	defer stop()

	if err := s.SetSpeaker(99); !errors.Is(err, speech.ErrUnknownSpeaker) {
		t.Errorf("SetSpeaker(99) error = %v, want ErrUnknownSpeaker", err)
	}
	if got := s.Speaker(); got != 1 {
		t.Errorf("failed SetSpeaker changed speaker to %d", got)
	}

	if err := s.SetSpeaker(3); err != nil {
		t.Fatalf("SetSpeaker(3) returned error: %v", err)
	}
	s.EnqueueMessage(Message{AuthorID: "u1", Content: "voice check"})
	waitFor(t, func() bool { return sink.PlayCount() == 1 })

	calls := synth.CallTexts()
	if len(calls) != 1 {
		t.Fatalf("synthesize called %d times, want 1", len(calls))
	}
	if speakerID := synth.CallsSnapshot()[0].SpeakerID; speakerID != 3 {
		t.Errorf("synthesized with speaker %d, want 3", speakerID)
	}
}

func TestSessionNamePrefixPolicies(t *testing.T) {
	t.Parallel()

	t.Run("always", func(t *testing.T) {
		t.Parallel()
		sink := &audiomock.Sink{AutoComplete: true}
		synth := &speechmock.Provider{Result: testWAV}
		s, stop := newTestSession(t, Config{Sink: sink, Synth: synth, NamePrefix: PrefixAlways})
		defer stop()

		s.EnqueueMessage(Message{AuthorID: "u1", AuthorName: "alice", Content: "a"})
		s.EnqueueMessage(Message{AuthorID: "u1", AuthorName: "alice", Content: "b"})
		waitFor(t, func() bool { return sink.PlayCount() == 2 })

		got := synth.CallTexts()
		if got[0] != "aliceさん、a" || got[1] != "aliceさん、b" {
			t.Errorf("texts = %q, want prefix on both", got)
		}
	})

	t.Run("on change", func(t *testing.T) {
		t.Parallel()
		sink := &audiomock.Sink{AutoComplete: true}
		synth := &speechmock.Provider{Result: testWAV}
		s, stop := newTestSession(t, Config{Sink: sink, Synth: synth, NamePrefix: PrefixOnChange})
		defer stop()

		s.EnqueueMessage(Message{AuthorID: "u1", AuthorName: "alice", Content: "a"})
		s.EnqueueMessage(Message{AuthorID: "u1", AuthorName: "alice", Content: "b"})
		s.EnqueueMessage(Message{AuthorID: "u2", AuthorName: "bob", Content: "c"})
		s.Announce("通知")
		s.EnqueueMessage(Message{AuthorID: "u2", AuthorName: "bob", Content: "d"})
		waitFor(t, func() bool { return sink.PlayCount() == 5 })

		got := synth.CallTexts()
		want := []string{"aliceさん、a", "b", "bobさん、c", "通知", "bobさん、d"}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("item %d = %q, want %q", i, got[i], want[i])
			}
		}
	})
}

func TestSessionAnnounceBypassesNormalization(t *testing.T) {
	t.Parallel()

	sink := &audiomock.Sink{AutoComplete: true}
	synth := &speechmock.Provider{Result: testWAV}
	s, stop := newTestSession(t, Config{Sink: sink, Synth: synth})
	defer stop()

	s.Announce("https://example.com はそのまま")
	waitFor(t, func() bool { return sink.PlayCount() == 1 })

	if got := synth.CallTexts()[0]; got != "https://example.com はそのまま" {
		t.Errorf("announced text = %q, want verbatim", got)
	}
}

// queueDepthTotal sums the yomu.queue.depth gauge across all guilds.
func queueDepthTotal(rm metricdata.ResourceMetrics) int64 {
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "yomu.queue.depth" {
				continue
			}
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func TestSessionRejectsEnqueueAfterClose(t *testing.T) {
	t.Parallel()

	mr := sdkmetric.NewManualReader()
	metrics, err := observe.NewMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(mr)))
	if err != nil {
		t.Fatalf("NewMetrics returned error: %v", err)
	}

	sink := &audiomock.Sink{AutoComplete: true}
	synth := &speechmock.Provider{Result: testWAV}
	s, stop := newTestSession(t, Config{Sink: sink, Synth: synth, Metrics: metrics})
	defer stop()

	s.EnqueueMessage(Message{AuthorID: "u1", AuthorName: "alice", Content: "a"})
	waitFor(t, func() bool { return sink.PlayCount() == 1 && s.QueueLen() == 0 })

	if err := s.close(); err != nil {
		t.Fatalf("close returned error: %v", err)
	}

	// A producer that resolved the session just before destroy may still
	// deliver; the item must vanish without touching the depth gauge.
	s.EnqueueMessage(Message{AuthorID: "u1", AuthorName: "alice", Content: "late"})
	s.Announce("late notice")

	if got := s.QueueLen(); got != 0 {
		t.Errorf("queue length after close = %d, want 0", got)
	}
	if got := sink.PlayCount(); got != 1 {
		t.Errorf("play count after close = %d, want 1", got)
	}

	var rm metricdata.ResourceMetrics
	if err := mr.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	if depth := queueDepthTotal(rm); depth != 0 {
		t.Errorf("queue depth gauge = %d, want 0", depth)
	}
}

// Package audio defines the interfaces and types for voice-channel output
// within yomu.
//
// The two primary abstractions are:
//
//   - [Platform] — connects to a voice channel and returns a [Sink].
//   - [Sink] — the audio output for one guild's voice channel: it accepts one
//     decoded clip at a time and reports completion asynchronously.
//
// Implementations of these interfaces are provided by platform-specific
// adapter packages (e.g., audio/discord). The interfaces are intentionally
// narrow so the speech queue engine stays decoupled from transport details.
//
// This package lives under pkg/ because external platform adapters are
// expected to implement [Platform] and [Sink].
package audio

import "context"

// Format describes the sample rate and channel count of PCM audio data.
type Format struct {
	SampleRate int
	Channels   int
}

// Clip is a single decoded utterance: little-endian int16 PCM samples plus
// the format they are in.
type Clip struct {
	PCM    []byte
	Format Format
}

// Duration returns the playback length of the clip in seconds.
func (c Clip) Duration() float64 {
	bytesPerSecond := c.Format.SampleRate * c.Format.Channels * 2
	if bytesPerSecond == 0 {
		return 0
	}
	return float64(len(c.PCM)) / float64(bytesPerSecond)
}

// Sink is the audio output for one guild's voice channel.
//
// A Sink plays at most one clip at a time; the caller is responsible for
// sequencing. Implementations must be safe for concurrent use.
type Sink interface {
	// Play starts asynchronous playback of clip and returns immediately.
	// onComplete is invoked exactly once when playback stops — whether it
	// finished naturally, was stopped via [Sink.Stop], or failed — with the
	// playback error, if any. Play returns an error only if playback cannot
	// be started at all (e.g., the sink is disconnected or already playing);
	// in that case onComplete is never invoked.
	Play(clip Clip, onComplete func(error)) error

	// Stop aborts the in-flight playback, if any. The pending onComplete
	// callback still fires. Stop on an idle sink is a no-op.
	Stop()

	// IsPlaying reports whether a clip is currently sounding.
	IsPlaying() bool

	// IsConnected reports whether the underlying voice connection is alive.
	IsConnected() bool

	// Disconnect tears down the voice connection. Safe to call more than
	// once; subsequent calls are no-ops and return nil.
	Disconnect() error
}

// Platform is the entry point for a voice-channel provider.
// Implementations wrap provider-specific SDKs and expose a uniform [Sink].
//
// Implementations must be safe for concurrent use.
type Platform interface {
	// Connect joins the voice channel identified by guildID and channelID
	// and returns an active [Sink]. The supplied ctx governs the lifetime of
	// the connection attempt only; once connected, the Sink remains alive
	// until [Sink.Disconnect] is called.
	Connect(ctx context.Context, guildID, channelID string) (Sink, error)
}

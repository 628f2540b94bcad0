// Package speech defines the Provider interface for speech synthesis backends.
//
// A speech provider wraps a synthesis engine (e.g., a local VOICEVOX engine,
// ElevenLabs, or the Google Translate TTS endpoint) and presents a uniform
// batch interface: one utterance of text in, one WAV-encoded audio clip out.
// The voice catalogue is loaded once at provider construction and exposed via
// Speakers, so speaker ids can be validated at selection time rather than at
// synthesis time.
//
// Implementations must be safe for concurrent use. Multiple guilds synthesize
// through the same provider in parallel; per-call state (text, speaker id)
// must never be stored on the provider between calls.
package speech

import (
	"context"
	"errors"
)

// ErrUnknownSpeaker is returned by Synthesize when the requested speaker id
// is not part of the provider's loaded catalogue.
var ErrUnknownSpeaker = errors.New("speech: unknown speaker id")

// Speaker describes a single synthesis voice style.
type Speaker struct {
	// ID is the numeric style identifier passed to Synthesize.
	ID int

	// Name is the display name shown to users, including the style
	// (e.g., "ずんだもん (ノーマル)").
	Name string
}

// Provider is the abstraction over any speech synthesis backend.
//
// Implementations must be safe for concurrent use.
type Provider interface {
	// Synthesize renders text as speech using the given speaker id and
	// returns a complete WAV-encoded audio clip. The call blocks until the
	// engine has produced the full clip or ctx is cancelled.
	//
	// Returns [ErrUnknownSpeaker] (possibly wrapped) if speakerID is not in
	// the catalogue; any other error indicates an engine failure and the
	// caller should drop the utterance rather than retry.
	Synthesize(ctx context.Context, text string, speakerID int) ([]byte, error)

	// Speakers returns the catalogue of voices loaded by this provider,
	// in a stable order. The slice is shared; callers must not modify it.
	Speakers() []Speaker
}

// HasSpeaker reports whether the provider's catalogue contains id.
func HasSpeaker(p Provider, id int) bool {
	for _, s := range p.Speakers() {
		if s.ID == id {
			return true
		}
	}
	return false
}

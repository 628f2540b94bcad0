// Package mock provides in-memory mock implementations of the
// [audio.Platform] and [audio.Sink] interfaces for use in unit tests.
//
// All mocks are safe for concurrent use. They record every method call so
// that tests can assert on call counts and arguments, and they expose
// exported fields that the test can set to control return values.
//
// Typical usage:
//
//	sink := &mock.Sink{AutoComplete: true}
//	platform := &mock.Platform{ConnectResult: sink}
//	got, err := platform.Connect(ctx, "guild-1", "channel-42")
package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/MrWong99/yomu/pkg/audio"
)

// Compile-time interface assertions.
var (
	_ audio.Platform = (*Platform)(nil)
	_ audio.Sink     = (*Sink)(nil)
)

// ─── Sink ─────────────────────────────────────────────────────────────────────

// PlayCall records one Play invocation.
type PlayCall struct {
	Clip       audio.Clip
	OnComplete func(error)
}

// Sink is a mock implementation of [audio.Sink].
// Set the exported fields before use; inspect the Call* fields after.
type Sink struct {
	mu sync.Mutex

	// AutoComplete, when true, causes Play to invoke onComplete(nil)
	// synchronously before returning. When false, the test must call
	// [Sink.CompleteCurrent] to finish a playback.
	AutoComplete bool

	// PlayError, when non-nil, is returned by Play without starting playback.
	PlayError error

	// Disconnected marks the sink as disconnected: IsConnected reports
	// false and Play fails.
	Disconnected bool

	// Plays records all Play invocations in order.
	Plays []PlayCall

	// CallCountStop records how many times Stop was called.
	CallCountStop int

	// CallCountDisconnect records how many times Disconnect was called.
	CallCountDisconnect int

	// MaxConcurrent records the highest number of simultaneously sounding
	// clips ever observed. Anything above 1 is a sequencing violation.
	MaxConcurrent int

	playing int
	pending []func(error)
}

// Play records the call and either completes immediately (AutoComplete) or
// parks the completion for [Sink.CompleteCurrent].
func (s *Sink) Play(clip audio.Clip, onComplete func(error)) error {
	s.mu.Lock()
	if s.PlayError != nil {
		err := s.PlayError
		s.mu.Unlock()
		return err
	}
	if s.Disconnected {
		s.mu.Unlock()
		return errors.New("mock sink: disconnected")
	}

	s.Plays = append(s.Plays, PlayCall{Clip: clip, OnComplete: onComplete})
	s.playing++
	if s.playing > s.MaxConcurrent {
		s.MaxConcurrent = s.playing
	}
	auto := s.AutoComplete
	if !auto {
		s.pending = append(s.pending, onComplete)
	}
	s.mu.Unlock()

	if auto {
		s.finish(onComplete, nil)
	}
	return nil
}

// CompleteCurrent finishes the oldest pending playback with err.
// Panics if no playback is pending (a test sequencing bug).
func (s *Sink) CompleteCurrent(err error) {
	s.mu.Lock()
	if len(s.pending) == 0 {
		s.mu.Unlock()
		panic("mock sink: CompleteCurrent with no pending playback")
	}
	cb := s.pending[0]
	s.pending = s.pending[1:]
	s.mu.Unlock()

	s.finish(cb, err)
}

func (s *Sink) finish(cb func(error), err error) {
	s.mu.Lock()
	s.playing--
	s.mu.Unlock()
	if cb != nil {
		cb(err)
	}
}

// Stop records the call. Pending playbacks are not auto-completed; tests
// drive completion explicitly via CompleteCurrent.
func (s *Sink) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountStop++
}

// IsPlaying reports whether a mock playback is in flight.
func (s *Sink) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing > 0
}

// IsConnected reports the inverse of the Disconnected field.
func (s *Sink) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.Disconnected
}

// Disconnect marks the sink disconnected and records the call.
func (s *Sink) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountDisconnect++
	s.Disconnected = true
	return nil
}

// PlayCount returns the number of recorded Play calls.
func (s *Sink) PlayCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Plays)
}

// StopCount returns how many times Stop was called.
func (s *Sink) StopCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.CallCountStop
}

// DisconnectCount returns how many times Disconnect was called.
func (s *Sink) DisconnectCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.CallCountDisconnect
}

// Concurrency returns the highest number of simultaneously sounding clips
// ever observed.
func (s *Sink) Concurrency() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.MaxConcurrent
}

// ─── Platform ─────────────────────────────────────────────────────────────────

// ConnectCall records the arguments of one Connect invocation.
type ConnectCall struct {
	GuildID   string
	ChannelID string
}

// Platform is a mock implementation of [audio.Platform].
type Platform struct {
	mu sync.Mutex

	// ConnectResult is returned by Connect. When nil, a fresh
	// auto-completing Sink is returned.
	ConnectResult audio.Sink

	// ConnectError, when non-nil, is returned by Connect.
	ConnectError error

	// ConnectCalls records all Connect invocations in order.
	ConnectCalls []ConnectCall
}

// Connect records the call and returns the configured sink.
func (p *Platform) Connect(_ context.Context, guildID, channelID string) (audio.Sink, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ConnectCalls = append(p.ConnectCalls, ConnectCall{GuildID: guildID, ChannelID: channelID})
	if p.ConnectError != nil {
		return nil, p.ConnectError
	}
	if p.ConnectResult == nil {
		return &Sink{AutoComplete: true}, nil
	}
	return p.ConnectResult, nil
}

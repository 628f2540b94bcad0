// Package mock provides an in-memory mock implementation of the
// [speech.Provider] interface for use in unit tests.
//
// The mock is safe for concurrent use. It records every Synthesize call so
// that tests can assert on call order and arguments, and it exposes exported
// fields that the test can set to control return values.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/yomu/pkg/speech"
)

// Compile-time interface assertion.
var _ speech.Provider = (*Provider)(nil)

// SynthesizeCall records the arguments of one Synthesize invocation.
type SynthesizeCall struct {
	Text      string
	SpeakerID int
}

// Provider is a mock implementation of [speech.Provider].
// Set the exported fields before use; inspect Calls after.
type Provider struct {
	mu sync.Mutex

	// Catalog is returned by Speakers. Defaults to a single speaker
	// {ID: 1, Name: "test (normal)"} if left nil.
	Catalog []speech.Speaker

	// Result is returned by Synthesize when SynthesizeFunc is nil.
	Result []byte

	// Err is returned by Synthesize when SynthesizeFunc is nil.
	Err error

	// SynthesizeFunc, when non-nil, is invoked by Synthesize instead of
	// returning Result/Err. Useful for injecting per-call behaviour such
	// as blocking until a channel is closed.
	SynthesizeFunc func(ctx context.Context, text string, speakerID int) ([]byte, error)

	// Calls records all Synthesize invocations in order.
	Calls []SynthesizeCall
}

// Synthesize records the call and returns the configured result.
func (p *Provider) Synthesize(ctx context.Context, text string, speakerID int) ([]byte, error) {
	p.mu.Lock()
	p.Calls = append(p.Calls, SynthesizeCall{Text: text, SpeakerID: speakerID})
	fn := p.SynthesizeFunc
	res, err := p.Result, p.Err
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, text, speakerID)
	}
	return res, err
}

// Speakers returns the configured catalogue.
func (p *Provider) Speakers() []speech.Speaker {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Catalog == nil {
		return []speech.Speaker{{ID: 1, Name: "test (normal)"}}
	}
	return p.Catalog
}

// CallsSnapshot returns a copy of all recorded Synthesize calls, in order.
func (p *Provider) CallsSnapshot() []SynthesizeCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]SynthesizeCall, len(p.Calls))
	copy(out, p.Calls)
	return out
}

// CallTexts returns the texts of all recorded Synthesize calls, in order.
func (p *Provider) CallTexts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	texts := make([]string, len(p.Calls))
	for i, c := range p.Calls {
		texts[i] = c.Text
	}
	return texts
}

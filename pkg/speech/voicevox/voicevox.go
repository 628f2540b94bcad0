// Package voicevox provides a [speech.Provider] backed by a local VOICEVOX
// engine via its REST API.
//
// The engine operates in batch mode: synthesis is a two-step HTTP exchange
// (POST /audio_query to build the synthesis query, then POST /synthesis to
// render it as WAV). The voice catalogue is fetched once at construction from
// GET /speakers; every character style becomes one [speech.Speaker] with the
// engine's numeric style id, named "{character} ({style})".
//
// Typical usage:
//
//	p, err := voicevox.New(ctx, "", voicevox.WithTimeout(15*time.Second))
//	wav, err := p.Synthesize(ctx, "こんにちは", 1)
package voicevox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/MrWong99/yomu/pkg/speech"
)

// Compile-time interface assertion.
var _ speech.Provider = (*Provider)(nil)

const (
	defaultBaseURL = "http://localhost:50021"
	defaultTimeout = 30 * time.Second

	speakersEndpoint   = "/speakers"
	audioQueryEndpoint = "/audio_query"
	synthesisEndpoint  = "/synthesis"
)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithTimeout sets the per-request HTTP timeout for calls to the engine.
// Defaults to 30 s if not set.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.httpClient.Timeout = d
	}
}

// WithHTTPClient replaces the HTTP client used for engine calls.
// Intended for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// Provider implements [speech.Provider] backed by a VOICEVOX engine.
//
// Provider is safe for concurrent use: all mutable state is fixed at
// construction and every synthesis call carries its own text and speaker id.
type Provider struct {
	baseURL    string
	httpClient *http.Client

	speakers []speech.Speaker
	known    map[int]bool
}

// engineSpeaker mirrors one entry of the GET /speakers response.
type engineSpeaker struct {
	Name   string `json:"name"`
	Styles []struct {
		Name string `json:"name"`
		ID   int    `json:"id"`
	} `json:"styles"`
}

// New creates a Provider for the engine at baseURL (default
// "http://localhost:50021") and loads its voice catalogue. Returns an error
// if the engine is unreachable or reports no voices.
func New(ctx context.Context, baseURL string, opts ...Option) (*Provider, error) {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	p := &Provider{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}

	if err := p.loadCatalog(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

// loadCatalog fetches GET /speakers and flattens every style into the
// catalogue, preserving the engine's order.
func (p *Provider) loadCatalog(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+speakersEndpoint, nil)
	if err != nil {
		return fmt.Errorf("voicevox: build speakers request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("voicevox: fetch speakers: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("voicevox: speakers endpoint returned status %d", resp.StatusCode)
	}

	var raw []engineSpeaker
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return fmt.Errorf("voicevox: decode speakers: %w", err)
	}

	p.known = make(map[int]bool)
	for _, character := range raw {
		for _, style := range character.Styles {
			p.speakers = append(p.speakers, speech.Speaker{
				ID:   style.ID,
				Name: fmt.Sprintf("%s (%s)", character.Name, style.Name),
			})
			p.known[style.ID] = true
		}
	}

	if len(p.speakers) == 0 {
		return fmt.Errorf("voicevox: engine at %s reports no voices", p.baseURL)
	}
	return nil
}

// Speakers returns the catalogue loaded at construction.
func (p *Provider) Speakers() []speech.Speaker {
	return p.speakers
}

// Synthesize renders text as a WAV clip via /audio_query + /synthesis.
func (p *Provider) Synthesize(ctx context.Context, text string, speakerID int) ([]byte, error) {
	if !p.known[speakerID] {
		return nil, fmt.Errorf("voicevox: speaker %d: %w", speakerID, speech.ErrUnknownSpeaker)
	}

	query, err := p.audioQuery(ctx, text, speakerID)
	if err != nil {
		return nil, err
	}
	return p.synthesis(ctx, query, speakerID)
}

// audioQuery builds the synthesis query for text. The query body is opaque
// to us; it is passed through to /synthesis unchanged.
func (p *Provider) audioQuery(ctx context.Context, text string, speakerID int) ([]byte, error) {
	q := url.Values{}
	q.Set("text", text)
	q.Set("speaker", strconv.Itoa(speakerID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+audioQueryEndpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("voicevox: build audio_query request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("voicevox: audio_query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("voicevox: audio_query returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("voicevox: read audio_query response: %w", err)
	}
	return body, nil
}

// synthesis renders a previously built query as WAV audio.
func (p *Provider) synthesis(ctx context.Context, query []byte, speakerID int) ([]byte, error) {
	q := url.Values{}
	q.Set("speaker", strconv.Itoa(speakerID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+synthesisEndpoint+"?"+q.Encode(), bytes.NewReader(query))
	if err != nil {
		return nil, fmt.Errorf("voicevox: build synthesis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("voicevox: synthesis: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("voicevox: synthesis returned status %d", resp.StatusCode)
	}

	wav, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("voicevox: read synthesis response: %w", err)
	}
	return wav, nil
}

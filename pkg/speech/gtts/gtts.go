// Package gtts provides a [speech.Provider] backed by the Google Translate
// TTS endpoint. It needs no API key or local engine, which makes it a useful
// fallback when no VOICEVOX engine is running, at the cost of a single
// generic voice per language.
//
// The catalogue is the fixed set of supported language voices, one numeric
// speaker id per language, Japanese first so the default speaker id 1 reads
// Japanese text. The endpoint returns MP3; the provider decodes it and
// re-wraps the PCM as WAV to satisfy the [speech.Provider] contract.
package gtts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hajimehoshi/go-mp3"
	"github.com/hegedustibor/htgo-tts/voices"

	"github.com/MrWong99/yomu/pkg/audio"
	"github.com/MrWong99/yomu/pkg/speech"
)

// Compile-time interface assertion.
var _ speech.Provider = (*Provider)(nil)

const (
	endpoint       = "https://translate.google.com/translate_tts"
	defaultTimeout = 15 * time.Second

	// chunkRunes is the endpoint's practical per-request text limit.
	chunkRunes = 200
)

// languageVoice pairs a display name with the endpoint's language code.
type languageVoice struct {
	name string
	code string
}

// catalog is the fixed voice list. Order is the speaker id order (1-based).
var catalog = []languageVoice{
	{"日本語", voices.Japanese},
	{"English (US)", voices.English},
	{"English (UK)", voices.EnglishUK},
	{"Deutsch", voices.German},
	{"Français", voices.French},
	{"Español", voices.Spanish},
	{"Português", voices.Portuguese},
	{"한국어", voices.Korean},
}

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithHTTPClient replaces the HTTP client used for endpoint calls.
// Intended for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// Provider implements [speech.Provider] backed by the Google Translate TTS
// endpoint. Safe for concurrent use.
type Provider struct {
	httpClient *http.Client
	speakers   []speech.Speaker
	codes      map[int]string
}

// New creates a Provider with the fixed language catalogue.
func New(opts ...Option) *Provider {
	p := &Provider{
		httpClient: &http.Client{Timeout: defaultTimeout},
		codes:      make(map[int]string, len(catalog)),
	}
	for i, v := range catalog {
		id := i + 1
		p.speakers = append(p.speakers, speech.Speaker{ID: id, Name: v.name})
		p.codes[id] = v.code
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Speakers returns the fixed language catalogue.
func (p *Provider) Speakers() []speech.Speaker {
	return p.speakers
}

// Synthesize fetches MP3 audio for text in ≤200-rune chunks, decodes it,
// and returns the concatenated result as one WAV clip.
func (p *Provider) Synthesize(ctx context.Context, text string, speakerID int) ([]byte, error) {
	code, ok := p.codes[speakerID]
	if !ok {
		return nil, fmt.Errorf("gtts: speaker %d: %w", speakerID, speech.ErrUnknownSpeaker)
	}

	runes := []rune(text)
	var mp3Data []byte
	for start := 0; start < len(runes); start += chunkRunes {
		end := start + chunkRunes
		if end > len(runes) {
			end = len(runes)
		}
		chunk, err := p.fetchChunk(ctx, string(runes[start:end]), code)
		if err != nil {
			return nil, err
		}
		mp3Data = append(mp3Data, chunk...)
	}

	return decodeMP3(mp3Data)
}

// fetchChunk requests one MP3 chunk from the endpoint.
func (p *Provider) fetchChunk(ctx context.Context, text, code string) ([]byte, error) {
	params := url.Values{}
	params.Set("ie", "UTF-8")
	params.Set("client", "tw-ob")
	params.Set("q", text)
	params.Set("tl", code)
	params.Set("total", "1")
	params.Set("idx", "0")
	params.Set("textlen", fmt.Sprintf("%d", len([]rune(text))))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("gtts: build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gtts: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("gtts: endpoint status %d: %s", resp.StatusCode, string(body))
	}
	return io.ReadAll(resp.Body)
}

// decodeMP3 decodes MP3 data to PCM and wraps it as WAV. go-mp3 always
// emits 16-bit stereo at the stream's sample rate.
func decodeMP3(data []byte) ([]byte, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gtts: decode mp3: %w", err)
	}
	pcm, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("gtts: read pcm: %w", err)
	}
	return audio.EncodeWAV(audio.Clip{
		PCM:    pcm,
		Format: audio.Format{SampleRate: dec.SampleRate(), Channels: 2},
	}), nil
}

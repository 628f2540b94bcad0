// Package elevenlabs provides an ElevenLabs-backed [speech.Provider] using
// the ElevenLabs streaming WebSocket API.
//
// ElevenLabs identifies voices by opaque string ids while the speech queue
// engine works with numeric speaker ids; the provider assigns each voice a
// stable 1-based id in catalogue order at construction. The streaming PCM
// chunks of one utterance are collected into a single WAV clip before being
// returned, matching the batch [speech.Provider] contract.
package elevenlabs

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/MrWong99/yomu/pkg/audio"
	"github.com/MrWong99/yomu/pkg/speech"
)

// Compile-time interface assertion.
var _ speech.Provider = (*Provider)(nil)

const (
	wsEndpointFmt  = "wss://api.elevenlabs.io/v1/text-to-speech/%s/stream-input?model_id=%s"
	voicesEndpoint = "https://api.elevenlabs.io/v1/voices"
	defaultModel   = "eleven_flash_v2_5"

	// outputFormat is fixed to 16 kHz mono PCM; the audio pipeline converts
	// to the sink's format at playback time.
	outputFormat     = "pcm_16000"
	outputSampleRate = 16000
)

// Option is a functional option for configuring the ElevenLabs Provider.
type Option func(*Provider)

// WithModel sets the ElevenLabs model ID (e.g., "eleven_flash_v2_5").
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// Provider implements [speech.Provider] backed by the ElevenLabs API.
type Provider struct {
	apiKey     string
	model      string
	httpClient *http.Client

	speakers []speech.Speaker
	voiceIDs map[int]string
}

// New creates an ElevenLabs Provider and loads the voice catalogue for the
// given API key. apiKey must be non-empty.
func New(ctx context.Context, apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("elevenlabs: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:     apiKey,
		model:      defaultModel,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(p)
	}

	if err := p.loadCatalog(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

// voicesResponse is the top-level response from GET /v1/voices.
type voicesResponse struct {
	Voices []struct {
		VoiceID string `json:"voice_id"`
		Name    string `json:"name"`
	} `json:"voices"`
}

// loadCatalog fetches the account's voices and assigns stable numeric ids
// in catalogue order, starting at 1.
func (p *Provider) loadCatalog(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, voicesEndpoint, nil)
	if err != nil {
		return fmt.Errorf("elevenlabs: build voices request: %w", err)
	}
	req.Header.Set("xi-api-key", p.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("elevenlabs: fetch voices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("elevenlabs: voices endpoint returned status %d", resp.StatusCode)
	}

	var vr voicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return fmt.Errorf("elevenlabs: decode voices: %w", err)
	}
	if len(vr.Voices) == 0 {
		return errors.New("elevenlabs: account has no voices")
	}

	p.voiceIDs = make(map[int]string, len(vr.Voices))
	for i, v := range vr.Voices {
		id := i + 1
		p.speakers = append(p.speakers, speech.Speaker{ID: id, Name: v.Name})
		p.voiceIDs[id] = v.VoiceID
	}
	return nil
}

// Speakers returns the catalogue loaded at construction.
func (p *Provider) Speakers() []speech.Speaker {
	return p.speakers
}

// ---- WebSocket message types ----

// boiMessage is the initial "begin of input" handshake payload.
type boiMessage struct {
	Text          string         `json:"text"`
	VoiceSettings *voiceSettings `json:"voice_settings,omitempty"`
	XiAPIKey      string         `json:"xi_api_key"`
	OutputFormat  string         `json:"output_format,omitempty"`
}

// voiceSettings mirrors the ElevenLabs voice_settings object.
type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// textMessage is the JSON payload for a text fragment.
type textMessage struct {
	Text string `json:"text"`
}

// audioResponse is the JSON message received over the WebSocket.
type audioResponse struct {
	Audio   string `json:"audio"` // base64-encoded PCM
	IsFinal bool   `json:"isFinal"`
}

// Synthesize streams text through the ElevenLabs WebSocket API and returns
// the collected audio as one WAV clip.
func (p *Provider) Synthesize(ctx context.Context, text string, speakerID int) ([]byte, error) {
	voiceID, ok := p.voiceIDs[speakerID]
	if !ok {
		return nil, fmt.Errorf("elevenlabs: speaker %d: %w", speakerID, speech.ErrUnknownSpeaker)
	}

	wsURL := fmt.Sprintf(wsEndpointFmt, voiceID, p.model)
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	// BOI handshake: authenticate and configure the stream. ElevenLabs
	// requires a non-empty first text value.
	boi := boiMessage{
		Text:          " ",
		VoiceSettings: &voiceSettings{Stability: 0.5, SimilarityBoost: 0.75},
		XiAPIKey:      p.apiKey,
		OutputFormat:  outputFormat,
	}
	if err := writeJSON(ctx, conn, boi); err != nil {
		return nil, fmt.Errorf("elevenlabs: send BOI: %w", err)
	}

	if err := writeJSON(ctx, conn, textMessage{Text: text + " "}); err != nil {
		return nil, fmt.Errorf("elevenlabs: send text: %w", err)
	}
	// Empty text flushes the stream and ends the utterance.
	if err := writeJSON(ctx, conn, textMessage{Text: ""}); err != nil {
		return nil, fmt.Errorf("elevenlabs: send flush: %w", err)
	}

	var pcm []byte
	for {
		_, msg, err := conn.Read(ctx)
		if err != nil {
			// The server closes the socket after the final chunk; any
			// audio gathered before that is the complete utterance.
			if len(pcm) > 0 {
				break
			}
			return nil, fmt.Errorf("elevenlabs: read audio: %w", err)
		}

		var resp audioResponse
		if err := json.Unmarshal(msg, &resp); err != nil {
			continue
		}
		if resp.Audio != "" {
			chunk, err := base64.StdEncoding.DecodeString(resp.Audio)
			if err == nil {
				pcm = append(pcm, chunk...)
			}
		}
		if resp.IsFinal {
			break
		}
	}

	if len(pcm) == 0 {
		return nil, errors.New("elevenlabs: synthesis produced no audio")
	}

	return audio.EncodeWAV(audio.Clip{
		PCM:    pcm,
		Format: audio.Format{SampleRate: outputSampleRate, Channels: 1},
	}), nil
}

// writeJSON marshals v and writes it as a text frame.
func writeJSON(ctx context.Context, conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, b)
}

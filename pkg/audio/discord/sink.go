package discord

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MrWong99/yomu/pkg/audio"
	"github.com/bwmarrin/discordgo"
)

// Compile-time interface assertion.
var _ audio.Sink = (*Sink)(nil)

// sendTimeout bounds how long a single Opus frame may wait for the voice
// connection to accept it before playback is aborted.
const sendTimeout = 5 * time.Second

// Sink wraps a discordgo.VoiceConnection and adapts it to the [audio.Sink]
// interface. Clips are converted to 48 kHz stereo PCM, encoded to Opus in
// 20 ms frames, and handed to discordgo's paced OpusSend channel.
//
// Sink is safe for concurrent use.
type Sink struct {
	mu           sync.Mutex
	vc           *discordgo.VoiceConnection
	playing      bool
	stop         chan struct{}
	disconnected bool

	// Test seams; default to the real voice connection.
	sendFrame    func(frame []byte, stop <-chan struct{}) error
	setSpeaking  func(bool) error
	disconnectVC func() error
}

// newSink creates a Sink for an already-joined voice connection.
func newSink(vc *discordgo.VoiceConnection) *Sink {
	s := &Sink{vc: vc}
	s.sendFrame = func(frame []byte, stop <-chan struct{}) error {
		select {
		case vc.OpusSend <- frame:
			return nil
		case <-stop:
			return errPlaybackStopped
		case <-time.After(sendTimeout):
			return fmt.Errorf("discord: opus send timed out after %s", sendTimeout)
		}
	}
	s.setSpeaking = vc.Speaking
	s.disconnectVC = vc.Disconnect
	return s
}

// errPlaybackStopped signals that Stop aborted the in-flight clip. It is
// swallowed before onComplete fires; an explicit stop is not a failure.
var errPlaybackStopped = fmt.Errorf("discord: playback stopped")

// Play starts asynchronous playback of clip. onComplete is invoked exactly
// once when the clip has been fully handed to the voice connection, stopped,
// or failed. Returns an error without invoking onComplete if the sink is
// disconnected or a clip is already sounding.
func (s *Sink) Play(clip audio.Clip, onComplete func(error)) error {
	s.mu.Lock()
	if s.disconnected {
		s.mu.Unlock()
		return fmt.Errorf("discord: play on disconnected sink")
	}
	if s.playing {
		s.mu.Unlock()
		return fmt.Errorf("discord: play while another clip is sounding")
	}
	stop := make(chan struct{})
	s.stop = stop
	s.playing = true
	s.mu.Unlock()

	go s.playLoop(clip, stop, onComplete)
	return nil
}

// playLoop runs on its own goroutine: converts, encodes, and sends the clip
// frame by frame, then reports completion.
func (s *Sink) playLoop(clip audio.Clip, stop <-chan struct{}, onComplete func(error)) {
	err := s.send(clip, stop)

	s.mu.Lock()
	s.playing = false
	s.stop = nil
	s.mu.Unlock()

	if err == errPlaybackStopped {
		err = nil
	}
	if onComplete != nil {
		onComplete(err)
	}
}

func (s *Sink) send(clip audio.Clip, stop <-chan struct{}) error {
	converted := audio.Convert(clip, audio.Format{SampleRate: opusSampleRate, Channels: opusChannels})
	if len(converted.PCM) == 0 {
		return fmt.Errorf("discord: clip has no playable samples")
	}

	enc, err := newOpusEncoder()
	if err != nil {
		return err
	}

	if err := s.setSpeaking(true); err != nil {
		return fmt.Errorf("discord: set speaking: %w", err)
	}
	defer func() {
		if err := s.setSpeaking(false); err != nil {
			slog.Debug("discord: clear speaking flag", "err", err)
		}
	}()

	for _, frame := range splitFrames(converted.PCM, opusFrameBytes) {
		packet, err := enc.encode(frame)
		if err != nil {
			return err
		}
		if err := s.sendFrame(packet, stop); err != nil {
			return err
		}
	}
	return nil
}

// Stop aborts the in-flight playback, if any.
func (s *Sink) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
}

// IsPlaying reports whether a clip is currently sounding.
func (s *Sink) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

// IsConnected reports whether the voice connection is still usable.
func (s *Sink) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.disconnected
}

// Disconnect stops any playback and tears down the voice connection.
// Safe to call more than once.
func (s *Sink) Disconnect() error {
	s.mu.Lock()
	if s.disconnected {
		s.mu.Unlock()
		return nil
	}
	s.disconnected = true
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
	disconnect := s.disconnectVC
	s.mu.Unlock()

	if disconnect == nil {
		return nil
	}
	if err := disconnect(); err != nil {
		return fmt.Errorf("discord: voice disconnect: %w", err)
	}
	return nil
}

// splitFrames slices pcm into frameBytes-sized frames, zero-padding the
// final frame so the Opus encoder always receives a full 20 ms of audio.
func splitFrames(pcm []byte, frameBytes int) [][]byte {
	if frameBytes <= 0 || len(pcm) == 0 {
		return nil
	}
	n := (len(pcm) + frameBytes - 1) / frameBytes
	frames := make([][]byte, 0, n)
	for off := 0; off < len(pcm); off += frameBytes {
		end := off + frameBytes
		if end <= len(pcm) {
			frames = append(frames, pcm[off:end])
			continue
		}
		padded := make([]byte, frameBytes)
		copy(padded, pcm[off:])
		frames = append(frames, padded)
	}
	return frames
}

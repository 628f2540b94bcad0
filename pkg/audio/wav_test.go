package audio_test

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/MrWong99/yomu/pkg/audio"
)

func TestEncodeDecodeWAV(t *testing.T) {
	clip := audio.Clip{
		PCM:    samplesToBytes([]int16{100, -100, 32767, -32768}),
		Format: audio.Format{SampleRate: 24000, Channels: 1},
	}

	decoded, err := audio.DecodeWAV(audio.EncodeWAV(clip))
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if decoded.Format != clip.Format {
		t.Errorf("format = %+v, want %+v", decoded.Format, clip.Format)
	}
	if len(decoded.PCM) != len(clip.PCM) {
		t.Fatalf("pcm length = %d, want %d", len(decoded.PCM), len(clip.PCM))
	}
	for i := range clip.PCM {
		if decoded.PCM[i] != clip.PCM[i] {
			t.Fatalf("pcm byte %d = %d, want %d", i, decoded.PCM[i], clip.PCM[i])
		}
	}
}

func TestDecodeWAV_NotWAV(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
	}{
		{"empty", nil},
		{"too short", []byte("RIFF")},
		{"wrong magic", []byte("OggS\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00")},
		{"mp3 header", []byte{0xFF, 0xFB, 0x90, 0x00, 0, 0, 0, 0, 0, 0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := audio.DecodeWAV(tt.in); !errors.Is(err, audio.ErrNotWAV) {
				t.Errorf("DecodeWAV(%q) error = %v, want ErrNotWAV", tt.in, err)
			}
		})
	}
}

func TestDecodeWAV_SkipsExtraChunks(t *testing.T) {
	// VOICEVOX and friends sometimes emit LIST metadata between fmt and data.
	clip := audio.Clip{
		PCM:    samplesToBytes([]int16{1, 2, 3}),
		Format: audio.Format{SampleRate: 16000, Channels: 1},
	}
	wav := audio.EncodeWAV(clip)

	list := make([]byte, 8+4)
	copy(list[0:4], "LIST")
	binary.LittleEndian.PutUint32(list[4:8], 4)
	copy(list[8:12], "INFO")

	// Splice the LIST chunk in front of the data chunk (offset 36).
	spliced := append(append(append([]byte{}, wav[:36]...), list...), wav[36:]...)
	binary.LittleEndian.PutUint32(spliced[4:8], uint32(len(spliced)-8))

	decoded, err := audio.DecodeWAV(spliced)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if len(decoded.PCM) != len(clip.PCM) {
		t.Errorf("pcm length = %d, want %d", len(decoded.PCM), len(clip.PCM))
	}
}

func TestDecodeWAV_TruncatedChunk(t *testing.T) {
	clip := audio.Clip{
		PCM:    samplesToBytes(make([]int16, 100)),
		Format: audio.Format{SampleRate: 16000, Channels: 1},
	}
	wav := audio.EncodeWAV(clip)

	if _, err := audio.DecodeWAV(wav[:60]); err == nil {
		t.Error("DecodeWAV on truncated stream should fail")
	}
}

func TestDecodeWAV_UnsupportedDepth(t *testing.T) {
	clip := audio.Clip{
		PCM:    samplesToBytes([]int16{1}),
		Format: audio.Format{SampleRate: 16000, Channels: 1},
	}
	wav := audio.EncodeWAV(clip)
	binary.LittleEndian.PutUint16(wav[34:36], 8) // claim 8-bit samples

	if _, err := audio.DecodeWAV(wav); err == nil {
		t.Error("DecodeWAV should reject non-16-bit streams")
	}
}

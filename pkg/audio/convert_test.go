package audio_test

import (
	"encoding/binary"
	"testing"

	"github.com/MrWong99/yomu/pkg/audio"
)

// samplesToBytes converts a slice of int16 samples to little-endian byte representation.
func samplesToBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

// bytesToSamples converts a little-endian byte slice to int16 samples.
func bytesToSamples(b []byte) []int16 {
	samples := make([]int16, len(b)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
	}
	return samples
}

func TestMonoToStereo(t *testing.T) {
	mono := samplesToBytes([]int16{100, 200, 300})
	stereo := audio.MonoToStereo(mono)
	got := bytesToSamples(stereo)
	want := []int16{100, 100, 200, 200, 300, 300}
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestStereoToMono(t *testing.T) {
	stereo := samplesToBytes([]int16{100, 200, -100, -200})
	mono := audio.StereoToMono(stereo)
	got := bytesToSamples(mono)
	want := []int16{150, -150}
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestStereoToMono_Clamping(t *testing.T) {
	// Max-positive L+R must not overflow int16.
	stereo := samplesToBytes([]int16{32767, 32767})
	mono := audio.StereoToMono(stereo)
	got := bytesToSamples(mono)
	if len(got) != 1 || got[0] != 32767 {
		t.Fatalf("got %v, want [32767]", got)
	}
}

func TestResampleMono16_SameRate(t *testing.T) {
	pcm := samplesToBytes([]int16{1, 2, 3})
	out := audio.ResampleMono16(pcm, 16000, 16000)
	if &out[0] != &pcm[0] {
		t.Error("same-rate resample should return input unchanged")
	}
}

func TestResampleMono16_Upsample(t *testing.T) {
	// 16k -> 48k triples the sample count.
	pcm := samplesToBytes(make([]int16, 160))
	out := audio.ResampleMono16(pcm, 16000, 48000)
	if len(out) != 160*3*2 {
		t.Errorf("upsampled length = %d bytes, want %d", len(out), 160*3*2)
	}
}

func TestResampleMono16_Downsample(t *testing.T) {
	pcm := samplesToBytes(make([]int16, 480))
	out := audio.ResampleMono16(pcm, 48000, 16000)
	if len(out) != 160*2 {
		t.Errorf("downsampled length = %d bytes, want %d", len(out), 160*2)
	}
}

func TestResampleMono16_Interpolation(t *testing.T) {
	// Doubling the rate interpolates midpoints between adjacent samples.
	pcm := samplesToBytes([]int16{0, 100})
	out := audio.ResampleMono16(pcm, 8000, 16000)
	got := bytesToSamples(out)
	want := []int16{0, 50, 100, 100}
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestResampleStereo16_Upsample(t *testing.T) {
	pcm := samplesToBytes(make([]int16, 320)) // 160 stereo frames
	out := audio.ResampleStereo16(pcm, 24000, 48000)
	if len(out) != 320*2*2 {
		t.Errorf("upsampled length = %d bytes, want %d", len(out), 320*2*2)
	}
}

func TestConvert(t *testing.T) {
	tests := []struct {
		name      string
		clip      audio.Clip
		target    audio.Format
		wantBytes int
	}{
		{
			name: "identity",
			clip: audio.Clip{
				PCM:    samplesToBytes(make([]int16, 960)),
				Format: audio.Format{SampleRate: 48000, Channels: 2},
			},
			target:    audio.Format{SampleRate: 48000, Channels: 2},
			wantBytes: 960 * 2,
		},
		{
			name: "voicevox mono 24k to discord stereo 48k",
			clip: audio.Clip{
				PCM:    samplesToBytes(make([]int16, 240)),
				Format: audio.Format{SampleRate: 24000, Channels: 1},
			},
			target:    audio.Format{SampleRate: 48000, Channels: 2},
			wantBytes: 240 * 2 * 2 * 2, // doubled samples, then stereo
		},
		{
			name: "stereo 48k to mono 16k",
			clip: audio.Clip{
				PCM:    samplesToBytes(make([]int16, 960)),
				Format: audio.Format{SampleRate: 48000, Channels: 2},
			},
			target:    audio.Format{SampleRate: 16000, Channels: 1},
			wantBytes: (960 / 2 / 3) * 2,
		},
		{
			name: "odd byte count dropped",
			clip: audio.Clip{
				PCM:    []byte{1, 2, 3},
				Format: audio.Format{SampleRate: 16000, Channels: 1},
			},
			target:    audio.Format{SampleRate: 48000, Channels: 2},
			wantBytes: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := audio.Convert(tt.clip, tt.target)
			if got.Format != tt.target {
				t.Errorf("format = %+v, want %+v", got.Format, tt.target)
			}
			if len(got.PCM) != tt.wantBytes {
				t.Errorf("pcm length = %d, want %d", len(got.PCM), tt.wantBytes)
			}
		})
	}
}

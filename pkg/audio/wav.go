package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// wavFormatPCM is the RIFF audio format tag for uncompressed PCM.
const wavFormatPCM = 1

// EncodeWAV wraps a clip's PCM data in a minimal RIFF/WAVE header
// (16-bit PCM). It is the inverse of [DecodeWAV] for clips produced by
// providers that emit raw PCM.
func EncodeWAV(clip Clip) []byte {
	const headerLen = 44
	dataLen := len(clip.PCM)
	blockAlign := clip.Format.Channels * 2
	byteRate := clip.Format.SampleRate * blockAlign

	out := make([]byte, headerLen+dataLen)
	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+dataLen))
	copy(out[8:12], "WAVE")
	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16)
	binary.LittleEndian.PutUint16(out[20:22], wavFormatPCM)
	binary.LittleEndian.PutUint16(out[22:24], uint16(clip.Format.Channels))
	binary.LittleEndian.PutUint32(out[24:28], uint32(clip.Format.SampleRate))
	binary.LittleEndian.PutUint32(out[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:36], 16)
	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(dataLen))
	copy(out[44:], clip.PCM)
	return out
}

// ErrNotWAV is returned by [DecodeWAV] when the input does not start with a
// RIFF/WAVE header.
var ErrNotWAV = errors.New("audio: not a RIFF/WAVE stream")

// DecodeWAV parses a WAV byte stream and returns the contained PCM data and
// its format. Only uncompressed 16-bit PCM is supported, which is what the
// supported synthesis engines emit.
//
// Chunks other than "fmt " and "data" (e.g., "LIST") are skipped.
func DecodeWAV(b []byte) (Clip, error) {
	if len(b) < 12 || string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		return Clip{}, ErrNotWAV
	}

	var (
		format     Format
		bitsPerSmp int
		data       []byte
		haveFmt    bool
	)

	// Walk the chunk list.
	off := 12
	for off+8 <= len(b) {
		id := string(b[off : off+4])
		size := int(binary.LittleEndian.Uint32(b[off+4 : off+8]))
		body := off + 8
		if size < 0 || body+size > len(b) {
			return Clip{}, fmt.Errorf("audio: wav chunk %q exceeds stream length", id)
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return Clip{}, fmt.Errorf("audio: wav fmt chunk too short (%d bytes)", size)
			}
			audioFormat := int(binary.LittleEndian.Uint16(b[body : body+2]))
			if audioFormat != wavFormatPCM {
				return Clip{}, fmt.Errorf("audio: unsupported wav format tag %d (want PCM)", audioFormat)
			}
			format.Channels = int(binary.LittleEndian.Uint16(b[body+2 : body+4]))
			format.SampleRate = int(binary.LittleEndian.Uint32(b[body+4 : body+8]))
			bitsPerSmp = int(binary.LittleEndian.Uint16(b[body+14 : body+16]))
			haveFmt = true
		case "data":
			data = b[body : body+size]
		}

		// Chunks are word-aligned; odd sizes carry a pad byte.
		off = body + size
		if size%2 == 1 {
			off++
		}
	}

	if !haveFmt {
		return Clip{}, errors.New("audio: wav stream has no fmt chunk")
	}
	if data == nil {
		return Clip{}, errors.New("audio: wav stream has no data chunk")
	}
	if bitsPerSmp != 16 {
		return Clip{}, fmt.Errorf("audio: unsupported wav bit depth %d (want 16)", bitsPerSmp)
	}
	if format.Channels < 1 || format.Channels > 2 {
		return Clip{}, fmt.Errorf("audio: unsupported wav channel count %d", format.Channels)
	}

	return Clip{PCM: data, Format: format}, nil
}

// Package audio assembles and inspects WAV payloads.
package audio

import "encoding/binary"

// HeaderSize is the canonical RIFF/WAVE header length.
const HeaderSize = 44

// MergeSegments concatenates complete WAV files into one.
// The first segment's header is kept; the RIFF and data sizes are rewritten
// for the combined payload. All segments must share one PCM format.
func MergeSegments(segments [][]byte) []byte {
	if len(segments) == 0 {
		return nil
	}
	first := segments[0]
	if len(first) <= HeaderSize {
		return first
	}

	total := HeaderSize
	for _, s := range segments {
		if len(s) > HeaderSize {
			total += len(s) - HeaderSize
		}
	}

	out := make([]byte, 0, total)
	out = append(out, first[:HeaderSize]...)
	for _, s := range segments {
		if len(s) > HeaderSize {
			out = append(out, s[HeaderSize:]...)
		}
	}

	binary.LittleEndian.PutUint32(out[4:8], uint32(total-8))
	binary.LittleEndian.PutUint32(out[40:44], uint32(total-HeaderSize))
	return out
}

package audio

import (
	"bytes"
	"fmt"
	"io"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// MIME types reported for uploads.
const (
	MIMEWAV  = "audio/wav"
	MIMEMPEG = "audio/mpeg"
)

// Info describes an uploaded audio payload.
type Info struct {
	MIME       string
	SampleRate int
	Channels   int
	Duration   time.Duration
}

// Inspect reports the format of data. Anything that is not a decodable WAV
// is reported as MPEG.
func Inspect(data []byte) Info {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return Info{MIME: MIMEMPEG}
	}
	info := Info{
		MIME:       MIMEWAV,
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
	}
	if d, err := dec.Duration(); err == nil {
		info.Duration = d
	}
	return info
}

// WriteSilence encodes a mono 16-bit PCM WAV of the given length.
func WriteSilence(w io.WriteSeeker, sampleRate int, length time.Duration) error {
	if sampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive")
	}
	n := int(length.Seconds() * float64(sampleRate))
	enc := wav.NewEncoder(w, sampleRate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           make([]int, n),
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("write samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize wav: %w", err)
	}
	return nil
}

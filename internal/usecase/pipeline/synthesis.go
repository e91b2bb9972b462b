package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/voxhome/internal/domain"
	"github.com/kailas-cloud/voxhome/internal/domain/audio"
	"github.com/kailas-cloud/voxhome/internal/metrics"
)

// synthesizeToFile renders text segment by segment, merges the WAVs and
// writes <kind>_<millis>_<id>.wav into the TTS directory.
func (o *Orchestrator) synthesizeToFile(ctx context.Context, s Synthesizer, kind, text, mode string) (string, error) {
	defer observe(StageSynthesize, mode, time.Now())

	data, err := o.synthesize(ctx, s, text)
	if err != nil {
		return "", err
	}

	name := FileName(kind, time.Now())
	if err := os.MkdirAll(o.cfg.TTSDir, 0o755); err != nil {
		return "", fmt.Errorf("create tts dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(o.cfg.TTSDir, name), data, 0o644); err != nil { //nolint:gosec // served publicly
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	o.logger.Info("Synthesized audio",
		zap.String("file", name),
		zap.Int("bytes", len(data)),
	)
	return name, nil
}

// synthesize skips failed segments and fails only when none succeeded.
func (o *Orchestrator) synthesize(ctx context.Context, s Synthesizer, text string) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("no synthesizer: %w", domain.ErrConfigurationMissing)
	}
	segments := SplitRunes(text, o.cfg.SegmentRunes)
	parts := make([][]byte, 0, len(segments))
	var lastErr error

	for i, seg := range segments {
		segCtx, cancel := context.WithTimeout(ctx, o.cfg.SynthesizeTimeout)
		wav, err := s.Synthesize(segCtx, seg)
		cancel()
		if err == nil && len(wav) == 0 {
			err = domain.ErrEmptyResult
		}
		if err != nil {
			lastErr = normalize(err)
			metrics.PipelineSynthesisSegmentsTotal.WithLabelValues("failed").Inc()
			o.logger.Warn("Segment synthesis failed, skipping",
				zap.Int("segment", i),
				zap.Int("segments", len(segments)),
				zap.Error(err),
			)
			continue
		}
		metrics.PipelineSynthesisSegmentsTotal.WithLabelValues("ok").Inc()
		parts = append(parts, wav)
	}

	if len(parts) == 0 {
		if lastErr == nil {
			lastErr = domain.ErrEmptyResult
		}
		return nil, fmt.Errorf("synthesize %d segments: %w", len(segments), lastErr)
	}
	return audio.MergeSegments(parts), nil
}

// SplitRunes cuts s into pieces of at most n runes.
func SplitRunes(s string, n int) []string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return []string{s}
	}
	out := make([]string, 0, (len(r)+n-1)/n)
	for i := 0; i < len(r); i += n {
		end := min(i+n, len(r))
		out = append(out, string(r[i:end]))
	}
	return out
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// FileName builds an audio file name such as voice_1700000000000_1a2b3c4d.wav.
func FileName(kind string, now time.Time) string {
	return kind + "_" + strconv.FormatInt(now.UnixMilli(), 10) + "_" + uuid.NewString()[:8] + ".wav"
}

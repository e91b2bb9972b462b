// Package paddle runs the local paddlespeech CLI for speech recognition and synthesis.
package paddle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/voxhome/internal/domain"
)

// Config holds the CLI settings.
type Config struct {
	Command    string
	TempDir    string
	ASRTimeout time.Duration
	TTSTimeout time.Duration
	Logger     *zap.Logger
}

// CLI invokes paddlespeech as a child process. Audio is exchanged through
// temporary files that are removed after each call.
type CLI struct {
	cmd        string
	tempDir    string
	asrTimeout time.Duration
	ttsTimeout time.Duration
	logger     *zap.Logger
}

// New creates a paddlespeech CLI wrapper.
func New(cfg *Config) *CLI {
	c := &CLI{
		cmd:        cfg.Command,
		tempDir:    cfg.TempDir,
		asrTimeout: cfg.ASRTimeout,
		ttsTimeout: cfg.TTSTimeout,
		logger:     cfg.Logger,
	}
	if c.cmd == "" {
		c.cmd = "paddlespeech"
	}
	if c.tempDir == "" {
		c.tempDir = os.TempDir()
	}
	if c.asrTimeout <= 0 {
		c.asrTimeout = 60 * time.Second
	}
	if c.ttsTimeout <= 0 {
		c.ttsTimeout = 120 * time.Second
	}
	return c
}

// Transcribe runs `paddlespeech asr --lang zh --input <file>` and returns the
// last non-empty output line, which carries the recognized text.
func (c *CLI) Transcribe(ctx context.Context, wav []byte) (string, error) {
	if err := os.MkdirAll(c.tempDir, 0o750); err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	input := filepath.Join(c.tempDir, "asr_in_"+uuid.NewString()[:8]+".wav")
	if err := os.WriteFile(input, wav, 0o600); err != nil {
		return "", fmt.Errorf("write asr input: %w", err)
	}
	defer c.remove(input)

	out, err := c.run(ctx, c.asrTimeout, "asr", "--lang", "zh", "--input", input)
	if err != nil {
		return "", err
	}
	text := lastLine(out)
	if text == "" {
		return "", fmt.Errorf("paddlespeech asr printed nothing: %w", domain.ErrEmptyResult)
	}
	return text, nil
}

// Synthesize runs `paddlespeech tts --input <text> --output <file>` and returns the WAV bytes.
func (c *CLI) Synthesize(ctx context.Context, text string) ([]byte, error) {
	text = sanitize(text)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("tts text: %w", domain.ErrInvalidInput)
	}
	if err := os.MkdirAll(c.tempDir, 0o750); err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	output := filepath.Join(c.tempDir, "tts_out_"+uuid.NewString()[:8]+".wav")
	defer c.remove(output)

	if _, err := c.run(ctx, c.ttsTimeout, "tts", "--input", text, "--output", output); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(output)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("paddlespeech tts produced no file: %w", domain.ErrEmptyResult)
		}
		return nil, fmt.Errorf("read tts output: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("paddlespeech tts produced an empty file: %w", domain.ErrEmptyResult)
	}
	return data, nil
}

func (c *CLI) run(ctx context.Context, timeout time.Duration, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(ctx, c.cmd, args...)
	cmd.WaitDelay = time.Second
	out, err := cmd.CombinedOutput()
	if ctx.Err() != nil {
		return "", fmt.Errorf("paddlespeech %s: %w: %w", args[0], domain.ErrTransportFailure, ctx.Err())
	}
	if err != nil {
		c.logger.Warn("Paddlespeech failed",
			zap.String("op", args[0]),
			zap.Error(err),
			zap.String("output", tail(string(out), 512)),
		)
		return "", fmt.Errorf("paddlespeech %s: %v: %w", args[0], err, domain.ErrTransportFailure)
	}
	c.logger.Debug("Paddlespeech finished",
		zap.String("op", args[0]),
		zap.Duration("duration", time.Since(start)),
	)
	return string(out), nil
}

func (c *CLI) remove(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		c.logger.Debug("Failed to remove temp file", zap.String("path", path), zap.Error(err))
	}
}

// sanitize keeps the text on one argv line without double quotes.
func sanitize(text string) string {
	return strings.NewReplacer(`"`, "'", "\r", " ", "\n", " ").Replace(text)
}

func lastLine(out string) string {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

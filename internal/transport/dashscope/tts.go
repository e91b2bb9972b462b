package dashscope

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/voxhome/internal/domain"
)

// TTS defaults.
const (
	DefaultTTSURL   = "https://dashscope.aliyuncs.com/api/v1/services/aigc/multimodal-generation/generation"
	DefaultTTSModel = "qwen3-tts-flash"
	DefaultVoice    = "Cherry"
	DefaultLanguage = "Chinese"
)

const maxAudioBytes = 64 << 20

// TTSConfig holds the synthesis endpoint settings.
type TTSConfig struct {
	APIKey   string
	URL      string
	Model    string
	Voice    string
	Language string
	Timeout  time.Duration
	Logger   *zap.Logger
}

// Synthesizer renders one text segment into a complete WAV file via qwen3-tts-flash.
type Synthesizer struct {
	client   *http.Client
	apiKey   string
	url      string
	model    string
	voice    string
	language string
	timeout  time.Duration
	logger   *zap.Logger
}

type ttsRequest struct {
	Model string   `json:"model"`
	Input ttsInput `json:"input"`
}

type ttsInput struct {
	Text         string `json:"text"`
	Voice        string `json:"voice"`
	LanguageType string `json:"language_type"`
}

type ttsResponse struct {
	Output struct {
		Audio struct {
			Data string `json:"data"`
			URL  string `json:"url"`
		} `json:"audio"`
	} `json:"output"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewSynthesizer creates a DashScope synthesizer. Empty fields take the defaults.
func NewSynthesizer(cfg *TTSConfig) *Synthesizer {
	s := &Synthesizer{
		client:   &http.Client{},
		apiKey:   cfg.APIKey,
		url:      orDefault(cfg.URL, DefaultTTSURL),
		model:    orDefault(cfg.Model, DefaultTTSModel),
		voice:    orDefault(cfg.Voice, DefaultVoice),
		language: orDefault(cfg.Language, DefaultLanguage),
		timeout:  cfg.Timeout,
		logger:   cfg.Logger,
	}
	if s.timeout <= 0 {
		s.timeout = 120 * time.Second
	}
	return s
}

// Synthesize returns the WAV bytes for text. The audio comes either inline
// as base64 or as a URL that is downloaded as-is.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("tts api key: %w", domain.ErrConfigurationMissing)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("tts text: %w", domain.ErrInvalidInput)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	body, err := json.Marshal(ttsRequest{
		Model: s.model,
		Input: ttsInput{Text: text, Voice: s.voice, LanguageType: s.language},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal tts request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build tts request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, httpError("tts", err)
	}
	defer resp.Body.Close()

	var parsed ttsResponse
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = json.NewDecoder(io.LimitReader(resp.Body, 4<<10)).Decode(&parsed)
		return nil, fmt.Errorf("tts status %d %s: %w", resp.StatusCode, parsed.Message, domain.ErrTransportFailure)
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode tts response: %v: %w", err, domain.ErrTransportFailure)
	}

	var audio []byte
	switch {
	case parsed.Output.Audio.Data != "":
		audio, err = base64.StdEncoding.DecodeString(parsed.Output.Audio.Data)
		if err != nil {
			return nil, fmt.Errorf("decode tts audio: %v: %w", err, domain.ErrTransportFailure)
		}
	case parsed.Output.Audio.URL != "":
		audio, err = s.download(ctx, parsed.Output.Audio.URL)
		if err != nil {
			return nil, err
		}
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("tts without audio: %w", domain.ErrEmptyResult)
	}

	s.logger.Debug("TTS segment synthesized",
		zap.Int("text_runes", len([]rune(text))),
		zap.Int("audio_bytes", len(audio)),
	)
	return audio, nil
}

func (s *Synthesizer) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build audio download: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, httpError("tts download", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("tts download status %d: %w", resp.StatusCode, domain.ErrTransportFailure)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		return nil, httpError("tts download", err)
	}
	return data, nil
}

func httpError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrTransportFailure, err)
	}
	return fmt.Errorf("%s: %v: %w", op, err, domain.ErrTransportFailure)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

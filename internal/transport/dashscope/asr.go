// Package dashscope calls Alibaba Cloud DashScope speech services:
// qwen3-asr-flash through the OpenAI-compatible chat endpoint and
// qwen3-tts-flash through the native multimodal-generation endpoint.
package dashscope

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"

	"github.com/kailas-cloud/voxhome/internal/domain"
)

// DefaultASRModel is the DashScope speech recognition model.
const DefaultASRModel = "qwen3-asr-flash"

// ASRConfig holds the transcription endpoint settings.
// BaseURL is the compatible-mode root, without the /v1 suffix.
type ASRConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	Logger  *zap.Logger
}

// Transcriber converts WAV audio to text via qwen3-asr-flash.
type Transcriber struct {
	client  openai.Client
	apiKey  string
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewTranscriber creates a DashScope transcriber.
func NewTranscriber(cfg *ASRConfig) *Transcriber {
	model := cfg.Model
	if model == "" {
		model = DefaultASRModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")+"/v1/"),
		option.WithMaxRetries(0),
	)
	return &Transcriber{
		client:  client,
		apiKey:  cfg.APIKey,
		model:   model,
		timeout: timeout,
		logger:  cfg.Logger,
	}
}

// Transcribe sends the audio as a base64 data URI input_audio part and
// returns the recognized text.
func (t *Transcriber) Transcribe(ctx context.Context, wav []byte) (string, error) {
	if t.apiKey == "" {
		return "", fmt.Errorf("asr api key: %w", domain.ErrConfigurationMissing)
	}
	if len(wav) == 0 {
		return "", fmt.Errorf("asr audio: %w", domain.ErrEmptyResult)
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	dataURI := "data:audio/wav;base64," + base64.StdEncoding.EncodeToString(wav)
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(t.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.InputAudioContentPart(openai.ChatCompletionContentPartInputAudioInputAudioParam{
					Data:   dataURI,
					Format: "wav",
				}),
			}),
		},
	}

	start := time.Now()
	resp, err := t.client.Chat.Completions.New(ctx, params,
		option.WithJSONSet("stream", false),
		option.WithJSONSet("asr_options", map[string]any{"enable_itn": false}),
	)
	if err != nil {
		return "", transportError("asr", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("asr without choices: %w", domain.ErrEmptyResult)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("asr with empty content: %w", domain.ErrEmptyResult)
	}

	t.logger.Debug("ASR completed",
		zap.String("model", t.model),
		zap.Int("audio_bytes", len(wav)),
		zap.Duration("duration", time.Since(start)),
	)
	return text, nil
}

func transportError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrTransportFailure, err)
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s API error %d: %w", op, apiErr.StatusCode, domain.ErrTransportFailure)
	}
	return fmt.Errorf("%s: %v: %w", op, err, domain.ErrTransportFailure)
}

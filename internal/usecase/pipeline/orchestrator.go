// Package pipeline runs the voice flow: transcribe, augment, generate,
// dispatch, synthesize.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/voxhome/internal/domain"
	"github.com/kailas-cloud/voxhome/internal/domain/audit"
	"github.com/kailas-cloud/voxhome/internal/domain/intent"
	"github.com/kailas-cloud/voxhome/internal/metrics"
)

// Mode selects the backends of the voice flow.
type Mode string

// Supported modes.
const (
	ModeLocal  Mode = "local"
	ModeOnline Mode = "online"
)

const modeText = "text"

// Config tunes the orchestrator. Zero values take the defaults below.
type Config struct {
	Mode Mode
	Mock bool
	// OnlineKeySet reports whether the online API key is configured.
	OnlineKeySet bool
	TTSDir       string

	SegmentRunes      int           // 500
	MaxTokens         int           // 512
	TextMaxTokens     int           // 1024
	TextSpeechRunes   int           // 500
	TranscribeTimeout time.Duration // 60s
	GenerateTimeout   time.Duration // 60s
	SynthesizeTimeout time.Duration // 120s, per segment
}

func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = ModeOnline
	}
	if c.SegmentRunes <= 0 {
		c.SegmentRunes = 500
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 512
	}
	if c.TextMaxTokens <= 0 {
		c.TextMaxTokens = 1024
	}
	if c.TextSpeechRunes <= 0 {
		c.TextSpeechRunes = 500
	}
	if c.TranscribeTimeout <= 0 {
		c.TranscribeTimeout = 60 * time.Second
	}
	if c.GenerateTimeout <= 0 {
		c.GenerateTimeout = 60 * time.Second
	}
	if c.SynthesizeTimeout <= 0 {
		c.SynthesizeTimeout = 120 * time.Second
	}
}

// Backends is one set of speech and language services.
type Backends struct {
	Transcriber Transcriber
	Generator   Generator
	Synthesizer Synthesizer
}

// Deps wires the orchestrator. Voice serves the configured mode; Online
// serves the text flows.
type Deps struct {
	Voice      Backends
	Online     Backends
	Retriever  Retriever
	Extractor  intent.Extractor
	Dispatcher Dispatcher
	Audit      AuditSink
}

// Orchestrator owns the voice and text flows.
type Orchestrator struct {
	cfg    Config
	deps   Deps
	logger *zap.Logger
}

// New creates an orchestrator.
func New(cfg Config, deps Deps, logger *zap.Logger) *Orchestrator {
	cfg.applyDefaults()
	if deps.Extractor == nil {
		deps.Extractor = intent.NewMarkerExtractor()
	}
	return &Orchestrator{cfg: cfg, deps: deps, logger: logger}
}

// Mode returns the configured voice mode.
func (o *Orchestrator) Mode() Mode { return o.cfg.Mode }

// Process runs one upload through the voice flow. Failures are returned as
// Result values, never as errors.
func (o *Orchestrator) Process(ctx context.Context, wav []byte) Result {
	mode := string(o.cfg.Mode)
	logger := o.logger.With(zap.String("mode", mode))

	if o.cfg.Mock {
		logger.Info("Mock mode, returning canned reply")
		return o.finish(mode, Result{Text: MockText, Reply: MockReply, AudioFile: MockFile, Stage: StageMock})
	}
	if o.cfg.Mode == ModeOnline && !o.cfg.OnlineKeySet {
		return o.finish(mode, failed(StageConfig, MsgOnlineKeyMissing))
	}

	// Transcribing
	text, err := o.transcribe(ctx, o.deps.Voice.Transcriber, wav, mode)
	if err != nil {
		logger.Warn("Transcription failed", zap.Error(err))
		return o.finish(mode, failed(StageTranscribe, MsgNoTranscript))
	}
	logger.Info("Transcribed", zap.String("text", text))

	// Augmenting
	start := time.Now()
	prompt := o.deps.Retriever.SystemPrompt(ctx, text)
	observe(StageAugment, mode, start)

	// Generating
	reply, err := o.generate(ctx, o.deps.Voice.Generator, prompt.System, text, o.cfg.MaxTokens, mode)
	if err != nil {
		logger.Warn("Generation failed", zap.Error(err))
		return o.finish(mode, failed(StageGenerate, MsgNoReply))
	}
	logger.Info("Generated reply", zap.Int("length", len([]rune(reply))))

	// ExtractingIntent, DispatchingDevice
	speech := o.applyIntent(reply, mode)
	if speech == "" {
		logger.Warn("Reply is empty after removing control markers")
		return o.finish(mode, failed(StageIntent, MsgNoReply))
	}

	// Synthesizing
	file, err := o.synthesizeToFile(ctx, o.deps.Voice.Synthesizer, "voice", speech, mode)
	if err != nil {
		logger.Warn("Synthesis failed", zap.Error(err))
		return o.finish(mode, failed(StageSynthesize, MsgSynthesisFailed))
	}

	res := Result{Text: text, Reply: speech, AudioFile: file, RAGUsed: prompt.Context != "", Stage: StageSynthesize}
	o.audit(ctx, audit.NewRecord(text, speech, auditMode(o.cfg.Mode), prompt.Context), mode)
	return o.finish(mode, res)
}

// Synthesize renders text with the configured mode's synthesizer and returns
// the file name under the TTS directory.
func (o *Orchestrator) Synthesize(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("text is required: %w", domain.ErrInvalidInput)
	}
	if o.cfg.Mode == ModeOnline && !o.cfg.OnlineKeySet {
		return "", fmt.Errorf("online synthesis: %w", domain.ErrConfigurationMissing)
	}
	file, err := o.synthesizeToFile(ctx, o.deps.Voice.Synthesizer, "tts", text, string(o.cfg.Mode))
	if err != nil {
		return "", err
	}
	return file, nil
}

// Ask answers a typed question with the online backends and a lenient prompt.
// Synthesis is best-effort: on failure TextResult.AudioFile stays empty.
func (o *Orchestrator) Ask(ctx context.Context, question string) (TextResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return TextResult{}, fmt.Errorf("text is required: %w", domain.ErrInvalidInput)
	}
	if !o.cfg.OnlineKeySet {
		return TextResult{}, fmt.Errorf("online generation: %w", domain.ErrConfigurationMissing)
	}

	start := time.Now()
	prompt := o.deps.Retriever.LenientPrompt(ctx, question)
	observe(StageAugment, modeText, start)

	reply, err := o.generate(ctx, o.deps.Online.Generator, prompt.System, question, o.cfg.TextMaxTokens, modeText)
	if err != nil {
		o.outcome(modeText, "failed", StageGenerate)
		return TextResult{}, err
	}
	speech := o.applyIntent(reply, modeText)
	if speech == "" {
		o.outcome(modeText, "failed", StageIntent)
		return TextResult{}, fmt.Errorf("reply empty after markers: %w", domain.ErrEmptyResult)
	}

	res := TextResult{Question: question, Text: speech}
	file, err := o.synthesizeToFile(ctx, o.deps.Online.Synthesizer, "qwen", truncateRunes(speech, o.cfg.TextSpeechRunes), modeText)
	if err != nil {
		o.logger.Warn("Text flow synthesis failed, returning text only", zap.Error(err))
	} else {
		res.AudioFile = file
	}

	o.audit(ctx, audit.NewRecord(question, speech, audit.ModeQwenText, prompt.Context), modeText)
	o.outcome(modeText, "responded", StageSynthesize)
	return res, nil
}

// AskAudio transcribes wav with the online transcriber and continues as Ask.
func (o *Orchestrator) AskAudio(ctx context.Context, wav []byte) (TextResult, error) {
	if len(wav) == 0 {
		return TextResult{}, fmt.Errorf("audio is required: %w", domain.ErrInvalidInput)
	}
	if !o.cfg.OnlineKeySet {
		return TextResult{}, fmt.Errorf("online transcription: %w", domain.ErrConfigurationMissing)
	}
	text, err := o.transcribe(ctx, o.deps.Online.Transcriber, wav, modeText)
	if err != nil {
		o.outcome(modeText, "failed", StageTranscribe)
		return TextResult{}, err
	}
	return o.Ask(ctx, text)
}

func (o *Orchestrator) transcribe(ctx context.Context, t Transcriber, wav []byte, mode string) (string, error) {
	defer observe(StageTranscribe, mode, time.Now())
	ctx, cancel := context.WithTimeout(ctx, o.cfg.TranscribeTimeout)
	defer cancel()

	text, err := t.Transcribe(ctx, wav)
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", normalize(err))
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("transcribe: %w", domain.ErrEmptyResult)
	}
	return text, nil
}

func (o *Orchestrator) generate(ctx context.Context, g Generator, system, user string, maxTokens int, mode string) (string, error) {
	defer observe(StageGenerate, mode, time.Now())
	ctx, cancel := context.WithTimeout(ctx, o.cfg.GenerateTimeout)
	defer cancel()

	reply, err := g.Generate(ctx, system, user, maxTokens)
	if err != nil {
		return "", fmt.Errorf("generate: %w", normalize(err))
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", fmt.Errorf("generate: %w", domain.ErrEmptyResult)
	}
	return reply, nil
}

// applyIntent hands a parsed device intent to the dispatcher and returns the
// reply without control markers.
func (o *Orchestrator) applyIntent(reply, mode string) string {
	defer observe(StageIntent, mode, time.Now())
	if in, ok := o.deps.Extractor.Parse(reply); ok {
		o.logger.Info("Device intent found",
			zap.String("room", in.Room),
			zap.Bool("turn_on", in.TurnOn),
		)
		if o.deps.Dispatcher == nil || !o.deps.Dispatcher.Submit(in.Room, in.TurnOn) {
			o.logger.Warn("Device dispatch dropped", zap.String("room", in.Room))
		}
	}
	return o.deps.Extractor.Strip(reply)
}

func (o *Orchestrator) audit(ctx context.Context, rec audit.Record, mode string) {
	if o.deps.Audit == nil {
		return
	}
	defer observe(StageAudit, mode, time.Now())
	if err := o.deps.Audit.Append(ctx, rec); err != nil {
		o.logger.Warn("Audit append failed", zap.Error(err))
	}
}

func (o *Orchestrator) finish(mode string, res Result) Result {
	outcome := "responded"
	if res.Failed() {
		outcome = "failed"
	}
	o.outcome(mode, outcome, res.Stage)
	return res
}

func (o *Orchestrator) outcome(mode, outcome, stage string) {
	metrics.PipelineOutcomesTotal.WithLabelValues(mode, outcome, stage).Inc()
}

func observe(stage, mode string, start time.Time) {
	metrics.PipelineStageDuration.WithLabelValues(stage, mode).Observe(time.Since(start).Seconds())
}

func auditMode(m Mode) audit.Mode {
	if m == ModeLocal {
		return audit.ModeVoiceLocal
	}
	return audit.ModeVoiceOnline
}

// normalize folds timeouts into ErrTransportFailure.
func normalize(err error) error {
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, domain.ErrTransportFailure) {
		return fmt.Errorf("%w: %w", domain.ErrTransportFailure, err)
	}
	return err
}

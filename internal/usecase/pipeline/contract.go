package pipeline

import (
	"context"

	"github.com/kailas-cloud/voxhome/internal/domain/audit"
	"github.com/kailas-cloud/voxhome/internal/usecase/retrieval"
)

// Transcriber turns an uploaded WAV into text.
type Transcriber interface {
	Transcribe(ctx context.Context, wav []byte) (string, error)
}

// Generator produces a reply for [system, user].
type Generator interface {
	Generate(ctx context.Context, system, user string, maxTokens int) (string, error)
}

// Synthesizer renders text as one complete WAV.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Retriever renders system prompts with knowledge-base context.
type Retriever interface {
	SystemPrompt(ctx context.Context, query string) retrieval.Prompt
	LenientPrompt(ctx context.Context, query string) retrieval.Prompt
}

// Dispatcher queues device commands without waiting.
type Dispatcher interface {
	Submit(room string, turnOn bool) bool
}

// AuditSink records answered questions.
type AuditSink interface {
	Append(ctx context.Context, rec audit.Record) error
}

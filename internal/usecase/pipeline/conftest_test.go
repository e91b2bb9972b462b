package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/voxhome/internal/domain/audio"
	"github.com/kailas-cloud/voxhome/internal/domain/audit"
	"github.com/kailas-cloud/voxhome/internal/usecase/retrieval"
)

// --- Mocks ---

type mockTranscriber struct {
	text  string
	err   error
	block bool
	calls int
}

func (m *mockTranscriber) Transcribe(ctx context.Context, _ []byte) (string, error) {
	m.calls++
	if m.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return m.text, m.err
}

type mockGenerator struct {
	reply        string
	err          error
	calls        int
	gotSystem    string
	gotUser      string
	gotMaxTokens int
}

func (m *mockGenerator) Generate(_ context.Context, system, user string, maxTokens int) (string, error) {
	m.calls++
	m.gotSystem, m.gotUser, m.gotMaxTokens = system, user, maxTokens
	return m.reply, m.err
}

type mockSynthesizer struct {
	fn  func(text string) ([]byte, error)
	got []string
}

func (m *mockSynthesizer) Synthesize(_ context.Context, text string) ([]byte, error) {
	m.got = append(m.got, text)
	if m.fn != nil {
		return m.fn(text)
	}
	return fakeWAV(text), nil
}

type mockRetriever struct {
	strict  retrieval.Prompt
	lenient retrieval.Prompt
}

func (m *mockRetriever) SystemPrompt(context.Context, string) retrieval.Prompt { return m.strict }
func (m *mockRetriever) LenientPrompt(context.Context, string) retrieval.Prompt { return m.lenient }

type submission struct {
	room   string
	turnOn bool
}

type mockDispatcher struct {
	mu   sync.Mutex
	jobs []submission
}

func (m *mockDispatcher) Submit(room string, turnOn bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = append(m.jobs, submission{room: room, turnOn: turnOn})
	return true
}

type mockAudit struct {
	recs []audit.Record
	err  error
}

func (m *mockAudit) Append(_ context.Context, rec audit.Record) error {
	m.recs = append(m.recs, rec)
	return m.err
}

// --- Fixture ---

type fixture struct {
	cfg        Config
	voice      *mocks
	online     *mocks
	retriever  *mockRetriever
	dispatcher *mockDispatcher
	audit      *mockAudit
}

type mocks struct {
	asr *mockTranscriber
	llm *mockGenerator
	tts *mockSynthesizer
}

func newMocks() *mocks {
	return &mocks{
		asr: &mockTranscriber{text: "打开客厅的灯"},
		llm: &mockGenerator{reply: "好的，已为您打开客厅的灯。"},
		tts: &mockSynthesizer{},
	}
}

func (m *mocks) backends() Backends {
	return Backends{Transcriber: m.asr, Generator: m.llm, Synthesizer: m.tts}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{
		cfg: Config{
			Mode:         ModeOnline,
			OnlineKeySet: true,
			TTSDir:       t.TempDir(),
		},
		voice:      newMocks(),
		online:     newMocks(),
		retriever:  &mockRetriever{strict: retrieval.Prompt{System: retrieval.PlainPrompt}, lenient: retrieval.Prompt{System: retrieval.PlainPrompt}},
		dispatcher: &mockDispatcher{},
		audit:      &mockAudit{},
	}
}

func (f *fixture) build() *Orchestrator {
	return New(f.cfg, Deps{
		Voice:      f.voice.backends(),
		Online:     f.online.backends(),
		Retriever:  f.retriever,
		Dispatcher: f.dispatcher,
		Audit:      f.audit,
	}, zap.NewNop())
}

// fakeWAV returns a 44-byte header followed by the text bytes as samples.
func fakeWAV(text string) []byte {
	out := make([]byte, audio.HeaderSize, audio.HeaderSize+len(text))
	copy(out, "RIFF")
	copy(out[8:], "WAVE")
	return append(out, text...)
}

// silentWAV encodes a real mono WAV of length d.
func silentWAV(t *testing.T, d time.Duration) []byte {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "seg-*.wav")
	if err != nil {
		t.Fatalf("create temp: %v", err)
	}
	defer f.Close()
	if err := audio.WriteSilence(f, 16000, d); err != nil {
		t.Fatalf("write silence: %v", err)
	}
	data, err := os.ReadFile(f.Name())
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	return data
}

func readAudio(t *testing.T, dir, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return data
}

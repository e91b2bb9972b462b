package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/voxhome/internal/domain"
	"github.com/kailas-cloud/voxhome/internal/domain/audit"
	"github.com/kailas-cloud/voxhome/internal/usecase/retrieval"
)

func TestAsk(t *testing.T) {
	f := newFixture(t)
	f.cfg.TextSpeechRunes = 4
	f.retriever.lenient = retrieval.Prompt{System: "lenient prompt", Context: "ctx"}
	f.online.llm.reply = "卧室的灯已经关闭了 [DEVICE_CTL] room=卧室 action=off"

	res, err := f.build().Ask(context.Background(), " 关掉卧室的灯 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "卧室的灯已经关闭了" {
		t.Errorf("Text = %q", res.Text)
	}
	if f.online.llm.gotSystem != "lenient prompt" || f.online.llm.gotMaxTokens != 1024 {
		t.Errorf("generation got system=%q max=%d", f.online.llm.gotSystem, f.online.llm.gotMaxTokens)
	}
	if f.voice.llm.calls != 0 {
		t.Error("text flow must use the online backends")
	}
	if len(f.online.tts.got) != 1 || f.online.tts.got[0] != "卧室的灯" {
		t.Errorf("synthesized %q, want the first 4 runes", f.online.tts.got)
	}
	if !strings.HasPrefix(res.AudioFile, "qwen_") {
		t.Errorf("AudioFile = %q", res.AudioFile)
	}
	if len(f.dispatcher.jobs) != 1 || f.dispatcher.jobs[0].turnOn {
		t.Errorf("dispatch jobs = %+v", f.dispatcher.jobs)
	}
	if len(f.audit.recs) != 1 || f.audit.recs[0].Mode != audit.ModeQwenText || f.audit.recs[0].Question != "关掉卧室的灯" {
		t.Errorf("audit = %+v", f.audit.recs)
	}
}

func TestAsk_SynthesisFailureReturnsText(t *testing.T) {
	f := newFixture(t)
	f.online.tts.fn = func(string) ([]byte, error) { return nil, domain.ErrTransportFailure }

	res, err := f.build().Ask(context.Background(), "你好")
	if err != nil {
		t.Fatalf("synthesis failure must be non-fatal: %v", err)
	}
	if res.Text == "" || res.AudioFile != "" {
		t.Errorf("expected text only, got %+v", res)
	}
	if len(f.audit.recs) != 1 {
		t.Error("text-only answers are still audited")
	}
}

func TestAsk_Errors(t *testing.T) {
	tests := []struct {
		name     string
		question string
		mutate   func(f *fixture)
		want     error
	}{
		{"blank question", "  ", func(*fixture) {}, domain.ErrInvalidInput},
		{"missing key", "你好", func(f *fixture) { f.cfg.OnlineKeySet = false }, domain.ErrConfigurationMissing},
		{"generation failure", "你好", func(f *fixture) { f.online.llm.err = domain.ErrTransportFailure }, domain.ErrTransportFailure},
		{"blank reply", "你好", func(f *fixture) { f.online.llm.reply = " " }, domain.ErrEmptyResult},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.mutate(f)
			_, err := f.build().Ask(context.Background(), tt.question)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			if len(f.audit.recs) != 0 {
				t.Error("failed questions are not audited")
			}
		})
	}
}

func TestAskAudio(t *testing.T) {
	f := newFixture(t)
	f.online.asr.text = " 现在几点 "

	res, err := f.build().AskAudio(context.Background(), []byte("wav"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Question != "现在几点" {
		t.Errorf("Question = %q", res.Question)
	}
	if f.voice.asr.calls != 0 {
		t.Error("upload flow must use the online transcriber")
	}
}

func TestAskAudio_BlankTranscript(t *testing.T) {
	f := newFixture(t)
	f.online.asr.text = ""

	_, err := f.build().AskAudio(context.Background(), []byte("wav"))
	if !errors.Is(err, domain.ErrEmptyResult) {
		t.Errorf("expected ErrEmptyResult, got %v", err)
	}
	if f.online.llm.calls != 0 {
		t.Error("generation must not run without a transcript")
	}
}

package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/voxhome/internal/domain/batch"
	"github.com/kailas-cloud/voxhome/internal/domain/vector"
	"github.com/kailas-cloud/voxhome/internal/usecase/knowledge"
)

type mockKB struct {
	mu        sync.Mutex
	batches   [][]knowledge.Input
	failText  string
	removed   string
	removeN   int
	removeErr error
}

func (m *mockKB) AddBatch(_ context.Context, items []knowledge.Input) []batch.Result {
	m.mu.Lock()
	m.batches = append(m.batches, items)
	m.mu.Unlock()

	out := make([]batch.Result, len(items))
	for i, it := range items {
		if it.Text == m.failText {
			out[i] = batch.NewError(i, errors.New("embed failed"))
			continue
		}
		out[i] = batch.NewOK(i, "id-"+it.Text, nil)
	}
	return out
}

func (m *mockKB) RemoveBySource(_ context.Context, source string) (int, error) {
	m.removed = source
	return m.removeN, m.removeErr
}

func TestParseText(t *testing.T) {
	text := "第一段\r\n\r\n\n  \n第二段很长很长\n\n"
	items := parseText(text, 3)

	var got []string
	for _, it := range items {
		got = append(got, it.Text)
	}
	want := []string{"第一段", "第二段", "很长很", "长"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("parseText = %v, want %v", got, want)
	}
}

func TestParseJSONL(t *testing.T) {
	in := `{"text":"客厅灯在沙发上方","metadata":{"category":"device"}}

{"text":"卧室空调"}
`
	items, err := parseJSONL(strings.NewReader(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Metadata["category"] != "device" || items[1].Text != "卧室空调" {
		t.Errorf("items = %+v", items)
	}
}

func TestParseJSONL_BadLine(t *testing.T) {
	_, err := parseJSONL(strings.NewReader("{\"text\":\"ok\"}\nnot json\n"))
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("expected line 2 error, got %v", err)
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	md := filepath.Join(dir, "notes.md")
	jl := filepath.Join(dir, "facts.JSONL")
	if err := os.WriteFile(md, []byte("a\n\nb"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(jl, []byte(`{"text":"c"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	items, err := readFile(md, 100)
	if err != nil || len(items) != 2 {
		t.Errorf("markdown: %d items, err %v", len(items), err)
	}
	items, err = readFile(jl, 100)
	if err != nil || len(items) != 1 || items[0].Text != "c" {
		t.Errorf("jsonl: %+v, err %v", items, err)
	}
	if _, err := readFile(filepath.Join(dir, "missing.txt"), 100); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestTag(t *testing.T) {
	shared := map[string]string{"category": "faq"}
	items := []knowledge.Input{{Text: "a", Metadata: shared}, {Text: "b"}}

	tag(items, "manual-import")

	for _, it := range items {
		if it.Metadata[vector.KeySource] != "manual-import" {
			t.Errorf("item %q source = %q", it.Text, it.Metadata[vector.KeySource])
		}
	}
	if items[0].Metadata["category"] != "faq" {
		t.Error("existing metadata must be kept")
	}
	if _, ok := shared[vector.KeySource]; ok {
		t.Error("input map must not be mutated")
	}
}

func TestLoad_BatchesAndCounts(t *testing.T) {
	kb := &mockKB{failText: "c"}
	items := []knowledge.Input{{Text: "a"}, {Text: "b"}, {Text: "c"}, {Text: "d"}, {Text: "e"}}

	rep, err := load(context.Background(), kb, items, options{Workers: 2, BatchSize: 2}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Succeeded != 4 || rep.Failed != 1 {
		t.Errorf("report = %+v", rep)
	}
	if len(kb.batches) != 3 {
		t.Errorf("expected 3 batches, got %d", len(kb.batches))
	}
	for _, b := range kb.batches {
		if len(b) > 2 {
			t.Errorf("batch of %d exceeds size 2", len(b))
		}
	}
}

func TestLoad_Replace(t *testing.T) {
	kb := &mockKB{removeN: 7}
	items := []knowledge.Input{{Text: "a"}}

	rep, err := load(context.Background(), kb, items,
		options{Source: "faq", Replace: true, Workers: 1, BatchSize: 10}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kb.removed != "faq" || rep.Removed != 7 {
		t.Errorf("removed %q (%d)", kb.removed, rep.Removed)
	}
	if kb.batches[0][0].Metadata[vector.KeySource] != "faq" {
		t.Error("loaded items must carry the source tag")
	}
}

func TestLoad_ReplaceErrors(t *testing.T) {
	if _, err := load(context.Background(), &mockKB{}, nil, options{Replace: true}, zap.NewNop()); err == nil {
		t.Error("expected error for --replace without --source")
	}

	kb := &mockKB{removeErr: errors.New("store down")}
	_, err := load(context.Background(), kb, []knowledge.Input{{Text: "a"}},
		options{Source: "faq", Replace: true}, zap.NewNop())
	if err == nil {
		t.Fatal("expected remove error")
	}
	if len(kb.batches) != 0 {
		t.Error("nothing may load after a failed replace")
	}
}

func TestLoad_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	kb := &mockKB{}
	_, err := load(ctx, kb, []knowledge.Input{{Text: "a"}}, options{Workers: 1, BatchSize: 1}, zap.NewNop())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(kb.batches) != 0 {
		t.Error("no batch may run after cancellation")
	}
}

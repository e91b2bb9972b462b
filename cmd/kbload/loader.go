package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/voxhome/internal/domain/batch"
	"github.com/kailas-cloud/voxhome/internal/domain/vector"
	"github.com/kailas-cloud/voxhome/internal/usecase/knowledge"
	"github.com/kailas-cloud/voxhome/internal/usecase/pipeline"
)

// knowledgeBase is the part of the knowledge service the loader drives.
type knowledgeBase interface {
	AddBatch(ctx context.Context, items []knowledge.Input) []batch.Result
	RemoveBySource(ctx context.Context, source string) (int, error)
}

// options are the loader flags.
type options struct {
	Source    string
	Replace   bool
	Chunk     int
	Workers   int
	BatchSize int
}

// report counts loaded items.
type report struct {
	Succeeded int
	Failed    int
	Removed   int
}

// jsonlRecord is one line of a JSONL input.
type jsonlRecord struct {
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata"`
}

// readFile parses one input file: JSONL by extension, plain text otherwise.
func readFile(path string, chunk int) ([]knowledge.Input, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	if strings.EqualFold(filepath.Ext(path), ".jsonl") {
		return parseJSONL(f)
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return parseText(string(data), chunk), nil
}

// parseJSONL reads {text, metadata} lines. Blank lines are skipped.
func parseJSONL(r io.Reader) ([]knowledge.Input, error) {
	var items []knowledge.Input
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4<<20)
	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		var rec jsonlRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		items = append(items, knowledge.Input{Text: rec.Text, Metadata: rec.Metadata})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	return items, nil
}

// parseText splits text into paragraphs on blank lines and chunks long ones.
func parseText(text string, chunk int) []knowledge.Input {
	var items []knowledge.Input
	text = strings.ReplaceAll(text, "\r\n", "\n")
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		for _, part := range pipeline.SplitRunes(para, chunk) {
			if part = strings.TrimSpace(part); part != "" {
				items = append(items, knowledge.Input{Text: part})
			}
		}
	}
	return items
}

// tag sets the source on every item, keeping the rest of its metadata.
func tag(items []knowledge.Input, source string) {
	if source == "" {
		return
	}
	for i := range items {
		md := make(map[string]string, len(items[i].Metadata)+1)
		for k, v := range items[i].Metadata {
			md[k] = v
		}
		md[vector.KeySource] = source
		items[i].Metadata = md
	}
}

// load writes items in batches on a bounded set of workers.
func load(ctx context.Context, kb knowledgeBase, items []knowledge.Input, opts options, logger *zap.Logger) (report, error) {
	var rep report
	if opts.Replace {
		if opts.Source == "" {
			return rep, fmt.Errorf("--replace requires --source")
		}
		n, err := kb.RemoveBySource(ctx, opts.Source)
		if err != nil {
			return rep, fmt.Errorf("remove source %q: %w", opts.Source, err)
		}
		rep.Removed = n
		logger.Info("Removed previous documents", zap.String("source", opts.Source), zap.Int("count", n))
	}
	tag(items, opts.Source)

	size := max(opts.BatchSize, 1)
	var succeeded, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Workers, 1))
	for start := 0; start < len(items); start += size {
		part := items[start:min(start+size, len(items))]
		offset := start
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err //nolint:wrapcheck // cancellation
			}
			results := kb.AddBatch(gctx, part)
			for _, r := range results {
				if r.OK() {
					continue
				}
				logger.Warn("Item failed", zap.Int("index", offset+r.Index()), zap.Error(r.Err()))
			}
			ok, bad := batch.Count(results)
			succeeded.Add(int64(ok))
			failed.Add(int64(bad))
			return nil
		})
	}
	err := g.Wait()

	rep.Succeeded = int(succeeded.Load())
	rep.Failed = int(failed.Load())
	if err != nil {
		return rep, fmt.Errorf("load: %w", err)
	}
	return rep, nil
}

package audit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	domaudit "github.com/kailas-cloud/voxhome/internal/domain/audit"
)

// store is the consumer interface for the chat history (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Incr(ctx context.Context, key string) (int64, error)
	ZAdd(ctx context.Context, key string, score float64, member string) error
	ZRevRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	ZCard(ctx context.Context, key string) (int64, error)
}

// Repo is the append-only chat history.
type Repo struct {
	store  store
	prefix string
	now    func() time.Time
}

// New creates a chat history repository.
func New(s store, keyPrefix string) *Repo {
	return &Repo{store: s, prefix: keyPrefix, now: time.Now}
}

// Append stores rec with a fresh id and creation time.
func (r *Repo) Append(ctx context.Context, rec domaudit.Record) (domaudit.Record, error) {
	id, err := r.store.Incr(ctx, r.prefix+"seq:chat")
	if err != nil {
		return domaudit.Record{}, fmt.Errorf("allocate chat id: %w", err)
	}
	rec.ID = id
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.now()
	}

	if err := r.store.HSet(ctx, r.key(id), buildHashFields(rec)); err != nil {
		return domaudit.Record{}, fmt.Errorf("hset chat %d: %w", id, err)
	}
	if err := r.store.ZAdd(ctx, r.indexKey(), float64(id), strconv.FormatInt(id, 10)); err != nil {
		return domaudit.Record{}, fmt.Errorf("index chat %d: %w", id, err)
	}
	return rec, nil
}

// Page returns records newest first. page is zero-based.
func (r *Repo) Page(ctx context.Context, page, size int) (domaudit.Page, error) {
	out := domaudit.Page{Page: page, Size: size}

	total, err := r.store.ZCard(ctx, r.indexKey())
	if err != nil {
		return out, fmt.Errorf("count chats: %w", err)
	}
	out.Total = total

	start := int64(page) * int64(size)
	if size <= 0 || start >= total {
		return out, nil
	}

	members, err := r.store.ZRevRange(ctx, r.indexKey(), start, start+int64(size)-1)
	if err != nil {
		return out, fmt.Errorf("range chats: %w", err)
	}

	ids := make([]int64, 0, len(members))
	keys := make([]string, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
		keys = append(keys, r.key(id))
	}
	if len(keys) == 0 {
		return out, nil
	}

	rows, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return out, fmt.Errorf("load chats: %w", err)
	}
	out.Items = make([]domaudit.Record, 0, len(rows))
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		out.Items = append(out.Items, parseHashFields(ids[i], row))
	}
	return out, nil
}

func (r *Repo) key(id int64) string { return r.prefix + "chat:" + strconv.FormatInt(id, 10) }
func (r *Repo) indexKey() string { return r.prefix + "chats" }

func buildHashFields(rec domaudit.Record) map[string]string {
	return map[string]string{
		"question":     rec.Question,
		"answer":       rec.Answer,
		"mode":         string(rec.Mode),
		"answerSource": rec.AnswerSource,
		"ragUsed":      strconv.FormatBool(rec.RAGUsed),
		"ragContext":   rec.RAGContext,
		"createdAt":    rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func parseHashFields(id int64, m map[string]string) domaudit.Record {
	used, _ := strconv.ParseBool(m["ragUsed"])
	created, _ := time.Parse(time.RFC3339Nano, m["createdAt"])
	return domaudit.Record{
		ID:           id,
		Question:     m["question"],
		Answer:       m["answer"],
		Mode:         domaudit.Mode(m["mode"]),
		AnswerSource: m["answerSource"],
		RAGUsed:      used,
		RAGContext:   m["ragContext"],
		CreatedAt:    created,
	}
}

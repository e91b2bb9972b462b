package redis

import (
	"context"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/voxhome/internal/db"
)

// scanCount is the SCAN page hint; vector documents are the largest keyspace.
const scanCount = 500

func (s *Store) hset(key string, fields map[string]string) rueidis.Completed {
	cmd := s.b().Hset().Key(key).FieldValue()
	for k, v := range fields {
		cmd = cmd.FieldValue(k, v)
	}
	return cmd.Build()
}

// HSet sets hash fields. An empty field map is a no-op.
func (s *Store) HSet(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	if err := s.do(ctx, s.hset(key, fields)).Error(); err != nil {
		return &db.Error{Op: db.OpHSet, Err: err}
	}
	return nil
}

// HSetMulti writes several hashes in one round-trip. Writes are not
// transactional: on error, earlier hashes may already be stored.
func (s *Store) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	keys := make([]string, 0, len(items))
	cmds := make([]rueidis.Completed, 0, len(items))
	for _, item := range items {
		if len(item.Fields) == 0 {
			continue
		}
		keys = append(keys, item.Key)
		cmds = append(cmds, s.hset(item.Key, item.Fields))
	}
	if len(cmds) == 0 {
		return nil
	}
	_, err := s.doMulti(ctx, db.OpHSet, keys, cmds)
	return err
}

// HGetAll returns all fields of a hash. A missing key yields db.ErrKeyNotFound.
func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	m, err := s.do(ctx, s.b().Hgetall().Key(key).Build()).AsStrMap()
	if err != nil {
		return nil, &db.Error{Op: db.OpHGetAll, Err: err}
	}
	if len(m) == 0 {
		return nil, db.ErrKeyNotFound
	}
	return m, nil
}

// HGetAllMulti reads several hashes in one round-trip. A missing key comes
// back as an empty map at its position.
func (s *Store) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	cmds := make([]rueidis.Completed, len(keys))
	for i, key := range keys {
		cmds[i] = s.b().Hgetall().Key(key).Build()
	}

	results, err := s.doMulti(ctx, db.OpHGetAll, keys, cmds)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]string, len(results))
	for i, res := range results {
		m, err := res.AsStrMap()
		if err != nil {
			return nil, &db.Error{Op: db.OpHGetAll, Err: err}
		}
		out[i] = m
	}
	return out, nil
}

// Del deletes keys. Each key gets its own DEL in one pipeline, so keys in
// different cluster slots are fine. No keys is a no-op.
func (s *Store) Del(ctx context.Context, keys ...string) error {
	switch len(keys) {
	case 0:
		return nil
	case 1:
		if err := s.do(ctx, s.b().Del().Key(keys[0]).Build()).Error(); err != nil {
			return &db.Error{Op: db.OpDel, Err: err}
		}
		return nil
	}
	cmds := make([]rueidis.Completed, len(keys))
	for i, key := range keys {
		cmds[i] = s.b().Del().Key(key).Build()
	}
	_, err := s.doMulti(ctx, db.OpDel, keys, cmds)
	return err
}

// Scan returns every key matching pattern. SCAN may report a key more than
// once across pages; the result holds each key once, in first-seen order.
func (s *Store) Scan(ctx context.Context, pattern string) ([]string, error) {
	var (
		keys   []string
		seen   = make(map[string]struct{})
		cursor uint64
	)
	for {
		cmd := s.b().Scan().Cursor(cursor).Match(pattern).Count(scanCount).Build()
		page, err := s.do(ctx, cmd).AsScanEntry()
		if err != nil {
			return nil, &db.Error{Op: db.OpScan, Err: err}
		}
		for _, k := range page.Elements {
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
		if cursor = page.Cursor; cursor == 0 {
			return keys, nil
		}
	}
}

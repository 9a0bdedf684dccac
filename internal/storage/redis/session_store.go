package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"deskpet/internal/storage"

	"github.com/redis/go-redis/v9"
)

type sessionStore struct {
	client *redis.Client
}

// Append stores the record hash and indexes it by end time.
func (s *sessionStore) Append(ctx context.Context, record storage.SessionRecord) error {
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, fmt.Sprintf(keySessionFmt, record.ID), map[string]interface{}{
		"id":         record.ID,
		"mode":       record.Mode,
		"started_at": record.StartedAt.Format(time.RFC3339Nano),
		"ended_at":   record.EndedAt.Format(time.RFC3339Nano),
		"elapsed":    int64(record.Elapsed),
		"reason":     record.Reason,
	})
	pipe.ZAdd(ctx, keySessionIndex, redis.Z{
		Score:  float64(record.EndedAt.UnixMilli()),
		Member: record.ID,
	})
	_, err := pipe.Exec(ctx)
	return err
}

// List returns records newest first.
func (s *sessionStore) List(ctx context.Context, limit int) ([]storage.SessionRecord, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	ids, err := s.client.ZRevRange(ctx, keySessionIndex, 0, stop).Result()
	if err != nil {
		return nil, err
	}

	records := make([]storage.SessionRecord, 0, len(ids))
	if len(ids) == 0 {
		return records, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, fmt.Sprintf(keySessionFmt, id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	for _, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			continue
		}
		record, err := parseSession(data)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, nil
}

func (s *sessionStore) Get(ctx context.Context, id string) (*storage.SessionRecord, error) {
	data, err := s.client.HGetAll(ctx, fmt.Sprintf(keySessionFmt, id)).Result()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, storage.ErrNotFound
	}
	return parseSession(data)
}

func (s *sessionStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int, error) {
	ids, err := s.client.ZRangeByScore(ctx, keySessionIndex, &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(cutoff.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	pipe := s.client.TxPipeline()
	members := make([]interface{}, len(ids))
	for i, id := range ids {
		pipe.Del(ctx, fmt.Sprintf(keySessionFmt, id))
		members[i] = id
	}
	pipe.ZRem(ctx, keySessionIndex, members...)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return len(ids), nil
}

func parseSession(data map[string]string) (*storage.SessionRecord, error) {
	startedAt, err := time.Parse(time.RFC3339Nano, data["started_at"])
	if err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	endedAt, err := time.Parse(time.RFC3339Nano, data["ended_at"])
	if err != nil {
		return nil, fmt.Errorf("parse ended_at: %w", err)
	}
	elapsed, err := strconv.ParseInt(data["elapsed"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse elapsed: %w", err)
	}

	return &storage.SessionRecord{
		ID:        data["id"],
		Mode:      data["mode"],
		StartedAt: startedAt,
		EndedAt:   endedAt,
		Elapsed:   time.Duration(elapsed),
		Reason:    data["reason"],
	}, nil
}

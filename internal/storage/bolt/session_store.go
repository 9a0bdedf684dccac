package bolt

import (
	"context"
	"fmt"
	"time"

	"deskpet/internal/storage"

	"go.etcd.io/bbolt"
)

type sessionStore struct {
	db *bbolt.DB
}

func (s *sessionStore) Append(ctx context.Context, record storage.SessionRecord) error {
	data, err := marshal(record)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b := tx.Bucket([]byte(bucketSessions))
		if b == nil {
			return fmt.Errorf("sessions bucket missing")
		}
		return b.Put(sessionKey(record), data)
	})
}

func (s *sessionStore) List(ctx context.Context, limit int) ([]storage.SessionRecord, error) {
	records := make([]storage.SessionRecord, 0)
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketSessions))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if limit > 0 && len(records) >= limit {
				return nil
			}
			var record storage.SessionRecord
			if err := unmarshal(v, &record); err != nil {
				return err
			}
			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (s *sessionStore) Get(ctx context.Context, id string) (*storage.SessionRecord, error) {
	var found *storage.SessionRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketSessions))
		if b == nil {
			return storage.ErrNotFound
		}
		c := b.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var record storage.SessionRecord
			if err := unmarshal(v, &record); err != nil {
				return err
			}
			if record.ID == id {
				found = &record
				return nil
			}
		}
		return storage.ErrNotFound
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

func (s *sessionStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int, error) {
	deleted := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b := tx.Bucket([]byte(bucketSessions))
		if b == nil {
			return nil
		}

		var keys [][]byte
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var record storage.SessionRecord
			if err := unmarshal(v, &record); err != nil {
				return err
			}
			if !record.EndedAt.Before(cutoff) {
				break
			}
			keys = append(keys, append([]byte(nil), k...))
		}

		for _, k := range keys {
			if err := b.Delete(k); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	return deleted, err
}

package bolt

import (
	"context"
	"fmt"

	"go.etcd.io/bbolt"
)

type settingsStore struct {
	db *bbolt.DB
}

func (s *settingsStore) Load(ctx context.Context) (map[string]string, error) {
	values := make(map[string]string)
	err := s.db.View(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b := tx.Bucket([]byte(bucketSettings))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			values[string(k)] = string(v)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return values, nil
}

func (s *settingsStore) Save(ctx context.Context, values map[string]string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b := tx.Bucket([]byte(bucketSettings))
		if b == nil {
			return fmt.Errorf("settings bucket missing")
		}
		for key, value := range values {
			if err := b.Put([]byte(key), []byte(value)); err != nil {
				return fmt.Errorf("save setting %s: %w", key, err)
			}
		}
		return nil
	})
}

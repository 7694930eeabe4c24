package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bloops-games/joustparty/internal/cache"
	"github.com/bloops-games/joustparty/internal/database"
	"github.com/bloops-games/joustparty/internal/settings"
	bolt "go.etcd.io/bbolt"
)

const (
	bucket = "settings"
	key    = "values"
)

var _ settings.Store = (*DB)(nil)

func New(db *database.DB, cache cache.Cache[string, settings.Values]) *DB {
	return &DB{sDB: db, cache: cache}
}

// DB persists settings.Values as one JSON document.
type DB struct {
	sDB *database.DB

	cache cache.Cache[string, settings.Values]
}

func (db *DB) Fetch() (settings.Values, error) {
	if db.cache != nil {
		if v, ok := db.cache.Get(key); ok {
			return v, nil
		}
	}

	values := settings.Defaults()
	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		bytes := b.Get([]byte(key))
		if len(bytes) == 0 {
			return nil
		}
		if err := json.Unmarshal(bytes, &values); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		return nil
	}); err != nil {
		return values, fmt.Errorf("view transaction error: %w", err)
	}

	if !values.Sensitivity.Valid() {
		values.Sensitivity = settings.Medium
	}

	if db.cache != nil {
		db.cache.Add(key, values)
	}

	return values, nil
}

func (db *DB) Store(values settings.Values) error {
	bytes, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	if err := db.sDB.DB.Update(func(tx *bolt.Tx) error {
		b, err := database.Bucket(tx, []byte(bucket))
		if err != nil {
			return err
		}
		if err := b.Put([]byte(key), bytes); err != nil {
			return fmt.Errorf("put to bucket error: %w", err)
		}
		return nil
	}); err != nil {
		return fmt.Errorf("update transaction error: %w", err)
	}

	if db.cache != nil {
		db.cache.Add(key, values)
	}

	return nil
}

func (db *DB) Sensitivity(context.Context) (settings.Sensitivity, error) {
	values, err := db.Fetch()
	if err != nil {
		return settings.Medium, fmt.Errorf("fetch: %w", err)
	}
	return values.Sensitivity, nil
}

func (db *DB) SetSensitivity(_ context.Context, s settings.Sensitivity) error {
	if !s.Valid() {
		return fmt.Errorf("invalid sensitivity %d", s)
	}
	values, err := db.Fetch()
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	values.Sensitivity = s
	return db.Store(values)
}

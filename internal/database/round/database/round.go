package database

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bloops-games/joustparty/internal/cache"
	"github.com/bloops-games/joustparty/internal/database"
	"github.com/bloops-games/joustparty/internal/database/round/model"
	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

const bucket = "rounds"

var ErrNotFound = errors.New("not found")

func New(db *database.DB, cache cache.Cache[uuid.UUID, model.Round]) *DB {
	return &DB{sDB: db, cache: cache}
}

type DB struct {
	sDB *database.DB

	cache cache.Cache[uuid.UUID, model.Round]
}

// key orders rounds by start time; the id keeps equal timestamps apart.
func key(r model.Round) []byte {
	k := make([]byte, 8+16)
	binary.BigEndian.PutUint64(k, uint64(r.Started.UnixNano()))
	copy(k[8:], r.ID[:])
	return k
}

func (db *DB) Add(r model.Round) error {
	tx, err := db.sDB.DB.Begin(true)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}

	defer tx.Rollback() //nolint

	b, err := database.Bucket(tx, []byte(bucket))
	if err != nil {
		return err
	}

	value, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	if err := b.Put(key(r), value); err != nil {
		return fmt.Errorf("put to bucket error: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	if db.cache != nil {
		db.cache.Add(r.ID, r)
	}

	return nil
}

// Recent returns up to n rounds, newest first.
func (db *DB) Recent(n int) ([]model.Round, error) {
	var list []model.Round
	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}

		c := b.Cursor()
		for k, v := c.Last(); k != nil && len(list) < n; k, v = c.Prev() {
			var r model.Round
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("json unmarshal error, %w", err)
			}
			list = append(list, r)
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("view transaction error: %w", err)
	}

	return list, nil
}

func (db *DB) Fetch(id uuid.UUID) (model.Round, error) {
	if db.cache != nil {
		if r, ok := db.cache.Get(id); ok {
			return r, nil
		}
	}

	var (
		found bool
		r     model.Round
	)
	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			if found || len(k) != 24 || !bytes.Equal(k[8:], id[:]) {
				return nil
			}
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("json unmarshal error, %w", err)
			}
			found = true
			return nil
		})
	}); err != nil {
		return r, fmt.Errorf("view transaction error: %w", err)
	}

	if !found {
		return r, ErrNotFound
	}

	if db.cache != nil {
		db.cache.Add(id, r)
	}

	return r, nil
}

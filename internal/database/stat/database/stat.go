package database

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bloops-games/joustparty/internal/cache"
	"github.com/bloops-games/joustparty/internal/database"
	"github.com/bloops-games/joustparty/internal/database/stat/model"
	bolt "go.etcd.io/bbolt"
)

const prefix = "stat:"

var ErrNotFound = errors.New("not found")

func New(db *database.DB, cache cache.Cache[string, []model.Stat]) *DB {
	return &DB{sDB: db, cache: cache}
}

type DB struct {
	sDB *database.DB

	cache cache.Cache[string, []model.Stat]
}

// bucket keeps the stats of one controller apart from the others.
func bucket(addr string) []byte {
	return []byte(prefix + addr)
}

func (db *DB) FetchProfileStat(addr string) (model.AggregationStat, error) {
	aggregationStat := model.AggregationStat{Modes: map[string]int{}}

	stats, err := db.FetchByAddress(addr)
	if err != nil {
		return aggregationStat, fmt.Errorf("fetch by address: %w", err)
	}

	var sumDuration time.Duration
	for _, stat := range stats {
		switch stat.Conclusion {
		case model.ConclusionWon:
			aggregationStat.Wins++
		case model.ConclusionOut:
			aggregationStat.Outs++
		case model.ConclusionInterrupted:
			aggregationStat.Interrupted++
		}

		if stat.Duration > aggregationStat.LongestRound {
			aggregationStat.LongestRound = stat.Duration
		}

		sumDuration += stat.Duration
		aggregationStat.Modes[stat.Mode]++
		aggregationStat.Count++
	}

	if aggregationStat.Count > 0 {
		aggregationStat.AvgDuration = sumDuration / time.Duration(aggregationStat.Count)
	}

	return aggregationStat, nil
}

func (db *DB) FetchByAddress(addr string) ([]model.Stat, error) {
	if db.cache != nil {
		if v, ok := db.cache.Get(addr); ok {
			return v, nil
		}
	}

	var list []model.Stat
	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket(addr))
		if b == nil {
			return ErrNotFound
		}

		if err := b.ForEach(func(k, v []byte) error {
			var stat model.Stat
			if err := json.Unmarshal(v, &stat); err != nil {
				return fmt.Errorf("json unmarshal error, %w", err)
			}
			list = append(list, stat)
			return nil
		}); err != nil {
			return fmt.Errorf("bucket for each: %w", err)
		}

		return nil
	}); err != nil {
		return nil, fmt.Errorf("view transaction error: %w", err)
	}

	if db.cache != nil {
		db.cache.Add(addr, list)
	}

	return list, nil
}

// Add stores the stats of one round in a single transaction.
func (db *DB) Add(stats ...model.Stat) error {
	tx, err := db.sDB.DB.Begin(true)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}

	defer tx.Rollback() //nolint

	for _, m := range stats {
		b, err := database.Bucket(tx, bucket(m.Address))
		if err != nil {
			return err
		}

		value, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("marshal: %w", err)
		}

		if err := b.Put(m.RoundID[:], value); err != nil {
			return fmt.Errorf("put to bucket error: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	if db.cache != nil {
		for _, m := range stats {
			db.cache.Delete(m.Address)
		}
	}

	return nil
}

// Package database opens the bolt file shared by the settings and round stores.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/bloops-games/joustparty/internal/logging"
	bolt "go.etcd.io/bbolt"
)

type Config struct {
	FilePath  string `envconfig:"JOUST_DB_PATH" default:"joust.db"`
	CacheSize int    `envconfig:"JOUST_DB_CACHE_SIZE" default:"128"`
}

type DB struct {
	DB *bolt.DB
}

func New(ctx context.Context, config *Config) (*DB, error) {
	logger := logging.FromContext(ctx).Named("database.New")
	logger.Infof("opening %s", config.FilePath)

	db, err := bolt.Open(config.FilePath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("creating connection DB: %w", err)
	}

	return &DB{DB: db}, nil
}

func (db *DB) Close(ctx context.Context) error {
	logger := logging.FromContext(ctx).Named("database.Close")
	logger.Infof("closing DB connection")

	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("error close DB connection: %w", err)
	}

	return nil
}

// Bucket returns the named bucket, creating it inside a writable transaction.
func Bucket(tx *bolt.Tx, name []byte) (*bolt.Bucket, error) {
	if b := tx.Bucket(name); b != nil {
		return b, nil
	}
	if !tx.Writable() {
		return nil, nil
	}
	b, err := tx.CreateBucket(name)
	if err != nil {
		return nil, fmt.Errorf("create bucket %s: %w", name, err)
	}
	return b, nil
}

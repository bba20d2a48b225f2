package store

import (
	"context"
	"encoding/json"
	"time"

	"rdwrapper/pkg/realdebrid"

	"go.etcd.io/bbolt"
)

const BucketTokens = "tokens"

type tokenRecord struct {
	Username  string    `json:"username"`
	Token     string    `json:"token"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BoltCache is a realdebrid.TokenCache kept in a bbolt file.
type BoltCache struct {
	db *bbolt.DB
}

var _ realdebrid.TokenCache = (*BoltCache)(nil)

func NewBolt(path string) (*BoltCache, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(BucketTokens))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &BoltCache{db: db}, nil
}

func (c *BoltCache) Close() error {
	return c.db.Close()
}

func (c *BoltCache) Get(_ context.Context, username, password string) (string, bool, error) {
	var rec tokenRecord
	var found bool
	err := c.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(BucketTokens)).Get([]byte(realdebrid.CacheKey(username, password)))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &rec)
	})
	if err != nil || !found {
		return "", false, err
	}
	return rec.Token, rec.Token != "", nil
}

func (c *BoltCache) Set(_ context.Context, username, password, token string) error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(tokenRecord{Username: username, Token: token, UpdatedAt: time.Now()})
		if err != nil {
			return err
		}
		return tx.Bucket([]byte(BucketTokens)).Put([]byte(realdebrid.CacheKey(username, password)), data)
	})
}

func (c *BoltCache) Delete(_ context.Context, username, password string) error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(BucketTokens)).Delete([]byte(realdebrid.CacheKey(username, password)))
	})
}

// Package storage keeps the client's local state: the login identity and
// the upload cache.
package storage

import (
	"fmt"
	"time"

	"parley/internal/models"

	"go.etcd.io/bbolt"
)

var (
	bucketSession = []byte("session")
	bucketUploads = []byte("uploads")
)

type BoltStorage struct {
	db  *bbolt.DB
	now func() time.Time
}

func NewBoltStorage(path string) (*BoltStorage, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bbolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketSession, bucketUploads} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	return &BoltStorage{db: db, now: time.Now}, nil
}

func (s *BoltStorage) Close() error {
	return s.db.Close()
}

func (s *BoltStorage) put(bucket []byte, item Storeable) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := item.MarshalBinary()
		if err != nil {
			return fmt.Errorf("failed to marshal: %w", err)
		}
		return tx.Bucket(bucket).Put(item.Key(), data)
	})
}

func (s *BoltStorage) get(bucket []byte, item Storeable) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucket).Get(item.Key())
		if data == nil {
			return models.ErrNotFound
		}
		return item.UnmarshalBinary(data)
	})
}

// Load returns the stored identity or models.ErrNotFound.
func (s *BoltStorage) Load() (models.Identity, error) {
	var rec DBIdentity
	if err := s.get(bucketSession, &rec); err != nil {
		return models.Identity{}, err
	}
	return rec.Identity(), nil
}

func (s *BoltStorage) Save(id models.Identity) error {
	rec := newDBIdentity(id)
	rec.SavedAt = s.now().Unix()
	return s.put(bucketSession, rec)
}

func (s *BoltStorage) Clear() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSession).Delete(identityKey)
	})
}

func (s *BoltStorage) UpsertUpload(u Upload) error {
	if u.CreatedAt == 0 {
		u.CreatedAt = s.now().Unix()
	}
	return s.put(bucketUploads, &u)
}

// GetUpload returns the cached upload for a content hash or models.ErrNotFound.
func (s *BoltStorage) GetUpload(hash string) (Upload, error) {
	u := Upload{Hash: hash}
	if err := s.get(bucketUploads, &u); err != nil {
		return Upload{}, err
	}
	return u, nil
}

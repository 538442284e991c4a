package storage

import (
	"parley/internal/models"

	"github.com/c-pro/geche"
)

// MemoryStorage keeps the same records as BoltStorage for the lifetime of
// the process only.
type MemoryStorage struct {
	session geche.Geche[string, models.Identity]
	uploads geche.Geche[string, Upload]
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		session: geche.NewMapCache[string, models.Identity](),
		uploads: geche.NewMapCache[string, Upload](),
	}
}

func (s *MemoryStorage) Load() (models.Identity, error) {
	id, err := s.session.Get(string(identityKey))
	if err != nil {
		return models.Identity{}, models.ErrNotFound
	}
	return id, nil
}

func (s *MemoryStorage) Save(id models.Identity) error {
	s.session.Set(string(identityKey), id)
	return nil
}

func (s *MemoryStorage) Clear() error {
	_ = s.session.Del(string(identityKey))
	return nil
}

func (s *MemoryStorage) UpsertUpload(u Upload) error {
	s.uploads.Set(u.Hash, u)
	return nil
}

func (s *MemoryStorage) GetUpload(hash string) (Upload, error) {
	u, err := s.uploads.Get(hash)
	if err != nil {
		return Upload{}, models.ErrNotFound
	}
	return u, nil
}

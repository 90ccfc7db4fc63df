// Package inmemstore is an in-process core.Store with real compare-and-swap
// semantics. It backs tests and the "memory" storage backend.
package inmemstore

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/epe202/ulas/core"
)

type blob struct {
	value   []byte
	version string
}

type Store struct {
	mu    sync.Mutex
	blobs map[string]*blob

	// PutHook, when set, runs inside the lock before every Put commits.
	// Tests use it to inject conflicts and outages.
	PutHook func(key string) error
}

var _ core.Store = (*Store)(nil) // interface compliance check

func Open() *Store {
	return &Store{blobs: make(map[string]*blob)}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.blobs[key]
	if !ok {
		return nil, "", core.ErrKeyNotFound
	}
	value := make([]byte, len(b.value))
	copy(value, b.value)
	return value, b.version, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte, message, version string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.PutHook != nil {
		if err := s.PutHook(key); err != nil {
			return err
		}
	}

	b, ok := s.blobs[key]
	if version == "" {
		if ok {
			return core.ErrVersionConflict
		}
	} else {
		if !ok {
			return core.ErrKeyNotFound
		}
		if b.version != version {
			return core.ErrVersionConflict
		}
	}

	stored := make([]byte, len(value))
	copy(stored, value)
	s.blobs[key] = &blob{value: stored, version: uuid.New().String()}
	return nil
}

func (s *Store) ListPrefix(ctx context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var keys []string
	for k := range s.blobs {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/patrickmn/go-cache"
)

// CacheStore keeps values in memory and, when a path is set, mirrors them to a
// JSON file written with the given mode.
type CacheStore struct {
	mu    sync.Mutex
	cache *cache.Cache
	path  string
	perm  os.FileMode
}

// NewMemoryStore returns a CacheStore that never touches the disk.
func NewMemoryStore() *CacheStore {
	return &CacheStore{cache: cache.New(cache.NoExpiration, 0)}
}

func NewCacheStore(path string, perm os.FileMode) (*CacheStore, error) {
	if len(path) == 0 {
		return NewMemoryStore(), nil
	}

	items, err := readItems(path)

	if err != nil {
		return nil, err
	}

	return &CacheStore{
		cache: cache.NewFrom(cache.NoExpiration, 0, items),
		path:  path,
		perm:  perm,
	}, nil
}

func (s *CacheStore) Get(_ context.Context, key string) (string, bool, error) {
	value, found := s.cache.Get(key)

	if !found {
		return "", false, nil
	}

	str, ok := value.(string)

	if !ok {
		return "", false, fmt.Errorf("value for key '%v' is not a string", key)
	}

	return str, true, nil
}

func (s *CacheStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache.Set(key, value, cache.NoExpiration)

	return s.flush()
}

func (s *CacheStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache.Delete(key)

	return s.flush()
}

func (s *CacheStore) flush() error {
	if len(s.path) == 0 {
		return nil
	}

	values := map[string]string{}

	for key, item := range s.cache.Items() {
		if str, ok := item.Object.(string); ok {
			values[key] = str
		}
	}

	body, err := json.Marshal(values)

	if err != nil {
		return fmt.Errorf("failed to marshal store: %w", err)
	}

	dir := filepath.Dir(s.path)

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".kv-*")

	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write store: %w", err)
	}

	if err := tmp.Chmod(s.perm); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set store permissions: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close store: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace store: %w", err)
	}

	return nil
}

func readItems(path string) (map[string]cache.Item, error) {
	items := map[string]cache.Item{}
	body, err := os.ReadFile(path)

	if errors.Is(err, os.ErrNotExist) {
		return items, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read store '%v': %w", path, err)
	}

	values := map[string]string{}

	if len(body) != 0 {
		if err := json.Unmarshal(body, &values); err != nil {
			return nil, fmt.Errorf("failed to parse store '%v': %w", path, err)
		}
	}

	for key, value := range values {
		items[key] = cache.Item{Object: value}
	}

	return items, nil
}

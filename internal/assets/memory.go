package assets

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore implements Store in memory. Used by tests and for local
// development without a bucket.
type MemoryStore struct {
	mu      sync.Mutex
	baseURL string
	objects map[string][]byte
}

// NewMemoryStore creates an empty in-memory asset store
func NewMemoryStore(baseURL string) *MemoryStore {
	if baseURL == "" {
		baseURL = "https://assets.invalid"
	}
	return &MemoryStore{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		objects: make(map[string][]byte),
	}
}

func (s *MemoryStore) Upload(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read asset: %w", err)
	}

	key := uuid.NewString() + strings.ToLower(path.Ext(name))

	s.mu.Lock()
	s.objects[key] = data
	s.mu.Unlock()

	return s.baseURL + "/" + key, nil
}

func (s *MemoryStore) Delete(ctx context.Context, url string) error {
	if !s.Owns(url) {
		return ErrNotOwned
	}
	key := strings.TrimPrefix(strings.TrimPrefix(url, s.baseURL), "/")

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.objects[key]; !ok {
		return fmt.Errorf("asset not found: %s", key)
	}
	delete(s.objects, key)
	return nil
}

func (s *MemoryStore) Owns(url string) bool {
	return strings.HasPrefix(url, s.baseURL+"/")
}

// Len returns the number of stored objects
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

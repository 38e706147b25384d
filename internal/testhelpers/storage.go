package testhelpers

import (
	"context"
	"fmt"
	"sync"

	"github.com/foodgram/backend/internal/storage"
)

// MemoryImageStore keeps images in memory.
type MemoryImageStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	seq     int
	// FailSave makes Save return an error.
	FailSave bool
}

func NewMemoryImageStore() *MemoryImageStore {
	return &MemoryImageStore{objects: make(map[string][]byte)}
}

func (s *MemoryImageStore) Save(_ context.Context, folder string, img *storage.Image) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSave {
		return "", fmt.Errorf("storage unavailable")
	}
	s.seq++
	url := fmt.Sprintf("memory://%s/%d.%s", folder, s.seq, img.Ext)
	s.objects[url] = img.Data
	return url, nil
}

func (s *MemoryImageStore) Delete(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, url)
	return nil
}

// Has reports whether url is stored.
func (s *MemoryImageStore) Has(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[url]
	return ok
}

// Len returns the number of stored images.
func (s *MemoryImageStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

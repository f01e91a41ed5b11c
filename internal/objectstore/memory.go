package objectstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"syndicate/internal/services"
)

// Memory is an in-memory Store for tests.
type Memory struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string][]byte)}
}

func memoryKey(bucket, key string) string {
	return bucket + "/" + key
}

func (m *Memory) Exists(_ context.Context, bucket, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[memoryKey(bucket, key)]
	return ok, nil
}

func (m *Memory) List(_ context.Context, bucket, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bucketPrefix := bucket + "/"
	var keys []string
	for stored := range m.objects {
		if !strings.HasPrefix(stored, bucketPrefix) {
			continue
		}
		key := strings.TrimPrefix(stored, bucketPrefix)
		if prefix == "" || strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *Memory) Get(_ context.Context, bucket, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[memoryKey(bucket, key)]
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "objectstore", "get", fmt.Sprintf("%s/%s", bucket, key), nil)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *Memory) Put(_ context.Context, bucket, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	m.objects[memoryKey(bucket, key)] = stored
	return nil
}

// Package objectstore abstracts blob storage for selfies, composites, logos,
// and generated results.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrNotFound is returned when a key has no object.
var ErrNotFound = errors.New("objectstore: object not found")

// Object is a stored blob plus the metadata callers need to serve it.
type Object struct {
	Key         string
	ContentType string
	Data        []byte
}

// Store is the blob storage contract. Keys are slash-separated paths.
type Store interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	Get(ctx context.Context, key string) (Object, error)
	Delete(ctx context.Context, key string) error
	// Presign returns a URL that grants read access to the key for the
	// given duration. Implementations without signing return a plain path.
	Presign(ctx context.Context, key string, expiry time.Duration) (string, error)
	List(ctx context.Context, prefix string) ([]string, error)
}

// Memory is an in-process Store used in tests and when no bucket is
// configured.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]Object
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string]Object)}
}

func (m *Memory) Put(_ context.Context, key, contentType string, data []byte) error {
	if key == "" {
		return errors.New("objectstore: key required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = Object{Key: key, ContentType: contentType, Data: bytes.Clone(data)}
	return nil
}

func (m *Memory) Get(_ context.Context, key string) (Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return Object{}, ErrNotFound
	}
	obj.Data = bytes.Clone(obj.Data)
	return obj, nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return ErrNotFound
	}
	delete(m.objects, key)
	return nil
}

func (m *Memory) Presign(_ context.Context, key string, _ time.Duration) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.objects[key]; !ok {
		return "", ErrNotFound
	}
	return "/objects/" + key, nil
}

func (m *Memory) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for key := range m.objects {
		if prefix == "" || len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

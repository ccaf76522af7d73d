package storage

import (
	"context"
	"fmt"
	"sync"
)

// Memory — хранилище в памяти для тестов.
type Memory struct {
	mu      sync.Mutex
	objects map[string][]byte
	uploads int
}

func NewMemoryStorage() *Memory {
	return &Memory{objects: make(map[string][]byte)}
}

func (m *Memory) Upload(_ context.Context, path string, data []byte) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := make([]byte, len(data))
	copy(copied, data)

	m.objects[path] = copied
	m.uploads++

	return Handle(path), nil
}

func (m *Memory) RetrievableURL(handle Handle) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.objects[string(handle)]; !ok {
		return "", ErrObjectNotFound
	}

	return fmt.Sprintf("https://storage.local/%s", string(handle)), nil
}

// Uploads возвращает количество выполненных загрузок.
func (m *Memory) Uploads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.uploads
}

// Object возвращает содержимое объекта по пути.
func (m *Memory) Object(path string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[path]
	return data, ok
}

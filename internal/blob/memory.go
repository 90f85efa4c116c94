package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
)

// Op обозначает операцию хранилища, для которой можно задать сбой
type Op string

const (
	OpStore  Op = "store"
	OpOpen   Op = "open"
	OpDelete Op = "delete"
)

type memoryBlob struct {
	data        []byte
	name        string
	contentType string
}

// MemoryStore хранит blob'ы в памяти процесса.
// Поддерживает принудительные сбои операций для тестов.
type MemoryStore struct {
	mu       sync.Mutex
	blobs    map[string]memoryBlob
	failures map[Op]error
	calls    map[Op]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		blobs:    make(map[string]memoryBlob),
		failures: make(map[Op]error),
		calls:    make(map[Op]int),
	}
}

// FailOn заставляет операцию возвращать err; nil снимает сбой
func (m *MemoryStore) FailOn(op Op, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, op)
		return
	}
	m.failures[op] = err
}

// Calls возвращает число вызовов операции
func (m *MemoryStore) Calls(op Op) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// Len возвращает число хранимых blob'ов
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.blobs)
}

// Has проверяет наличие blob'а
func (m *MemoryStore) Has(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blobs[id]
	return ok
}

func (m *MemoryStore) Store(ctx context.Context, r io.Reader, name, contentType string) (string, error) {
	m.mu.Lock()
	m.calls[OpStore]++
	failure := m.failures[OpStore]
	m.mu.Unlock()
	if failure != nil {
		return "", failure
	}

	data, err := io.ReadAll(&ctxReader{ctx: ctx, r: r})
	if err != nil {
		return "", fmt.Errorf("reading blob: %w", err)
	}

	id := uuid.NewString()
	m.mu.Lock()
	m.blobs[id] = memoryBlob{data: data, name: name, contentType: contentType}
	m.mu.Unlock()

	return id, nil
}

func (m *MemoryStore) Open(ctx context.Context, id string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[OpOpen]++
	if failure := m.failures[OpOpen]; failure != nil {
		return nil, failure
	}

	b, ok := m.blobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return io.NopCloser(bytes.NewReader(b.data)), nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[OpDelete]++
	if failure := m.failures[OpDelete]; failure != nil {
		return failure
	}

	if _, ok := m.blobs[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(m.blobs, id)
	return nil
}

package search

import (
	"context"
	"sync"

	"backoffice/internal/domain"
)

// MemoryIndex keeps documents in process. Default backend for dev and tests.
type MemoryIndex struct {
	mu   sync.RWMutex
	docs map[int64]domain.ProductDocument
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{docs: map[int64]domain.ProductDocument{}}
}

func (m *MemoryIndex) Put(_ context.Context, doc domain.ProductDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.ID] = doc
	return nil
}

func (m *MemoryIndex) Get(_ context.Context, id int64) (domain.ProductDocument, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.docs[id]
	return d, ok, nil
}

func (m *MemoryIndex) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, id)
	return nil
}

func (m *MemoryIndex) Search(_ context.Context, q Query) (Page, error) {
	q = q.Normalize()
	m.mu.RLock()
	docs := make([]domain.ProductDocument, 0, len(m.docs))
	for _, d := range m.docs {
		docs = append(docs, d)
	}
	m.mu.RUnlock()
	return filterPage(docs, q), nil
}

// Len is the number of stored documents.
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

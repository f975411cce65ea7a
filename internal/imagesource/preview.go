package imagesource

import (
	"sync"

	"github.com/google/uuid"
)

// MemoryPreviewStore keeps preview payloads in memory, addressed by random ids.
type MemoryPreviewStore struct {
	mu     sync.RWMutex
	prefix string
	blobs  map[string]*Blob
}

// NewMemoryPreviewStore creates a store whose preview URLs start with prefix
// (for example "/previews/").
func NewMemoryPreviewStore(prefix string) *MemoryPreviewStore {
	return &MemoryPreviewStore{
		prefix: prefix,
		blobs:  make(map[string]*Blob),
	}
}

// Create registers b and returns its preview handle.
func (m *MemoryPreviewStore) Create(b *Blob) Preview {
	id := uuid.NewString()
	m.mu.Lock()
	m.blobs[id] = b
	m.mu.Unlock()
	return &memoryPreview{store: m, id: id}
}

// Get returns the blob registered under id.
func (m *MemoryPreviewStore) Get(id string) (*Blob, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.blobs[id]
	return b, ok
}

// Len returns the number of live previews.
func (m *MemoryPreviewStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}

func (m *MemoryPreviewStore) release(id string) {
	m.mu.Lock()
	delete(m.blobs, id)
	m.mu.Unlock()
}

type memoryPreview struct {
	store *MemoryPreviewStore
	id    string
	once  sync.Once
}

func (p *memoryPreview) URL() string {
	return p.store.prefix + p.id
}

func (p *memoryPreview) Release() {
	p.once.Do(func() { p.store.release(p.id) })
}

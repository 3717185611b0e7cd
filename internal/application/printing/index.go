package printing

import (
	"context"
	"sort"
	"sync"
)

// ArtifactIndex remembers the stored file of each rendered record, the way an
// entity would keep the name of its generated file
type ArtifactIndex interface {
	Lookup(ctx context.Context, kind, id string) (string, bool, error)
	Record(ctx context.Context, kind, id, fileName string) error
	Forget(ctx context.Context, kind, id string) error
	Entries(ctx context.Context) ([]IndexEntry, error)
}

// IndexEntry is one remembered artifact
type IndexEntry struct {
	Kind     string
	ID       string
	FileName string
}

// SortEntries orders entries by kind and id
func SortEntries(entries []IndexEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Kind != entries[j].Kind {
			return entries[i].Kind < entries[j].Kind
		}
		return entries[i].ID < entries[j].ID
	})
}

// MemoryIndex is an in-process ArtifactIndex
type MemoryIndex struct {
	mu      sync.RWMutex
	entries map[indexKey]string
}

type indexKey struct {
	kind string
	id   string
}

// NewMemoryIndex creates an empty index
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{entries: make(map[indexKey]string)}
}

func (m *MemoryIndex) Lookup(_ context.Context, kind, id string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	name, ok := m.entries[indexKey{kind, id}]
	return name, ok, nil
}

func (m *MemoryIndex) Record(_ context.Context, kind, id, fileName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[indexKey{kind, id}] = fileName
	return nil
}

func (m *MemoryIndex) Forget(_ context.Context, kind, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, indexKey{kind, id})
	return nil
}

// Entries returns all entries sorted by kind and id
func (m *MemoryIndex) Entries(_ context.Context) ([]IndexEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := make([]IndexEntry, 0, len(m.entries))
	for key, name := range m.entries {
		entries = append(entries, IndexEntry{Kind: key.kind, ID: key.id, FileName: name})
	}
	SortEntries(entries)
	return entries, nil
}

var _ ArtifactIndex = (*MemoryIndex)(nil)

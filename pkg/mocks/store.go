package mocks

import (
	"sync"

	"github.com/user/rewind/pkg/ports"
)

type storedIndex struct {
	video []float64
	audio []float64
}

// IndexStore is an in-memory implementation of ports.IndexStore.
type IndexStore struct {
	mu        sync.Mutex
	indexes   map[string]storedIndex
	positions map[string]float64

	LoadIndexFunc func(path string) (video, audio []float64, ok bool, err error)
	SaveIndexFunc func(path string, video, audio []float64) error

	LoadCalls int
	SaveCalls int
	Closed    bool
}

// NewIndexStore creates an empty IndexStore.
func NewIndexStore() *IndexStore {
	return &IndexStore{
		indexes:   make(map[string]storedIndex),
		positions: make(map[string]float64),
	}
}

func (m *IndexStore) LoadIndex(path string) ([]float64, []float64, bool, error) {
	m.mu.Lock()
	m.LoadCalls++
	m.mu.Unlock()
	if m.LoadIndexFunc != nil {
		return m.LoadIndexFunc(path)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	idx, ok := m.indexes[path]
	return idx.video, idx.audio, ok, nil
}

func (m *IndexStore) SaveIndex(path string, video, audio []float64) error {
	m.mu.Lock()
	m.SaveCalls++
	m.mu.Unlock()
	if m.SaveIndexFunc != nil {
		return m.SaveIndexFunc(path, video, audio)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.indexes[path] = storedIndex{
		video: append([]float64(nil), video...),
		audio: append([]float64(nil), audio...),
	}
	return nil
}

func (m *IndexStore) Position(path string) (float64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pts, ok := m.positions[path]
	return pts, ok, nil
}

func (m *IndexStore) SavePosition(path string, pts float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[path] = pts
	return nil
}

func (m *IndexStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

var _ ports.IndexStore = (*IndexStore)(nil)

package casestore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ptnote/ptnote/internal/errors"
	"github.com/ptnote/ptnote/internal/note"
)

type memoryEntry struct {
	title     string
	payload   []byte
	createdAt int64
	updatedAt int64
}

// Memory keeps case records in process as serialized JSON, so callers never
// share structure with the store.
type Memory struct {
	mu    sync.RWMutex
	cases map[string]memoryEntry
	now   func() time.Time
}

// NewMemory returns an empty in-memory case store.
func NewMemory() *Memory {
	return &Memory{cases: make(map[string]memoryEntry), now: time.Now}
}

func (m *Memory) Get(_ context.Context, id string) (*note.CaseRecord, error) {
	m.mu.RLock()
	e, ok := m.cases[id]
	m.mu.RUnlock()
	if !ok {
		return nil, errors.NewNotFound("case", id)
	}
	return decode(id, e.payload)
}

func (m *Memory) Create(_ context.Context, rec *note.CaseRecord) (string, error) {
	id := note.NewID()
	payload, err := encode(id, rec)
	if err != nil {
		return "", err
	}
	now := m.now().Unix()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.cases[id] = memoryEntry{title: rec.Meta.Title, payload: payload, createdAt: now, updatedAt: now}
	return id, nil
}

func (m *Memory) Update(_ context.Context, id string, rec *note.CaseRecord) error {
	payload, err := encode(id, rec)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.cases[id]
	if !ok {
		return errors.NewNotFound("case", id)
	}
	e.title = rec.Meta.Title
	e.payload = payload
	e.updatedAt = m.now().Unix()
	m.cases[id] = e
	return nil
}

// List returns summaries, most recently updated first.
func (m *Memory) List(_ context.Context) ([]Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Summary, 0, len(m.cases))
	for id, e := range m.cases {
		out = append(out, Summary{ID: id, Title: e.title, CreatedAt: e.createdAt, UpdatedAt: e.updatedAt})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt != out[j].UpdatedAt {
			return out[i].UpdatedAt > out[j].UpdatedAt
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// Package store keeps the history of finished matches.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Record is one finished or failed session.
type Record struct {
	ID        uuid.UUID `json:"id"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
	Players   int       `json:"players"`
	Defender  int       `json:"defender"`
	Rounds    int       `json:"rounds"`
	// Status is the model status name at the end of the session.
	Status string `json:"status"`
	Failed bool   `json:"failed"`
	Reason string `json:"reason,omitempty"`
}

type Store interface {
	Save(ctx context.Context, r Record) error
	// List returns the newest records first; limit <= 0 means all.
	List(ctx context.Context, limit int) ([]Record, error)
}

type Memory struct {
	mu      sync.RWMutex
	records []Record
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Save(_ context.Context, r Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, r)
	return nil
}

func (m *Memory) List(_ context.Context, limit int) ([]Record, error) {
	m.mu.RLock()
	out := append([]Record(nil), m.records...)
	m.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].EndedAt.After(out[j].EndedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

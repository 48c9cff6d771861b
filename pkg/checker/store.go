package checker

import (
	"sync"

	"github.com/locksight/locksight/pkg/domain"
	"github.com/locksight/locksight/pkg/ir"
)

// SummaryStore is written during analysis (once per pass in which a
// procedure's summary changes) and read-mostly during reporting.
type SummaryStore interface {
	SummaryReader
	Write(proc ir.Procname, sum domain.Summary)
}

// MemStore is the in-process summary store.
type MemStore struct {
	mu sync.RWMutex
	m  map[string]domain.Summary
}

func NewMemStore() *MemStore {
	return &MemStore{m: make(map[string]domain.Summary)}
}

func (s *MemStore) Read(caller, callee ir.Procname) (domain.Summary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum, ok := s.m[callee.String()]
	return sum, ok
}

func (s *MemStore) Write(proc ir.Procname, sum domain.Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[proc.String()] = sum
}

package transcript

import (
	"context"
	"sync"
	"time"

	"github.com/ent0n29/studychat/internal/study"
)

type recordKey struct {
	participantID string
	session       study.Session
}

// InMemoryStore is a simple in-process store for local/dev use and tests.
type InMemoryStore struct {
	mu         sync.RWMutex
	records    map[recordKey]Record
	statements map[string][]MemoryStatement
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		records:    make(map[recordKey]Record),
		statements: make(map[string][]MemoryStatement),
	}
}

func (s *InMemoryStore) GetRecord(_ context.Context, participantID string, session study.Session) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[recordKey{participantID, session.Normalize()}]
	if !ok {
		return Record{}, ErrNotFound
	}
	rec.Turns = cloneTurns(rec.Turns)
	return rec, nil
}

func (s *InMemoryStore) UpsertRecord(_ context.Context, record Record) error {
	record.Session = record.Session.Normalize()
	record.Turns = cloneTurns(record.Turns)
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[recordKey{record.ParticipantID, record.Session}] = record
	return nil
}

func (s *InMemoryStore) MemoryStatements(_ context.Context, participantID string) ([]MemoryStatement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	arr := s.statements[participantID]
	if len(arr) == 0 {
		return nil, nil
	}
	out := make([]MemoryStatement, len(arr))
	copy(out, arr)
	return out, nil
}

func (s *InMemoryStore) AppendMemoryStatements(_ context.Context, participantID string, statements []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range cleanStatements(s.statements[participantID], statements) {
		s.statements[participantID] = append(s.statements[participantID], MemoryStatement{
			ParticipantID: participantID,
			Statement:     st,
		})
	}
	return nil
}

func (s *InMemoryStore) Ping(context.Context) error { return nil }

func (s *InMemoryStore) Mode() string { return "in-memory" }

func (s *InMemoryStore) Close() error { return nil }

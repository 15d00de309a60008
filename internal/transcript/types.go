package transcript

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ent0n29/studychat/internal/study"
)

// ErrNotFound is returned when no record exists for a participant/session pair.
var ErrNotFound = errors.New("transcript not found")

// Turn is one recorded conversation message.
type Turn struct {
	Role       study.Role `json:"role"`
	Content    string     `json:"content"`
	OccurredAt time.Time  `json:"timestamp"`
}

// Record is the stored transcript for one (participant, session) pair.
type Record struct {
	ParticipantID string           `json:"prolific_id"`
	Session       study.Session    `json:"session_id"`
	TaskType      study.TaskType   `json:"task_type"`
	MemoryEnabled study.MemoryFlag `json:"use_memory"`
	Turns         []Turn           `json:"chat_memory"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// MemoryStatement is a fact about a participant derived from session 1.
type MemoryStatement struct {
	ParticipantID string `json:"prolific_id"`
	Statement     string `json:"statement"`
}

// Store persists transcripts and memory statements.
type Store interface {
	GetRecord(ctx context.Context, participantID string, session study.Session) (Record, error)
	UpsertRecord(ctx context.Context, record Record) error
	MemoryStatements(ctx context.Context, participantID string) ([]MemoryStatement, error)
	AppendMemoryStatements(ctx context.Context, participantID string, statements []string) error
	Ping(ctx context.Context) error
	Mode() string
	Close() error
}

// cleanStatements trims statements and drops blanks, texts already in
// existing, and repeats within the batch.
func cleanStatements(existing []MemoryStatement, in []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(in))
	for _, st := range existing {
		seen[st.Statement] = struct{}{}
	}
	out := make([]string, 0, len(in))
	for _, st := range in {
		st = strings.TrimSpace(st)
		if st == "" {
			continue
		}
		if _, dup := seen[st]; dup {
			continue
		}
		seen[st] = struct{}{}
		out = append(out, st)
	}
	return out
}

func cloneTurns(in []Turn) []Turn {
	if in == nil {
		return nil
	}
	out := make([]Turn, len(in))
	copy(out, in)
	return out
}

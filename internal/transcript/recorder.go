package transcript

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ent0n29/studychat/internal/study"
)

// Entry is one completed chat turn ready to be persisted.
type Entry struct {
	ParticipantID string
	Session       study.Session
	TaskType      study.TaskType
	MemoryEnabled study.MemoryFlag
	// Incoming is the message list the client sent for this turn.
	Incoming []study.Message
	Reply    string
}

// Recorder merges completed turns into the stored transcript.
//
// Record is a plain read, append, upsert. Two concurrent turns for the same
// participant and session can overwrite each other; the chat UI only allows one
// send in flight, so the last upsert wins.
type Recorder struct {
	store Store
	now   func() time.Time
}

func NewRecorder(store Store) *Recorder {
	return &Recorder{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Record appends the turn to the participant's transcript and returns the
// record as written.
func (r *Recorder) Record(ctx context.Context, e Entry) (Record, error) {
	session := e.Session.Normalize()
	prior, err := r.store.GetRecord(ctx, e.ParticipantID, session)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Record{}, fmt.Errorf("load transcript: %w", err)
	}

	now := r.now()
	taskType := e.TaskType
	if taskType == "" {
		taskType = study.TaskDefault
	}
	rec := Record{
		ParticipantID: e.ParticipantID,
		Session:       session,
		TaskType:      taskType,
		MemoryEnabled: e.MemoryEnabled,
		Turns:         AppendTurns(prior.Turns, e.Incoming, e.Reply, now),
		UpdatedAt:     now,
	}
	if err := r.store.UpsertRecord(ctx, rec); err != nil {
		return Record{}, fmt.Errorf("save transcript: %w", err)
	}
	return rec, nil
}

// AppendTurns returns prior followed by the last incoming user message (when
// the list ends with one) and the assistant reply. prior is never modified.
func AppendTurns(prior []Turn, incoming []study.Message, reply string, at time.Time) []Turn {
	out := make([]Turn, 0, len(prior)+2)
	out = append(out, prior...)
	if n := len(incoming); n > 0 && incoming[n-1].Role == study.RoleUser {
		out = append(out, Turn{Role: study.RoleUser, Content: incoming[n-1].Content, OccurredAt: at})
	}
	return append(out, Turn{Role: study.RoleAssistant, Content: reply, OccurredAt: at})
}

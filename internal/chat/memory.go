package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ent0n29/studychat/internal/completion"
	"github.com/ent0n29/studychat/internal/prompt"
	"github.com/ent0n29/studychat/internal/study"
	"github.com/ent0n29/studychat/internal/transcript"
)

// ErrNoTranscript is returned when there is no session-1 transcript to derive from.
var ErrNoTranscript = errors.New("no session 1 transcript")

// DeriveMemory condenses a participant's session-1 transcript into memory
// statements and stores them. It runs out of band, never during a chat turn.
func (s *Service) DeriveMemory(ctx context.Context, participantID string) ([]string, error) {
	rec, err := s.store.GetRecord(ctx, participantID, study.Session1)
	if errors.Is(err, transcript.ErrNotFound) || (err == nil && len(rec.Turns) == 0) {
		return nil, ErrNoTranscript
	}
	if err != nil {
		return nil, fmt.Errorf("load session 1 transcript: %w", err)
	}

	lines := make([]string, 0, len(rec.Turns))
	for _, t := range rec.Turns {
		lines = append(lines, string(t.Role)+": "+t.Content)
	}
	reply, err := s.complete(ctx, completion.Request{
		System:   prompt.MemoryExtraction,
		Messages: []study.Message{{Role: study.RoleUser, Content: strings.Join(lines, "\n")}},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompletionFailed, err)
	}

	statements := ParseStatements(reply)
	if len(statements) == 0 {
		return nil, nil
	}
	if err := s.store.AppendMemoryStatements(ctx, participantID, statements); err != nil {
		s.countStoreError("append_memory")
		return nil, fmt.Errorf("store memory statements: %w", err)
	}
	return statements, nil
}

// ParseStatements splits a bulleted or numbered model answer into statements.
func ParseStatements(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*• ")
		line = trimNumbering(line)
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func trimNumbering(line string) string {
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i > 0 && i < len(line) && (line[i] == '.' || line[i] == ')') {
		return line[i+1:]
	}
	return line
}

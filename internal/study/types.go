package study

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// DefaultParticipantID is used when a request arrives without prolific_id.
const DefaultParticipantID = "demo_user"

// Session identifies which visit of the study a chat turn belongs to.
type Session int

const (
	Session1 Session = 1
	Session2 Session = 2
)

// ParseSession maps a raw session_id onto a Session. Only "2" selects the
// second visit; every other value, including empty, falls back to Session1.
func ParseSession(raw string) Session {
	if strings.TrimSpace(raw) == "2" {
		return Session2
	}
	return Session1
}

// Normalize folds the zero value (session_id absent) into Session1.
func (s Session) Normalize() Session {
	if s == Session2 {
		return Session2
	}
	return Session1
}

func (s Session) String() string {
	return strconv.Itoa(int(s.Normalize()))
}

// MarshalJSON keeps the wire shape the survey links use ("1"/"2").
func (s Session) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts both "2" and 2.
func (s *Session) UnmarshalJSON(data []byte) error {
	raw, err := scalarString(data)
	if err != nil {
		return fmt.Errorf("session_id: %w", err)
	}
	*s = ParseSession(raw)
	return nil
}

// TaskType selects the session-2 prompt variant.
type TaskType string

const (
	TaskStructured  TaskType = "structured"
	TaskExploratory TaskType = "exploratory"
	TaskDefault     TaskType = "default"
)

// ParseTaskType normalizes a raw task_type. The bool reports whether any value
// was supplied; unknown labels map to TaskDefault but still count as supplied.
func ParseTaskType(raw string) (TaskType, bool) {
	v := strings.ToLower(strings.TrimSpace(raw))
	switch v {
	case "":
		return TaskDefault, false
	case string(TaskStructured):
		return TaskStructured, true
	case string(TaskExploratory):
		return TaskExploratory, true
	default:
		return TaskDefault, true
	}
}

// Role is the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

// Message is one entry of the conversation the client sends on every turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// CountRole returns how many messages were authored by role.
func CountRole(msgs []Message, role Role) int {
	n := 0
	for _, m := range msgs {
		if m.Role == role {
			n++
		}
	}
	return n
}

// MemoryFlag is the use_memory switch. The survey platform has sent it as a
// number, a bool and a "yes"/"no" string over the life of the study.
type MemoryFlag bool

// ParseMemoryFlag reports whether raw is one of the accepted truthy spellings.
func ParseMemoryFlag(raw string) MemoryFlag {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func (f MemoryFlag) String() string {
	if f {
		return "1"
	}
	return "0"
}

func (f *MemoryFlag) UnmarshalJSON(data []byte) error {
	raw, err := scalarString(data)
	if err != nil {
		return fmt.Errorf("use_memory: %w", err)
	}
	*f = ParseMemoryFlag(raw)
	return nil
}

func (f MemoryFlag) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}

// scalarString renders a JSON string, number, bool or null as plain text.
func scalarString(data []byte) (string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return "", nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return "", err
	}
	switch t := v.(type) {
	case bool:
		if t {
			return "true", nil
		}
		return "false", nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("unsupported value %s", string(data))
	}
}

package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ent0n29/studychat/internal/study"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeChatTurn         MessageType = "chat_turn"
	TypeAssistantMessage MessageType = "assistant_message"
	TypeError            MessageType = "error"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// ChatTurn carries the full in-flight message list, exactly like the POST body.
// Participant, session, task type and memory flag come from the connection URL.
type ChatTurn struct {
	Type     MessageType     `json:"type"`
	Messages []study.Message `json:"messages"`
}

type AssistantMessage struct {
	Type     MessageType `json:"type"`
	Message  string      `json:"message"`
	TaskType string      `json:"task_type,omitempty"`
}

type ErrorMessage struct {
	Type  MessageType `json:"type"`
	Error string      `json:"error"`
}

func NewAssistantMessage(message string, taskType study.TaskType) AssistantMessage {
	return AssistantMessage{Type: TypeAssistantMessage, Message: message, TaskType: string(taskType)}
}

func NewErrorMessage(detail string) ErrorMessage {
	return ErrorMessage{Type: TypeError, Error: detail}
}

func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeChatTurn:
		var msg ChatTurn
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if len(msg.Messages) == 0 {
			return nil, errors.New("invalid chat_turn: no messages")
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}

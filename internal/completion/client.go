package completion

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ent0n29/studychat/internal/study"
)

// ErrEmptyCompletion is returned when the provider answers without any text.
var ErrEmptyCompletion = errors.New("completion returned no text")

// Request is one completion call: a system instruction plus the conversation.
type Request struct {
	System   string
	Messages []study.Message
}

// Client generates the assistant reply for a conversation.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
	Provider() string
}

// Config controls client construction.
type Config struct {
	Mode        string
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
}

const (
	ModeAuto      = "auto"
	ModeChat      = "chat"
	ModeResponses = "responses"
	ModeMock      = "mock"
)

func NewClient(cfg Config) (Client, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = ModeAuto
	}

	switch mode {
	case ModeAuto:
		if strings.TrimSpace(cfg.APIKey) == "" {
			return NewMockClient(), nil
		}
		return NewChatClient(cfg)
	case ModeChat:
		return NewChatClient(cfg)
	case ModeResponses:
		return NewResponsesClient(cfg)
	case ModeMock:
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unsupported completion provider %q (expected auto|chat|responses|mock)", cfg.Mode)
	}
}

package completion

import (
	"context"
	"fmt"
	"strings"

	"github.com/ent0n29/studychat/internal/study"
)

// MockClient provides deterministic local replies when no API key is set.
type MockClient struct{}

func NewMockClient() *MockClient { return &MockClient{} }

func (c *MockClient) Provider() string { return ModeMock }

func (c *MockClient) Complete(ctx context.Context, req Request) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}
	return buildMockReply(req), nil
}

func buildMockReply(req Request) string {
	last := ""
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == study.RoleUser {
			last = strings.TrimSpace(req.Messages[i].Content)
			break
		}
	}
	if last == "" {
		last = "(nothing yet)"
	}
	replies := study.CountRole(req.Messages, study.RoleAssistant) + 1
	return fmt.Sprintf("[mock reply %d] You said: %s", replies, last)
}

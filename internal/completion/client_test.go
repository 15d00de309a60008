package completion

import (
	"context"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ent0n29/studychat/internal/study"
)

func TestNewClientModes(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		provider string
		wantErr  bool
	}{
		{name: "auto without key", cfg: Config{}, provider: ModeMock},
		{name: "auto with key", cfg: Config{APIKey: "sk-test"}, provider: ModeChat},
		{name: "chat", cfg: Config{Mode: "chat", APIKey: "sk-test"}, provider: ModeChat},
		{name: "responses", cfg: Config{Mode: "RESPONSES", APIKey: "sk-test"}, provider: ModeResponses},
		{name: "mock", cfg: Config{Mode: "mock", APIKey: "sk-test"}, provider: ModeMock},
		{name: "chat without key", cfg: Config{Mode: "chat"}, wantErr: true},
		{name: "responses without key", cfg: Config{Mode: "responses"}, wantErr: true},
		{name: "unknown", cfg: Config{Mode: "carrier-pigeon"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClient(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("NewClient() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewClient() error = %v", err)
			}
			if c.Provider() != tt.provider {
				t.Fatalf("Provider() = %q, want %q", c.Provider(), tt.provider)
			}
		})
	}
}

func TestChatMessagesPrependsSystem(t *testing.T) {
	got := chatMessages(Request{
		System: "be brief",
		Messages: []study.Message{
			{Role: study.RoleUser, Content: "hi"},
			{Role: study.RoleAssistant, Content: "hello"},
			{Role: "bogus", Content: "?"},
		},
	})
	want := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: "be brief"},
		{Role: openai.ChatMessageRoleUser, Content: "hi"},
		{Role: openai.ChatMessageRoleAssistant, Content: "hello"},
		{Role: openai.ChatMessageRoleUser, Content: "?"},
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Role != want[i].Role || got[i].Content != want[i].Content {
			t.Fatalf("message %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestMockClientEchoesLastUserMessage(t *testing.T) {
	c := NewMockClient()
	got, err := c.Complete(context.Background(), Request{Messages: []study.Message{
		{Role: study.RoleUser, Content: "first"},
		{Role: study.RoleAssistant, Content: "q"},
		{Role: study.RoleUser, Content: " second "},
	}})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if !strings.Contains(got, "second") || !strings.Contains(got, "reply 2") {
		t.Fatalf("Complete() = %q", got)
	}
}

func TestMockClientHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewMockClient().Complete(ctx, Request{}); err == nil {
		t.Fatalf("Complete() error = nil, want context error")
	}
}

package chat

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/ent0n29/studychat/internal/prompt"
	"github.com/ent0n29/studychat/internal/study"
	"github.com/ent0n29/studychat/internal/transcript"
)

func TestParseStatements(t *testing.T) {
	in := "- Has a dog.\n\n* Lives downtown.\n3. Budget is $80.\n• Likes jazz\n   "
	want := []string{"Has a dog.", "Lives downtown.", "Budget is $80.", "Likes jazz"}
	if got := ParseStatements(in); !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseStatements() = %q, want %q", got, want)
	}
}

func TestDeriveMemoryStoresStatements(t *testing.T) {
	store := transcript.NewInMemoryStore()
	ctx := context.Background()
	_ = store.UpsertRecord(ctx, transcript.Record{
		ParticipantID: "p1",
		Turns: []transcript.Turn{
			{Role: study.RoleUser, Content: "I have a dog and $80"},
			{Role: study.RoleAssistant, Content: "Noted"},
		},
	})
	client := &scriptedClient{reply: "- Has a dog.\n- Budget is $80."}
	svc, _ := newTestService(t, store, client)

	got, err := svc.DeriveMemory(ctx, "p1")
	if err != nil {
		t.Fatalf("DeriveMemory() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("DeriveMemory() = %v", got)
	}
	if client.lastSystem() != prompt.MemoryExtraction {
		t.Fatalf("extraction prompt not used")
	}
	if !strings.Contains(client.calls[0].Messages[0].Content, "user: I have a dog and $80") {
		t.Fatalf("transcript not passed to model: %q", client.calls[0].Messages[0].Content)
	}

	stored, err := store.MemoryStatements(ctx, "p1")
	if err != nil || len(stored) != 2 || stored[1].Statement != "Budget is $80." {
		t.Fatalf("MemoryStatements() = (%+v, %v)", stored, err)
	}
}

func TestDeriveMemoryTwiceKeepsOneCopy(t *testing.T) {
	store := transcript.NewInMemoryStore()
	ctx := context.Background()
	_ = store.UpsertRecord(ctx, transcript.Record{
		ParticipantID: "p1",
		Turns:         []transcript.Turn{{Role: study.RoleUser, Content: "I have a dog"}},
	})
	svc, _ := newTestService(t, store, &scriptedClient{reply: "- Has a dog.\n- Likes jazz."})

	for i := 0; i < 2; i++ {
		if _, err := svc.DeriveMemory(ctx, "p1"); err != nil {
			t.Fatalf("DeriveMemory() run %d error = %v", i+1, err)
		}
	}
	stored, err := store.MemoryStatements(ctx, "p1")
	if err != nil {
		t.Fatalf("MemoryStatements() error = %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("MemoryStatements() = %+v, want 2 distinct statements", stored)
	}
}

func TestDeriveMemoryWithoutTranscript(t *testing.T) {
	svc, _ := newTestService(t, transcript.NewInMemoryStore(), &scriptedClient{})
	if _, err := svc.DeriveMemory(context.Background(), "nobody"); !errors.Is(err, ErrNoTranscript) {
		t.Fatalf("DeriveMemory() error = %v, want ErrNoTranscript", err)
	}
}

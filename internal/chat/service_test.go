package chat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ent0n29/studychat/internal/completion"
	"github.com/ent0n29/studychat/internal/observability"
	"github.com/ent0n29/studychat/internal/prompt"
	"github.com/ent0n29/studychat/internal/study"
	"github.com/ent0n29/studychat/internal/transcript"
)

// scriptedClient records every request and replies with a fixed answer.
type scriptedClient struct {
	mu    sync.Mutex
	reply string
	err   error
	calls []completion.Request
}

func (c *scriptedClient) Complete(_ context.Context, req completion.Request) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, req)
	return c.reply, c.err
}

func (c *scriptedClient) Provider() string { return "scripted" }

func (c *scriptedClient) lastSystem() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.calls) == 0 {
		return ""
	}
	return c.calls[len(c.calls)-1].System
}

type brokenStore struct {
	*transcript.InMemoryStore
}

func (brokenStore) UpsertRecord(context.Context, transcript.Record) error {
	return errors.New("store unavailable")
}

func newTestService(t *testing.T, store transcript.Store, client completion.Client) (*Service, *observability.Metrics) {
	t.Helper()
	metrics := observability.NewMetrics("test_chat", prometheus.NewRegistry())
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(Config{
		Composer:   prompt.NewComposer(prompt.Config{Memory: store, Logger: log}),
		Completion: client,
		Store:      store,
		Metrics:    metrics,
		Logger:     log,
	})
	return svc, metrics
}

func TestTurnRecordsUserAndAssistant(t *testing.T) {
	store := transcript.NewInMemoryStore()
	client := &scriptedClient{reply: "What is your budget?"}
	svc, metrics := newTestService(t, store, client)

	res, err := svc.Turn(context.Background(), TurnRequest{
		Messages:      []study.Message{{Role: study.RoleUser, Content: "Plan my weekend"}},
		ParticipantID: "p1",
		Session:       study.Session1,
		TaskType:      "structured",
	})
	if err != nil {
		t.Fatalf("Turn() error = %v", err)
	}
	if res.Message != "What is your budget?" || !res.Recorded {
		t.Fatalf("Turn() = %+v", res)
	}

	rec, err := store.GetRecord(context.Background(), "p1", study.Session1)
	if err != nil {
		t.Fatalf("GetRecord() error = %v", err)
	}
	if len(rec.Turns) != 2 || rec.TaskType != study.TaskStructured {
		t.Fatalf("record = %+v", rec)
	}
	if got := testutil.ToFloat64(metrics.ChatTurns.WithLabelValues("1", "ok")); got != 1 {
		t.Fatalf("chat turns ok = %v, want 1", got)
	}
}

func TestTurnSecondTurnAppends(t *testing.T) {
	store := transcript.NewInMemoryStore()
	client := &scriptedClient{reply: "next question"}
	svc, _ := newTestService(t, store, client)
	ctx := context.Background()

	msgs := []study.Message{{Role: study.RoleUser, Content: "one"}}
	if _, err := svc.Turn(ctx, TurnRequest{Messages: msgs, ParticipantID: "p1"}); err != nil {
		t.Fatalf("Turn() error = %v", err)
	}
	msgs = append(msgs,
		study.Message{Role: study.RoleAssistant, Content: "next question"},
		study.Message{Role: study.RoleUser, Content: "two"},
	)
	if _, err := svc.Turn(ctx, TurnRequest{Messages: msgs, ParticipantID: "p1"}); err != nil {
		t.Fatalf("Turn() error = %v", err)
	}

	rec, err := store.GetRecord(ctx, "p1", study.Session1)
	if err != nil {
		t.Fatalf("GetRecord() error = %v", err)
	}
	var got []string
	for _, turn := range rec.Turns {
		got = append(got, string(turn.Role)+":"+turn.Content)
	}
	want := []string{"user:one", "assistant:next question", "user:two", "assistant:next question"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("turns = %v, want %v", got, want)
	}
}

func TestTurnDefaultsMissingFields(t *testing.T) {
	store := transcript.NewInMemoryStore()
	svc, _ := newTestService(t, store, &scriptedClient{reply: "hi"})

	if _, err := svc.Turn(context.Background(), TurnRequest{
		Messages: []study.Message{{Role: study.RoleUser, Content: "hello"}},
	}); err != nil {
		t.Fatalf("Turn() error = %v", err)
	}
	rec, err := store.GetRecord(context.Background(), study.DefaultParticipantID, study.Session1)
	if err != nil {
		t.Fatalf("GetRecord(demo_user) error = %v", err)
	}
	if rec.TaskType != study.TaskDefault || rec.MemoryEnabled {
		t.Fatalf("record = %+v, want default task and memory off", rec)
	}
}

func TestTurnCompletionFailure(t *testing.T) {
	store := transcript.NewInMemoryStore()
	svc, metrics := newTestService(t, store, &scriptedClient{err: errors.New("upstream 503")})

	_, err := svc.Turn(context.Background(), TurnRequest{
		Messages:      []study.Message{{Role: study.RoleUser, Content: "hello"}},
		ParticipantID: "p1",
	})
	if !errors.Is(err, ErrCompletionFailed) {
		t.Fatalf("Turn() error = %v, want ErrCompletionFailed", err)
	}
	if _, err := store.GetRecord(context.Background(), "p1", study.Session1); !errors.Is(err, transcript.ErrNotFound) {
		t.Fatalf("record written after completion failure: %v", err)
	}
	if got := testutil.ToFloat64(metrics.CompletionErrors.WithLabelValues("scripted")); got != 1 {
		t.Fatalf("completion errors = %v, want 1", got)
	}
}

func TestTurnStoreFailureStillReturnsReply(t *testing.T) {
	store := brokenStore{transcript.NewInMemoryStore()}
	svc, metrics := newTestService(t, store, &scriptedClient{reply: "here is your plan"})

	res, err := svc.Turn(context.Background(), TurnRequest{
		Messages:      []study.Message{{Role: study.RoleUser, Content: "hello"}},
		ParticipantID: "p1",
	})
	if err != nil {
		t.Fatalf("Turn() error = %v", err)
	}
	if res.Message != "here is your plan" || res.Recorded {
		t.Fatalf("Turn() = %+v, want unrecorded reply", res)
	}
	if got := testutil.ToFloat64(metrics.StoreErrors.WithLabelValues("record")); got != 1 {
		t.Fatalf("store errors = %v, want 1", got)
	}
}

func TestTurnSession2BackfillsTaskType(t *testing.T) {
	store := transcript.NewInMemoryStore()
	ctx := context.Background()
	if err := store.UpsertRecord(ctx, transcript.Record{
		ParticipantID: "p1",
		Session:       study.Session1,
		TaskType:      study.TaskExploratory,
	}); err != nil {
		t.Fatalf("UpsertRecord() error = %v", err)
	}
	client := &scriptedClient{reply: "ok"}
	svc, _ := newTestService(t, store, client)

	res, err := svc.Turn(ctx, TurnRequest{
		Messages:      []study.Message{{Role: study.RoleUser, Content: "hi"}},
		ParticipantID: "p1",
		Session:       study.Session2,
	})
	if err != nil {
		t.Fatalf("Turn() error = %v", err)
	}
	if res.TaskType != study.TaskExploratory {
		t.Fatalf("TaskType = %q, want exploratory", res.TaskType)
	}
	if client.lastSystem() != prompt.Session2Template(study.TaskExploratory) {
		t.Fatalf("system prompt did not use the backfilled task type")
	}
	rec, err := store.GetRecord(ctx, "p1", study.Session2)
	if err != nil {
		t.Fatalf("GetRecord(session 2) error = %v", err)
	}
	if rec.TaskType != study.TaskExploratory {
		t.Fatalf("session 2 task type = %q", rec.TaskType)
	}
}

func TestTurnSession2ExplicitTaskTypeWins(t *testing.T) {
	store := transcript.NewInMemoryStore()
	ctx := context.Background()
	_ = store.UpsertRecord(ctx, transcript.Record{ParticipantID: "p1", TaskType: study.TaskExploratory})
	client := &scriptedClient{reply: "ok"}
	svc, _ := newTestService(t, store, client)

	res, err := svc.Turn(ctx, TurnRequest{ParticipantID: "p1", Session: study.Session2, TaskType: "structured"})
	if err != nil {
		t.Fatalf("Turn() error = %v", err)
	}
	if res.TaskType != study.TaskStructured {
		t.Fatalf("TaskType = %q, want structured", res.TaskType)
	}
}

func TestTurnSession2InjectsSession1Transcript(t *testing.T) {
	store := transcript.NewInMemoryStore()
	ctx := context.Background()
	_ = store.UpsertRecord(ctx, transcript.Record{
		ParticipantID: "p1",
		Session:       study.Session1,
		TaskType:      study.TaskStructured,
		Turns: []transcript.Turn{
			{Role: study.RoleUser, Content: "I love hiking"},
			{Role: study.RoleAssistant, Content: "Great, where?"},
		},
	})
	client := &scriptedClient{reply: "ok"}
	svc, _ := newTestService(t, store, client)

	if _, err := svc.Turn(ctx, TurnRequest{
		Messages:      []study.Message{{Role: study.RoleUser, Content: "hello again"}},
		ParticipantID: "p1",
		Session:       study.Session2,
		UseMemory:     true,
	}); err != nil {
		t.Fatalf("Turn() error = %v", err)
	}
	system := client.lastSystem()
	for _, want := range []string{"user: I love hiking", "assistant: Great, where?"} {
		if !strings.Contains(system, want) {
			t.Fatalf("system prompt missing %q", want)
		}
	}
}

func TestTurnSession1DeliveryStage(t *testing.T) {
	client := &scriptedClient{reply: "plan"}
	svc, _ := newTestService(t, transcript.NewInMemoryStore(), client)

	var msgs []study.Message
	for i := 0; i < prompt.DefaultReplyBudget; i++ {
		msgs = append(msgs,
			study.Message{Role: study.RoleUser, Content: "a"},
			study.Message{Role: study.RoleAssistant, Content: "q"},
		)
	}
	msgs = append(msgs, study.Message{Role: study.RoleUser, Content: "last answer"})

	res, err := svc.Turn(context.Background(), TurnRequest{Messages: msgs, ParticipantID: "p1"})
	if err != nil {
		t.Fatalf("Turn() error = %v", err)
	}
	if res.Stage != prompt.StageDelivering {
		t.Fatalf("Stage = %v, want delivering", res.Stage)
	}
}

func TestSessionOneTaskType(t *testing.T) {
	store := transcript.NewInMemoryStore()
	svc, _ := newTestService(t, store, &scriptedClient{})
	ctx := context.Background()

	if _, err := svc.SessionOneTaskType(ctx, "nobody"); !errors.Is(err, transcript.ErrNotFound) {
		t.Fatalf("SessionOneTaskType(nobody) error = %v, want ErrNotFound", err)
	}
	_ = store.UpsertRecord(ctx, transcript.Record{ParticipantID: "p1", TaskType: study.TaskStructured})
	got, err := svc.SessionOneTaskType(ctx, "p1")
	if err != nil || got != study.TaskStructured {
		t.Fatalf("SessionOneTaskType(p1) = (%q, %v)", got, err)
	}
}

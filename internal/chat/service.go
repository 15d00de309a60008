package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ent0n29/studychat/internal/completion"
	"github.com/ent0n29/studychat/internal/logging"
	"github.com/ent0n29/studychat/internal/observability"
	"github.com/ent0n29/studychat/internal/prompt"
	"github.com/ent0n29/studychat/internal/study"
	"github.com/ent0n29/studychat/internal/transcript"
)

// ErrCompletionFailed wraps any failure of the completion call.
var ErrCompletionFailed = errors.New("completion failed")

// TurnRequest is one inbound chat turn as the study UI sends it.
type TurnRequest struct {
	Messages      []study.Message  `json:"messages"`
	ParticipantID string           `json:"prolific_id"`
	Session       study.Session    `json:"session_id"`
	TaskType      string           `json:"task_type"`
	UseMemory     study.MemoryFlag `json:"use_memory"`

	RequestID string `json:"-"`
}

// TurnResult is what the caller gets back for a completed turn.
type TurnResult struct {
	Message  string
	TaskType study.TaskType
	Stage    prompt.Stage
	// Recorded is false when the transcript write failed; the reply is still valid.
	Recorded bool
}

// Config wires the service's collaborators.
type Config struct {
	Composer          *prompt.Composer
	Completion        completion.Client
	Store             transcript.Store
	Metrics           *observability.Metrics
	Logger            *slog.Logger
	CompletionTimeout time.Duration
	StoreTimeout      time.Duration
}

// Service runs chat turns: compose the instruction, call the model, record.
type Service struct {
	composer          *prompt.Composer
	completion        completion.Client
	store             transcript.Store
	recorder          *transcript.Recorder
	metrics           *observability.Metrics
	log               *slog.Logger
	completionTimeout time.Duration
	storeTimeout      time.Duration
}

func NewService(cfg Config) *Service {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		composer:          cfg.Composer,
		completion:        cfg.Completion,
		store:             cfg.Store,
		recorder:          transcript.NewRecorder(cfg.Store),
		metrics:           cfg.Metrics,
		log:               log,
		completionTimeout: cfg.CompletionTimeout,
		storeTimeout:      cfg.StoreTimeout,
	}
}

// Turn handles one chat turn. Only a completion failure is returned as an
// error; store failures are logged and the reply is returned regardless.
func (s *Service) Turn(ctx context.Context, req TurnRequest) (TurnResult, error) {
	participantID := strings.TrimSpace(req.ParticipantID)
	if participantID == "" {
		participantID = study.DefaultParticipantID
	}
	session := req.Session.Normalize()
	log := logging.WithTurn(s.log, req.RequestID, participantID, session.String())

	log.DebugContext(ctx, "chat turn received",
		"messages", len(req.Messages),
		"last_user", logging.Preview(lastUserContent(req.Messages), logging.DefaultPreviewRunes),
	)

	taskType, present := study.ParseTaskType(req.TaskType)
	if session == study.Session2 && !present {
		taskType = s.backfillTaskType(ctx, log, participantID)
	}

	stage := s.composer.Stage(req.Messages)
	system := s.withStoreTimeout(ctx, func(ctx context.Context) string {
		return s.composer.Compose(ctx, prompt.Input{
			Session:       session,
			MemoryEnabled: req.UseMemory,
			ParticipantID: participantID,
			Messages:      req.Messages,
			TaskType:      taskType,
		})
	})

	reply, err := s.complete(ctx, completion.Request{System: system, Messages: req.Messages})
	if err != nil {
		log.ErrorContext(ctx, "completion failed", "provider", s.completion.Provider(), "error", err)
		s.countTurn(session, "completion_error")
		return TurnResult{}, fmt.Errorf("%w: %v", ErrCompletionFailed, err)
	}

	result := TurnResult{Message: reply, TaskType: taskType, Stage: stage, Recorded: true}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	_, err = s.recorder.Record(storeCtx, transcript.Entry{
		ParticipantID: participantID,
		Session:       session,
		TaskType:      taskType,
		MemoryEnabled: req.UseMemory,
		Incoming:      req.Messages,
		Reply:         reply,
	})
	if err != nil {
		log.ErrorContext(ctx, "transcript write failed, reply returned unrecorded", "error", err)
		s.countStoreError("record")
		s.countTurn(session, "unrecorded")
		result.Recorded = false
		return result, nil
	}

	log.InfoContext(ctx, "chat turn recorded", "task_type", string(taskType), "stage", stage.String())
	s.countTurn(session, "ok")
	return result, nil
}

// SessionOneTaskType returns the task type stored with a participant's
// session-1 transcript. It returns transcript.ErrNotFound when there is none.
func (s *Service) SessionOneTaskType(ctx context.Context, participantID string) (study.TaskType, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	rec, err := s.store.GetRecord(storeCtx, participantID, study.Session1)
	if err != nil {
		if !errors.Is(err, transcript.ErrNotFound) {
			s.countStoreError("get_task")
		}
		return "", err
	}
	return rec.TaskType, nil
}

func (s *Service) backfillTaskType(ctx context.Context, log *slog.Logger, participantID string) study.TaskType {
	stored, err := s.SessionOneTaskType(ctx, participantID)
	if err != nil {
		if !errors.Is(err, transcript.ErrNotFound) {
			log.WarnContext(ctx, "task type backfill failed", "error", err)
		}
		return study.TaskDefault
	}
	taskType, _ := study.ParseTaskType(string(stored))
	return taskType
}

func lastUserContent(msgs []study.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == study.RoleUser {
			return msgs[i].Content
		}
	}
	return ""
}

func (s *Service) complete(ctx context.Context, req completion.Request) (string, error) {
	if s.completionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.completionTimeout)
		defer cancel()
	}
	started := time.Now()
	reply, err := s.completion.Complete(ctx, req)
	if s.metrics != nil {
		s.metrics.ObserveCompletionLatency(time.Since(started))
		if err != nil {
			s.metrics.CompletionErrors.WithLabelValues(s.completion.Provider()).Inc()
		}
	}
	return reply, err
}

func (s *Service) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout > 0 {
		return context.WithTimeout(ctx, s.storeTimeout)
	}
	return ctx, func() {}
}

func (s *Service) withStoreTimeout(ctx context.Context, fn func(context.Context) string) string {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	return fn(storeCtx)
}

func (s *Service) countTurn(session study.Session, outcome string) {
	if s.metrics != nil {
		s.metrics.ChatTurns.WithLabelValues(session.String(), outcome).Inc()
	}
}

func (s *Service) countStoreError(op string) {
	if s.metrics != nil {
		s.metrics.StoreErrors.WithLabelValues(op).Inc()
	}
}

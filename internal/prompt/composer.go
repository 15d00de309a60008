package prompt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ent0n29/studychat/internal/study"
	"github.com/ent0n29/studychat/internal/transcript"
)

// DefaultReplyBudget is how many assistant replies session 1 spends eliciting
// before the plan is forced.
const DefaultReplyBudget = 5

// MemorySource selects what gets injected into session-2 prompts.
type MemorySource string

const (
	MemoryFromTranscript MemorySource = "transcript"
	MemoryFromStatements MemorySource = "statements"
)

// ParseMemorySource validates a configured memory source.
func ParseMemorySource(raw string) (MemorySource, error) {
	switch v := MemorySource(strings.ToLower(strings.TrimSpace(raw))); v {
	case "", MemoryFromTranscript:
		return MemoryFromTranscript, nil
	case MemoryFromStatements:
		return v, nil
	default:
		return "", fmt.Errorf("unsupported memory source %q (expected transcript|statements)", raw)
	}
}

// MemoryReader is the read side of the transcript store used for injection.
type MemoryReader interface {
	GetRecord(ctx context.Context, participantID string, session study.Session) (transcript.Record, error)
	MemoryStatements(ctx context.Context, participantID string) ([]transcript.MemoryStatement, error)
}

// Outcome labels reported to the memory hook.
const (
	OutcomeInjected = "injected"
	OutcomeEmpty    = "empty"
	OutcomeError    = "error"
)

// Config controls composer construction.
type Config struct {
	Memory      MemoryReader
	Source      MemorySource
	ReplyBudget int
	Logger      *slog.Logger
	// OnMemory, when set, observes every memory lookup.
	OnMemory func(source MemorySource, outcome string)
}

// Input carries the per-request fields the prompt depends on.
type Input struct {
	Session       study.Session
	MemoryEnabled study.MemoryFlag
	ParticipantID string
	Messages      []study.Message
	TaskType      study.TaskType
}

// Composer builds the system instruction for a chat turn.
type Composer struct {
	memory      MemoryReader
	source      MemorySource
	replyBudget int
	log         *slog.Logger
	onMemory    func(MemorySource, string)
}

func NewComposer(cfg Config) *Composer {
	c := &Composer{
		memory:      cfg.Memory,
		source:      cfg.Source,
		replyBudget: cfg.ReplyBudget,
		log:         cfg.Logger,
		onMemory:    cfg.OnMemory,
	}
	if c.source == "" {
		c.source = MemoryFromTranscript
	}
	if c.replyBudget <= 0 {
		c.replyBudget = DefaultReplyBudget
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	return c
}

// Compose returns the system instruction. Memory lookup failures are logged
// and the prompt is returned without augmentation.
func (c *Composer) Compose(ctx context.Context, in Input) string {
	if in.Session.Normalize() == study.Session1 {
		return c.session1(in.Messages)
	}

	base := Session2Template(in.TaskType)
	if !in.MemoryEnabled || c.memory == nil {
		return base
	}
	return base + c.memoryBlock(ctx, in.ParticipantID)
}

// Stage reports where session 1 is in the elicit-then-deliver sequence for
// the given message list.
func (c *Composer) Stage(msgs []study.Message) Stage {
	if study.CountRole(msgs, study.RoleAssistant) >= c.replyBudget {
		return StageDelivering
	}
	return StageEliciting
}

func (c *Composer) session1(msgs []study.Message) string {
	if c.Stage(msgs) == StageDelivering {
		return session1Prompt + "\n\n" + finalReplyDirective
	}
	return session1Prompt
}

// Session2Template returns the fixed session-2 instruction for a task type.
func Session2Template(t study.TaskType) string {
	switch t {
	case study.TaskStructured:
		return structuredPrompt
	case study.TaskExploratory:
		return exploratoryPrompt
	default:
		return defaultPrompt
	}
}

func (c *Composer) memoryBlock(ctx context.Context, participantID string) string {
	var (
		block string
		err   error
	)
	switch c.source {
	case MemoryFromStatements:
		block, err = c.statementsBlock(ctx, participantID)
	default:
		block, err = c.transcriptBlock(ctx, participantID)
	}

	switch {
	case err != nil:
		c.log.WarnContext(ctx, "memory lookup failed, continuing without memory",
			"prolific_id", participantID, "source", string(c.source), "error", err)
		c.observe(OutcomeError)
		return ""
	case block == "":
		c.observe(OutcomeEmpty)
		return ""
	default:
		c.observe(OutcomeInjected)
		return block
	}
}

func (c *Composer) transcriptBlock(ctx context.Context, participantID string) (string, error) {
	rec, err := c.memory.GetRecord(ctx, participantID, study.Session1)
	if errors.Is(err, transcript.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if len(rec.Turns) == 0 {
		return "", nil
	}

	var b strings.Builder
	b.WriteString("\n\n")
	b.WriteString(transcriptMemoryHeading)
	b.WriteString("\n")
	for i, t := range rec.Turns {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(string(t.Role))
		b.WriteString(": ")
		b.WriteString(t.Content)
	}
	b.WriteString("\n\n")
	b.WriteString(transcriptMemoryFooter)
	return b.String(), nil
}

func (c *Composer) statementsBlock(ctx context.Context, participantID string) (string, error) {
	stmts, err := c.memory.MemoryStatements(ctx, participantID)
	if err != nil {
		return "", err
	}

	var lines []string
	for _, s := range stmts {
		if text := strings.TrimSpace(s.Statement); text != "" {
			lines = append(lines, "- "+text)
		}
	}
	if len(lines) == 0 {
		return "", nil
	}
	return "\n\n" + statementsMemoryHeading + "\n" + strings.Join(lines, "\n") + "\n\n" + statementsMemoryFooter, nil
}

func (c *Composer) observe(outcome string) {
	if c.onMemory != nil {
		c.onMemory(c.source, outcome)
	}
}

package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ent0n29/studychat/internal/study"
)

const (
	tableSession1   = "chat_sessions"
	tableSession2   = "chat_sessions_2"
	tableStatements = "memory_statements"
)

// tableFor routes each visit to its own table, matching the study database.
func tableFor(session study.Session) string {
	if session.Normalize() == study.Session2 {
		return tableSession2
	}
	return tableSession1
}

// PostgresStore persists transcripts in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, strings.TrimSpace(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) GetRecord(ctx context.Context, participantID string, session study.Session) (Record, error) {
	query := fmt.Sprintf(
		`SELECT prolific_id, task_type, use_memory, chat_memory, updated_at
		 FROM %s WHERE prolific_id=$1 AND session_id=$2`,
		tableFor(session),
	)

	var (
		rec       Record
		taskType  string
		useMemory bool
		turnsRaw  []byte
	)
	err := s.pool.QueryRow(ctx, query, participantID, session.String()).
		Scan(&rec.ParticipantID, &taskType, &useMemory, &turnsRaw, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get transcript: %w", err)
	}

	rec.Session = session.Normalize()
	rec.TaskType = study.TaskType(taskType)
	rec.MemoryEnabled = study.MemoryFlag(useMemory)
	if len(turnsRaw) > 0 {
		if err := json.Unmarshal(turnsRaw, &rec.Turns); err != nil {
			return Record{}, fmt.Errorf("decode chat_memory: %w", err)
		}
	}
	return rec, nil
}

func (s *PostgresStore) UpsertRecord(ctx context.Context, record Record) error {
	turns := record.Turns
	if turns == nil {
		turns = []Turn{}
	}
	turnsRaw, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("encode chat_memory: %w", err)
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = time.Now().UTC()
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (prolific_id, session_id, task_type, use_memory, chat_memory, updated_at)
		 VALUES ($1, $2, $3, $4, $5::jsonb, $6)
		 ON CONFLICT (prolific_id, session_id) DO UPDATE SET
			task_type=EXCLUDED.task_type,
			use_memory=EXCLUDED.use_memory,
			chat_memory=EXCLUDED.chat_memory,
			updated_at=EXCLUDED.updated_at`,
		tableFor(record.Session),
	)
	_, err = s.pool.Exec(ctx, query,
		record.ParticipantID,
		record.Session.String(),
		string(record.TaskType),
		bool(record.MemoryEnabled),
		string(turnsRaw),
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert transcript: %w", err)
	}
	return nil
}

func (s *PostgresStore) MemoryStatements(ctx context.Context, participantID string) ([]MemoryStatement, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT statements FROM `+tableStatements+` WHERE prolific_id=$1`,
		participantID,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query memory statements: %w", err)
	}

	var texts []string
	if err := json.Unmarshal(raw, &texts); err != nil {
		return nil, fmt.Errorf("decode memory statements: %w", err)
	}
	out := make([]MemoryStatement, 0, len(texts))
	for _, t := range texts {
		if strings.TrimSpace(t) == "" {
			continue
		}
		out = append(out, MemoryStatement{ParticipantID: participantID, Statement: t})
	}
	return out, nil
}

func (s *PostgresStore) AppendMemoryStatements(ctx context.Context, participantID string, statements []string) error {
	cleaned := cleanStatements(nil, statements)
	if len(cleaned) == 0 {
		return nil
	}
	raw, err := json.Marshal(cleaned)
	if err != nil {
		return fmt.Errorf("encode memory statements: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO `+tableStatements+` (prolific_id, statements, updated_at)
		 VALUES ($1, $2::jsonb, now())
		 ON CONFLICT (prolific_id) DO UPDATE SET
			statements=`+tableStatements+`.statements || COALESCE((
				SELECT jsonb_agg(e ORDER BY n)
				FROM jsonb_array_elements(EXCLUDED.statements) WITH ORDINALITY AS x(e, n)
				WHERE NOT `+tableStatements+`.statements @> jsonb_build_array(e)
			), '[]'::jsonb),
			updated_at=EXCLUDED.updated_at`,
		participantID,
		string(raw),
	)
	if err != nil {
		return fmt.Errorf("append memory statements: %w", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Mode() string { return "postgres" }

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

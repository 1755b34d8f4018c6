package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver
	"github.com/pressly/goose/v3"

	"github.com/hubenschmidt/interview-coach/internal/interview"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// uniqueViolation is the Postgres SQLSTATE for unique constraint failures.
const uniqueViolation = "23505"

// Postgres stores each collection as a JSONB document table with the queried
// fields lifted into indexed columns.
type Postgres struct {
	db *sql.DB
}

// OpenPostgres connects to connStr and applies pending migrations.
func OpenPostgres(ctx context.Context, connStr string) (*Postgres, error) {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("store open: %w", err)
	}
	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store ping: %w", err)
	}
	if err = migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("store migrate: %w", err)
	}
	return &Postgres{db: db}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	migrations, err := fs.Sub(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("migrations dir: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return err
	}
	for _, r := range results {
		slog.Info("migration applied", "version", r.Source.Version, "duration_ms", r.Duration.Milliseconds())
	}
	return nil
}

// Close closes the database.
func (s *Postgres) Close() error {
	return s.db.Close()
}

// Ping checks connectivity.
func (s *Postgres) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// --- users ---

func (s *Postgres) GetUser(ctx context.Context, id string) (*interview.User, error) {
	var u interview.User
	err := s.getDoc(ctx, &u, `SELECT doc FROM users WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	u.ID = id
	return &u, nil
}

func (s *Postgres) GetUserByEmail(ctx context.Context, email string) (*interview.User, error) {
	var u interview.User
	var id string
	var doc []byte
	err := s.db.QueryRowContext(ctx, `SELECT id, doc FROM users WHERE email = lower($1)`, email).Scan(&id, &doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err = json.Unmarshal(doc, &u); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	u.ID = id
	return &u, nil
}

func (s *Postgres) CreateUser(ctx context.Context, u interview.User) error {
	doc, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, doc, created_at) VALUES ($1, lower($2), $3, $4)`,
		u.ID, u.Email, doc, time.Now().UTC(),
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		if pgErr.ConstraintName == "users_email_key" {
			return ErrEmailTaken
		}
		return fmt.Errorf("user %s exists: %w", u.ID, err)
	}
	return err
}

// --- interviews ---

func (s *Postgres) GetInterview(ctx context.Context, id string) (*interview.Interview, error) {
	var iv interview.Interview
	if err := s.getDoc(ctx, &iv, `SELECT doc FROM interviews WHERE id = $1`, id); err != nil {
		return nil, err
	}
	iv.ID = id
	return &iv, nil
}

func (s *Postgres) CreateInterview(ctx context.Context, iv interview.Interview) error {
	doc, err := json.Marshal(iv)
	if err != nil {
		return fmt.Errorf("encode interview: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO interviews (id, user_id, finalized, created_at, doc) VALUES ($1, $2, $3, $4, $5)`,
		iv.ID, iv.UserID, iv.Finalized, iv.CreatedAt.UTC(), doc,
	)
	return err
}

func (s *Postgres) ListInterviewsByUser(ctx context.Context, userID string) ([]interview.Interview, error) {
	return s.listInterviews(ctx,
		`SELECT id, doc FROM interviews WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (s *Postgres) ListLatestInterviews(ctx context.Context, excludeUserID string, limit int) ([]interview.Interview, error) {
	if limit <= 0 {
		limit = DefaultLatestLimit
	}
	return s.listInterviews(ctx,
		`SELECT id, doc FROM interviews
		 WHERE finalized = true AND user_id <> $1
		 ORDER BY created_at DESC
		 LIMIT $2`, excludeUserID, limit)
}

func (s *Postgres) CountFinalizedInterviews(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM interviews WHERE finalized = true`).Scan(&n)
	return n, err
}

func (s *Postgres) listInterviews(ctx context.Context, query string, args ...any) ([]interview.Interview, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []interview.Interview{}
	for rows.Next() {
		var id string
		var doc []byte
		if err = rows.Scan(&id, &doc); err != nil {
			return nil, err
		}
		var iv interview.Interview
		if err = json.Unmarshal(doc, &iv); err != nil {
			return nil, fmt.Errorf("decode interview %s: %w", id, err)
		}
		iv.ID = id
		out = append(out, iv)
	}
	return out, rows.Err()
}

// --- feedback ---

func (s *Postgres) SaveFeedback(ctx context.Context, id string, fb interview.Feedback) error {
	fb.ID = ""
	doc, err := json.Marshal(fb)
	if err != nil {
		return fmt.Errorf("encode feedback: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO feedback (id, interview_id, user_id, created_at, doc) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET
		   interview_id = EXCLUDED.interview_id,
		   user_id = EXCLUDED.user_id,
		   created_at = EXCLUDED.created_at,
		   doc = EXCLUDED.doc`,
		id, fb.InterviewID, fb.UserID, fb.CreatedAt.UTC(), doc,
	)
	return err
}

func (s *Postgres) GetFeedbackByInterview(ctx context.Context, interviewID, userID string) (*interview.Feedback, error) {
	var id string
	var doc []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT id, doc FROM feedback WHERE interview_id = $1 AND user_id = $2
		 ORDER BY created_at DESC, id DESC LIMIT 1`,
		interviewID, userID,
	).Scan(&id, &doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var fb interview.Feedback
	if err = json.Unmarshal(doc, &fb); err != nil {
		return nil, fmt.Errorf("decode feedback: %w", err)
	}
	fb.ID = id
	return &fb, nil
}

// --- call log ---

// CreateCallSession inserts a new session and prunes old ones.
func (s *Postgres) CreateCallSession(ctx context.Context, cs CallSession) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO call_sessions (id, user_id, interview_id, mode, status, started_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		cs.ID, cs.UserID, cs.InterviewID, cs.Mode, cs.Status, cs.StartedAt.UTC(),
	)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`DELETE FROM call_sessions WHERE id NOT IN (SELECT id FROM call_sessions ORDER BY started_at DESC LIMIT $1)`,
		maxCallSessions,
	)
	return err
}

func (s *Postgres) AppendCallEvent(ctx context.Context, ev CallEvent) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO call_events (session_id, kind, role, content, at) VALUES ($1, $2, $3, $4, $5)`,
		ev.SessionID, ev.Kind, ev.Role, ev.Content, ev.At.UTC(),
	)
	return err
}

// EndCallSession sets the final status and ended_at timestamp.
func (s *Postgres) EndCallSession(ctx context.Context, id, status string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE call_sessions SET status = $1, ended_at = $2 WHERE id = $3`,
		status, time.Now().UTC(), id,
	)
	return err
}

// GetCallSession returns a single session with its events in order.
func (s *Postgres) GetCallSession(ctx context.Context, id string) (*CallSession, []CallEvent, error) {
	var cs CallSession
	var endedAt sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, interview_id, mode, status, started_at, ended_at FROM call_sessions WHERE id = $1`, id,
	).Scan(&cs.ID, &cs.UserID, &cs.InterviewID, &cs.Mode, &cs.Status, &cs.StartedAt, &endedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	if endedAt.Valid {
		cs.EndedAt = &endedAt.Time
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, kind, role, content, at FROM call_events WHERE session_id = $1 ORDER BY id ASC`, id,
	)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var events []CallEvent
	for rows.Next() {
		var ev CallEvent
		if err = rows.Scan(&ev.SessionID, &ev.Kind, &ev.Role, &ev.Content, &ev.At); err != nil {
			return nil, nil, err
		}
		events = append(events, ev)
	}
	cs.EventCount = len(events)
	return &cs, events, rows.Err()
}

func (s *Postgres) getDoc(ctx context.Context, dst any, query string, args ...any) error {
	var doc []byte
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if err = json.Unmarshal(doc, dst); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}

// Package history persists finished conversation turns and per-model usage
// counts in a local SQLite database.
package history

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/vango-go/vai-copilot/pkg/core/live"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const dayLayout = "2006-01-02"

// Store implements live.HistoryStore and live.UsageTracker.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the clock used to bucket usage by day.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

const pragmas = "_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"

// dsn builds a file: URI for path. The path is escaped so '?', '#' and '%'
// in directory names are not read as URI syntax.
func dsn(path string) string {
	return "file:" + (&url.URL{Path: path}).EscapedPath() + "?" + pragmas
}

// Open opens (creating if needed) the database at path and applies pending
// migrations.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("history path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	sub, err := fs.Sub(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, s.db, sub)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	for _, r := range results {
		s.logger.Info("history migration applied", "version", r.Source.Version, "duration", r.Duration)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// AppendConversationTurn records turn, creating its session row on first use.
func (s *Store) AppendConversationTurn(ctx context.Context, turn live.ConversationTurn) error {
	if turn.SessionID == "" {
		return errors.New("turn has no session id")
	}
	createdAt := turn.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sessions (id, profile, model, started_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, turn.SessionID, turn.Profile, turn.Model, createdAt.UnixMilli()); err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO turns (session_id, seq, transcription, response, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, turn.SessionID, turn.Seq, turn.Transcription, turn.Response, createdAt.UnixMilli()); err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// IncrementUsage bumps today's (UTC) counter for model.
func (s *Store) IncrementUsage(ctx context.Context, model string) error {
	day := s.now().UTC().Format(dayLayout)
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO usage (model, day, count) VALUES (?, ?, 1)
		ON CONFLICT(model, day) DO UPDATE SET count = count + 1
	`, model, day); err != nil {
		return fmt.Errorf("increment usage: %w", err)
	}
	return nil
}

// Turns returns the turns of sessionID in sequence order.
func (s *Store) Turns(ctx context.Context, sessionID string) ([]live.ConversationTurn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.session_id, t.seq, s.profile, s.model, t.transcription, t.response, t.created_at
		FROM turns t
		JOIN sessions s ON s.id = t.session_id
		WHERE t.session_id = ?
		ORDER BY t.seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	var turns []live.ConversationTurn
	for rows.Next() {
		var t live.ConversationTurn
		var createdAt int64
		if err := rows.Scan(&t.SessionID, &t.Seq, &t.Profile, &t.Model,
			&t.Transcription, &t.Response, &createdAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		t.CreatedAt = time.UnixMilli(createdAt)
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// SessionSummary describes one stored logical session.
type SessionSummary struct {
	ID        string    `json:"id"`
	Profile   string    `json:"profile"`
	Model     string    `json:"model"`
	StartedAt time.Time `json:"startedAt"`
	TurnCount int       `json:"turnCount"`
}

// Sessions lists stored sessions, newest first.
func (s *Store) Sessions(ctx context.Context, limit int) ([]SessionSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.profile, s.model, s.started_at, COUNT(t.id)
		FROM sessions s
		LEFT JOIN turns t ON t.session_id = s.id
		GROUP BY s.id
		ORDER BY s.started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var sum SessionSummary
		var startedAt int64
		if err := rows.Scan(&sum.ID, &sum.Profile, &sum.Model, &startedAt, &sum.TurnCount); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sum.StartedAt = time.UnixMilli(startedAt)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// UsageFor returns the counter for model on day (UTC).
func (s *Store) UsageFor(ctx context.Context, model string, day time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT count FROM usage WHERE model = ? AND day = ?`,
		model, day.UTC().Format(dayLayout)).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query usage: %w", err)
	}
	return count, nil
}

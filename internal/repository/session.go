package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"apex-tracker/internal/domain"

	"github.com/rs/zerolog"
)

type SessionRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewSessionRepository(sqlDB *sql.DB, logger zerolog.Logger) *SessionRepository {
	return &SessionRepository{db: sqlDB, logger: logger}
}

func (r *SessionRepository) Create(ctx context.Context, session *domain.Session) error {
	doc, err := json.Marshal(session.Doc)
	if err != nil {
		return fmt.Errorf("failed to marshal session doc: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, season_number, host_user_id, write_key, session_code, doc, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID, session.SeasonNumber, session.HostUserID, session.WriteKey,
		session.SessionCode, string(doc), session.CreatedAt, session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, season_number, host_user_id, write_key, session_code, doc, ended_at, created_at, updated_at
		FROM sessions WHERE id = ?`, id)
	return r.scanSession(row)
}

func (r *SessionRepository) GetByCode(ctx context.Context, code string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, season_number, host_user_id, write_key, session_code, doc, ended_at, created_at, updated_at
		FROM sessions WHERE session_code = ? AND ended_at IS NULL
		ORDER BY created_at DESC LIMIT 1`, code)
	return r.scanSession(row)
}

// CodeInUse reports whether a live session currently holds the given code.
// Ended sessions release their code back to the pool.
func (r *SessionRepository) CodeInUse(ctx context.Context, code string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sessions WHERE session_code = ? AND ended_at IS NULL`, code,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check session code: %w", err)
	}
	return n > 0, nil
}

func (r *SessionRepository) UpdateDoc(ctx context.Context, id string, doc domain.SessionDoc, updatedAt time.Time) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal session doc: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET doc = ?, updated_at = ? WHERE id = ?`,
		string(raw), updatedAt, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update session doc: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *SessionRepository) MarkEnded(ctx context.Context, id string, endedAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET ended_at = ?, updated_at = ? WHERE id = ? AND ended_at IS NULL`,
		endedAt, endedAt, id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark session ended: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrSessionEnded
	}
	return nil
}

func (r *SessionRepository) scanSession(row *sql.Row) (*domain.Session, error) {
	var s domain.Session
	var raw string
	var endedAt sql.NullTime

	err := row.Scan(&s.ID, &s.SeasonNumber, &s.HostUserID, &s.WriteKey, &s.SessionCode,
		&raw, &endedAt, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}

	if err := json.Unmarshal([]byte(raw), &s.Doc); err != nil {
		r.logger.Error().Err(err).Str("session_id", s.ID).Msg("corrupt session doc")
		return nil, fmt.Errorf("failed to unmarshal session doc: %w", err)
	}
	if endedAt.Valid {
		s.EndedAt = &endedAt.Time
	}
	return &s, nil
}

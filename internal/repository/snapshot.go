package repository

import (
	"context"
	"database/sql"
	"fmt"

	"apex-tracker/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

type SnapshotRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewSnapshotRepository(sqlDB *sql.DB, logger zerolog.Logger) *SnapshotRepository {
	return &SnapshotRepository{db: sqlDB, logger: logger}
}

// MergeUpsert adds the delta onto an existing same-day snapshot row, or
// inserts a new one. This is the one merged-daily-aggregate path; the live
// ledger always appends instead.
func (r *SnapshotRepository) MergeUpsert(ctx context.Context, snap *domain.Snapshot) error {
	id := snap.ID
	if id == "" {
		var err error
		id, err = gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate nanoid: %w", err)
		}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO season_rp_snapshots (id, season_id, user_id, post_date, delta_rp, posted_at, posted_by, posted_session_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (season_id, user_id, post_date) DO UPDATE SET
			delta_rp = delta_rp + excluded.delta_rp,
			posted_at = excluded.posted_at,
			posted_by = excluded.posted_by,
			posted_session_id = excluded.posted_session_id`,
		id, snap.SeasonID, snap.UserID, snap.PostDate, snap.DeltaRP,
		snap.PostedAt, snap.PostedBy, snap.PostedSessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot: %w", err)
	}

	r.logger.Debug().
		Str("season_id", snap.SeasonID).
		Str("user_id", snap.UserID).
		Str("post_date", snap.PostDate).
		Int("delta_rp", snap.DeltaRP).
		Msg("snapshot merged")
	return nil
}

func (r *SnapshotRepository) ListBySeason(ctx context.Context, seasonID string) ([]domain.Snapshot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, season_id, user_id, post_date, delta_rp, posted_at, posted_by, posted_session_id
		FROM season_rp_snapshots WHERE season_id = ?
		ORDER BY post_date, user_id`, seasonID)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []domain.Snapshot
	for rows.Next() {
		var s domain.Snapshot
		err := rows.Scan(&s.ID, &s.SeasonID, &s.UserID, &s.PostDate, &s.DeltaRP,
			&s.PostedAt, &s.PostedBy, &s.PostedSessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snaps = append(snaps, s)
	}
	return snaps, rows.Err()
}

func (r *SnapshotRepository) GetByDay(ctx context.Context, seasonID, userID, postDate string) (*domain.Snapshot, error) {
	var s domain.Snapshot
	err := r.db.QueryRowContext(ctx, `
		SELECT id, season_id, user_id, post_date, delta_rp, posted_at, posted_by, posted_session_id
		FROM season_rp_snapshots WHERE season_id = ? AND user_id = ? AND post_date = ?`,
		seasonID, userID, postDate,
	).Scan(&s.ID, &s.SeasonID, &s.UserID, &s.PostDate, &s.DeltaRP, &s.PostedAt, &s.PostedBy, &s.PostedSessionID)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	return &s, nil
}

// RecordPost writes the immutable audit batch for a host's post: the post row
// plus its per-user deltas, in one transaction.
func (r *SnapshotRepository) RecordPost(ctx context.Context, post *domain.SessionPost, deltas []domain.SessionPostDelta) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO session_posts (id, session_id, season_id, posted_by, post_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		post.ID, post.SessionID, post.SeasonID, post.PostedBy, post.PostDate, post.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert session post: %w", err)
	}

	for _, d := range deltas {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO session_rp_deltas (post_id, user_id, delta_rp)
			VALUES (?, ?, ?)`,
			post.ID, d.UserID, d.DeltaRP,
		)
		if err != nil {
			return fmt.Errorf("failed to insert session rp delta for %s: %w", d.UserID, err)
		}
	}

	return tx.Commit()
}

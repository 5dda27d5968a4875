package service

import (
	"context"
	"testing"

	"apex-tracker/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndSessionFinalizesPlayers(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	season := fx.startSeason(t, 7)

	doc := squadDoc()
	doc.Players[0].Games = 3
	doc.Players[0].Damage = 3400
	doc.Players[0].Kills = 11
	session, err := fx.sessions.Create(ctx, 7, "host-1", doc)
	require.NoError(t, err)

	result, err := fx.posts.EndSession(ctx, session.ID, session.WriteKey, false)
	require.NoError(t, err)

	require.Len(t, result.Results, 2)
	for _, r := range result.Results {
		assert.True(t, r.OK, "player %s should finalize", r.Name)
	}
	assert.False(t, result.Posted)
	assert.Empty(t, result.DiscordError)

	ended, err := fx.sessions.Get(ctx, session.ID)
	require.NoError(t, err)
	require.NotNil(t, ended.EndedAt)

	// Zero-RP players still gain season membership.
	var n int
	require.NoError(t, fx.db.QueryRow(
		`SELECT COUNT(*) FROM season_players WHERE season_id = ?`, season.ID,
	).Scan(&n))
	assert.Equal(t, 2, n)

	var damage int
	require.NoError(t, fx.db.QueryRow(
		`SELECT damage FROM season_player_stats WHERE session_id = ? AND user_id = 'user-1'`, session.ID,
	).Scan(&damage))
	assert.Equal(t, 3400, damage)
}

func TestEndSessionRejectsBadKey(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.startSeason(t, 7)

	session, err := fx.sessions.Create(ctx, 7, "host-1", squadDoc())
	require.NoError(t, err)

	_, err = fx.posts.EndSession(ctx, session.ID, "wrong-key", false)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	live, err := fx.sessions.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Nil(t, live.EndedAt)
}

func TestEndSessionTwice(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.startSeason(t, 7)

	session, err := fx.sessions.Create(ctx, 7, "host-1", squadDoc())
	require.NoError(t, err)

	_, err = fx.posts.EndSession(ctx, session.ID, session.WriteKey, false)
	require.NoError(t, err)

	_, err = fx.posts.EndSession(ctx, session.ID, session.WriteKey, false)
	assert.ErrorIs(t, err, domain.ErrSessionEnded)
}

func TestEndSessionPartialBatch(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.startSeason(t, 7)

	doc := domain.SessionDoc{
		Players: []domain.PlayerEntry{
			{ID: "p1", OwnerUserID: "user-1", Name: "Wraith"},
			{ID: "p2", Name: "Guest"},
		},
	}
	session, err := fx.sessions.Create(ctx, 7, "host-1", doc)
	require.NoError(t, err)

	result, err := fx.posts.EndSession(ctx, session.ID, session.WriteKey, false)
	require.NoError(t, err)

	require.Len(t, result.Results, 2)
	assert.True(t, result.Results[0].OK)
	assert.False(t, result.Results[1].OK)
	assert.NotEmpty(t, result.Results[1].Error)

	// One failed player never blocks the session from ending.
	ended, err := fx.sessions.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.NotNil(t, ended.EndedAt)
}

func TestEndSessionDiscordFailureIsDecoupled(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	season := fx.startSeason(t, 7)

	doc := squadDoc()
	doc.Players[0].RP = 45
	doc.Players[1].RP = -10
	session, err := fx.sessions.Create(ctx, 7, "host-1", doc)
	require.NoError(t, err)

	// The fixture client has no webhook URL, so the post fails. Persistence
	// must already be committed when it does.
	result, err := fx.posts.EndSession(ctx, session.ID, session.WriteKey, true)
	require.NoError(t, err)
	assert.True(t, result.Posted)
	assert.NotEmpty(t, result.DiscordError)

	snaps, err := fx.seasons.Chart(ctx, season.ID)
	require.NoError(t, err)
	assert.Len(t, snaps, 2)

	var n int
	require.NoError(t, fx.db.QueryRow(
		`SELECT COUNT(*) FROM session_posts WHERE session_id = ?`, session.ID,
	).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestEndSessionSnapshotFailureIsAnError(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.startSeason(t, 7)

	doc := squadDoc()
	doc.Players[0].RP = 45
	session, err := fx.sessions.Create(ctx, 7, "host-1", doc)
	require.NoError(t, err)

	// Break only the snapshot ledger so the merge write fails.
	_, err = fx.db.Exec(`DROP TABLE season_rp_snapshots`)
	require.NoError(t, err)

	// A persistence failure surfaces as an error, never as a webhook failure
	// the host would retry by re-posting.
	result, err := fx.posts.EndSession(ctx, session.ID, session.WriteKey, true)
	require.Error(t, err)
	assert.Nil(t, result)
}

func TestEndSessionSnapshotAccumulation(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	season := fx.startSeason(t, 7)

	for _, rp := range []int{45, 20} {
		doc := domain.SessionDoc{
			Players: []domain.PlayerEntry{{ID: "p1", OwnerUserID: "user-1", Name: "Wraith", RP: rp}},
		}
		session, err := fx.sessions.Create(ctx, 7, "host-1", doc)
		require.NoError(t, err)
		_, err = fx.posts.EndSession(ctx, session.ID, session.WriteKey, true)
		require.NoError(t, err)
	}

	// Two same-day posts merge into one snapshot row.
	var delta, rows int
	require.NoError(t, fx.db.QueryRow(
		`SELECT COUNT(*), SUM(delta_rp) FROM season_rp_snapshots WHERE season_id = ? AND user_id = 'user-1'`,
		season.ID,
	).Scan(&rows, &delta))
	assert.Equal(t, 1, rows)
	assert.Equal(t, 65, delta)
}

func TestEndSessionZeroRPSkipsSnapshot(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	season := fx.startSeason(t, 7)

	session, err := fx.sessions.Create(ctx, 7, "host-1", squadDoc())
	require.NoError(t, err)

	_, err = fx.posts.EndSession(ctx, session.ID, session.WriteKey, true)
	require.NoError(t, err)

	var n int
	require.NoError(t, fx.db.QueryRow(
		`SELECT COUNT(*) FROM season_rp_snapshots WHERE season_id = ?`, season.ID,
	).Scan(&n))
	assert.Zero(t, n)

	// No deltas means no audit post either.
	require.NoError(t, fx.db.QueryRow(
		`SELECT COUNT(*) FROM session_posts WHERE session_id = ?`, session.ID,
	).Scan(&n))
	assert.Zero(t, n)
}

package service

import (
	"context"
	"testing"

	"apex-tracker/internal/constants"
	"apex-tracker/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionCreate(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	session, err := fx.sessions.Create(ctx, 7, "host-1", squadDoc())
	require.NoError(t, err)

	assert.NotEmpty(t, session.ID)
	assert.NotEmpty(t, session.WriteKey)
	assert.Len(t, session.SessionCode, constants.SessionCodeLength)
	assert.Nil(t, session.EndedAt)

	byCode, err := fx.sessions.GetByCode(ctx, session.SessionCode)
	require.NoError(t, err)
	assert.Equal(t, session.ID, byCode.ID)
}

func TestSessionCreateValidation(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	_, err := fx.sessions.Create(ctx, 7, "", squadDoc())
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	doc := domain.SessionDoc{Players: make([]domain.PlayerEntry, domain.MaxPlayers+1)}
	_, err = fx.sessions.Create(ctx, 7, "host-1", doc)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestSessionSaveWithWriteKey(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	session, err := fx.sessions.Create(ctx, 7, "host-1", squadDoc())
	require.NoError(t, err)

	doc := squadDoc()
	doc.Players[0].Damage = 1200
	doc.Players[0].Kills = 3
	doc.SessionGames = 1

	saved, err := fx.sessions.Save(ctx, session.ID, session.WriteKey, "", doc)
	require.NoError(t, err)
	assert.Equal(t, 1200, saved.Doc.Players[0].Damage)

	// Last write wins: a second full save replaces the doc wholesale.
	doc2 := squadDoc()
	doc2.SessionGames = 5
	saved, err = fx.sessions.Save(ctx, session.ID, session.WriteKey, "", doc2)
	require.NoError(t, err)
	assert.Equal(t, 5, saved.Doc.SessionGames)
	assert.Equal(t, 0, saved.Doc.Players[0].Damage)

	require.Len(t, fx.broadcasts, 2)
	assert.Equal(t, saved.Doc, fx.broadcasts[1])
}

func TestSessionSaveRejectsBadKey(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	session, err := fx.sessions.Create(ctx, 7, "host-1", squadDoc())
	require.NoError(t, err)

	_, err = fx.sessions.Save(ctx, session.ID, "wrong-key", "", squadDoc())
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = fx.sessions.Save(ctx, session.ID, "", "", squadDoc())
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Empty(t, fx.broadcasts)

	// Rejected saves leave the stored doc untouched.
	stored, err := fx.sessions.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, squadDoc(), stored.Doc)
}

func TestSessionSaveSelfRP(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	base := squadDoc()
	base.Players[0].Damage = 3400
	session, err := fx.sessions.Create(ctx, 7, "host-1", base)
	require.NoError(t, err)

	// Stale incoming doc: only user-1's RP may land, nothing else.
	incoming := squadDoc()
	incoming.Players[0].RP = 45
	incoming.Players[1].RP = 99

	saved, err := fx.sessions.Save(ctx, session.ID, "", "user-1", incoming)
	require.NoError(t, err)
	assert.Equal(t, 45, saved.Doc.Players[0].RP)
	assert.Equal(t, 3400, saved.Doc.Players[0].Damage)
	assert.Equal(t, 0, saved.Doc.Players[1].RP)

	_, err = fx.sessions.Save(ctx, session.ID, "", "user-unknown", incoming)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestSessionSaveAfterEnd(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	fx.startSeason(t, 7)
	session, err := fx.sessions.Create(ctx, 7, "host-1", squadDoc())
	require.NoError(t, err)

	_, err = fx.posts.EndSession(ctx, session.ID, session.WriteKey, false)
	require.NoError(t, err)

	_, err = fx.sessions.Save(ctx, session.ID, session.WriteKey, "", squadDoc())
	assert.ErrorIs(t, err, domain.ErrSessionEnded)
}

func TestSessionCodeExhaustion(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	// Pin the sampler to one code: the first session takes it, the second
	// burns through the whole retry bound.
	fx.sessions.newCode = func() (string, error) { return "111111", nil }

	first, err := fx.sessions.Create(ctx, 7, "host-1", squadDoc())
	require.NoError(t, err)
	assert.Equal(t, "111111", first.SessionCode)

	_, err = fx.sessions.Create(ctx, 7, "host-1", squadDoc())
	assert.ErrorIs(t, err, domain.ErrCodeExhausted)

	// Ending the first session releases the code for reuse.
	fx.startSeason(t, 7)
	_, err = fx.posts.EndSession(ctx, first.ID, first.WriteKey, false)
	require.NoError(t, err)

	second, err := fx.sessions.Create(ctx, 7, "host-1", squadDoc())
	require.NoError(t, err)
	assert.Equal(t, "111111", second.SessionCode)
}

func TestRandomCodeFormat(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := randomCode()
		require.NoError(t, err)
		require.Len(t, code, constants.SessionCodeLength)
		for _, c := range code {
			assert.True(t, c >= '0' && c <= '9')
		}
		seen[code] = true
	}
	// 50 draws from a million-code space should not all collide.
	assert.Greater(t, len(seen), 1)
}

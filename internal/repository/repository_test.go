package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"apex-tracker/internal/database"
	"apex-tracker/internal/domain"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// In-memory SQLite is per-connection; keep the pool at one.
	db.SetMaxOpenConns(1)
	require.NoError(t, database.RunMigrations(db, zerolog.Nop()))
	t.Cleanup(func() { db.Close() })
	return db
}

func testSession(id, code string) *domain.Session {
	now := time.Now()
	return &domain.Session{
		ID:           id,
		SeasonNumber: 7,
		HostUserID:   "host-1",
		WriteKey:     "key-" + id,
		SessionCode:  code,
		Doc: domain.SessionDoc{
			Players: []domain.PlayerEntry{{ID: "p1", OwnerUserID: "user-1", Name: "Wraith"}},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestSessionRoundTrip(t *testing.T) {
	db := newTestDB(t)
	repo := NewSessionRepository(db, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, testSession("s1", "123456")))

	got, err := repo.GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "key-s1", got.WriteKey)
	assert.Equal(t, "Wraith", got.Doc.Players[0].Name)
	assert.Nil(t, got.EndedAt)

	byCode, err := repo.GetByCode(ctx, "123456")
	require.NoError(t, err)
	assert.Equal(t, "s1", byCode.ID)
}

func TestSessionGetMissing(t *testing.T) {
	db := newTestDB(t)
	repo := NewSessionRepository(db, zerolog.Nop())

	_, err := repo.GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSessionUpdateDoc(t *testing.T) {
	db := newTestDB(t)
	repo := NewSessionRepository(db, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, testSession("s1", "123456")))

	doc := domain.SessionDoc{
		Players:      []domain.PlayerEntry{{ID: "p1", Name: "Wraith", Damage: 1200, Kills: 3}},
		SessionGames: 1,
	}
	require.NoError(t, repo.UpdateDoc(ctx, "s1", doc, time.Now()))

	got, err := repo.GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, doc, got.Doc)

	assert.ErrorIs(t, repo.UpdateDoc(ctx, "missing", doc, time.Now()), domain.ErrNotFound)
}

func TestSessionCodeLifecycle(t *testing.T) {
	db := newTestDB(t)
	repo := NewSessionRepository(db, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, testSession("s1", "654321")))

	inUse, err := repo.CodeInUse(ctx, "654321")
	require.NoError(t, err)
	assert.True(t, inUse)

	require.NoError(t, repo.MarkEnded(ctx, "s1", time.Now()))

	// Ended sessions release their code and a second end is rejected.
	inUse, err = repo.CodeInUse(ctx, "654321")
	require.NoError(t, err)
	assert.False(t, inUse)
	assert.ErrorIs(t, repo.MarkEnded(ctx, "s1", time.Now()), domain.ErrSessionEnded)
}

func TestSeasonActivation(t *testing.T) {
	db := newTestDB(t)
	repo := NewSeasonRepository(db, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, repo.CreateAndActivate(ctx, &domain.Season{
		ID: "season-6", SeasonNumber: 6, HostUserID: "host-1", CreatedAt: time.Now(),
	}))
	require.NoError(t, repo.CreateAndActivate(ctx, &domain.Season{
		ID: "season-7", SeasonNumber: 7, HostUserID: "host-1", CreatedAt: time.Now(),
	}))

	active, err := repo.GetActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "season-7", active.ID)

	old, err := repo.GetByID(ctx, "season-6")
	require.NoError(t, err)
	assert.False(t, old.IsActive)

	byNum, err := repo.GetByNumber(ctx, 6)
	require.NoError(t, err)
	assert.Equal(t, "season-6", byNum.ID)
}

func TestSeasonMembershipUnique(t *testing.T) {
	db := newTestDB(t)
	repo := NewSeasonRepository(db, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, repo.CreateAndActivate(ctx, &domain.Season{
		ID: "season-7", SeasonNumber: 7, HostUserID: "host-1", CreatedAt: time.Now(),
	}))

	require.NoError(t, repo.RegisterPlayer(ctx, "season-7", "user-1"))
	require.NoError(t, repo.RegisterPlayer(ctx, "season-7", "user-1"))
	require.NoError(t, repo.RegisterPlayer(ctx, "season-7", "user-2"))

	players, err := repo.ListPlayers(ctx, "season-7")
	require.NoError(t, err)
	assert.Equal(t, []string{"user-1", "user-2"}, players)
}

func TestRPEntryLedger(t *testing.T) {
	db := newTestDB(t)
	seasons := NewSeasonRepository(db, zerolog.Nop())
	repo := NewRPRepository(db, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, seasons.CreateAndActivate(ctx, &domain.Season{
		ID: "season-7", SeasonNumber: 7, HostUserID: "host-1", CreatedAt: time.Now(),
	}))

	base := time.Now()
	id1, err := repo.Insert(ctx, &domain.RPEntry{
		SeasonID: "season-7", UserID: "user-1", EntryDate: "2026-08-30", DeltaRP: 45, CreatedAt: base,
	})
	require.NoError(t, err)
	id2, err := repo.Insert(ctx, &domain.RPEntry{
		SeasonID: "season-7", UserID: "user-1", EntryDate: "2026-08-30", DeltaRP: -10, CreatedAt: base.Add(time.Second),
	})
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	// Same-day inserts stay separate rows.
	entries, err := repo.ListPage(ctx, "season-7", "user-1", 500)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	latest, err := repo.Latest(ctx, "season-7", "user-1")
	require.NoError(t, err)
	assert.Equal(t, id2, latest.ID)
	assert.Equal(t, -10, latest.DeltaRP)

	require.NoError(t, repo.Delete(ctx, id2))
	latest, err = repo.Latest(ctx, "season-7", "user-1")
	require.NoError(t, err)
	assert.Equal(t, id1, latest.ID)

	assert.ErrorIs(t, repo.Delete(ctx, id2), domain.ErrNotFound)
}

func TestRPListPageBound(t *testing.T) {
	db := newTestDB(t)
	seasons := NewSeasonRepository(db, zerolog.Nop())
	repo := NewRPRepository(db, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, seasons.CreateAndActivate(ctx, &domain.Season{
		ID: "season-7", SeasonNumber: 7, HostUserID: "host-1", CreatedAt: time.Now(),
	}))

	for i := 0; i < 10; i++ {
		_, err := repo.Insert(ctx, &domain.RPEntry{
			SeasonID: "season-7", UserID: "user-1", EntryDate: "2026-08-30", DeltaRP: 1,
			CreatedAt: time.Now().Add(time.Duration(i) * time.Millisecond),
		})
		require.NoError(t, err)
	}

	entries, err := repo.ListPage(ctx, "season-7", "user-1", 4)
	require.NoError(t, err)
	assert.Len(t, entries, 4)
}

func TestSnapshotSameDayMerge(t *testing.T) {
	db := newTestDB(t)
	seasons := NewSeasonRepository(db, zerolog.Nop())
	repo := NewSnapshotRepository(db, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, seasons.CreateAndActivate(ctx, &domain.Season{
		ID: "season-7", SeasonNumber: 7, HostUserID: "host-1", CreatedAt: time.Now(),
	}))

	snap := &domain.Snapshot{
		SeasonID: "season-7", UserID: "user-1", PostDate: "2026-08-30",
		DeltaRP: 45, PostedAt: time.Now(), PostedBy: "host-1", PostedSessionID: "s1",
	}
	require.NoError(t, repo.MergeUpsert(ctx, snap))

	second := *snap
	second.ID = ""
	second.DeltaRP = 20
	second.PostedSessionID = "s2"
	require.NoError(t, repo.MergeUpsert(ctx, &second))

	got, err := repo.GetByDay(ctx, "season-7", "user-1", "2026-08-30")
	require.NoError(t, err)
	assert.Equal(t, 65, got.DeltaRP)
	assert.Equal(t, "s2", got.PostedSessionID)

	all, err := repo.ListBySeason(ctx, "season-7")
	require.NoError(t, err)
	assert.Len(t, all, 1)

	// A different day stays its own row.
	third := *snap
	third.ID = ""
	third.PostDate = "2026-08-31"
	require.NoError(t, repo.MergeUpsert(ctx, &third))

	all, err = repo.ListBySeason(ctx, "season-7")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRecordPostBatch(t *testing.T) {
	db := newTestDB(t)
	seasons := NewSeasonRepository(db, zerolog.Nop())
	repo := NewSnapshotRepository(db, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, seasons.CreateAndActivate(ctx, &domain.Season{
		ID: "season-7", SeasonNumber: 7, HostUserID: "host-1", CreatedAt: time.Now(),
	}))

	post := &domain.SessionPost{
		ID: "post-1", SessionID: "s1", SeasonID: "season-7",
		PostedBy: "host-1", PostDate: "2026-08-30", CreatedAt: time.Now(),
	}
	deltas := []domain.SessionPostDelta{
		{UserID: "user-1", DeltaRP: 45},
		{UserID: "user-2", DeltaRP: -10},
	}
	require.NoError(t, repo.RecordPost(ctx, post, deltas))

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM session_rp_deltas WHERE post_id = 'post-1'`).Scan(&n))
	assert.Equal(t, 2, n)
}

func TestPlayerStatUpsert(t *testing.T) {
	db := newTestDB(t)
	repo := NewSeasonRepository(db, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, repo.CreateAndActivate(ctx, &domain.Season{
		ID: "season-7", SeasonNumber: 7, HostUserID: "host-1", CreatedAt: time.Now(),
	}))

	p := domain.PlayerEntry{ID: "p1", OwnerUserID: "user-1", Name: "Wraith", Games: 3, Damage: 3400, Kills: 11, RP: 45}
	require.NoError(t, repo.UpsertPlayerStat(ctx, "season-7", "s1", p))

	p.Damage = 3600
	require.NoError(t, repo.UpsertPlayerStat(ctx, "season-7", "s1", p))

	var damage, count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*), MAX(damage) FROM season_player_stats`).Scan(&count, &damage))
	assert.Equal(t, 1, count)
	assert.Equal(t, 3600, damage)

	// A player row without an owning user cannot be finalized.
	err := repo.UpsertPlayerStat(ctx, "season-7", "s1", domain.PlayerEntry{ID: "p2", Name: "Guest"})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestProfileUpsertAndGetAll(t *testing.T) {
	db := newTestDB(t)
	repo := NewProfileRepository(db, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &domain.Profile{ID: "user-1", Username: "wraith", DisplayName: "Wraith"}))
	require.NoError(t, repo.Upsert(ctx, &domain.Profile{ID: "user-1", Username: "wraith", DisplayName: "Wraith Main"}))

	got, err := repo.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Wraith Main", got.DisplayName)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

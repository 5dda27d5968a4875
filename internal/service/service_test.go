package service

import (
	"context"
	"database/sql"
	"testing"

	"apex-tracker/internal/config"
	"apex-tracker/internal/database"
	"apex-tracker/internal/discord"
	"apex-tracker/internal/domain"
	"apex-tracker/internal/repository"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	db       *sql.DB
	sessions *SessionService
	seasons  *SeasonService
	rp       *RPService
	posts    *PostService

	broadcasts []domain.SessionDoc
}

// recordingBroadcaster captures docs pushed to live viewers.
type recordingBroadcaster struct {
	fx *fixture
}

func (b *recordingBroadcaster) BroadcastDoc(sessionID string, doc domain.SessionDoc) {
	b.fx.broadcasts = append(b.fx.broadcasts, doc)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	require.NoError(t, database.RunMigrations(db, zerolog.Nop()))
	t.Cleanup(func() { db.Close() })

	logger := zerolog.Nop()
	sessionRepo := repository.NewSessionRepository(db, logger)
	seasonRepo := repository.NewSeasonRepository(db, logger)
	rpRepo := repository.NewRPRepository(db, logger)
	snapshotRepo := repository.NewSnapshotRepository(db, logger)
	profileRepo := repository.NewProfileRepository(db, logger)

	// Empty webhook URL keeps Discord posts failing locally.
	discordClient := discord.NewClient(&config.Config{}, logger)

	fx := &fixture{db: db}
	fx.sessions = NewSessionService(sessionRepo, &recordingBroadcaster{fx: fx}, logger)
	fx.seasons = NewSeasonService(seasonRepo, snapshotRepo, profileRepo, logger)
	fx.rp = NewRPService(rpRepo, seasonRepo, logger)
	fx.posts = NewPostService(sessionRepo, seasonRepo, snapshotRepo, profileRepo, discordClient, logger)
	return fx
}

func (f *fixture) startSeason(t *testing.T, number int) *domain.Season {
	t.Helper()
	season, err := f.seasons.Start(context.Background(), number, "host-1")
	require.NoError(t, err)
	return season
}

func squadDoc() domain.SessionDoc {
	return domain.SessionDoc{
		Players: []domain.PlayerEntry{
			{ID: "p1", OwnerUserID: "user-1", Name: "Wraith"},
			{ID: "p2", OwnerUserID: "user-2", Name: "Gibby"},
		},
	}
}

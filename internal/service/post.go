package service

import (
	"context"
	"crypto/subtle"
	"time"

	"apex-tracker/internal/constants"
	"apex-tracker/internal/discord"
	"apex-tracker/internal/domain"
	"apex-tracker/internal/repository"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// PostService finalizes sessions: per-player stat rows, season membership,
// snapshot merges, the immutable post audit batch, and the optional Discord
// summary.
type PostService struct {
	sessionRepo  *repository.SessionRepository
	seasonRepo   *repository.SeasonRepository
	snapshotRepo *repository.SnapshotRepository
	profileRepo  *repository.ProfileRepository
	discord      *discord.Client
	logger       zerolog.Logger
}

func NewPostService(
	sessionRepo *repository.SessionRepository,
	seasonRepo *repository.SeasonRepository,
	snapshotRepo *repository.SnapshotRepository,
	profileRepo *repository.ProfileRepository,
	discordClient *discord.Client,
	logger zerolog.Logger,
) *PostService {
	return &PostService{
		sessionRepo:  sessionRepo,
		seasonRepo:   seasonRepo,
		snapshotRepo: snapshotRepo,
		profileRepo:  profileRepo,
		discord:      discordClient,
		logger:       logger,
	}
}

// EndResult reports the per-player outcome of a finalize. Stat writes are
// best-effort: some players may fail while others succeed.
type EndResult struct {
	SessionID    string                    `json:"session_id"`
	Results      []domain.PlayerStatResult `json:"results"`
	Posted       bool                      `json:"posted"`
	DiscordError string                    `json:"discord_error,omitempty"`
}

// EndSession finalizes a session. Discord posting is decoupled from
// persistence: a webhook failure never rolls back the committed rows.
func (s *PostService) EndSession(ctx context.Context, sessionID, writeKey string, postToDiscord bool) (*EndResult, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(writeKey), []byte(session.WriteKey)) != 1 {
		s.logger.Warn().Str("session_id", sessionID).Msg("end rejected: write key mismatch")
		return nil, domain.ErrForbidden
	}

	season, err := s.seasonRepo.GetByNumber(ctx, session.SeasonNumber)
	if err != nil {
		return nil, err
	}

	if err := s.sessionRepo.MarkEnded(ctx, sessionID, time.Now()); err != nil {
		return nil, err
	}

	result := &EndResult{SessionID: sessionID}
	for _, p := range session.Doc.Players {
		result.Results = append(result.Results, s.finalizePlayer(ctx, season.ID, sessionID, p))
	}

	if postToDiscord {
		// Snapshot and audit writes are persistence; a failure here is the
		// caller's error, not a delivery problem.
		if err := s.recordPost(ctx, session, season); err != nil {
			s.logger.Error().Err(err).Str("session_id", sessionID).Msg("failed to record post")
			return nil, err
		}
		result.Posted = true

		summary := discord.FormatSessionSummary(season.SeasonNumber, session.Doc)
		if err := s.discord.Post(ctx, summary); err != nil {
			// Webhook delivery alone is best-effort: the committed rows stand.
			s.logger.Error().Err(err).Str("session_id", sessionID).Msg("discord post failed")
			result.DiscordError = err.Error()
		}
	}

	s.logger.Info().
		Str("session_id", sessionID).
		Int("players", len(result.Results)).
		Bool("posted", result.Posted).
		Msg("session ended")
	return result, nil
}

// finalizePlayer writes one player's stat row and membership. Zero-RP players
// still register membership; they simply contribute no snapshot later.
func (s *PostService) finalizePlayer(ctx context.Context, seasonID, sessionID string, p domain.PlayerEntry) domain.PlayerStatResult {
	res := domain.PlayerStatResult{PlayerID: p.ID, Name: p.Name, OK: true}

	if p.OwnerUserID == "" {
		res.OK = false
		res.Error = "player has no owning user"
		return res
	}

	if err := s.profileRepo.Upsert(ctx, &domain.Profile{ID: p.OwnerUserID, Username: p.Name, DisplayName: p.Name}); err != nil {
		s.logger.Warn().Err(err).Str("user_id", p.OwnerUserID).Msg("failed to upsert profile")
	}

	if err := s.seasonRepo.RegisterPlayer(ctx, seasonID, p.OwnerUserID); err != nil {
		res.OK = false
		res.Error = err.Error()
		return res
	}

	if err := s.seasonRepo.UpsertPlayerStat(ctx, seasonID, sessionID, p); err != nil {
		res.OK = false
		res.Error = err.Error()
	}
	return res
}

// recordPost writes the snapshot merges and the immutable audit batch for a
// posted session.
func (s *PostService) recordPost(ctx context.Context, session *domain.Session, season *domain.Season) error {
	now := time.Now()
	postDate := now.Format("2006-01-02")

	var deltas []domain.SessionPostDelta
	for _, p := range session.Doc.Players {
		if p.OwnerUserID == "" || p.RP == 0 {
			continue
		}

		err := s.snapshotRepo.MergeUpsert(ctx, &domain.Snapshot{
			SeasonID:        season.ID,
			UserID:          p.OwnerUserID,
			PostDate:        postDate,
			DeltaRP:         p.RP,
			PostedAt:        now,
			PostedBy:        session.HostUserID,
			PostedSessionID: session.ID,
		})
		if err != nil {
			return err
		}
		deltas = append(deltas, domain.SessionPostDelta{UserID: p.OwnerUserID, DeltaRP: p.RP})
	}

	if len(deltas) > 0 {
		postID, err := gonanoid.New()
		if err != nil {
			return err
		}
		post := &domain.SessionPost{
			ID:        postID,
			SessionID: session.ID,
			SeasonID:  season.ID,
			PostedBy:  session.HostUserID,
			PostDate:  postDate,
			CreatedAt: now,
		}
		if err := s.snapshotRepo.RecordPost(ctx, post, deltas); err != nil {
			return err
		}
	}
	return nil
}

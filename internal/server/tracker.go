package server

import (
	"net/http"

	"apex-tracker/internal/auth"
	"apex-tracker/internal/discord"
	"apex-tracker/internal/live"
	"apex-tracker/internal/middleware"
	"apex-tracker/internal/service"

	"github.com/rs/zerolog"
)

// TrackerServer wires the HTTP surface onto the services.
type TrackerServer struct {
	sessionSvc *service.SessionService
	rpSvc      *service.RPService
	seasonSvc  *service.SeasonService
	postSvc    *service.PostService
	discord    *discord.Client
	hub        *live.Hub
	gate       *auth.PINGate
	logger     zerolog.Logger
}

func NewTrackerServer(
	sessionSvc *service.SessionService,
	rpSvc *service.RPService,
	seasonSvc *service.SeasonService,
	postSvc *service.PostService,
	discordClient *discord.Client,
	hub *live.Hub,
	gate *auth.PINGate,
	logger zerolog.Logger,
) *TrackerServer {
	return &TrackerServer{
		sessionSvc: sessionSvc,
		rpSvc:      rpSvc,
		seasonSvc:  seasonSvc,
		postSvc:    postSvc,
		discord:    discordClient,
		hub:        hub,
		gate:       gate,
		logger:     logger,
	}
}

// RegisterRoutes mounts every route. Auth and health stay outside the PIN
// gate; everything else requires the session cookie.
func (s *TrackerServer) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /auth/verify-pin", s.handleVerifyPIN)

	gate := middleware.RequireSession(s.gate, s.logger)
	gated := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, gate(h))
	}

	gated("POST /sessions", s.handleCreateSession)
	gated("GET /sessions", s.handleLookupSessionByCode)
	gated("GET /sessions/{id}", s.handleGetSession)
	gated("PUT /sessions/{id}", s.handleSaveSession)
	gated("POST /sessions/{id}/end", s.handleEndSession)

	gated("POST /seasons", s.handleStartSeason)
	gated("GET /seasons/active", s.handleActiveSeason)
	gated("GET /seasons/{id}/chart", s.handleChart)

	gated("POST /seasons/{id}/rp", s.handleAddRP)
	gated("GET /seasons/{id}/rp/latest", s.handleLatestRP)
	gated("GET /seasons/{id}/rp/total", s.handleRPTotal)
	gated("DELETE /seasons/{id}/rp/{entryId}", s.handleUndoRP)

	gated("POST /discord", s.handleDiscordPost)
	gated("GET /ws/sessions/{id}", s.handleSessionWS)
}

func (s *TrackerServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

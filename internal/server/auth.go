package server

import (
	"net/http"
	"time"

	"apex-tracker/internal/constants"
	"apex-tracker/internal/domain"
)

type verifyPINRequest struct {
	PIN string `json:"pin"`
}

type discordPostRequest struct {
	Content string `json:"content"`
}

func (s *TrackerServer) handleVerifyPIN(w http.ResponseWriter, r *http.Request) {
	var req verifyPINRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, s.logger, err)
		return
	}

	token, err := s.gate.Verify(req.PIN)
	if err != nil {
		respondError(w, s.logger, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     constants.AuthCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(constants.AuthSessionTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleDiscordPost forwards a pre-formatted message to the configured
// webhook. No retry; the caller re-clicks if it fails.
func (s *TrackerServer) handleDiscordPost(w http.ResponseWriter, r *http.Request) {
	var req discordPostRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, s.logger, err)
		return
	}
	if req.Content == "" {
		respondError(w, s.logger, domain.ErrInvalidArgument)
		return
	}

	if !s.discord.Configured() {
		s.logger.Error().Msg("discord webhook URL not configured")
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "discord webhook not configured"})
		return
	}

	if err := s.discord.Post(r.Context(), req.Content); err != nil {
		respondJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "posted"})
}

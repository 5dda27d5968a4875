package server

import (
	"net/http"
	"time"

	"apex-tracker/internal/domain"
)

type createSessionRequest struct {
	SeasonNumber int               `json:"season_number"`
	HostUserID   string            `json:"host_user_id"`
	Doc          domain.SessionDoc `json:"doc"`
}

type createSessionResponse struct {
	SessionID   string `json:"session_id"`
	WriteKey    string `json:"write_key"`
	SessionCode string `json:"session_code"`
}

type saveSessionRequest struct {
	WriteKey         string            `json:"write_key,omitempty"`
	PlayerIDUpdating string            `json:"player_id_updating,omitempty"`
	Doc              domain.SessionDoc `json:"doc"`
}

type endSessionRequest struct {
	WriteKey      string `json:"write_key"`
	PostToDiscord bool   `json:"post_to_discord"`
}

// sessionResponse deliberately omits write_key: the capability secret is
// returned once, to the creator, and never again.
type sessionResponse struct {
	ID           string            `json:"id"`
	SeasonNumber int               `json:"season_number"`
	HostUserID   string            `json:"host_user_id"`
	SessionCode  string            `json:"session_code"`
	Doc          domain.SessionDoc `json:"doc"`
	EndedAt      *time.Time        `json:"ended_at,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

func toSessionResponse(s *domain.Session) sessionResponse {
	return sessionResponse{
		ID:           s.ID,
		SeasonNumber: s.SeasonNumber,
		HostUserID:   s.HostUserID,
		SessionCode:  s.SessionCode,
		Doc:          s.Doc,
		EndedAt:      s.EndedAt,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

func (s *TrackerServer) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, s.logger, err)
		return
	}

	session, err := s.sessionSvc.Create(r.Context(), req.SeasonNumber, req.HostUserID, req.Doc)
	if err != nil {
		respondError(w, s.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, createSessionResponse{
		SessionID:   session.ID,
		WriteKey:    session.WriteKey,
		SessionCode: session.SessionCode,
	})
}

func (s *TrackerServer) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.sessionSvc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, s.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, toSessionResponse(session))
}

func (s *TrackerServer) handleLookupSessionByCode(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		respondError(w, s.logger, domain.ErrInvalidArgument)
		return
	}

	session, err := s.sessionSvc.GetByCode(r.Context(), code)
	if err != nil {
		respondError(w, s.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, toSessionResponse(session))
}

func (s *TrackerServer) handleSaveSession(w http.ResponseWriter, r *http.Request) {
	var req saveSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, s.logger, err)
		return
	}

	session, err := s.sessionSvc.Save(r.Context(), r.PathValue("id"), req.WriteKey, req.PlayerIDUpdating, req.Doc)
	if err != nil {
		respondError(w, s.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, toSessionResponse(session))
}

func (s *TrackerServer) handleEndSession(w http.ResponseWriter, r *http.Request) {
	var req endSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, s.logger, err)
		return
	}

	result, err := s.postSvc.EndSession(r.Context(), r.PathValue("id"), req.WriteKey, req.PostToDiscord)
	if err != nil {
		respondError(w, s.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *TrackerServer) handleSessionWS(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.sessionSvc.Get(r.Context(), id); err != nil {
		respondError(w, s.logger, err)
		return
	}

	viewer := r.URL.Query().Get("viewer")
	if viewer == "" {
		viewer = "anonymous"
	}
	s.hub.ServeWS(w, r, id, viewer)
}

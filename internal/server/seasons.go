package server

import (
	"net/http"

	"apex-tracker/internal/domain"
)

type startSeasonRequest struct {
	SeasonNumber int    `json:"season_number"`
	HostUserID   string `json:"host_user_id"`
}

type seasonResponse struct {
	ID           string `json:"id"`
	SeasonNumber int    `json:"season_number"`
	HostUserID   string `json:"host_user_id"`
	IsActive     bool   `json:"is_active"`
}

type addRPRequest struct {
	UserID    string `json:"user_id"`
	EntryDate string `json:"entry_date"`
	DeltaRP   int    `json:"delta_rp"`
}

type rpEntryResponse struct {
	EntryID   string `json:"entry_id"`
	SeasonID  string `json:"season_id"`
	UserID    string `json:"user_id"`
	EntryDate string `json:"entry_date"`
	DeltaRP   int    `json:"delta_rp"`
}

func toRPEntryResponse(e *domain.RPEntry) rpEntryResponse {
	return rpEntryResponse{
		EntryID:   e.ID,
		SeasonID:  e.SeasonID,
		UserID:    e.UserID,
		EntryDate: e.EntryDate,
		DeltaRP:   e.DeltaRP,
	}
}

func (s *TrackerServer) handleStartSeason(w http.ResponseWriter, r *http.Request) {
	var req startSeasonRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, s.logger, err)
		return
	}

	season, err := s.seasonSvc.Start(r.Context(), req.SeasonNumber, req.HostUserID)
	if err != nil {
		respondError(w, s.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, seasonResponse{
		ID:           season.ID,
		SeasonNumber: season.SeasonNumber,
		HostUserID:   season.HostUserID,
		IsActive:     season.IsActive,
	})
}

func (s *TrackerServer) handleActiveSeason(w http.ResponseWriter, r *http.Request) {
	season, err := s.seasonSvc.Active(r.Context())
	if err != nil {
		respondError(w, s.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, seasonResponse{
		ID:           season.ID,
		SeasonNumber: season.SeasonNumber,
		HostUserID:   season.HostUserID,
		IsActive:     season.IsActive,
	})
}

func (s *TrackerServer) handleChart(w http.ResponseWriter, r *http.Request) {
	series, err := s.seasonSvc.Chart(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, s.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"series": series})
}

func (s *TrackerServer) handleAddRP(w http.ResponseWriter, r *http.Request) {
	var req addRPRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, s.logger, err)
		return
	}

	entry, err := s.rpSvc.AddEntry(r.Context(), r.PathValue("id"), req.UserID, req.EntryDate, req.DeltaRP)
	if err != nil {
		respondError(w, s.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, toRPEntryResponse(entry))
}

func (s *TrackerServer) handleUndoRP(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		respondError(w, s.logger, domain.ErrInvalidArgument)
		return
	}

	if err := s.rpSvc.Undo(r.Context(), r.PathValue("id"), r.PathValue("entryId"), userID); err != nil {
		respondError(w, s.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *TrackerServer) handleLatestRP(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		respondError(w, s.logger, domain.ErrInvalidArgument)
		return
	}

	entry, err := s.rpSvc.Latest(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		respondError(w, s.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, toRPEntryResponse(entry))
}

func (s *TrackerServer) handleRPTotal(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		respondError(w, s.logger, domain.ErrInvalidArgument)
		return
	}

	total, err := s.rpSvc.Sum(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		respondError(w, s.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"user_id": userID, "total": total})
}

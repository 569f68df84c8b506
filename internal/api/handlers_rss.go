package api

import (
	"net/http"

	"github.com/naoTimesdev/showtimes-sub000/internal/httputil"
	"github.com/naoTimesdev/showtimes-sub000/internal/models"
)

func (s *Server) handleAddFeed(w http.ResponseWriter, r *http.Request) {
	serverID, ok := pathUUID(r, "id")
	if !ok {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "malformed server id")
		return
	}

	var req struct {
		URL          string                 `json:"url"`
		Integrations []models.IntegrationID `json:"integrations"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "malformed body")
		return
	}
	if req.URL == "" {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "url is required")
		return
	}

	feed, err := s.rssSvc.AddFeed(r.Context(), serverID, req.URL, req.Integrations)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, feed)
}

func (s *Server) handleRemoveFeed(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "malformed feed id")
		return
	}
	if err := s.rssSvc.RemoveFeed(id); err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, nil)
}

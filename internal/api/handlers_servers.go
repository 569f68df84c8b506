package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/naoTimesdev/showtimes-sub000/internal/httputil"
	"github.com/naoTimesdev/showtimes-sub000/internal/models"
	"github.com/naoTimesdev/showtimes-sub000/internal/servers"
)

func pathUUID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	return id, err == nil
}

func (s *Server) handleListServers(w http.ResponseWriter, r *http.Request) {
	all, err := s.serverSvc.All(r.Context())
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, all)
}

func (s *Server) handleCreateServer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name         string                 `json:"name"`
		Integrations []models.IntegrationID `json:"integrations"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "malformed body")
		return
	}

	owners := []uuid.UUID{currentUser(r).ID}
	server, err := s.serverSvc.Create(r.Context(), req.Name, owners, req.Integrations)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, server)
}

func (s *Server) handleGetServer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "malformed server id")
		return
	}
	server, err := s.serverSvc.Get(r.Context(), id)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, server)
}

func (s *Server) handleUpdateServer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "malformed server id")
		return
	}

	var req struct {
		Name         *string                `json:"name"`
		Owners       []uuid.UUID            `json:"owners"`
		Integrations []models.IntegrationID `json:"integrations"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "malformed body")
		return
	}

	server, err := s.serverSvc.Update(r.Context(), id, servers.UpdateInput{
		Name:         req.Name,
		Owners:       req.Owners,
		Integrations: req.Integrations,
	})
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, server)
}

func (s *Server) handleDeleteServer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "malformed server id")
		return
	}
	if err := s.serverSvc.Delete(r.Context(), id); err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, nil)
}

func (s *Server) handleGrantPremium(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Target uuid.UUID `json:"target"`
		Kind   string    `json:"kind"`
		Days   int       `json:"days"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "malformed body")
		return
	}

	duration := time.Duration(req.Days) * 24 * time.Hour
	premium, err := s.serverSvc.GrantPremium(r.Context(), req.Target, models.PremiumKind(req.Kind), duration)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, premium)
}

func queryInt(r *http.Request, name string, fallback int) int {
	if raw := r.URL.Query().Get(name); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			return v
		}
	}
	return fallback
}

func (s *Server) handleSearchProjects(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	serverID := r.URL.Query().Get("server")
	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", 20)

	results, err := s.index.SearchProjects(r.Context(), query, serverID, offset, limit)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, results)
}

func (s *Server) handleSearchServers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", 20)

	results, err := s.index.SearchServers(r.Context(), query, offset, limit)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, results)
}

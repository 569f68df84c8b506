package api

import (
	"net/http"

	"github.com/naoTimesdev/showtimes-sub000/internal/httputil"
	"github.com/naoTimesdev/showtimes-sub000/internal/projects"
)

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	serverID, ok := pathUUID(r, "id")
	if !ok {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "malformed server id")
		return
	}
	list, err := s.projectSvc.ListByServer(r.Context(), serverID)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	serverID, ok := pathUUID(r, "id")
	if !ok {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "malformed server id")
		return
	}

	var req struct {
		Kind      string `json:"kind"`
		AnilistID int    `json:"anilist_id"`
		TMDBID    string `json:"tmdb_id"`
		TMDBMovie bool   `json:"tmdb_movie"`
		Title     string `json:"title"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "malformed body")
		return
	}

	project, err := s.projectSvc.Create(r.Context(), projects.CreateInput{
		ServerID:  serverID,
		Kind:      projects.Kind(req.Kind),
		AnilistID: req.AnilistID,
		TMDBID:    req.TMDBID,
		TMDBMovie: req.TMDBMovie,
		Title:     req.Title,
	})
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, project)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "malformed project id")
		return
	}
	project, err := s.projectSvc.Get(r.Context(), id)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, project)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "malformed project id")
		return
	}
	if err := s.projectSvc.Delete(r.Context(), id); err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, nil)
}

func (s *Server) handleUpdateEpisodes(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "malformed project id")
		return
	}

	var req struct {
		Updates []struct {
			Episode     int             `json:"episode"`
			Roles       map[string]bool `json:"roles"`
			IsReleased  *bool           `json:"is_released"`
			DelayReason *string         `json:"delay_reason"`
		} `json:"updates"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "malformed body")
		return
	}

	updates := make([]projects.EpisodeUpdate, len(req.Updates))
	for i, u := range req.Updates {
		updates[i] = projects.EpisodeUpdate{
			Episode:     u.Episode,
			Roles:       u.Roles,
			IsReleased:  u.IsReleased,
			DelayReason: u.DelayReason,
		}
	}

	project, err := s.projectSvc.UpdateEpisodes(r.Context(), id, updates)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, project)
}

func (s *Server) handleAddEpisodes(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "malformed project id")
		return
	}
	var req struct {
		Episodes []int `json:"episodes"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "malformed body")
		return
	}
	project, err := s.projectSvc.AddEpisodes(r.Context(), id, req.Episodes)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, project)
}

func (s *Server) handleRemoveEpisodes(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "malformed project id")
		return
	}
	var req struct {
		Episodes []int `json:"episodes"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "malformed body")
		return
	}
	project, err := s.projectSvc.RemoveEpisodes(r.Context(), id, req.Episodes)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, project)
}

func (s *Server) handleAssignStaff(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "malformed project id")
		return
	}

	var req struct {
		Role            string `json:"role"`
		PersonID        string `json:"person_id"`
		PersonName      string `json:"person_name"`
		IntegrationType string `json:"integration_type"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "malformed body")
		return
	}
	if req.IntegrationType == "" {
		req.IntegrationType = "DISCORD_USER"
	}

	project, err := s.projectSvc.AssignStaff(r.Context(), id, req.Role, req.PersonID, req.PersonName, req.IntegrationType)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, project)
}

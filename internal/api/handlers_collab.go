package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/naoTimesdev/showtimes-sub000/internal/httputil"
)

func (s *Server) handleCollabInvite(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SourceServer uuid.UUID `json:"source_server"`
		TargetServer uuid.UUID `json:"target_server"`
		ProjectID    uuid.UUID `json:"project_id"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "malformed body")
		return
	}

	pending, err := s.collabSvc.Invite(r.Context(), req.SourceServer, req.TargetServer, req.ProjectID)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, pending)
}

func (s *Server) handleCollabAccept(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "malformed body")
		return
	}

	link, err := s.collabSvc.Accept(r.Context(), req.Code)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, link)
}

func (s *Server) handleCollabReject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "malformed body")
		return
	}

	if err := s.collabSvc.Reject(r.Context(), req.Code); err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, nil)
}

func (s *Server) handleCollabCancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "malformed invite id")
		return
	}
	if err := s.collabSvc.Cancel(r.Context(), id); err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, nil)
}

func (s *Server) handleCollabPending(w http.ResponseWriter, r *http.Request) {
	serverID, ok := pathUUID(r, "id")
	if !ok {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "malformed server id")
		return
	}
	pending, err := s.collabSvc.ListPending(serverID)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, pending)
}

func (s *Server) handleCollabLeave(w http.ResponseWriter, r *http.Request) {
	serverID, ok := pathUUID(r, "id")
	if !ok {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "malformed server id")
		return
	}
	projectID, err := uuid.Parse(r.PathValue("project"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "malformed project id")
		return
	}
	if err := s.collabSvc.RemoveMember(r.Context(), serverID, projectID); err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, nil)
}

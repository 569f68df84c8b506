package api

import (
	"net/http"

	"github.com/naoTimesdev/showtimes-sub000/internal/httputil"
	"github.com/naoTimesdev/showtimes-sub000/internal/models"
)

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	target := r.PathValue("target")
	if target == "" {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "target is required")
		return
	}
	unreadOnly := r.URL.Query().Get("unread") == "true"

	notifs, err := s.notifySvc.ListFor(target, unreadOnly)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, notifs)
}

func (s *Server) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "malformed notification id")
		return
	}
	if err := s.notifySvc.MarkRead(id); err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, nil)
}

func (s *Server) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Targets []string `json:"targets"`
		Message string   `json:"message"`
		Link    *string  `json:"link"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "malformed body")
		return
	}
	if len(req.Targets) == 0 || req.Message == "" {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "targets and message are required")
		return
	}

	sent := s.notifySvc.Broadcast(r.Context(), req.Targets, models.NotifyBroadcastData{
		Message: req.Message,
		Link:    req.Link,
	})
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"delivered": len(sent),
		"requested": len(req.Targets),
	})
}

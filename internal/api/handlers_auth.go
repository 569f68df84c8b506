package api

import (
	"net/http"
	"strings"

	"github.com/naoTimesdev/showtimes-sub000/internal/httputil"
	"github.com/naoTimesdev/showtimes-sub000/internal/models"
)

// userView strips credentials before an account crosses the wire.
type userView struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Privilege string `json:"privilege"`
	Kind      string `json:"kind"`
	Name      string `json:"name,omitempty"`
	APIKey    string `json:"api_key,omitempty"`
}

func viewOf(user *models.User, includeKey bool) userView {
	view := userView{
		ID:        user.ID.String(),
		Username:  user.Username,
		Privilege: string(user.Privilege),
		Kind:      string(user.Kind),
		Name:      user.Name,
	}
	if includeKey {
		view.APIKey = user.APIKey
	}
	return view
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "malformed body")
		return
	}

	user, err := s.userSvc.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"user":          viewOf(user, false),
		"approval_code": user.ApprovalCode,
	})
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Code     string `json:"code"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "malformed body")
		return
	}

	user, err := s.userSvc.Approve(r.Context(), req.Username, req.Code)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, viewOf(user, true))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "malformed body")
		return
	}

	user, token, err := s.userSvc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"user":  viewOf(user, false),
		"token": token,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if err := s.userSvc.Logout(r.Context(), token); err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, nil)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, viewOf(currentUser(r), true))
}

func (s *Server) handleRotateAPIKey(w http.ResponseWriter, r *http.Request) {
	user, err := s.userSvc.RotateAPIKey(r.Context(), currentUser(r).ID)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, viewOf(user, true))
}

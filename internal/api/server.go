package api

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/naoTimesdev/showtimes-sub000/internal/collab"
	"github.com/naoTimesdev/showtimes-sub000/internal/config"
	"github.com/naoTimesdev/showtimes-sub000/internal/httputil"
	"github.com/naoTimesdev/showtimes-sub000/internal/jobs"
	"github.com/naoTimesdev/showtimes-sub000/internal/models"
	"github.com/naoTimesdev/showtimes-sub000/internal/notifications"
	"github.com/naoTimesdev/showtimes-sub000/internal/projects"
	"github.com/naoTimesdev/showtimes-sub000/internal/pubsub"
	"github.com/naoTimesdev/showtimes-sub000/internal/rss"
	"github.com/naoTimesdev/showtimes-sub000/internal/search"
	"github.com/naoTimesdev/showtimes-sub000/internal/servers"
	"github.com/naoTimesdev/showtimes-sub000/internal/storage"
	"github.com/naoTimesdev/showtimes-sub000/internal/users"
	"github.com/naoTimesdev/showtimes-sub000/internal/version"
)

type contextKey string

const userContextKey contextKey = "user"

type Server struct {
	config     *config.Config
	userSvc    *users.Service
	serverSvc  *servers.Service
	projectSvc *projects.Service
	collabSvc  *collab.Service
	notifySvc  *notifications.Service
	rssSvc     *rss.Service
	index      *search.Service
	store      storage.Storage
	queue      *jobs.Queue
	hub        *pubsub.Hub

	router *http.ServeMux
	http   *http.Server
}

func NewServer(
	cfg *config.Config,
	userSvc *users.Service,
	serverSvc *servers.Service,
	projectSvc *projects.Service,
	collabSvc *collab.Service,
	notifySvc *notifications.Service,
	rssSvc *rss.Service,
	index *search.Service,
	store storage.Storage,
	queue *jobs.Queue,
	hub *pubsub.Hub,
) *Server {
	s := &Server{
		config:     cfg,
		userSvc:    userSvc,
		serverSvc:  serverSvc,
		projectSvc: projectSvc,
		collabSvc:  collabSvc,
		notifySvc:  notifySvc,
		rssSvc:     rssSvc,
		index:      index,
		store:      store,
		queue:      queue,
		hub:        hub,
		router:     http.NewServeMux(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Public
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("POST /api/v1/auth/register", s.handleRegister)
	s.router.HandleFunc("POST /api/v1/auth/approve", s.handleApprove)
	s.router.HandleFunc("POST /api/v1/auth/login", s.handleLogin)

	// Stored images (posters, avatars)
	s.router.HandleFunc("GET /images/{type}/{key}/{parent}/{filename}", s.handleImage)

	// Session
	s.router.HandleFunc("POST /api/v1/auth/logout", s.requireAuth(s.handleLogout))
	s.router.HandleFunc("GET /api/v1/profile", s.requireAuth(s.handleProfile))
	s.router.HandleFunc("POST /api/v1/profile/api-key", s.requireAuth(s.handleRotateAPIKey))

	// Servers
	s.router.HandleFunc("GET /api/v1/servers", s.requireAuth(s.handleListServers))
	s.router.HandleFunc("POST /api/v1/servers", s.requireAuth(s.handleCreateServer))
	s.router.HandleFunc("GET /api/v1/servers/{id}", s.requireAuth(s.handleGetServer))
	s.router.HandleFunc("PUT /api/v1/servers/{id}", s.requireAuth(s.handleUpdateServer))
	s.router.HandleFunc("DELETE /api/v1/servers/{id}", s.requireAuth(s.handleDeleteServer))

	// Projects
	s.router.HandleFunc("GET /api/v1/servers/{id}/projects", s.requireAuth(s.handleListProjects))
	s.router.HandleFunc("POST /api/v1/servers/{id}/projects", s.requireAuth(s.handleCreateProject))
	s.router.HandleFunc("GET /api/v1/projects/{id}", s.requireAuth(s.handleGetProject))
	s.router.HandleFunc("DELETE /api/v1/projects/{id}", s.requireAuth(s.handleDeleteProject))
	s.router.HandleFunc("PUT /api/v1/projects/{id}/episodes", s.requireAuth(s.handleUpdateEpisodes))
	s.router.HandleFunc("POST /api/v1/projects/{id}/episodes", s.requireAuth(s.handleAddEpisodes))
	s.router.HandleFunc("DELETE /api/v1/projects/{id}/episodes", s.requireAuth(s.handleRemoveEpisodes))
	s.router.HandleFunc("PUT /api/v1/projects/{id}/staff", s.requireAuth(s.handleAssignStaff))

	// Collaboration
	s.router.HandleFunc("POST /api/v1/collab/invite", s.requireAuth(s.handleCollabInvite))
	s.router.HandleFunc("POST /api/v1/collab/accept", s.requireAuth(s.handleCollabAccept))
	s.router.HandleFunc("POST /api/v1/collab/reject", s.requireAuth(s.handleCollabReject))
	s.router.HandleFunc("DELETE /api/v1/collab/pending/{id}", s.requireAuth(s.handleCollabCancel))
	s.router.HandleFunc("GET /api/v1/servers/{id}/collab/pending", s.requireAuth(s.handleCollabPending))
	s.router.HandleFunc("DELETE /api/v1/servers/{id}/collab/{project}", s.requireAuth(s.handleCollabLeave))

	// RSS feeds
	s.router.HandleFunc("POST /api/v1/servers/{id}/rss", s.requireAuth(s.handleAddFeed))
	s.router.HandleFunc("DELETE /api/v1/rss/{id}", s.requireAuth(s.handleRemoveFeed))

	// Search
	s.router.HandleFunc("GET /api/v1/search/projects", s.requireAuth(s.handleSearchProjects))
	s.router.HandleFunc("GET /api/v1/search/servers", s.requireAuth(s.handleSearchServers))

	// Notifications
	s.router.HandleFunc("GET /api/v1/notifications/{target}", s.requireAuth(s.handleListNotifications))
	s.router.HandleFunc("POST /api/v1/notifications/{id}/read", s.requireAuth(s.handleMarkNotificationRead))
	s.router.HandleFunc("POST /api/v1/admin/broadcast", s.requireAdmin(s.handleBroadcast))

	// Admin maintenance
	s.router.HandleFunc("POST /api/v1/admin/reindex", s.requireAdmin(s.handleReindex))
	s.router.HandleFunc("POST /api/v1/admin/premium", s.requireAdmin(s.handleGrantPremium))

	// WebSocket
	s.router.HandleFunc("GET /api/v1/ws", s.handleWebSocket)
}

// Start blocks serving HTTP until Shutdown or failure.
func (s *Server) Start() error {
	s.http = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	log.Printf("[api] listening on %s", s.http.Addr)
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// requireAuth resolves the caller from a bearer token or API key and
// stashes the account on the request context.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.authenticate(r)
		if err != nil {
			httputil.WriteServiceError(w, err)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), userContextKey, user)))
	}
}

func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.authenticate(r)
		if err != nil {
			httputil.WriteServiceError(w, err)
			return
		}
		if user.Privilege != models.PrivilegeAdmin {
			httputil.WriteError(w, http.StatusForbidden, "FORBIDDEN", "administrator privilege required")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), userContextKey, user)))
	}
}

func (s *Server) authenticate(r *http.Request) (*models.User, error) {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return s.userSvc.VerifyAPIKey(r.Context(), key)
	}
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	return s.userSvc.VerifyToken(r.Context(), token)
}

func currentUser(r *http.Request) *models.User {
	user, _ := r.Context().Value(userContextKey).(*models.User)
	return user
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": version.Version,
	})
}

// handleImage streams a stored object (poster, avatar) to the client.
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	kind := r.PathValue("type")
	key := r.PathValue("key")
	parent := r.PathValue("parent")
	filename := r.PathValue("filename")

	info, err := s.store.Stat(r.Context(), key, parent, filename, kind)
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "IMAGE_NOT_FOUND", "no such image")
		return
	}
	reader, err := s.store.Download(r.Context(), key, parent, filename, kind)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", info.ContentType)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if _, err := io.Copy(w, reader); err != nil {
		log.Printf("[api] streaming image %s failed: %v", filename, err)
	}
}

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	id, err := s.queue.EnqueueUnique(jobs.TaskReindexSearch, struct{}{}, "search-reindex")
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"task_id": id})
}

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/naoTimesdev/showtimes-sub000/internal/anilist"
	"github.com/naoTimesdev/showtimes-sub000/internal/api"
	"github.com/naoTimesdev/showtimes-sub000/internal/collab"
	"github.com/naoTimesdev/showtimes-sub000/internal/config"
	"github.com/naoTimesdev/showtimes-sub000/internal/db"
	"github.com/naoTimesdev/showtimes-sub000/internal/jobs"
	"github.com/naoTimesdev/showtimes-sub000/internal/notifications"
	"github.com/naoTimesdev/showtimes-sub000/internal/projects"
	"github.com/naoTimesdev/showtimes-sub000/internal/pubsub"
	"github.com/naoTimesdev/showtimes-sub000/internal/repository"
	"github.com/naoTimesdev/showtimes-sub000/internal/rss"
	"github.com/naoTimesdev/showtimes-sub000/internal/scheduler"
	"github.com/naoTimesdev/showtimes-sub000/internal/search"
	"github.com/naoTimesdev/showtimes-sub000/internal/servers"
	"github.com/naoTimesdev/showtimes-sub000/internal/storage"
	"github.com/naoTimesdev/showtimes-sub000/internal/tmdb"
	"github.com/naoTimesdev/showtimes-sub000/internal/users"
	"github.com/naoTimesdev/showtimes-sub000/internal/version"
)

func main() {
	log.Printf("Showtimes %s starting...", version.Version)

	cfg := config.Load()

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	index, err := search.New(cfg.SearchURL, cfg.SearchUsername, cfg.SearchPassword)
	if err != nil {
		log.Fatalf("search connection failed: %v", err)
	}
	if err := index.EnsureIndexes(context.Background()); err != nil {
		log.Fatalf("search index setup failed: %v", err)
	}

	store, err := storage.New(cfg)
	if err != nil {
		log.Fatalf("storage setup failed: %v", err)
	}

	hub := pubsub.NewHub(rdb)

	userRepo := repository.NewUserRepository(database)
	serverRepo := repository.NewServerRepository(database)
	projectRepo := repository.NewProjectRepository(database)
	externalRepo := repository.NewExternalRepository(database)
	actorRepo := repository.NewActorRepository(database)
	collabRepo := repository.NewCollabRepository(database)
	notifRepo := repository.NewNotificationRepository(database)
	rssRepo := repository.NewRSSRepository(database)
	premiumRepo := repository.NewPremiumRepository(database)

	anilistClient := anilist.NewClient(cfg.AnilistRateLimit)
	tmdbClient := tmdb.NewClient(cfg.TMDBAPIKey)

	userSvc := users.NewService(userRepo, rdb, cfg.JWTSecret, cfg.TokenExpiry)
	notifySvc := notifications.NewService(notifRepo, hub)
	collabSvc := collab.NewService(collabRepo, projectRepo, serverRepo, notifySvc, index)
	projectSvc := projects.NewService(
		projectRepo, serverRepo, externalRepo, actorRepo,
		collabSvc, index, store, anilistClient, tmdbClient, hub,
	)
	serverSvc := servers.NewService(serverRepo, projectSvc, premiumRepo, index)
	rssSvc := rss.NewService(rssRepo, premiumRepo, hub, cfg)

	queue := jobs.NewQueue(cfg.RedisAddr)
	queue.RegisterHandler(jobs.TaskReindexSearch, jobs.NewReindexHandler(serverRepo, projectRepo, index))
	queue.RegisterHandler(jobs.TaskRefreshExternal, jobs.NewRefreshExternalHandler(externalRepo, projectRepo, anilistClient))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := queue.Start(ctx); err != nil {
		log.Fatalf("job worker failed to start: %v", err)
	}

	if err := rssSvc.RefreshFeeds(ctx); err != nil {
		log.Printf("warning: initial feed refresh failed: %v", err)
	}
	rssSvc.Start(ctx)

	sched := scheduler.New(rssSvc, premiumRepo, externalRepo, queue)
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("scheduler failed to start: %v", err)
	}

	srv := api.NewServer(cfg, userSvc, serverSvc, projectSvc, collabSvc, notifySvc, rssSvc, index, store, queue, hub)

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
	cancel()
	rssSvc.Stop()
	sched.Stop()
	queue.Stop()
	hub.Close()
}

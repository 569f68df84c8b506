// Command showtimes-migrate imports a legacy JSON dump into the database.
// Point it at a directory holding showtimesdatas.json plus the optional
// admin and login dumps, and it performs the whole import in one
// transaction.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/naoTimesdev/showtimes-sub000/internal/config"
	"github.com/naoTimesdev/showtimes-sub000/internal/db"
	"github.com/naoTimesdev/showtimes-sub000/internal/migrate"
	"github.com/naoTimesdev/showtimes-sub000/internal/storage"
)

func main() {
	dumpDir := flag.String("dump", ".", "directory containing the legacy JSON dump files")
	flag.Parse()

	cfg := config.Load()

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	store, err := storage.New(cfg)
	if err != nil {
		log.Fatalf("storage setup failed: %v", err)
	}

	runner := migrate.NewRunner(database, store)
	if err := runner.Run(context.Background(), *dumpDir); err != nil {
		log.Fatalf("import failed: %v", err)
	}
	log.Println("import complete")
}

// Command sweep runs a one-off retention sweep against the configured
// store and prints what it removed. Intended for operators; the server
// runs the same sweep on its own schedule.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/raisket/audittrail/internal/config"
	"github.com/raisket/audittrail/internal/pkg/logger"
	"github.com/raisket/audittrail/internal/repository"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "report expired record count without deleting")
	flag.Parse()

	logger.Init("info")
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := repository.NewDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	repo := repository.NewPostgresEventRepo(db)
	now := time.Now().UTC()

	if *dryRun {
		count, err := repo.CountExpired(ctx, now)
		if err != nil {
			log.Fatalf("Count failed: %v", err)
		}
		fmt.Printf("%d expired records would be deleted\n", count)
		return
	}

	deleted, err := repo.DeleteExpired(ctx, now)
	if err != nil {
		log.Fatalf("Sweep failed: %v", err)
	}
	fmt.Printf("deleted %d expired records\n", deleted)
}

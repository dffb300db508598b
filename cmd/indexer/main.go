package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/connectingdocs/treatment-engine/internal/adapters/database"
	"github.com/connectingdocs/treatment-engine/internal/adapters/search"
	"github.com/connectingdocs/treatment-engine/internal/infrastructure/clients/postgres"
	"github.com/connectingdocs/treatment-engine/internal/infrastructure/clients/typesense"
	"github.com/connectingdocs/treatment-engine/pkg/config"
)

func main() {
	var reset bool
	var intervalFlag string
	flag.BoolVar(&reset, "reset", false, "delete existing Typesense collection before reindexing")
	flag.StringVar(&intervalFlag, "interval", "", "repeat interval for reindexing (e.g. 6h, 30m)")
	flag.Parse()

	intervalValue := strings.TrimSpace(intervalFlag)
	if intervalValue == "" {
		intervalValue = strings.TrimSpace(os.Getenv("REINDEX_INTERVAL"))
	}

	var interval time.Duration
	var err error
	if intervalValue != "" {
		interval, err = time.ParseDuration(intervalValue)
		if err != nil {
			log.Fatalf("Invalid interval %q: %v", intervalValue, err)
		}
		if interval <= 0 {
			log.Fatalf("Interval must be greater than zero")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for {
		if err := indexOnce(ctx, reset); err != nil {
			log.Printf("Reindex failed: %v", err)
		}

		if interval <= 0 {
			break
		}

		reset = false
		log.Printf("Reindex complete. Next run in %s.", interval)

		select {
		case <-ctx.Done():
			log.Println("Reindexer shutting down")
			return
		case <-time.After(interval):
		}
	}
}

func indexOnce(ctx context.Context, reset bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		return err
	}
	defer pgClient.Close()

	catalogRepo := database.NewCatalogAdapter(pgClient)

	tsClient, err := typesense.NewClient(&cfg.Typesense)
	if err != nil {
		return err
	}

	if reset || os.Getenv("RESET_TYPESENSE") == "true" {
		log.Println("Reset requested, deleting provider solutions collection")
		_, err := tsClient.Client().Collection(typesense.SolutionsCollection).Delete(ctx)
		if err != nil {
			log.Printf("Warning: failed to delete collection: %v", err)
		}
	}

	adapter := search.NewTypesenseAdapter(tsClient)
	if err := adapter.InitSchema(ctx); err != nil {
		return err
	}

	solutions, err := catalogRepo.ListSolutions(ctx)
	if err != nil {
		return err
	}

	log.Printf("Indexing %d provider solutions...", len(solutions))

	indexed := 0
	for _, solution := range solutions {
		if solution == nil {
			continue
		}

		if err := adapter.Index(ctx, solution); err != nil {
			log.Printf("Failed to index solution %s: %v", solution.ID, err)
			continue
		}
		indexed++
		log.Printf("Indexed %s (%s)", solution.Title, solution.ProviderName)
	}

	log.Printf("Indexing complete: %d/%d solutions indexed.", indexed, len(solutions))
	return nil
}

// Command import loads a bank CSV export into a user's ledger without going
// through the HTTP API.
//
//	import -email user@example.com -file march.csv
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"smartspend/internal/archive"
	"smartspend/internal/config"
	"smartspend/internal/database"
	"smartspend/internal/ingest"
	"smartspend/internal/logger"
	"smartspend/internal/repository"
	"smartspend/internal/services"
)

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Import error: %v", err)
	}
}

func run() error {
	email := flag.String("email", "", "email of the user who owns the transactions")
	path := flag.String("file", "", "path to the CSV file")
	flag.Parse()
	if *email == "" || *path == "" {
		return fmt.Errorf("usage: import -email <address> -file <path.csv>")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	dbManager, err := database.NewManager(database.NewConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer dbManager.Close()

	user, err := services.NewUserService(dbManager.DB()).GetUserByEmail(*email)
	if err != nil {
		return fmt.Errorf("failed to find user %s: %w", *email, err)
	}

	data, err := os.ReadFile(*path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", *path, err)
	}

	archiver, closeArchive, err := archive.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create upload archive: %w", err)
	}
	defer closeArchive()

	importer := services.NewImportService(services.ImportDeps{
		Store:    repository.NewLedgerStore(dbManager.DB()),
		Ingestor: ingest.NewIngestor(cfg.MaxUploadBytes),
		Archiver: archiver,
		Workers:  cfg.ImportWorkers,
	})

	outcome, err := importer.ImportCSV(ctx, user.ID, filepath.Base(*path), data)
	if err != nil {
		return err
	}

	fmt.Printf("Imported %d of %d transactions\n", outcome.SuccessCount, outcome.TotalRowsParsed)
	for _, r := range outcome.Rejections {
		fmt.Printf("  skipped line %d: %s (%s)\n", r.Line, r.Detail, r.Reason)
	}
	for _, f := range outcome.Failures {
		fmt.Printf("  failed row %d %q: %s\n", f.Row, f.Draft.Description, f.Reason)
	}
	for _, u := range outcome.UnmatchedCategories {
		if u.Suggestion != nil {
			fmt.Printf("  no %s category %q (%d rows), did you mean %q?\n", u.Kind, u.Label, u.Rows, *u.Suggestion)
			continue
		}
		fmt.Printf("  no %s category %q (%d rows)\n", u.Kind, u.Label, u.Rows)
	}
	if outcome.StorageLocation != "" {
		fmt.Printf("Archived upload at %s\n", outcome.StorageLocation)
	}
	return nil
}

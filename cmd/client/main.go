package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/dmitrijs2005/notekeeper/internal/client/cli"
	"github.com/dmitrijs2005/notekeeper/internal/client/client"
	"github.com/dmitrijs2005/notekeeper/internal/client/config"
	"github.com/dmitrijs2005/notekeeper/internal/client/events"
	"github.com/dmitrijs2005/notekeeper/internal/client/services"
	"github.com/dmitrijs2005/notekeeper/internal/client/syncer"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("%v", err)
	}

	logger := logging.NewFileLogger(cfg.LogFile, false)
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	reset, err := run(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "client stopped", "error", err)
		log.Fatalf("%v", err)
	}

	if reset {
		if err := client.ResetLocalData(cfg.DatabasePath, cfg.AttachmentsDir, true); err != nil {
			log.Fatalf("%v", err)
		}
		fmt.Println("Local data removed")
	}
}

// run wires the client and blocks in the REPL. It reports whether the user
// asked for a local data reset, which must happen after the database is
// closed.
func run(ctx context.Context, cfg *config.Config, logger logging.Logger) (bool, error) {
	db, err := client.InitDatabase(ctx, cfg.DatabasePath)
	if err != nil {
		return false, fmt.Errorf("error initializing database: %w", err)
	}
	defer db.Close()

	repos := client.NewRepositories(db)
	api := client.NewHTTPClient(cfg.APIHost)

	bus := events.NewBus(logger)
	defer bus.Close()

	auth := services.NewAuthService(api, db, logger)
	sessions := services.NewSessionManager(cfg.SessionTTL)
	attachments := services.NewAttachmentService(repos.Attachments, cfg.AttachmentsDir, auth, auth, api, api.HTTP(),
		cfg.DownloadConcurrency, logger.With("component", "attachments"))
	reconciler := services.NewRelationReconciler(repos.Relations, repos.Attachments, repos.Notes, logger)

	content := services.NewContentService(services.ContentDeps{
		Repo:        repos.Content,
		History:     repos.History,
		Notes:       repos.Notes,
		Attachments: attachments,
		Reconciler:  reconciler,
		Sessions:    sessions,
		Events:      bus,
		Policy:      services.MergePolicy{Strategy: cfg.MergeStrategy, TieBreak: cfg.TieBreak},
		Log:         logger.With("component", "content"),
	})
	notes := services.NewNoteService(repos.Notes, content)
	monographs := services.NewMonographService(api, auth, repos.Notes, content, repos.Metadata, logger.With("component", "monographs"))

	transport := syncer.NewHTTPTransport(api, auth, auth, repos.Content, repos.Metadata, content, attachments,
		logger.With("component", "transport"))
	reporter := syncer.ReporterFunc(func(_ context.Context, err error) {
		fmt.Fprintf(os.Stderr, "\nsync error: %v\n", err)
	})
	orchestrator := syncer.NewOrchestrator(transport, auth, auth, reporter, syncer.NewBackgroundRunner(ctx),
		logger.With("component", "sync"), syncer.Options{Debounce: cfg.SyncDebounce, Disabled: cfg.SyncDisabled})
	defer orchestrator.Close()

	app := cli.NewApp(cli.Deps{
		Auth:                auth,
		Notes:               notes,
		Content:             content,
		History:             services.NewHistoryService(repos.History),
		Sessions:            sessions,
		Monographs:          monographs,
		Sync:                orchestrator,
		Events:              bus,
		Log:                 logger,
		OnlineCheckInterval: cfg.OnlineCheckInterval,
	})
	app.Root(ctx)

	return app.ResetRequested(), nil
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"cloud.google.com/go/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vgassen/lexharvest/internal/api"
	"github.com/vgassen/lexharvest/internal/archive"
	archivegcs "github.com/vgassen/lexharvest/internal/archive/gcs"
	archivelocal "github.com/vgassen/lexharvest/internal/archive/local"
	archivemem "github.com/vgassen/lexharvest/internal/archive/memory"
	checkfile "github.com/vgassen/lexharvest/internal/checkpoint/file"
	checkmem "github.com/vgassen/lexharvest/internal/checkpoint/memory"
	checkpg "github.com/vgassen/lexharvest/internal/checkpoint/postgres"
	"github.com/vgassen/lexharvest/internal/clock/system"
	"github.com/vgassen/lexharvest/internal/config"
	"github.com/vgassen/lexharvest/internal/extract"
	"github.com/vgassen/lexharvest/internal/fetch"
	"github.com/vgassen/lexharvest/internal/harvest"
	"github.com/vgassen/lexharvest/internal/id/uuid"
	"github.com/vgassen/lexharvest/internal/logging"
	"github.com/vgassen/lexharvest/internal/notify"
	notifymem "github.com/vgassen/lexharvest/internal/notify/memory"
	notifypubsub "github.com/vgassen/lexharvest/internal/notify/pubsub"
	sinkhub "github.com/vgassen/lexharvest/internal/sink/hub"
	sinkmem "github.com/vgassen/lexharvest/internal/sink/memory"
	"github.com/vgassen/lexharvest/internal/sru"
)

// newHarvestCmd creates the 'run' subcommand that executes one full
// harvest pass over the catalog.
func newHarvestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Runs one harvest pass over the configured catalog",
		Long: `Walks the catalog from the first page, resolves every identifier
not present in the checkpoint, and delivers accepted records in batches
to the dataset sink. The checkpoint advances only after a batch has been
accepted downstream.`,
		RunE: runHarvestCommand,
	}
}

func runHarvestCommand(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runID, err := uuid.NewGenerator().NewID()
	if err != nil {
		return fmt.Errorf("generate run id: %w", err)
	}

	pipeline, cleanup, err := buildPipeline(ctx, cfg, runID, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	if cfg.Server.Addr != "" {
		server := api.NewServer(pipeline, logger)
		go func() {
			if err := server.Serve(ctx, cfg.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("ops server stopped", zap.Error(err))
			}
		}()
		logger.Info("ops server listening", zap.String("addr", cfg.Server.Addr))
	}

	report, err := pipeline.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("harvest run %s: %w", report.RunID, err)
	}
	return nil
}

// buildPipeline assembles the collaborators selected by configuration.
func buildPipeline(
	ctx context.Context,
	cfg config.Config,
	runID string,
	logger *zap.Logger,
) (*harvest.Pipeline, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	source := sru.NewClient(sru.Config{
		Endpoint:     cfg.SRU.Endpoint,
		Connection:   cfg.SRU.Connection,
		Version:      cfg.SRU.Version,
		Query:        cfg.SRU.Query,
		HTTPAccept:   cfg.SRU.HTTPAccept,
		UserAgent:    cfg.Content.UserAgent,
		PageSize:     cfg.SRU.PageSize,
		RecordPath:   cfg.SRU.RecordPath,
		TotalPath:    cfg.SRU.TotalPath,
		RequestDelay: cfg.SRU.RequestDelay,
		PageTimeout:  cfg.SRU.PageTimeout,
	}, sru.NewXPathExtractor(cfg.SRU.IdentifierPath), logger)

	fetcher, err := fetch.NewCollyFetcher(fetch.Config{
		URLTemplate:   cfg.Content.URLTemplate,
		UserAgent:     cfg.Content.UserAgent,
		Timeout:       cfg.Harvest.FetchTimeout,
		RetryAttempts: cfg.Harvest.RetryAttempts,
		RetryDelay:    cfg.Harvest.RetryDelay,
	}, logger)
	if err != nil {
		return nil, cleanup, fmt.Errorf("init fetcher: %w", err)
	}

	check, err := buildCheckpoint(ctx, cfg, logger, &closers)
	if err != nil {
		return nil, cleanup, err
	}
	sink, err := buildSink(cfg, logger)
	if err != nil {
		return nil, cleanup, err
	}
	arch, err := buildArchive(ctx, cfg)
	if err != nil {
		return nil, cleanup, err
	}
	notifier, err := buildNotifier(ctx, cfg, &closers)
	if err != nil {
		return nil, cleanup, err
	}

	pipeCfg := harvest.Config{
		BatchSize:        cfg.Harvest.BatchSize,
		MinContentLength: cfg.Harvest.MinContentLength,
		FetchDelay:       cfg.Harvest.FetchDelay,
		FetchConcurrency: cfg.Harvest.FetchConcurrency,
		SkipPolicy:       harvest.SkipPolicy(cfg.Harvest.SkipPolicy),
		FailurePolicy:    harvest.FailurePolicy(cfg.Harvest.FailurePolicy),
		SourceLabel:      cfg.Harvest.SourceLabel,
		ArchiveEnabled:   cfg.Archive.Backend != "noop",
		ArchivePrefix:    cfg.Archive.Prefix,
	}
	if err := pipeCfg.Validate(); err != nil {
		return nil, cleanup, err
	}

	pipeline := harvest.NewPipeline(
		pipeCfg,
		source,
		fetcher,
		extract.NewHTMLExtractor(),
		check,
		sink,
		arch,
		notifier,
		harvest.TimerPauser{},
		system.New(),
		runID,
		logger,
	)
	return pipeline, cleanup, nil
}

func buildCheckpoint(
	ctx context.Context,
	cfg config.Config,
	logger *zap.Logger,
	closers *[]func(),
) (harvest.Checkpoint, error) {
	switch cfg.Checkpoint.Backend {
	case "file":
		store, err := checkfile.New(cfg.Checkpoint.Path, logger)
		if err != nil {
			return nil, fmt.Errorf("init file checkpoint: %w", err)
		}
		return store, nil
	case "memory":
		return checkmem.New(), nil
	case "postgres":
		store, err := checkpg.New(ctx, checkpg.Config{
			DSN:   cfg.Checkpoint.DSN,
			Table: cfg.Checkpoint.Table,
		})
		if err != nil {
			return nil, fmt.Errorf("init postgres checkpoint: %w", err)
		}
		*closers = append(*closers, store.Close)
		return store, nil
	default:
		return nil, fmt.Errorf("unknown checkpoint backend: %s", cfg.Checkpoint.Backend)
	}
}

func buildSink(cfg config.Config, logger *zap.Logger) (harvest.Sink, error) {
	switch cfg.Sink.Backend {
	case "hub":
		client, err := sinkhub.New(sinkhub.Config{
			Endpoint: cfg.Sink.Endpoint,
			Repo:     cfg.Sink.Repo,
			Split:    cfg.Sink.Split,
			Token:    cfg.Sink.Token,
			Timeout:  cfg.Sink.Timeout,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("init hub sink: %w", err)
		}
		return client, nil
	case "memory":
		return sinkmem.New(), nil
	default:
		return nil, fmt.Errorf("unknown sink backend: %s", cfg.Sink.Backend)
	}
}

func buildArchive(ctx context.Context, cfg config.Config) (harvest.Archive, error) {
	switch cfg.Archive.Backend {
	case "noop":
		return archive.NoOp{}, nil
	case "memory":
		return archivemem.New(), nil
	case "local":
		store, err := archivelocal.New(archivelocal.Config{BaseDir: cfg.Archive.LocalDir})
		if err != nil {
			return nil, fmt.Errorf("init local archive: %w", err)
		}
		return store, nil
	case "gcs":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("init gcs client: %w", err)
		}
		store, err := archivegcs.New(client, archivegcs.Config{Bucket: cfg.Archive.GCSBucket})
		if err != nil {
			return nil, fmt.Errorf("init gcs archive: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown archive backend: %s", cfg.Archive.Backend)
	}
}

func buildNotifier(ctx context.Context, cfg config.Config, closers *[]func()) (harvest.Notifier, error) {
	switch cfg.Notify.Backend {
	case "noop":
		return notify.NoOp{}, nil
	case "memory":
		return notifymem.New(), nil
	case "pubsub":
		pub, err := notifypubsub.New(ctx, cfg.Notify.ProjectID, cfg.Notify.Topic)
		if err != nil {
			return nil, fmt.Errorf("init pubsub notifier: %w", err)
		}
		*closers = append(*closers, func() { _ = pub.Close() })
		return pub, nil
	default:
		return nil, fmt.Errorf("unknown notify backend: %s", cfg.Notify.Backend)
	}
}

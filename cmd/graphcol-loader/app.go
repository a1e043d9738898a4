package main

import (
	"context"
	"fmt"
	"time"

	"github.com/bowerhall/graphcol/internal/config"
	"github.com/bowerhall/graphcol/internal/events"
	"github.com/bowerhall/graphcol/internal/ingest"
	"github.com/bowerhall/graphcol/internal/ledger"
	"github.com/bowerhall/graphcol/internal/logger"
	"github.com/bowerhall/graphcol/internal/metrics"
	"github.com/bowerhall/graphcol/internal/notify"
	"github.com/bowerhall/graphcol/internal/storage"
)

// app holds everything a run needs, built once from the environment.
type app struct {
	cfg     *config.Config
	catalog *config.Catalog
	loader  *ingest.Loader
	metrics *metrics.Collector
	alerter *notify.Alerter
	store   storage.Store

	closers []func()
}

type overrides struct {
	policy      string
	chunkSize   int
	parallelism int
}

func newApp(ctx context.Context, o overrides) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	cat, err := config.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	cfg.ApplyCatalog(cat)

	if o.policy != "" {
		if cfg.CommitPolicy, err = config.ParsePolicy(o.policy); err != nil {
			return nil, err
		}
	}
	if o.chunkSize > 0 {
		cfg.ChunkSize = o.chunkSize
	}

	a := &app{cfg: cfg, catalog: cat}

	store, err := newStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.store = store

	a.metrics = metrics.NewCollector("graphcol")

	loader := ingest.New(ingest.Options{
		Namespace:     cfg.Namespace,
		ChunkSize:     cfg.ChunkSize,
		Policy:        cfg.CommitPolicy,
		ProgressEvery: cfg.ProgressEvery,
		Parallelism:   o.parallelism,
	}, resilient(cfg, store, "graphcol-sink"))
	loader.SinkFor = func(dataset string) storage.Sink {
		return resilient(cfg, store, "graphcol-sink/"+dataset)
	}
	loader.Metrics = a.metrics

	runs, err := ledger.Open(cfg.LedgerPath)
	if err != nil {
		logger.Warn("run ledger disabled", "path", cfg.LedgerPath, "error", err)
	} else {
		loader.Ledger = runs
		a.closers = append(a.closers, func() { runs.Close() })
	}

	if cfg.Events.NATSURL != "" {
		pub, err := events.Connect(cfg.Events.NATSURL)
		if err != nil {
			logger.Warn("dataset events disabled", "error", err)
		} else {
			loader.Announcer = pub
			a.closers = append(a.closers, pub.Close)
			logger.Info("dataset events enabled", "url", cfg.Events.NATSURL)
		}
	}

	sender, err := notify.New(notify.Config{
		Provider: cfg.Notify.Provider,
		Token:    cfg.Notify.Token,
		Target:   cfg.Notify.Target,
	})
	if err != nil {
		logger.Warn("notifications disabled", "error", err)
	} else if sender != nil {
		logger.Info("notifications enabled", "provider", cfg.Notify.Provider)
	}
	a.alerter = notify.NewAlerter(sender, 10*time.Minute)
	loader.Alerter = a.alerter

	a.loader = loader

	logger.Info("loader ready",
		"namespace", cfg.Namespace,
		"chunk_size", cfg.ChunkSize,
		"policy", cfg.CommitPolicy,
		"datasets", len(cat.Datasets),
	)

	return a, nil
}

// newStore returns the local directory or bucket named by the config.
func newStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	if cfg.Storage.OutputDir != "" {
		dir, err := storage.NewDir(cfg.Storage.OutputDir)
		if err != nil {
			return nil, err
		}
		logger.Info("using local directory", "dir", dir.Root())
		return dir, nil
	}

	client, err := storage.NewClient(storage.Config{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		UseSSL:    cfg.Storage.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}
	if err := client.Init(ctx); err != nil {
		return nil, fmt.Errorf("storage init: %w", err)
	}
	logger.Info("using bucket", "endpoint", cfg.Storage.Endpoint, "bucket", client.Bucket())
	return client, nil
}

// resilient wraps store with retries and a breaker of its own.
func resilient(cfg *config.Config, store storage.Sink, name string) *storage.Resilient {
	retry := storage.DefaultRetryOption
	retry.MaxRetries = cfg.Retry.MaxRetries
	retry.InitBackoff = cfg.Retry.InitBackoff
	retry.MaxBackoff = cfg.Retry.MaxBackoff

	return storage.NewResilient(store, retry, storage.DefaultBreakerConfig(name))
}

// ingest runs the selected datasets and reports the outcome.
func (a *app) ingest(ctx context.Context, name string) (ingest.Summary, error) {
	datasets, err := a.catalog.Select(name)
	if err != nil {
		return ingest.Summary{}, err
	}

	sum := a.loader.Run(ctx, datasets)

	total := sum.Total()
	a.alerter.Info(ctx, "ingest", fmt.Sprintf("%d/%d datasets committed, %d triples in %d chunks",
		len(sum.Results)-sum.Failed(), len(sum.Results), total.TotalTriples, total.TotalChunks))

	if n := sum.Failed(); n > 0 {
		return sum, fmt.Errorf("%d of %d datasets failed", n, len(sum.Results))
	}
	return sum, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

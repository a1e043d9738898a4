// Package ingest drives whole datasets through the chunk pipeline: it reads
// the source streams, normalizes ids, feeds the accumulator, writes the
// manifest and reports per-dataset outcomes.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/bowerhall/graphcol/internal/config"
	"github.com/bowerhall/graphcol/internal/events"
	"github.com/bowerhall/graphcol/internal/graphcol"
	"github.com/bowerhall/graphcol/internal/ledger"
	"github.com/bowerhall/graphcol/internal/logger"
	"github.com/bowerhall/graphcol/internal/metrics"
	"github.com/bowerhall/graphcol/internal/notify"
	"github.com/bowerhall/graphcol/internal/source"
	"github.com/bowerhall/graphcol/internal/storage"
	"github.com/bowerhall/graphcol/internal/triple"
	"github.com/bowerhall/graphcol/internal/txid"
)

// LabelPredicate is the predicate of label triples.
const LabelPredicate = "label"

// Ledger records runs and chunk attempts. *ledger.Store satisfies it.
type Ledger interface {
	StartRun(txID, dataset, namespace, policy string) error
	RecordChunk(c ledger.ChunkRecord) error
	FinishRun(txID, status string, triples int64, chunks int, bytes int64, runErr error) error
}

// Announcer is told about every committed dataset.
type Announcer interface {
	DatasetCommitted(ctx context.Context, ev events.Committed) error
}

// Options tune a Loader.
type Options struct {
	Namespace     string
	ChunkSize     int
	Policy        config.Policy
	ProgressEvery int

	// Parallelism is the number of datasets processed at once.
	Parallelism int
}

// Loader ingests datasets into a sink. The optional collaborators may be
// left nil.
type Loader struct {
	opts Options
	sink storage.Sink

	Ledger    Ledger
	Metrics   *metrics.Collector
	Announcer Announcer
	Alerter   *notify.Alerter

	// SinkFor, if set, returns the sink for one dataset run. It lets every
	// dataset get its own circuit breaker so one failing dataset cannot trip
	// uploads for the others.
	SinkFor func(dataset string) storage.Sink

	// Open opens a dataset's source streams. Defaults to source.Open.
	Open func(ds config.Dataset) (*source.Set, error)
	// NewTxID returns the transaction id of a run. Defaults to txid.New.
	NewTxID func() string
	Now     func() time.Time
}

func New(opts Options, sink storage.Sink) *Loader {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = graphcol.DefaultChunkSize
	}
	if opts.Policy == "" {
		opts.Policy = config.PolicyBestEffort
	}
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = 100_000
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = 1
	}

	return &Loader{
		opts:    opts,
		sink:    sink,
		Open:    openSource,
		NewTxID: txid.New,
		Now:     time.Now,
	}
}

func openSource(ds config.Dataset) (*source.Set, error) {
	return source.Open(source.Spec{
		Format: source.Format(ds.Format),
		Edges:  ds.Edges,
		Labels: ds.Labels,
		Header: ds.Header,
	})
}

// Run ingests every dataset. A failing dataset never stops the others; its
// error is reported in the summary.
func (l *Loader) Run(ctx context.Context, datasets []config.Dataset) Summary {
	results := make([]Result, len(datasets))

	sem := make(chan struct{}, l.opts.Parallelism)
	var wg sync.WaitGroup

	for i, ds := range datasets {
		wg.Add(1)
		sem <- struct{}{}

		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			results[i] = l.Dataset(ctx, ds)
		}()
	}

	wg.Wait()

	return Summary{Results: results}
}

// Dataset ingests a single dataset.
func (l *Loader) Dataset(ctx context.Context, ds config.Dataset) Result {
	tx := l.NewTxID()
	res := Result{Dataset: ds.Name, TxID: tx}

	logger.Info("loading dataset", "dataset", ds.Name, "tx", tx, "policy", l.opts.Policy)

	if l.Ledger != nil {
		if err := l.Ledger.StartRun(tx, ds.Name, l.opts.Namespace, string(l.opts.Policy)); err != nil {
			logger.Warn("ledger start failed", "dataset", ds.Name, "error", err)
		}
	}

	sink := l.sink
	if l.SinkFor != nil {
		sink = l.SinkFor(ds.Name)
	}

	err := l.load(ctx, ds, sink, &res)
	if err != nil {
		res.Status = StatusFailed
		res.Err = err
		logger.Error("dataset failed", "dataset", ds.Name, "tx", tx, "error", err)
		l.Alerter.Critical(ctx, ds.Name, "dataset not committed", err)
	} else {
		logger.Info("dataset completed",
			"dataset", ds.Name,
			"status", res.Status,
			"triples", res.Stats.TotalTriples,
			"chunks", res.Stats.TotalChunks,
			"size", mib(res.Stats.TotalSizeBytes),
		)
	}

	l.finish(ctx, res)
	return res
}

func (l *Loader) load(ctx context.Context, ds config.Dataset, sink storage.Sink, res *Result) error {
	set, err := l.Open(ds)
	if err != nil {
		return &SourceError{Dataset: ds.Name, Stream: "open", Err: err}
	}
	defer set.Close()

	ts := l.Now().UnixMilli()
	ns := l.opts.Namespace

	acc := graphcol.NewAccumulator(graphcol.AccumulatorConfig{
		Dataset:   ds.Name,
		Namespace: ns,
		ChunkSize: l.opts.ChunkSize,
		OnChunk:   l.chunkObserver(res.TxID),
	}, sink)

	add := func(t triple.Triple) error {
		err := acc.Add(ctx, t)
		if err == nil {
			return nil
		}
		return l.chunkError(ctx, ds.Name, err)
	}

	var edges int64
	for {
		e, err := set.Edges.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return &SourceError{Dataset: ds.Name, Stream: "edges", Err: err}
		}

		var obj triple.Value = triple.Ref(triple.EntityIRI(ns, e.Object))
		if e.Literal {
			obj = triple.String(e.Object)
		}

		if err := add(triple.Triple{
			S:  triple.EntityIRI(ns, e.Subject),
			P:  triple.PredicateCode(e.Predicate),
			O:  obj,
			TS: ts,
			TX: res.TxID,
		}); err != nil {
			return err
		}

		edges++
		if edges%int64(l.opts.ProgressEvery) == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
			logger.Info("edges processed", "dataset", ds.Name, "edges", edges, "rss", rss())
		}
	}

	if set.Labels != nil {
		var labels int64
		for {
			lb, err := set.Labels.Read()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return &SourceError{Dataset: ds.Name, Stream: "labels", Err: err}
			}

			if err := add(triple.Triple{
				S:  triple.EntityIRI(ns, lb.Entity),
				P:  LabelPredicate,
				O:  triple.String(lb.Text),
				TS: ts,
				TX: res.TxID,
			}); err != nil {
				return err
			}

			labels++
			if labels%int64(l.opts.ProgressEvery) == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
				logger.Info("labels processed", "dataset", ds.Name, "labels", labels, "rss", rss())
			}
		}
	}

	stats, err := acc.Finish(ctx)
	if err != nil {
		if err := l.chunkError(ctx, ds.Name, err); err != nil {
			return err
		}
	}

	res.Stats = stats
	res.Status = StatusCommitted
	for _, f := range acc.Failures() {
		res.FailedChunks++
		res.LostTriples += int64(f.Triples)
	}
	if res.FailedChunks > 0 {
		res.Status = StatusDegraded
	}

	manifest := graphcol.BuildManifest(ds.Name, ns, stats)
	data, err := manifest.Encode()
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	res.ManifestPath = graphcol.ManifestPath(ds.Name)
	if err := sink.Put(ctx, res.ManifestPath, data, "application/json"); err != nil {
		res.ManifestPath = ""
		return &graphcol.UploadError{Path: graphcol.ManifestPath(ds.Name), Err: err}
	}

	logger.Info("manifest uploaded", "dataset", ds.Name, "path", res.ManifestPath, "chunks", stats.TotalChunks)

	if l.Announcer != nil {
		ev := events.Committed{Dataset: ds.Name, ManifestPath: res.ManifestPath, TxID: res.TxID, Manifest: manifest}
		if err := l.Announcer.DatasetCommitted(ctx, ev); err != nil {
			logger.Warn("dataset event not published", "dataset", ds.Name, "error", err)
		}
	}

	return nil
}

// chunkError applies the commit policy to an accumulator error. A nil return
// means ingestion continues.
func (l *Loader) chunkError(ctx context.Context, dataset string, err error) error {
	if !graphcol.IsUploadError(err) {
		return err
	}

	if l.opts.Policy == config.PolicyAtomic {
		return fmt.Errorf("%w: %v", ErrChunkLost, err)
	}

	if errors.Is(err, storage.ErrCircuitOpen) {
		// the sink is down; every further chunk would be lost too
		return err
	}

	logger.Warn("chunk lost, continuing", "dataset", dataset, "error", err)
	l.Alerter.Warn(ctx, dataset, "chunk upload failed", err)
	return nil
}

func (l *Loader) chunkObserver(tx string) func(graphcol.ChunkResult) {
	return func(r graphcol.ChunkResult) {
		if r.Err == nil {
			logger.Info("chunk uploaded",
				"dataset", r.Dataset,
				"chunk", fmt.Sprintf("chunk_%06d", r.Index),
				"triples", r.Triples,
				"size", mib(int64(r.Bytes)),
				"took", r.Duration.Round(time.Millisecond),
			)
		}

		if l.Metrics != nil {
			l.Metrics.ObserveChunk(r)
		}

		if l.Ledger != nil {
			rec := ledger.ChunkRecord{
				TxID:     tx,
				Seq:      r.Index,
				Path:     r.Path,
				Triples:  r.Triples,
				Bytes:    r.Bytes,
				Checksum: r.Checksum,
				Duration: r.Duration,
				Status:   ledger.ChunkUploaded,
			}
			if r.Err != nil {
				rec.Status = ledger.ChunkFailed
				rec.Error = r.Err.Error()
			}
			if err := l.Ledger.RecordChunk(rec); err != nil {
				logger.Warn("ledger chunk record failed", "dataset", r.Dataset, "error", err)
			}
		}
	}
}

func (l *Loader) finish(ctx context.Context, res Result) {
	if l.Ledger != nil {
		status := ledger.StatusCommitted
		switch res.Status {
		case StatusDegraded:
			status = ledger.StatusDegraded
		case StatusFailed:
			status = ledger.StatusFailed
		}

		if err := l.Ledger.FinishRun(res.TxID, status, res.Stats.TotalTriples, res.Stats.TotalChunks, res.Stats.TotalSizeBytes, res.Err); err != nil {
			logger.Warn("ledger finish failed", "dataset", res.Dataset, "error", err)
		}
	}

	if l.Metrics != nil {
		var committedAt float64
		if res.Status != StatusFailed {
			committedAt = float64(l.Now().Unix())
		}
		l.Metrics.ObserveRun(res.Dataset, res.Status, committedAt)
	}
}

package harvest

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sync"

	"go.uber.org/zap"
)

// ErrUnavailable is returned by a Fetcher once its retry budget is
// exhausted. The pipeline treats it as a soft failure, never fatal.
var ErrUnavailable = errors.New("content unavailable after retries")

// Pipeline wires discovery, dedup, fetch, batching, and delivery into
// one run. It owns the open batch and the pending (resolved but not
// yet committed) identifiers; the checkpoint is written only after a
// batch has been durably accepted by the sink.
type Pipeline struct {
	cfg      Config
	source   Source
	fetcher  Fetcher
	extract  Extractor
	check    Checkpoint
	sink     Sink
	archive  Archive
	notifier Notifier
	pause    Pauser
	clock    Clock
	logger   *zap.Logger
	runID    string

	// mu serializes batch and checkpoint bookkeeping when the fetch
	// pool runs with more than one worker. pending holds identifiers
	// resolved into the open batch; it is sealed together with the
	// batch, under mu, the moment the batch fills, so each delivery
	// commits or discards exactly its own identifiers.
	mu        sync.Mutex
	batcher   *Batcher
	pending   []Identifier
	processed ProcessedSet
	report    RunReport
}

// NewPipeline constructs a Pipeline. archive and notifier may be nil.
func NewPipeline(
	cfg Config,
	source Source,
	fetcher Fetcher,
	extractor Extractor,
	check Checkpoint,
	sink Sink,
	archive Archive,
	notifier Notifier,
	pause Pauser,
	clock Clock,
	runID string,
	logger *zap.Logger,
) *Pipeline {
	if pause == nil {
		pause = TimerPauser{}
	}
	return &Pipeline{
		cfg:      cfg,
		source:   source,
		fetcher:  fetcher,
		extract:  extractor,
		check:    check,
		sink:     sink,
		archive:  archive,
		notifier: notifier,
		pause:    pause,
		clock:    clock,
		logger:   logger,
		runID:    runID,
		batcher:  NewBatcher(cfg.BatchSize),
	}
}

// Report returns a snapshot of the run counters. Safe to call while
// the run is in flight.
func (p *Pipeline) Report() RunReport {
	p.mu.Lock()
	defer p.mu.Unlock()
	rep := p.report
	rep.RunID = p.runID
	return rep
}

// Run executes the full pipeline and blocks until the catalog is
// exhausted, a fatal error occurs, or the context ends.
func (p *Pipeline) Run(ctx context.Context) (RunReport, error) {
	started := p.clock.Now()

	processed, err := p.check.Load(ctx)
	if err != nil {
		return p.Report(), fmt.Errorf("load checkpoint: %w", err)
	}
	p.mu.Lock()
	p.processed = processed
	p.mu.Unlock()
	p.logger.Info("checkpoint loaded",
		zap.String("run_id", p.runID),
		zap.Int("resolved", len(processed)),
	)

	walk := p.source.Discover(ctx, 1)
	if p.cfg.FetchConcurrency > 1 {
		err = p.runPooled(ctx, walk)
	} else {
		err = p.runSequential(ctx, walk)
	}
	if err == nil {
		err = walk.Err()
		if err != nil {
			err = fmt.Errorf("catalog walk: %w", err)
		}
	}
	if err == nil {
		err = p.flushFinal(ctx)
	}

	rep := p.Report()
	rep.Elapsed = p.clock.Now().Sub(started)
	p.logger.Info("run finished",
		zap.String("run_id", p.runID),
		zap.Int("discovered", rep.Discovered),
		zap.Int("duplicates", rep.Duplicates),
		zap.Int("skipped", rep.Skipped),
		zap.Int("delivered", rep.Delivered),
		zap.Int("batches", rep.Batches),
		zap.Duration("elapsed", rep.Elapsed),
		zap.Error(err),
	)
	return rep, err
}

func (p *Pipeline) runSequential(ctx context.Context, walk Walk) error {
	for {
		id, ok := walk.Next(ctx)
		if !ok {
			return nil
		}
		if !p.admit(id) {
			continue
		}
		if err := p.resolve(ctx, id); err != nil {
			return err
		}
	}
}

func (p *Pipeline) runPooled(ctx context.Context, walk Walk) error {
	// Record order within a batch no longer matches discovery order
	// once the pool has more than one worker.
	poolCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ids := make(chan Identifier)
	var wg sync.WaitGroup
	var errMu sync.Mutex
	var firstErr error

	fail := func(err error) {
		errMu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		errMu.Unlock()
		cancel()
	}

	for i := 0; i < p.cfg.FetchConcurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range ids {
				if poolCtx.Err() != nil {
					return
				}
				if err := p.resolve(poolCtx, id); err != nil {
					fail(err)
					return
				}
			}
		}()
	}

	for {
		id, ok := walk.Next(poolCtx)
		if !ok {
			break
		}
		if !p.admit(id) {
			continue
		}
		select {
		case ids <- id:
		case <-poolCtx.Done():
		}
		if poolCtx.Err() != nil {
			break
		}
	}
	close(ids)
	wg.Wait()

	errMu.Lock()
	defer errMu.Unlock()
	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}

// admit counts a discovered identifier and filters it against the
// resolved set. Returns true when the identifier needs resolving.
func (p *Pipeline) admit(id Identifier) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.report.Discovered++
	IdentifiersDiscovered.Inc()
	if p.processed.Contains(id) {
		p.report.Duplicates++
		return false
	}
	// Reserve the identifier so a duplicate later in the same walk is
	// filtered even before its batch commits.
	p.processed.Add(id)
	return true
}

func (p *Pipeline) resolve(ctx context.Context, id Identifier) error {
	doc, err := p.fetcher.Fetch(ctx, id)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("fetch %s: %w", id, ctx.Err())
		}
		if !errors.Is(err, ErrUnavailable) {
			return fmt.Errorf("fetch %s: %w", id, err)
		}
		p.skip(ctx, id, SkipUnavailable, p.cfg.SkipPolicy == SkipPermanent)
		return nil
	}

	p.archiveRaw(ctx, doc)

	text, err := p.extract.Text(doc.Body)
	if err != nil {
		p.logger.Warn("text extraction failed",
			zap.String("run_id", p.runID),
			zap.String("identifier", string(id)),
			zap.Error(err),
		)
		p.skip(ctx, id, SkipParseError, true)
		return nil
	}
	if len(text) < p.cfg.MinContentLength {
		p.skip(ctx, id, SkipTooShort, true)
		return nil
	}

	rec := Record{
		Identifier: id,
		URL:        doc.URL,
		Content:    text,
		Source:     p.cfg.SourceLabel,
	}
	if err := p.accept(ctx, id, rec); err != nil {
		return err
	}
	p.pause.Pause(ctx, p.cfg.FetchDelay)
	return nil
}

// skip records a resolved-without-record outcome. commit=false leaves
// the identifier out of the checkpoint so a later run retries it.
func (p *Pipeline) skip(ctx context.Context, id Identifier, reason SkipReason, commit bool) {
	p.mu.Lock()
	p.report.Skipped++
	IdentifiersSkipped.WithLabelValues(string(reason)).Inc()
	if commit {
		p.pending = append(p.pending, id)
	} else {
		delete(p.processed, id)
	}
	p.mu.Unlock()
	p.logger.Debug("identifier skipped",
		zap.String("run_id", p.runID),
		zap.String("identifier", string(id)),
		zap.String("reason", string(reason)),
	)
	p.pause.Pause(ctx, p.cfg.FetchDelay)
}

// accept appends a record to the open batch and delivers the batch if
// it just reached capacity. Sealing the pending identifiers happens
// under the same lock as the batch fill, so a concurrent worker can
// never slip an identifier of a still-open batch into this delivery's
// commit.
func (p *Pipeline) accept(ctx context.Context, id Identifier, rec Record) error {
	p.mu.Lock()
	p.pending = append(p.pending, id)
	full, ready := p.batcher.Add(rec)
	var sealed []Identifier
	if ready {
		sealed = p.pending
		p.pending = nil
	}
	p.mu.Unlock()
	if !ready {
		return nil
	}
	return p.deliver(ctx, full, sealed)
}

func (p *Pipeline) flushFinal(ctx context.Context) error {
	p.mu.Lock()
	final, ok := p.batcher.Flush()
	sealed := p.pending
	p.pending = nil
	p.mu.Unlock()
	if !ok {
		// Skips may still be pending without any open record.
		return p.commit(ctx, sealed)
	}
	return p.deliver(ctx, final, sealed)
}

// deliver pushes one batch to the sink and, only on success, commits
// the identifiers sealed with that batch to the checkpoint.
func (p *Pipeline) deliver(ctx context.Context, batch []Record, sealed []Identifier) error {
	if err := p.sink.Deliver(ctx, batch); err != nil {
		DeliveryFailures.Inc()
		p.mu.Lock()
		// Only this batch's identifiers are revisited on the next run;
		// identifiers of the open batch stay reserved.
		for _, id := range sealed {
			delete(p.processed, id)
		}
		p.mu.Unlock()
		if p.cfg.FailurePolicy == FailContinue {
			p.logger.Warn("batch delivery failed, continuing",
				zap.String("run_id", p.runID),
				zap.Int("size", len(batch)),
				zap.Error(err),
			)
			return nil
		}
		return fmt.Errorf("deliver batch: %w", err)
	}

	p.mu.Lock()
	p.report.Delivered += len(batch)
	p.report.Batches++
	batchNumber := p.report.Batches
	p.mu.Unlock()
	BatchesDelivered.Inc()
	RecordsDelivered.Add(float64(len(batch)))
	p.logger.Info("batch delivered",
		zap.String("run_id", p.runID),
		zap.Int("batch", batchNumber),
		zap.Int("size", len(batch)),
	)

	if err := p.commit(ctx, sealed); err != nil {
		return err
	}
	p.notify(ctx, batchNumber, len(batch))
	return nil
}

// commit writes newly resolved identifiers to the checkpoint. A write
// failure is a warning: the in-memory set already reflects the update,
// so the run continues and the worst case is re-processing after a
// crash.
func (p *Pipeline) commit(ctx context.Context, newly []Identifier) error {
	if len(newly) == 0 {
		return nil
	}
	if err := p.check.Commit(ctx, newly); err != nil {
		p.logger.Warn("checkpoint write failed, continuing with in-memory state",
			zap.String("run_id", p.runID),
			zap.Int("identifiers", len(newly)),
			zap.Error(err),
		)
	}
	return nil
}

func (p *Pipeline) archiveRaw(ctx context.Context, doc Document) {
	if !p.cfg.ArchiveEnabled || p.archive == nil {
		return
	}
	name := path.Join(p.cfg.ArchivePrefix, p.runID, string(doc.Identifier)+".html")
	if _, err := p.archive.Put(ctx, name, "text/html; charset=utf-8", doc.Body); err != nil {
		p.logger.Warn("archive write failed",
			zap.String("run_id", p.runID),
			zap.String("identifier", string(doc.Identifier)),
			zap.Error(err),
		)
	}
}

func (p *Pipeline) notify(ctx context.Context, batchNumber, size int) {
	if p.notifier == nil {
		return
	}
	event := BatchEvent{
		RunID:       p.runID,
		BatchNumber: batchNumber,
		Size:        size,
		DeliveredAt: p.clock.Now(),
	}
	if err := p.notifier.Publish(ctx, event); err != nil {
		p.logger.Warn("batch event publish failed",
			zap.String("run_id", p.runID),
			zap.Int("batch", batchNumber),
			zap.Error(err),
		)
	}
}

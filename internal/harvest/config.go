package harvest

import (
	"fmt"
	"time"
)

// Config holds the knobs for one pipeline run. It is decoupled from
// Viper so the pipeline can be constructed and tested independently of
// how configuration is loaded.
type Config struct {
	// BatchSize is the delivery batch capacity.
	BatchSize int
	// MinContentLength rejects extracted text shorter than this.
	MinContentLength int
	// FetchDelay is the politeness pause after each accepted fetch.
	FetchDelay time.Duration
	// FetchConcurrency bounds the fetch worker pool. 1 keeps the
	// pipeline strictly sequential and preserves discovery order
	// within batches; higher values relax record order.
	FetchConcurrency int
	// SkipPolicy governs checkpointing of permanently failed fetches.
	SkipPolicy SkipPolicy
	// FailurePolicy governs the reaction to a failed batch delivery.
	FailurePolicy FailurePolicy
	// SourceLabel is attached to every delivered record.
	SourceLabel string
	// ArchiveEnabled persists raw markup to the archive before
	// extraction.
	ArchiveEnabled bool
	// ArchivePrefix is the object-name prefix for archived documents.
	ArchivePrefix string
}

// Validate checks for obviously bad configuration combinations.
func (c Config) Validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("harvest.batch_size must be > 0")
	}
	if c.MinContentLength < 0 {
		return fmt.Errorf("harvest.min_content_length must be >= 0")
	}
	if c.FetchDelay < 0 {
		return fmt.Errorf("harvest.fetch_delay must be >= 0")
	}
	if c.FetchConcurrency <= 0 {
		return fmt.Errorf("harvest.fetch_concurrency must be > 0")
	}
	switch c.SkipPolicy {
	case SkipPermanent, SkipRetryable:
	default:
		return fmt.Errorf("harvest.skip_policy must be %q or %q", SkipPermanent, SkipRetryable)
	}
	switch c.FailurePolicy {
	case FailAbort, FailContinue:
	default:
		return fmt.Errorf("harvest.failure_policy must be %q or %q", FailAbort, FailContinue)
	}
	if c.SourceLabel == "" {
		return fmt.Errorf("harvest.source_label must be set")
	}
	return nil
}

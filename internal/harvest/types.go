// Package harvest defines core types shared across the pipeline subsystems.
package harvest

import "time"

// Identifier is the opaque, stable key naming one catalog entry
// (for EU legislation, the CELEX code).
type Identifier string

// Record is one enriched catalog entry ready for delivery. Records are
// created only after the extracted text passes the minimum-length
// acceptance policy and are immutable afterwards.
type Record struct {
	Identifier Identifier `json:"identifier"`
	URL        string     `json:"url"`
	Content    string     `json:"content"`
	Source     string     `json:"source"`
}

// SkipReason explains why a fetched identifier produced no Record.
type SkipReason string

// Skip reasons reported in logs and counters.
const (
	SkipUnavailable SkipReason = "unavailable"
	SkipTooShort    SkipReason = "too_short"
	SkipParseError  SkipReason = "parse_error"
)

// Document is the raw body returned by the content source for one
// identifier, before markup stripping.
type Document struct {
	Identifier Identifier
	URL        string
	StatusCode int
	Body       []byte
	Duration   time.Duration
}

// RunReport summarizes one pipeline run.
type RunReport struct {
	RunID      string        `json:"run_id"`
	Discovered int           `json:"discovered"`
	Duplicates int           `json:"duplicates"`
	Skipped    int           `json:"skipped"`
	Delivered  int           `json:"delivered"`
	Batches    int           `json:"batches"`
	Elapsed    time.Duration `json:"elapsed"`
}

// BatchEvent is published after each batch has been delivered and its
// identifiers committed to the checkpoint.
type BatchEvent struct {
	RunID       string    `json:"run_id"`
	BatchNumber int       `json:"batch_number"`
	Size        int       `json:"size"`
	DeliveredAt time.Time `json:"delivered_at"`
}

// SkipPolicy decides whether identifiers whose fetch failed permanently
// are still marked resolved in the checkpoint.
type SkipPolicy string

// Skip policy values.
const (
	// SkipPermanent marks fetch-exhausted identifiers resolved so they
	// are never reattempted. This is the default: a permanently broken
	// entry should not stall every future run.
	SkipPermanent SkipPolicy = "permanent"
	// SkipRetryable leaves fetch-exhausted identifiers uncommitted so
	// the next run tries them again.
	SkipRetryable SkipPolicy = "retryable"
)

// FailurePolicy decides how the pipeline reacts to a failed batch
// delivery.
type FailurePolicy string

// Failure policy values.
const (
	// FailAbort stops the run on the first delivery failure, preserving
	// restartability. Default.
	FailAbort FailurePolicy = "abort"
	// FailContinue drops the failed batch (uncommitted, so it will be
	// revisited next run) and keeps going.
	FailContinue FailurePolicy = "continue"
)

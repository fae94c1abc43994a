// Package notify publishes batch-delivery events so downstream
// consumers can react to dataset growth without polling the hub.
package notify

import (
	"context"

	"github.com/vgassen/lexharvest/internal/harvest"
)

// NoOp discards events. Used when notifications are disabled.
type NoOp struct{}

// Publish does nothing.
func (NoOp) Publish(_ context.Context, _ harvest.BatchEvent) error {
	return nil
}

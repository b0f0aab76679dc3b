// Package mirror pushes monitoring statistics to a ledger-resident
// statistics contract. The mirror is strictly best-effort: the watch
// pipeline depends on it only through the Mirror interface, failures are
// logged and never propagate, and the default implementation does nothing.
package mirror

import (
	"context"

	"ethwatch/internal/model"
)

// Mirror is the capability the engine depends on. Write operations may be
// deferred or dropped by implementations; Statistics is a synchronous read.
type Mirror interface {
	RecordTransaction(ctx context.Context, rec model.TransactionRecord) error
	RecordBlock(ctx context.Context, rec model.BlockRecord) error
	UpdateQueryRate(ctx context.Context, rate float64) error
	Statistics(ctx context.Context) (*model.MirrorStats, error)
	Close() error
}

// Noop is the stand-in used when no mirror contract is configured.
type Noop struct{}

func (Noop) RecordTransaction(context.Context, model.TransactionRecord) error { return nil }
func (Noop) RecordBlock(context.Context, model.BlockRecord) error             { return nil }
func (Noop) UpdateQueryRate(context.Context, float64) error                   { return nil }
func (Noop) Close() error                                                     { return nil }

func (Noop) Statistics(context.Context) (*model.MirrorStats, error) {
	return &model.MirrorStats{}, nil
}

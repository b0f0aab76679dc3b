// Package aggregate keeps the running statistics for one monitoring session.
// Counters track dispatched records, not fetched ones: duplicates filtered by
// the seen-set never reach here, and a transaction that fails to decode still
// counts, it just carries the unknown label.
package aggregate

import (
	"sync"
	"time"

	"ethwatch/internal/model"
)

type Aggregator struct {
	mu sync.Mutex

	transactions uint64
	blocks       uint64
	lastBlock    uint64
	lastBlockAt  time.Time
	queryRate    float64
	startedAt    time.Time

	now func() time.Time
}

func New() *Aggregator {
	a := &Aggregator{now: time.Now}
	a.startedAt = a.now()
	return a
}

// RecordTransaction counts one dispatched pending transaction.
func (a *Aggregator) RecordTransaction(model.TransactionRecord) {
	a.mu.Lock()
	a.transactions++
	a.mu.Unlock()
}

// RecordBlock counts one dispatched block and advances the last-block fields.
func (a *Aggregator) RecordBlock(rec model.BlockRecord) {
	a.mu.Lock()
	a.blocks++
	a.lastBlock = rec.Number
	a.lastBlockAt = time.Unix(int64(rec.Timestamp), 0).UTC()
	a.mu.Unlock()
}

// UpdateQueryRate stores the most recent observed queries-per-second figure.
func (a *Aggregator) UpdateQueryRate(rate float64) {
	a.mu.Lock()
	a.queryRate = rate
	a.mu.Unlock()
}

// Snapshot returns a point-in-time copy safe to hand to any reader.
func (a *Aggregator) Snapshot() model.StatsSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return model.StatsSnapshot{
		TransactionsMonitored: a.transactions,
		BlocksMonitored:       a.blocks,
		LastBlockNumber:       a.lastBlock,
		LastBlockAt:           a.lastBlockAt,
		QueryRate:             a.queryRate,
		StartedAt:             a.startedAt,
		Uptime:                a.now().Sub(a.startedAt),
	}
}

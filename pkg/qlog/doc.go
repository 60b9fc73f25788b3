/*
Package qlog provides structured logging for the quad store engine using zerolog.

All subsystems — pager, index, store, parsers, planner — log through a
shared zerolog.Logger rather than fmt.Println or the standard log package.
Events carry structured fields instead of interpolated strings so that a
consumer can filter commits by store name, slow queries by query id, or
WAL recovery warnings by component.

# Levels

Debug is for page cache misses, WAL frame replays, and buffer-pool
evictions: high volume, useful only when chasing a specific bug. Info
covers store lifecycle (open/close/checkpoint) and transaction commits.
Warn covers recoverable conditions: a torn WAL frame truncating recovery,
an LRU eviction under cache pressure, a FILTER expression that raised and
dropped its row. Error is reserved for aborted transactions and fatal
storage I/O.

# Usage

	qlog.Init(qlog.Config{Level: qlog.InfoLevel, JSONOutput: true})

	logger := qlog.WithComponent("pager")
	logger.Info().Uint32("page_id", id).Msg("checkpoint flushed dirty page")

	txnLog := qlog.WithTxn(txnID)
	txnLog.Warn().Err(err).Msg("commit aborted, rolling back")

Component loggers (WithComponent, WithStore, WithTxn, WithQuery) return a
zerolog.Logger value, not a pointer — cheap enough to build per call site,
and keeps the structured fields attached to the child rather than mutating
the shared parent.
*/
package qlog

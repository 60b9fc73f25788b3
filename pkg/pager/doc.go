/*
Package pager implements the page cache and write-ahead log underneath the
quad store's six B+Tree indices and atom dictionary.

# Architecture

	┌─────────────────────────── PAGER ────────────────────────────┐
	│                                                                 │
	│  ┌─────────────┐      ┌───────────────┐      ┌──────────────┐ │
	│  │ bufferPool  │◄────►│     Pager      │◄────►│  data.pages  │ │
	│  │ (LRU, pins) │      │ ReadPage       │      │  (fixed-size │ │
	│  └─────────────┘      │ BeginWrite     │      │   page file) │ │
	│                       │ WritePage      │      └──────────────┘ │
	│                       │ CommitTx/Abort │                       │
	│                       │ Checkpoint     │      ┌──────────────┐ │
	│                       │ Recover        │◄────►│   wal.log    │ │
	│                       └───────────────┘      └──────────────┘ │
	└─────────────────────────────────────────────────────────────────┘

One write transaction is open at a time (writeMu). BeginWrite captures a
page's pre-image the first time a transaction touches it, so AbortTx can
restore the buffer pool without the main file ever having been mutated.
CommitTx appends a post-image frame per dirtied page, a CommitTxn frame,
then fsyncs — only then are the pages eligible for Checkpoint to flush.
Recover replays the WAL on open: transactions that reached a CommitTxn
frame are redone; transactions that did not are discarded, since the main
file was never written for them before fsync. A torn trailing frame
(CRC mismatch) ends the scan at the last good frame rather than failing
recovery outright.

Pages are permanently allocated once handed out by AllocPage; there is no
online page reuse, so the pager carries no on-disk free list.
*/
package pager

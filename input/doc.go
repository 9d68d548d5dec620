// Package input provides rewindable byte input for backtracking parsers.
//
// # Overview
//
// A parser trying alternatives marks a position, reads past it and, if the
// alternative fails, restores the input to the mark as if nothing had been
// read. The source underneath may be a pipe or a socket: it can only be read
// forward, and each byte must be read from it at most once.
//
//	cp, _ := r.SetCheckpoint()
//	if !tryAlternative(r) {
//	    r.Rewind(cp)
//	} else {
//	    r.Release(cp)
//	}
//
// # Readers
//
// Two ReadRewinder implementations exist:
//
//	┌──────────────┐   Seek    ┌──────────────┐
//	│  SeekInput   │──────────▶│ io.ReadSeeker│
//	└──────────────┘           └──────────────┘
//	┌──────────────┐   Read    ┌──────────────┐
//	│ BufferInput  │──────────▶│  io.Reader   │
//	│   ledger     │           └──────────────┘
//	└──────────────┘
//
// SeekInput delegates to the source's Seek and holds no state. BufferInput
// records the bytes read while a checkpoint is active, so any reader can be
// rewound. For picks the right one for a source.
//
// # Retention
//
// BufferInput reference-counts checkpoints by offset. Checkpoints need not be
// nested and may be rewound in any order; setting the same offset twice needs
// two rewinds (or releases) before it stops holding bytes. A read is served
// from three consecutive regions:
//
//	offset        first checkpoint            end
//	  │  removable    │      recycling          │   fresh
//	  ▼───────────────▼─────────────────────────▼──────────▶
//
// Removable bytes precede every checkpoint: they are handed out once and
// dropped. Recycling bytes are copied out and kept for later rewinds. Fresh
// bytes come from the source and are recorded only while some checkpoint is
// active.
//
// Rewinding or releasing a checkpoint BufferInput does not hold is a bug in
// the caller and panics.
//
// # Non-blocking sources
//
// A source that has no data yet returns ErrNotReady. The reader is left
// exactly as it was, so the operation can simply be retried. ReadContext,
// PositionContext, SetCheckpointContext, RewindContext and ReleaseContext do
// that, waiting on the source's Notifier channel or polling with backoff
// until the context ends.
//
// # Byte streams
//
// Input adapts a ReadRewinder to a byte-at-a-time interface (Next, Bytes)
// while still forwarding the checkpoint capability.
//
// A reader is not safe for concurrent use.
package input

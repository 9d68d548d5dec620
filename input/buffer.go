package input

import (
	"errors"
	"io"

	"github.com/tliron/commonlog"
)

// Option configures a BufferInput.
type Option func(*BufferInput)

// WithCapacity preallocates room for n retained bytes.
func WithCapacity(n int) Option {
	return func(b *BufferInput) {
		if n > 0 {
			b.ledger.record = make([]byte, 0, n)
		}
	}
}

// BufferInput makes any io.Reader rewindable by retaining the bytes read
// since the earliest active checkpoint.
//
// Every byte is read from the source at most once. Replayed bytes come from
// the retained record: bytes before the earliest checkpoint are handed out
// and dropped, bytes after it are copied and kept for later rewinds. With no
// checkpoint active, nothing is retained once the reader has caught up with
// the source.
//
// For sources implementing io.Seeker, SeekInput does the same job without
// buffering.
type BufferInput struct {
	pos    int64
	ledger ledger
	r      io.Reader
	log    commonlog.Logger
}

// NewBuffer returns a BufferInput reading from r.
func NewBuffer(r io.Reader, opts ...Option) *BufferInput {
	b := &BufferInput{
		r:   r,
		log: commonlog.GetLogger("backtrack.input"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Read fills p from the removable region, then the recycling region, then
// with a single read from the source.
func (b *BufferInput) Read(p []byte) (int, error) {
	n := 0

	// Removable region: nothing can rewind here any more.
	if n < len(p) && b.pos < b.ledger.firstCheckpoint() && b.pos < b.ledger.end() {
		k := b.ledger.pop(b.pos, p[n:])
		b.pos += int64(k)
		n += k
	}

	// Recycling region: a checkpoint may replay these again.
	if n < len(p) && b.pos < b.ledger.end() {
		k := b.ledger.popRef(b.pos, p[n:])
		b.pos += int64(k)
		n += k
	}

	if n == len(p) {
		return n, nil
	}

	// Fresh region.
	k, err := b.r.Read(p[n:])
	if k > 0 {
		if b.ledger.recording() {
			b.ledger.push(p[n : n+k])
		}
		b.pos += int64(k)
		n += k
	}
	if err != nil && n > 0 && errors.Is(err, ErrNotReady) {
		err = nil
	}
	return n, err
}

// Position returns the offset of the next byte Read delivers.
func (b *BufferInput) Position() (int64, error) {
	return b.pos, nil
}

// SetCheckpoint marks the current position. The bytes from here on are
// retained until the checkpoint is rewound or released.
func (b *BufferInput) SetCheckpoint() (Checkpoint, error) {
	b.ledger.setCheckpoint(b.pos)
	b.log.Debugf("checkpoint %d set (refs %d, buffered %d)", b.pos, b.ledger.refs(b.pos), b.ledger.len())
	return Checkpoint(b.pos), nil
}

// Rewind moves the position back to cp and drops cp's reference. Rewinding a
// checkpoint with no outstanding reference panics.
func (b *BufferInput) Rewind(cp Checkpoint) error {
	b.ledger.rewind(int64(cp))
	b.pos = int64(cp)
	b.ledger.release(b.pos)
	b.log.Debugf("rewound to %d (buffered %d)", b.pos, b.ledger.len())
	return nil
}

// Release drops cp's reference without moving the position. Releasing a
// checkpoint with no outstanding reference panics.
func (b *BufferInput) Release(cp Checkpoint) error {
	b.ledger.rewind(int64(cp))
	b.ledger.release(b.pos)
	return nil
}

// Buffered returns the number of bytes currently retained.
func (b *BufferInput) Buffered() int {
	return b.ledger.len()
}

// Checkpoints returns the number of outstanding checkpoint references.
func (b *BufferInput) Checkpoints() int {
	n := 0
	for _, m := range b.ledger.checkpoints {
		n += m.refs
	}
	return n
}

// Ready forwards the source's readiness channel, if it has one.
func (b *BufferInput) Ready() <-chan struct{} {
	return ready(b.r)
}

// Unwrap returns the underlying source.
func (b *BufferInput) Unwrap() io.Reader {
	return b.r
}

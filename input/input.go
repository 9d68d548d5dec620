package input

import (
	"context"
	"errors"
	"io"
	"iter"
)

// Input presents a ReadRewinder as a sequence of bytes. It forwards the
// checkpoint capability, so a position reached through Next can be marked
// and rewound like any other.
type Input struct {
	r    ReadRewinder
	one  [1]byte
	err  error
	wait []WaitOption
}

// New returns an Input reading from r. The wait options apply to the
// Context variants of its methods.
func New(r ReadRewinder, opts ...WaitOption) *Input {
	return &Input{r: r, wait: opts}
}

// Next returns the next byte. At the end of the stream it returns io.EOF;
// any other source failure is returned as a *ReadError.
func (in *Input) Next() (byte, error) {
	if in.err != nil {
		err := in.err
		in.err = nil
		return 0, err
	}
	n, err := in.r.Read(in.one[:])
	if n == 1 {
		if err != nil && err != io.EOF && !errors.Is(err, ErrNotReady) {
			in.err = wrapReadError(err)
		}
		return in.one[0], nil
	}
	if err == nil {
		err = io.ErrNoProgress
	}
	if err == io.EOF {
		return 0, io.EOF
	}
	return 0, wrapReadError(err)
}

// NextContext is Next, waiting while the source is not ready.
func (in *Input) NextContext(ctx context.Context) (byte, error) {
	return retry(ctx, in.r, in.wait, in.Next)
}

// Bytes yields the rest of the stream. It stops after the first error other
// than io.EOF, yielding that error with a zero byte.
func (in *Input) Bytes(ctx context.Context) iter.Seq2[byte, error] {
	return func(yield func(byte, error) bool) {
		for {
			b, err := in.NextContext(ctx)
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(0, err)
				return
			}
			if !yield(b, nil) {
				return
			}
		}
	}
}

// Discard skips the next n bytes and returns how many were skipped. It stops
// early at the end of the stream, returning io.EOF.
func (in *Input) Discard(ctx context.Context, n int64) (int64, error) {
	var buf [512]byte
	var skipped int64
	for skipped < n {
		chunk := buf[:min(int64(len(buf)), n-skipped)]
		k, err := ReadContext(ctx, in, chunk, in.wait...)
		skipped += int64(k)
		if err != nil {
			return skipped, err
		}
		if k == 0 {
			return skipped, io.ErrNoProgress
		}
	}
	return skipped, nil
}

func (in *Input) Read(p []byte) (int, error) {
	if in.err != nil {
		err := in.err
		in.err = nil
		return 0, err
	}
	return in.r.Read(p)
}

func (in *Input) Position() (int64, error) {
	return in.r.Position()
}

func (in *Input) SetCheckpoint() (Checkpoint, error) {
	return in.r.SetCheckpoint()
}

func (in *Input) Rewind(cp Checkpoint) error {
	in.err = nil
	return in.r.Rewind(cp)
}

func (in *Input) Release(cp Checkpoint) error {
	return in.r.Release(cp)
}

// Ready forwards the readiness channel of the wrapped reader.
func (in *Input) Ready() <-chan struct{} {
	return ready(in.r)
}

// Unwrap returns the wrapped reader.
func (in *Input) Unwrap() ReadRewinder {
	return in.r
}

package input

import (
	"context"
	"errors"
	"io"
	"time"
)

// Notifier is implemented by non-blocking sources that can announce when a
// read that failed with ErrNotReady is worth retrying. Ready may return nil
// when the source cannot tell.
type Notifier interface {
	Ready() <-chan struct{}
}

func ready(src any) <-chan struct{} {
	if n, ok := src.(Notifier); ok {
		return n.Ready()
	}
	return nil
}

type waitConfig struct {
	minDelay time.Duration
	maxDelay time.Duration
}

// WaitOption configures the Context helpers.
type WaitOption func(*waitConfig)

// WithBackoff sets the polling interval used for sources that are not
// Notifiers. The delay starts at lo and doubles up to hi.
func WithBackoff(lo, hi time.Duration) WaitOption {
	return func(c *waitConfig) {
		if lo > 0 {
			c.minDelay = lo
		}
		if hi >= c.minDelay {
			c.maxDelay = hi
		}
	}
}

// retry runs op until it fails with something other than ErrNotReady or ctx
// ends. Between attempts it waits for src to become ready.
func retry[T any](ctx context.Context, src any, opts []WaitOption, op func() (T, error)) (T, error) {
	cfg := waitConfig{minDelay: time.Millisecond, maxDelay: 50 * time.Millisecond}
	for _, opt := range opts {
		opt(&cfg)
	}

	var zero T
	delay := cfg.minDelay
	for {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		v, err := op()
		if err == nil || !errors.Is(err, ErrNotReady) {
			return v, err
		}

		if ch := ready(src); ch != nil {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-ch:
			}
			continue
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
		delay = min(delay*2, cfg.maxDelay)
	}
}

// ReadContext reads into p, waiting while the source is not ready.
func ReadContext(ctx context.Context, r io.Reader, p []byte, opts ...WaitOption) (int, error) {
	return retry(ctx, r, opts, func() (int, error) {
		n, err := r.Read(p)
		if n > 0 && errors.Is(err, ErrNotReady) {
			err = nil
		}
		return n, err
	})
}

// PositionContext returns r's position, waiting while the source is not ready.
func PositionContext(ctx context.Context, r Rewinder, opts ...WaitOption) (int64, error) {
	return retry(ctx, r, opts, r.Position)
}

// SetCheckpointContext sets a checkpoint on r, waiting while the source is not
// ready.
func SetCheckpointContext(ctx context.Context, r Rewinder, opts ...WaitOption) (Checkpoint, error) {
	return retry(ctx, r, opts, r.SetCheckpoint)
}

// RewindContext rewinds r to cp, waiting while the source is not ready.
func RewindContext(ctx context.Context, r Rewinder, cp Checkpoint, opts ...WaitOption) error {
	_, err := retry(ctx, r, opts, func() (struct{}, error) {
		return struct{}{}, r.Rewind(cp)
	})
	return err
}

// ReleaseContext releases cp on r, waiting while the source is not ready.
func ReleaseContext(ctx context.Context, r Rewinder, cp Checkpoint, opts ...WaitOption) error {
	_, err := retry(ctx, r, opts, func() (struct{}, error) {
		return struct{}{}, r.Release(cp)
	})
	return err
}

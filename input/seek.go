package input

import "io"

// SeekInput implements Rewinder on top of a source's own Seek. It keeps no
// state and buffers nothing; a checkpoint is the raw source offset.
//
// SeekInput and BufferInput return the same bytes for the same sequence of
// reads, checkpoints and rewinds. Prefer SeekInput whenever the source can
// seek.
type SeekInput struct {
	r io.ReadSeeker
}

// NewSeek returns a SeekInput over r.
func NewSeek(r io.ReadSeeker) *SeekInput {
	return &SeekInput{r: r}
}

func (s *SeekInput) Read(p []byte) (int, error) {
	return s.r.Read(p)
}

func (s *SeekInput) Position() (int64, error) {
	off, err := s.r.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, wrapReadError(err)
	}
	return off, nil
}

func (s *SeekInput) SetCheckpoint() (Checkpoint, error) {
	off, err := s.Position()
	return Checkpoint(off), err
}

func (s *SeekInput) Rewind(cp Checkpoint) error {
	if _, err := s.r.Seek(int64(cp), io.SeekStart); err != nil {
		return wrapReadError(err)
	}
	return nil
}

// Release is a no-op: nothing is retained on behalf of a checkpoint.
func (s *SeekInput) Release(cp Checkpoint) error {
	return nil
}

// Ready forwards the source's readiness channel, if it has one.
func (s *SeekInput) Ready() <-chan struct{} {
	return ready(s.r)
}

// Unwrap returns the underlying source.
func (s *SeekInput) Unwrap() io.ReadSeeker {
	return s.r
}

package input

import "io"

// Checkpoint marks an absolute stream offset that can be rewound to.
//
// Copying a Checkpoint does not add a reference: each call to SetCheckpoint
// must be matched by exactly one Rewind or Release of the value it returned.
type Checkpoint int64

// Offset returns the absolute stream offset the checkpoint marks.
func (c Checkpoint) Offset() int64 {
	return int64(c)
}

// Rewinder is the checkpoint capability of a reader.
type Rewinder interface {
	// Position returns the absolute offset of the next byte to be read.
	Position() (int64, error)
	// SetCheckpoint marks the current position.
	SetCheckpoint() (Checkpoint, error)
	// Rewind restores the position to cp and drops the reference cp holds.
	Rewind(cp Checkpoint) error
	// Release drops the reference cp holds without moving the position.
	Release(cp Checkpoint) error
}

// ReadRewinder is a reader whose position can be checkpointed and restored.
type ReadRewinder interface {
	io.Reader
	Rewinder
}

// For returns a ReadRewinder over r. Sources that can report their position
// through Seek are wrapped in a SeekInput, everything else in a BufferInput.
// Pipes and terminals behind an *os.File fail the probe and get buffered.
func For(r io.Reader, opts ...Option) ReadRewinder {
	if rr, ok := r.(ReadRewinder); ok {
		return rr
	}
	if s, ok := r.(io.ReadSeeker); ok {
		if _, err := s.Seek(0, io.SeekCurrent); err == nil {
			return NewSeek(s)
		}
	}
	return NewBuffer(r, opts...)
}

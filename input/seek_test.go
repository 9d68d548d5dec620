package input

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
)

type brokenSeeker struct {
	io.Reader
	err error
}

func (s *brokenSeeker) Seek(offset int64, whence int) (int64, error) {
	return 0, s.err
}

func TestSeekScenario(t *testing.T) {
	r := NewSeek(strings.NewReader("ABCDEFGH"))

	cp0 := checkpoint(t, r)
	if got := readN(t, r, 3); got != "ABC" {
		t.Errorf("read = %q, want %q", got, "ABC")
	}
	cp1 := checkpoint(t, r)
	if cp1 != 3 {
		t.Errorf("cp1 = %d, want %d", cp1, 3)
	}
	readN(t, r, 2)
	rewind(t, r, cp1)
	if got := readN(t, r, 3); got != "DEF" {
		t.Errorf("read = %q, want %q", got, "DEF")
	}
	rewind(t, r, cp0)
	if got := readN(t, r, 4); got != "ABCD" {
		t.Errorf("read = %q, want %q", got, "ABCD")
	}
	if got := position(t, r); got != 4 {
		t.Errorf("Position() = %d, want %d", got, 4)
	}
	if err := r.Release(cp1); err != nil {
		t.Errorf("Release() = %v, want nil", err)
	}
}

func TestSeekErrors(t *testing.T) {
	boom := errors.New("illegal seek")
	r := NewSeek(&brokenSeeker{Reader: strings.NewReader("abc"), err: boom})

	_, err := r.Position()
	var re *ReadError
	if !errors.As(err, &re) {
		t.Fatalf("Position() error = %v, want *ReadError", err)
	}
	if !errors.Is(err, boom) {
		t.Errorf("Position() error does not wrap %v", boom)
	}

	if _, err := r.SetCheckpoint(); !errors.Is(err, boom) {
		t.Errorf("SetCheckpoint() error = %v, want %v", err, boom)
	}
	if err := r.Rewind(0); !errors.As(err, &re) {
		t.Errorf("Rewind() error = %v, want *ReadError", err)
	}
}

func TestSeekMatchesBuffer(t *testing.T) {
	data := []byte(strings.Repeat("the quick brown fox jumps over the lazy dog. ", 8))

	for seed := uint64(100); seed < 110; seed++ {
		buffered := scriptRun(t, NewBuffer(&countingSource{data: data, chunk: 5}), data, seed, nil)
		seeked := scriptRun(t, NewSeek(bytes.NewReader(data)), data, seed, nil)
		if !bytes.Equal(buffered, seeked) {
			t.Errorf("seed %d: BufferInput and SeekInput disagree\nbuffer: %q\nseek:   %q", seed, buffered, seeked)
		}
	}
}

func TestFor(t *testing.T) {
	pr, pw, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer pr.Close()
	defer pw.Close()

	buffered := NewBuffer(strings.NewReader(""))

	tests := []struct {
		name string
		src  io.Reader
		want string
	}{
		{"bytes reader", bytes.NewReader(nil), "*input.SeekInput"},
		{"plain reader", &countingSource{}, "*input.BufferInput"},
		{"pipe", pr, "*input.BufferInput"},
		{"already rewindable", buffered, "*input.BufferInput"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			switch For(tt.src).(type) {
			case *SeekInput:
				got = "*input.SeekInput"
			case *BufferInput:
				got = "*input.BufferInput"
			}
			if got != tt.want {
				t.Errorf("For() = %s, want %s", got, tt.want)
			}
		})
	}

	if For(buffered) != ReadRewinder(buffered) {
		t.Error("For() rewrapped a ReadRewinder")
	}
}

// Package replay runs checkpoint scripts against a rewindable reader.
//
// A script is a list of steps separated by semicolons or newlines:
//
//	set            mark the current position (checkpoints are numbered from 0)
//	read N         read N bytes
//	rewind K       rewind to checkpoint K
//	release K      drop checkpoint K without moving
//	pos            print the current position
//
// Text after # is a comment.
package replay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dhamidi/backtrack/input"
)

// Op is a script operation.
type Op int

const (
	OpSet Op = iota
	OpRead
	OpRewind
	OpRelease
	OpPosition
)

var opNames = map[string]Op{
	"set":     OpSet,
	"read":    OpRead,
	"rewind":  OpRewind,
	"release": OpRelease,
	"pos":     OpPosition,
}

func (o Op) String() string {
	for name, op := range opNames {
		if op == o {
			return name
		}
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// Step is one parsed script operation.
type Step struct {
	Op  Op
	Arg int
}

func (s Step) String() string {
	switch s.Op {
	case OpSet, OpPosition:
		return s.Op.String()
	}
	return fmt.Sprintf("%s %d", s.Op, s.Arg)
}

// Parse parses a script.
func Parse(script string) ([]Step, error) {
	var steps []Step
	for _, line := range strings.Split(script, "\n") {
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		for _, field := range strings.Split(line, ";") {
			words := strings.Fields(field)
			if len(words) == 0 {
				continue
			}
			op, ok := opNames[words[0]]
			if !ok {
				return nil, fmt.Errorf("unknown step %q", words[0])
			}
			step := Step{Op: op}
			switch op {
			case OpSet, OpPosition:
				if len(words) != 1 {
					return nil, fmt.Errorf("%s takes no argument", words[0])
				}
			default:
				if len(words) != 2 {
					return nil, fmt.Errorf("%s takes one argument", words[0])
				}
				n, err := strconv.Atoi(words[1])
				if err != nil || n < 0 {
					return nil, fmt.Errorf("%s: invalid argument %q", words[0], words[1])
				}
				step.Arg = n
			}
			steps = append(steps, step)
		}
	}
	return steps, nil
}

type stats interface {
	Buffered() int
}

// Run executes steps against r and writes one line per step to w.
// Referring to a checkpoint that was never set or is already spent stops
// the run with an error before r is touched.
func Run(ctx context.Context, r input.ReadRewinder, steps []Step, w io.Writer) error {
	var cps []input.Checkpoint
	var spent []bool

	lookup := func(i int) (input.Checkpoint, error) {
		if i >= len(cps) {
			return 0, fmt.Errorf("checkpoint #%d was never set", i)
		}
		if spent[i] {
			return 0, fmt.Errorf("checkpoint #%d already spent", i)
		}
		spent[i] = true
		return cps[i], nil
	}

	for n, step := range steps {
		var line string
		switch step.Op {
		case OpSet:
			cp, err := input.SetCheckpointContext(ctx, r)
			if err != nil {
				return fmt.Errorf("step %d (%s): %w", n+1, step, err)
			}
			line = fmt.Sprintf("set #%d at %d", len(cps), cp.Offset())
			cps = append(cps, cp)
			spent = append(spent, false)

		case OpRead:
			buf := make([]byte, step.Arg)
			got := 0
			for got < len(buf) {
				k, err := input.ReadContext(ctx, r, buf[got:])
				got += k
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					return fmt.Errorf("step %d (%s): %w", n+1, step, err)
				}
			}
			line = fmt.Sprintf("read %d %q", step.Arg, buf[:got])
			if got < len(buf) {
				line += " (eof)"
			}

		case OpRewind:
			cp, err := lookup(step.Arg)
			if err != nil {
				return fmt.Errorf("step %d (%s): %w", n+1, step, err)
			}
			if err := input.RewindContext(ctx, r, cp); err != nil {
				return fmt.Errorf("step %d (%s): %w", n+1, step, err)
			}
			line = fmt.Sprintf("rewind #%d to %d", step.Arg, cp.Offset())

		case OpRelease:
			cp, err := lookup(step.Arg)
			if err != nil {
				return fmt.Errorf("step %d (%s): %w", n+1, step, err)
			}
			if err := input.ReleaseContext(ctx, r, cp); err != nil {
				return fmt.Errorf("step %d (%s): %w", n+1, step, err)
			}
			line = fmt.Sprintf("release #%d", step.Arg)

		case OpPosition:
			pos, err := input.PositionContext(ctx, r)
			if err != nil {
				return fmt.Errorf("step %d (%s): %w", n+1, step, err)
			}
			line = fmt.Sprintf("position %d", pos)
		}

		pos, err := r.Position()
		if err != nil {
			return fmt.Errorf("step %d (%s): %w", n+1, step, err)
		}
		line += fmt.Sprintf(" [pos %d", pos)
		if s, ok := r.(stats); ok {
			line += fmt.Sprintf(" buffered %d", s.Buffered())
		}
		line += "]"

		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

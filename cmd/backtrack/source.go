package main

import (
	"fmt"
	"io"
	"os"

	"github.com/dhamidi/backtrack/input"
)

// openSource opens the named file, or stdin for "" and "-". With seek set,
// regular files are read through a SeekInput; everything else is buffered.
func openSource(name string, seek bool) (input.ReadRewinder, string, io.Closer, error) {
	if name == "" || name == "-" {
		return input.NewBuffer(os.Stdin), "<stdin>", io.NopCloser(os.Stdin), nil
	}

	f, err := os.Open(name)
	if err != nil {
		return nil, "", nil, fmt.Errorf("open file: %w", err)
	}
	if seek {
		return input.For(f), name, f, nil
	}
	return input.NewBuffer(f), name, f, nil
}

func argOrStdin(args []string) string {
	if len(args) == 0 {
		return "-"
	}
	return args[0]
}

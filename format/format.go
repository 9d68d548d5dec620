// Package format writes lexer tokens in the output formats of the lex command.
package format

import (
	"fmt"
	"io"

	"github.com/dhamidi/backtrack/ebnflex"
)

type Encoder interface {
	Encode(tok ebnflex.Token) error
}

// NewEncoder returns the encoder registered under name.
func NewEncoder(name string, w io.Writer) (Encoder, error) {
	switch name {
	case "text", "":
		return NewTextEncoder(w), nil
	case "json":
		return NewJSONEncoder(w), nil
	default:
		return nil, fmt.Errorf("unknown format: %s", name)
	}
}

// TextEncoder writes one token per line as "file:line:col Kind literal".
type TextEncoder struct {
	w io.Writer
}

func NewTextEncoder(w io.Writer) *TextEncoder {
	return &TextEncoder{w: w}
}

func (e *TextEncoder) Encode(tok ebnflex.Token) error {
	_, err := fmt.Fprintln(e.w, tok)
	return err
}

package format

import (
	"io"

	"github.com/dhamidi/backtrack/ebnflex"
	json "github.com/goccy/go-json"
)

// JSONEncoder writes one JSON object per token and line.
type JSONEncoder struct {
	w io.Writer
}

func NewJSONEncoder(w io.Writer) *JSONEncoder {
	return &JSONEncoder{w: w}
}

type jsonToken struct {
	Kind     string       `json:"kind"`
	Literal  string       `json:"literal"`
	Position jsonPosition `json:"position"`
}

type jsonPosition struct {
	Filename string `json:"filename,omitempty"`
	Offset   int64  `json:"offset"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
}

func (e *JSONEncoder) Encode(tok ebnflex.Token) error {
	data, err := json.Marshal(jsonToken{
		Kind:    tok.Kind,
		Literal: tok.Literal,
		Position: jsonPosition{
			Filename: tok.Position.Filename,
			Offset:   tok.Position.Offset,
			Line:     tok.Position.Line,
			Column:   tok.Position.Column,
		},
	})
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = e.w.Write(data)
	return err
}

package ebnflex

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/dhamidi/backtrack/input"
	"golang.org/x/exp/ebnf"
)

const testGrammar = `
	Ident = letter { letter | digit } .
	Number = digit { digit } [ "." digit { digit } ] .
	Operator = "==" | "=" | "+" | "<=" | "<" .
	WhiteSpace = ( " " | "\n" ) { " " | "\n" } .
	Greek = "α" … "ω" { "α" … "ω" } .
	letter = "a" … "z" | "_" .
	digit = "0" … "9" .
`

func mustGrammar(t *testing.T, src string) ebnf.Grammar {
	t.Helper()
	g, err := ParseGrammar("test.ebnf", strings.NewReader(src))
	if err != nil {
		t.Fatalf("parse grammar: %v", err)
	}
	return g
}

func tokenize(t *testing.T, g ebnf.Grammar, r input.ReadRewinder, opts ...Option) []Token {
	t.Helper()
	tokens, err := NewLexer(g, r, opts...).Tokenize(context.Background())
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	return tokens
}

func TestLexerTokens(t *testing.T) {
	g := mustGrammar(t, testGrammar)

	tests := []struct {
		input string
		want  []string // kind:literal
	}{
		{"x1 = 42 == y", []string{"Ident:x1", "Operator:=", "Number:42", "Operator:==", "Ident:y", "EOF:"}},
		{"3.14", []string{"Number:3.14"}},
		{"3.", []string{"Number:3", "ERROR:."}},
		{"a<=b", []string{"Ident:a", "Operator:<=", "Ident:b"}},
		{"a#b", []string{"Ident:a", "ERROR:#", "Ident:b"}},
		{"λαβ x", []string{"Greek:λαβ", "Ident:x"}},
		{"", []string{"EOF:"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tokens := tokenize(t, g, input.NewBuffer(strings.NewReader(tt.input)), WithSkip("WhiteSpace"))
			var got []string
			for _, tok := range tokens {
				got = append(got, tok.Kind+":"+tok.Literal)
			}
			if tt.want[len(tt.want)-1] != "EOF:" {
				got = got[:len(got)-1]
			}
			if strings.Join(got, " ") != strings.Join(tt.want, " ") {
				t.Errorf("tokens = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLexerPositions(t *testing.T) {
	g := mustGrammar(t, testGrammar)
	tokens := tokenize(t, g, input.NewBuffer(strings.NewReader("ab =\n  cd")),
		WithSkip("WhiteSpace"), WithFilename("pos.txt"))

	want := []Position{
		{Filename: "pos.txt", Offset: 0, Line: 1, Column: 1},
		{Filename: "pos.txt", Offset: 3, Line: 1, Column: 4},
		{Filename: "pos.txt", Offset: 7, Line: 2, Column: 3},
		{Filename: "pos.txt", Offset: 9, Line: 2, Column: 5},
	}
	if len(tokens) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(tokens), len(want), tokens)
	}
	for i, tok := range tokens {
		if tok.Position != want[i] {
			t.Errorf("token %d (%s) position = %v, want %v", i, tok.Kind, tok.Position, want[i])
		}
	}
	if got := tokens[2].Position.String(); got != "pos.txt:2:3" {
		t.Errorf("Position.String() = %q, want %q", got, "pos.txt:2:3")
	}
}

func TestLexerPositionsAfterRewind(t *testing.T) {
	g := mustGrammar(t, testGrammar)
	lexer := NewLexer(g, input.NewBuffer(strings.NewReader("ab\ncd\nef")), WithSkip("WhiteSpace"))
	ctx := context.Background()

	lex := func() []Position {
		t.Helper()
		var got []Position
		for range 2 {
			tok, err := lexer.NextToken(ctx)
			if err != nil {
				t.Fatalf("NextToken: %v", err)
			}
			got = append(got, tok.Position)
		}
		return got
	}

	cp, err := lexer.Input().SetCheckpoint()
	if err != nil {
		t.Fatalf("SetCheckpoint: %v", err)
	}
	first := lex()
	if err := lexer.Input().Rewind(cp); err != nil {
		t.Fatalf("Rewind: %v", err)
	}
	if got := lexer.Position(); got.Line != 1 || got.Column != 1 {
		t.Errorf("Position() after rewind = %d:%d, want 1:1", got.Line, got.Column)
	}
	again := lex()

	want := []Position{{Offset: 0, Line: 1, Column: 1}, {Offset: 3, Line: 2, Column: 1}}
	for i := range want {
		if first[i] != want[i] {
			t.Errorf("token %d position = %v, want %v", i, first[i], want[i])
		}
		if again[i] != want[i] {
			t.Errorf("replayed token %d position = %v, want %v", i, again[i], want[i])
		}
	}

	tok, err := lexer.NextToken(ctx)
	if err != nil {
		t.Fatalf("NextToken: %v", err)
	}
	if tok.Literal != "ef" || tok.Position.Line != 3 || tok.Position.Column != 1 {
		t.Errorf("third token = %v, want \"ef\" at 3:1", tok)
	}
}

func TestLexerSeekAndBufferAgree(t *testing.T) {
	g := mustGrammar(t, testGrammar)
	src := "alpha = beta + 12.5 <= gamma_2 == 7 ? x"

	buffered := tokenize(t, g, input.NewBuffer(iotest.OneByteReader(strings.NewReader(src))))
	seeked := tokenize(t, g, input.NewSeek(strings.NewReader(src)))

	if len(buffered) != len(seeked) {
		t.Fatalf("BufferInput gave %d tokens, SeekInput %d", len(buffered), len(seeked))
	}
	for i := range buffered {
		if buffered[i] != seeked[i] {
			t.Errorf("token %d: buffer %v, seek %v", i, buffered[i], seeked[i])
		}
	}
}

func TestLexerReleasesBuffer(t *testing.T) {
	g := mustGrammar(t, testGrammar)
	r := input.NewBuffer(iotest.OneByteReader(strings.NewReader("one two three 4 5 6")))
	lexer := NewLexer(g, r)

	for {
		_, err := lexer.NextToken(context.Background())
		if got := r.Checkpoints(); got != 0 {
			t.Fatalf("Checkpoints() between tokens = %d, want 0", got)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("NextToken: %v", err)
		}
	}
	if got := r.Buffered(); got != 0 {
		t.Errorf("Buffered() at end = %d, want 0", got)
	}
}

func TestLexerMatch(t *testing.T) {
	g := mustGrammar(t, testGrammar)
	lexer := NewLexer(g, input.NewBuffer(strings.NewReader("abc 12")))
	ctx := context.Background()

	_, err := lexer.Match(ctx, "Number")
	var expected *input.ExpectedError
	if !errors.As(err, &expected) {
		t.Fatalf("Match(Number) error = %v, want *input.ExpectedError", err)
	}
	if expected.Expected != "Number" || expected.Start != 0 {
		t.Errorf("ExpectedError = %+v, want Expected Number at 0", expected)
	}
	if got := lexer.Position().Offset; got != 0 {
		t.Errorf("Position().Offset after failed match = %d, want 0", got)
	}

	tok, err := lexer.Match(ctx, "Ident")
	if err != nil {
		t.Fatalf("Match(Ident): %v", err)
	}
	if tok.Literal != "abc" {
		t.Errorf("Match(Ident) literal = %q, want %q", tok.Literal, "abc")
	}

	if _, err := lexer.Match(ctx, "Missing"); err == nil {
		t.Error("Match(Missing) succeeded, want error")
	}
	if _, err := lexer.Match(ctx, "WhiteSpace"); err != nil {
		t.Fatalf("Match(WhiteSpace): %v", err)
	}
	tok, err = lexer.Match(ctx, "digit")
	if err != nil || tok.Literal != "1" {
		t.Errorf("Match(digit) = %v, %v; want literal %q", tok, err, "1")
	}
}

func TestLexerLeftRecursion(t *testing.T) {
	g := mustGrammar(t, `
		Expr = Expr "+" Num | Num .
		Num = "0" … "9" .
	`)
	tokens := tokenize(t, g, input.NewBuffer(strings.NewReader("1+2")))

	var got []string
	for _, tok := range tokens {
		got = append(got, tok.Kind+":"+tok.Literal)
	}
	// The recursive reference is cut off at its own offset, so the
	// production expands exactly once.
	want := "Expr:1+2 EOF:"
	if strings.Join(got, " ") != want {
		t.Errorf("tokens = %v, want %s", got, want)
	}
}

func TestLexerSourceError(t *testing.T) {
	g := mustGrammar(t, testGrammar)
	boom := errors.New("boom")
	r := input.NewBuffer(io.MultiReader(strings.NewReader("abc "), iotest.ErrReader(boom)))

	_, err := NewLexer(g, r).Tokenize(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("Tokenize() error = %v, want %v", err, boom)
	}
}

func TestTokenNames(t *testing.T) {
	g := mustGrammar(t, testGrammar)
	got := strings.Join(TokenNames(g), " ")
	want := "Greek Ident Number Operator WhiteSpace"
	if got != want {
		t.Errorf("TokenNames() = %q, want %q", got, want)
	}
}

// brokenRewinder fails every Rewind once its source has failed.
type brokenRewinder struct {
	*input.BufferInput
	failed bool
}

var errRewind = errors.New("rewind failed")

func (b *brokenRewinder) Read(p []byte) (int, error) {
	n, err := b.BufferInput.Read(p)
	if err != nil && err != io.EOF {
		b.failed = true
	}
	return n, err
}

func (b *brokenRewinder) Rewind(cp input.Checkpoint) error {
	if err := b.BufferInput.Rewind(cp); err != nil {
		return err
	}
	if b.failed {
		return errRewind
	}
	return nil
}

func TestLexerReportsRewindErrors(t *testing.T) {
	g := mustGrammar(t, testGrammar)
	boom := errors.New("boom")
	r := &brokenRewinder{BufferInput: input.NewBuffer(io.MultiReader(strings.NewReader("ab"), iotest.ErrReader(boom)))}

	_, err := NewLexer(g, r).Match(context.Background(), "Ident")
	if !errors.Is(err, boom) {
		t.Errorf("Match() error = %v, want %v", err, boom)
	}
	if !errors.Is(err, errRewind) {
		t.Errorf("Match() error = %v, want %v", err, errRewind)
	}
}

func TestLoadGrammarErrors(t *testing.T) {
	if _, err := LoadGrammar("does-not-exist.ebnf"); err == nil {
		t.Error("LoadGrammar(missing) succeeded, want error")
	}
	if _, err := ParseGrammar("bad.ebnf", strings.NewReader("A = ")); err == nil {
		t.Error("ParseGrammar(bad) succeeded, want error")
	}
}

// Package ebnflex provides lexical scanning based on EBNF grammars.
//
// The lexer reads its input as a stream. Every alternative, option and
// repetition is tried speculatively under an input checkpoint and rewound
// when it does not match, so the input never has to be held in memory as a
// whole and non-seekable sources such as pipes work unchanged.
package ebnflex

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"unicode/utf8"

	"github.com/dhamidi/backtrack/input"
	"github.com/tliron/commonlog"
	"golang.org/x/exp/ebnf"
)

// Position represents a location in source code.
type Position struct {
	Filename string
	Offset   int64
	Line     int
	Column   int
}

func (p Position) String() string {
	if p.Filename != "" {
		return fmt.Sprintf("%s:%d:%d", p.Filename, p.Line, p.Column)
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Token represents a lexical token with its position.
type Token struct {
	Kind     string
	Literal  string
	Position Position
}

func (t Token) String() string {
	return fmt.Sprintf("%s %s %q", t.Position, t.Kind, t.Literal)
}

// Token kinds produced by the lexer itself.
const (
	KindEOF   = "EOF"
	KindError = "ERROR"
)

// memoKey is used for memoization of match results.
type memoKey struct {
	name   string
	offset int64
}

// Option configures a Lexer.
type Option func(*Lexer)

// WithFilename sets the file name reported in token positions.
func WithFilename(name string) Option {
	return func(l *Lexer) {
		l.filename = name
	}
}

// WithSkip makes NextToken drop tokens of the given kinds, typically
// whitespace and comments.
func WithSkip(kinds ...string) Option {
	return func(l *Lexer) {
		for _, k := range kinds {
			l.skip[k] = true
		}
	}
}

// Lexer tokenizes input based on an EBNF grammar.
type Lexer struct {
	grammar  ebnf.Grammar
	tokens   []string
	in       *input.Input
	filename string
	lines    []int64 // offsets of the line starts seen so far
	skip     map[string]bool
	memo     map[memoKey]int64 // match length per production and offset (-1 = no match)
	visiting map[memoKey]bool  // cycle detection
	log      commonlog.Logger
}

// NewLexer creates a lexer for the given grammar reading from r.
func NewLexer(grammar ebnf.Grammar, r input.ReadRewinder, opts ...Option) *Lexer {
	in, ok := r.(*input.Input)
	if !ok {
		in = input.New(r)
	}

	l := &Lexer{
		grammar:  grammar,
		tokens:   TokenNames(grammar),
		in:       in,
		lines:    []int64{0},
		skip:     make(map[string]bool),
		memo:     make(map[memoKey]int64),
		visiting: make(map[memoKey]bool),
		log:      commonlog.GetLogger("backtrack.ebnflex"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// TokenNames returns the token productions of grammar in name order. Token
// productions start with an uppercase letter; trying them in name order makes
// ties between equally long matches deterministic.
func TokenNames(grammar ebnf.Grammar) []string {
	var tokens []string
	for name, prod := range grammar {
		if prod.Expr == nil || len(name) == 0 || name[0] < 'A' || name[0] > 'Z' {
			continue
		}
		tokens = append(tokens, name)
	}
	slices.Sort(tokens)
	return tokens
}

// LoadGrammar loads an EBNF grammar from a file.
func LoadGrammar(filename string) (ebnf.Grammar, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open grammar: %w", err)
	}
	defer f.Close()

	return ParseGrammar(filename, f)
}

// ParseGrammar parses an EBNF grammar from r.
func ParseGrammar(filename string, r io.Reader) (ebnf.Grammar, error) {
	grammar, err := ebnf.Parse(filename, r)
	if err != nil {
		return nil, fmt.Errorf("parse grammar: %w", err)
	}
	return grammar, nil
}

// Position returns the current position in the input. Line and column are
// derived from the offset, so they stay right after the input is rewound.
func (l *Lexer) Position() Position {
	off, _ := l.in.Position()
	line, found := slices.BinarySearch(l.lines, off)
	if !found {
		line--
	}
	return Position{
		Filename: l.filename,
		Offset:   off,
		Line:     line + 1,
		Column:   int(off-l.lines[line]) + 1,
	}
}

// Input returns the rewindable input the lexer reads from. A parser can set
// checkpoints on it to backtrack over whole tokens. Newlines are only counted
// in bytes consumed as tokens, so reading past them directly through Input
// leaves later line numbers short.
func (l *Lexer) Input() *input.Input {
	return l.in
}

// NextToken returns the next token from the input, skipping the kinds
// configured with WithSkip. At the end of input it returns an EOF token and
// io.EOF. The longest match of any token production wins; a byte no
// production matches is returned as a one-byte ERROR token.
func (l *Lexer) NextToken(ctx context.Context) (Token, error) {
	for {
		tok, err := l.nextToken(ctx)
		if err != nil || !l.skip[tok.Kind] {
			return tok, err
		}
	}
}

func (l *Lexer) nextToken(ctx context.Context) (Token, error) {
	start := l.Position()

	atEOF, err := l.atEOF(ctx)
	if err != nil {
		return Token{}, err
	}
	if atEOF {
		return Token{Kind: KindEOF, Position: start}, io.EOF
	}

	// Clear memoization cache for each new token
	clear(l.memo)

	var bestKind string
	var bestLen int64
	for _, name := range l.tokens {
		n, ok, err := l.attempt(func() (int64, bool, error) {
			clear(l.visiting)
			return l.tryMatch(ctx, l.grammar[name].Expr)
		})
		if err != nil {
			return Token{}, err
		}
		if ok && n > bestLen {
			bestLen = n
			bestKind = name
		}
	}

	if bestLen == 0 {
		lit, err := l.consume(ctx, 1)
		if err != nil {
			return Token{}, err
		}
		l.log.Debugf("%s: no token matches %q", start, lit)
		return Token{Kind: KindError, Literal: lit, Position: start}, nil
	}

	lit, err := l.consume(ctx, bestLen)
	if err != nil {
		return Token{}, err
	}
	return Token{Kind: bestKind, Literal: lit, Position: start}, nil
}

// Match matches the named production at the current position and returns
// it as a token. If it does not match, the input is left where it was and an
// *input.ExpectedError spanning the bytes examined is returned.
func (l *Lexer) Match(ctx context.Context, name string) (Token, error) {
	start := l.Position()
	if _, ok := l.grammar[name]; !ok {
		return Token{}, fmt.Errorf("match: no production %q", name)
	}

	clear(l.memo)
	clear(l.visiting)

	cp, err := l.in.SetCheckpoint()
	if err != nil {
		return Token{}, err
	}
	n, ok, err := l.tryMatchName(ctx, name)
	if err != nil {
		return Token{}, errors.Join(err, l.in.Rewind(cp))
	}
	if !ok {
		end, _ := l.in.Position()
		if err := l.in.Rewind(cp); err != nil {
			return Token{}, err
		}
		return Token{}, &input.ExpectedError{Start: start.Offset, End: max(end, start.Offset+1), Expected: name}
	}
	if err := l.in.Rewind(cp); err != nil {
		return Token{}, err
	}

	lit, err := l.consume(ctx, n)
	if err != nil {
		return Token{}, err
	}
	return Token{Kind: name, Literal: lit, Position: start}, nil
}

// Tokenize reads all tokens from input. The final token is the EOF token.
func (l *Lexer) Tokenize(ctx context.Context) ([]Token, error) {
	var tokens []Token
	for {
		tok, err := l.NextToken(ctx)
		if err == io.EOF {
			tokens = append(tokens, tok)
			break
		}
		if err != nil {
			return tokens, err
		}
		tokens = append(tokens, tok)
	}
	return tokens, nil
}

// attempt runs match under a checkpoint and always rewinds afterwards.
func (l *Lexer) attempt(match func() (int64, bool, error)) (int64, bool, error) {
	cp, err := l.in.SetCheckpoint()
	if err != nil {
		return 0, false, err
	}
	n, ok, err := match()
	if rerr := l.in.Rewind(cp); rerr != nil {
		err = errors.Join(err, rerr)
	}
	return n, ok, err
}

func (l *Lexer) atEOF(ctx context.Context) (bool, error) {
	_, ok, err := l.attempt(func() (int64, bool, error) {
		_, ok, err := l.read(ctx)
		return 0, ok, err
	})
	return !ok, err
}

// read returns the next byte; ok is false at the end of input.
func (l *Lexer) read(ctx context.Context) (byte, bool, error) {
	b, err := l.in.NextContext(ctx)
	if errors.Is(err, io.EOF) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return b, true, nil
}

// skipN advances past n bytes already known to be there.
func (l *Lexer) skipN(ctx context.Context, n int64) error {
	if n == 0 {
		return nil
	}
	_, err := l.in.Discard(ctx, n)
	return err
}

// consume reads n bytes as a token literal, recording the line starts it
// passes.
func (l *Lexer) consume(ctx context.Context, n int64) (string, error) {
	off, err := l.in.Position()
	if err != nil {
		return "", err
	}
	lit := make([]byte, 0, n)
	for int64(len(lit)) < n {
		b, ok, err := l.read(ctx)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", io.ErrUnexpectedEOF
		}
		lit = append(lit, b)
		next := off + int64(len(lit))
		if b == '\n' && next > l.lines[len(l.lines)-1] {
			l.lines = append(l.lines, next)
		}
	}
	return string(lit), nil
}

// tryMatch attempts to match an expression at the current position. On a
// match it returns the number of bytes consumed and leaves the input just
// past them. Otherwise the input position is unspecified and the caller must
// rewind.
func (l *Lexer) tryMatch(ctx context.Context, expr ebnf.Expression) (int64, bool, error) {
	switch e := expr.(type) {
	case nil:
		return 0, true, nil

	case *ebnf.Token:
		return l.tryMatchToken(ctx, e.String)

	case *ebnf.Range:
		return l.tryMatchRange(ctx, e.Begin.String, e.End.String)

	case ebnf.Sequence:
		var total int64
		for _, item := range e {
			n, ok, err := l.tryMatch(ctx, item)
			if err != nil || !ok {
				return 0, false, err
			}
			total += n
		}
		return total, true, nil

	case ebnf.Alternative:
		// Longest alternative wins.
		best := int64(-1)
		for _, alt := range e {
			n, ok, err := l.attempt(func() (int64, bool, error) {
				return l.tryMatch(ctx, alt)
			})
			if err != nil {
				return 0, false, err
			}
			if ok && n > best {
				best = n
			}
		}
		if best < 0 {
			return 0, false, nil
		}
		return best, true, l.skipN(ctx, best)

	case *ebnf.Repetition:
		var total int64
		for {
			cp, err := l.in.SetCheckpoint()
			if err != nil {
				return 0, false, err
			}
			n, ok, err := l.tryMatch(ctx, e.Body)
			if err != nil {
				return 0, false, errors.Join(err, l.in.Rewind(cp))
			}
			if !ok || n == 0 {
				return total, true, l.in.Rewind(cp)
			}
			if err := l.in.Release(cp); err != nil {
				return 0, false, err
			}
			total += n
		}

	case *ebnf.Option:
		cp, err := l.in.SetCheckpoint()
		if err != nil {
			return 0, false, err
		}
		n, ok, err := l.tryMatch(ctx, e.Body)
		if err != nil {
			return 0, false, errors.Join(err, l.in.Rewind(cp))
		}
		if !ok {
			// Option always succeeds
			return 0, true, l.in.Rewind(cp)
		}
		return n, true, l.in.Release(cp)

	case *ebnf.Group:
		return l.tryMatch(ctx, e.Body)

	case *ebnf.Name:
		return l.tryMatchName(ctx, e.String)

	default:
		return 0, false, nil
	}
}

// tryMatchName matches a named production with memoization and cycle detection.
func (l *Lexer) tryMatchName(ctx context.Context, name string) (int64, bool, error) {
	offset, err := l.in.Position()
	if err != nil {
		return 0, false, err
	}
	key := memoKey{name: name, offset: offset}

	if n, ok := l.memo[key]; ok {
		if n < 0 {
			return 0, false, nil
		}
		return n, true, l.skipN(ctx, n)
	}

	// Already inside this production at this offset: left recursion.
	if l.visiting[key] {
		return 0, false, nil
	}

	prod, ok := l.grammar[name]
	if !ok {
		l.memo[key] = -1
		return 0, false, nil
	}

	l.visiting[key] = true
	n, ok, err := l.tryMatch(ctx, prod.Expr)
	delete(l.visiting, key)
	if err != nil {
		return 0, false, err
	}

	if ok {
		l.memo[key] = n
	} else {
		l.memo[key] = -1
	}
	return n, ok, nil
}

// tryMatchToken matches a literal string token.
func (l *Lexer) tryMatchToken(ctx context.Context, s string) (int64, bool, error) {
	for i := 0; i < len(s); i++ {
		b, ok, err := l.read(ctx)
		if err != nil || !ok || b != s[i] {
			return 0, false, err
		}
	}
	return int64(len(s)), true, nil
}

// tryMatchRange matches one character in a range such as "a" … "z".
func (l *Lexer) tryMatchRange(ctx context.Context, begin, end string) (int64, bool, error) {
	lo, _ := utf8.DecodeRuneInString(begin)
	hi, _ := utf8.DecodeRuneInString(end)
	if lo == utf8.RuneError || hi == utf8.RuneError {
		return 0, false, nil
	}

	r, size, err := l.readRune(ctx)
	if err != nil || size == 0 {
		return 0, false, err
	}
	if r < lo || r > hi {
		return 0, false, nil
	}
	return int64(size), true, nil
}

// readRune reads one UTF-8 encoded rune. Invalid encodings decode as
// utf8.RuneError of size 1; size is 0 at the end of input.
func (l *Lexer) readRune(ctx context.Context) (rune, int, error) {
	var buf [utf8.UTFMax]byte
	b, ok, err := l.read(ctx)
	if err != nil || !ok {
		return 0, 0, err
	}
	buf[0] = b
	if b < utf8.RuneSelf {
		return rune(b), 1, nil
	}

	want := 0
	switch {
	case b&0xE0 == 0xC0:
		want = 2
	case b&0xF0 == 0xE0:
		want = 3
	case b&0xF8 == 0xF0:
		want = 4
	default:
		return utf8.RuneError, 1, nil
	}
	for i := 1; i < want; i++ {
		b, ok, err := l.read(ctx)
		if err != nil {
			return 0, 0, err
		}
		if !ok {
			return utf8.RuneError, i, nil
		}
		buf[i] = b
	}
	r, size := utf8.DecodeRune(buf[:want])
	if size != want {
		return utf8.RuneError, want, nil
	}
	return r, size, nil
}

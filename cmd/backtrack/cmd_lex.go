package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/dhamidi/backtrack/ebnflex"
	"github.com/dhamidi/backtrack/format"
	"github.com/spf13/cobra"
)

func newLexCmd() *cobra.Command {
	var grammarFile string
	var seek bool
	var skip []string
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "lex [file]",
		Short: "Tokenize a file or stdin with an EBNF token grammar",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			grammar, err := ebnflex.LoadGrammar(grammarFile)
			if err != nil {
				printErrors(cmd.ErrOrStderr(), err)
				return err
			}

			enc, err := format.NewEncoder(outputFormat, cmd.OutOrStdout())
			if err != nil {
				return err
			}

			r, name, closer, err := openSource(argOrStdin(args), seek)
			if err != nil {
				return err
			}
			defer closer.Close()

			lexer := ebnflex.NewLexer(grammar, r,
				ebnflex.WithFilename(name),
				ebnflex.WithSkip(skip...))

			for {
				tok, err := lexer.NextToken(cmd.Context())
				if errors.Is(err, io.EOF) {
					return nil
				}
				if err != nil {
					return fmt.Errorf("%s: %w", lexer.Position(), err)
				}
				if err := enc.Encode(tok); err != nil {
					return fmt.Errorf("encode: %w", err)
				}
			}
		},
	}

	cmd.Flags().StringVarP(&grammarFile, "grammar", "g", "", "EBNF grammar defining the token productions")
	cmd.Flags().BoolVar(&seek, "seek", false, "rewind files by seeking instead of buffering")
	cmd.Flags().StringSliceVar(&skip, "skip", nil, "token kinds to drop from the output")
	cmd.Flags().StringVar(&outputFormat, "format", "text", "output format (text, json)")
	cmd.MarkFlagRequired("grammar")

	return cmd
}

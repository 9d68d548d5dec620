package main

import (
	"github.com/dhamidi/backtrack/ebnflex"
	"github.com/dhamidi/backtrack/lsp"
	"github.com/spf13/cobra"
)

func newLSPCmd() *cobra.Command {
	var grammarFile string

	cmd := &cobra.Command{
		Use:   "lsp",
		Short: "Start a Language Server Protocol server reporting lexical errors",
		RunE: func(cmd *cobra.Command, args []string) error {
			grammar, err := ebnflex.LoadGrammar(grammarFile)
			if err != nil {
				return err
			}
			return lsp.NewServer(grammar, version).RunStdio()
		},
	}

	cmd.Flags().StringVarP(&grammarFile, "grammar", "g", "", "EBNF grammar defining the token productions")
	cmd.MarkFlagRequired("grammar")

	return cmd
}

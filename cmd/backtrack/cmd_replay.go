package main

import (
	"fmt"
	"os"

	"github.com/dhamidi/backtrack/replay"
	"github.com/spf13/cobra"
)

func newReplayCmd() *cobra.Command {
	var script string
	var scriptFile string
	var seek bool

	cmd := &cobra.Command{
		Use:   "replay [file]",
		Short: "Run a checkpoint script against a file or stdin",
		Long: `Run a checkpoint script against a file or stdin.

A script is a list of steps separated by ';' or newlines:

  set          set a checkpoint at the current position (numbered from 0)
  read N       read up to N bytes
  rewind K     rewind to checkpoint K
  release K    release checkpoint K
  pos          print the current position

Text after # is a comment.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if scriptFile != "" {
				data, err := os.ReadFile(scriptFile)
				if err != nil {
					return fmt.Errorf("read script: %w", err)
				}
				script = string(data)
			}

			steps, err := replay.Parse(script)
			if err != nil {
				return err
			}

			r, _, closer, err := openSource(argOrStdin(args), seek)
			if err != nil {
				return err
			}
			defer closer.Close()

			return replay.Run(cmd.Context(), r, steps, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&script, "script", "s", "", "checkpoint script to run")
	cmd.Flags().StringVarP(&scriptFile, "script-file", "f", "", "read the checkpoint script from a file")
	cmd.Flags().BoolVar(&seek, "seek", false, "rewind files by seeking instead of buffering")
	cmd.MarkFlagsOneRequired("script", "script-file")
	cmd.MarkFlagsMutuallyExclusive("script", "script-file")

	return cmd
}

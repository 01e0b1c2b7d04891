package main

import (
	"github.com/spf13/cobra"

	"github.com/xenking/bookzip"
)

func newCatCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "cat <archive> <entry>...",
		Short: "Write decompressed entries to stdout",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(cmd.ErrOrStderr(), flags.debug)
			return bookzip.WithArchive(args[0], func(a *bookzip.Archive) error {
				for _, name := range args[1:] {
					data, err := a.Read(name)
					if err != nil {
						return err
					}
					if _, err := cmd.OutOrStdout().Write(data); err != nil {
						return err
					}
				}
				return nil
			}, flags.options(logger)...)
		},
	}
}

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/bookzip"
)

func methodName(m uint16) string {
	switch m {
	case bookzip.Store:
		return "stored"
	case bookzip.Deflate:
		return "deflate"
	default:
		return fmt.Sprintf("method-%d", m)
	}
}

func newLsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "ls <archive>...",
		Short: "List archive entries",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(cmd.ErrOrStderr(), flags.debug)

			// Each archive gets its own handle, so indexing can run in parallel.
			listings := make([]string, len(args))
			var eg errgroup.Group
			for i, path := range args {
				eg.Go(func() error {
					return bookzip.WithArchive(path, func(a *bookzip.Archive) error {
						var sb strings.Builder
						for _, e := range a.Entries() {
							fmt.Fprintf(&sb, "%-8s %10d %10d  %s\n",
								methodName(e.Method), e.CompressedSize64, e.UncompressedSize64, e.Name)
						}
						listings[i] = sb.String()
						return nil
					}, flags.options(logger)...)
				})
			}
			if err := eg.Wait(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for i, path := range args {
				if len(args) > 1 {
					fmt.Fprintf(out, "%s:\n", path)
				}
				fmt.Fprint(out, listings[i])
			}
			return nil
		},
	}
}

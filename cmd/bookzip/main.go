// Command bookzip lists and extracts entries of e-book archives using the
// bookzip reader and its size budgets.
package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/xenking/bookzip"
)

type rootFlags struct {
	maxEntryCompressed     int64
	maxEntryUncompressed   int64
	maxArchiveUncompressed int64
	debug                  bool
}

func (f *rootFlags) options(logger *slog.Logger) []bookzip.Option {
	return []bookzip.Option{
		bookzip.WithLimits(bookzip.Limits{
			MaxEntryCompressed:     f.maxEntryCompressed,
			MaxEntryUncompressed:   f.maxEntryUncompressed,
			MaxArchiveUncompressed: f.maxArchiveUncompressed,
		}),
		bookzip.WithLogger(logger),
	}
}

func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:   "bookzip",
		Short: "Inspect e-book archives",
		Long: `Inspect e-book archives.

Size budgets default to the BOOKZIP_MAX_ENTRY_COMPRESSED_BYTES,
BOOKZIP_MAX_ENTRY_UNCOMPRESSED_BYTES and BOOKZIP_MAX_ARCHIVE_UNCOMPRESSED_BYTES
environment variables, or to 64 MiB, 64 MiB and 256 MiB when unset.`,
		SilenceUsage: true,
	}
	pf := root.PersistentFlags()
	pf.Int64Var(&flags.maxEntryCompressed, "max-entry-compressed", 0, "per-entry compressed budget in bytes")
	pf.Int64Var(&flags.maxEntryUncompressed, "max-entry-uncompressed", 0, "per-entry uncompressed budget in bytes")
	pf.Int64Var(&flags.maxArchiveUncompressed, "max-archive-uncompressed", 0, "budget for all bytes read from one archive")
	pf.BoolVarP(&flags.debug, "debug", "d", false, "enable debug logging")

	root.AddCommand(newLsCmd(flags), newCatCmd(flags))
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

package bookzip

import (
	"fmt"
	"os"
	"strconv"
)

// Default budgets.
const (
	DefaultMaxEntryCompressed     int64 = 64 << 20
	DefaultMaxEntryUncompressed   int64 = 64 << 20
	DefaultMaxArchiveUncompressed int64 = 256 << 20
)

// Environment variables consulted when a limit is not set through an Option.
const (
	EnvMaxEntryCompressed     = "BOOKZIP_MAX_ENTRY_COMPRESSED_BYTES"
	EnvMaxEntryUncompressed   = "BOOKZIP_MAX_ENTRY_UNCOMPRESSED_BYTES"
	EnvMaxArchiveUncompressed = "BOOKZIP_MAX_ARCHIVE_UNCOMPRESSED_BYTES"
)

// Limits holds the byte budgets enforced while reading entries. A zero or
// negative field means "not set" and is resolved from the environment or the
// default; it never disables the check.
type Limits struct {
	MaxEntryCompressed     int64
	MaxEntryUncompressed   int64
	MaxArchiveUncompressed int64
}

type envLookup func(key string) (string, bool)

// resolveLimits fills every budget from, in order: the override, the
// environment, the default.
func resolveLimits(override Limits, lookup envLookup) Limits {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return Limits{
		MaxEntryCompressed:     resolveLimit(override.MaxEntryCompressed, lookup, EnvMaxEntryCompressed, DefaultMaxEntryCompressed),
		MaxEntryUncompressed:   resolveLimit(override.MaxEntryUncompressed, lookup, EnvMaxEntryUncompressed, DefaultMaxEntryUncompressed),
		MaxArchiveUncompressed: resolveLimit(override.MaxArchiveUncompressed, lookup, EnvMaxArchiveUncompressed, DefaultMaxArchiveUncompressed),
	}
}

func resolveLimit(override int64, lookup envLookup, key string, def int64) int64 {
	if override > 0 {
		return override
	}
	if v, ok := lookup(key); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err == nil && n > 0 {
			return n
		}
	}
	return def
}

// budget tracks the decompressed bytes handed out by one open archive. The
// running total only grows.
type budget struct {
	limits Limits
	total  int64
}

// precheck rejects an entry using only its central directory metadata.
func (b *budget) precheck(e *Entry) error {
	if int64(e.CompressedSize64) > b.limits.MaxEntryCompressed {
		return fmt.Errorf("%w: compressed size %d exceeds limit %d",
			ErrEntryTooLarge, e.CompressedSize64, b.limits.MaxEntryCompressed)
	}
	return b.check(int64(e.UncompressedSize64), "declared")
}

// check enforces the per-entry and archive-wide uncompressed budgets against
// n bytes for the entry currently being read.
func (b *budget) check(n int64, kind string) error {
	if n > b.limits.MaxEntryUncompressed {
		return fmt.Errorf("%w: %s uncompressed size %d exceeds limit %d",
			ErrEntryTooLarge, kind, n, b.limits.MaxEntryUncompressed)
	}
	if b.total+n > b.limits.MaxArchiveUncompressed {
		return fmt.Errorf("%w: %d bytes already read, %s entry size %d, limit %d",
			ErrArchiveBudget, b.total, kind, n, b.limits.MaxArchiveUncompressed)
	}
	return nil
}

// commit runs the final check on the realized size and adds it to the total.
func (b *budget) commit(n int64) error {
	if err := b.check(n, "actual"); err != nil {
		return err
	}
	b.total += n
	return nil
}

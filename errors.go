package bookzip

import (
	"errors"
	"strings"

	"github.com/klauspost/compress/zip"
)

var (
	// ErrFormat is returned when the archive structure is malformed: a missing
	// or wrong signature, a truncated record, or a corrupt DEFLATE stream.
	ErrFormat = zip.ErrFormat

	// ErrNotFound is returned by Read when no entry has the requested name.
	ErrNotFound = errors.New("entry not found")

	// ErrEntryTooLarge is returned when an entry exceeds a per-entry budget.
	ErrEntryTooLarge = errors.New("entry too large")

	// ErrArchiveBudget is returned when reading an entry would push the total
	// decompressed bytes of the open archive over its budget.
	ErrArchiveBudget = errors.New("archive budget exceeded")

	// ErrSizeMismatch is returned when the decompressed size differs from the
	// size declared in the central directory.
	ErrSizeMismatch = errors.New("uncompressed size mismatch")

	// ErrChecksum is returned when the decompressed bytes do not match the
	// declared CRC-32.
	ErrChecksum = errors.New("checksum error")

	// ErrAlgorithm is returned for compression methods other than Store and Deflate.
	ErrAlgorithm = zip.ErrAlgorithm

	// ErrUnsupported is returned for directory and encrypted entries.
	ErrUnsupported = errors.New("unsupported entry")

	// ErrClosed is returned when reading from a closed Archive.
	ErrClosed = errors.New("archive closed")
)

// Error is the only error type returned by this package. Err wraps one of the
// sentinel errors above, so callers can test for a condition with errors.Is.
type Error struct {
	Op   string // "open" or "read"
	Name string // archive path for open, entry name for read
	Err  error
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString("bookzip: ")
	sb.WriteString(e.Op)
	if e.Name != "" {
		sb.WriteByte(' ')
		sb.WriteString(e.Name)
	}
	sb.WriteString(": ")
	sb.WriteString(e.Err.Error())
	return sb.String()
}

func (e *Error) Unwrap() error { return e.Err }

// failureReason maps an error to the low-cardinality label used by metrics.
func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrEntryTooLarge), errors.Is(err, ErrArchiveBudget):
		return "limit"
	case errors.Is(err, ErrSizeMismatch), errors.Is(err, ErrChecksum):
		return "mismatch"
	case errors.Is(err, ErrAlgorithm), errors.Is(err, ErrUnsupported):
		return "unsupported"
	case errors.Is(err, ErrClosed):
		return "closed"
	default:
		return "format"
	}
}

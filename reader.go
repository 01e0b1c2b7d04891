// Package bookzip provides a read-only reader for the subset of the ZIP format
// used by e-book packages.
//
// An Archive indexes the central directory once, when it is opened, and then
// decompresses individual entries into memory on demand. Only the Store and
// Deflate methods are supported. Every read is bounded by byte budgets (see
// Limits) that are enforced against the sizes the archive declares and again
// against the bytes actually produced, so a decompression bomb fails early
// instead of exhausting memory.
//
// Zip64, encryption and multi-volume archives are not supported.
//
// An Archive is not safe for concurrent use; callers must serialize calls.
// Reads run to completion and cannot be cancelled.
package bookzip

import (
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"log/slog"
	"os"
	"sort"
)

// ReaderAtCloser is a random-access archive source owned by an Archive.
type ReaderAtCloser interface {
	io.ReaderAt
	io.Closer
}

// An Archive is an open archive with its central directory indexed.
type Archive struct {
	src     ReaderAtCloser
	size    int64
	catalog map[string]*Entry
	budget  budget
	closed  bool

	logger  *slog.Logger
	metrics *Metrics
}

// Open opens the archive at path and indexes its central directory. The
// caller must Close the returned Archive.
func Open(path string, opts ...Option) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &Error{Op: "open", Name: path, Err: err}
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, &Error{Op: "open", Name: path, Err: err}
	}
	a, err := newArchive(f, fi.Size(), newOptions(opts))
	if err != nil {
		return nil, &Error{Op: "open", Name: path, Err: err}
	}
	a.logger.Debug("indexed archive", "path", path, "entries", len(a.catalog))
	return a, nil
}

// OpenReader indexes the archive held by src, which is size bytes long.
// The Archive takes ownership of src and closes it on Close, or before
// returning if indexing fails.
func OpenReader(src ReaderAtCloser, size int64, opts ...Option) (*Archive, error) {
	a, err := newArchive(src, size, newOptions(opts))
	if err != nil {
		return nil, &Error{Op: "open", Err: err}
	}
	a.logger.Debug("indexed archive", "entries", len(a.catalog))
	return a, nil
}

// WithArchive opens the archive at path, passes it to fn and closes it when
// fn returns or panics. The error from fn takes precedence over the error
// from Close.
func WithArchive(path string, fn func(*Archive) error, opts ...Option) (err error) {
	a, err := Open(path, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(a)
}

func newArchive(src ReaderAtCloser, size int64, o options) (*Archive, error) {
	a := &Archive{
		src:     src,
		size:    size,
		budget:  budget{limits: resolveLimits(o.limits, o.lookup)},
		logger:  o.logger,
		metrics: o.metrics,
	}
	if size < 0 {
		src.Close()
		return nil, fmt.Errorf("%w: negative archive size %d", ErrFormat, size)
	}
	if err := a.index(); err != nil {
		src.Close()
		return nil, err
	}
	a.metrics.opened()
	return a, nil
}

func (a *Archive) index() error {
	d, err := findDirectoryEnd(a.src, a.size)
	if err != nil {
		return err
	}
	catalog, err := readCentralDirectory(a.src, a.size, d, func(name string) {
		// Last record wins; a hostile archive can use this to shadow an entry.
		a.logger.Warn("duplicate entry name in central directory", "entry", name)
	})
	if err != nil {
		return err
	}
	a.catalog = catalog
	return nil
}

// Find returns a copy of the entry stored under name, after normalizing name
// the same way entry names are normalized. It reports false if there is no
// such entry.
func (a *Archive) Find(name string) (Entry, bool) {
	e, ok := a.lookup(name)
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

func (a *Archive) lookup(name string) (*Entry, bool) {
	e, ok := a.catalog[normalizeName(name)]
	return e, ok
}

// Entries returns copies of all entries sorted by name.
func (a *Archive) Entries() []Entry {
	entries := make([]Entry, 0, len(a.catalog))
	for _, e := range a.catalog {
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

// Limits returns the budgets in effect for this archive.
func (a *Archive) Limits() Limits { return a.budget.limits }

// Consumed returns the number of decompressed bytes read from this archive so far.
func (a *Archive) Consumed() int64 { return a.budget.total }

// Read returns the decompressed contents of the entry stored under name.
// The size and CRC-32 of the result are verified against the central
// directory before it is returned.
func (a *Archive) Read(name string) ([]byte, error) {
	data, err := a.read(name)
	if err != nil {
		a.metrics.failed(failureReason(err))
		if errors.Is(err, ErrEntryTooLarge) || errors.Is(err, ErrArchiveBudget) {
			a.logger.Warn("entry rejected", "entry", name, "error", err)
		}
		return nil, &Error{Op: "read", Name: name, Err: err}
	}
	a.metrics.read(len(data))
	return data, nil
}

func (a *Archive) read(name string) ([]byte, error) {
	if a.closed {
		return nil, ErrClosed
	}
	e, ok := a.lookup(name)
	if !ok {
		return nil, ErrNotFound
	}
	if e.IsDir() {
		return nil, fmt.Errorf("%w: directory", ErrUnsupported)
	}
	if e.Encrypted() {
		return nil, fmt.Errorf("%w: encrypted", ErrUnsupported)
	}
	if err := a.budget.precheck(e); err != nil {
		return nil, err
	}

	off, err := dataOffset(a.src, e)
	if err != nil {
		return nil, err
	}
	c, err := codecFor(e.Method)
	if err != nil {
		return nil, err
	}
	data, err := c.decode(io.NewSectionReader(a.src, off, int64(e.CompressedSize64)), e, &a.budget)
	if err != nil {
		return nil, err
	}

	if e.UncompressedSize64 != 0 && uint64(len(data)) != e.UncompressedSize64 {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrSizeMismatch, len(data), e.UncompressedSize64)
	}
	if got := crc32.ChecksumIEEE(data); got != e.CRC32 {
		return nil, fmt.Errorf("%w: got %08x, want %08x", ErrChecksum, got, e.CRC32)
	}
	if err := a.budget.commit(int64(len(data))); err != nil {
		return nil, err
	}
	return data, nil
}

// Close releases the underlying file. Calling Close more than once is a no-op.
func (a *Archive) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	a.metrics.closed()
	return a.src.Close()
}

// Closed reports whether Close has been called.
func (a *Archive) Closed() bool { return a.closed }

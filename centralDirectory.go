package bookzip

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zip"
)

// Entry is the central directory record of one archive member. Entries are
// created while the archive is indexed and never modified afterwards; Find
// and Entries hand out copies.
//
// Name is normalized. The sizes live in CompressedSize64 and
// UncompressedSize64; the 32-bit fields carry the same values.
type Entry struct {
	zip.FileHeader
	HeaderOffset int64 // offset of the local file header
}

// IsDir reports whether the entry names a directory.
func (e *Entry) IsDir() bool { return strings.HasSuffix(e.Name, "/") }

// Encrypted reports whether the encryption flag bit is set.
func (e *Entry) Encrypted() bool { return e.Flags&flagEncrypted != 0 }

// directoryEnd holds the EOCD fields the indexer needs.
type directoryEnd struct {
	directorySize   uint32
	directoryOffset uint32
}

// findDirectoryEnd locates the EOCD record in the last directoryEndSearchLen
// bytes of the archive. The rightmost signature wins, so a signature embedded
// earlier in the archive comment cannot shadow the real record.
func findDirectoryEnd(r io.ReaderAt, size int64) (directoryEnd, error) {
	var d directoryEnd
	tailLen := min(size, directoryEndSearchLen)
	tail := make([]byte, tailLen)
	if _, err := r.ReadAt(tail, size-tailLen); err != nil && err != io.EOF {
		return d, fmt.Errorf("read archive tail: %w", err)
	}

	var sig [signatureLen]byte
	binary.LittleEndian.PutUint32(sig[:], directoryEndSignature)
	i := bytes.LastIndex(tail, sig[:])
	if i < 0 {
		return d, fmt.Errorf("%w: end of central directory not found", ErrFormat)
	}
	if len(tail)-i < directoryEndLen {
		return d, fmt.Errorf("%w: end of central directory truncated", ErrFormat)
	}

	b := readBuf(tail[i+signatureLen : i+directoryEndLen])
	b.skip(8) // disk numbers and entry counts
	d.directorySize = b.uint32()
	d.directoryOffset = b.uint32()
	return d, nil
}

// directoryHeader is a decoded central directory file header.
type directoryHeader struct {
	zip.FileHeader
	nameLen      uint16
	extraLen     uint16
	commentLen   uint16
	headerOffset uint32
}

func decodeDirectoryHeader(buf []byte) directoryHeader {
	b := readBuf(buf)
	var h directoryHeader
	h.CreatorVersion = b.uint16()
	h.ReaderVersion = b.uint16()
	h.Flags = b.uint16()
	h.Method = b.uint16()
	h.ModifiedTime = b.uint16()
	h.ModifiedDate = b.uint16()
	h.CRC32 = b.uint32()
	h.CompressedSize = b.uint32()
	h.UncompressedSize = b.uint32()
	h.nameLen = b.uint16()
	h.extraLen = b.uint16()
	h.commentLen = b.uint16()
	b.skip(4) // disk number start, internal attributes
	h.ExternalAttrs = b.uint32()
	h.headerOffset = b.uint32()

	h.CompressedSize64 = uint64(h.CompressedSize)
	h.UncompressedSize64 = uint64(h.UncompressedSize)
	h.Modified = msDosTimeToTime(h.ModifiedDate, h.ModifiedTime)
	return h
}

// readCentralDirectory walks the central directory described by d and
// returns the catalog keyed by normalized name. Any malformed record aborts
// the walk; no partial catalog is returned. dup is called for every name that
// replaces an earlier record.
func readCentralDirectory(r io.ReaderAt, size int64, d directoryEnd, dup func(name string)) (map[string]*Entry, error) {
	start, length := int64(d.directoryOffset), int64(d.directorySize)
	if start+length > size {
		return nil, fmt.Errorf("%w: central directory [%d, %d) outside archive of %d bytes",
			ErrFormat, start, start+length, size)
	}

	sr := io.NewSectionReader(r, start, length)
	catalog := make(map[string]*Entry)
	var fixed [signatureLen + directoryHeaderLen]byte
	for pos := int64(0); pos < length; {
		if _, err := io.ReadFull(sr, fixed[:]); err != nil {
			return nil, fmt.Errorf("%w: central directory header at %d truncated", ErrFormat, start+pos)
		}
		if sig := binary.LittleEndian.Uint32(fixed[:signatureLen]); sig != directoryHeaderSignature {
			return nil, fmt.Errorf("%w: bad central directory signature %#08x at %d", ErrFormat, sig, start+pos)
		}
		h := decodeDirectoryHeader(fixed[signatureLen:])

		name := make([]byte, h.nameLen)
		if _, err := io.ReadFull(sr, name); err != nil {
			return nil, fmt.Errorf("%w: central directory name at %d truncated", ErrFormat, start+pos)
		}
		// Extra and comment are never read.
		next := pos + int64(len(fixed)) + int64(h.nameLen) + int64(h.extraLen) + int64(h.commentLen)
		if next > length {
			return nil, fmt.Errorf("%w: central directory extra at %d truncated", ErrFormat, start+pos)
		}
		if _, err := sr.Seek(next, io.SeekStart); err != nil {
			return nil, fmt.Errorf("seek central directory: %w", err)
		}
		pos = next

		e := &Entry{FileHeader: h.FileHeader, HeaderOffset: int64(h.headerOffset)}
		e.Name = normalizeName(string(name))
		if _, ok := catalog[e.Name]; ok && dup != nil {
			dup(e.Name)
		}
		catalog[e.Name] = e
	}
	return catalog, nil
}

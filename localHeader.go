package bookzip

import (
	"encoding/binary"
	"fmt"
	"io"
)

// dataOffset validates the local file header of e and returns the offset of
// the entry's payload. The local header is checked on its own rather than
// trusted from the central directory: a missing signature here means the two
// copies of the metadata disagree.
func dataOffset(r io.ReaderAt, e *Entry) (int64, error) {
	var buf [signatureLen + fileHeaderLen]byte
	if n, _ := r.ReadAt(buf[:], e.HeaderOffset); n < len(buf) {
		return 0, fmt.Errorf("%w: local header at %d truncated", ErrFormat, e.HeaderOffset)
	}
	if sig := binary.LittleEndian.Uint32(buf[:signatureLen]); sig != fileHeaderSignature {
		return 0, fmt.Errorf("%w: bad local header signature %#08x at %d", ErrFormat, sig, e.HeaderOffset)
	}

	b := readBuf(buf[signatureLen:])
	b.skip(22) // versions, flags, method, times, crc and sizes
	nameLen := int64(b.uint16())
	extraLen := int64(b.uint16())
	return e.HeaderOffset + int64(len(buf)) + nameLen + extraLen, nil
}

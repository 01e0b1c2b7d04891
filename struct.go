package bookzip

// Record layouts follow APPNOTE.TXT. Only the fields the reader consumes are
// named; the rest are skipped by position.

import (
	"encoding/binary"
	"time"
)

// Compression methods.
const (
	Store   uint16 = 0 // no compression
	Deflate uint16 = 8 // DEFLATE compressed
)

const (
	fileHeaderSignature      = 0x04034b50
	directoryHeaderSignature = 0x02014b50
	directoryEndSignature    = 0x06054b50

	signatureLen       = 4
	fileHeaderLen      = 26 // after the signature; + filename + extra
	directoryHeaderLen = 42 // after the signature; + filename + extra + comment
	directoryEndLen    = 22 // including the signature; + comment

	// The EOCD record may be followed by a comment of up to 64 KiB, so the
	// signature is searched for in at most this many trailing bytes.
	directoryEndSearchLen = 65536 + 1024
)

// General purpose flag bits.
const (
	flagEncrypted = 0x1
)

// msDosTimeToTime converts an MS-DOS date and time into a time.Time.
// The resolution is 2s.
// See: http://msdn.microsoft.com/en-us/library/ms724247(v=VS.85).aspx
func msDosTimeToTime(dosDate, dosTime uint16) time.Time {
	if dosDate == 0 && dosTime == 0 {
		return time.Time{}
	}
	return time.Date(
		// date bits 0-4: day of month; 5-8: month; 9-15: years since 1980
		int(dosDate>>9+1980),
		time.Month(dosDate>>5&0xf),
		int(dosDate&0x1f),

		// time bits 0-4: second/2; 5-10: minute; 11-15: hour
		int(dosTime>>11),
		int(dosTime>>5&0x3f),
		int(dosTime&0x1f*2),
		0, // nanoseconds

		time.UTC,
	)
}

// readBuf is a little-endian cursor over a fixed-size record. Callers size the
// buffer before decoding, so the accessors do not bounds-check.
type readBuf []byte

func (b *readBuf) uint16() uint16 {
	v := binary.LittleEndian.Uint16(*b)
	*b = (*b)[2:]
	return v
}

func (b *readBuf) uint32() uint32 {
	v := binary.LittleEndian.Uint32(*b)
	*b = (*b)[4:]
	return v
}

func (b *readBuf) skip(n int) {
	*b = (*b)[n:]
}

package bookzip

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
)

type testFile struct {
	name   string
	body   []byte
	method uint16
}

func buildArchive(t *testing.T, files ...testFile) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: f.name, Method: f.method})
		require.NoError(t, err)
		if len(f.body) > 0 {
			_, err = w.Write(f.body)
			require.NoError(t, err)
		}
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func writeArchive(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "book.epub")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

// Offsets into a central directory file header, counted from its signature.
const (
	cdFlags        = 8
	cdMethod       = 10
	cdCRC          = 16
	cdUncompressed = 24
	cdHeaderOffset = 42
)

// patchDirectoryHeader calls fn with the central directory header of the
// first entry named name, from its signature through the end of the name.
func patchDirectoryHeader(t *testing.T, data []byte, name string, fn func(h []byte)) {
	t.Helper()
	eocd := bytes.LastIndex(data, []byte("PK\x05\x06"))
	require.GreaterOrEqual(t, eocd, 0)
	size := int(binary.LittleEndian.Uint32(data[eocd+12:]))
	off := int(binary.LittleEndian.Uint32(data[eocd+16:]))

	for p := off; p < off+size; {
		nameLen := int(binary.LittleEndian.Uint16(data[p+28:]))
		extraLen := int(binary.LittleEndian.Uint16(data[p+30:]))
		commentLen := int(binary.LittleEndian.Uint16(data[p+32:]))
		if string(data[p+46:p+46+nameLen]) == name {
			fn(data[p : p+46+nameLen])
			return
		}
		p += 46 + nameLen + extraLen + commentLen
	}
	t.Fatalf("entry %q not in central directory", name)
}

func makeEOCD(cdSize, cdOffset uint32, comment string) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, uint32(directoryEndSignature))
	binary.Write(buf, binary.LittleEndian, uint16(0))            // Disk number
	binary.Write(buf, binary.LittleEndian, uint16(0))            // Disk number with start
	binary.Write(buf, binary.LittleEndian, uint16(0))            // Entries on disk
	binary.Write(buf, binary.LittleEndian, uint16(0))            // Total entries
	binary.Write(buf, binary.LittleEndian, cdSize)               // Size of CD
	binary.Write(buf, binary.LittleEndian, cdOffset)             // Offset of CD
	binary.Write(buf, binary.LittleEndian, uint16(len(comment))) // Comment len
	buf.WriteString(comment)
	return buf.Bytes()
}

func sizedEntry(compressed, uncompressed uint64) *Entry {
	e := &Entry{}
	e.CompressedSize64 = compressed
	e.UncompressedSize64 = uncompressed
	return e
}

// trackingSource is an in-memory ReaderAtCloser that counts Close calls.
type trackingSource struct {
	*bytes.Reader
	closes int
}

func newTrackingSource(data []byte) *trackingSource {
	return &trackingSource{Reader: bytes.NewReader(data)}
}

func (s *trackingSource) Close() error {
	s.closes++
	return nil
}

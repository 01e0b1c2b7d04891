package bookzip

import (
	"bytes"
	"io"
	"testing"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func deflateData(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestCompression)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestCodecFor(t *testing.T) {
	t.Parallel()

	c, err := codecFor(Store)
	require.NoError(t, err)
	assert.IsType(t, storedCodec{}, c)

	c, err = codecFor(Deflate)
	require.NoError(t, err)
	assert.IsType(t, deflateCodec{}, c)

	for _, m := range []uint16{1, 9, 12, 14, 93, 99} {
		_, err := codecFor(m)
		require.ErrorIs(t, err, ErrAlgorithm)
	}
	_, err = codecFor(99)
	require.ErrorIs(t, err, zip.ErrAlgorithm)
	assert.EqualError(t, err, "zip: unsupported compression algorithm: unsupported compression method 99")
}

func TestInflateIntoBoundsOutput(t *testing.T) {
	t.Parallel()

	const limit = 1024
	bomb := make([]byte, 64<<20)
	compressed := deflateData(t, bomb)
	require.Less(t, len(compressed), 128<<10)

	var acc bytes.Buffer
	b := &budget{limits: Limits{
		MaxEntryCompressed:     DefaultMaxEntryCompressed,
		MaxEntryUncompressed:   limit,
		MaxArchiveUncompressed: DefaultMaxArchiveUncompressed,
	}}
	err := inflateInto(&acc, bytes.NewReader(compressed), int64(len(compressed)), func(realized int64) error {
		return b.check(realized, "realized")
	})
	require.ErrorIs(t, err, ErrEntryTooLarge)
	assert.Greater(t, acc.Len(), limit)
	assert.LessOrEqual(t, acc.Len(), limit+chunkSize)
}

func TestInflateIntoChecksEveryChunk(t *testing.T) {
	t.Parallel()

	want := bytes.Repeat([]byte("abcdefgh"), 10*chunkSize)
	compressed := deflateData(t, want)

	var acc bytes.Buffer
	var calls int
	var last int64
	err := inflateInto(&acc, bytes.NewReader(compressed), int64(len(compressed)), func(realized int64) error {
		calls++
		assert.Greater(t, realized, last)
		assert.LessOrEqual(t, realized-last, int64(chunkSize))
		last = realized
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, want, acc.Bytes())
	assert.GreaterOrEqual(t, calls, 10)
	assert.Equal(t, int64(len(want)), last)
}

func TestInflateIntoCorruptStream(t *testing.T) {
	t.Parallel()

	valid := deflateData(t, bytes.Repeat([]byte("the quick brown fox "), 500))

	tests := []struct {
		name string
		data []byte
	}{
		{name: "reserved block type", data: []byte{0x07, 0x00, 0x00}},
		{name: "truncated stream", data: valid[:len(valid)/2]},
		{name: "empty", data: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var acc bytes.Buffer
			err := inflateInto(&acc, bytes.NewReader(tt.data), int64(len(tt.data)), func(int64) error { return nil })
			require.ErrorIs(t, err, zip.ErrFormat)
			assert.Contains(t, err.Error(), "invalid deflate stream")
		})
	}
}

func TestInflateIntoStopsAtCompressedSize(t *testing.T) {
	t.Parallel()

	compressed := deflateData(t, []byte("hello, hello, hello"))
	// Bytes after the declared compressed size belong to something else.
	src := io.MultiReader(bytes.NewReader(compressed), bytes.NewReader([]byte("trailing junk")))

	var acc bytes.Buffer
	err := inflateInto(&acc, src, int64(len(compressed)), func(int64) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, "hello, hello, hello", acc.String())
}

func TestFlateReaderReuse(t *testing.T) {
	t.Parallel()

	want := []byte("reused inflater output")
	compressed := deflateData(t, want)
	for i := range 5 {
		fr := newFlateReader(bytes.NewReader(compressed))
		got, err := io.ReadAll(fr)
		require.NoError(t, err, "iteration %d", i)
		assert.Equal(t, want, got, "iteration %d", i)
		require.NoError(t, fr.Close())
		require.NoError(t, fr.Close())

		_, err = fr.Read(make([]byte, 1))
		require.Error(t, err)
	}
}

func TestStoredCodec(t *testing.T) {
	t.Parallel()

	b := &budget{limits: resolveLimits(Limits{MaxEntryUncompressed: 8}, func(string) (string, bool) { return "", false })}

	got, err := storedCodec{}.decode(bytes.NewReader([]byte("hello")), sizedEntry(5, 5), b)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))

	_, err = storedCodec{}.decode(bytes.NewReader([]byte("hel")), sizedEntry(5, 5), b)
	require.ErrorIs(t, err, ErrFormat)

	_, err = storedCodec{}.decode(bytes.NewReader(make([]byte, 9)), sizedEntry(9, 9), b)
	require.ErrorIs(t, err, ErrEntryTooLarge)
}

package bookzip

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/flate"
)

// chunkSize bounds both the compressed reads fed to the inflater and the
// decompressed output appended between budget checks.
const chunkSize = 16 << 10

// A codec turns an entry's raw payload into its decompressed bytes. The set of
// implementations is closed; codecFor is the only place a method tag is
// interpreted.
type codec interface {
	decode(src io.Reader, e *Entry, b *budget) ([]byte, error)
}

type storedCodec struct{}

type deflateCodec struct{}

func codecFor(method uint16) (codec, error) {
	switch method {
	case Store:
		return storedCodec{}, nil
	case Deflate:
		return deflateCodec{}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported compression method %d", ErrAlgorithm, method)
	}
}

func (storedCodec) decode(src io.Reader, e *Entry, b *budget) ([]byte, error) {
	n := int64(e.CompressedSize64)
	if err := b.check(n, "stored"); err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(src, buf); err != nil {
		return nil, fmt.Errorf("%w: stored payload truncated: %v", ErrFormat, err)
	}
	return buf, nil
}

func (deflateCodec) decode(src io.Reader, e *Entry, b *budget) ([]byte, error) {
	var acc bytes.Buffer
	err := inflateInto(&acc, src, int64(e.CompressedSize64), func(realized int64) error {
		return b.check(realized, "realized")
	})
	if err != nil {
		return nil, err
	}
	return acc.Bytes(), nil
}

// inflateInto decompresses a raw DEFLATE stream of compressedSize bytes into
// acc. check is called with the realized output size after every appended
// chunk; the first error it returns stops decompression, so acc never holds
// more than one chunk beyond the point where the budget was crossed.
func inflateInto(acc *bytes.Buffer, src io.Reader, compressedSize int64, check func(realized int64) error) (err error) {
	in := bufio.NewReaderSize(io.LimitReader(src, compressedSize), chunkSize)
	fr := newFlateReader(in)
	defer func() {
		if cerr := fr.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: %v", ErrFormat, cerr)
		}
	}()

	chunk := make([]byte, chunkSize)
	for {
		n, rerr := fr.Read(chunk)
		if n > 0 {
			acc.Write(chunk[:n])
			if err := check(int64(acc.Len())); err != nil {
				return err
			}
		}
		if rerr == io.EOF {
			return nil
		}
		if rerr != nil {
			return fmt.Errorf("%w: invalid deflate stream: %v", ErrFormat, rerr)
		}
	}
}

type pooledFlateReader struct {
	mu sync.Mutex // guards Close and Read
	fr io.ReadCloser
}

var flateReaderPool sync.Pool

func (r *pooledFlateReader) Read(p []byte) (n int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fr == nil {
		return 0, errors.New("Read after Close")
	}
	return r.fr.Read(p)
}

// Close returns the inflater to the pool. It is safe to call more than once.
func (r *pooledFlateReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var err error
	if r.fr != nil {
		err = r.fr.Close()
		flateReaderPool.Put(r.fr)
		r.fr = nil
	}
	return err
}

func newFlateReader(r io.Reader) io.ReadCloser {
	fr, ok := flateReaderPool.Get().(io.ReadCloser)
	if ok {
		if err := fr.(flate.Resetter).Reset(r, nil); err != nil {
			fr = flate.NewReader(r)
		}
	} else {
		fr = flate.NewReader(r)
	}
	return &pooledFlateReader{fr: fr}
}

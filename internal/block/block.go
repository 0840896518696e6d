// Package block implements the per-block raw DEFLATE codec.
package block

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/flate"

	"github.com/meigma/vbf/internal/format"
)

// DefaultLevel is the compression level used when none is configured.
const DefaultLevel = flate.DefaultCompression

// Encoder compresses blocks. It is safe for concurrent use.
type Encoder struct {
	level int
	pool  sync.Pool
}

// NewEncoder returns an Encoder for the given flate level.
func NewEncoder(level int) (*Encoder, error) {
	// Validate the level once up front; pooled writers are created lazily.
	if _, err := flate.NewWriter(io.Discard, level); err != nil {
		return nil, fmt.Errorf("create deflate writer: %w", err)
	}
	return &Encoder{level: level}, nil
}

type encoderState struct {
	w   *flate.Writer
	buf bytes.Buffer
}

func (e *Encoder) get() *encoderState {
	if st, ok := e.pool.Get().(*encoderState); ok {
		return st
	}
	st := &encoderState{}
	st.w, _ = flate.NewWriter(&st.buf, e.level) //nolint:errcheck // level validated in NewEncoder
	return st
}

// Compress encodes a full, non-final block. It returns the stored bytes
// (opaque prefix plus payload) and true, or nil and false when compression
// does not shrink the block enough to be stored compressed.
func (e *Encoder) Compress(src []byte) ([]byte, bool, error) {
	st := e.get()
	defer e.pool.Put(st)

	st.buf.Reset()
	st.buf.Write(make([]byte, format.CompressedPrefixSize))
	st.w.Reset(&st.buf)
	if _, err := st.w.Write(src); err != nil {
		return nil, false, err
	}
	if err := st.w.Close(); err != nil {
		return nil, false, err
	}
	if st.buf.Len() >= format.BlockSize {
		return nil, false, nil
	}
	return bytes.Clone(st.buf.Bytes()), true, nil
}

// Decoder inflates blocks. It is safe for concurrent use.
type Decoder struct {
	pool sync.Pool
}

// NewDecoder returns a Decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decompress inflates a compressed block's stored bytes into dst, which must
// have exactly the block's decoded length.
func (d *Decoder) Decompress(dst, stored []byte) error {
	if len(stored) < format.CompressedPrefixSize {
		return fmt.Errorf("compressed block of %d bytes", len(stored))
	}
	src := bytes.NewReader(stored[format.CompressedPrefixSize:])

	var r io.ReadCloser
	if v, ok := d.pool.Get().(io.ReadCloser); ok {
		if err := v.(flate.Resetter).Reset(src, nil); err != nil { //nolint:forcetypeassert // pool only holds flate readers
			return err
		}
		r = v
	} else {
		r = flate.NewReader(src)
	}
	defer d.pool.Put(r)

	if _, err := io.ReadFull(r, dst); err != nil {
		return fmt.Errorf("inflate: %w", err)
	}
	return nil
}

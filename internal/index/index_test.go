package index

import (
	"bytes"
	"crypto/md5" //nolint:gosec // format-defined digest
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/vbf/internal/format"
)

type testFile struct {
	name   string
	size   uint64
	blocks []uint16
}

// buildHeader encodes a header for files and returns it with the data
// segment length implied by the block sizes.
func buildHeader(t *testing.T, files []testFile, nameTable []byte) []byte {
	t.Helper()

	h := &Header{}
	var names bytes.Buffer
	var blockCount uint64
	for _, f := range files {
		h.Hashes = append(h.Hashes, format.HashPath(f.name))
		h.Records = append(h.Records, format.Record{
			BlockListStart:  uint32(blockCount),
			Reserved:        format.ReservedSentinel,
			OriginalSize:    f.size,
			NameTableOffset: uint64(names.Len()),
		})
		names.WriteString(f.name)
		names.WriteByte(0)
		h.BlockSizes = append(h.BlockSizes, f.blocks...)
		blockCount += uint64(len(f.blocks))
	}
	if nameTable == nil {
		nameTable = names.Bytes()
	}
	h.NameTable = nameTable

	l, err := NewLayout(uint64(len(files)), uint64(len(nameTable)), blockCount)
	require.NoError(t, err)
	header, err := Encode(l, h, uint32(l.HeaderLength))
	require.NoError(t, err)
	return header
}

// seal appends a data segment and the checksum trailer.
func seal(header []byte, dataLen int) []byte {
	out := append([]byte(nil), header...)
	out = append(out, make([]byte, dataLen)...)
	sum := md5.Sum(header) //nolint:gosec // format-defined digest
	return append(out, sum[:]...)
}

func load(t *testing.T, archive []byte) (*Index, error) {
	t.Helper()
	return Load(bytes.NewReader(archive), int64(len(archive)))
}

func TestLoad(t *testing.T) {
	t.Parallel()

	files := []testFile{
		{name: "data/b.bin", size: 2*format.BlockSize + 7, blocks: []uint16{0, 900, 7}},
		{name: "a.txt", size: 5, blocks: []uint16{5}},
		{name: "empty", size: 0},
	}
	archive := seal(buildHeader(t, files, nil), 100)

	idx, err := load(t, archive)
	require.NoError(t, err)

	assert.Equal(t, 3, idx.Len())
	assert.Equal(t, 4, idx.BlockCount())
	assert.Equal(t, []string{"data/b.bin", "a.txt", "empty"}, idx.Names())
	assert.Equal(t, uint32(len(archive)-100-format.ChecksumSize), idx.HeaderLength())

	i, ok := idx.LookupPath("DATA/B.BIN")
	require.True(t, ok)
	assert.Equal(t, 0, i)
	assert.Equal(t, format.HashPath("data/b.bin"), idx.Hash(i))
	assert.Equal(t, []uint16{0, 900, 7}, idx.BlockSizes(i))
	assert.Equal(t, format.ReservedSentinel, idx.Record(i).Reserved)

	blocks, err := idx.Blocks(i)
	require.NoError(t, err)
	assert.Equal(t, []format.Block{
		{Kind: format.RawFull, StoredSize: format.BlockSize, DecodedSize: format.BlockSize},
		{Kind: format.Compressed, StoredSize: 900, DecodedSize: format.BlockSize},
		{Kind: format.RawRemainder, StoredSize: 7, DecodedSize: 7},
	}, blocks)

	i, ok = idx.LookupPath("a.txt")
	require.True(t, ok)
	assert.Equal(t, uint64(len("data/b.bin")+1), idx.Record(i).NameTableOffset)

	i, ok = idx.LookupPath("empty")
	require.True(t, ok)
	assert.Empty(t, idx.BlockSizes(i))

	_, ok = idx.LookupPath("missing")
	assert.False(t, ok)
}

func TestLoad_EmptyArchive(t *testing.T) {
	t.Parallel()

	idx, err := load(t, seal(buildHeader(t, nil, nil), 0))
	require.NoError(t, err)
	assert.Equal(t, 0, idx.Len())
	assert.Empty(t, idx.Names())
}

func TestLoad_InvalidMagic(t *testing.T) {
	t.Parallel()

	archive := seal(buildHeader(t, []testFile{{name: "a", size: 1, blocks: []uint16{1}}}, nil), 1)
	archive[0] ^= 0xFF

	_, err := load(t, archive)
	require.ErrorIs(t, err, format.ErrInvalidHeader)
}

func TestLoad_TooShort(t *testing.T) {
	t.Parallel()

	_, err := load(t, []byte{0x53, 0x52, 0x59, 0x4B})
	require.ErrorIs(t, err, format.ErrInvalidHeader)
}

func TestLoad_HeaderLengthOutOfRange(t *testing.T) {
	t.Parallel()

	archive := seal(buildHeader(t, []testFile{{name: "a", size: 1, blocks: []uint16{1}}}, nil), 1)
	binary.LittleEndian.PutUint32(archive[4:8], uint32(len(archive)))

	_, err := load(t, archive)
	require.ErrorIs(t, err, format.ErrInvalidHeader)
}

func TestLoad_ChecksumCoversHeaderOnly(t *testing.T) {
	t.Parallel()

	files := []testFile{
		{name: "x/y.dat", size: format.BlockSize + 3, blocks: []uint16{0, 3}},
		{name: "z", size: 1, blocks: []uint16{1}},
	}
	header := buildHeader(t, files, nil)
	archive := seal(header, format.BlockSize+4)

	for off := 8; off < len(header); off++ {
		corrupt := append([]byte(nil), archive...)
		corrupt[off] ^= 0x01
		_, err := load(t, corrupt)
		require.ErrorIs(t, err, format.ErrChecksumMismatch, "flipped byte %d", off)
	}

	for _, off := range []int{len(header), len(header) + 10, len(archive) - format.ChecksumSize - 1} {
		corrupt := append([]byte(nil), archive...)
		corrupt[off] ^= 0x01
		_, err := load(t, corrupt)
		require.NoError(t, err, "flipped data byte %d", off)
	}
}

func TestLoad_CountMismatch(t *testing.T) {
	t.Parallel()

	files := []testFile{
		{name: "one", size: 1, blocks: []uint16{1}},
		{name: "two", size: 1, blocks: []uint16{1}},
	}
	// Same table size, but the separator is gone so it splits into one name.
	_, err := load(t, seal(buildHeader(t, files, []byte("one-two\x00")), 2))
	require.ErrorIs(t, err, format.ErrCountMismatch)

	_, err = load(t, seal(buildHeader(t, files, []byte("one\x00two\x00three\x00")), 2))
	require.ErrorIs(t, err, format.ErrCountMismatch)
}

func TestLoad_BlockTableExceedsHeader(t *testing.T) {
	t.Parallel()

	header := buildHeader(t, []testFile{{name: "a", size: 1, blocks: []uint16{1}}}, nil)
	// Claim a larger size than the block table describes.
	binary.LittleEndian.PutUint64(header[format.PrefixSize+format.HashSize+8:], 10*format.BlockSize)

	_, err := load(t, seal(header, 1))
	require.ErrorIs(t, err, format.ErrInvalidHeader)
}

func TestNewLayout(t *testing.T) {
	t.Parallel()

	l, err := NewLayout(2, 10, 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(16), l.HashesOffset)
	assert.Equal(t, uint64(48), l.RecordsOffset)
	assert.Equal(t, uint64(112), l.NameTableStart)
	assert.Equal(t, uint64(14), l.NameTableSize)
	assert.Equal(t, uint64(126), l.BlockTableAt)
	assert.Equal(t, uint64(132), l.HeaderLength)

	_, err = NewLayout(1, 1<<32, 0)
	require.ErrorIs(t, err, format.ErrSizeOverflow)
}

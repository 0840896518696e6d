package testutil

import (
	"crypto/md5" //nolint:gosec // the container format is defined in terms of MD5
	"testing"

	"github.com/meigma/vbf/internal/format"
	"github.com/meigma/vbf/internal/index"
)

// RawArchive encodes an archive whose blocks are all stored raw, without
// touching the filesystem. Names are stored verbatim, which lets tests craft
// names the builder would never produce.
func RawArchive(tb testing.TB, names []string, contents [][]byte) []byte {
	tb.Helper()
	if len(names) != len(contents) {
		tb.Fatalf("RawArchive: %d names for %d contents", len(names), len(contents))
	}

	hdr := index.Header{
		Hashes:  make([]format.NameHash, len(names)),
		Records: make([]format.Record, len(names)),
	}
	var blocks uint64
	for i, name := range names {
		hdr.Hashes[i] = format.HashPath(name)
		hdr.Records[i] = format.Record{
			BlockListStart:  uint32(blocks), //nolint:gosec // test sizes are small
			Reserved:        format.ReservedSentinel,
			OriginalSize:    uint64(len(contents[i])),
			NameTableOffset: uint64(len(hdr.NameTable)),
		}
		hdr.NameTable = append(hdr.NameTable, name...)
		hdr.NameTable = append(hdr.NameTable, 0)
		blocks += format.BlockCount(uint64(len(contents[i])))
	}

	layout, err := index.NewLayout(uint64(len(names)), uint64(len(hdr.NameTable)), blocks)
	if err != nil {
		tb.Fatalf("NewLayout: %v", err)
	}

	var data []byte
	for i, content := range contents {
		hdr.Records[i].StartOffset = layout.HeaderLength + uint64(len(data))
		count := int(format.BlockCount(uint64(len(content)))) //nolint:gosec // test sizes are small
		for j := range count {
			end := min((j+1)*format.BlockSize, len(content))
			chunk := content[j*format.BlockSize : end]
			kind := format.RawFull
			if j == count-1 {
				kind = format.RawRemainder
			}
			stored, err := format.EncodeStoredSize(kind, len(chunk))
			if err != nil {
				tb.Fatalf("EncodeStoredSize: %v", err)
			}
			hdr.BlockSizes = append(hdr.BlockSizes, stored)
			data = append(data, chunk...)
		}
	}

	header, err := index.Encode(layout, &hdr, uint32(layout.HeaderLength)) //nolint:gosec // test sizes are small
	if err != nil {
		tb.Fatalf("Encode: %v", err)
	}
	sum := md5.Sum(header) //nolint:gosec // format-defined digest
	out := append(header, data...)
	return append(out, sum[:]...)
}

package vbf

import (
	"bufio"
	"context"
	"crypto/md5" //nolint:gosec // the container format is defined in terms of MD5
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/meigma/vbf/internal/block"
	"github.com/meigma/vbf/internal/format"
	"github.com/meigma/vbf/internal/index"
	"github.com/meigma/vbf/internal/platform"
	"github.com/meigma/vbf/internal/walk"
)

// BuildResult summarizes a completed build.
type BuildResult struct {
	// Files is the number of entries written.
	Files int

	// Blocks is the total number of blocks written.
	Blocks int

	// CompressedBlocks is the number of blocks stored DEFLATE compressed.
	CompressedBlocks int

	// HeaderLength is the size of the header region.
	HeaderLength uint32

	// Bytes is the total archive size including the checksum trailer.
	Bytes int64
}

// Build writes an archive of every regular file under dir to w.
//
// Entry names are the slash-separated paths relative to dir, lower-cased.
// Symbolic links and special files are skipped; empty directories are not
// represented. The archive is written from offset 0 of w: the header region
// is reserved first, data blocks follow, then the header is patched in place
// and the MD5 trailer appended.
//
// Files must not change while the build runs; a file whose size differs from
// its size at enumeration fails the build with ErrFileChanged. On failure w
// holds a partial archive; use BuildFile for atomic output.
func Build(ctx context.Context, dir string, w io.WriteSeeker, opts ...BuildOption) (*BuildResult, error) {
	cfg := buildConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if f, ok := w.(*os.File); ok {
		cfg.exclude = append(cfg.exclude, f.Name())
	}

	level := block.DefaultLevel
	if cfg.levelSet {
		level = cfg.level
	}
	enc, err := block.NewEncoder(level)
	if err != nil {
		return nil, err
	}

	b := &builder{cfg: cfg, enc: enc, logger: cfg.logger}
	b.log().Info("building archive", "dir", dir, "sorted", cfg.sorted, "level", level)

	files, err := b.enumerate(dir)
	if err != nil {
		return nil, err
	}
	b.root, err = os.OpenRoot(dir)
	if err != nil {
		return nil, err
	}
	defer b.root.Close()

	res, err := b.write(ctx, files, w)
	if err != nil {
		return nil, err
	}
	b.log().Info("archive built",
		"files", res.Files,
		"blocks", res.Blocks,
		"compressed_blocks", res.CompressedBlocks,
		"bytes", res.Bytes)
	return res, nil
}

// BuildFile builds an archive of dir at outPath.
//
// The archive is written to a temporary file in the destination directory
// and renamed into place on success; on failure the temporary file is
// removed and any existing file at outPath is left untouched.
func BuildFile(ctx context.Context, dir, outPath string, opts ...BuildOption) (*BuildResult, error) {
	tmp, err := os.CreateTemp(filepath.Dir(outPath), ".vbf-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	success := false
	defer func() {
		if !success {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	opts = append(slices.Clip(opts), func(cfg *buildConfig) {
		cfg.exclude = append(cfg.exclude, outPath)
	})
	res, err := Build(ctx, dir, tmp, opts...)
	if err != nil {
		return nil, err
	}
	if err := tmp.Sync(); err != nil {
		return nil, fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		return nil, fmt.Errorf("renaming to destination: %w", err)
	}
	success = true
	return res, nil
}

// builder holds state for archive creation.
type builder struct {
	cfg    buildConfig
	enc    *block.Encoder
	logger *slog.Logger
	root   *os.Root

	out        *bufio.Writer
	pos        uint64
	sizes      []uint16
	compressed int
	bufs       [][]byte
}

// log returns the logger, falling back to a discard logger if nil.
func (b *builder) log() *slog.Logger {
	if b.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return b.logger
}

// reportProgress sends a progress event if a callback is configured.
func (b *builder) reportProgress(stage ProgressStage, path string, bytesDone, bytesTotal uint64, filesDone, filesTotal int) {
	if b.cfg.progress == nil {
		return
	}
	b.cfg.progress(ProgressEvent{
		Stage:      stage,
		Path:       path,
		BytesDone:  bytesDone,
		BytesTotal: bytesTotal,
		FilesDone:  filesDone,
		FilesTotal: filesTotal,
	})
}

// enumerate lists the input files, minus excluded outputs, and applies the
// file limit.
func (b *builder) enumerate(dir string) ([]walk.File, error) {
	b.reportProgress(StageEnumerating, "", 0, 0, 0, 0)

	files, err := walk.Files(dir, walk.Options{
		Sorted: b.cfg.sorted,
		Skipped: func(path string) {
			b.log().Debug("skipping non-regular file", "path", path)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("enumerate %s: %w", dir, err)
	}

	if b.cfg.sorted {
		// Order by archive name, not on-disk name, so case differences in
		// the input do not change the layout.
		slices.SortStableFunc(files, func(x, y walk.File) int {
			return strings.Compare(x.Name, y.Name)
		})
	}

	if len(b.cfg.exclude) > 0 {
		excluded := make(map[string]bool, len(b.cfg.exclude))
		for _, p := range b.cfg.exclude {
			if abs, err := filepath.Abs(p); err == nil {
				excluded[abs] = true
			}
		}
		files = slices.DeleteFunc(files, func(f walk.File) bool {
			abs, err := filepath.Abs(f.Path)
			return err == nil && excluded[abs]
		})
	}

	if maxFiles := b.cfg.maxFiles; maxFiles > 0 && len(files) > maxFiles {
		return nil, fmt.Errorf("%w: %d files exceeds limit %d", ErrTooManyFiles, len(files), maxFiles)
	}
	return files, nil
}

// write lays out the archive for files and writes it to w.
func (b *builder) write(ctx context.Context, files []walk.File, w io.WriteSeeker) (*BuildResult, error) {
	n := len(files)
	hdr := index.Header{
		Hashes:  make([]format.NameHash, n),
		Records: make([]format.Record, n),
	}

	var blockCount, totalBytes uint64
	seen := make(map[format.NameHash]string, n)
	for i, f := range files {
		hdr.Hashes[i] = format.HashPath(f.Name)
		if prev, ok := seen[hdr.Hashes[i]]; ok {
			b.log().Warn("duplicate entry name, later file shadows earlier", "path", f.Rel, "previous", prev)
		}
		seen[hdr.Hashes[i]] = f.Rel
		hdr.Records[i] = format.Record{
			Reserved:        format.ReservedSentinel,
			OriginalSize:    uint64(f.Size), //nolint:gosec // file sizes are non-negative
			NameTableOffset: uint64(len(hdr.NameTable)),
		}
		hdr.NameTable = append(hdr.NameTable, f.Name...)
		hdr.NameTable = append(hdr.NameTable, 0)
		blockCount += format.BlockCount(uint64(f.Size)) //nolint:gosec // file sizes are non-negative
		totalBytes += uint64(f.Size)                    //nolint:gosec // file sizes are non-negative
	}

	layout, err := index.NewLayout(uint64(n), uint64(len(hdr.NameTable)), blockCount)
	if err != nil {
		return nil, err
	}
	hdr.BlockSizes = make([]uint16, blockCount)

	// Reserve the header region: zero header length, zero records, the name
	// table and a zero block table.
	reserved := index.Header{
		Hashes:     hdr.Hashes,
		Records:    make([]format.Record, n),
		NameTable:  hdr.NameTable,
		BlockSizes: hdr.BlockSizes,
	}
	placeholder, err := index.Encode(layout, &reserved, 0)
	if err != nil {
		return nil, err
	}
	if _, err := w.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek to start: %w", err)
	}
	b.out = bufio.NewWriterSize(w, 1<<20)
	if _, err := b.out.Write(placeholder); err != nil {
		return nil, fmt.Errorf("reserve header: %w", err)
	}
	b.pos = layout.HeaderLength
	b.sizes = hdr.BlockSizes[:0]

	var bytesDone uint64
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		hdr.Records[i].StartOffset = b.pos
		hdr.Records[i].BlockListStart = uint32(len(b.sizes)) //nolint:gosec // block count checked in NewLayout
		if err := b.writeFile(ctx, f); err != nil {
			return nil, fmt.Errorf("%s: %w", f.Rel, err)
		}
		bytesDone += uint64(f.Size) //nolint:gosec // file sizes are non-negative
		b.log().Debug("file written", "path", f.Name, "size", f.Size, "start_offset", hdr.Records[i].StartOffset)
		b.reportProgress(StageCompressing, f.Name, bytesDone, totalBytes, i+1, n)
	}
	if err := b.out.Flush(); err != nil {
		return nil, fmt.Errorf("flush data: %w", err)
	}

	// Patch the header now that records and block sizes are known.
	b.reportProgress(StageWritingHeader, "", bytesDone, totalBytes, n, n)
	header, err := index.Encode(layout, &hdr, uint32(layout.HeaderLength)) //nolint:gosec // checked in NewLayout
	if err != nil {
		return nil, err
	}
	if _, err := w.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek to header: %w", err)
	}
	if _, err := w.Write(header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	if _, err := w.Seek(int64(b.pos), io.SeekStart); err != nil { //nolint:gosec // bounded by bytes written
		return nil, fmt.Errorf("seek to end: %w", err)
	}
	sum := md5.Sum(header) //nolint:gosec // format-defined digest
	if _, err := w.Write(sum[:]); err != nil {
		return nil, fmt.Errorf("write checksum: %w", err)
	}

	return &BuildResult{
		Files:            n,
		Blocks:           int(blockCount), //nolint:gosec // checked in NewLayout
		CompressedBlocks: b.compressed,
		HeaderLength:     uint32(layout.HeaderLength),        //nolint:gosec // checked in NewLayout
		Bytes:            int64(b.pos) + format.ChecksumSize, //nolint:gosec // bounded by bytes written
	}, nil
}

// writeFile splits f into blocks and writes them. Every block but the last
// is compressed when that saves space; the last block is always raw.
func (b *builder) writeFile(ctx context.Context, f walk.File) error {
	fh, err := platform.OpenNoFollow(b.root, filepath.FromSlash(f.Rel))
	if errors.Is(err, platform.ErrSymlink) {
		return fmt.Errorf("%w: replaced by a symlink", ErrFileChanged)
	}
	if err != nil {
		return err
	}
	defer fh.Close()

	size := uint64(f.Size)                //nolint:gosec // file sizes are non-negative
	count := int(format.BlockCount(size)) //nolint:gosec // checked in NewLayout
	if count == 0 {
		return checkExhausted(fh)
	}

	batch := max(1, b.cfg.concurrency)
	for len(b.bufs) < batch {
		b.bufs = append(b.bufs, make([]byte, format.BlockSize))
	}

	for j := 0; j < count-1; {
		k := min(batch, count-1-j)
		for x := range k {
			if err := readBlock(fh, b.bufs[x]); err != nil {
				return err
			}
		}
		stored, err := b.compressBatch(ctx, b.bufs[:k])
		if err != nil {
			return err
		}
		for x, s := range stored {
			if s == nil {
				if err := b.emit(b.bufs[x], format.RawFull); err != nil {
					return err
				}
				continue
			}
			if err := b.emit(s, format.Compressed); err != nil {
				return err
			}
		}
		j += k
	}

	tail := b.bufs[0][:format.Remainder(size)]
	if err := readBlock(fh, tail); err != nil {
		return err
	}
	if err := b.emit(tail, format.RawRemainder); err != nil {
		return err
	}
	return checkExhausted(fh)
}

// compressBatch compresses full blocks, in parallel when there is more than
// one. A nil result means the block is stored raw.
func (b *builder) compressBatch(ctx context.Context, blocks [][]byte) ([][]byte, error) {
	out := make([][]byte, len(blocks))
	if len(blocks) == 1 {
		s, ok, err := b.enc.Compress(blocks[0])
		if err != nil {
			return nil, err
		}
		if ok {
			out[0] = s
		}
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for x := range blocks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			s, ok, err := b.enc.Compress(blocks[x])
			if err != nil {
				return err
			}
			if ok {
				out[x] = s
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// emit writes one stored block and records its size.
func (b *builder) emit(data []byte, kind format.BlockKind) error {
	stored, err := format.EncodeStoredSize(kind, len(data))
	if err != nil {
		return err
	}
	if _, err := b.out.Write(data); err != nil {
		return err
	}
	if kind == format.Compressed {
		b.compressed++
	}
	b.sizes = append(b.sizes, stored)
	b.pos += uint64(len(data))
	return nil
}

// readBlock fills p from r, reporting a short file as ErrFileChanged.
func readBlock(r io.Reader, p []byte) error {
	if _, err := io.ReadFull(r, p); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: file shrank", ErrFileChanged)
		}
		return err
	}
	return nil
}

// checkExhausted reports ErrFileChanged if r has data past the enumerated size.
func checkExhausted(r io.Reader) error {
	var one [1]byte
	n, err := r.Read(one[:])
	if n > 0 {
		return fmt.Errorf("%w: file grew", ErrFileChanged)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Package vbf reads and writes VBF archives.
//
// A VBF archive is a single file holding many named entries. Entries are
// addressed by the MD5 of their lower-cased, forward-slash path and stored as
// independent 64 KiB blocks, each either raw or raw-DEFLATE compressed. An MD5
// trailer covers the whole header region.
//
// # Reading
//
//	archive, err := vbf.Open("data.vbf")
//	if err != nil {
//	    return err
//	}
//	defer archive.Close()
//
//	for _, p := range archive.Paths() {
//	    fmt.Println(p)
//	}
//	err = archive.Extract("textures/sky.png", w)
//
// Extract is a silent no-op for unknown paths; use Contains or ReadFile when
// the caller needs to know. ExtractWithMaxBlocks bounds the work to the
// leading blocks of an entry, which is enough for previews and sniffing.
//
// Archive implements fs.FS, fs.StatFS, fs.ReadFileFS, and fs.ReadDirFS.
// Directories are synthesized from the '/' separators in stored names.
//
// Remote archives can be opened without downloading them by passing an HTTP
// range source from the http subpackage to New.
//
// # Building
//
//	res, err := vbf.BuildFile(ctx, "./assets", "assets.vbf",
//	    vbf.BuildWithSortedPaths(true),
//	)
//
// BuildFile writes to a temporary file and renames it into place, so a failed
// build never leaves a partial archive behind.
package vbf

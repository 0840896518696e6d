package vbf

import (
	"context"
	"errors"
	"io"
)

// VerifyOption configures Verify.
type VerifyOption func(*verifyConfig)

type verifyConfig struct {
	progress ProgressFunc
}

// VerifyWithProgress sets a callback invoked after each verified entry.
func VerifyWithProgress(fn ProgressFunc) VerifyOption {
	return func(cfg *verifyConfig) {
		cfg.progress = fn
	}
}

// Verify decodes every block of every entry and discards the output.
//
// The header checksum only covers the header region; Verify is the way to
// detect damage inside the data segment. The block cache is bypassed. Verify
// stops at the first corrupt block, returning a *CorruptBlockError, or when
// ctx is canceled.
func (a *Archive) Verify(ctx context.Context, opts ...VerifyOption) error {
	cfg := verifyConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	n := a.idx.Len()
	var total, done uint64
	for i := range n {
		total += a.idx.Record(i).OriginalSize
	}

	a.log().Info("verifying archive", "files", n, "bytes", total)
	for i := range n {
		r, err := a.newEntryReader(i, 0)
		if err != nil {
			return err
		}
		r.bypass = true
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			b, err := r.nextBlock()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				a.log().Debug("verify failed", "path", r.name, "error", err)
				return err
			}
			done += uint64(len(b))
		}
		if cfg.progress != nil {
			cfg.progress(ProgressEvent{
				Stage:      StageVerifying,
				Path:       r.name,
				BytesDone:  done,
				BytesTotal: total,
				FilesDone:  i + 1,
				FilesTotal: n,
			})
		}
	}
	return nil
}

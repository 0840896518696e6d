// Command vbf inspects, builds, extracts and distributes VBF archives.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/meigma/vbf"
	"github.com/meigma/vbf/cache"
	"github.com/meigma/vbf/cache/disk"
	vbfhttp "github.com/meigma/vbf/http"
)

type globalOptions struct {
	verbose     bool
	cacheDir    string
	cacheBlocks int
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "vbf:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalOptions{}
	root := &cobra.Command{
		Use:           "vbf",
		Short:         "Work with VBF archives",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&g.cacheDir, "cache-dir", "", "Cache decoded blocks on disk in this directory")
	root.PersistentFlags().IntVar(&g.cacheBlocks, "cache-blocks", 0, "Cache up to this many decoded blocks in memory")

	root.AddCommand(
		newListCmd(g),
		newTreeCmd(g),
		newCatCmd(g),
		newInfoCmd(g),
		newVerifyCmd(g),
		newExtractCmd(g),
		newBuildCmd(g),
		newPushCmd(g),
		newPullCmd(g),
	)
	return root
}

func (g *globalOptions) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if g.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// openArchive opens a local path or an http(s) URL.
func (g *globalOptions) openArchive(cmd *cobra.Command, location string) (*vbf.Archive, error) {
	logger := g.logger(cmd)
	opts := []vbf.Option{vbf.WithLogger(logger)}

	bc, err := g.blockCache()
	if err != nil {
		return nil, err
	}
	if bc != nil {
		opts = append(opts, vbf.WithBlockCache(bc))
	}

	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		src, err := vbfhttp.NewSource(location, vbfhttp.WithContext(cmd.Context()))
		if err != nil {
			return nil, err
		}
		logger.Debug("opened remote source", "url", location, "size", src.Size())
		return vbf.New(src, opts...)
	}
	return vbf.Open(location, opts...)
}

func (g *globalOptions) blockCache() (cache.BlockCache, error) {
	switch {
	case g.cacheDir != "":
		return disk.New(g.cacheDir)
	case g.cacheBlocks > 0:
		return cache.NewLRU(g.cacheBlocks)
	}
	return nil, nil
}

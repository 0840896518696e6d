package main

import (
	"fmt"

	"github.com/klauspost/compress/flate"
	"github.com/spf13/cobra"

	"github.com/meigma/vbf"
)

func newBuildCmd(g *globalOptions) *cobra.Command {
	var (
		sorted      bool
		level       int
		concurrency int
		maxFiles    int
	)
	cmd := &cobra.Command{
		Use:   "build DIR OUTPUT",
		Short: "Build an archive from a directory tree",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := g.logger(cmd)
			res, err := vbf.BuildFile(cmd.Context(), args[0], args[1],
				vbf.BuildWithSortedPaths(sorted),
				vbf.BuildWithCompressionLevel(level),
				vbf.BuildWithConcurrency(concurrency),
				vbf.BuildWithMaxFiles(maxFiles),
				vbf.BuildWithLogger(logger),
				vbf.BuildWithProgress(func(ev vbf.ProgressEvent) {
					if ev.Stage == vbf.StageCompressing {
						logger.Debug("compressing", "path", ev.Path, "files", ev.FilesDone, "total", ev.FilesTotal)
					}
				}))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d files, %d blocks (%d compressed), %d bytes\n",
				args[1], res.Files, res.Blocks, res.CompressedBlocks, res.Bytes)
			return nil
		},
	}
	cmd.Flags().BoolVar(&sorted, "sorted", false, "Store entries in sorted order for reproducible output")
	cmd.Flags().IntVar(&level, "level", flate.DefaultCompression, "DEFLATE level (0 disables compression)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 1, "Blocks compressed in parallel")
	cmd.Flags().IntVar(&maxFiles, "max-files", 0, "Refuse to archive more files than this (0 means no limit)")
	return cmd
}

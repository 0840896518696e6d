package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/meigma/vbf"
)

func newListCmd(g *globalOptions) *cobra.Command {
	var (
		pattern string
		long    bool
	)
	cmd := &cobra.Command{
		Use:   "list ARCHIVE",
		Short: "List the entries of an archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.openArchive(cmd, args[0])
			if err != nil {
				return err
			}
			defer a.Close()

			filter := vbf.NewFilter(pattern)
			out := cmd.OutOrStdout()
			for e := range a.Entries() {
				if !filter.Match(e.Path()) {
					continue
				}
				if !long {
					fmt.Fprintln(out, e.Path())
					continue
				}
				stored, err := e.StoredSize()
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%12d %12d %6d  %s\n", e.Size(), stored, e.BlockCount(), e.Path())
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&pattern, "match", "m", "", "Only list entries matching this glob")
	cmd.Flags().BoolVarP(&long, "long", "l", false, "Show size, stored size and block count")
	return cmd
}

func newTreeCmd(g *globalOptions) *cobra.Command {
	var pattern string
	cmd := &cobra.Command{
		Use:   "tree ARCHIVE",
		Short: "Print the directory hierarchy of an archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.openArchive(cmd, args[0])
			if err != nil {
				return err
			}
			defer a.Close()

			printTree(cmd.OutOrStdout(), a.Tree(pattern), 0)
			return nil
		},
	}
	cmd.Flags().StringVarP(&pattern, "match", "m", "", "Only include entries matching this glob")
	return cmd
}

func printTree(w io.Writer, n *vbf.Node, depth int) {
	for _, c := range n.Children {
		name := c.Name
		if len(c.Children) > 0 {
			name += "/"
		}
		fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth), name)
		printTree(w, c, depth+1)
	}
}

func newCatCmd(g *globalOptions) *cobra.Command {
	var maxBlocks int
	cmd := &cobra.Command{
		Use:   "cat ARCHIVE PATH...",
		Short: "Write entries to standard output",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.openArchive(cmd, args[0])
			if err != nil {
				return err
			}
			defer a.Close()

			for _, name := range args[1:] {
				if !a.Contains(name) {
					return fmt.Errorf("%s: %w", name, vbf.ErrNotFound)
				}
				if err := a.Extract(name, cmd.OutOrStdout(), vbf.ExtractWithMaxBlocks(maxBlocks)); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&maxBlocks, "max-blocks", 0, "Decode at most this many blocks per entry (0 for all)")
	return cmd
}

func newInfoCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info ARCHIVE",
		Short: "Show archive header information",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.openArchive(cmd, args[0])
			if err != nil {
				return err
			}
			defer a.Close()

			var decoded, stored uint64
			for e := range a.Entries() {
				s, err := e.StoredSize()
				if err != nil {
					return err
				}
				decoded += e.Size()
				stored += s
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "source:        %s\n", a.SourceID())
			fmt.Fprintf(out, "size:          %d\n", a.Size())
			fmt.Fprintf(out, "header length: %d\n", a.HeaderLength())
			fmt.Fprintf(out, "files:         %d\n", a.Len())
			fmt.Fprintf(out, "blocks:        %d\n", a.BlockCount())
			fmt.Fprintf(out, "decoded bytes: %d\n", decoded)
			fmt.Fprintf(out, "stored bytes:  %d\n", stored)
			return nil
		},
	}
}

func newVerifyCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify ARCHIVE",
		Short: "Decode every block of every entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.openArchive(cmd, args[0])
			if err != nil {
				return err
			}
			defer a.Close()

			logger := g.logger(cmd)
			err = a.Verify(cmd.Context(), vbf.VerifyWithProgress(func(ev vbf.ProgressEvent) {
				logger.Debug("verified", "path", ev.Path, "files", ev.FilesDone, "total", ev.FilesTotal)
			}))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d files\n", a.Len())
			return nil
		},
	}
}

func newExtractCmd(g *globalOptions) *cobra.Command {
	var (
		output    string
		pattern   string
		overwrite bool
		workers   int
	)
	cmd := &cobra.Command{
		Use:   "extract ARCHIVE",
		Short: "Extract entries into a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.openArchive(cmd, args[0])
			if err != nil {
				return err
			}
			defer a.Close()

			logger := g.logger(cmd)
			stats, err := a.ExtractAll(cmd.Context(), output,
				vbf.ExtractAllWithFilter(pattern),
				vbf.ExtractAllWithOverwrite(overwrite),
				vbf.ExtractAllWithWorkers(workers),
				vbf.ExtractAllWithProgress(func(ev vbf.ProgressEvent) {
					logger.Debug("extracted", "path", ev.Path, "bytes", ev.BytesDone)
				}))
			if err != nil {
				return err
			}
			logger.Info("extracted archive", "files", stats.Files, "skipped", stats.Skipped, "bytes", stats.Bytes)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", ".", "Destination directory")
	cmd.Flags().StringVarP(&pattern, "match", "m", "", "Only extract entries matching this glob")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace existing files")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Parallel writers (0 for GOMAXPROCS, negative for serial)")
	return cmd
}

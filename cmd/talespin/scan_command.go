package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"talespin/internal/classify"
	"talespin/internal/finder"
	"talespin/internal/reader"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var countOnly bool
	var withChapters bool

	cmd := &cobra.Command{
		Use:   "scan [directory]",
		Short: "List convertible ebooks under a directory",
		Long:  "Scan walks a directory tree for files in a supported ebook format.\nWithout an argument the configured library directory is scanned.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			root := cfg.Paths.LibraryDir
			if len(args) == 1 {
				root = args[0]
			}
			root, err = filepath.Abs(root)
			if err != nil {
				return err
			}
			if info, statErr := os.Stat(root); statErr != nil || !info.IsDir() {
				return fmt.Errorf("%s is not a readable directory", root)
			}

			registry := reader.NewRegistry(classify.New())
			opts := finder.Options{
				Extensions:   registry.Extensions(),
				SearchHidden: cfg.Convert.SearchHidden,
				MaxDepth:     cfg.Convert.MaxScanDepth,
			}

			out := cmd.OutOrStdout()
			if countOnly {
				fmt.Fprintf(out, "%d\n", finder.Count(root, opts))
				return nil
			}

			headers := []string{"File", "Size"}
			aligns := []columnAlignment{alignLeft, alignRight}
			if withChapters {
				headers = append(headers, "Chapters")
				aligns = append(aligns, alignRight)
			}

			rows := make([][]string, 0, 64)
			for path := range finder.Find(root, opts) {
				size := ""
				if info, statErr := os.Stat(path); statErr == nil {
					size = humanize.Bytes(uint64(info.Size()))
				}
				rel, relErr := filepath.Rel(root, path)
				if relErr != nil {
					rel = path
				}
				row := []string{rel, size}
				if withChapters {
					row = append(row, chapterCount(registry, path))
				}
				rows = append(rows, row)
			}
			if len(rows) == 0 {
				fmt.Fprintf(out, "No ebooks found under %s\n", root)
				return nil
			}
			fmt.Fprintln(out, renderTable(headers, rows, aligns))
			fmt.Fprintf(out, "%d ebook(s) under %s\n", len(rows), root)
			return nil
		},
	}

	cmd.Flags().BoolVar(&countOnly, "count", false, "Print only the number of matches")
	cmd.Flags().BoolVar(&withChapters, "chapters", false, "Also show each book's table-of-contents entry count")

	return cmd
}

// chapterCount opens the book just long enough for the TOC fast path;
// unreadable containers show a dash instead of failing the scan.
func chapterCount(registry *reader.Registry, path string) string {
	rd, err := registry.Open(path)
	if err != nil {
		return "-"
	}
	defer rd.Close()
	n, err := rd.ChapterCount()
	if err != nil || n == 0 {
		return "-"
	}
	return fmt.Sprintf("%d", n)
}

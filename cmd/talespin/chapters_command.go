package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"talespin/internal/classify"
	"talespin/internal/filter"
	"talespin/internal/reader"
)

func newChaptersCommand(ctx *commandContext) *cobra.Command {
	var (
		flags   filterFlags
		showToc bool
	)

	cmd := &cobra.Command{
		Use:   "chapters <ebook>",
		Short: "List a book's chapters and how the filter treats them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			registry := reader.NewRegistry(classify.New())
			rd, err := registry.Open(args[0])
			if err != nil {
				return err
			}
			defer rd.Close()

			if showToc {
				return printToc(cmd, rd)
			}

			meta, err := rd.Metadata()
			if err != nil {
				return err
			}
			chapters, err := rd.Chapters(cfg.Convert.MinTextLen)
			if err != nil {
				return err
			}

			chain, err := filter.New(filter.NewRegistry(), flags.operations(cfg.Convert.DefaultPreset))
			if err != nil {
				return err
			}
			keptSet := make(map[int]bool, len(chapters))
			for _, ch := range chain.Apply(chapters) {
				keptSet[ch.Index] = true
			}

			out := cmd.OutOrStdout()
			if meta.Author != "" {
				fmt.Fprintf(out, "%s by %s\n", meta.Title, meta.Author)
			} else {
				fmt.Fprintln(out, meta.Title)
			}

			rows := make([][]string, 0, len(chapters))
			keptCount := 0
			for _, ch := range chapters {
				kept := keptSet[ch.Index]
				if kept {
					keptCount++
				}
				rows = append(rows, []string{
					fmt.Sprintf("%d", ch.Index),
					ch.Title,
					strings.Join(ch.Tags.Labels(), ", "),
					humanize.Comma(int64(ch.TextLen())),
					yesNo(kept),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Title", "Tags", "Chars", "Kept"}, rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft}))
			fmt.Fprintf(out, "%d of %d chapters kept\n", keptCount, len(chapters))
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&showToc, "toc", false, "Show the raw table of contents instead")

	return cmd
}

func printToc(cmd *cobra.Command, rd reader.Reader) error {
	entries, err := rd.TableOfContents()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No machine-readable table of contents.")
		return nil
	}
	rows := make([][]string, 0, len(entries))
	for i, entry := range entries {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i),
			strings.Repeat("  ", entry.Level) + entry.Title,
			entry.Href,
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"#", "Title", "Href"}, rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft}))
	return nil
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"talespin/internal/filter"
)

func newPresetsCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "presets",
		Short:       "List the chapter filter presets",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			defs := filter.NewRegistry().Definitions()
			rows := make([][]string, 0, len(defs))
			for _, def := range defs {
				rows = append(rows, []string{def.Name, def.Description})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Preset", "Description"}, rows,
				[]columnAlignment{alignLeft, alignLeft}))
			return nil
		},
	}
}

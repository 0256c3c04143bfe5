package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"talespin/internal/voice"
)

func newVoicesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "voices",
		Short: "List builtin and custom voices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			voices, err := voice.Available(cfg.Paths.VoicesDir)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(voices))
			for _, v := range voices {
				kind := "builtin"
				if v.Kind == voice.KindCustom {
					kind = "custom"
				}
				name := v.Name
				if v.Name == cfg.TTS.Voice {
					name += " *"
				}
				rows = append(rows, []string{kind, name, v.Description})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Type", "Voice", "Description"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft}))
			fmt.Fprintf(out, "* configured default; custom voices live in %s\n", cfg.Paths.VoicesDir)
			return nil
		},
	}
}

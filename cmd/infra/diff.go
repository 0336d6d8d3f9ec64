package main

import (
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/klothoplatform/inference-stack/pkg/infra/cfn"
	"github.com/r3labs/diff"
	"github.com/spf13/cobra"
)

func newDiffCmd() *cobra.Command {
	var app appFlags
	cmd := &cobra.Command{
		Use:   "diff [previous-template]",
		Short: "Compare a previously synthesized template to the current synthesis",
		Long:  "Compare a previously synthesized template (default <out-dir>/<stack>.template.json) to the current synthesis.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.load(cmd.Flags())
			if err != nil {
				return err
			}
			syn, err := synthesize(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			previous := filepath.Join(cfg.OutDir, cfn.JSONName(syn.stack.Name))
			if len(args) == 1 {
				previous = args[0]
			}
			before, err := cfn.ReadDocument(previous)
			if err != nil {
				return fmt.Errorf("could not read previous template: %w", err)
			}
			after, err := syn.template.Document()
			if err != nil {
				return err
			}

			changes, err := cfn.Diff(before, after)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(changes) == 0 {
				fmt.Fprintln(out, "no changes")
				return nil
			}
			for _, c := range changes {
				switch c.Type {
				case diff.CREATE:
					color.New(color.FgGreen).Fprintln(out, c)
				case diff.DELETE:
					color.New(color.FgRed).Fprintln(out, c)
				default:
					color.New(color.FgYellow).Fprintln(out, c)
				}
			}
			fmt.Fprintf(out, "%d changes in %d resources\n", len(changes), len(changes.Resources()))
			return nil
		},
	}
	app.register(cmd.Flags())
	return cmd
}

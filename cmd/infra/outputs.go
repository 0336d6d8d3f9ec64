package main

import (
	"github.com/klothoplatform/inference-stack/pkg/infra/cfn"
	"github.com/spf13/cobra"
)

func newOutputsCmd() *cobra.Command {
	var app appFlags
	cmd := &cobra.Command{
		Use:   "outputs",
		Short: "List the stack outputs and their value expressions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.load(cmd.Flags())
			if err != nil {
				return err
			}
			syn, err := synthesize(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			rows, err := syn.template.OutputRows()
			if err != nil {
				return err
			}
			return cfn.WriteOutputTable(cmd.OutOrStdout(), rows)
		},
	}
	app.register(cmd.Flags())
	return cmd
}

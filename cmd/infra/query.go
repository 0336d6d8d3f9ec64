package main

import (
	"fmt"
	"os"

	"github.com/klothoplatform/inference-stack/pkg/infra/cfn"
	"github.com/spf13/cobra"
)

func newQueryCmd() *cobra.Command {
	var app appFlags
	var templatePath string
	cmd := &cobra.Command{
		Use:   "query <jsonpath>",
		Short: "Evaluate a jsonpath against the template",
		Long: "Evaluate a jsonpath, such as '$.Resources.*.Type', against a synthesized template file or, " +
			"without --template, against a fresh synthesis.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var doc []byte
			if templatePath != "" {
				var err error
				doc, err = os.ReadFile(templatePath)
				if err != nil {
					return err
				}
			} else {
				cfg, err := app.load(cmd.Flags())
				if err != nil {
					return err
				}
				syn, err := synthesize(cmd.Context(), cfg)
				if err != nil {
					return err
				}
				doc, err = syn.template.YAML()
				if err != nil {
					return err
				}
			}

			results, err := cfn.Query(doc, args[0])
			if err != nil {
				return err
			}
			if len(results) == 0 {
				return fmt.Errorf("no match for %s", args[0])
			}
			out := cmd.OutOrStdout()
			for i, r := range results {
				if i > 0 {
					fmt.Fprintln(out, "---")
				}
				fmt.Fprint(out, r)
			}
			return nil
		},
	}
	app.register(cmd.Flags())
	cmd.Flags().StringVarP(&templatePath, "template", "t", "", "Synthesized template (json or yaml)")
	return cmd
}

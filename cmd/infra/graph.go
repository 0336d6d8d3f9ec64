package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/klothoplatform/inference-stack/pkg/closenicely"
	"github.com/klothoplatform/inference-stack/pkg/construct"
	"github.com/klothoplatform/inference-stack/pkg/dot"
	"github.com/klothoplatform/inference-stack/pkg/logging"
	"github.com/google/shlex"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultDotCommand = "dot -Tsvg"

// dotCommand splits the graphviz command line, which must read DOT on stdin and write SVG on stdout.
func dotCommand(line string) (string, []string, error) {
	args, err := shlex.Split(line)
	if err != nil {
		return "", nil, fmt.Errorf("invalid dot command %q: %w", line, err)
	}
	if len(args) == 0 {
		return "", nil, fmt.Errorf("dot command is empty")
	}
	return args[0], args[1:], nil
}

func newGraphCmd() *cobra.Command {
	var app appFlags
	var format, output, dotLine string
	var open bool
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Write the resource graph as yaml, dot or svg",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx := cmd.Context()
			if open && (format != "svg" || output == "") {
				return fmt.Errorf("--open requires --format svg and --output")
			}
			cfg, err := app.load(cmd.Flags())
			if err != nil {
				return err
			}
			syn, err := synthesize(ctx, cfg)
			if err != nil {
				return err
			}
			g := syn.stack.Graph

			var out io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, ferr := os.Create(output)
				if ferr != nil {
					return ferr
				}
				defer closenicely.OrJoin(f, &err)
				out = f
			}

			switch format {
			case "yaml":
				return construct.GraphToYAML(g, out)

			case "dot":
				return construct.GraphToDOT(g, out)

			case "svg":
				dotContent := new(bytes.Buffer)
				if err := construct.GraphToDOT(g, dotContent); err != nil {
					return err
				}
				name, dotArgs, err := dotCommand(dotLine)
				if err != nil {
					return err
				}
				svg := new(bytes.Buffer)
				c := logging.Command(ctx, logging.CommandLogger{
					RootLogger:  logging.GetLogger(ctx).Named("dot"),
					StdoutLevel: zap.DebugLevel,
					StderrLevel: zap.WarnLevel,
				}, name, dotArgs...)
				c.Stdin = dotContent
				c.Stdout = svg
				if err := c.Run(); err != nil {
					return fmt.Errorf("could not run %s: %w", name, err)
				}
				if _, err := io.WriteString(out, dot.SvgPan(svg.String())); err != nil {
					return err
				}
				if open {
					return browser.OpenFile(output)
				}
				return nil
			}
			return fmt.Errorf("unknown format %q, expected yaml, dot or svg", format)
		},
	}
	app.register(cmd.Flags())
	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "Output format: yaml, dot or svg")
	cmd.Flags().StringVar(&output, "output", "", "File to write to (default stdout)")
	cmd.Flags().StringVar(&dotLine, "dot-command", defaultDotCommand, "Graphviz command rendering DOT on stdin to SVG on stdout")
	cmd.Flags().BoolVar(&open, "open", false, "Open the svg output in the browser")
	return cmd
}

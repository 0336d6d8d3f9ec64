package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/klothoplatform/inference-stack/pkg/client"
	"github.com/klothoplatform/inference-stack/pkg/logging"
	"github.com/spf13/cobra"
)

func newInvokeCmd() *cobra.Command {
	var baseURL string
	opts := client.DefaultOptions
	cmd := &cobra.Command{
		Use:   "invoke <model> <image-url>",
		Short: "Run a deployed model on an image",
		Long:  "Run a deployed model on an image. The API url is the stack's HttpApiUrl output.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if baseURL == "" {
				baseURL = os.Getenv("INFERENCE_API_URL")
			}
			if baseURL == "" {
				return fmt.Errorf("--url or INFERENCE_API_URL is required")
			}
			ctx := cmd.Context()
			c := client.New(baseURL, opts, logging.GetLogger(ctx))

			result, err := c.Infer(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			pretty := new(bytes.Buffer)
			if err := json.Indent(pretty, result, "", "  "); err != nil {
				return err
			}
			pretty.WriteByte('\n')
			_, err = pretty.WriteTo(cmd.OutOrStdout())
			return err
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&baseURL, "url", "", "Base url of the API stage (default $INFERENCE_API_URL)")
	flags.DurationVar(&opts.Timeout, "timeout", opts.Timeout, "Timeout of each attempt")
	flags.IntVar(&opts.Retries, "retries", opts.Retries, "Retries on transport errors and 5xx responses")
	flags.DurationVar(&opts.Backoff, "backoff", opts.Backoff, "Wait between attempts")
	return cmd
}

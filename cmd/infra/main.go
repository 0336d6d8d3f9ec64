package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/pprof"

	"github.com/fatih/color"
	"github.com/klothoplatform/inference-stack/pkg/closenicely"
	"github.com/klothoplatform/inference-stack/pkg/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var rootCfg struct {
	config    string
	verbose   bool
	jsonLog   bool
	color     string
	profileTo string
}

func main() {
	root := newRootCmd()
	err := root.Execute()
	if err == nil {
		return
	}
	color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func newRootCmd() *cobra.Command {
	var stopProfile func()
	root := &cobra.Command{
		Use:           "infra",
		Short:         "Synthesize and operate the inference stack",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			z, err := setupLogger()
			if err != nil {
				return err
			}
			zap.ReplaceGlobals(z)
			cmd.SetContext(logging.WithLogger(cmd.Context(), z))

			stopProfile, err = startProfile(rootCfg.profileTo)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if stopProfile != nil {
				stopProfile()
			}
			closenicely.FuncOrDebug(zap.L().Sync)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&rootCfg.config, "config", "c", "", "Application config file (.json, .yaml or .toml)")
	flags.BoolVarP(&rootCfg.verbose, "verbose", "v", false, "Verbose flag")
	flags.BoolVar(&rootCfg.jsonLog, "json-log", false, "Output logs in JSON format.")
	flags.StringVar(&rootCfg.color, "color", "auto", "Colorize logs: auto, always or never")
	flags.StringVar(&rootCfg.profileTo, "profiling", "", "Profile to file")

	root.AddCommand(
		newSynthCmd(),
		newGraphCmd(),
		newQueryCmd(),
		newDiffCmd(),
		newOutputsCmd(),
		newInvokeCmd(),
	)
	return root
}

func setupLogger() (*zap.Logger, error) {
	opts := logging.LogOpts{
		Verbose:  rootCfg.verbose,
		Color:    rootCfg.color,
		Encoding: "pretty_console",
		DefaultLevels: map[string]zapcore.Level{
			"cfn":    zap.InfoLevel,
			"client": zap.InfoLevel,
		},
	}
	if rootCfg.jsonLog {
		opts.Encoding = "json"
	}
	if rootCfg.verbose {
		opts.DefaultLevels = nil
	}
	return opts.NewLogger()
}

// startProfile writes a CPU profile to `path` until the returned function is called.
func startProfile(path string) (func(), error) {
	if path == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create profile directory: %w", err)
	}
	profileF, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open profile file: %w", err)
	}
	if err := pprof.StartCPUProfile(profileF); err != nil {
		closenicely.OrDebug(profileF)
		return nil, fmt.Errorf("failed to start profile: %w", err)
	}
	return func() {
		pprof.StopCPUProfile()
		closenicely.OrDebug(profileF)
	}, nil
}

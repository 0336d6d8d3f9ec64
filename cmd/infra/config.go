package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/klothoplatform/inference-stack/pkg/asset"
	"github.com/klothoplatform/inference-stack/pkg/config"
	"github.com/klothoplatform/inference-stack/pkg/construct"
	"github.com/klothoplatform/inference-stack/pkg/infra/cfn"
	"github.com/klothoplatform/inference-stack/pkg/infra/stack"
	"github.com/klothoplatform/inference-stack/pkg/logging"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// appFlags override the values read from the config file.
type appFlags struct {
	outDir       string
	stage        string
	models       []string
	functionsDir string
	strict       bool
	overrides    []string
}

func (f *appFlags) register(flags *pflag.FlagSet) {
	flags.StringVarP(&f.outDir, "out-dir", "o", "", "Output directory (default cdk.out)")
	flags.StringVar(&f.stage, "stage", "", "API stage name (default dev)")
	flags.StringSliceVar(&f.models, "models", nil, "Models to deploy (default detr,yolo)")
	flags.StringVar(&f.functionsDir, "functions-dir", "", "Directory holding the <model>.py handlers")
	flags.BoolVar(&f.strict, "strict", false, "Fail when a model's handler is missing instead of warning")
	flags.StringArrayVar(&f.overrides, "set", nil, "Function override as <model>.<key>=<value>, eg yolo.memory_size=4096")
}

func (f *appFlags) load(flags *pflag.FlagSet) (config.Application, error) {
	var cfg config.Application
	if rootCfg.config != "" {
		var err error
		cfg, err = config.ReadConfig(rootCfg.config)
		if err != nil {
			return cfg, err
		}
	}
	if flags.Changed("out-dir") {
		cfg.OutDir = f.outDir
	}
	if flags.Changed("stage") {
		cfg.Stage = f.stage
	}
	if flags.Changed("models") {
		cfg.Models = f.models
	}
	if flags.Changed("functions-dir") {
		cfg.FunctionsDir = f.functionsDir
	}
	if flags.Changed("strict") {
		cfg.Assets.Strict = f.strict
	}
	for _, o := range f.overrides {
		model, kv, ok := strings.Cut(o, ".")
		key, value, ok2 := strings.Cut(kv, "=")
		if !ok || !ok2 || model == "" || key == "" {
			return cfg, fmt.Errorf("invalid override %q, expected <model>.<key>=<value>", o)
		}
		if cfg.Overrides == nil {
			cfg.Overrides = make(map[string]config.InfraParams)
		}
		params := cfg.Overrides[model]
		params.Merge(config.InfraParams{key: value})
		cfg.Overrides[model] = params
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

type synthesis struct {
	cfg      config.Application
	stack    *stack.InferenceStack
	template *cfn.Template
}

// synthesize builds and validates the stack, then compiles it to a template. Nothing is written.
func synthesize(ctx context.Context, cfg config.Application) (*synthesis, error) {
	log := logging.GetLogger(ctx)

	code, err := loadAssets(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s, err := stack.NewInferenceStack(cfg, code, log.Named("stack"))
	if err != nil {
		return nil, err
	}
	if err := stack.Validate(s.Graph, construct.RemovalPolicy(cfg.FileSystem.RemovalPolicy)); err != nil {
		return nil, fmt.Errorf("invalid stack: %w", err)
	}
	tmpl, err := cfn.Compiler{
		Description: fmt.Sprintf("Inference stack %s (%s)", s.Name, strings.Join(cfg.Models, ", ")),
		Log:         log,
	}.Compile(s.Graph)
	if err != nil {
		return nil, err
	}
	return &synthesis{cfg: cfg, stack: s, template: tmpl}, nil
}

// loadAssets loads the functions directory once, since every model is served from it, and checks that each
// model has a handler.
func loadAssets(ctx context.Context, cfg config.Application) (map[string]*asset.Asset, error) {
	log := logging.GetLogger(ctx).Named("asset")

	a, err := asset.Load(cfg.FunctionsDir, asset.PathMatcher{
		Include: cfg.Assets.Include,
		Exclude: cfg.Assets.Exclude,
	})
	if err != nil {
		return nil, err
	}
	log.Debug("loaded asset", zap.String("dir", a.SourceDir), zap.String("hash", a.Hash), zap.Int("files", len(a.Files)))

	code := make(map[string]*asset.Asset, len(cfg.Models))
	var errs error
	for _, model := range cfg.Models {
		code[model] = a
		err := asset.CheckHandler(ctx, a, model, "handler")
		switch {
		case err == nil:
		case errors.Is(err, asset.ErrMissingHandler) && !cfg.Assets.Strict:
			log.Warn(err.Error(), zap.String("model", model))
		default:
			errs = errors.Join(errs, fmt.Errorf("model %s: %w", model, err))
		}
	}
	return code, errs
}

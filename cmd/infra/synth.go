package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/klothoplatform/inference-stack/pkg/asset"
	"github.com/klothoplatform/inference-stack/pkg/infra/cfn"
	kio "github.com/klothoplatform/inference-stack/pkg/io"
	"github.com/klothoplatform/inference-stack/pkg/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newSynthCmd() *cobra.Command {
	var app appFlags
	var deploy struct {
		assetBucket string
		region      string
	}
	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Write the template, the staged assets and deploy.sh to the output directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.GetLogger(ctx)

			cfg, err := app.load(cmd.Flags())
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("asset-bucket") {
				cfg.Deploy.AssetBucket = deploy.assetBucket
			}
			if cmd.Flags().Changed("region") {
				cfg.Deploy.Region = deploy.region
			}

			syn, err := synthesize(ctx, cfg)
			if err != nil {
				return err
			}
			s := syn.stack

			files, err := syn.template.Files(s.Name)
			if err != nil {
				return err
			}

			script := cfn.DeployScript{
				StackName:    s.Name,
				TemplateFile: cfn.JSONName(s.Name),
				AssetBucket:  cfg.Deploy.AssetBucket,
				Region:       cfg.Deploy.Region,
			}
			for _, l := range s.AssetLocations() {
				script.Assets = append(script.Assets, cfn.DeployAsset(l))
			}
			scriptFile, err := script.File()
			if err != nil {
				return err
			}
			files = append(files, scriptFile)

			if rootCfg.config != "" {
				// keep the config next to the template it produced
				files = append(files, &kio.FileRef{
					FPath:      "config" + filepath.Ext(rootCfg.config),
					SourcePath: rootCfg.config,
				})
			}

			staged, err := asset.Stage(ctx, s.Assets(), cfg.OutDir)
			if err != nil {
				return err
			}
			if err := kio.OutputTo(files, cfg.OutDir); err != nil {
				return fmt.Errorf("could not write output: %w", err)
			}
			if err := os.Chmod(filepath.Join(cfg.OutDir, cfn.DeployScriptName), 0755); err != nil {
				return err
			}

			log.Info("synthesized stack",
				zap.String("stack", s.Name),
				zap.String("out", cfg.OutDir),
				zap.Strings("files", logging.FileNames(files)),
				zap.Strings("assets", staged),
			)
			return nil
		},
	}
	app.register(cmd.Flags())
	cmd.Flags().StringVar(&deploy.assetBucket, "asset-bucket", "", "Default S3 bucket deploy.sh uploads assets to")
	cmd.Flags().StringVar(&deploy.region, "region", "", "Default region deploy.sh deploys to")
	return cmd
}

package stack

import (
	"fmt"

	"github.com/iancoleman/strcase"
	"github.com/klothoplatform/inference-stack/pkg/asset"
	"github.com/klothoplatform/inference-stack/pkg/config"
	"github.com/klothoplatform/inference-stack/pkg/construct"
	"go.uber.org/zap"
)

type InferenceStack struct {
	*Stack

	Network    *Network
	FileSystem *InferenceFileSystem
	Api        *HttpApi
	Engines    []*InferenceEngine
	Bastion    *BastionHost
}

// NewInferenceStack declares every component of the application in dependency order. `code` holds the
// function asset of each model in cfg.Models.
func NewInferenceStack(cfg config.Application, code map[string]*asset.Asset, log *zap.Logger) (*InferenceStack, error) {
	s := &InferenceStack{Stack: NewStack(cfg.AppName, log)}
	var err error

	s.Network, err = NewNetwork(s.Stack, "Vpc", NetworkProps{
		MaxAzs:    cfg.Network.MaxAzs,
		CidrBlock: cfg.Network.CidrBlock,
	})
	if err != nil {
		return nil, err
	}

	s.FileSystem, err = NewInferenceFileSystem(s.Stack, "InferenceFileSystem", FileSystemProps{
		Network:       s.Network,
		SecurityGroup: s.Network.DefaultSecurityGroup,
		RemovalPolicy: construct.RemovalPolicy(cfg.FileSystem.RemovalPolicy),
	})
	if err != nil {
		return nil, err
	}

	s.Api, err = NewHttpApi(s.Stack, "HttpApi", HttpApiProps{StageName: cfg.Stage})
	if err != nil {
		return nil, err
	}

	for _, model := range cfg.Models {
		codeAsset, ok := code[model]
		if !ok {
			return nil, fmt.Errorf("no code asset for model %s", model)
		}
		overrides, err := cfg.FunctionOverrides(model)
		if err != nil {
			return nil, err
		}
		engine, err := NewInferenceEngine(s.Stack, EngineId(model), InferenceProps{
			Network:        s.Network,
			AccessPoint:    s.FileSystem.AccessPoint,
			Api:            s.Api,
			Model:          model,
			Code:           codeAsset,
			Runtime:        overrides.Runtime,
			MemorySize:     overrides.MemorySize,
			TimeoutSeconds: overrides.TimeoutSeconds,
			Environment:    overrides.Environment,
		})
		if err != nil {
			return nil, err
		}
		s.Engines = append(s.Engines, engine)
	}

	s.Bastion, err = NewBastionHost(s.Stack, "BastionHost", BastionProps{
		Network:       s.Network,
		SecurityGroup: s.Network.DefaultSecurityGroup,
		InstanceType:  cfg.Bastion.InstanceType,
		VolumeSize:    cfg.Bastion.VolumeSize,
	})
	if err != nil {
		return nil, err
	}

	size, _ := s.Graph.Order()
	s.Log.Info("declared stack", zap.String("stack", s.Name), zap.Int("resources", size), zap.Strings("models", cfg.Models))
	return s, nil
}

// EngineId is the component id of the engine serving `model`, `detr` -> `DetrInferenceEngine`.
func EngineId(model string) string {
	return strcase.ToCamel(model) + "InferenceEngine"
}

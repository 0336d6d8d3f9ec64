package config

import (
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"regexp"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type (
	Application struct {
		AppName string `json:"app" yaml:"app" toml:"app"`

		// Format is what format the file was originally in.
		Format string `json:"-" yaml:"-" toml:"-"`

		OutDir string `json:"out_dir,omitempty" yaml:"out_dir,omitempty" toml:"out_dir,omitempty"`
		Stage  string `json:"stage,omitempty" yaml:"stage,omitempty" toml:"stage,omitempty"`

		// Models lists the inference models, each deployed as its own function and route.
		Models []string `json:"models,omitempty" yaml:"models,omitempty" toml:"models,omitempty"`
		// FunctionsDir holds the handler sources, `<model>.py` per model.
		FunctionsDir string `json:"functions_dir,omitempty" yaml:"functions_dir,omitempty" toml:"functions_dir,omitempty"`

		Network    Network    `json:"network,omitempty" yaml:"network,omitempty" toml:"network,omitempty"`
		FileSystem FileSystem `json:"filesystem,omitempty" yaml:"filesystem,omitempty" toml:"filesystem,omitempty"`
		Bastion    Bastion    `json:"bastion,omitempty" yaml:"bastion,omitempty" toml:"bastion,omitempty"`
		Assets     Assets     `json:"assets,omitempty" yaml:"assets,omitempty" toml:"assets,omitempty"`
		Deploy     Deploy     `json:"deploy,omitempty" yaml:"deploy,omitempty" toml:"deploy,omitempty"`

		// Overrides are per model function settings, decoded with [Application.FunctionOverrides].
		Overrides map[string]InfraParams `json:"overrides,omitempty" yaml:"overrides,omitempty" toml:"overrides,omitempty"`
	}

	Network struct {
		MaxAzs    int    `json:"max_azs,omitempty" yaml:"max_azs,omitempty" toml:"max_azs,omitempty"`
		CidrBlock string `json:"cidr,omitempty" yaml:"cidr,omitempty" toml:"cidr,omitempty"`
	}

	FileSystem struct {
		// RemovalPolicy is `destroy` or `retain`.
		RemovalPolicy string `json:"removal_policy,omitempty" yaml:"removal_policy,omitempty" toml:"removal_policy,omitempty"`
	}

	Bastion struct {
		InstanceType string `json:"instance_type,omitempty" yaml:"instance_type,omitempty" toml:"instance_type,omitempty"`
		// VolumeSize of the root device, in GiB.
		VolumeSize int `json:"volume_size,omitempty" yaml:"volume_size,omitempty" toml:"volume_size,omitempty"`
	}

	Assets struct {
		Include []string `json:"include,omitempty" yaml:"include,omitempty" toml:"include,omitempty"`
		Exclude []string `json:"exclude,omitempty" yaml:"exclude,omitempty" toml:"exclude,omitempty"`
		// Strict turns a missing handler entry point into an error instead of a warning.
		Strict bool `json:"strict,omitempty" yaml:"strict,omitempty" toml:"strict,omitempty"`
	}

	Deploy struct {
		AssetBucket string `json:"asset_bucket,omitempty" yaml:"asset_bucket,omitempty" toml:"asset_bucket,omitempty"`
		Region      string `json:"region,omitempty" yaml:"region,omitempty" toml:"region,omitempty"`
	}

	// InfraParams are free-form settings, decoded into typed structs by the component that consumes them.
	InfraParams map[string]interface{}
)

const (
	RemovalPolicyDestroy = "destroy"
	RemovalPolicyRetain  = "retain"
)

var (
	DefaultModels        = []string{"detr", "yolo"}
	DefaultAssetExcludes = []string{"**/__pycache__/**", "**/*.pyc", "**/.DS_Store"}

	modelPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
)

func ReadConfig(fpath string) (Application, error) {
	var appCfg Application

	f, err := os.Open(fpath)
	if err != nil {
		return appCfg, errors.Wrap(err, "could not open config")
	}
	defer f.Close() // nolint:errcheck

	switch ext := filepath.Ext(fpath); ext {
	case ".json":
		err = json.NewDecoder(f).Decode(&appCfg)
		appCfg.Format = "json"

	case ".yaml", ".yml":
		err = yaml.NewDecoder(f).Decode(&appCfg)
		appCfg.Format = "yaml"

	case ".toml":
		err = toml.NewDecoder(f).Decode(&appCfg)
		appCfg.Format = "toml"

	default:
		return appCfg, errors.Errorf("unsupported config format %q for %s", ext, fpath)
	}
	if err != nil {
		return appCfg, errors.Wrapf(err, "could not parse %s config %s", appCfg.Format, fpath)
	}
	return appCfg, nil
}

// ApplyDefaults fills every unset field with the default value.
func (a *Application) ApplyDefaults() {
	if a.AppName == "" {
		a.AppName = "InferenceStack"
	}
	if a.OutDir == "" {
		a.OutDir = "cdk.out"
	}
	if a.Stage == "" {
		a.Stage = "dev"
	}
	if len(a.Models) == 0 {
		a.Models = append([]string(nil), DefaultModels...)
	}
	if a.FunctionsDir == "" {
		a.FunctionsDir = filepath.Join("functions", "inference")
	}
	if a.Network.MaxAzs == 0 {
		a.Network.MaxAzs = 2
	}
	if a.Network.CidrBlock == "" {
		a.Network.CidrBlock = "10.0.0.0/16"
	}
	if a.FileSystem.RemovalPolicy == "" {
		a.FileSystem.RemovalPolicy = RemovalPolicyDestroy
	}
	if a.Bastion.InstanceType == "" {
		a.Bastion.InstanceType = "m5.xlarge"
	}
	if a.Bastion.VolumeSize == 0 {
		a.Bastion.VolumeSize = 64
	}
	if len(a.Assets.Include) == 0 {
		a.Assets.Include = []string{"**"}
	}
	if a.Assets.Exclude == nil {
		a.Assets.Exclude = append([]string(nil), DefaultAssetExcludes...)
	}
}

// Validate checks a defaulted configuration.
func (a Application) Validate() error {
	var errs []error
	if len(a.Models) == 0 {
		errs = append(errs, errors.New("at least one model is required"))
	}
	seen := make(map[string]struct{}, len(a.Models))
	for _, m := range a.Models {
		if !modelPattern.MatchString(m) {
			errs = append(errs, errors.Errorf("invalid model name %q: must match %s", m, modelPattern))
		}
		if _, ok := seen[m]; ok {
			errs = append(errs, errors.Errorf("duplicate model %q", m))
		}
		seen[m] = struct{}{}
	}
	for m := range a.Overrides {
		if _, ok := seen[m]; !ok {
			errs = append(errs, errors.Errorf("overrides for unknown model %q", m))
		}
	}
	if a.Network.MaxAzs < 1 {
		errs = append(errs, errors.Errorf("network.max_azs must be at least 1, got %d", a.Network.MaxAzs))
	}
	switch a.FileSystem.RemovalPolicy {
	case RemovalPolicyDestroy, RemovalPolicyRetain:
	default:
		errs = append(errs, errors.Errorf("filesystem.removal_policy must be %q or %q, got %q",
			RemovalPolicyDestroy, RemovalPolicyRetain, a.FileSystem.RemovalPolicy))
	}
	if a.Bastion.VolumeSize < 8 {
		errs = append(errs, errors.Errorf("bastion.volume_size must be at least 8 GiB, got %d", a.Bastion.VolumeSize))
	}
	if a.Stage == "" {
		errs = append(errs, errors.New("stage must not be empty"))
	}
	return stderrors.Join(errs...)
}

func (cfg *InfraParams) Merge(other InfraParams) {
	if *cfg == nil {
		*cfg = make(InfraParams)
	}
	for k, v := range other {
		(*cfg)[k] = v
	}
}

package cfn

import (
	"sort"
	"strings"
	"testing"

	"github.com/klothoplatform/inference-stack/pkg/asset"
	"github.com/klothoplatform/inference-stack/pkg/config"
	"github.com/klothoplatform/inference-stack/pkg/infra/stack"
	"github.com/klothoplatform/inference-stack/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testAsset = &asset.Asset{
	SourceDir: "functions/inference",
	Files:     []string{"detr.py", "yolo.py"},
	Hash:      strings.Repeat("cd", 32),
}

func synthesize(t *testing.T, cfg config.Application) (*stack.InferenceStack, *Template) {
	t.Helper()
	cfg.ApplyDefaults()
	code := make(map[string]*asset.Asset, len(cfg.Models))
	for _, m := range cfg.Models {
		code[m] = testAsset
	}
	s, err := stack.NewInferenceStack(cfg, code, nil)
	require.NoError(t, err)
	tmpl, err := Compiler{Description: "inference"}.Compile(s.Graph)
	require.NoError(t, err)
	return s, tmpl
}

func renderYAML(t *testing.T, tmpl *Template) string {
	t.Helper()
	y, err := tmpl.YAML()
	require.NoError(t, err)
	return string(y)
}

func TestSynthesize(t *testing.T) {
	assert := assert.New(t)
	s, tmpl := synthesize(t, config.Application{})
	y := renderYAML(t, tmpl)

	size, err := s.Graph.Order()
	require.NoError(t, err)
	assert.Equal(size, len(tmpl.Resources)+len(tmpl.Parameters)+len(tmpl.Outputs))

	types, err := Query([]byte(y), "$.Resources.*.Type")
	require.NoError(t, err)
	count := make(map[string]int)
	for _, typ := range types {
		count[strings.TrimSpace(typ)]++
	}
	assert.Equal(1, count["AWS::EC2::VPC"])
	assert.Equal(4, count["AWS::EC2::Subnet"])
	assert.Equal(2, count["AWS::EC2::NatGateway"])
	assert.Equal(1, count["AWS::EFS::FileSystem"])
	assert.Equal(2, count["AWS::EFS::MountTarget"])
	assert.Equal(1, count["AWS::EFS::AccessPoint"])
	assert.Equal(2, count["AWS::Lambda::Function"])
	assert.Equal(2, count["AWS::ApiGatewayV2::Route"])
	assert.Equal(1, count["AWS::EC2::Instance"])

	fs := LogicalId(s.FileSystem.FileSystem)
	assert.Equal("Delete\n", testutil.SafeYamlPath(y, "$.Resources."+fs+".DeletionPolicy"))
	assert.Equal("Delete\n", testutil.SafeYamlPath(y, "$.Resources."+fs+".UpdateReplacePolicy"))

	ap := LogicalId(s.FileSystem.AccessPoint.ID)
	assert.Equal("\"1001\"\n", testutil.SafeYamlPath(y, "$.Resources."+ap+".Properties.PosixUser.Uid"))
	assert.Equal("\"0777\"\n", testutil.SafeYamlPath(y, "$.Resources."+ap+".Properties.RootDirectory.CreationInfo.Permissions"))

	api := LogicalId(s.Api.Api)
	assert.Equal("864000\n", testutil.SafeYamlPath(y, "$.Resources."+api+".Properties.CorsConfiguration.MaxAge"))

	assert.Equal([]string{"AccessPointId", "BastionHostId", "FilesystemId", "HttpApiUrl"}, sortedKeys(tmpl.Outputs))
	assert.Equal("HttpApiUrl\n", testutil.SafeYamlPath(y, "$.Outputs.HttpApiUrl.Export.Name"))

	assert.Equal([]string{
		stack.AssetParameterName(testAsset.Hash, "S3Bucket"),
		stack.AssetParameterName(testAsset.Hash, "S3Key"),
	}, tmpl.ParameterNames(), "models sharing an asset share its parameters")
}

func TestSynthesize_Functions(t *testing.T) {
	s, tmpl := synthesize(t, config.Application{})
	y := renderYAML(t, tmpl)

	var mountTargets []string
	for _, mt := range s.FileSystem.MountTargets {
		mountTargets = append(mountTargets, LogicalId(mt))
	}

	for _, engine := range s.Engines {
		t.Run(engine.Model, func(t *testing.T) {
			assert := assert.New(t)
			fn := LogicalId(engine.Function)
			props := "$.Resources." + fn + ".Properties"

			assert.Equal(engine.Model+".handler\n", testutil.SafeYamlPath(y, props+".Handler"))
			assert.Equal("python3.7\n", testutil.SafeYamlPath(y, props+".Runtime"))
			assert.Equal("10240\n", testutil.SafeYamlPath(y, props+".MemorySize"))
			assert.Equal("300\n", testutil.SafeYamlPath(y, props+".Timeout"))
			assert.Equal("/mnt/inference\n", testutil.SafeYamlPath(y, props+".FileSystemConfigs[0].LocalMountPath"))
			assert.Equal(
				"/mnt/inference/"+engine.Model+"/model/yolov4-416\n",
				testutil.SafeYamlPath(y, props+".Environment.Variables.TF_WEIGHTS"),
			)
			assert.Equal(2, testutil.CountYamlPath(y, props+".VpcConfig.SubnetIds[*]"))

			res := tmpl.Resources[fn]
			for _, mt := range mountTargets {
				assert.Contains(res.DependsOn, mt)
			}
			assert.NotContains(res.DependsOn, LogicalId(engine.Role), "the role is referenced so needs no explicit dependency")
		})
	}
}

func TestSynthesize_RetainFileSystem(t *testing.T) {
	var cfg config.Application
	cfg.FileSystem.RemovalPolicy = config.RemovalPolicyRetain
	s, tmpl := synthesize(t, cfg)

	fs := tmpl.Resources[LogicalId(s.FileSystem.FileSystem)]
	assert.Equal(t, "Retain", fs.DeletionPolicy)
	assert.Equal(t, "Retain", fs.UpdateReplacePolicy)
}

func TestSynthesize_Stable(t *testing.T) {
	_, first := synthesize(t, config.Application{})
	_, second := synthesize(t, config.Application{})

	a, err := first.JSON()
	require.NoError(t, err)
	b, err := second.JSON()
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

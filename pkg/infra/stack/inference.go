package stack

import (
	"fmt"
	"path"
	"sort"

	"github.com/klothoplatform/inference-stack/pkg/asset"
	"github.com/klothoplatform/inference-stack/pkg/construct"
	"github.com/klothoplatform/inference-stack/pkg/provider/aws"
	awssanitize "github.com/klothoplatform/inference-stack/pkg/sanitization/aws"
)

type (
	InferenceProps struct {
		Network     *Network
		AccessPoint *AccessPoint
		Api         *HttpApi
		Model       string
		Code        *asset.Asset

		// Function settings, zero values take the defaults.
		Runtime        string
		MemorySize     int
		TimeoutSeconds int
		Environment    map[string]string
	}

	// InferenceEngine is a function serving one model over `POST /inference/<model>`.
	InferenceEngine struct {
		Model    string
		Function construct.ResourceId
		Role     construct.ResourceId
		Routes   []construct.ResourceId
	}
)

const (
	// MountPath is where every function mounts the shared access point. Each model owns the
	// `<MountPath>/<model>` subtree.
	MountPath = "/mnt/inference"

	DefaultRuntime        = "python3.7"
	DefaultMemorySize     = 10240
	DefaultTimeoutSeconds = 5 * 60
)

// InferenceFunctionActions are granted to every inference function on all resources.
var InferenceFunctionActions = []string{
	"elasticfilesystem:ClientMount",
	"elasticfilesystem:ClientRootAccess",
	"elasticfilesystem:ClientWrite",
	"elasticfilesystem:DescribeMountTargets",
	"logs:CreateLogGroup",
	"logs:CreateLogStream",
	"logs:PutLogEvents",
	"ec2:CreateNetworkInterface",
	"ec2:DescribeNetworkInterfaces",
	"ec2:DeleteNetworkInterface",
	"ec2:AssignPrivateIpAddresses",
	"ec2:UnassignPrivateIpAddresses",
}

// ModelEnvironment returns the environment of the function serving `model`. It depends on the model name
// only, and every path is under the model's own directory.
func ModelEnvironment(model string) map[string]string {
	root := ModelRoot(model)
	return map[string]string{
		"PYTHONPATH": path.Join(root, "lib"),
		"TORCH_HOME": path.Join(root, "model"),
		"TF_WEIGHTS": path.Join(root, "model", "yolov4-416"),
	}
}

func ModelRoot(model string) string {
	return path.Join(MountPath, model)
}

func InferencePath(model string) string {
	return "/inference/" + model
}

func Handler(model string) string {
	return model + ".handler"
}

func NewInferenceEngine(s *Stack, id string, props InferenceProps) (*InferenceEngine, error) {
	switch {
	case props.Model == "":
		return nil, fmt.Errorf("inference engine %s: model is required", id)
	case props.Network == nil:
		return nil, fmt.Errorf("inference engine %s: network is required", id)
	case props.AccessPoint == nil:
		return nil, fmt.Errorf("inference engine %s: access point is required", id)
	case props.Api == nil:
		return nil, fmt.Errorf("inference engine %s: api is required", id)
	case props.Code == nil:
		return nil, fmt.Errorf("inference engine %s: code asset is required", id)
	}
	model := props.Model
	fnName := model + "InferenceFunction"

	role := construct.CreateResource(aws.ResourceId(aws.IamRoleType, id, fnName+"ServiceRole"))
	role.Properties["AssumeRolePolicyDocument"] = aws.LAMBDA_ASSUMER_ROLE_POLICY
	role.Properties["ManagedPolicyArns"] = []any{
		aws.ManagedPolicyArn("service-role/AWSLambdaBasicExecutionRole"),
	}

	policy := construct.CreateResource(aws.ResourceId(aws.IamPolicyType, id, fnName+"ServiceRoleDefaultPolicy"))
	policy.Properties["PolicyName"] = awssanitize.IamPolicySanitizer.Apply(fnName + "ServiceRoleDefaultPolicy")
	policy.Properties["Roles"] = []any{role.Ref()}
	policy.Properties["PolicyDocument"] = &aws.PolicyDocument{
		Version: aws.VERSION,
		Statement: []aws.StatementEntry{
			{
				Effect:   "Allow",
				Action:   append([]string(nil), InferenceFunctionActions...),
				Resource: []any{"*"},
			},
		},
	}

	if err := s.AddAll(role, policy); err != nil {
		return nil, err
	}

	code, err := s.AssetParameters(props.Code)
	if err != nil {
		return nil, err
	}

	env := ModelEnvironment(model)
	for k, v := range props.Environment {
		if _, ok := env[k]; ok {
			return nil, fmt.Errorf("inference engine %s: environment variable %s cannot be overridden", id, k)
		}
		env[k] = v
	}
	variables := make(map[string]any, len(env))
	for k, v := range env {
		variables[k] = v
	}

	fn := construct.CreateResource(aws.ResourceId(aws.LambdaFunctionType, id, fnName))
	fn.Properties["FunctionName"] = awssanitize.LambdaFunctionSanitizer.Apply(fnName)
	fn.Properties["Code"] = map[string]any{
		"S3Bucket": code.Bucket,
		"S3Key":    code.Key,
	}
	fn.Properties["Role"] = role.Attr("Arn")
	fn.Properties["Handler"] = Handler(model)
	fn.Properties["Runtime"] = orDefault(props.Runtime, DefaultRuntime)
	fn.Properties["Timeout"] = orDefault(props.TimeoutSeconds, DefaultTimeoutSeconds)
	fn.Properties["MemorySize"] = orDefault(props.MemorySize, DefaultMemorySize)
	fn.Properties["Environment"] = map[string]any{"Variables": variables}
	fn.Properties["FileSystemConfigs"] = []any{
		map[string]any{
			"Arn":            props.AccessPoint.Arn(),
			"LocalMountPath": MountPath,
		},
	}
	fn.Properties["VpcConfig"] = map[string]any{
		"SubnetIds":        refs(props.Network.PrivateSubnets),
		"SecurityGroupIds": []any{props.Network.DefaultSecurityGroup},
	}
	// the role's policy must be attached, and the file system reachable, before the function can start
	fn.DependsOn = append([]construct.ResourceId{policy.ID, role.ID}, props.AccessPoint.MountTargets...)
	sort.Slice(fn.DependsOn, func(i, j int) bool { return construct.ResourceIdLess(fn.DependsOn[i], fn.DependsOn[j]) })

	if err := s.Add(fn); err != nil {
		return nil, err
	}

	routes, err := props.Api.AddRoutes(AddRoutesOptions{
		Path:        InferencePath(model),
		Methods:     []string{"POST"},
		Integration: LambdaProxyIntegration{Handler: fn.ID},
	})
	if err != nil {
		return nil, err
	}

	return &InferenceEngine{
		Model:    model,
		Function: fn.ID,
		Role:     role.ID,
		Routes:   routes,
	}, nil
}

func orDefault[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}

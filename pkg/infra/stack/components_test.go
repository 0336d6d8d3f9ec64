package stack

import (
	"testing"

	"github.com/klothoplatform/inference-stack/pkg/construct"
	"github.com/klothoplatform/inference-stack/pkg/provider/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferenceFileSystem(t *testing.T) {
	tests := []struct {
		name    string
		policy  construct.RemovalPolicy
		wantPol construct.RemovalPolicy
	}{
		{name: "defaults to destroy", policy: construct.RemovalPolicyDefault, wantPol: construct.RemovalPolicyDestroy},
		{name: "retain", policy: construct.RemovalPolicyRetain, wantPol: construct.RemovalPolicyRetain},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)
			s := NewStack("InferenceStack", nil)
			n, err := NewNetwork(s, "Vpc", NetworkProps{MaxAzs: 2, CidrBlock: "10.0.0.0/16"})
			require.NoError(t, err)

			efs, err := NewInferenceFileSystem(s, "InferenceFileSystem", FileSystemProps{
				Network:       n,
				SecurityGroup: n.DefaultSecurityGroup,
				RemovalPolicy: tt.policy,
			})
			require.NoError(t, err)

			fs := mustResource(t, s, efs.FileSystem)
			assert.Equal(tt.wantPol, fs.RemovalPolicy)
			assert.Equal(true, fs.Properties["Encrypted"])

			require.Len(t, efs.MountTargets, 2)
			for i, id := range efs.MountTargets {
				mt := mustResource(t, s, id)
				assert.Equal(construct.PropertyRef{Resource: n.PrivateSubnets[i]}, mt.Properties["SubnetId"])
				assert.Equal([]any{n.DefaultSecurityGroup}, mt.Properties["SecurityGroups"])
			}

			ap := mustResource(t, s, efs.AccessPoint.ID)
			assert.Equal(PosixUser{Uid: "1001", Gid: "1001"}, ap.Properties["PosixUser"])
			root, err := ap.GetProperty("RootDirectory.Path")
			assert.NoError(err)
			assert.Equal("/", root)
			info, err := ap.GetProperty("RootDirectory.CreationInfo")
			assert.NoError(err)
			assert.Equal(CreationInfo{OwnerUid: "1001", OwnerGid: "1001", Permissions: "0777"}, info)
			assert.Equal(efs.MountTargets, efs.AccessPoint.MountTargets)

			mustResource(t, s, aws.OutputId("FilesystemId"))
			mustResource(t, s, aws.OutputId("AccessPointId"))
		})
	}

	_, err := NewInferenceFileSystem(NewStack("s", nil), "fs", FileSystemProps{Network: &Network{}})
	assert.Error(t, err)
}

func TestHttpApi(t *testing.T) {
	assert := assert.New(t)
	s := NewStack("InferenceStack", nil)
	gw, err := NewHttpApi(s, "HttpApi", HttpApiProps{})
	require.NoError(t, err)

	api := mustResource(t, s, gw.Api)
	assert.Equal("InferenceApi", api.Properties["Name"])
	assert.Equal(CorsConfiguration{
		AllowHeaders: []string{"Authorization"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowOrigins: []string{"*"},
		MaxAge:       864000,
	}, api.Properties["CorsConfiguration"])

	stage := mustResource(t, s, gw.Stage)
	assert.Equal("dev", stage.Properties["StageName"])
	assert.Equal(true, stage.Properties["AutoDeploy"])

	out := mustResource(t, s, aws.OutputId("HttpApiUrl"))
	url := out.Properties["Value"].(aws.Join)
	assert.Equal("https://", url.Values[0])
	assert.Equal("dev", url.Values[len(url.Values)-1])

	fn := construct.CreateResource(aws.ResourceId(aws.LambdaFunctionType, "Engine", "fn"))
	require.NoError(t, s.Add(fn))

	routes, err := gw.AddRoutes(AddRoutesOptions{
		Path:        "/inference/detr",
		Methods:     []string{"post", "GET"},
		Integration: LambdaProxyIntegration{Handler: fn.ID},
	})
	require.NoError(t, err)
	require.Len(t, routes, 2)
	assert.Equal("POST /inference/detr", mustResource(t, s, routes[0]).Properties["RouteKey"])
	assert.Equal("GET /inference/detr", mustResource(t, s, routes[1]).Properties["RouteKey"])

	integration := mustResource(t, s, aws.ResourceId(aws.ApiIntegrationType, "HttpApi", "POST /inference/detr Integration"))
	assert.Equal("AWS_PROXY", integration.Properties["IntegrationType"])
	assert.Equal("2.0", integration.Properties["PayloadFormatVersion"])
	assert.Equal(construct.PropertyRef{Resource: fn.ID, Property: "Arn"}, integration.Properties["IntegrationUri"])

	permission := mustResource(t, s, aws.ResourceId(aws.LambdaPermissionType, "HttpApi", "POST /inference/detr Permission"))
	assert.Equal("apigateway.amazonaws.com", permission.Properties["Principal"])

	_, err = gw.AddRoutes(AddRoutesOptions{
		Path:        "/inference/detr",
		Methods:     []string{"POST"},
		Integration: LambdaProxyIntegration{Handler: fn.ID},
	})
	assert.ErrorContains(err, "already exists", "duplicate routes are rejected by the graph")

	_, err = gw.AddRoutes(AddRoutesOptions{Path: "inference", Methods: []string{"POST"}})
	assert.Error(err)
	_, err = gw.AddRoutes(AddRoutesOptions{Path: "/inference"})
	assert.Error(err)

	// CORS does not change with the routes
	assert.Equal(Cors, api.Properties["CorsConfiguration"])
}

func TestInferenceEngine(t *testing.T) {
	assert := assert.New(t)
	s := newTestStack(t, defaultConfig())

	for _, engine := range s.Engines {
		fn := mustResource(t, s.Stack, engine.Function)
		model := engine.Model

		assert.Equal(model+".handler", fn.Properties["Handler"])
		assert.Equal(model+"InferenceFunction", fn.Properties["FunctionName"])
		assert.Equal("python3.7", fn.Properties["Runtime"])
		assert.Equal(300, fn.Properties["Timeout"])
		assert.Equal(10240, fn.Properties["MemorySize"])

		env, err := fn.GetProperty("Environment.Variables")
		assert.NoError(err)
		assert.Equal(map[string]any{
			"PYTHONPATH": "/mnt/inference/" + model + "/lib",
			"TORCH_HOME": "/mnt/inference/" + model + "/model",
			"TF_WEIGHTS": "/mnt/inference/" + model + "/model/yolov4-416",
		}, env)

		mount, err := fn.GetProperty("FileSystemConfigs[0].LocalMountPath")
		assert.NoError(err)
		assert.Equal("/mnt/inference", mount)
		arn, err := fn.GetProperty("FileSystemConfigs[0].Arn")
		assert.NoError(err)
		assert.Equal(s.FileSystem.AccessPoint.Arn(), arn)

		for _, mt := range s.FileSystem.MountTargets {
			_, err := s.Graph.Edge(fn.ID, mt)
			assert.NoError(err, "%s should depend on %s", fn.ID, mt)
		}

		policy := mustResource(t, s.Stack, aws.ResourceId(aws.IamPolicyType, engine.Function.Namespace, model+"InferenceFunctionServiceRoleDefaultPolicy"))
		doc := policy.Properties["PolicyDocument"].(*aws.PolicyDocument)
		require.Len(t, doc.Statement, 1)
		assert.Equal(InferenceFunctionActions, doc.Statement[0].Action)
		assert.Equal([]any{"*"}, doc.Statement[0].Resource)

		role := mustResource(t, s.Stack, engine.Role)
		assert.Equal(aws.LAMBDA_ASSUMER_ROLE_POLICY, role.Properties["AssumeRolePolicyDocument"])

		require.Len(t, engine.Routes, 1)
		assert.Equal("POST /inference/"+model, engine.Routes[0].Name)
	}
}

func TestInferenceEngine_Environment(t *testing.T) {
	base := func(s *Stack) InferenceProps {
		n, err := NewNetwork(s, "Vpc", NetworkProps{MaxAzs: 1, CidrBlock: "10.0.0.0/16"})
		require.NoError(t, err)
		efs, err := NewInferenceFileSystem(s, "Fs", FileSystemProps{Network: n, SecurityGroup: n.DefaultSecurityGroup})
		require.NoError(t, err)
		api, err := NewHttpApi(s, "HttpApi", HttpApiProps{StageName: "test"})
		require.NoError(t, err)
		return InferenceProps{Network: n, AccessPoint: efs.AccessPoint, Api: api, Model: "detr", Code: testAsset}
	}

	t.Run("extra variables", func(t *testing.T) {
		s := NewStack("s", nil)
		props := base(s)
		props.Environment = map[string]string{"LOG_LEVEL": "debug"}
		engine, err := NewInferenceEngine(s, "DetrInferenceEngine", props)
		require.NoError(t, err)
		level, err := mustResource(t, s, engine.Function).GetProperty("Environment.Variables.LOG_LEVEL")
		assert.NoError(t, err)
		assert.Equal(t, "debug", level)
	})

	t.Run("model paths are fixed", func(t *testing.T) {
		s := NewStack("s", nil)
		props := base(s)
		props.Environment = map[string]string{"TORCH_HOME": "/mnt/inference/yolo/model"}
		_, err := NewInferenceEngine(s, "DetrInferenceEngine", props)
		assert.ErrorContains(t, err, "cannot be overridden")
	})

	t.Run("missing props", func(t *testing.T) {
		_, err := NewInferenceEngine(NewStack("s", nil), "E", InferenceProps{Model: "detr"})
		assert.Error(t, err)
	})
}

func TestBastionHost(t *testing.T) {
	assert := assert.New(t)
	s := newTestStack(t, defaultConfig())

	instance := mustResource(t, s.Stack, s.Bastion.Instance)
	assert.Equal("m5.xlarge", instance.Properties["InstanceType"])
	assert.Equal(construct.PropertyRef{Resource: s.Network.PrivateSubnets[0]}, instance.Properties["SubnetId"])
	assert.Equal([]any{s.Network.DefaultSecurityGroup}, instance.Properties["SecurityGroupIds"])
	assert.Equal([]any{BlockDeviceMapping{
		DeviceName: "/dev/xvda",
		Ebs:        EbsBlockDevice{VolumeSize: 64, VolumeType: "gp2"},
	}}, instance.Properties["BlockDeviceMappings"])
	assert.Equal(construct.PropertyRef{Resource: aws.ParameterId("SsmParameterValueAmazonLinux2ImageId")}, instance.Properties["ImageId"])

	role := mustResource(t, s.Stack, s.Bastion.Role)
	assert.Equal([]any{
		aws.ManagedPolicyArn("AmazonSSMManagedInstanceCore"),
		aws.ManagedPolicyArn("AmazonElasticFileSystemClientFullAccess"),
		aws.ManagedPolicyArn("AmazonElasticFileSystemsUtils"),
	}, role.Properties["ManagedPolicyArns"])

	out := mustResource(t, s.Stack, aws.OutputId("BastionHostId"))
	assert.Equal(instance.Ref(), out.Properties["Value"])
}

package stack

import (
	"testing"

	"github.com/klothoplatform/inference-stack/pkg/construct"
	"github.com/klothoplatform/inference-stack/pkg/provider/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	detr := aws.ResourceId(aws.LambdaFunctionType, "DetrInferenceEngine", "detrInferenceFunction")
	yolo := aws.ResourceId(aws.LambdaFunctionType, "YoloInferenceEngine", "yoloInferenceFunction")

	tests := []struct {
		name    string
		tamper  func(t *testing.T, s *InferenceStack)
		removal construct.RemovalPolicy
		wantErr string
	}{
		{
			name:   "default stack",
			tamper: func(t *testing.T, s *InferenceStack) {},
		},
		{
			name: "environment points at another model",
			tamper: func(t *testing.T, s *InferenceStack) {
				fn := mustResource(t, s.Stack, detr)
				require.NoError(t, fn.SetProperty("Environment.Variables.TF_WEIGHTS", "/mnt/inference/yolo/model/yolov4-416"))
			},
			wantErr: "references model yolo",
		},
		{
			name: "wrong mount path",
			tamper: func(t *testing.T, s *InferenceStack) {
				fn := mustResource(t, s.Stack, yolo)
				require.NoError(t, fn.SetProperty("FileSystemConfigs[0].LocalMountPath", "/mnt/yolo"))
			},
			wantErr: "must mount only access point",
		},
		{
			name: "function in public subnet",
			tamper: func(t *testing.T, s *InferenceStack) {
				fn := mustResource(t, s.Stack, yolo)
				require.NoError(t, fn.SetProperty("VpcConfig.SubnetIds", refs(s.Network.PublicSubnets)))
			},
			wantErr: "must be placed in the private subnets",
		},
		{
			name: "bastion with another security group",
			tamper: func(t *testing.T, s *InferenceStack) {
				instance := mustResource(t, s.Stack, s.Bastion.Instance)
				instance.Properties["SecurityGroupIds"] = []any{construct.PropertyRef{Resource: s.Network.Vpc, Property: "CidrBlock"}}
			},
			wantErr: "must use only the default security group",
		},
		{
			name: "access point owner",
			tamper: func(t *testing.T, s *InferenceStack) {
				ap := mustResource(t, s.Stack, s.FileSystem.AccessPoint.ID)
				ap.Properties["PosixUser"] = PosixUser{Uid: "0", Gid: "0"}
			},
			wantErr: "access point must use uid/gid 1001/1001",
		},
		{
			name: "cors without post",
			tamper: func(t *testing.T, s *InferenceStack) {
				api := mustResource(t, s.Stack, s.Api.Api)
				cors := Cors
				cors.AllowMethods = []string{"GET"}
				api.Properties["CorsConfiguration"] = cors
			},
			wantErr: "CORS must allow method POST",
		},
		{
			name: "route with another method",
			tamper: func(t *testing.T, s *InferenceStack) {
				_, err := s.Api.AddRoutes(AddRoutesOptions{
					Path:        "/inference/detr",
					Methods:     []string{"GET"},
					Integration: LambdaProxyIntegration{Handler: detr},
				})
				require.NoError(t, err)
			},
			wantErr: `must be served by exactly "POST /inference/detr"`,
		},
		{
			name: "retained file system by default",
			tamper: func(t *testing.T, s *InferenceStack) {
				fs := mustResource(t, s.Stack, s.FileSystem.FileSystem)
				fs.RemovalPolicy = construct.RemovalPolicyRetain
			},
			wantErr: `file system removal policy must be "destroy", got "retain"`,
		},
		{
			name:    "destroyed file system when retain is configured",
			tamper:  func(t *testing.T, s *InferenceStack) {},
			removal: construct.RemovalPolicyRetain,
			wantErr: `file system removal policy must be "retain", got "destroy"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStack(t, defaultConfig())
			tt.tamper(t, s)
			err := Validate(s.Graph, tt.removal)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

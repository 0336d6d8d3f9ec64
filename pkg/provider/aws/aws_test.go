package aws

import (
	"testing"

	"github.com/klothoplatform/inference-stack/pkg/construct"
	"github.com/stretchr/testify/assert"
)

func TestCloudFormationType(t *testing.T) {
	tests := []struct {
		name    string
		id      construct.ResourceId
		want    string
		wantErr bool
	}{
		{name: "vpc", id: ResourceId(VpcType, "", "Vpc"), want: "AWS::EC2::VPC"},
		{name: "access point", id: ResourceId(EfsAccessPointType, "InferenceFileSystem", "AccessPoint"), want: "AWS::EFS::AccessPoint"},
		{name: "route", id: ResourceId(ApiRouteType, "HttpApi", "POST /inference/detr"), want: "AWS::ApiGatewayV2::Route"},
		{name: "unknown type", id: ResourceId("queue", "", "q"), wantErr: true},
		{name: "template entry", id: OutputId("HttpApiUrl"), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CloudFormationType(tt.id)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIntrinsicRefs(t *testing.T) {
	assert := assert.New(t)
	api := ResourceId(ApiType, "HttpApi", "HttpApi")
	stage := ResourceId(ApiStageType, "HttpApi", "DefaultStage")

	url := JoinAll("https://", construct.PropertyRef{Resource: api}, ".execute-api.", PseudoRegion, ".", PseudoURLSuffix, "/", construct.PropertyRef{Resource: stage})
	assert.Equal([]construct.PropertyRef{{Resource: api}, {Resource: stage}}, url.PropertyRefs())

	assert.Empty(AvailabilityZone(1).PropertyRefs())

	nested := Select{Index: 0, List: JoinAll(construct.PropertyRef{Resource: api, Property: "ApiEndpoint"})}
	assert.Equal([]construct.PropertyRef{{Resource: api, Property: "ApiEndpoint"}}, nested.PropertyRefs())
}

func TestPolicyDocument(t *testing.T) {
	assert := assert.New(t)
	assert.Equal([]string{"sts:AssumeRole"}, LAMBDA_ASSUMER_ROLE_POLICY.Actions())
	assert.Equal("ec2.amazonaws.com", EC2_ASSUMER_ROLE_POLICY.Statement[0].Principal.Service)

	doc := &PolicyDocument{
		Version: VERSION,
		Statement: []StatementEntry{
			{Effect: "Allow", Action: []string{"logs:CreateLogGroup"}, Resource: []any{"*"}},
			{Effect: "Deny", Action: []string{"logs:DeleteLogGroup"}, Resource: []any{"*"}},
		},
	}
	assert.Equal([]string{"logs:CreateLogGroup"}, doc.Actions())
}

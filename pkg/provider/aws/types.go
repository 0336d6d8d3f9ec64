package aws

import (
	"fmt"

	"github.com/klothoplatform/inference-stack/pkg/construct"
)

const (
	Provider = "aws"

	// TemplateProvider is used for template level entries (parameters and outputs) which live in the graph
	// alongside resources so references to and from them become edges.
	TemplateProvider = "cfn"

	ParameterType = "parameter"
	OutputType    = "output"
)

const (
	VpcType                   = "vpc"
	InternetGatewayType       = "internet_gateway"
	VpcGatewayAttachmentType  = "vpc_gateway_attachment"
	SubnetType                = "subnet"
	RouteTableType            = "route_table"
	RouteTableAssociationType = "route_table_association"
	RouteType                 = "route"
	ElasticIpType             = "elastic_ip"
	NatGatewayType            = "nat_gateway"

	EfsFileSystemType  = "efs_file_system"
	EfsMountTargetType = "efs_mount_target"
	EfsAccessPointType = "efs_access_point"

	ApiType            = "api"
	ApiStageType       = "api_stage"
	ApiIntegrationType = "api_integration"
	ApiRouteType       = "api_route"

	LambdaFunctionType   = "lambda_function"
	LambdaPermissionType = "lambda_permission"

	IamRoleType            = "iam_role"
	IamPolicyType          = "iam_policy"
	IamInstanceProfileType = "iam_instance_profile"

	Ec2InstanceType = "ec2_instance"
)

// CloudFormationTypes maps resource id types to their CloudFormation resource type.
var CloudFormationTypes = map[string]string{
	VpcType:                   "AWS::EC2::VPC",
	InternetGatewayType:       "AWS::EC2::InternetGateway",
	VpcGatewayAttachmentType:  "AWS::EC2::VPCGatewayAttachment",
	SubnetType:                "AWS::EC2::Subnet",
	RouteTableType:            "AWS::EC2::RouteTable",
	RouteTableAssociationType: "AWS::EC2::SubnetRouteTableAssociation",
	RouteType:                 "AWS::EC2::Route",
	ElasticIpType:             "AWS::EC2::EIP",
	NatGatewayType:            "AWS::EC2::NatGateway",

	EfsFileSystemType:  "AWS::EFS::FileSystem",
	EfsMountTargetType: "AWS::EFS::MountTarget",
	EfsAccessPointType: "AWS::EFS::AccessPoint",

	ApiType:            "AWS::ApiGatewayV2::Api",
	ApiStageType:       "AWS::ApiGatewayV2::Stage",
	ApiIntegrationType: "AWS::ApiGatewayV2::Integration",
	ApiRouteType:       "AWS::ApiGatewayV2::Route",

	LambdaFunctionType:   "AWS::Lambda::Function",
	LambdaPermissionType: "AWS::Lambda::Permission",

	IamRoleType:            "AWS::IAM::Role",
	IamPolicyType:          "AWS::IAM::Policy",
	IamInstanceProfileType: "AWS::IAM::InstanceProfile",

	Ec2InstanceType: "AWS::EC2::Instance",
}

// CloudFormationType returns the CloudFormation type of the resource `id`.
func CloudFormationType(id construct.ResourceId) (string, error) {
	if id.Provider != Provider {
		return "", fmt.Errorf("resource %s is not an %s resource", id, Provider)
	}
	t, ok := CloudFormationTypes[id.Type]
	if !ok {
		return "", fmt.Errorf("unsupported resource type %q for %s", id.Type, id)
	}
	return t, nil
}

// ResourceId creates the id of an AWS resource of type `typ` owned by the component `namespace`.
func ResourceId(typ, namespace, name string) construct.ResourceId {
	return construct.ResourceId{Provider: Provider, Type: typ, Namespace: namespace, Name: name}
}

func ParameterId(name string) construct.ResourceId {
	return construct.ResourceId{Provider: TemplateProvider, Type: ParameterType, Name: name}
}

func OutputId(name string) construct.ResourceId {
	return construct.ResourceId{Provider: TemplateProvider, Type: OutputType, Name: name}
}

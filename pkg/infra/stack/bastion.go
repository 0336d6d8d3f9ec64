package stack

import (
	"fmt"

	"github.com/klothoplatform/inference-stack/pkg/construct"
	"github.com/klothoplatform/inference-stack/pkg/provider/aws"
)

type (
	BastionProps struct {
		Network       *Network
		SecurityGroup construct.PropertyRef
		InstanceType  string
		// VolumeSize of the root device in GiB.
		VolumeSize int
	}

	// BastionHost is an instance in a private subnet that operators reach through session manager, used to
	// populate the shared file system.
	BastionHost struct {
		Instance construct.ResourceId
		Role     construct.ResourceId
	}

	BlockDeviceMapping struct {
		DeviceName string
		Ebs        EbsBlockDevice
	}

	EbsBlockDevice struct {
		VolumeSize int
		VolumeType string
	}
)

const (
	DefaultBastionInstanceType = "m5.xlarge"
	DefaultBastionVolumeSize   = 64
	BastionRootDevice          = "/dev/xvda"

	// AmazonLinux2ImageParameter is the public SSM parameter holding the latest Amazon Linux 2 AMI.
	AmazonLinux2ImageParameter = "/aws/service/ami-amazon-linux-latest/amzn2-ami-hvm-x86_64-gp2"
)

var BastionManagedPolicies = []string{
	"AmazonSSMManagedInstanceCore",
	"AmazonElasticFileSystemClientFullAccess",
	"AmazonElasticFileSystemsUtils",
}

func NewBastionHost(s *Stack, id string, props BastionProps) (*BastionHost, error) {
	if props.Network == nil || len(props.Network.PrivateSubnets) == 0 {
		return nil, fmt.Errorf("bastion host %s requires a network with private subnets", id)
	}

	image, err := s.AddParameter("SsmParameterValueAmazonLinux2ImageId", Parameter{
		Type:    "AWS::SSM::Parameter::Value<AWS::EC2::Image::Id>",
		Default: AmazonLinux2ImageParameter,
	})
	if err != nil {
		return nil, err
	}

	role := construct.CreateResource(aws.ResourceId(aws.IamRoleType, id, "BastionHostLinuxInstanceRole"))
	role.Properties["AssumeRolePolicyDocument"] = aws.EC2_ASSUMER_ROLE_POLICY
	policies := make([]any, len(BastionManagedPolicies))
	for i, p := range BastionManagedPolicies {
		policies[i] = aws.ManagedPolicyArn(p)
	}
	role.Properties["ManagedPolicyArns"] = policies
	role.Properties["Tags"] = tags("Name", id)

	profile := construct.CreateResource(aws.ResourceId(aws.IamInstanceProfileType, id, "BastionHostLinuxInstanceProfile"))
	profile.Properties["Roles"] = []any{role.Ref()}

	subnet := props.Network.PrivateSubnets[0]
	instance := construct.CreateResource(aws.ResourceId(aws.Ec2InstanceType, id, "BastionHostLinux"))
	instance.Properties["AvailabilityZone"] = construct.PropertyRef{Resource: subnet, Property: "AvailabilityZone"}
	instance.Properties["IamInstanceProfile"] = profile.Ref()
	instance.Properties["ImageId"] = image
	instance.Properties["InstanceType"] = orDefault(props.InstanceType, DefaultBastionInstanceType)
	instance.Properties["SecurityGroupIds"] = []any{props.SecurityGroup}
	instance.Properties["SubnetId"] = construct.PropertyRef{Resource: subnet}
	instance.Properties["BlockDeviceMappings"] = []any{
		BlockDeviceMapping{
			DeviceName: BastionRootDevice,
			Ebs: EbsBlockDevice{
				VolumeSize: orDefault(props.VolumeSize, DefaultBastionVolumeSize),
				VolumeType: "gp2",
			},
		},
	}
	instance.Properties["Tags"] = tags("Name", id)
	instance.DependsOn = []construct.ResourceId{role.ID}

	if err := s.AddAll(role, profile, instance); err != nil {
		return nil, err
	}
	if err := s.AddOutput("BastionHostId", Output{Value: instance.Ref(), ExportName: "BastionHostId"}); err != nil {
		return nil, err
	}
	return &BastionHost{Instance: instance.ID, Role: role.ID}, nil
}

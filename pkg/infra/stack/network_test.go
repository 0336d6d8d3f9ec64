package stack

import (
	"testing"

	"github.com/klothoplatform/inference-stack/pkg/construct"
	"github.com/klothoplatform/inference-stack/pkg/provider/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubnetCidrs(t *testing.T) {
	tests := []struct {
		name    string
		block   string
		count   int
		want    []string
		wantErr bool
	}{
		{
			name:  "two azs",
			block: "10.0.0.0/16",
			count: 4,
			want:  []string{"10.0.0.0/18", "10.0.64.0/18", "10.0.128.0/18", "10.0.192.0/18"},
		},
		{
			name:  "three azs",
			block: "10.0.0.0/16",
			count: 6,
			want:  []string{"10.0.0.0/19", "10.0.32.0/19", "10.0.64.0/19", "10.0.96.0/19", "10.0.128.0/19", "10.0.160.0/19"},
		},
		{
			name:  "unmasked block",
			block: "192.168.7.1/24",
			count: 2,
			want:  []string{"192.168.7.0/25", "192.168.7.128/25"},
		},
		{name: "too small", block: "10.0.0.0/27", count: 4, wantErr: true},
		{name: "ipv6", block: "fd00::/56", count: 2, wantErr: true},
		{name: "garbage", block: "10.0.0/16", count: 2, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SubnetCidrs(tt.block, tt.count)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewNetwork(t *testing.T) {
	assert := assert.New(t)
	s := NewStack("InferenceStack", nil)
	n, err := NewNetwork(s, "Vpc", NetworkProps{MaxAzs: 2, CidrBlock: "10.0.0.0/16"})
	require.NoError(t, err)

	assert.Equal(aws.ResourceId(aws.VpcType, "Vpc", "Vpc"), n.Vpc)
	assert.Equal(construct.PropertyRef{Resource: n.Vpc, Property: "DefaultSecurityGroup"}, n.DefaultSecurityGroup)
	assert.Len(n.PublicSubnets, 2)
	require.Len(t, n.PrivateSubnets, 2)

	for i, id := range n.PrivateSubnets {
		subnet := mustResource(t, s, id)
		assert.Equal(false, subnet.Properties["MapPublicIpOnLaunch"])
		assert.Equal(aws.AvailabilityZone(i), subnet.Properties["AvailabilityZone"])

		route := mustResource(t, s, aws.ResourceId(aws.RouteType, "Vpc", id.Name+"DefaultRoute"))
		nat := aws.ResourceId(aws.NatGatewayType, "Vpc", n.PublicSubnets[i].Name+"NATGateway")
		assert.Equal(construct.PropertyRef{Resource: nat}, route.Properties["NatGatewayId"],
			"private subnet %d should route through the NAT gateway of its zone", i+1)
	}
	assert.Equal("10.0.128.0/18", mustResource(t, s, n.PrivateSubnets[0]).Properties["CidrBlock"])

	publicRoute := mustResource(t, s, aws.ResourceId(aws.RouteType, "Vpc", "PublicSubnet1DefaultRoute"))
	assert.Equal(construct.PropertyRef{Resource: aws.ResourceId(aws.InternetGatewayType, "Vpc", "IGW")}, publicRoute.Properties["GatewayId"])
	_, err = s.Graph.Edge(publicRoute.ID, aws.ResourceId(aws.VpcGatewayAttachmentType, "Vpc", "VPCGW"))
	assert.NoError(err, "public route should wait for the gateway attachment")
}

func TestNewNetwork_Invalid(t *testing.T) {
	_, err := NewNetwork(NewStack("s", nil), "Vpc", NetworkProps{MaxAzs: 0, CidrBlock: "10.0.0.0/16"})
	assert.ErrorContains(t, err, "max AZs")

	_, err = NewNetwork(NewStack("s", nil), "Vpc", NetworkProps{MaxAzs: 2, CidrBlock: "nope"})
	assert.ErrorContains(t, err, "invalid CIDR")
}

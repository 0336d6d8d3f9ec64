package stack

import (
	"errors"
	"fmt"
	"math/bits"
	"net/netip"

	"github.com/klothoplatform/inference-stack/pkg/construct"
	"github.com/klothoplatform/inference-stack/pkg/provider/aws"
	"go.uber.org/zap"
)

type (
	NetworkProps struct {
		MaxAzs    int
		CidrBlock string
	}

	// Network is a VPC with one public and one private subnet per availability zone. Private subnets reach
	// the internet through a NAT gateway in the public subnet of the same zone.
	Network struct {
		Vpc            construct.ResourceId
		PublicSubnets  []construct.ResourceId
		PrivateSubnets []construct.ResourceId

		// DefaultSecurityGroup is the security group the VPC was created with. It is referenced, not created.
		DefaultSecurityGroup construct.PropertyRef
	}
)

const anyIPv4 = "0.0.0.0/0"

func NewNetwork(s *Stack, id string, props NetworkProps) (*Network, error) {
	log := s.Log.Named("network")
	if props.MaxAzs < 1 {
		return nil, fmt.Errorf("network %s: max AZs must be at least 1, got %d", id, props.MaxAzs)
	}
	cidrs, err := SubnetCidrs(props.CidrBlock, 2*props.MaxAzs)
	if err != nil {
		return nil, fmt.Errorf("network %s: %w", id, err)
	}

	vpc := construct.CreateResource(aws.ResourceId(aws.VpcType, id, id))
	vpc.Properties["CidrBlock"] = props.CidrBlock
	vpc.Properties["EnableDnsHostnames"] = true
	vpc.Properties["EnableDnsSupport"] = true
	vpc.Properties["InstanceTenancy"] = "default"
	vpc.Properties["Tags"] = tags("Name", fmt.Sprintf("%s/%s", s.Name, id))

	igw := construct.CreateResource(aws.ResourceId(aws.InternetGatewayType, id, "IGW"))
	igw.Properties["Tags"] = tags("Name", fmt.Sprintf("%s/%s", s.Name, id))

	attachment := construct.CreateResource(aws.ResourceId(aws.VpcGatewayAttachmentType, id, "VPCGW"))
	attachment.Properties["VpcId"] = vpc.Ref()
	attachment.Properties["InternetGatewayId"] = igw.Ref()

	if err := s.AddAll(vpc, igw, attachment); err != nil {
		return nil, err
	}

	n := &Network{
		Vpc:                  vpc.ID,
		DefaultSecurityGroup: vpc.Attr("DefaultSecurityGroup"),
	}

	var errs error
	natGateways := make([]*construct.Resource, props.MaxAzs)
	for i := 0; i < props.MaxAzs; i++ {
		subnet, nat, err := n.addSubnet(s, id, subnetSpec{
			name:   fmt.Sprintf("PublicSubnet%d", i+1),
			public: true,
			cidr:   cidrs[i],
			az:     i,
			egress: igw,
			after:  attachment,
		})
		if err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		n.PublicSubnets = append(n.PublicSubnets, subnet.ID)
		natGateways[i] = nat
	}
	if errs != nil {
		return nil, errs
	}
	for i := 0; i < props.MaxAzs; i++ {
		subnet, _, err := n.addSubnet(s, id, subnetSpec{
			name:   fmt.Sprintf("PrivateSubnet%d", i+1),
			cidr:   cidrs[props.MaxAzs+i],
			az:     i,
			egress: natGateways[i],
		})
		if err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		n.PrivateSubnets = append(n.PrivateSubnets, subnet.ID)
	}
	if errs != nil {
		return nil, errs
	}

	log.Debug("network created",
		zap.Int("azs", props.MaxAzs),
		zap.Strings("subnets", cidrs),
	)
	return n, nil
}

type subnetSpec struct {
	name   string
	public bool
	cidr   string
	az     int
	// egress is the target of the subnet's default route: the internet gateway for public subnets, the
	// NAT gateway of the same zone for private ones.
	egress *construct.Resource
	// after is an extra dependency of the default route
	after *construct.Resource
}

// addSubnet adds a subnet with its route table and default route. For public subnets it also adds the
// NAT gateway serving the private subnet of the same zone, which it returns.
func (n *Network) addSubnet(s *Stack, ns string, spec subnetSpec) (*construct.Resource, *construct.Resource, error) {
	kind := "Private"
	if spec.public {
		kind = "Public"
	}

	subnet := construct.CreateResource(aws.ResourceId(aws.SubnetType, ns, spec.name))
	subnet.Properties["VpcId"] = construct.PropertyRef{Resource: n.Vpc}
	subnet.Properties["CidrBlock"] = spec.cidr
	subnet.Properties["AvailabilityZone"] = aws.AvailabilityZone(spec.az)
	subnet.Properties["MapPublicIpOnLaunch"] = spec.public
	subnet.Properties["Tags"] = tags(
		"Name", fmt.Sprintf("%s/%s/%s", s.Name, ns, spec.name),
		"aws-cdk:subnet-name", kind,
		"aws-cdk:subnet-type", kind,
	)

	routeTable := construct.CreateResource(aws.ResourceId(aws.RouteTableType, ns, spec.name+"RouteTable"))
	routeTable.Properties["VpcId"] = construct.PropertyRef{Resource: n.Vpc}
	routeTable.Properties["Tags"] = tags("Name", fmt.Sprintf("%s/%s/%s", s.Name, ns, spec.name))

	association := construct.CreateResource(aws.ResourceId(aws.RouteTableAssociationType, ns, spec.name+"RouteTableAssociation"))
	association.Properties["RouteTableId"] = routeTable.Ref()
	association.Properties["SubnetId"] = subnet.Ref()

	route := construct.CreateResource(aws.ResourceId(aws.RouteType, ns, spec.name+"DefaultRoute"))
	route.Properties["RouteTableId"] = routeTable.Ref()
	route.Properties["DestinationCidrBlock"] = anyIPv4
	if spec.public {
		route.Properties["GatewayId"] = spec.egress.Ref()
	} else {
		route.Properties["NatGatewayId"] = spec.egress.Ref()
	}
	if spec.after != nil {
		route.DependsOn = append(route.DependsOn, spec.after.ID)
	}

	if err := s.AddAll(subnet, routeTable, association, route); err != nil {
		return nil, nil, err
	}
	if !spec.public {
		return subnet, nil, nil
	}

	eip := construct.CreateResource(aws.ResourceId(aws.ElasticIpType, ns, spec.name+"EIP"))
	eip.Properties["Domain"] = "vpc"
	eip.Properties["Tags"] = tags("Name", fmt.Sprintf("%s/%s/%s", s.Name, ns, spec.name))

	nat := construct.CreateResource(aws.ResourceId(aws.NatGatewayType, ns, spec.name+"NATGateway"))
	nat.Properties["SubnetId"] = subnet.Ref()
	nat.Properties["AllocationId"] = eip.Attr("AllocationId")
	nat.Properties["Tags"] = tags("Name", fmt.Sprintf("%s/%s/%s", s.Name, ns, spec.name))

	if err := s.AddAll(eip, nat); err != nil {
		return nil, nil, err
	}
	return subnet, nat, nil
}

// SubnetCidrs carves `block` into `count` equal consecutive subnets, using the fewest extra prefix bits
// which fit them all.
func SubnetCidrs(block string, count int) ([]string, error) {
	prefix, err := netip.ParsePrefix(block)
	if err != nil {
		return nil, fmt.Errorf("invalid CIDR block %q: %w", block, err)
	}
	if !prefix.Addr().Is4() {
		return nil, fmt.Errorf("CIDR block %q is not IPv4", block)
	}
	prefix = prefix.Masked()
	if count < 1 {
		return nil, fmt.Errorf("subnet count must be positive, got %d", count)
	}

	extra := bits.Len(uint(count - 1))
	size := prefix.Bits() + extra
	// the smallest subnet AWS allows is a /28
	if size > 28 {
		return nil, fmt.Errorf("CIDR block %s is too small for %d subnets", block, count)
	}

	base := prefix.Addr().As4()
	start := uint32(base[0])<<24 | uint32(base[1])<<16 | uint32(base[2])<<8 | uint32(base[3])
	step := uint32(1) << (32 - size)

	cidrs := make([]string, count)
	for i := 0; i < count; i++ {
		v := start + uint32(i)*step
		addr := netip.AddrFrom4([4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)})
		cidrs[i] = netip.PrefixFrom(addr, size).String()
	}
	return cidrs, nil
}

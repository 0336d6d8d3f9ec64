package aws

import "github.com/klothoplatform/inference-stack/pkg/construct"

type (
	// Join concatenates `Values` with `Delimiter` once the values are resolved at deploy time.
	Join struct {
		Delimiter string
		Values    []any
	}

	// Select picks the `Index`th element of a list resolved at deploy time.
	Select struct {
		Index int
		List  any
	}

	// GetAZs lists the availability zones of `Region`, or of the stack's region when empty.
	GetAZs struct {
		Region string
	}

	// Pseudo is a CloudFormation pseudo parameter, such as AWS::Region.
	Pseudo string
)

const (
	PseudoRegion    Pseudo = "AWS::Region"
	PseudoAccountId Pseudo = "AWS::AccountId"
	PseudoPartition Pseudo = "AWS::Partition"
	PseudoURLSuffix Pseudo = "AWS::URLSuffix"
	PseudoStackName Pseudo = "AWS::StackName"
)

// JoinAll concatenates the values without a delimiter, the form used to build ARNs and URLs.
func JoinAll(values ...any) Join {
	return Join{Values: values}
}

// AvailabilityZone returns the `i`th availability zone of the stack's region.
func AvailabilityZone(i int) Select {
	return Select{Index: i, List: GetAZs{}}
}

func (j Join) PropertyRefs() []construct.PropertyRef {
	return refsOf(j.Values...)
}

func (s Select) PropertyRefs() []construct.PropertyRef {
	return refsOf(s.List)
}

func refsOf(values ...any) []construct.PropertyRef {
	r := construct.Resource{Properties: construct.Properties{"values": values}}
	return r.PropertyRefs()
}

// ManagedPolicyArn returns the partition independent ARN of the AWS managed policy `name`, which may
// include a path (service-role/AWSLambdaBasicExecutionRole).
func ManagedPolicyArn(name string) Join {
	return JoinAll("arn:", PseudoPartition, ":iam::aws:policy/", name)
}

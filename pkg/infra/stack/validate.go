package stack

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/klothoplatform/inference-stack/pkg/construct"
	"github.com/klothoplatform/inference-stack/pkg/provider/aws"
	"github.com/mitchellh/mapstructure"
)

type (
	functionDescriptor struct {
		Handler     string
		Environment struct {
			Variables map[string]string
		}
		FileSystemConfigs []struct {
			Arn            construct.PropertyRef
			LocalMountPath string
		}
		VpcConfig struct {
			SubnetIds        []construct.PropertyRef
			SecurityGroupIds []construct.PropertyRef
		}
	}

	routeDescriptor struct {
		RouteKey string
	}

	integrationDescriptor struct {
		IntegrationUri construct.PropertyRef
	}

	accessPointDescriptor struct {
		PosixUser     PosixUser
		RootDirectory struct {
			CreationInfo CreationInfo
		}
	}

	apiDescriptor struct {
		CorsConfiguration CorsConfiguration
	}

	mountTargetDescriptor struct {
		SecurityGroups []construct.PropertyRef
		SubnetId       construct.PropertyRef
	}

	instanceDescriptor struct {
		SecurityGroupIds []construct.PropertyRef
		SubnetId         construct.PropertyRef
	}

	subnetDescriptor struct {
		MapPublicIpOnLaunch bool
	}
)

func describe(r *construct.Resource, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{Result: out})
	if err != nil {
		return err
	}
	if err := dec.Decode(map[string]any(r.Properties)); err != nil {
		return fmt.Errorf("unexpected properties on %s: %w", r.ID, err)
	}
	return nil
}

// Validate checks the cross component invariants of a declared inference stack:
//   - all compute and the file system share the private subnets and the VPC's default security group
//   - every function mounts the one access point at [MountPath], with its environment under its own model
//   - every function is served by exactly one route, `POST /inference/<model>`
//   - the access point is owned by [InferenceUid]/[InferenceGid]
//   - CORS allows the [Cors] methods and headers
//   - the file system has the `removal` policy, destroy when unset
func Validate(g construct.Graph, removal construct.RemovalPolicy) error {
	if removal == construct.RemovalPolicyDefault {
		removal = construct.RemovalPolicyDestroy
	}
	v := &validator{g: g, removal: removal}
	v.network()
	v.fileSystem()
	v.accessPoint()
	v.functions()
	v.api()
	return v.errs
}

type validator struct {
	g    construct.Graph
	errs error

	privateSubnets []construct.PropertyRef
	securityGroup  construct.PropertyRef
	accessPointId  construct.ResourceId
	removal        construct.RemovalPolicy
}

func (v *validator) fail(format string, args ...any) {
	v.errs = errors.Join(v.errs, fmt.Errorf(format, args...))
}

func (v *validator) resources(typ string) []*construct.Resource {
	rs, err := construct.ResourcesOfType(v.g, aws.ResourceId(typ, "", ""))
	if err != nil {
		v.errs = errors.Join(v.errs, err)
	}
	return rs
}

func (v *validator) network() {
	vpcs := v.resources(aws.VpcType)
	if len(vpcs) != 1 {
		v.fail("expected exactly one VPC, found %d", len(vpcs))
		return
	}
	v.securityGroup = vpcs[0].Attr("DefaultSecurityGroup")

	for _, subnet := range v.resources(aws.SubnetType) {
		var d subnetDescriptor
		if err := describe(subnet, &d); err != nil {
			v.errs = errors.Join(v.errs, err)
			continue
		}
		if !d.MapPublicIpOnLaunch {
			v.privateSubnets = append(v.privateSubnets, subnet.Ref())
		}
	}
	if len(v.privateSubnets) == 0 {
		v.fail("network has no private subnets")
	}

	for _, mt := range v.resources(aws.EfsMountTargetType) {
		var d mountTargetDescriptor
		if err := describe(mt, &d); err != nil {
			v.errs = errors.Join(v.errs, err)
			continue
		}
		v.checkSecurityGroups(mt.ID, d.SecurityGroups)
		v.checkPrivateSubnet(mt.ID, d.SubnetId)
	}
	for _, instance := range v.resources(aws.Ec2InstanceType) {
		var d instanceDescriptor
		if err := describe(instance, &d); err != nil {
			v.errs = errors.Join(v.errs, err)
			continue
		}
		v.checkSecurityGroups(instance.ID, d.SecurityGroupIds)
		v.checkPrivateSubnet(instance.ID, d.SubnetId)
	}
}

func (v *validator) checkSecurityGroups(id construct.ResourceId, groups []construct.PropertyRef) {
	if len(groups) != 1 || groups[0] != v.securityGroup {
		v.fail("%s must use only the default security group %s, got %v", id, v.securityGroup, groups)
	}
}

func (v *validator) checkPrivateSubnet(id construct.ResourceId, subnet construct.PropertyRef) {
	for _, s := range v.privateSubnets {
		if s == subnet {
			return
		}
	}
	v.fail("%s must be placed in a private subnet, got %s", id, subnet)
}

func (v *validator) fileSystem() {
	fss := v.resources(aws.EfsFileSystemType)
	if len(fss) != 1 {
		v.fail("expected exactly one file system, found %d", len(fss))
		return
	}
	if fss[0].RemovalPolicy != v.removal {
		v.fail("file system removal policy must be %q, got %q", v.removal, fss[0].RemovalPolicy)
	}
}

func (v *validator) accessPoint() {
	aps := v.resources(aws.EfsAccessPointType)
	if len(aps) != 1 {
		v.fail("expected exactly one access point, found %d", len(aps))
		return
	}
	v.accessPointId = aps[0].ID

	var d accessPointDescriptor
	if err := describe(aps[0], &d); err != nil {
		v.errs = errors.Join(v.errs, err)
		return
	}
	if d.PosixUser.Uid != InferenceUid || d.PosixUser.Gid != InferenceGid {
		v.fail("access point must use uid/gid %s/%s, got %s/%s", InferenceUid, InferenceGid, d.PosixUser.Uid, d.PosixUser.Gid)
	}
	ci := d.RootDirectory.CreationInfo
	if ci.OwnerUid != InferenceUid || ci.OwnerGid != InferenceGid {
		v.fail("access point root must be owned by %s/%s, got %s/%s", InferenceUid, InferenceGid, ci.OwnerUid, ci.OwnerGid)
	}
}

func (v *validator) functions() {
	functions := v.resources(aws.LambdaFunctionType)

	routesByFunction := make(map[construct.ResourceId][]string)
	integrations := make(map[construct.ResourceId]construct.ResourceId)
	for _, integration := range v.resources(aws.ApiIntegrationType) {
		var d integrationDescriptor
		if err := describe(integration, &d); err != nil {
			v.errs = errors.Join(v.errs, err)
			continue
		}
		integrations[integration.ID] = d.IntegrationUri.Resource
	}
	for _, route := range v.resources(aws.ApiRouteType) {
		var d routeDescriptor
		if err := describe(route, &d); err != nil {
			v.errs = errors.Join(v.errs, err)
			continue
		}
		for _, ref := range route.PropertyRefs() {
			if fn, ok := integrations[ref.Resource]; ok {
				routesByFunction[fn] = append(routesByFunction[fn], d.RouteKey)
			}
		}
	}

	models := make(map[string]construct.ResourceId, len(functions))
	for _, fn := range functions {
		var d functionDescriptor
		if err := describe(fn, &d); err != nil {
			v.errs = errors.Join(v.errs, err)
			continue
		}
		model, ok := strings.CutSuffix(d.Handler, ".handler")
		if !ok || model == "" {
			v.fail("%s handler %q must be <model>.handler", fn.ID, d.Handler)
			continue
		}
		models[model] = fn.ID

		if len(d.FileSystemConfigs) != 1 ||
			d.FileSystemConfigs[0].Arn.Resource != v.accessPointId ||
			d.FileSystemConfigs[0].LocalMountPath != MountPath {
			v.fail("%s must mount only access point %s at %s", fn.ID, v.accessPointId, MountPath)
		}

		want := ModelEnvironment(model)
		for k, value := range want {
			if d.Environment.Variables[k] != value {
				v.fail("%s environment %s must be %q, got %q", fn.ID, k, value, d.Environment.Variables[k])
			}
		}

		if !sameRefs(d.VpcConfig.SubnetIds, v.privateSubnets) {
			v.fail("%s must be placed in the private subnets %v, got %v", fn.ID, v.privateSubnets, d.VpcConfig.SubnetIds)
		}
		v.checkSecurityGroups(fn.ID, d.VpcConfig.SecurityGroupIds)

		routes := routesByFunction[fn.ID]
		if len(routes) != 1 || routes[0] != RouteKey("POST", InferencePath(model)) {
			v.fail("%s must be served by exactly %q, got %v", fn.ID, RouteKey("POST", InferencePath(model)), routes)
		}
	}

	// no function may reach into another model's directory
	for _, fn := range functions {
		var d functionDescriptor
		if err := describe(fn, &d); err != nil {
			continue
		}
		own, _ := strings.CutSuffix(d.Handler, ".handler")
		keys := make([]string, 0, len(d.Environment.Variables))
		for k := range d.Environment.Variables {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for other := range models {
			if other == own {
				continue
			}
			for _, k := range keys {
				if strings.Contains(d.Environment.Variables[k], ModelRoot(other)+"/") ||
					d.Environment.Variables[k] == ModelRoot(other) {
					v.fail("%s environment %s references model %s", fn.ID, k, other)
				}
			}
		}
	}
}

func (v *validator) api() {
	for _, api := range v.resources(aws.ApiType) {
		var d apiDescriptor
		if err := describe(api, &d); err != nil {
			v.errs = errors.Join(v.errs, err)
			continue
		}
		methods := make(map[string]bool)
		for _, m := range d.CorsConfiguration.AllowMethods {
			methods[m] = true
		}
		for _, m := range Cors.AllowMethods {
			if !methods[m] {
				v.fail("%s CORS must allow method %s", api.ID, m)
			}
		}
		headers := make(map[string]bool)
		for _, h := range d.CorsConfiguration.AllowHeaders {
			headers[strings.ToLower(h)] = true
		}
		for _, h := range Cors.AllowHeaders {
			if !headers[strings.ToLower(h)] {
				v.fail("%s CORS must allow header %s", api.ID, h)
			}
		}
	}
}

// sameRefs compares the refs as sets.
func sameRefs(a, b []construct.PropertyRef) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[construct.PropertyRef]int, len(a))
	for _, r := range a {
		seen[r]++
	}
	for _, r := range b {
		if seen[r] == 0 {
			return false
		}
		seen[r]--
	}
	return true
}

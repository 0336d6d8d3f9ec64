package construct

type (
	Resource struct {
		ID         ResourceId
		Properties Properties

		// DependsOn lists resources this one must be created after even though none of its properties
		// reference them (eg a function that mounts a filesystem needs the mount targets to exist).
		DependsOn []ResourceId

		// RemovalPolicy controls what the provisioning engine does with the physical resource when it
		// is removed from the stack.
		RemovalPolicy RemovalPolicy
	}

	RemovalPolicy string
)

const (
	// RemovalPolicyDefault leaves the decision to the provisioning engine's default for the resource type.
	RemovalPolicyDefault RemovalPolicy = ""
	RemovalPolicyDestroy RemovalPolicy = "destroy"
	RemovalPolicyRetain  RemovalPolicy = "retain"
)

func CreateResource(id ResourceId) *Resource {
	return &Resource{
		ID:         id,
		Properties: make(Properties),
	}
}

// Ref returns a reference to the primary identifier of the resource.
func (r *Resource) Ref() PropertyRef {
	return PropertyRef{Resource: r.ID}
}

// Attr returns a reference to the named attribute of the resource.
func (r *Resource) Attr(attribute string) PropertyRef {
	return PropertyRef{Resource: r.ID, Property: attribute}
}

package construct

import (
	"bytes"
	"fmt"
)

// PropertyRef points at an attribute of another resource. An empty Property refers to the resource's
// primary identifier.
type PropertyRef struct {
	Resource ResourceId
	Property string
}

func (v PropertyRef) String() string {
	if v.Property == "" {
		return v.Resource.String()
	}
	return v.Resource.String() + "#" + v.Property
}

func (v PropertyRef) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *PropertyRef) UnmarshalText(b []byte) error {
	parts := bytes.SplitN(b, []byte("#"), 2)
	err := v.Resource.UnmarshalText(parts[0])
	if err != nil {
		return fmt.Errorf("invalid PropertyRef format %q: %w", string(b), err)
	}
	if len(parts) == 2 {
		v.Property = string(parts[1])
	}
	return nil
}

package construct

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

type (
	Properties map[string]any

	// RefHolder is implemented by composite property values (such as intrinsic functions) which embed
	// references to other resources.
	RefHolder interface {
		PropertyRefs() []PropertyRef
	}

	PropertyPathError struct {
		Path  string
		Cause error
	}
)

func (e *PropertyPathError) Error() string {
	return fmt.Sprintf("error in path %s: %v", e.Path, e.Cause)
}

func (e *PropertyPathError) Unwrap() error {
	return e.Cause
}

// pathPart is either a map key or, when isIndex is set, an array index.
type pathPart struct {
	key     string
	index   int
	isIndex bool
}

func splitPath(path string) []string {
	var parts []string
	var delim string
	for path != "" {
		partIdx := strings.IndexAny(path, ".[")
		var part string
		if partIdx == -1 {
			part = delim + path
			path = ""
		} else {
			part = delim + path[:partIdx]
			delim = path[partIdx : partIdx+1]
			path = path[partIdx+1:]
		}
		parts = append(parts, part)
	}
	return parts
}

func parsePath(pathStr string) ([]pathPart, error) {
	raw := splitPath(pathStr)
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty path")
	}
	parts := make([]pathPart, len(raw))
	for i, p := range raw {
		switch {
		case strings.HasPrefix(p, "["):
			if !strings.HasSuffix(p, "]") {
				return nil, &PropertyPathError{Path: pathStr, Cause: fmt.Errorf("invalid array index format, got %q", p)}
			}
			idx, err := strconv.Atoi(p[1 : len(p)-1])
			if err != nil {
				return nil, &PropertyPathError{Path: pathStr, Cause: err}
			}
			parts[i] = pathPart{index: idx, isIndex: true}
		default:
			parts[i] = pathPart{key: strings.TrimPrefix(p, ".")}
		}
	}
	if parts[0].isIndex {
		return nil, &PropertyPathError{Path: pathStr, Cause: fmt.Errorf("path must start with a key")}
	}
	return parts, nil
}

// SetProperty sets the value at `pathStr`, creating intermediate maps and growing intermediate arrays
// as needed. For example `FileSystemConfigs[0].LocalMountPath`.
func (r *Resource) SetProperty(pathStr string, value any) error {
	if r.Properties == nil {
		r.Properties = Properties{}
	}
	parts, err := parsePath(pathStr)
	if err != nil {
		return err
	}
	_, err = setIn(map[string]any(r.Properties), parts, value, pathStr)
	return err
}

func setIn(container any, parts []pathPart, value any, pathStr string) (any, error) {
	part := parts[0]
	if part.isIndex {
		arr, ok := container.([]any)
		if container != nil && !ok {
			return nil, &PropertyPathError{Path: pathStr, Cause: fmt.Errorf("expected array, got %T", container)}
		}
		if part.index < 0 {
			return nil, &PropertyPathError{Path: pathStr, Cause: fmt.Errorf("negative array index %d", part.index)}
		}
		for len(arr) <= part.index {
			arr = append(arr, nil)
		}
		if len(parts) == 1 {
			arr[part.index] = value
			return arr, nil
		}
		child, err := setIn(arr[part.index], parts[1:], value, pathStr)
		if err != nil {
			return nil, err
		}
		arr[part.index] = child
		return arr, nil
	}

	m, ok := container.(map[string]any)
	if !ok {
		if p, isProps := container.(Properties); isProps {
			m = p
		} else if container != nil {
			return nil, &PropertyPathError{Path: pathStr, Cause: fmt.Errorf("expected map, got %T", container)}
		} else {
			m = make(map[string]any)
		}
	}
	if len(parts) == 1 {
		m[part.key] = value
		return m, nil
	}
	child, err := setIn(m[part.key], parts[1:], value, pathStr)
	if err != nil {
		return nil, err
	}
	m[part.key] = child
	return m, nil
}

// GetProperty returns the value at `pathStr` or nil if any element of the path is missing.
func (r *Resource) GetProperty(pathStr string) (any, error) {
	parts, err := parsePath(pathStr)
	if err != nil {
		return nil, err
	}
	var current any = map[string]any(r.Properties)
	for _, part := range parts {
		if current == nil {
			return nil, nil
		}
		v := reflect.ValueOf(current)
		if part.isIndex {
			if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
				return nil, &PropertyPathError{Path: pathStr, Cause: fmt.Errorf("expected array, got %T", current)}
			}
			if part.index < 0 || part.index >= v.Len() {
				return nil, &PropertyPathError{
					Path:  pathStr,
					Cause: fmt.Errorf("array index out of bounds: %d (length %d)", part.index, v.Len()),
				}
			}
			current = v.Index(part.index).Interface()
			continue
		}
		if v.Kind() != reflect.Map || v.Type().Key().Kind() != reflect.String {
			return nil, &PropertyPathError{Path: pathStr, Cause: fmt.Errorf("expected map, got %T", current)}
		}
		mv := v.MapIndex(reflect.ValueOf(part.key).Convert(v.Type().Key()))
		if !mv.IsValid() {
			return nil, nil
		}
		current = mv.Interface()
	}
	return current, nil
}

// AppendProperty appends `value` to the array at `pathStr`, creating it if it does not exist.
func (r *Resource) AppendProperty(pathStr string, value any) error {
	current, err := r.GetProperty(pathStr)
	if err != nil {
		return err
	}
	var arr []any
	switch c := current.(type) {
	case nil:
	case []any:
		arr = c
	default:
		return &PropertyPathError{Path: pathStr, Cause: fmt.Errorf("expected array destination for append, got %T", current)}
	}
	return r.SetProperty(pathStr, append(arr, value))
}

// PropertyRefs returns all the references found anywhere in the resource's properties, sorted and
// deduplicated.
func (r *Resource) PropertyRefs() []PropertyRef {
	seen := make(map[PropertyRef]struct{})
	var refs []PropertyRef
	collectRefs(reflect.ValueOf(map[string]any(r.Properties)), func(ref PropertyRef) {
		if _, ok := seen[ref]; ok {
			return
		}
		seen[ref] = struct{}{}
		refs = append(refs, ref)
	})
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Resource != refs[j].Resource {
			return ResourceIdLess(refs[i].Resource, refs[j].Resource)
		}
		return refs[i].Property < refs[j].Property
	})
	return refs
}

var refHolderType = reflect.TypeOf((*RefHolder)(nil)).Elem()

func collectRefs(v reflect.Value, add func(PropertyRef)) {
	if !v.IsValid() {
		return
	}
	if v.Kind() == reflect.Interface || v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return
		}
	}
	if v.CanInterface() {
		switch val := v.Interface().(type) {
		case PropertyRef:
			add(val)
			return
		case *PropertyRef:
			add(*val)
			return
		}
		if v.Type().Implements(refHolderType) {
			for _, ref := range v.Interface().(RefHolder).PropertyRefs() {
				add(ref)
			}
			return
		}
	}
	switch v.Kind() {
	case reflect.Interface, reflect.Ptr:
		collectRefs(v.Elem(), add)
	case reflect.Map:
		for _, k := range v.MapKeys() {
			collectRefs(v.MapIndex(k), add)
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			collectRefs(v.Index(i), add)
		}
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			if v.Type().Field(i).IsExported() {
				collectRefs(v.Field(i), add)
			}
		}
	}
}

package cfn

import (
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/klothoplatform/inference-stack/pkg/construct"
	"github.com/klothoplatform/inference-stack/pkg/logging"
	"github.com/klothoplatform/inference-stack/pkg/provider/aws"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

type (
	Compiler struct {
		Description string
		Log         *zap.Logger
	}

	// templateCompiler holds the state of a single compilation.
	templateCompiler struct {
		graph construct.Graph
		ids   map[construct.ResourceId]string
		log   *zap.Logger
	}

	parameterDescriptor struct {
		Type        string
		Description string
		Default     string
	}

	outputDescriptor struct {
		Value       any
		Description string
		Export      *Export
	}
)

// Compile converts the graph into a template. Every resource of the graph must be an aws resource of a known
// type or a template parameter or output.
func (c Compiler) Compile(g construct.Graph) (*Template, error) {
	log := c.Log
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("cfn")

	ids, err := construct.ReverseTopologicalSort(g)
	if err != nil {
		return nil, err
	}
	tc := &templateCompiler{graph: g, log: log}
	tc.ids, err = logicalIds(ids)
	if err != nil {
		return nil, err
	}

	t := &Template{
		AWSTemplateFormatVersion: FormatVersion,
		Description:              c.Description,
		Parameters:               make(map[string]Parameter),
		Resources:                make(map[string]Resource),
		Outputs:                  make(map[string]Output),
	}
	var errs error
	for _, id := range ids {
		r, err := g.Vertex(id)
		if err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		lid := tc.ids[id]
		switch {
		case id.Provider == aws.TemplateProvider && id.Type == aws.ParameterType:
			p, err := tc.parameter(r)
			if err != nil {
				errs = errors.Join(errs, err)
				continue
			}
			t.Parameters[lid] = p

		case id.Provider == aws.TemplateProvider && id.Type == aws.OutputType:
			o, err := tc.output(r)
			if err != nil {
				errs = errors.Join(errs, err)
				continue
			}
			t.Outputs[lid] = o

		default:
			res, err := tc.resource(r)
			if err != nil {
				errs = errors.Join(errs, err)
				continue
			}
			t.Resources[lid] = res
		}
		log.Debug("compiled "+lid, logging.ResourceField(id))
	}
	if errs != nil {
		return nil, errs
	}
	log.Sugar().Debugf(
		"compiled %d resources, %d parameters, %d outputs",
		len(t.Resources), len(t.Parameters), len(t.Outputs),
	)
	return t, nil
}

func (tc *templateCompiler) parameter(r *construct.Resource) (Parameter, error) {
	var d parameterDescriptor
	if err := mapstructure.Decode(map[string]any(r.Properties), &d); err != nil {
		return Parameter{}, fmt.Errorf("invalid parameter %s: %w", r.ID, err)
	}
	if d.Type == "" {
		return Parameter{}, fmt.Errorf("parameter %s has no type", r.ID)
	}
	p := Parameter{Type: d.Type, Description: d.Description}
	if d.Default != "" {
		p.Default = d.Default
	}
	return p, nil
}

func (tc *templateCompiler) output(r *construct.Resource) (Output, error) {
	var d outputDescriptor
	if err := mapstructure.Decode(map[string]any(r.Properties), &d); err != nil {
		return Output{}, fmt.Errorf("invalid output %s: %w", r.ID, err)
	}
	if d.Value == nil {
		return Output{}, fmt.Errorf("output %s has no value", r.ID)
	}
	value, err := tc.convert(d.Value)
	if err != nil {
		return Output{}, fmt.Errorf("output %s: %w", r.ID, err)
	}
	return Output{Description: d.Description, Value: value, Export: d.Export}, nil
}

func (tc *templateCompiler) resource(r *construct.Resource) (Resource, error) {
	typ, err := aws.CloudFormationType(r.ID)
	if err != nil {
		return Resource{}, err
	}
	res := Resource{Type: typ}

	if len(r.Properties) > 0 {
		props, err := tc.convert(map[string]any(r.Properties))
		if err != nil {
			return Resource{}, fmt.Errorf("resource %s: %w", r.ID, err)
		}
		res.Properties = props.(map[string]any)
	}

	res.DependsOn, err = tc.dependsOn(r)
	if err != nil {
		return Resource{}, err
	}

	switch r.RemovalPolicy {
	case construct.RemovalPolicyDefault:
	case construct.RemovalPolicyDestroy:
		res.DeletionPolicy = "Delete"
		res.UpdateReplacePolicy = "Delete"
	case construct.RemovalPolicyRetain:
		res.DeletionPolicy = "Retain"
		res.UpdateReplacePolicy = "Retain"
	default:
		return Resource{}, fmt.Errorf("resource %s has unknown removal policy %q", r.ID, r.RemovalPolicy)
	}
	return res, nil
}

// dependsOn lists the resources `r` depends on through the graph but does not reference in its properties.
// CloudFormation infers the referenced ones itself.
func (tc *templateCompiler) dependsOn(r *construct.Resource) ([]string, error) {
	deps, err := construct.DirectDependencies(tc.graph, r.ID)
	if err != nil {
		return nil, err
	}
	referenced := make(map[construct.ResourceId]struct{})
	for _, ref := range r.PropertyRefs() {
		referenced[ref.Resource] = struct{}{}
	}
	var result []string
	for _, dep := range deps {
		if _, ok := referenced[dep]; ok || dep.Provider == aws.TemplateProvider {
			continue
		}
		result = append(result, tc.ids[dep])
	}
	sort.Strings(result)
	return result, nil
}

func (tc *templateCompiler) ref(ref construct.PropertyRef) (any, error) {
	lid, ok := tc.ids[ref.Resource]
	if !ok {
		return nil, fmt.Errorf("reference to %s which is not in the graph", ref.Resource)
	}
	if ref.Resource.Provider == aws.TemplateProvider {
		if ref.Resource.Type != aws.ParameterType || ref.Property != "" {
			return nil, fmt.Errorf("invalid reference %s: only parameter values can be referenced", ref)
		}
	}
	if ref.Property == "" {
		return map[string]any{"Ref": lid}, nil
	}
	return map[string]any{"Fn::GetAtt": []any{lid, ref.Property}}, nil
}

// convert renders a property value into its template form: references and intrinsics become their function
// objects and structs become maps of their non-zero fields.
func (tc *templateCompiler) convert(v any) (any, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil

	case construct.PropertyRef:
		return tc.ref(v)

	case construct.ResourceId:
		return tc.ref(construct.PropertyRef{Resource: v})

	case aws.Pseudo:
		return map[string]any{"Ref": string(v)}, nil

	case aws.GetAZs:
		return map[string]any{"Fn::GetAZs": v.Region}, nil

	case aws.Select:
		list, err := tc.convert(v.List)
		if err != nil {
			return nil, err
		}
		return map[string]any{"Fn::Select": []any{v.Index, list}}, nil

	case aws.Join:
		return tc.join(v)

	case string, bool, int, int32, int64, float32, float64:
		return v, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
		return tc.convert(rv.Elem().Interface())

	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("unsupported map key type %s", rv.Type().Key())
		}
		result := make(map[string]any, rv.Len())
		var errs error
		iter := rv.MapRange()
		for iter.Next() {
			key := iter.Key().String()
			value, err := tc.convert(iter.Value().Interface())
			if err != nil {
				errs = errors.Join(errs, fmt.Errorf("%s: %w", key, err))
				continue
			}
			if value != nil {
				result[key] = value
			}
		}
		return result, errs

	case reflect.Slice, reflect.Array:
		result := make([]any, 0, rv.Len())
		var errs error
		for i := 0; i < rv.Len(); i++ {
			value, err := tc.convert(rv.Index(i).Interface())
			if err != nil {
				errs = errors.Join(errs, fmt.Errorf("[%d]: %w", i, err))
				continue
			}
			result = append(result, value)
		}
		return result, errs

	case reflect.Struct:
		result := make(map[string]any)
		var errs error
		rt := rv.Type()
		for i := 0; i < rt.NumField(); i++ {
			field := rt.Field(i)
			if !field.IsExported() || rv.Field(i).IsZero() {
				continue
			}
			value, err := tc.convert(rv.Field(i).Interface())
			if err != nil {
				errs = errors.Join(errs, fmt.Errorf("%s: %w", field.Name, err))
				continue
			}
			result[field.Name] = value
		}
		return result, errs

	case reflect.String:
		return rv.String(), nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil

	case reflect.Bool:
		return rv.Bool(), nil
	}
	return nil, fmt.Errorf("unsupported property value of type %T", v)
}

// join renders `Fn::Join`, folding adjacent literal strings and collapsing to a plain string when nothing
// is left to resolve at deploy time.
func (tc *templateCompiler) join(j aws.Join) (any, error) {
	parts := []any{}
	var errs error
	for _, v := range j.Values {
		value, err := tc.convert(v)
		if err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		if s, ok := value.(string); ok && j.Delimiter == "" && len(parts) > 0 {
			if prev, ok := parts[len(parts)-1].(string); ok {
				parts[len(parts)-1] = prev + s
				continue
			}
		}
		parts = append(parts, value)
	}
	if errs != nil {
		return nil, errs
	}
	if len(parts) == 1 {
		if s, ok := parts[0].(string); ok {
			return s, nil
		}
	}
	return map[string]any{"Fn::Join": []any{j.Delimiter, parts}}, nil
}

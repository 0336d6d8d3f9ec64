package python

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/klothoplatform/inference-stack/pkg/query"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

//go:embed queries/top_level_function.scm
var topLevelFunction string

var Language = python.GetLanguage()

type (
	File struct {
		Path    string
		Program []byte
		Tree    *sitter.Tree
	}

	Function struct {
		Name   string
		Params []string
		Line   uint32
	}
)

func ParseFile(ctx context.Context, path string, content []byte) (*File, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(Language)
	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", path, err)
	}
	return &File{Path: path, Program: content, Tree: tree}, nil
}

// DoQuery is a thin wrapper around `query.Exec` to use python as the Language.
func (f *File) DoQuery(q string) query.NextMatchFunc {
	return query.Exec(Language, f.Tree.RootNode(), q)
}

// TopLevelFunctions returns the module level function definitions, in source order.
func (f *File) TopLevelFunctions() []Function {
	return query.Collect(query.Select(f.DoQuery(topLevelFunction), func(m query.MatchNodes) (Function, bool) {
		name, ok := query.ParamNamed("name")(m)
		if !ok {
			return Function{}, false
		}
		params, ok := query.ParamNamed("params")(m)
		if !ok {
			return Function{}, false
		}
		fn := Function{
			Name: name.Content(f.Program),
			Line: name.StartPoint().Row + 1,
		}
		for i := 0; i < int(params.NamedChildCount()); i++ {
			fn.Params = append(fn.Params, parameterName(params.NamedChild(i), f.Program))
		}
		return fn, true
	}))
}

// FindFunction returns the top level function `name`, if defined.
func (f *File) FindFunction(name string) (Function, bool) {
	for _, fn := range f.TopLevelFunctions() {
		if fn.Name == name {
			return fn, true
		}
	}
	return Function{}, false
}

func parameterName(n *sitter.Node, src []byte) string {
	if n.Type() == "identifier" {
		return n.Content(src)
	}
	// typed_parameter, default_parameter, typed_default_parameter, ...
	if name := n.ChildByFieldName("name"); name != nil {
		return name.Content(src)
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c.Type() == "identifier" {
			return c.Content(src)
		}
	}
	return n.Content(src)
}

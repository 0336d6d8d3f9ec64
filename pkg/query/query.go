package query

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

type NextFunc[T any] func() (T, bool)

type MatchNodes = map[string]*sitter.Node

type NextMatchFunc = NextFunc[MatchNodes]

// Exec returns a function that acts as an iterator, each call will
// loop over the next match lazily and populate the results map with a mapping
// of field name as defined in the query to mapped node.
func Exec(lang *sitter.Language, c *sitter.Node, q string) NextMatchFunc {
	if c == nil {
		return func() (MatchNodes, bool) {
			return nil, false
		}
	}

	query, err := sitter.NewQuery([]byte(q), lang)
	if err != nil {
		// Panic because this is a programmer error with the query string.
		panic(fmt.Errorf("error constructing query for %s: %w", q, err))
	}

	cursor := sitter.NewQueryCursor()
	cursor.Exec(query, c)

	return func() (MatchNodes, bool) {
		match, found := cursor.NextMatch()
		if !found || match == nil {
			return nil, false
		}
		results := make(MatchNodes, len(match.Captures))
		for _, capture := range match.Captures {
			results[query.CaptureNameForId(capture.Index)] = capture.Node
		}
		return results, true
	}
}

func Collect[T any](f NextFunc[T]) []T {
	var results []T
	for {
		elem, found := f()
		if !found {
			return results
		}
		results = append(results, elem)
	}
}

// Selector takes a MatchNodes and optionally returns some value.
type Selector[T any] func(MatchNodes) (T, bool)

func Select[T any](query NextMatchFunc, selector Selector[T]) NextFunc[T] {
	return func() (T, bool) {
		var zero T
		for {
			match, found := query()
			if !found {
				return zero, false
			}
			if selected, found := selector(match); found {
				return selected, true
			}
		}
	}
}

// ParamNamed is a Selector that returns a capture from the MatchNodes by name, if such a capture exists.
func ParamNamed(paramName string) Selector[*sitter.Node] {
	return func(match MatchNodes) (*sitter.Node, bool) {
		n, found := match[paramName]
		return n, found && n != nil
	}
}

// ContentOf selects the source text of the node chosen by `filter`.
func ContentOf(filter Selector[*sitter.Node], src []byte) Selector[string] {
	return func(match MatchNodes) (string, bool) {
		elem, found := filter(match)
		if !found {
			return "", false
		}
		return elem.Content(src), true
	}
}

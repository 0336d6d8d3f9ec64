package cfn

import (
	"fmt"
	"sort"
	"strings"

	"github.com/r3labs/diff"
)

type (
	Change struct {
		Type string
		Path string
		From any
		To   any
	}

	Changes []Change
)

// Diff compares two template documents (see [ParseDocument]). List order is ignored, so reordered
// DependsOn or policy actions are not reported.
func Diff(before, after map[string]any) (Changes, error) {
	differ, err := diff.NewDiffer(diff.SliceOrdering(false))
	if err != nil {
		return nil, err
	}
	changelog, err := differ.Diff(before, after)
	if err != nil {
		return nil, fmt.Errorf("could not diff templates: %w", err)
	}
	changes := make(Changes, len(changelog))
	for i, c := range changelog {
		changes[i] = Change{Type: c.Type, Path: strings.Join(c.Path, "."), From: c.From, To: c.To}
	}
	sort.SliceStable(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })
	return changes, nil
}

// Resources returns the logical ids of the resources touched by the changes.
func (cs Changes) Resources() []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, c := range cs {
		section, rest, _ := strings.Cut(c.Path, ".")
		if section != "Resources" {
			continue
		}
		id, _, _ := strings.Cut(rest, ".")
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (c Change) String() string {
	switch c.Type {
	case diff.CREATE:
		return fmt.Sprintf("%s %s: %v", c.Type, c.Path, c.To)
	case diff.DELETE:
		return fmt.Sprintf("%s %s: %v", c.Type, c.Path, c.From)
	default:
		return fmt.Sprintf("%s %s: %v -> %v", c.Type, c.Path, c.From, c.To)
	}
}

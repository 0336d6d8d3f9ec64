package dot

import (
	"fmt"
	"sort"
	"strings"
)

// AttributesToString renders graphviz attributes in key order. Values wrapped in `<...>` are emitted as
// HTML labels, everything else is quoted.
func AttributesToString(attribs map[string]string) string {
	if len(attribs) == 0 {
		return ""
	}
	keys := make([]string, 0, len(attribs))
	for k := range attribs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	list := make([]string, 0, len(keys))
	for _, k := range keys {
		v := attribs[k]
		if len(v) > 1 && v[0] == '<' && v[len(v)-1] == '>' {
			list = append(list, fmt.Sprintf(`%s=%s`, k, v))
			continue
		}
		list = append(list, fmt.Sprintf(`%s="%s"`, k, strings.ReplaceAll(v, `"`, `\"`)))
	}
	return " [" + strings.Join(list, ", ") + "]"
}

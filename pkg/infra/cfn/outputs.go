package cfn

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
)

type OutputRow struct {
	Name   string
	Export string
	// Value is the compact JSON of the output's value expression, or the value itself for literals.
	Value string
}

// OutputRows lists the template's outputs sorted by name.
func (t *Template) OutputRows() ([]OutputRow, error) {
	names := make([]string, 0, len(t.Outputs))
	for name := range t.Outputs {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([]OutputRow, len(names))
	for i, name := range names {
		o := t.Outputs[name]
		row := OutputRow{Name: name}
		if o.Export != nil {
			row.Export = o.Export.Name
		}
		if s, ok := o.Value.(string); ok {
			row.Value = s
		} else {
			b, err := json.Marshal(o.Value)
			if err != nil {
				return nil, fmt.Errorf("could not render output %s: %w", name, err)
			}
			row.Value = string(b)
		}
		rows[i] = row
	}
	return rows, nil
}

func WriteOutputTable(w io.Writer, rows []OutputRow) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tEXPORT\tVALUE")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Name, r.Export, r.Value)
	}
	return tw.Flush()
}

package dot

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAttributesToString(t *testing.T) {
	tests := []struct {
		name    string
		attribs map[string]string
		want    string
	}{
		{name: "empty", attribs: nil, want: ""},
		{
			name:    "sorted and quoted",
			attribs: map[string]string{"style": "dashed", "label": `aws:vpc\nVpc`},
			want:    ` [label="aws:vpc\nVpc", style="dashed"]`,
		},
		{
			name:    "html label",
			attribs: map[string]string{"label": "<<b>Vpc</b>>"},
			want:    ` [label=<<b>Vpc</b>>]`,
		},
		{
			name:    "escaped quote",
			attribs: map[string]string{"tooltip": `say "hi"`},
			want:    ` [tooltip="say \"hi\""]`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AttributesToString(tt.attribs))
		})
	}
}

func TestSvgPan(t *testing.T) {
	assert := assert.New(t)
	svg := `<svg width="62pt" height="44pt" viewBox="0.00 0.00 62.00 44.00"><g id="graph0" class="graph"><text>a&;b</text></g></svg>`

	got := SvgPan(svg)

	assert.True(strings.HasPrefix(got, `<svg width="100%" height="100%"><script type="text/ecmascript">`))
	assert.Contains(got, `<g id="viewport" transform="scale(0.5,0.5) translate(0,0)"><g id="graph0"`)
	assert.Contains(got, "a&amp;;b")
	assert.True(strings.HasSuffix(got, "</g></g></svg>"))
}

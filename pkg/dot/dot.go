package dot

import (
	"regexp"
	"strings"

	"github.com/google/pprof/third_party/svgpan"
)

var (
	viewBox  = regexp.MustCompile(`<svg\s*width="[^"]+"\s*height="[^"]+"\s*viewBox="[^"]+"`)
	graphID  = regexp.MustCompile(`<g id="graph\d"`)
	svgClose = regexp.MustCompile(`</svg>`)
)

// SvgPan wraps graphviz's SVG output in pprof's svgpan viewport so large wiring diagrams can be panned
// and zoomed in a browser.
func SvgPan(svg string) string {
	// graphviz sometimes leaves ampersands unescaped
	svg = strings.ReplaceAll(svg, "&;", "&amp;;")

	if loc := viewBox.FindStringIndex(svg); loc != nil {
		svg = svg[:loc[0]] + `<svg width="100%" height="100%"` + svg[loc[1]:]
	}
	if loc := graphID.FindStringIndex(svg); loc != nil {
		svg = svg[:loc[0]] +
			`<script type="text/ecmascript"><![CDATA[` + svgpan.JSSource + `]]></script>` +
			`<g id="viewport" transform="scale(0.5,0.5) translate(0,0)">` +
			svg[loc[0]:]
	}
	if loc := svgClose.FindStringIndex(svg); loc != nil {
		svg = svg[:loc[0]] + `</g>` + svg[loc[0]:]
	}
	return svg
}

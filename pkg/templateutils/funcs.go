package templateutils

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/klothoplatform/inference-stack/pkg/sanitization"
)

var Funcs = template.FuncMap{
	"json": func(v any) (string, error) {
		buf := new(bytes.Buffer)
		enc := json.NewEncoder(buf)
		if err := enc.Encode(v); err != nil {
			return "", err
		}
		return strings.TrimSpace(buf.String()), nil
	},

	"jsonPretty": func(v any) (string, error) {
		buf := new(bytes.Buffer)
		enc := json.NewEncoder(buf)
		enc.SetIndent("", "    ")
		if err := enc.Encode(v); err != nil {
			return "", err
		}
		return strings.TrimSpace(buf.String()), nil
	},

	"fileBase": filepath.Base,

	// shellVar turns an arbitrary name into an upper case shell variable name, `detr-model` -> `DETR_MODEL`.
	"shellVar": func(name string) string {
		return strings.ToUpper(sanitization.IdentifierSanitizer.Apply(name))
	},

	// shellQuote renders `s` as a single quoted shell word, safe from expansion.
	"shellQuote": func(s string) string {
		return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
	},

	"replaceAll": func(s string, old string, new string) string {
		return strings.ReplaceAll(s, old, new)
	},
}

package templateutils

import (
	"io/fs"
	"text/template"

	sprig "github.com/Masterminds/sprig/v3"
)

// MustTemplate parses `name` from `fsys` with [Funcs] and sprig's hermetic functions available.
func MustTemplate(fsys fs.FS, name string) *template.Template {
	content, err := fs.ReadFile(fsys, name)
	if err != nil {
		panic(err)
	}
	t, err := template.New(name).
		Funcs(Funcs).
		Funcs(sprig.HermeticTxtFuncMap()).
		Parse(string(content))
	if err != nil {
		panic(err)
	}
	return t
}

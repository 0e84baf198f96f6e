package render

import (
	_ "embed"
	"html/template"
	"io"
)

//go:embed templates/console.html
var consoleHTML string

var consoleTemplate = template.Must(template.New("console").Parse(consoleHTML))

// HTML writes the console page for v.
func HTML(w io.Writer, v View) error {
	return consoleTemplate.Execute(w, v)
}

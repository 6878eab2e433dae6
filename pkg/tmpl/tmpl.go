// Package tmpl renders user supplied Go templates for command output.
package tmpl

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"unicode/utf8"
)

// shellQuote returns a shell-safe quoted string. It wraps the string in single
// quotes and escapes any existing single quotes using the '\'' technique.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	escaped := strings.ReplaceAll(s, "'", `'\''`)
	return "'" + escaped + "'"
}

// pad right-pads s with spaces to width runes.
func pad(width int, s string) string {
	if n := utf8.RuneCountInString(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

var funcs = template.FuncMap{
	"shq":  shellQuote,
	"pad":  pad,
	"join": strings.Join,
}

// Template is a parsed output template.
type Template struct {
	t *template.Template
}

// Parse compiles text. Missing keys are an error at execution time.
//
// Available template functions:
//   - shq: Shell-quote a string for safe use in shell commands
//   - pad: Right-pad a string to a width, e.g. {{ pad 20 .Name }}
//   - join: Join a string slice, e.g. {{ join .Names ", " }}
func Parse(text string) (*Template, error) {
	t, err := template.New("").Funcs(funcs).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	return &Template{t: t}, nil
}

// Execute renders the template with data.
func (t *Template) Execute(data any) (string, error) {
	var buf bytes.Buffer
	if err := t.t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}
	return buf.String(), nil
}

// Render parses and executes text with data in one step.
func Render(text string, data any) (string, error) {
	t, err := Parse(text)
	if err != nil {
		return "", err
	}
	return t.Execute(data)
}

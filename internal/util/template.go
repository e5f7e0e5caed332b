package util

import (
	"bytes"
	"strings"
	"text/template"
)

// RenderPrompt expands template variables in a node prompt using Go's
// text/template package. Available variables are supplied by the caller,
// typically run/node identifiers and upstream outputs keyed by node id.
// This lives in internal to avoid committing to public API stability
// prematurely.
func RenderPrompt(text string, vars map[string]any) (string, error) {
	if !strings.Contains(text, "{{") { // fast path: no template markers
		return text, nil
	}

	tmpl, err := template.New("prompt").Funcs(template.FuncMap{
		"upper": strings.ToUpper,
		"lower": strings.ToLower,
		"trim":  strings.TrimSpace,
	}).Option("missingkey=zero").Parse(text)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", err
	}

	return buf.String(), nil
}

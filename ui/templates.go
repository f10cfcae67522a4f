package ui

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"strings"
)

//go:embed templates/*.html templates/fragments/*.html
var templateFiles embed.FS

// parseTemplates loads every page and fragment under templates/, named by
// their path relative to it
func parseTemplates() (*template.Template, error) {
	funcMap := template.FuncMap{
		"upper":     strings.ToUpper,
		"join":      strings.Join,
		"add":       func(a, b int) int { return a + b },
		"cellStyle": cellStyle,
	}

	root, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		return nil, fmt.Errorf("failed to open templates: %w", err)
	}
	pages, err := fs.Glob(root, "*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to glob templates: %w", err)
	}
	fragments, err := fs.Glob(root, "fragments/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to glob fragments: %w", err)
	}

	tmpl := template.New("").Funcs(funcMap)
	for _, file := range append(pages, fragments...) {
		content, err := fs.ReadFile(root, file)
		if err != nil {
			return nil, fmt.Errorf("failed to read template %s: %w", file, err)
		}
		if _, err := tmpl.New(file).Parse(string(content)); err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", file, err)
		}
	}
	return tmpl, nil
}

// Package template renders action parameters against the run context.
// Parameters may reference context fields as {{fieldName}}; a missing field
// renders as an empty string rather than failing the action.
package template

import (
	"fmt"
	"regexp"
	"strings"
	"text/template"
	"time"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z_][a-zA-Z0-9_.]*)\s*\}\}`)

// Render substitutes {{field}} placeholders in input with values from the run
// context. A placeholder whose value is exactly the whole input preserves the
// value's type; otherwise everything is stringified.
func Render(input string, runCtx map[string]any) (any, error) {
	if !strings.Contains(input, "{{") {
		return input, nil
	}

	// A bare placeholder keeps the underlying type (numbers, maps, bools).
	if match := placeholderPattern.FindStringSubmatch(input); match != nil && match[0] == strings.TrimSpace(input) {
		if value, ok := runCtx[match[1]]; ok {
			return value, nil
		}

		return "", nil
	}

	rendered := placeholderPattern.ReplaceAllString(input, `{{index . "$1"}}`)

	tmpl, err := template.
		New("params").
		Option("missingkey=zero").
		Funcs(template.FuncMap{
			"now": func() string {
				return time.Now().UTC().Format(time.RFC3339)
			},
		}).Parse(rendered)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template '%s': %w", input, err)
	}

	var buf strings.Builder

	err = tmpl.Execute(&buf, runCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to execute template '%s': %w", input, err)
	}

	return strings.ReplaceAll(buf.String(), "<no value>", ""), nil
}

// RenderParameters renders every string value of an action's parameter bag,
// recursing into nested maps and slices. Non-string values pass through.
func RenderParameters(params map[string]any, runCtx map[string]any) (map[string]any, error) {
	if params == nil {
		return nil, nil
	}

	rendered := make(map[string]any, len(params))

	for key, value := range params {
		result, err := renderValue(value, runCtx)
		if err != nil {
			return nil, fmt.Errorf("parameter '%s': %w", key, err)
		}

		rendered[key] = result
	}

	return rendered, nil
}

func renderValue(value any, runCtx map[string]any) (any, error) {
	switch v := value.(type) {
	case string:
		return Render(v, runCtx)
	case map[string]any:
		return RenderParameters(v, runCtx)
	case []any:
		out := make([]any, len(v))

		for i, item := range v {
			result, err := renderValue(item, runCtx)
			if err != nil {
				return nil, err
			}

			out[i] = result
		}

		return out, nil
	default:
		return value, nil
	}
}

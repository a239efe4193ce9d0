package prompt

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"text/template"
)

// bareVar matches "{{name}}" placeholders written without the leading dot.
var bareVar = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

var anyVar = regexp.MustCompile(`\{\{\s*\.?([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

var keywords = map[string]bool{"end": true, "else": true, "nil": true, "true": true, "false": true}

var funcs = template.FuncMap{
	"default": func(defaultVal any, val any) any {
		if val == nil || val == "" {
			return defaultVal
		}
		return val
	},
	"upper": strings.ToUpper,
	"lower": strings.ToLower,
	"title": func(s string) string {
		if len(s) == 0 {
			return s
		}
		return strings.ToUpper(string(s[0])) + strings.ToLower(s[1:])
	},
	"join": func(sep string, items []any) string {
		strItems := make([]string, len(items))
		for i, item := range items {
			strItems[i] = fmt.Sprintf("%v", item)
		}
		return strings.Join(strItems, sep)
	},
}

// Render replaces template variables using text/template. Both "{{.topic}}"
// and the shorter "{{topic}}" address the state entry "topic". A missing
// entry is an error.
func Render(text string, state map[string]any) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}

	text = bareVar.ReplaceAllStringFunc(text, func(m string) string {
		name := bareVar.FindStringSubmatch(m)[1]
		if keywords[name] || funcs[name] != nil {
			return m
		}
		return "{{." + name + "}}"
	})

	tmpl, err := template.New("prompt").Funcs(funcs).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse prompt template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, state); err != nil {
		return "", fmt.Errorf("render prompt template: %w", err)
	}

	return buf.String(), nil
}

// Variables returns the distinct bare and dotted variable names referenced by
// text, in order of first appearance.
func Variables(text string) []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range anyVar.FindAllStringSubmatch(text, -1) {
		name := m[1]
		if keywords[name] || funcs[name] != nil || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

package sequences

import (
	"net/url"
	"regexp"
	"strings"

	"nurture_backend/platform/sanitize"
)

var placeholderRegex = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

// firstNameKey renders only the first word of the name.
const firstNameKey = "nombre"

// Render substitutes {{field}} placeholders with attrs. {{nombre}} yields the
// first whitespace-delimited token of the name; unknown fields render empty.
func Render(template string, attrs map[string]string) string {
	return render(template, attrs, nil)
}

// RenderForm renders a form link: values are query-escaped and line breaks
// collapse to single spaces.
func RenderForm(template string, attrs map[string]string) string {
	return strings.TrimSpace(sanitize.SingleLine(render(template, attrs, url.QueryEscape)))
}

func render(template string, attrs map[string]string, escape func(string) string) string {
	if !strings.Contains(template, "{{") {
		return template
	}
	return placeholderRegex.ReplaceAllStringFunc(template, func(match string) string {
		key := placeholderRegex.FindStringSubmatch(match)[1]
		value := attrs[key]
		if key == firstNameKey {
			value = firstToken(value)
		}
		if escape != nil {
			value = escape(value)
		}
		return value
	})
}

func firstToken(value string) string {
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

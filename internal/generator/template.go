// internal/generator/template.go
package generator

import (
	"sort"
	"strings"
)

const userPromptTemplate = "Write an email to {recipient_email} about: {topic}. " +
	"Keep it concise but warm and engaging, and appropriate for business communication."

// RenderTemplate replaces {key} placeholders with data[key] in a single pass, so values
// that themselves contain braces are never expanded again.
func RenderTemplate(template string, data map[string]string) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		pairs = append(pairs, "{"+k+"}", data[k])
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

func userPrompt(req Request) string {
	return RenderTemplate(userPromptTemplate, map[string]string{
		"recipient_email": req.RecipientEmail,
		"topic":           req.Topic,
	})
}

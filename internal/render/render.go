// Package render fills merge tags in message templates before any
// segmentation or billing happens.
package render

import "strings"

// Renderer substitutes {tag} placeholders with per-recipient merge data.
// Unknown tags are left in place so operators can spot bad templates in
// the delivered text instead of silently losing content.
type Renderer struct{}

func New() *Renderer { return &Renderer{} }

func (r *Renderer) Render(template string, data map[string]string) string {
	if len(data) == 0 || !strings.Contains(template, "{") {
		return template
	}
	pairs := make([]string, 0, len(data)*2)
	for tag, value := range data {
		pairs = append(pairs, "{"+tag+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// Package docs renders the command reference embedded in README.md.
package docs

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/template"

	"github.com/keshon/saga-bot/internal/command"
)

// CommandSections lists descriptors grouped by category, in category weight
// order. Prefix-only commands are shown with prefix.
func CommandSections(descs []command.Descriptor, prefix string) string {
	sorted := append([]command.Descriptor(nil), descs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		wi, wj := command.CategoryWeights[sorted[i].Category], command.CategoryWeights[sorted[j].Category]
		if wi == wj {
			return sorted[i].Name < sorted[j].Name
		}
		return wi < wj
	})

	var buf bytes.Buffer
	current := ""
	for i, d := range sorted {
		if i == 0 || d.Category != current {
			if i > 0 {
				buf.WriteString("\n")
			}
			current = d.Category
			fmt.Fprintf(&buf, "### %s\n\n", current)
		}
		display := "/" + d.Name
		if d.PrefixOnly {
			display = prefix + d.Name
		}
		fmt.Fprintf(&buf, "- **%s** — %s", display, d.Description)
		if len(d.Aliases) > 0 {
			fmt.Fprintf(&buf, " (aliases: %s)", strings.Join(d.Aliases, ", "))
		}
		buf.WriteString("\n")
	}
	return buf.String()
}

// Render executes tmpl with the command sections as .CommandSections.
func Render(w io.Writer, tmpl string, descs []command.Descriptor, prefix string) error {
	t, err := template.New("readme").Parse(tmpl)
	if err != nil {
		return fmt.Errorf("parse readme template: %w", err)
	}
	data := struct {
		CommandSections string
	}{
		CommandSections: CommandSections(descs, prefix),
	}
	return t.Execute(w, data)
}

package placeholder

import (
	"fmt"
	"html"
	"strings"

	"docfill/internal/docx"
)

const (
	EmptyFragment = "<p><em>Document is empty.</em></p>"
	ErrorFragment = "<p><em>Error generating preview.</em></p>"

	highlightOpen  = `<span style="color: red;">`
	highlightClose = `</span>`
)

// RenderHTML projects doc into an HTML fragment. With a nil values map the
// text is escaped as is; otherwise known tokens show their value and unknown
// tokens are highlighted. A failure yields ErrorFragment together with the
// cause so callers can log it.
func RenderHTML(doc *docx.Document, values map[string]string) (fragment string, err error) {
	defer func() {
		if r := recover(); r != nil {
			fragment = ErrorFragment
			err = fmt.Errorf("render preview panicked: %v", r)
		}
	}()

	var sb strings.Builder
	for _, p := range doc.Paragraphs() {
		content := RenderText(p.Text(), values)
		if strings.TrimSpace(content) != "" {
			sb.WriteString("<p>")
			sb.WriteString(content)
			sb.WriteString("</p>")
		}
	}

	for _, t := range doc.Tables() {
		sb.WriteString(`<table class="doc-table">`)
		for _, row := range t.Rows() {
			sb.WriteString("<tr>")
			for _, cell := range row.Cells() {
				var parts []string
				for _, p := range cell.Paragraphs() {
					content := RenderText(p.Text(), values)
					if strings.TrimSpace(content) != "" {
						parts = append(parts, content)
					}
				}
				sb.WriteString("<td>")
				sb.WriteString(strings.Join(parts, "<br/>"))
				sb.WriteString("</td>")
			}
			sb.WriteString("</tr>")
		}
		sb.WriteString("</table>")
	}

	if sb.Len() == 0 {
		return EmptyFragment, nil
	}
	return sb.String(), nil
}

// RenderText escapes one paragraph of text for HTML.
func RenderText(text string, values map[string]string) string {
	if values == nil {
		return html.EscapeString(text)
	}

	var sb strings.Builder
	last := 0
	for _, o := range occurrences(text) {
		sb.WriteString(html.EscapeString(text[last:o.start]))
		if v, ok := values[o.name]; ok {
			sb.WriteString(html.EscapeString(v))
		} else {
			sb.WriteString(highlightOpen)
			sb.WriteString(html.EscapeString(o.token))
			sb.WriteString(highlightClose)
		}
		last = o.end
	}
	sb.WriteString(html.EscapeString(text[last:]))
	return sb.String()
}

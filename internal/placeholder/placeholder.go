// Package placeholder finds, fills and previews [Name] tokens in a document.
package placeholder

import (
	"regexp"
	"strings"

	"docfill/internal/docx"
)

var pattern = regexp.MustCompile(`\[([^\]]+)\]`)

type occurrence struct {
	start, end int
	token      string
	name       string
}

func occurrences(text string) []occurrence {
	idx := pattern.FindAllStringSubmatchIndex(text, -1)
	out := make([]occurrence, 0, len(idx))
	for _, m := range idx {
		out = append(out, occurrence{
			start: m[0],
			end:   m[1],
			token: text[m[0]:m[1]],
			name:  strings.TrimSpace(text[m[2]:m[3]]),
		})
	}
	return out
}

// ScanText returns unique placeholder names of text in first-seen order.
func ScanText(text string) []string {
	return appendUnique(nil, map[string]bool{}, text)
}

// Scan collects unique placeholder names across body paragraphs and then
// table cells.
func Scan(doc *docx.Document) []string {
	names := []string{}
	seen := map[string]bool{}
	for _, p := range doc.AllParagraphs() {
		names = appendUnique(names, seen, p.Text())
	}
	return names
}

func appendUnique(names []string, seen map[string]bool, text string) []string {
	for _, o := range occurrences(text) {
		if o.name == "" || seen[o.name] {
			continue
		}
		seen[o.name] = true
		names = append(names, o.name)
	}
	return names
}

// SubstituteText replaces every token whose name has a value. Unknown tokens
// are kept verbatim, brackets included.
func SubstituteText(text string, values map[string]string) string {
	return pattern.ReplaceAllStringFunc(text, func(token string) string {
		if v, ok := values[strings.TrimSpace(token[1:len(token)-1])]; ok {
			return v
		}
		return token
	})
}

// Apply fills values into every paragraph of doc in place and returns doc.
//
// When each replaced token sits inside a single run the replacement happens in
// that run and formatting is untouched. A token split across runs forces the
// whole paragraph text into the first run, clearing the others.
func Apply(doc *docx.Document, values map[string]string) *docx.Document {
	for _, p := range doc.AllParagraphs() {
		original := p.Text()
		updated := SubstituteText(original, values)
		if updated == original {
			continue
		}
		if !applyWithinRuns(p, values) {
			p.SetText(updated)
		}
	}
	return doc
}

type runEdit struct {
	start, end int
	value      string
}

func applyWithinRuns(p *docx.Paragraph, values map[string]string) bool {
	runs := p.Runs()
	texts := make([]string, len(runs))
	offsets := make([]int, len(runs))
	var sb strings.Builder
	for i, r := range runs {
		texts[i] = r.Text()
		offsets[i] = sb.Len()
		sb.WriteString(texts[i])
	}

	edits := make(map[int][]runEdit)
	for _, o := range occurrences(sb.String()) {
		value, ok := values[o.name]
		if !ok {
			continue
		}
		owner := -1
		for i := range runs {
			if texts[i] != "" && o.start >= offsets[i] && o.end <= offsets[i]+len(texts[i]) {
				owner = i
				break
			}
		}
		if owner < 0 {
			return false
		}
		edits[owner] = append(edits[owner], runEdit{
			start: o.start - offsets[owner],
			end:   o.end - offsets[owner],
			value: value,
		})
	}

	for i, list := range edits {
		var out strings.Builder
		last := 0
		for _, e := range list {
			out.WriteString(texts[i][last:e.start])
			out.WriteString(e.value)
			last = e.end
		}
		out.WriteString(texts[i][last:])
		runs[i].SetText(out.String())
	}
	return true
}

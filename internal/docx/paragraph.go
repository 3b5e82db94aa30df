package docx

import (
	"encoding/xml"
	"strings"
)

type Paragraph struct {
	n   *node
	doc *Document
}

// runContainers are inline wrappers whose runs still belong to the paragraph text.
var runContainers = map[string]bool{
	"hyperlink": true,
	"smartTag":  true,
	"ins":       true,
	"fldSimple": true,
}

// Runs returns the text runs of the paragraph, including runs nested in
// hyperlinks and tracked insertions, in reading order.
func (p *Paragraph) Runs() []*Run {
	var runs []*Run
	var walk func(n *node)
	walk = func(n *node) {
		for _, c := range n.children {
			switch {
			case c.is("r"):
				runs = append(runs, &Run{n: c, doc: p.doc})
			case c.kind == elementNode && c.space == wordNS && runContainers[c.name.Local]:
				walk(c)
			}
		}
	}
	walk(p.n)
	return runs
}

func (p *Paragraph) Text() string {
	var sb strings.Builder
	for _, r := range p.Runs() {
		sb.WriteString(r.Text())
	}
	return sb.String()
}

// SetText replaces the paragraph text. The first run keeps its formatting and
// receives all of text; the remaining runs are emptied. A paragraph without
// runs gets a fresh one.
func (p *Paragraph) SetText(text string) {
	runs := p.Runs()
	if len(runs) == 0 {
		p.n.appendChild(p.doc.newRun(text))
		return
	}
	runs[0].SetText(text)
	for _, r := range runs[1:] {
		r.SetText("")
	}
}

type Run struct {
	n   *node
	doc *Document
}

func (r *Run) Text() string {
	var sb strings.Builder
	for _, c := range r.n.children {
		if c.kind != elementNode || c.space != wordNS {
			continue
		}
		switch c.name.Local {
		case "t":
			sb.WriteString(c.innerText())
		case "tab", "ptab":
			sb.WriteByte('\t')
		case "br", "cr":
			sb.WriteByte('\n')
		case "noBreakHyphen":
			sb.WriteByte('-')
		}
	}
	return sb.String()
}

// SetText drops the run content except its properties and writes text back as
// w:t, w:tab and w:br elements. Characters XML 1.0 cannot carry are dropped.
func (r *Run) SetText(text string) {
	kept := r.n.children[:0]
	for _, c := range r.n.children {
		if c.is("rPr") {
			kept = append(kept, c)
		}
	}
	r.n.children = kept

	var pending strings.Builder
	flush := func() {
		if pending.Len() == 0 {
			return
		}
		t := r.doc.newElement("t")
		t.setAttr(xml.Name{Space: "xml", Local: "space"}, "preserve")
		t.appendChild(&node{kind: textNode, text: pending.String()})
		r.n.appendChild(t)
		pending.Reset()
	}
	for _, ch := range text {
		switch ch {
		case '\t':
			flush()
			r.n.appendChild(r.doc.newElement("tab"))
		case '\n':
			flush()
			r.n.appendChild(r.doc.newElement("br"))
		case '\r':
		default:
			if xmlChar(ch) {
				pending.WriteRune(ch)
			}
		}
	}
	flush()
}

// xmlChar reports whether ch is in the XML 1.0 Char production.
func xmlChar(ch rune) bool {
	switch {
	case ch == '\t' || ch == '\n' || ch == '\r':
		return true
	case ch >= 0x20 && ch <= 0xD7FF:
		return true
	case ch >= 0xE000 && ch <= 0xFFFD:
		return true
	default:
		return ch >= 0x10000 && ch <= 0x10FFFF
	}
}

type Table struct {
	n   *node
	doc *Document
}

func (t *Table) Rows() []*Row {
	nodes := t.n.elements("tr")
	rows := make([]*Row, 0, len(nodes))
	for _, n := range nodes {
		rows = append(rows, &Row{n: n, doc: t.doc})
	}
	return rows
}

type Row struct {
	n   *node
	doc *Document
}

func (r *Row) Cells() []*Cell {
	nodes := r.n.elements("tc")
	cells := make([]*Cell, 0, len(nodes))
	for _, n := range nodes {
		cells = append(cells, &Cell{n: n, doc: r.doc})
	}
	return cells
}

type Cell struct {
	n   *node
	doc *Document
}

func (c *Cell) Paragraphs() []*Paragraph {
	return c.doc.wrapParagraphs(c.n.elements("p"))
}

// Package docxtest builds minimal .docx packages for tests.
package docxtest

import (
	"archive/zip"
	"bytes"
	"sort"
	"strings"
)

const contentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/><Default Extension="xml" ContentType="application/xml"/><Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/></Types>`

const packageRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/></Relationships>`

const sectPr = `<w:sectPr><w:pgSz w:w="12240" w:h="15840"/></w:sectPr>`

// Builder accumulates body blocks. Each paragraph is a list of runs; a run
// starting with "*" is written bold so tests can check formatting survival.
type Builder struct {
	blocks []string
}

func New() *Builder {
	return &Builder{}
}

// Paragraph adds a paragraph whose runs hold the given texts.
func (b *Builder) Paragraph(runs ...string) *Builder {
	b.blocks = append(b.blocks, paragraphXML(runs))
	return b
}

// Table adds a table; each cell string becomes one single-run paragraph and a
// cell containing "\n" is split into several paragraphs.
func (b *Builder) Table(rows [][]string) *Builder {
	var sb strings.Builder
	sb.WriteString(`<w:tbl><w:tblPr><w:tblW w:w="0" w:type="auto"/></w:tblPr>`)
	for _, row := range rows {
		sb.WriteString("<w:tr>")
		for _, cell := range row {
			sb.WriteString("<w:tc>")
			for _, line := range strings.Split(cell, "\n") {
				sb.WriteString(paragraphXML([]string{line}))
			}
			sb.WriteString("</w:tc>")
		}
		sb.WriteString("</w:tr>")
	}
	sb.WriteString("</w:tbl>")
	b.blocks = append(b.blocks, sb.String())
	return b
}

// Raw adds literal body XML.
func (b *Builder) Raw(xml string) *Builder {
	b.blocks = append(b.blocks, xml)
	return b
}

func (b *Builder) DocumentXML() string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n" +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">` +
		"<w:body>" + strings.Join(b.blocks, "") + sectPr + "</w:body></w:document>"
}

// Bytes returns the packaged document.
func (b *Builder) Bytes() []byte {
	return Package(map[string]string{
		"[Content_Types].xml": contentTypes,
		"_rels/.rels":         packageRels,
		"word/document.xml":   b.DocumentXML(),
	})
}

// Package zips parts in a stable order: content types, package rels, the rest.
func Package(parts map[string]string) []byte {
	order := []string{"[Content_Types].xml", "_rels/.rels"}
	for name := range parts {
		if name != order[0] && name != order[1] {
			order = append(order, name)
		}
	}
	sort.Strings(order[2:])

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range order {
		content, ok := parts[name]
		if !ok {
			continue
		}
		w, err := zw.Create(name)
		if err != nil {
			panic(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			panic(err)
		}
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func paragraphXML(runs []string) string {
	var sb strings.Builder
	sb.WriteString("<w:p>")
	for _, text := range runs {
		sb.WriteString("<w:r>")
		if strings.HasPrefix(text, "*") {
			text = strings.TrimPrefix(text, "*")
			sb.WriteString("<w:rPr><w:b/></w:rPr>")
		}
		if text != "" {
			sb.WriteString(`<w:t xml:space="preserve">`)
			sb.WriteString(escape(text))
			sb.WriteString("</w:t>")
		}
		sb.WriteString("</w:r>")
	}
	sb.WriteString("</w:p>")
	return sb.String()
}

var escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escape(s string) string {
	return escaper.Replace(s)
}

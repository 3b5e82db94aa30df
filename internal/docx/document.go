// Package docx is a small WordprocessingML object model. It opens a .docx
// package, exposes body paragraphs and tables, edits run text in place and
// writes the package back with every other part copied untouched.
package docx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

const (
	defaultMainPart     = "word/document.xml"
	packageRelsPart     = "_rels/.rels"
	officeDocumentRelID = "/officeDocument"
)

var (
	ErrNotPackage   = errors.New("not a zip package")
	ErrNoMainPart   = errors.New("main document part not found")
	ErrNoBody       = errors.New("document body not found")
	ErrPartTooLarge = errors.New("document part too large")
)

// maxPartSize bounds how much of the main part is inflated into memory.
const maxPartSize = 64 << 20

type Document struct {
	archive  *zip.Reader
	mainPart string
	root     *node
	body     *node
	prefix   string
}

// Open parses a .docx package held in memory.
func Open(data []byte) (*Document, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotPackage, err)
	}

	mainPart := locateMainPart(archive)
	raw, err := readPart(archive, mainPart)
	if err != nil {
		return nil, err
	}

	root, err := parseXML(raw)
	if err != nil {
		return nil, fmt.Errorf("parse %s failed: %w", mainPart, err)
	}

	var docEl *node
	for _, c := range root.children {
		if c.is("document") {
			docEl = c
			break
		}
	}
	if docEl == nil {
		return nil, ErrNoBody
	}
	body := docEl.first("body")
	if body == nil {
		return nil, ErrNoBody
	}

	return &Document{
		archive:  archive,
		mainPart: mainPart,
		root:     root,
		body:     body,
		prefix:   wordPrefix(docEl),
	}, nil
}

func locateMainPart(archive *zip.Reader) string {
	raw, err := readPart(archive, packageRelsPart)
	if err != nil {
		return defaultMainPart
	}
	var rels struct {
		Relationships []struct {
			Type   string `xml:"Type,attr"`
			Target string `xml:"Target,attr"`
		} `xml:"Relationship"`
	}
	if err := xml.Unmarshal(raw, &rels); err != nil {
		return defaultMainPart
	}
	for _, rel := range rels.Relationships {
		if strings.HasSuffix(rel.Type, officeDocumentRelID) {
			return strings.TrimPrefix(path.Clean("/"+rel.Target), "/")
		}
	}
	return defaultMainPart
}

func readPart(archive *zip.Reader, name string) ([]byte, error) {
	for _, f := range archive.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open part %s failed: %w", name, err)
		}
		defer rc.Close()

		raw, err := io.ReadAll(io.LimitReader(rc, maxPartSize+1))
		if err != nil {
			return nil, fmt.Errorf("read part %s failed: %w", name, err)
		}
		if len(raw) > maxPartSize {
			return nil, ErrPartTooLarge
		}
		return raw, nil
	}
	if name == packageRelsPart {
		return nil, fmt.Errorf("part %s not found", name)
	}
	return nil, ErrNoMainPart
}

func wordPrefix(docEl *node) string {
	for prefix, uri := range docEl.scope {
		if uri == wordNS {
			return prefix
		}
	}
	return "w"
}

// Save serializes the document into a new .docx package.
func (d *Document) Save() ([]byte, error) {
	var part bytes.Buffer
	d.root.write(&part)

	var out bytes.Buffer
	zw := zip.NewWriter(&out)
	for _, f := range d.archive.File {
		if f.Name != d.mainPart {
			if err := zw.Copy(f); err != nil {
				return nil, fmt.Errorf("copy part %s failed: %w", f.Name, err)
			}
			continue
		}
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     f.Name,
			Method:   f.Method,
			Modified: f.Modified,
		})
		if err != nil {
			return nil, fmt.Errorf("create part %s failed: %w", f.Name, err)
		}
		if _, err := w.Write(part.Bytes()); err != nil {
			return nil, fmt.Errorf("write part %s failed: %w", f.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close package failed: %w", err)
	}
	return out.Bytes(), nil
}

// Paragraphs returns the top-level body paragraphs in document order.
func (d *Document) Paragraphs() []*Paragraph {
	return d.wrapParagraphs(d.body.elements("p"))
}

func (d *Document) Tables() []*Table {
	nodes := d.body.elements("tbl")
	tables := make([]*Table, 0, len(nodes))
	for _, n := range nodes {
		tables = append(tables, &Table{n: n, doc: d})
	}
	return tables
}

// AllParagraphs walks body paragraphs first, then the paragraphs of every
// table cell, row by row.
func (d *Document) AllParagraphs() []*Paragraph {
	all := d.Paragraphs()
	for _, t := range d.Tables() {
		for _, row := range t.Rows() {
			for _, cell := range row.Cells() {
				all = append(all, cell.Paragraphs()...)
			}
		}
	}
	return all
}

// ClearBody drops all block content, tables included. Section properties stay
// so page setup survives.
func (d *Document) ClearBody() {
	kept := d.body.children[:0]
	for _, c := range d.body.children {
		if c.is("sectPr") {
			kept = append(kept, c)
		}
	}
	d.body.children = kept
}

// AddParagraph appends a paragraph with a single run holding text.
func (d *Document) AddParagraph(text string) *Paragraph {
	p := d.newElement("p")
	p.appendChild(d.newRun(text))
	if sectPr := d.body.first("sectPr"); sectPr != nil {
		d.body.insertBefore(p, sectPr)
	} else {
		d.body.appendChild(p)
	}
	return &Paragraph{n: p, doc: d}
}

func (d *Document) newElement(local string) *node {
	return &node{
		kind:  elementNode,
		name:  xml.Name{Space: d.prefix, Local: local},
		space: wordNS,
	}
}

func (d *Document) newRun(text string) *node {
	r := d.newElement("r")
	(&Run{n: r, doc: d}).SetText(text)
	return r
}

func (d *Document) wrapParagraphs(nodes []*node) []*Paragraph {
	paragraphs := make([]*Paragraph, 0, len(nodes))
	for _, n := range nodes {
		paragraphs = append(paragraphs, &Paragraph{n: n, doc: d})
	}
	return paragraphs
}

package docx

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

const (
	wordNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	xmlNS  = "http://www.w3.org/XML/1998/namespace"
)

type nodeKind int

const (
	documentNode nodeKind = iota
	elementNode
	textNode
	rawNode
)

// node is a lossless XML tree. Element names keep the prefix exactly as written
// in the part so the serialized output matches what Word produced; space holds
// the resolved namespace URI for matching.
type node struct {
	kind     nodeKind
	name     xml.Name
	space    string
	attr     []xml.Attr
	children []*node
	parent   *node
	text     string

	scope map[string]string
}

func parseXML(data []byte) (*node, error) {
	root := &node{kind: documentNode, scope: map[string]string{"xml": xmlNS}}
	cur := root

	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode xml token failed: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &node{
				kind:   elementNode,
				name:   t.Name,
				attr:   append([]xml.Attr(nil), t.Attr...),
				parent: cur,
			}
			n.scope = inheritScope(cur.scope, t.Attr)
			n.space = n.scope[t.Name.Space]
			cur.children = append(cur.children, n)
			cur = n
		case xml.EndElement:
			if cur == root {
				return nil, fmt.Errorf("unexpected end element %q", t.Name.Local)
			}
			if cur.name != t.Name {
				return nil, fmt.Errorf("mismatched end element %q, expected %q", qualified(t.Name), qualified(cur.name))
			}
			cur = cur.parent
		case xml.CharData:
			cur.children = append(cur.children, &node{kind: textNode, text: string(t), parent: cur})
		case xml.ProcInst:
			raw := "<?" + t.Target
			if len(t.Inst) > 0 {
				raw += " " + string(t.Inst)
			}
			cur.children = append(cur.children, &node{kind: rawNode, text: raw + "?>", parent: cur})
		case xml.Comment:
			cur.children = append(cur.children, &node{kind: rawNode, text: "<!--" + string(t) + "-->", parent: cur})
		case xml.Directive:
			cur.children = append(cur.children, &node{kind: rawNode, text: "<!" + string(t) + ">", parent: cur})
		}
	}
	if cur != root {
		return nil, fmt.Errorf("unclosed element %q", qualified(cur.name))
	}
	return root, nil
}

func inheritScope(parent map[string]string, attrs []xml.Attr) map[string]string {
	var scope map[string]string
	for _, a := range attrs {
		prefix, ok := "", false
		switch {
		case a.Name.Space == "xmlns":
			prefix, ok = a.Name.Local, true
		case a.Name.Space == "" && a.Name.Local == "xmlns":
			prefix, ok = "", true
		}
		if !ok {
			continue
		}
		if scope == nil {
			scope = make(map[string]string, len(parent)+1)
			for k, v := range parent {
				scope[k] = v
			}
		}
		scope[prefix] = a.Value
	}
	if scope == nil {
		return parent
	}
	return scope
}

func (n *node) write(b *bytes.Buffer) {
	switch n.kind {
	case documentNode:
		for _, c := range n.children {
			c.write(b)
		}
	case rawNode:
		b.WriteString(n.text)
	case textNode:
		b.WriteString(textEscaper.Replace(n.text))
	case elementNode:
		b.WriteByte('<')
		b.WriteString(qualified(n.name))
		for _, a := range n.attr {
			b.WriteByte(' ')
			b.WriteString(qualified(a.Name))
			b.WriteString(`="`)
			b.WriteString(attrEscaper.Replace(a.Value))
			b.WriteByte('"')
		}
		if len(n.children) == 0 {
			b.WriteString("/>")
			return
		}
		b.WriteByte('>')
		for _, c := range n.children {
			c.write(b)
		}
		b.WriteString("</")
		b.WriteString(qualified(n.name))
		b.WriteByte('>')
	}
}

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", "\r", "&#xD;")
	attrEscaper = strings.NewReplacer(
		"&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;",
		"\n", "&#xA;", "\r", "&#xD;", "\t", "&#x9;",
	)
)

func qualified(name xml.Name) string {
	if name.Space == "" {
		return name.Local
	}
	return name.Space + ":" + name.Local
}

// is reports whether n is a WordprocessingML element with the given local name.
func (n *node) is(local string) bool {
	return n != nil && n.kind == elementNode && n.space == wordNS && n.name.Local == local
}

func (n *node) elements(local string) []*node {
	var out []*node
	for _, c := range n.children {
		if c.is(local) {
			out = append(out, c)
		}
	}
	return out
}

func (n *node) first(local string) *node {
	for _, c := range n.children {
		if c.is(local) {
			return c
		}
	}
	return nil
}

func (n *node) innerText() string {
	var sb strings.Builder
	for _, c := range n.children {
		if c.kind == textNode {
			sb.WriteString(c.text)
		}
	}
	return sb.String()
}

func (n *node) appendChild(c *node) {
	c.parent = n
	n.children = append(n.children, c)
}

func (n *node) insertBefore(c, ref *node) {
	c.parent = n
	for i, existing := range n.children {
		if existing == ref {
			n.children = append(n.children[:i], append([]*node{c}, n.children[i:]...)...)
			return
		}
	}
	n.children = append(n.children, c)
}

func (n *node) setAttr(name xml.Name, value string) {
	for i := range n.attr {
		if n.attr[i].Name == name {
			n.attr[i].Value = value
			return
		}
	}
	n.attr = append(n.attr, xml.Attr{Name: name, Value: value})
}

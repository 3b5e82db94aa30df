package docx_test

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docfill/internal/docx"
	"docfill/internal/docx/docxtest"
)

func paragraphTexts(paragraphs []*docx.Paragraph) []string {
	out := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		out = append(out, p.Text())
	}
	return out
}

func mainPart(t *testing.T, data []byte) string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		defer rc.Close()
		raw, err := io.ReadAll(rc)
		require.NoError(t, err)
		return string(raw)
	}
	t.Fatal("word/document.xml missing")
	return ""
}

func TestOpenReadsParagraphsAndTables(t *testing.T) {
	data := docxtest.New().
		Paragraph("Dear ", "*[Name]", ",").
		Paragraph().
		Table([][]string{{"[Company]", "Signed\n[Date]"}}).
		Bytes()

	doc, err := docx.Open(data)
	require.NoError(t, err)

	assert.Equal(t, []string{"Dear [Name],", ""}, paragraphTexts(doc.Paragraphs()))

	tables := doc.Tables()
	require.Len(t, tables, 1)
	rows := tables[0].Rows()
	require.Len(t, rows, 1)
	cells := rows[0].Cells()
	require.Len(t, cells, 2)
	assert.Equal(t, []string{"Signed", "[Date]"}, paragraphTexts(cells[1].Paragraphs()))

	assert.Equal(t,
		[]string{"Dear [Name],", "", "[Company]", "Signed", "[Date]"},
		paragraphTexts(doc.AllParagraphs()),
	)
}

func TestOpenRejectsInvalidInput(t *testing.T) {
	_, err := docx.Open([]byte("plain text, not a zip"))
	assert.ErrorIs(t, err, docx.ErrNotPackage)

	noMain := docxtest.Package(map[string]string{"[Content_Types].xml": "<Types/>"})
	_, err = docx.Open(noMain)
	assert.ErrorIs(t, err, docx.ErrNoMainPart)

	noBody := docxtest.Package(map[string]string{
		"word/document.xml": `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"></w:document>`,
	})
	_, err = docx.Open(noBody)
	assert.ErrorIs(t, err, docx.ErrNoBody)

	broken := docxtest.Package(map[string]string{
		"word/document.xml": `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`,
	})
	_, err = docx.Open(broken)
	assert.Error(t, err)
}

func TestSaveRoundTripKeepsUnknownMarkup(t *testing.T) {
	raw := `<w:p><w:pPr><w:jc w:val="center"/></w:pPr><w:r><w:rPr><w:i/></w:rPr><w:t>Tom &amp; Jerry</w:t></w:r><w:bookmarkStart w:id="0" w:name="x"/></w:p>`
	data := docxtest.New().Raw(raw).Bytes()

	doc, err := docx.Open(data)
	require.NoError(t, err)
	out, err := doc.Save()
	require.NoError(t, err)

	part := mainPart(t, out)
	assert.Contains(t, part, `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	assert.Contains(t, part, `<w:jc w:val="center"/>`)
	assert.Contains(t, part, `<w:t>Tom &amp; Jerry</w:t>`)
	assert.Contains(t, part, `<w:bookmarkStart w:id="0" w:name="x"/>`)
	assert.Contains(t, part, `<w:sectPr>`)

	reopened, err := docx.Open(out)
	require.NoError(t, err)
	assert.Equal(t, []string{"Tom & Jerry"}, paragraphTexts(reopened.Paragraphs()))
}

func TestSaveIsDeterministic(t *testing.T) {
	data := docxtest.New().Paragraph("Hello [Name]").Bytes()

	first, err := docx.Open(data)
	require.NoError(t, err)
	a, err := first.Save()
	require.NoError(t, err)

	second, err := docx.Open(data)
	require.NoError(t, err)
	b, err := second.Save()
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestParagraphSetTextKeepsFirstRun(t *testing.T) {
	data := docxtest.New().Paragraph("*Dear [Na", "me]", " and co").Bytes()
	doc, err := docx.Open(data)
	require.NoError(t, err)

	p := doc.Paragraphs()[0]
	p.SetText("Dear Jo and co")

	runs := p.Runs()
	require.Len(t, runs, 3)
	assert.Equal(t, "Dear Jo and co", runs[0].Text())
	assert.Equal(t, "", runs[1].Text())
	assert.Equal(t, "", runs[2].Text())

	out, err := doc.Save()
	require.NoError(t, err)
	part := mainPart(t, out)
	assert.Contains(t, part, `<w:r><w:rPr><w:b/></w:rPr><w:t xml:space="preserve">Dear Jo and co</w:t></w:r>`)
}

func TestParagraphSetTextWithoutRuns(t *testing.T) {
	doc, err := docx.Open(docxtest.New().Paragraph().Bytes())
	require.NoError(t, err)

	p := doc.Paragraphs()[0]
	p.SetText("line one\nline\ttwo")

	assert.Len(t, p.Runs(), 1)
	assert.Equal(t, "line one\nline\ttwo", p.Text())
}

func TestSetTextDropsCharactersXMLCannotCarry(t *testing.T) {
	doc, err := docx.Open(docxtest.New().Paragraph("[Name]").Bytes())
	require.NoError(t, err)

	doc.Paragraphs()[0].SetText("Jo\x0bDoe\x00 \uFFFE\x1f\u00e9\U0001F600")
	doc.AddParagraph("Hi\x01there\tok")

	out, err := doc.Save()
	require.NoError(t, err)

	reopened, err := docx.Open(out)
	require.NoError(t, err)
	assert.Equal(t, []string{"JoDoe \u00e9\U0001F600", "Hithere\tok"}, paragraphTexts(reopened.AllParagraphs()))
}

func TestRunsInsideHyperlinks(t *testing.T) {
	raw := `<w:p><w:r><w:t>See </w:t></w:r><w:hyperlink r:id="rId9"><w:r><w:t>[Link]</w:t></w:r></w:hyperlink></w:p>`
	doc, err := docx.Open(docxtest.New().Raw(raw).Bytes())
	require.NoError(t, err)

	p := doc.Paragraphs()[0]
	assert.Len(t, p.Runs(), 2)
	assert.Equal(t, "See [Link]", p.Text())
}

func TestClearBodyAndAddParagraph(t *testing.T) {
	data := docxtest.New().
		Paragraph("first").
		Table([][]string{{"cell"}}).
		Bytes()
	doc, err := docx.Open(data)
	require.NoError(t, err)

	doc.ClearBody()
	assert.Empty(t, doc.Paragraphs())
	assert.Empty(t, doc.Tables())

	doc.AddParagraph("alpha")
	doc.AddParagraph("beta")

	out, err := doc.Save()
	require.NoError(t, err)

	reopened, err := docx.Open(out)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, paragraphTexts(reopened.AllParagraphs()))

	part := mainPart(t, out)
	assert.Regexp(t, `beta</w:t></w:r></w:p><w:sectPr>`, part)
}

func TestOtherPartsAreCopied(t *testing.T) {
	data := docxtest.Package(map[string]string{
		"[Content_Types].xml": "<Types/>",
		"word/document.xml":   docxtest.New().Paragraph("x").DocumentXML(),
		"word/styles.xml":     "<w:styles/>",
	})
	doc, err := docx.Open(data)
	require.NoError(t, err)
	out, err := doc.Save()
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(out), int64(len(out)))
	require.NoError(t, err)
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"[Content_Types].xml", "word/document.xml", "word/styles.xml"}, names)
}

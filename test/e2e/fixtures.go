// Package e2e provides end-to-end tests; this file builds minimal binary files for supported types.
package e2e

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// SupportedFileExtensions is the list of file extensions used in E2E file-based tests.
// PDF is not generated here (no minimal PDF with extractable text); .odt and .rtf go through
// the same office reader as documents saved by real editors and are covered by hand.
var SupportedFileExtensions = []string{
	".txt", ".md",
	".docx", ".xlsx", ".pptx", ".ods", ".odp",
}

// Section is a titled run of paragraphs in a generated document.
type Section struct {
	Heading    string
	Paragraphs []string
}

// WriteMinimalFile returns the bytes of a minimal file of the given extension holding text.
// Spreadsheets get a one-column header row ("Content") above the text row.
func WriteMinimalFile(ext, text string) ([]byte, error) {
	switch ext {
	case ".txt", ".md":
		return []byte(text), nil
	case ".docx":
		return SOPDocx([]Section{{Paragraphs: []string{text}}}), nil
	case ".pptx":
		return Pptx([][]string{{text}}), nil
	case ".odp":
		return ODP([][]string{{text}}), nil
	case ".ods":
		return ODS("Sheet1", [][]string{{"Content"}, {text}}), nil
	case ".xlsx":
		return Workbook("Sheet1", [][]string{{"Content"}, {text}})
	default:
		return nil, fmt.Errorf("no fixture for %q", ext)
	}
}

func escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

func zipFiles(files map[string]string) []byte {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, body := range files {
		fw, _ := w.Create(name)
		_, _ = fw.Write([]byte(body))
	}
	_ = w.Close()
	return buf.Bytes()
}

// SOPDocx returns a .docx whose headings are bold paragraphs, the way procedure documents
// are usually written. An empty Heading emits only the paragraphs.
func SOPDocx(sections []Section) []byte {
	var body strings.Builder
	for _, s := range sections {
		if s.Heading != "" {
			body.WriteString(`<w:p><w:r><w:rPr><w:b/></w:rPr><w:t>` + escape(s.Heading) + `</w:t></w:r></w:p>`)
		}
		for _, p := range s.Paragraphs {
			body.WriteString(`<w:p><w:r><w:t xml:space="preserve">` + escape(p) + `</w:t></w:r></w:p>`)
		}
	}
	doc := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body.String() + `</w:body></w:document>`
	return zipFiles(map[string]string{"word/document.xml": doc})
}

// Workbook returns an .xlsx with rows written to sheet, first row as header.
func Workbook(sheet string, rows [][]string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	if sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			return nil, err
		}
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, err
		}
	}
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Pptx returns a .pptx with one slide per entry; each string is one paragraph.
func Pptx(slides [][]string) []byte {
	files := make(map[string]string, len(slides))
	for i, paras := range slides {
		var body strings.Builder
		for _, p := range paras {
			body.WriteString(`<a:p><a:r><a:t>` + escape(p) + `</a:t></a:r></a:p>`)
		}
		files[fmt.Sprintf("ppt/slides/slide%d.xml", i+1)] = `<p:sld xmlns:p="p" xmlns:a="a"><p:cSld><p:spTree><p:sp><p:txBody>` +
			body.String() + `</p:txBody></p:sp></p:spTree></p:cSld></p:sld>`
	}
	return zipFiles(files)
}

// ODS returns an OpenDocument spreadsheet with a single named table.
func ODS(sheet string, rows [][]string) []byte {
	var body strings.Builder
	for _, row := range rows {
		body.WriteString(`<table:table-row>`)
		for _, cell := range row {
			body.WriteString(`<table:table-cell><text:p>` + escape(cell) + `</text:p></table:table-cell>`)
		}
		body.WriteString(`</table:table-row>`)
	}
	content := `<office:document-content xmlns:office="o" xmlns:table="t" xmlns:text="x"><office:body><office:spreadsheet>` +
		`<table:table table:name="` + escape(sheet) + `">` + body.String() + `</table:table>` +
		`</office:spreadsheet></office:body></office:document-content>`
	return zipFiles(map[string]string{"content.xml": content})
}

// ODP returns an OpenDocument presentation with one draw:page per entry.
func ODP(slides [][]string) []byte {
	var body strings.Builder
	for i, paras := range slides {
		fmt.Fprintf(&body, `<draw:page draw:name="page%d"><draw:frame><draw:text-box>`, i+1)
		for _, p := range paras {
			body.WriteString(`<text:p>` + escape(p) + `</text:p>`)
		}
		body.WriteString(`</draw:text-box></draw:frame></draw:page>`)
	}
	content := `<office:document-content xmlns:office="o" xmlns:draw="d" xmlns:text="x"><office:body><office:presentation>` +
		body.String() + `</office:presentation></office:body></office:document-content>`
	return zipFiles(map[string]string{"content.xml": content})
}

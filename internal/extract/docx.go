package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/hyperjump/manabu/internal/models"
)

// docxDocumentXMLPath is the default path to the main document body inside a .docx zip.
const docxDocumentXMLPath = "word/document.xml"

// contentTypesPath is the path to [Content_Types].xml in OOXML packages.
const contentTypesPath = "[Content_Types].xml"

// docxMainContentType is the content type for the main document in DOCX files.
const docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"

// partNameRe extracts PartName from Override elements in [Content_Types].xml.
var partNameRe = regexp.MustCompile(`<Override[^>]+PartName="([^"]+)"[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"`)

// partNameRe2 handles the case where ContentType appears before PartName.
var partNameRe2 = regexp.MustCompile(`<Override[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"[^>]+PartName="([^"]+)"`)

// tableCellSeparator joins the cells of one table row.
const tableCellSeparator = " | "

// findDocxMainDocumentPath finds the main document path from [Content_Types].xml.
// Returns the path without leading slash, or empty string if not found.
func findDocxMainDocumentPath(zr *zip.Reader) string {
	data, err := readZipFile(zr, contentTypesPath)
	if err != nil || data == nil {
		return ""
	}
	content := string(data)
	if matches := partNameRe.FindStringSubmatch(content); len(matches) > 1 {
		return strings.TrimPrefix(matches[1], "/")
	}
	if matches := partNameRe2.FindStringSubmatch(content); len(matches) > 1 {
		return strings.TrimPrefix(matches[1], "/")
	}
	return ""
}

// readZipFile returns the contents of name, or nil when the archive has no such entry.
func readZipFile(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(rc); err != nil {
			_ = rc.Close()
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		_ = rc.Close()
		return buf.Bytes(), nil
	}
	return nil, nil
}

// parseDOCX walks the body of word/document.xml in document order. Each paragraph becomes
// one HEADING or BODY block according to classifier; each table becomes one BODY block
// with a line per row.
func parseDOCX(content []byte, source string, classifier StructuralClassifier) ([]models.RawBlock, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("not a zip: %w", err)
	}
	docPath := findDocxMainDocumentPath(zr)
	if docPath == "" {
		docPath = docxDocumentXMLPath
	}
	docXML, err := readZipFile(zr, docPath)
	if err != nil {
		return nil, err
	}
	if docXML == nil {
		return nil, fmt.Errorf("%s not found", docPath)
	}

	var blocks []models.RawBlock
	emit := func(text string, kind models.BlockKind) {
		blocks = append(blocks, models.RawBlock{
			Text:       text,
			Kind:       kind,
			SourceFile: source,
			Position:   len(blocks),
		})
	}

	dec := xml.NewDecoder(bytes.NewReader(docXML))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", docPath, err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case "p":
			paras, err := readParagraph(dec)
			if err != nil {
				return nil, err
			}
			for _, p := range paras {
				text := p.Text()
				if text == "" {
					continue
				}
				if classifier.IsHeading(p) {
					emit(text, models.BlockHeading)
				} else {
					emit(text, models.BlockBody)
				}
			}
		case "Fallback":
			if err := dec.Skip(); err != nil {
				return nil, fmt.Errorf("decode %s: %w", docPath, err)
			}
		case "tbl":
			rows, err := readTable(dec)
			if err != nil {
				return nil, err
			}
			if text := strings.TrimSpace(strings.Join(rows, "\n")); text != "" {
				emit(text, models.BlockBody)
			}
		}
	}
	return blocks, nil
}

// readParagraph consumes tokens up to the end of the current <w:p>. The first paragraph
// returned is the one being read; paragraphs from text boxes anchored in it follow in
// document order. mc:Fallback copies of mc:Choice content are skipped.
func readParagraph(dec *xml.Decoder) ([]Paragraph, error) {
	var (
		p         Paragraph
		boxes     []Paragraph
		run       *Run
		inRunProp bool
		inText    bool
		depth     int
	)
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode paragraph: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "Fallback":
				if err := dec.Skip(); err != nil {
					return nil, fmt.Errorf("decode paragraph: %w", err)
				}
				continue
			case "p":
				nested, err := readParagraph(dec)
				if err != nil {
					return nil, err
				}
				boxes = append(boxes, nested...)
				continue
			}
			depth++
			switch t.Name.Local {
			case "pStyle":
				p.Style = attrValue(t, "val")
			case "r":
				run = &Run{}
			case "rPr":
				inRunProp = run != nil
			case "b":
				if inRunProp {
					run.Bold = isOn(attrValue(t, "val"))
				}
			case "t":
				inText = true
			case "tab":
				if run != nil {
					run.Text += "\t"
				}
			case "br", "cr":
				if run != nil {
					run.Text += " "
				}
			}
		case xml.EndElement:
			if depth == 0 {
				return append([]Paragraph{p}, boxes...), nil
			}
			depth--
			switch t.Name.Local {
			case "rPr":
				inRunProp = false
			case "t":
				inText = false
			case "r":
				if run != nil {
					p.Runs = append(p.Runs, *run)
					run = nil
				}
			}
		case xml.CharData:
			if inText && run != nil {
				run.Text += string(t)
			}
		}
	}
}

// readTable consumes tokens up to the end of the current <w:tbl> and returns one
// string per row with cells joined by tableCellSeparator. Nested tables are flattened
// into their enclosing cell.
func readTable(dec *xml.Decoder) ([]string, error) {
	var (
		rows  []string
		cells []string
		cell  []string
		depth int
	)
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode table: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				paras, err := readParagraph(dec)
				if err != nil {
					return nil, err
				}
				for _, p := range paras {
					if text := p.Text(); text != "" {
						cell = append(cell, text)
					}
				}
				continue
			case "tbl":
				nested, err := readTable(dec)
				if err != nil {
					return nil, err
				}
				cell = append(cell, nested...)
				continue
			case "tr":
				cells = nil
			case "tc":
				cell = nil
			}
			depth++
		case xml.EndElement:
			if depth == 0 {
				return rows, nil
			}
			depth--
			switch t.Name.Local {
			case "tc":
				cells = append(cells, strings.Join(cell, " "))
			case "tr":
				if rowHasText(cells) {
					rows = append(rows, strings.Join(cells, tableCellSeparator))
				}
			}
		}
	}
}

func rowHasText(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return true
		}
	}
	return false
}

func attrValue(se xml.StartElement, local string) string {
	for _, a := range se.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// isOn interprets an OOXML on/off attribute; a missing value means on.
func isOn(val string) bool {
	switch strings.ToLower(val) {
	case "0", "false", "off", "none":
		return false
	}
	return true
}

package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/manabu/internal/models"
)

// parseODP reads an OpenDocument presentation the way parsePPTX reads slides: every
// draw:page is a section whose first paragraph is the heading. Speaker notes are skipped.
func parseODP(content []byte, source string) ([]models.RawBlock, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("not a zip: %w", err)
	}
	contentXML, err := readZipFile(zr, odsContentPath)
	if err != nil {
		return nil, err
	}
	if contentXML == nil {
		return nil, fmt.Errorf("%s not found", odsContentPath)
	}

	var (
		blocks []models.RawBlock
		page   []string
		para   strings.Builder
		// inPara counts open text:p/text:h elements; notes counts open presentation:notes.
		inPara, notes int
	)
	dec := xml.NewDecoder(bytes.NewReader(contentXML))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return blocks, nil
		}
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", odsContentPath, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "page":
				page = page[:0]
			case "notes":
				notes++
			case "p", "h":
				if inPara == 0 {
					para.Reset()
				}
				inPara++
			case "s", "tab", "line-break":
				if inPara > 0 {
					para.WriteByte(' ')
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "notes":
				notes--
			case "p", "h":
				inPara--
				if inPara == 0 && notes == 0 {
					if text := strings.Join(strings.Fields(para.String()), " "); text != "" {
						page = append(page, text)
					}
				}
			case "page":
				for i, text := range page {
					kind := models.BlockBody
					if i == 0 {
						kind = models.BlockHeading
					}
					blocks = append(blocks, models.RawBlock{Text: text, Kind: kind, SourceFile: source, Position: len(blocks)})
				}
			}
		case xml.CharData:
			if inPara > 0 {
				para.Write(t)
			}
		}
	}
}

package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hyperjump/manabu/internal/models"
)

// odsContentPath is the path to the main content inside an .ods zip (OpenDocument Spreadsheet).
const odsContentPath = "content.xml"

// maxRepeatedColumns caps table:number-columns-repeated, which spreadsheets use to pad
// rows out to thousands of empty columns.
const maxRepeatedColumns = 256

// parseODS reads every table:table in content.xml as a sheet and converts it to ROW blocks
// with the same header rules as .xlsx.
func parseODS(content []byte, source string) ([]models.RawBlock, error) {
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

	var blocks []models.RawBlock
	dec := xml.NewDecoder(bytes.NewReader(contentXML))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", odsContentPath, err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "table" {
			continue
		}
		sheet := attrValue(start, "name")
		rows, err := readODSTable(dec)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, rowBlocks(rows, sheet, source)...)
	}
	return blocks, nil
}

func readODSTable(dec *xml.Decoder) ([][]string, error) {
	var (
		rows  [][]string
		row   []string
		cell  []string
		rep   int
		inP   bool
		depth int
	)
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode table: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch t.Name.Local {
			case "table-row":
				row = nil
			case "table-cell", "covered-table-cell":
				cell = nil
				rep = 1
				if n, err := strconv.Atoi(attrValue(t, "number-columns-repeated")); err == nil && n > 1 {
					rep = n
				}
			case "p":
				inP = true
				cell = append(cell, "")
			case "s":
				if inP && len(cell) > 0 {
					cell[len(cell)-1] += " "
				}
			}
		case xml.EndElement:
			if depth == 0 {
				return rows, nil
			}
			depth--
			switch t.Name.Local {
			case "p":
				inP = false
			case "table-cell", "covered-table-cell":
				value := strings.TrimSpace(strings.Join(cell, " "))
				if value == "" && rep > maxRepeatedColumns {
					rep = 1
				}
				for i := 0; i < rep && i < maxRepeatedColumns; i++ {
					row = append(row, value)
				}
			case "table-row":
				rows = append(rows, row)
			}
		case xml.CharData:
			if inP && len(cell) > 0 {
				cell[len(cell)-1] += string(t)
			}
		}
	}
}

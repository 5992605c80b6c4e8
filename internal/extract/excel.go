package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/manabu/internal/models"
)

func parseExcel(content []byte, source string) ([]models.RawBlock, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	var blocks []models.RawBlock
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("get rows for sheet %q: %w", sheet, err)
		}
		blocks = append(blocks, rowBlocks(rows, sheet, source)...)
	}
	return blocks, nil
}

// rowBlocks converts a sheet to ROW blocks. The first non-empty row is the header; each
// later non-empty row becomes one block serialized as "Field: value" lines for its
// non-empty cells. Position is the 1-based sheet row number.
func rowBlocks(rows [][]string, sheet, source string) []models.RawBlock {
	headerIdx := -1
	for i, row := range rows {
		if !isEmptyRow(row) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil
	}
	header := rows[headerIdx]

	var blocks []models.RawBlock
	for i := headerIdx + 1; i < len(rows); i++ {
		row := rows[i]
		if isEmptyRow(row) {
			continue
		}
		fields := make([]models.Field, 0, len(row))
		lines := make([]string, 0, len(row))
		for col, cell := range row {
			value := strings.TrimSpace(cell)
			if value == "" {
				continue
			}
			name := columnName(header, col)
			fields = append(fields, models.Field{Name: name, Value: value})
			lines = append(lines, name+": "+value)
		}
		blocks = append(blocks, models.RawBlock{
			Text:       strings.Join(lines, "\n"),
			Kind:       models.BlockRow,
			SourceFile: source,
			Position:   i + 1,
			Fields:     fields,
			Sheet:      sheet,
		})
	}
	return blocks
}

func columnName(header []string, col int) string {
	if col < len(header) {
		if name := strings.TrimSpace(header[col]); name != "" {
			return name
		}
	}
	return fmt.Sprintf("Column %d", col+1)
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

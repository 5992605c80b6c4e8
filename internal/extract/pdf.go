package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/hyperjump/manabu/internal/models"
)

func isBoldFont(font string) bool {
	f := strings.ToLower(font)
	return strings.Contains(f, "bold") || strings.Contains(f, "black") || strings.Contains(f, "heavy")
}

// pageLines reads the rows of one page as single-line paragraphs, marking runs set in a
// bold font. The pdf reader panics on some malformed content streams; that surfaces as an
// error for the page.
func pageLines(page pdf.Page, num int) (lines []Paragraph, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("page %d: malformed content: %v", num, r)
		}
	}()
	rows, err := page.GetTextByRow()
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", num, err)
	}
	for _, row := range rows {
		var line Paragraph
		for _, t := range row.Content {
			if t.S == "" {
				continue
			}
			bold := isBoldFont(t.Font)
			if n := len(line.Runs); n > 0 && line.Runs[n-1].Bold == bold {
				line.Runs[n-1].Text += t.S
				continue
			}
			line.Runs = append(line.Runs, Run{Text: t.S, Bold: bold})
		}
		if len(line.Runs) > 0 {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

// parsePDF groups page rows into body paragraphs, breaking at headings and page ends.
// A row is a heading when classifier accepts it; bold runs are passed through.
func parsePDF(content []byte, source string, classifier StructuralClassifier) ([]models.RawBlock, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}
	var (
		blocks []models.RawBlock
		body   []string
	)
	emit := func(text string, kind models.BlockKind) {
		blocks = append(blocks, models.RawBlock{Text: text, Kind: kind, SourceFile: source, Position: len(blocks)})
	}
	flush := func() {
		if text := strings.TrimSpace(strings.Join(body, " ")); text != "" {
			emit(text, models.BlockBody)
		}
		body = body[:0]
	}
	for num := 1; num <= r.NumPage(); num++ {
		page := r.Page(num)
		if page.V.IsNull() {
			continue
		}
		lines, err := pageLines(page, num)
		if err != nil {
			return nil, err
		}
		for _, p := range lines {
			text := p.Text()
			if text == "" {
				continue
			}
			if classifier.IsHeading(p) {
				flush()
				emit(headingText(text), models.BlockHeading)
				continue
			}
			body = append(body, text)
		}
		flush()
	}
	return blocks, nil
}

// anyHeading accepts a paragraph when any of cs does.
func anyHeading(cs ...StructuralClassifier) StructuralClassifier {
	return ClassifierFunc(func(p Paragraph) bool {
		for _, c := range cs {
			if c.IsHeading(p) {
				return true
			}
		}
		return false
	})
}

package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/hyperjump/manabu/internal/models"
)

// pptxSlidePathPrefix is the path prefix for slide XML files inside a .pptx zip.
const pptxSlidePathPrefix = "ppt/slides/slide"

// parsePPTX treats each slide as a section: its first non-empty paragraph is the heading and
// the remaining paragraphs are body. Slides are read in slide-number order.
func parsePPTX(content []byte, source string) ([]models.RawBlock, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("not a zip: %w", err)
	}
	type slide struct {
		num  int
		file *zip.File
	}
	var slides []slide
	for _, f := range zr.File {
		if !strings.HasPrefix(f.Name, pptxSlidePathPrefix) || !strings.HasSuffix(f.Name, ".xml") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(f.Name, pptxSlidePathPrefix), ".xml"))
		if err != nil {
			continue
		}
		slides = append(slides, slide{num: n, file: f})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	var blocks []models.RawBlock
	for _, s := range slides {
		rc, err := s.file.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", s.file.Name, err)
		}
		paras, err := slideParagraphs(rc)
		_ = rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", s.file.Name, err)
		}
		for i, text := range paras {
			kind := models.BlockBody
			if i == 0 {
				kind = models.BlockHeading
			}
			blocks = append(blocks, models.RawBlock{
				Text:       text,
				Kind:       kind,
				SourceFile: source,
				Position:   len(blocks),
			})
		}
	}
	return blocks, nil
}

func slideParagraphs(r io.Reader) ([]string, error) {
	var paras []string
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return paras, nil
		}
		if err != nil {
			return nil, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case "Fallback":
			if err := dec.Skip(); err != nil {
				return nil, err
			}
		case "p":
			ps, err := readParagraph(dec)
			if err != nil {
				return nil, err
			}
			for _, p := range ps {
				if text := p.Text(); text != "" {
					paras = append(paras, text)
				}
			}
		}
	}
}

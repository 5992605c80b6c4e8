package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/manabu/internal/models"
)

// extractPlain returns content as string, validating it is valid UTF-8.
// Invalid UTF-8 sequences are replaced with the replacement character.
func extractPlain(content []byte) string {
	if !utf8.Valid(content) {
		content = []byte(strings.ToValidUTF8(string(content), "\ufffd"))
	}
	return strings.ReplaceAll(string(content), "\r\n", "\n")
}

// textBlocks splits unstyled text into blocks. Blank lines separate paragraphs; a line the
// classifier accepts as a heading is emitted on its own even without surrounding blank lines.
func textBlocks(text, source string, classifier StructuralClassifier) []models.RawBlock {
	var (
		blocks []models.RawBlock
		para   []string
	)
	emit := func(text string, kind models.BlockKind) {
		blocks = append(blocks, models.RawBlock{
			Text:       text,
			Kind:       kind,
			SourceFile: source,
			Position:   len(blocks),
		})
	}
	flush := func() {
		if body := strings.TrimSpace(strings.Join(para, "\n")); body != "" {
			emit(body, models.BlockBody)
		}
		para = para[:0]
	}
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			flush()
			continue
		}
		if classifier.IsHeading(Paragraph{Runs: []Run{{Text: trimmed}}}) {
			flush()
			emit(headingText(trimmed), models.BlockHeading)
			continue
		}
		para = append(para, trimmed)
	}
	flush()
	return blocks
}

func parsePlain(content []byte, source string, classifier StructuralClassifier) []models.RawBlock {
	return textBlocks(extractPlain(content), source, classifier)
}

package extract

import (
	"fmt"
	"os"

	"github.com/lu4p/cat"

	"github.com/hyperjump/manabu/internal/models"
)

// parseOffice reads .odt and .rtf files through lu4p/cat. Character formatting is not
// available on this path, so headings come from the text classifier.
func parseOffice(path, source string, classifier StructuralClassifier) ([]models.RawBlock, error) {
	text, err := cat.File(path)
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}
	return textBlocks(text, source, classifier), nil
}

// parseOfficeBytes stages content in a temporary file for cat, which reads from disk.
func parseOfficeBytes(content []byte, ext, source string, classifier StructuralClassifier) ([]models.RawBlock, error) {
	f, err := os.CreateTemp("", "manabu-*"+ext)
	if err != nil {
		return nil, fmt.Errorf("stage %s: %w", ext, err)
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(content); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stage %s: %w", ext, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("stage %s: %w", ext, err)
	}
	return parseOffice(f.Name(), source, classifier)
}

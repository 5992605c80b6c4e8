package vector

import (
	"fmt"

	"github.com/hyperjump/manabu/internal/models"
)

// validateEntries checks the build input shared by all index types.
func validateEntries(entries []Entry, dimensions int) error {
	if len(entries) == 0 {
		return &models.BuildError{Reason: "no entries to index"}
	}
	seen := make(map[int64]struct{}, len(entries))
	for i, e := range entries {
		if len(e.Vector) != dimensions {
			return &models.BuildError{
				Reason: fmt.Sprintf("entry %d (chunk %d) has dimension %d, expected %d", i, e.ID, len(e.Vector), dimensions),
			}
		}
		if _, dup := seen[e.ID]; dup {
			return &models.BuildError{Reason: fmt.Sprintf("duplicate chunk id %d", e.ID)}
		}
		seen[e.ID] = struct{}{}
	}
	return nil
}

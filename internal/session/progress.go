package session

import (
	"context"
	"fmt"

	"github.com/Christina1281995/tema-emotions/internal/models"
	"github.com/Christina1281995/tema-emotions/internal/repository"
)

// Progress tracks a labeler's position in the dataset for one session. The
// position is derived from persisted history at login and advanced exactly
// once per durable insert; it is never persisted directly.
type Progress struct {
	author   string
	current  int
	defaults models.FormDefaults
}

// Resume computes the next row to label for author from storage history:
// one past the highest labeled row index, or 0 for a new labeler. A storage
// failure blocks entry to labeling rather than defaulting to 0, since
// starting over at row 0 would produce duplicate records for an existing
// labeler.
func Resume(ctx context.Context, repo repository.ResultRepository, author string) (*Progress, error) {
	max, found, err := repo.MaxRowIndex(ctx, author)
	if err != nil {
		return nil, fmt.Errorf("failed to resume progress for %s: %w", author, err)
	}

	current := 0
	if found {
		current = max + 1
	}

	return &Progress{
		author:   author,
		current:  current,
		defaults: models.NeutralFormDefaults(),
	}, nil
}

// Author returns the labeler this progress belongs to.
func (p *Progress) Author() string {
	return p.author
}

// Current returns the index of the row currently presented.
func (p *Progress) Current() int {
	return p.current
}

// Advance moves to the next row after a confirmed write and returns the
// neutral form state for it. Callers must only invoke Advance once the
// corresponding insert has succeeded.
func (p *Progress) Advance() models.FormDefaults {
	p.current++
	p.defaults = models.NeutralFormDefaults()
	return p.defaults
}

// FormDefaults returns the reset values for the label form.
func (p *Progress) FormDefaults() models.FormDefaults {
	return p.defaults
}

// IsComplete reports whether the labeler has reached the end of a dataset of
// datasetLen rows. The length is passed in rather than cached so a dataset
// that grew since login is picked up on the next check.
func (p *Progress) IsComplete(datasetLen int) bool {
	return p.current >= datasetLen
}

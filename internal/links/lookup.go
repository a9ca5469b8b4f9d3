// Package links projects stored links into required-link sets and owns the
// write path that attaches reminders to habits.
package links

import (
	"context"
	"fmt"

	"github.com/julianstephens/habitlink/internal/fields"
	"github.com/julianstephens/habitlink/internal/models"
)

// RecordReader returns link rows for a habit in whatever shape the store
// currently holds them.
type RecordReader interface {
	LinkRecords(ctx context.Context, habitID string) ([]fields.Accessor, error)
}

// Lookup answers which links count toward a habit.
type Lookup struct {
	reader RecordReader
}

func NewLookup(r RecordReader) *Lookup {
	return &Lookup{reader: r}
}

// RequiredLinks returns the habit's links with IsRequired set. Links with no
// identity keys can never match a fact but still count toward the total.
func (l *Lookup) RequiredLinks(ctx context.Context, habitID string) ([]models.RequiredLink, error) {
	all, err := l.AllLinks(ctx, habitID)
	if err != nil {
		return nil, err
	}
	required := make([]models.RequiredLink, 0, len(all))
	for _, link := range all {
		if link.IsRequired {
			required = append(required, link)
		}
	}
	return required, nil
}

// AllLinks returns every link of the habit, required or not.
func (l *Lookup) AllLinks(ctx context.Context, habitID string) ([]models.RequiredLink, error) {
	recs, err := l.reader.LinkRecords(ctx, habitID)
	if err != nil {
		return nil, fmt.Errorf("reading links for habit %s: %w", habitID, err)
	}
	out := make([]models.RequiredLink, 0, len(recs))
	for _, rec := range recs {
		out = append(out, models.LinkFromRecord(rec))
	}
	return out, nil
}

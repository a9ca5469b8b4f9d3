package identity

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	apperrors "github.com/julianstephens/habitlink/internal/errors"
	"github.com/julianstephens/habitlink/internal/logger"
	"github.com/julianstephens/habitlink/internal/models"
)

// Writer is the write half of the reminders source.
type Writer interface {
	Save(ctx context.Context, item models.ForeignItem) error
	Commit(ctx context.Context) error
}

// Stamper writes app-owned tokens into reminders.
type Stamper struct {
	newToken func() string
}

func NewStamper() *Stamper {
	return &Stamper{newToken: uuid.NewString}
}

// Stamp ensures item carries a stamp token. An already-stamped item is left
// untouched and its token returned with stamped=false. Otherwise a new token
// is written and committed to the source before returning; on any failure the
// item is restored and ErrStampCommit is returned. A URL already on the item
// is carried inside the stamp so Unstamp can put it back.
func (s *Stamper) Stamp(ctx context.Context, w Writer, item *models.ForeignItem, habitID string) (token string, stamped bool, err error) {
	if existing, _, ok := ParseStampURL(item.URL); ok {
		return existing, false, nil
	}

	previous := item.URL
	token = s.newToken()
	item.URL = stampURL(token, habitID, previous)

	if err := w.Save(ctx, *item); err != nil {
		item.URL = previous
		return "", false, fmt.Errorf("%w: save %s: %v", apperrors.ErrStampCommit, item.LocalID, err)
	}
	if err := w.Commit(ctx); err != nil {
		item.URL = previous
		return "", false, fmt.Errorf("%w: commit %s: %v", apperrors.ErrStampCommit, item.LocalID, err)
	}

	logger.Debug("Stamped reminder", "local_id", item.LocalID, "token", token, "habit", habitID)
	return token, true, nil
}

// Unstamp clears item's stamp, restoring any URL it replaced, and commits the
// change. It reports false when item carried no stamp. On failure the stamp is
// restored on item.
func (s *Stamper) Unstamp(ctx context.Context, w Writer, item *models.ForeignItem) (bool, error) {
	if _, _, ok := ParseStampURL(item.URL); !ok {
		return false, nil
	}

	previous := item.URL
	item.URL = PreviousURL(previous)
	if err := w.Save(ctx, *item); err != nil {
		item.URL = previous
		return false, fmt.Errorf("%w: save %s: %v", apperrors.ErrStampCommit, item.LocalID, err)
	}
	if err := w.Commit(ctx); err != nil {
		item.URL = previous
		return false, fmt.Errorf("%w: commit %s: %v", apperrors.ErrStampCommit, item.LocalID, err)
	}
	return true, nil
}

package sqldb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	apperrors "github.com/julianstephens/habitlink/internal/errors"
	"github.com/julianstephens/habitlink/internal/fields"
	"github.com/julianstephens/habitlink/internal/models"
)

// SaveLink upserts a link. reminder_id mirrors the first identity key so rows
// stay readable by code that predates identity_keys.
func (c *Core) SaveLink(link models.RequiredLink) error {
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now()
	}
	keys := link.IdentityKeys
	if keys == nil {
		keys = []string{}
	}
	keysJSON, err := json.Marshal(keys)
	if err != nil {
		return fmt.Errorf("failed to encode identity keys: %w", err)
	}
	var reminderID any
	if len(keys) > 0 {
		reminderID = keys[0]
	}

	_, err = c.DB.Exec(c.rebind(`
		INSERT INTO links (id, habit_id, reminder_id, title, created_at, identity_keys, is_required)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			habit_id = excluded.habit_id,
			reminder_id = excluded.reminder_id,
			title = excluded.title,
			identity_keys = excluded.identity_keys,
			is_required = excluded.is_required`),
		link.ID, link.HabitID, reminderID, link.Title,
		link.CreatedAt.UTC().Format(time.RFC3339), string(keysJSON), boolToInt(link.IsRequired))
	return err
}

func (c *Core) GetLink(id string) (models.RequiredLink, error) {
	rows, err := c.DB.Query(c.rebind(`SELECT * FROM links WHERE id = ?`), id)
	if err != nil {
		return models.RequiredLink{}, err
	}
	defer rows.Close()

	recs, err := fields.FromRows(rows)
	if err != nil {
		return models.RequiredLink{}, err
	}
	if len(recs) == 0 {
		return models.RequiredLink{}, fmt.Errorf("link %s: %w", id, apperrors.ErrNotFound)
	}
	return models.LinkFromRecord(recs[0]), nil
}

func (c *Core) GetLinksForHabit(habitID string) ([]models.RequiredLink, error) {
	recs, err := c.LinkRecords(context.Background(), habitID)
	if err != nil {
		return nil, err
	}
	return projectLinks(recs), nil
}

func (c *Core) GetAllLinks() ([]models.RequiredLink, error) {
	rows, err := c.DB.Query(`SELECT * FROM links ORDER BY habit_id, created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recs, err := fields.FromRows(rows)
	if err != nil {
		return nil, err
	}
	return projectLinks(recs), nil
}

// LinkRecords selects every column so that rows are returned in whatever shape
// the database currently has; projection is left to models.LinkFromRecord.
func (c *Core) LinkRecords(ctx context.Context, habitID string) ([]fields.Accessor, error) {
	rows, err := c.DB.QueryContext(ctx,
		c.rebind(`SELECT * FROM links WHERE habit_id = ? ORDER BY created_at, id`), habitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return fields.FromRows(rows)
}

func (c *Core) SetLinkRequired(id string, required bool) error {
	res, err := c.DB.Exec(c.rebind(`UPDATE links SET is_required = ? WHERE id = ?`), boolToInt(required), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("link %s: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

func (c *Core) DeleteLink(id string) error {
	res, err := c.DB.Exec(c.rebind(`DELETE FROM links WHERE id = ?`), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("link %s: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

func projectLinks(recs []fields.Accessor) []models.RequiredLink {
	links := make([]models.RequiredLink, 0, len(recs))
	for _, rec := range recs {
		links = append(links, models.LinkFromRecord(rec))
	}
	return links
}

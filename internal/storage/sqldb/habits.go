package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/julianstephens/habitlink/internal/errors"
	"github.com/julianstephens/habitlink/internal/models"
)

func (c *Core) AddHabit(habit models.Habit) error {
	if habit.CreatedAt.IsZero() {
		habit.CreatedAt = time.Now()
	}
	_, err := c.DB.Exec(c.rebind(`
		INSERT INTO habits (id, name, created_at) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name`),
		habit.ID, habit.Name, habit.CreatedAt.UTC().Format(time.RFC3339))
	return err
}

func (c *Core) GetHabit(id string) (models.Habit, error) {
	row := c.DB.QueryRow(c.rebind(`SELECT id, name, created_at FROM habits WHERE id = ?`), id)
	h, err := scanHabit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Habit{}, fmt.Errorf("habit %s: %w", id, apperrors.ErrNotFound)
	}
	return h, err
}

func (c *Core) GetHabitByName(name string) (models.Habit, error) {
	row := c.DB.QueryRow(c.rebind(`SELECT id, name, created_at FROM habits WHERE name = ?`), name)
	h, err := scanHabit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Habit{}, fmt.Errorf("habit %q: %w", name, apperrors.ErrNotFound)
	}
	return h, err
}

func (c *Core) GetAllHabits(ctx context.Context) ([]models.Habit, error) {
	rows, err := c.DB.QueryContext(ctx, `SELECT id, name, created_at FROM habits ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var habits []models.Habit
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, err
		}
		habits = append(habits, h)
	}
	return habits, rows.Err()
}

func (c *Core) DeleteHabit(id string) error {
	tx, err := c.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(c.rebind(`DELETE FROM completions WHERE habit_id = ?`), id); err != nil {
		return fmt.Errorf("failed to delete completions: %w", err)
	}
	if _, err := tx.Exec(c.rebind(`DELETE FROM links WHERE habit_id = ?`), id); err != nil {
		return fmt.Errorf("failed to delete links: %w", err)
	}
	res, err := tx.Exec(c.rebind(`DELETE FROM habits WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete habit: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("habit %s: %w", id, apperrors.ErrNotFound)
	}
	return tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanHabit(row scanner) (models.Habit, error) {
	var h models.Habit
	var createdAt string
	if err := row.Scan(&h.ID, &h.Name, &createdAt); err != nil {
		return models.Habit{}, err
	}
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return models.Habit{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	h.CreatedAt = t
	return h, nil
}

package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/julianstephens/habitlink/internal/errors"
	"github.com/julianstephens/habitlink/internal/models"
)

// SaveCompletions writes every record in one transaction. For each record the
// existing row for (habit, day) is looked up first and updated in place;
// unchanged rows are left untouched. Any invalid record aborts the batch.
func (c *Core) SaveCompletions(ctx context.Context, records []models.CompletionRecord) error {
	for _, r := range records {
		if !r.Valid() {
			return fmt.Errorf("%s on %s (%d/%d): %w",
				r.HabitID, r.Day, r.CompletedRequired, r.TotalRequired, apperrors.ErrInvalidSummary)
		}
	}
	if len(records) == 0 {
		return nil
	}

	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	find := c.rebind(`
		SELECT id, total_required, completed_required, is_complete
		FROM completions WHERE habit_id = ? AND day = ?`)
	insert := c.rebind(`
		INSERT INTO completions (id, habit_id, day, total_required, completed_required, is_complete, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	update := c.rebind(`
		UPDATE completions
		SET total_required = ?, completed_required = ?, is_complete = ?, updated_at = ?
		WHERE id = ?`)

	now := time.Now().UTC().Format(time.RFC3339)
	for _, r := range records {
		var id string
		var total, completed, complete int
		err := tx.QueryRowContext(ctx, find, r.HabitID, r.Day).Scan(&id, &total, &completed, &complete)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if _, err := tx.ExecContext(ctx, insert, uuid.NewString(), r.HabitID, r.Day,
				r.TotalRequired, r.CompletedRequired, boolToInt(r.IsComplete), now); err != nil {
				return fmt.Errorf("failed to insert completion %s/%s: %w", r.HabitID, r.Day, err)
			}
		case err != nil:
			return fmt.Errorf("failed to look up completion %s/%s: %w", r.HabitID, r.Day, err)
		default:
			if total == r.TotalRequired && completed == r.CompletedRequired && (complete != 0) == r.IsComplete {
				continue
			}
			if _, err := tx.ExecContext(ctx, update, r.TotalRequired, r.CompletedRequired,
				boolToInt(r.IsComplete), now, id); err != nil {
				return fmt.Errorf("failed to update completion %s/%s: %w", r.HabitID, r.Day, err)
			}
		}
	}

	return tx.Commit()
}

func (c *Core) GetCompletion(habitID, day string) (models.CompletionRecord, error) {
	row := c.DB.QueryRow(c.rebind(`
		SELECT habit_id, day, total_required, completed_required, is_complete
		FROM completions WHERE habit_id = ? AND day = ?`), habitID, day)
	r, err := scanCompletion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.CompletionRecord{}, fmt.Errorf("completion %s/%s: %w", habitID, day, apperrors.ErrNotFound)
	}
	return r, err
}

// GetCompletionsInRange returns records whose day lies in [startDay, endDay].
// Day keys sort lexically in calendar order.
func (c *Core) GetCompletionsInRange(ctx context.Context, startDay, endDay string) ([]models.CompletionRecord, error) {
	rows, err := c.DB.QueryContext(ctx, c.rebind(`
		SELECT habit_id, day, total_required, completed_required, is_complete
		FROM completions WHERE day >= ? AND day <= ?
		ORDER BY habit_id, day`), startDay, endDay)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.CompletionRecord
	for rows.Next() {
		r, err := scanCompletion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountDuplicateCompletions reports how many (habit, day) pairs have more than
// one row. It is always zero while the unique index exists.
func (c *Core) CountDuplicateCompletions() (int, error) {
	var n int
	err := c.DB.QueryRow(`
		SELECT COUNT(*) FROM (
			SELECT habit_id, day FROM completions
			GROUP BY habit_id, day HAVING COUNT(*) > 1
		) dup`).Scan(&n)
	return n, err
}

func scanCompletion(row scanner) (models.CompletionRecord, error) {
	var r models.CompletionRecord
	var complete int
	if err := row.Scan(&r.HabitID, &r.Day, &r.TotalRequired, &r.CompletedRequired, &complete); err != nil {
		return models.CompletionRecord{}, err
	}
	r.IsComplete = complete != 0
	return r, nil
}

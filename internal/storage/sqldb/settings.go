package sqldb

import (
	"fmt"
	"strconv"

	"github.com/julianstephens/habitlink/internal/constants"
	"github.com/julianstephens/habitlink/internal/models"
)

// DefaultSettings are written on first Init.
func DefaultSettings() models.Settings {
	return models.Settings{
		Timezone:           constants.DefaultTimezone,
		SnapshotWindowDays: constants.DefaultSnapshotWindowDays,
		CacheDir:           constants.DefaultCacheDir,
		BackfillMaxDays:    constants.DefaultBackfillMaxDays,
	}
}

func (c *Core) GetSettings() (models.Settings, error) {
	rows, err := c.DB.Query("SELECT key, value FROM settings")
	if err != nil {
		return models.Settings{}, err
	}
	defer rows.Close()

	settings := DefaultSettings()
	count := 0
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return models.Settings{}, err
		}
		switch key {
		case constants.SettingTimezone:
			settings.Timezone = value
		case constants.SettingCacheDir:
			settings.CacheDir = value
		case constants.SettingSnapshotWindowDays:
			n, err := strconv.Atoi(value)
			if err != nil {
				return models.Settings{}, fmt.Errorf("parsing %s: %w", key, err)
			}
			settings.SnapshotWindowDays = n
		case constants.SettingBackfillMaxDays:
			n, err := strconv.Atoi(value)
			if err != nil {
				return models.Settings{}, fmt.Errorf("parsing %s: %w", key, err)
			}
			settings.BackfillMaxDays = n
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return models.Settings{}, err
	}

	if count == 0 {
		return models.Settings{}, fmt.Errorf("settings not found")
	}
	return settings, nil
}

func (c *Core) SaveSettings(settings models.Settings) error {
	tx, err := c.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(c.rebind(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`))
	if err != nil {
		return err
	}
	defer stmt.Close()

	values := []struct {
		key   string
		value string
	}{
		{constants.SettingTimezone, settings.Timezone},
		{constants.SettingCacheDir, settings.CacheDir},
		{constants.SettingSnapshotWindowDays, strconv.Itoa(settings.SnapshotWindowDays)},
		{constants.SettingBackfillMaxDays, strconv.Itoa(settings.BackfillMaxDays)},
	}
	for _, v := range values {
		if _, err := stmt.Exec(v.key, v.value); err != nil {
			return fmt.Errorf("saving %s: %w", v.key, err)
		}
	}

	return tx.Commit()
}

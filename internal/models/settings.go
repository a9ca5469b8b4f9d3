package models

// Settings represents application-wide settings
type Settings struct {
	Timezone           string `json:"timezone"`             // IANA timezone name, or "Local" for the system timezone
	SnapshotWindowDays int    `json:"snapshot_window_days"` // number of days in each snapshot day-grid
	CacheDir           string `json:"cache_dir"`            // snapshot directory; empty means next to the database
	BackfillMaxDays    int    `json:"backfill_max_days"`    // upper bound on a single backfill window
}

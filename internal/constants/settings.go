package constants

const (
	SettingTimezone           = "timezone"
	SettingSnapshotWindowDays = "snapshot_window_days"
	SettingCacheDir           = "cache_dir"
	SettingBackfillMaxDays    = "backfill_max_days"

	DefaultTimezone           = "Local" // Use system local timezone by default
	DefaultSnapshotWindowDays = 30
	DefaultBackfillMaxDays    = 365
	DefaultCacheDir           = "" // empty means <config dir>/snapshots
)

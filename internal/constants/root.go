package constants

import "time"

const (
	AppName            = "habitlink"
	DefaultKeyringUser = "database-connection"
	DefaultConfigPath  = "~/.config/habitlink/habitlink.db"
	Version            = "v0.3.0"

	// DateFormat is the day key format used for completion records and snapshots (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// Stamp constants. A stamped reminder carries a URL of the form
	// habitlink://link/<token>?habit=<habitID> in its URL field. A URL the
	// reminder carried before stamping is kept in the prev parameter.
	StampScheme     = "habitlink"
	StampHost       = "link"
	StampHabitParam = "habit"
	StampPrevParam  = "prev"

	// Snapshot cache constants
	SnapshotIndexFile    = "index.json"
	SnapshotHabitPrefix  = "habit-"
	SnapshotHabitSuffix  = ".json"
	SnapshotDirName      = "snapshots"
	SnapshotFileMode     = 0o644
	MaxSnapshotWindowDay = 366

	// Notify constants
	NotifyTimeout          = 2 * time.Second
	NotifierLockfileName   = "habitlink-widget.lock"
	ConsumerExecutablePref = "habitlink-widget"
	ConsumerAppIdentifier  = "com.julianstephens.habitlink.widget"
	NotifySecretHeader     = "X-Habitlink-Secret"

	// Reconcile run statuses
	RunStatusOK           = "ok"
	RunStatusAccessDenied = "access_denied"
	RunStatusCanceled     = "canceled"
)

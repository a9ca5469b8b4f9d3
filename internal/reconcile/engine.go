package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/julianstephens/habitlink/internal/constants"
	apperrors "github.com/julianstephens/habitlink/internal/errors"
	"github.com/julianstephens/habitlink/internal/facts"
	"github.com/julianstephens/habitlink/internal/identity"
	"github.com/julianstephens/habitlink/internal/links"
	"github.com/julianstephens/habitlink/internal/logger"
	"github.com/julianstephens/habitlink/internal/models"
	"github.com/julianstephens/habitlink/internal/source"
	"github.com/julianstephens/habitlink/internal/utils"
)

// Store is the part of the primary store the engine reads and writes.
type Store interface {
	links.Store
	GetAllHabits(ctx context.Context) ([]models.Habit, error)
	SaveCompletions(ctx context.Context, records []models.CompletionRecord) error
}

// SnapshotWriter refreshes the read cache after results are committed.
type SnapshotWriter interface {
	WriteSnapshot(ctx context.Context, windowDays int) error
}

type Options struct {
	// Loc is the user's timezone; day keys are calendar days in Loc.
	Loc *time.Location
	// Now defaults to time.Now.
	Now func() time.Time
	// Snapshot, when set, is refreshed after every run that committed.
	Snapshot           SnapshotWriter
	SnapshotWindowDays int
	// MaxWindowDays caps RunWindow. Zero means constants.DefaultBackfillMaxDays.
	MaxWindowDays int
	Resolver      *identity.Resolver
}

// Result describes one run.
type Result struct {
	Status  string                    `json:"status"`
	Start   string                    `json:"start"`
	End     string                    `json:"end"`
	Days    int                       `json:"days"`
	Records []models.CompletionRecord `json:"records"`
	// LastCommittedDay is the newest day whose batch was persisted. Empty when
	// nothing was committed.
	LastCommittedDay string            `json:"last_committed_day,omitempty"`
	Relinked         int               `json:"relinked"`
	Diagnostics      facts.Diagnostics `json:"diagnostics"`
	// MissingLinkLists names habits whose links could not be read; they were
	// reconciled as having no required links.
	MissingLinkLists []string `json:"missing_link_lists,omitempty"`
}

// Remaining returns the part of w that a canceled run did not commit.
func (r Result) Remaining(w facts.Window) (facts.Window, bool) {
	if r.LastCommittedDay == "" {
		return w, true
	}
	last, err := utils.ParseDay(r.LastCommittedDay, w.Loc)
	if err != nil {
		return w, true
	}
	return w.From(utils.AddDays(last, 1))
}

// Engine runs reconciliation. Runs are serialized: a second run started while
// one is in progress fails with ErrRunInProgress.
type Engine struct {
	mu       sync.Mutex
	store    Store
	src      source.Source
	lookup   *links.Lookup
	linker   *links.Linker
	resolver *identity.Resolver
	opts     Options
}

func New(store Store, src source.Source, opts Options) *Engine {
	if opts.Loc == nil {
		opts.Loc = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MaxWindowDays <= 0 {
		opts.MaxWindowDays = constants.DefaultBackfillMaxDays
	}
	if opts.SnapshotWindowDays <= 0 {
		opts.SnapshotWindowDays = constants.DefaultSnapshotWindowDays
	}
	if opts.Resolver == nil {
		opts.Resolver = identity.NewResolver()
	}
	return &Engine{
		store:    store,
		src:      src,
		lookup:   links.NewLookup(store),
		linker:   links.NewLinker(store, src, opts.Resolver),
		resolver: opts.Resolver,
		opts:     opts,
	}
}

// Location is the timezone day keys are computed in.
func (e *Engine) Location() *time.Location { return e.opts.Loc }

// Today is the single-day window for the current calendar day.
func (e *Engine) Today() facts.Window {
	return facts.Today(e.opts.Now(), e.opts.Loc)
}

// LastNDays is the window of n days ending today.
func (e *Engine) LastNDays(n int) facts.Window {
	return facts.LastNDays(e.opts.Now(), n, e.opts.Loc)
}

func (e *Engine) RunToday(ctx context.Context) (Result, error) {
	return e.RunWindow(ctx, e.Today())
}

// RunWindow reconciles every habit for every day of w, oldest first. Each
// day's records are committed as one batch, and ctx is checked between days:
// a canceled run keeps the days already committed and reports the last one in
// Result.LastCommittedDay. The snapshot cache is refreshed whenever at least
// one day was committed, even if the run stopped early. When the source
// denies access the results are computed from zero facts and returned
// without being persisted.
func (e *Engine) RunWindow(ctx context.Context, w facts.Window) (Result, error) {
	if !e.mu.TryLock() {
		return Result{}, apperrors.ErrRunInProgress
	}
	defer e.mu.Unlock()

	if w.Loc == nil {
		w.Loc = e.opts.Loc
	}
	days := w.Days()
	if len(days) > e.opts.MaxWindowDays {
		return Result{}, fmt.Errorf("window of %d days exceeds the limit of %d", len(days), e.opts.MaxWindowDays)
	}

	res := Result{
		Status: constants.RunStatusOK,
		Start:  utils.DayKey(w.Start, w.Loc),
		End:    utils.DayKey(w.End, w.Loc),
	}

	log := logger.With("start", res.Start, "end", res.End)

	items, err := e.src.FetchItems(ctx, source.Predicate{})
	denied := errors.Is(err, apperrors.ErrAccessDenied)
	switch {
	case denied:
		res.Status = constants.RunStatusAccessDenied
		items = nil
		log.Warn("Reminders access denied, reconciling with zero facts")
	case err != nil:
		return res, fmt.Errorf("fetching reminders: %w", err)
	default:
		n, err := e.linker.Relink(ctx, items)
		if err != nil {
			log.Warn("Relinking stamped reminders failed", "error", err)
		}
		res.Relinked = n
	}

	habits, err := e.store.GetAllHabits(ctx)
	if err != nil {
		return res, fmt.Errorf("loading habits: %w", err)
	}

	required := make(map[string][]models.RequiredLink, len(habits))
	for _, h := range habits {
		ls, err := e.lookup.RequiredLinks(ctx, h.ID)
		if err != nil {
			log.Warn("Treating habit as having no required links", "habit", h.ID, "error", err)
			res.MissingLinkLists = append(res.MissingLinkLists, h.ID)
		}
		required[h.ID] = ls
	}

	index, diag := facts.Build(items, w, e.resolver)
	res.Diagnostics = diag
	if diag.Unresolvable > 0 {
		log.Info("Skipped reminders with no identity", "count", diag.Unresolvable)
	}

	for _, day := range days {
		if err := ctx.Err(); err != nil {
			res.Status = constants.RunStatusCanceled
			log.Info("Reconciliation canceled", "last_committed_day", res.LastCommittedDay)
			e.refreshPartial(ctx, res)
			return res, err
		}

		key := utils.DayKey(day, w.Loc)
		dayFacts := index.Day(key)
		batch := make([]models.CompletionRecord, 0, len(habits))
		for _, h := range habits {
			batch = append(batch, models.NewCompletionRecord(h.ID, key, Summarize(required[h.ID], dayFacts)))
		}
		res.Records = append(res.Records, batch...)
		res.Days++

		if denied {
			continue
		}
		if err := e.store.SaveCompletions(ctx, batch); err != nil {
			log.Error("Completion batch rolled back", "day", key, "error", err)
			e.refreshPartial(ctx, res)
			return res, fmt.Errorf("committing %s: %w", key, err)
		}
		res.LastCommittedDay = key
	}

	log.Debug("Reconciliation finished",
		"status", res.Status, "days", res.Days, "habits", len(habits), "indexed", diag.Indexed)

	if !denied {
		e.refreshSnapshot(ctx)
	}
	return res, nil
}

// refreshPartial refreshes the cache for a run that stopped early, provided
// at least one day was committed. The refresh outlives ctx's cancellation.
func (e *Engine) refreshPartial(ctx context.Context, res Result) {
	if res.LastCommittedDay == "" {
		return
	}
	e.refreshSnapshot(context.WithoutCancel(ctx))
}

func (e *Engine) refreshSnapshot(ctx context.Context) {
	if e.opts.Snapshot == nil {
		return
	}
	if err := e.opts.Snapshot.WriteSnapshot(ctx, e.opts.SnapshotWindowDays); err != nil {
		logger.Warn("Snapshot refresh failed, cache left stale", "error", err)
	}
}

package identity

import (
	"context"
	"errors"
	"testing"

	apperrors "github.com/julianstephens/habitlink/internal/errors"
	"github.com/julianstephens/habitlink/internal/models"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name   string
		stored string
		want   string
	}{
		{name: "bare key unchanged", stored: "ABC", want: "ABC"},
		{name: "stamp prefix", stored: "stamp:ABC", want: "ABC"},
		{name: "prefix is case insensitive", stored: "STAMP:ABC", want: "ABC"},
		{name: "stacked prefixes", stored: "reminder:local:ABC", want: "ABC"},
		{name: "whitespace", stored: "  ext: ABC  ", want: "ABC"},
		{name: "stamp url", stored: "habitlink://link/tok-1?habit=h1", want: "tok-1"},
		{name: "legacy stamp url", stored: "habitlink://tok-1", want: "tok-1"},
		{name: "prefixed stamp url", stored: "token:habitlink://link/tok-1", want: "tok-1"},
		{name: "title list composite", stored: "tl:Morning  Run::Personal", want: "morning run::personal"},
		{name: "empty", stored: "   ", want: ""},
		{name: "prefix only", stored: "stamp:", want: ""},
		{name: "case preserved for ids", stored: "x-Apple-123", want: "x-Apple-123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.stored); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.stored, got, tt.want)
			}
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	for _, in := range []string{"stamp:ABC", "habitlink://link/t?habit=h", "tl:A::B", "local:X"} {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestStampURLRoundTrip(t *testing.T) {
	raw := StampURL("tok-9", "habit-1")
	token, habitID, ok := ParseStampURL(raw)
	if !ok {
		t.Fatalf("ParseStampURL(%q) failed", raw)
	}
	if token != "tok-9" || habitID != "habit-1" {
		t.Errorf("got token=%q habit=%q", token, habitID)
	}

	if _, _, ok := ParseStampURL("https://example.com/tok"); ok {
		t.Error("foreign URL must not parse as a stamp")
	}
	if _, _, ok := ParseStampURL("habitlink://link/"); ok {
		t.Error("stamp URL without token must not parse")
	}
}

func TestResolvePriority(t *testing.T) {
	r := NewResolver()
	stamped := StampURL("tok-1", "h1")

	tests := []struct {
		name     string
		item     models.ForeignItem
		wantKind Kind
		wantKey  string
		wantOK   bool
	}{
		{
			name:     "stamp wins over everything",
			item:     models.ForeignItem{LocalID: "L1", ExternalID: "E1", Title: "Run", URL: stamped, RecurrenceRules: []string{"FREQ=DAILY"}},
			wantKind: KindStamp, wantKey: "tok-1", wantOK: true,
		},
		{
			name:     "external before local",
			item:     models.ForeignItem{LocalID: "L1", ExternalID: "E1", Title: "Run"},
			wantKind: KindExternal, wantKey: "E1", wantOK: true,
		},
		{
			name:     "local when no external",
			item:     models.ForeignItem{LocalID: "L1", Title: "Run"},
			wantKind: KindLocal, wantKey: "L1", wantOK: true,
		},
		{
			name:     "title list for recurring item without ids",
			item:     models.ForeignItem{Title: "Morning Run", ListName: "Health", RecurrenceRules: []string{"FREQ=DAILY"}},
			wantKind: KindTitleList, wantKey: "morning run::health", wantOK: true,
		},
		{
			name:   "non recurring item without ids is unresolvable",
			item:   models.ForeignItem{Title: "Morning Run", ListName: "Health"},
			wantOK: false,
		},
		{
			name:     "unrelated URL is ignored",
			item:     models.ForeignItem{LocalID: "L1", URL: "https://example.com"},
			wantKind: KindLocal, wantKey: "L1", wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, ok := r.Resolve(tt.item)
			if ok != tt.wantOK {
				t.Fatalf("Resolve ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				if r.Keys(tt.item).Len() != 0 {
					t.Error("Keys must be empty for unresolvable item")
				}
				return
			}
			if key.Kind != tt.wantKind || key.Value != tt.wantKey {
				t.Errorf("Resolve = %v/%q, want %v/%q", key.Kind, key.Value, tt.wantKind, tt.wantKey)
			}
			if keys := r.Keys(tt.item); keys.Len() != 1 {
				t.Errorf("Keys must hold exactly one key, got %d", keys.Len())
			}
		})
	}
}

func TestAllKeys(t *testing.T) {
	r := NewResolver()
	item := models.ForeignItem{LocalID: "L1", ExternalID: "E1", Title: "Run", ListName: "Health", URL: StampURL("tok", "h"), RecurrenceRules: []string{"FREQ=DAILY"}}

	keys := r.AllKeys(item)
	want := []Key{
		{KindStamp, "tok"},
		{KindExternal, "E1"},
		{KindLocal, "L1"},
		{KindTitleList, "run::health"},
	}
	if len(keys) != len(want) {
		t.Fatalf("AllKeys = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("AllKeys[%d] = %v, want %v", i, keys[i], want[i])
		}
	}
}

// Matching works from either the legacy local id or the newer token recorded
// on a link, and a prefixed stored key equals its bare form.
func TestLinkMatchesViaAnyRecordedKey(t *testing.T) {
	stored := []string{"local:L1", "stamp:tok-1"}

	if !NewKeySet("L1").Intersects(stored) {
		t.Error("legacy local id should match")
	}
	if !NewKeySet("tok-1").Intersects(stored) {
		t.Error("stamp token should match")
	}
	if NewKeySet("other").Intersects(stored) {
		t.Error("unrelated key should not match")
	}
	if Normalize("stamp:ABC") != Normalize("ABC") {
		t.Error(`"stamp:ABC" must normalize equal to "ABC"`)
	}
}

// Known false positive: two recurring reminders with the same title in the
// same list and no ids collapse to one key.
func TestTitleListFallbackCollidesOnDuplicateTitles(t *testing.T) {
	r := NewResolver()
	a := models.ForeignItem{Title: "Stretch", ListName: "Daily", RecurrenceRules: []string{"FREQ=DAILY"}}
	b := models.ForeignItem{Title: " stretch ", ListName: "daily", RecurrenceRules: []string{"FREQ=WEEKLY"}}

	ka, _ := r.Resolve(a)
	kb, _ := r.Resolve(b)
	if ka != kb {
		t.Fatalf("expected the documented collision, got %v and %v", ka, kb)
	}
}

type fakeWriter struct {
	saved     []models.ForeignItem
	commits   int
	saveErr   error
	commitErr error
}

func (f *fakeWriter) Save(_ context.Context, item models.ForeignItem) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, item)
	return nil
}

func (f *fakeWriter) Commit(_ context.Context) error {
	if f.commitErr != nil {
		return f.commitErr
	}
	f.commits++
	return nil
}

func TestStampWritesAndCommits(t *testing.T) {
	s := NewStamper()
	s.newToken = func() string { return "tok-new" }
	w := &fakeWriter{}
	item := models.ForeignItem{LocalID: "L1", Title: "Run"}

	token, stamped, err := s.Stamp(context.Background(), w, &item, "h1")
	if err != nil {
		t.Fatalf("Stamp error: %v", err)
	}
	if !stamped || token != "tok-new" {
		t.Errorf("got token=%q stamped=%v", token, stamped)
	}
	if w.commits != 1 || len(w.saved) != 1 {
		t.Errorf("expected one save and one commit, got %d saves %d commits", len(w.saved), w.commits)
	}
	if got, habit, _ := ParseStampURL(item.URL); got != "tok-new" || habit != "h1" {
		t.Errorf("item URL not stamped: %q", item.URL)
	}
}

func TestStampIsIdempotent(t *testing.T) {
	s := NewStamper()
	w := &fakeWriter{}
	item := models.ForeignItem{LocalID: "L1", URL: StampURL("tok-old", "h1")}

	token, stamped, err := s.Stamp(context.Background(), w, &item, "h2")
	if err != nil {
		t.Fatalf("Stamp error: %v", err)
	}
	if stamped {
		t.Error("re-stamping must be a no-op")
	}
	if token != "tok-old" {
		t.Errorf("expected existing token, got %q", token)
	}
	if len(w.saved) != 0 || w.commits != 0 {
		t.Error("no writes expected for an already-stamped item")
	}
}

func TestStampFailureRestoresItem(t *testing.T) {
	tests := []struct {
		name string
		w    *fakeWriter
	}{
		{name: "save fails", w: &fakeWriter{saveErr: errors.New("disk full")}},
		{name: "commit fails", w: &fakeWriter{commitErr: errors.New("provider rejected")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := models.ForeignItem{LocalID: "L1", URL: "https://example.com/note"}
			_, stamped, err := NewStamper().Stamp(context.Background(), tt.w, &item, "h1")
			if !errors.Is(err, apperrors.ErrStampCommit) {
				t.Fatalf("expected ErrStampCommit, got %v", err)
			}
			if stamped {
				t.Error("stamped must be false on failure")
			}
			if item.URL != "https://example.com/note" {
				t.Errorf("item URL not restored: %q", item.URL)
			}
		})
	}
}

func TestUnstamp(t *testing.T) {
	w := &fakeWriter{}
	item := models.ForeignItem{LocalID: "L1", URL: StampURL("tok-1", "h1")}

	cleared, err := NewStamper().Unstamp(context.Background(), w, &item)
	if err != nil || !cleared {
		t.Fatalf("Unstamp() = %v, %v; want true, nil", cleared, err)
	}
	if item.URL != "" || w.commits != 1 {
		t.Errorf("item URL %q, commits %d", item.URL, w.commits)
	}

	cleared, err = NewStamper().Unstamp(context.Background(), w, &item)
	if err != nil || cleared {
		t.Errorf("second Unstamp() = %v, %v; want false, nil", cleared, err)
	}

	failing := &fakeWriter{commitErr: errors.New("provider rejected")}
	item.URL = StampURL("tok-2", "h1")
	if _, err := NewStamper().Unstamp(context.Background(), failing, &item); !errors.Is(err, apperrors.ErrStampCommit) {
		t.Fatalf("expected ErrStampCommit, got %v", err)
	}
	if item.URL != StampURL("tok-2", "h1") {
		t.Errorf("stamp not restored: %q", item.URL)
	}
}

func TestStampKeepsExistingURL(t *testing.T) {
	s := NewStamper()
	s.newToken = func() string { return "tok-1" }
	w := &fakeWriter{}
	item := models.ForeignItem{LocalID: "L1", URL: "https://example.com/note?id=7&x=1"}

	if _, _, err := s.Stamp(context.Background(), w, &item, "h1"); err != nil {
		t.Fatalf("Stamp error: %v", err)
	}
	if got, habit, ok := ParseStampURL(item.URL); !ok || got != "tok-1" || habit != "h1" {
		t.Fatalf("item URL not stamped: %q", item.URL)
	}
	if Normalize(item.URL) != "tok-1" {
		t.Errorf("Normalize(%q) = %q, want tok-1", item.URL, Normalize(item.URL))
	}
	if got := PreviousURL(item.URL); got != "https://example.com/note?id=7&x=1" {
		t.Errorf("PreviousURL() = %q", got)
	}

	if _, err := s.Unstamp(context.Background(), w, &item); err != nil {
		t.Fatalf("Unstamp error: %v", err)
	}
	if item.URL != "https://example.com/note?id=7&x=1" {
		t.Errorf("original URL not restored: %q", item.URL)
	}
}

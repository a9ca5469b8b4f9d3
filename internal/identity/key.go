// Package identity turns reminders into comparable identity keys.
//
// The reminders provider has no durable identifier contract, and links were
// stored under several prefixing schemes over time. Every comparison goes
// through Normalize so that old and new representations of the same reminder
// compare equal.
package identity

import (
	"net/url"
	"strings"

	"github.com/julianstephens/habitlink/internal/constants"
)

// Kind tags which strategy produced a key.
type Kind int

const (
	KindStamp Kind = iota
	KindExternal
	KindLocal
	KindTitleList
)

func (k Kind) String() string {
	switch k {
	case KindStamp:
		return "stamp"
	case KindExternal:
		return "external"
	case KindLocal:
		return "local"
	case KindTitleList:
		return "title-list"
	default:
		return "unknown"
	}
}

// Key is a normalized identity for one reminder.
type Key struct {
	Kind  Kind
	Value string
}

func (k Key) String() string { return k.Value }

// titleListSep joins title and list in composite keys.
const titleListSep = "::"

// legacyPrefixes lists every prefix the link table has ever used, matched
// case-insensitively. Order does not matter; stripping repeats until none match.
var legacyPrefixes = []string{
	"stamp:",
	"token:",
	"habit-token:",
	"ext:",
	"external:",
	"ek:",
	"local:",
	"rem:",
	"reminder:",
	"tl:",
}

// Normalize maps any stored or freshly resolved key to its canonical form.
func Normalize(stored string) string {
	s := strings.TrimSpace(stored)
	if s == "" {
		return ""
	}
	if token, _, ok := ParseStampURL(s); ok {
		return token
	}

	for {
		stripped := false
		lower := strings.ToLower(s)
		for _, p := range legacyPrefixes {
			if strings.HasPrefix(lower, p) {
				s = strings.TrimSpace(s[len(p):])
				stripped = true
				break
			}
		}
		if !stripped {
			break
		}
	}

	if token, _, ok := ParseStampURL(s); ok {
		return token
	}
	if title, list, ok := strings.Cut(s, titleListSep); ok {
		return TitleListKey(title, list)
	}
	return s
}

// TitleListKey builds the composite fallback key for reminders with no id.
func TitleListKey(title, list string) string {
	t := normalizeText(title)
	if t == "" {
		return ""
	}
	return t + titleListSep + normalizeText(list)
}

func normalizeText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// StampURL renders the value written into a reminder's URL field.
func StampURL(token, habitID string) string {
	return stampURL(token, habitID, "")
}

func stampURL(token, habitID, previous string) string {
	u := url.URL{
		Scheme: constants.StampScheme,
		Host:   constants.StampHost,
		Path:   "/" + token,
	}
	q := url.Values{}
	if habitID != "" {
		q.Set(constants.StampHabitParam, habitID)
	}
	if previous != "" {
		q.Set(constants.StampPrevParam, previous)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// PreviousURL returns the URL a stamped reminder carried before it was
// stamped, or "" when there was none.
func PreviousURL(raw string) string {
	if _, _, ok := ParseStampURL(raw); !ok {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Query().Get(constants.StampPrevParam)
}

// ParseStampURL extracts the token and optional habit id from a stamp URL.
// Both habitlink://link/<token>?habit=<id> and the older habitlink://<token>
// are accepted.
func ParseStampURL(raw string) (token, habitID string, ok bool) {
	if !strings.HasPrefix(strings.ToLower(raw), constants.StampScheme+"://") {
		return "", "", false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", false
	}

	if u.Host == constants.StampHost {
		token = strings.Trim(u.Path, "/")
	} else {
		token = u.Host
	}
	if token == "" {
		return "", "", false
	}
	return token, u.Query().Get(constants.StampHabitParam), true
}

// KeySet is a set of normalized keys.
type KeySet map[string]struct{}

// NewKeySet normalizes and collects keys, dropping empties.
func NewKeySet(keys ...string) KeySet {
	s := make(KeySet, len(keys))
	for _, k := range keys {
		s.Add(k)
	}
	return s
}

// Add normalizes k and inserts it.
func (s KeySet) Add(k string) {
	if n := Normalize(k); n != "" {
		s[n] = struct{}{}
	}
}

// Has reports whether the normalized form of k is present.
func (s KeySet) Has(k string) bool {
	_, ok := s[Normalize(k)]
	return ok
}

// Len returns the number of keys
func (s KeySet) Len() int { return len(s) }

// Intersects reports whether any of the stored keys is in the set.
func (s KeySet) Intersects(stored []string) bool {
	for _, k := range stored {
		if s.Has(k) {
			return true
		}
	}
	return false
}

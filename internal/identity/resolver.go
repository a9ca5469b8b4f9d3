package identity

import (
	"github.com/julianstephens/habitlink/internal/models"
)

// Strategy extracts one kind of raw identity from a reminder. An empty
// result means the strategy does not apply.
type Strategy struct {
	Kind    Kind
	Extract func(item models.ForeignItem) string
}

// DefaultStrategies in priority order: the app-owned stamp token, the
// provider's external id, the provider's local id, and finally the
// title+list composite for recurring reminders with no id at all.
var DefaultStrategies = []Strategy{
	{Kind: KindStamp, Extract: stampToken},
	{Kind: KindExternal, Extract: func(i models.ForeignItem) string { return i.ExternalID }},
	{Kind: KindLocal, Extract: func(i models.ForeignItem) string { return i.LocalID }},
	{Kind: KindTitleList, Extract: titleList},
}

func stampToken(i models.ForeignItem) string {
	token, _, ok := ParseStampURL(i.URL)
	if !ok {
		return ""
	}
	return token
}

// titleList only applies to recurring reminders. It can match two distinct
// reminders that share a title in the same list.
func titleList(i models.ForeignItem) string {
	if !i.IsRecurring() {
		return ""
	}
	return TitleListKey(i.Title, i.ListName)
}

// Resolver tries strategies in order and keeps the first hit.
type Resolver struct {
	strategies []Strategy
}

// NewResolver returns a resolver over the given strategies, or
// DefaultStrategies when none are given.
func NewResolver(strategies ...Strategy) *Resolver {
	if len(strategies) == 0 {
		strategies = DefaultStrategies
	}
	return &Resolver{strategies: strategies}
}

// Resolve returns the highest-priority key for item. Lower-priority kinds are
// never returned alongside it.
func (r *Resolver) Resolve(item models.ForeignItem) (Key, bool) {
	for _, s := range r.strategies {
		if v := Normalize(s.Extract(item)); v != "" {
			return Key{Kind: s.Kind, Value: v}, true
		}
	}
	return Key{}, false
}

// Keys is the set form of Resolve: empty or a single key.
func (r *Resolver) Keys(item models.ForeignItem) KeySet {
	set := make(KeySet, 1)
	if k, ok := r.Resolve(item); ok {
		set[k.Value] = struct{}{}
	}
	return set
}

// AllKeys returns the key of every applicable strategy, in priority order.
// Links record all of them so a later fetch matches whichever one the
// reminder still exposes.
func (r *Resolver) AllKeys(item models.ForeignItem) []Key {
	var out []Key
	seen := make(map[string]struct{})
	for _, s := range r.strategies {
		v := Normalize(s.Extract(item))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, Key{Kind: s.Kind, Value: v})
	}
	return out
}

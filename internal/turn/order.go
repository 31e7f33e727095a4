// Package turn sequences solo participants and groups into one ordered
// turn list and owns the round and active-entry transitions.
package turn

import (
	"cmp"
	"math"
	"slices"

	"github.com/Iron-Ham/initiative/internal/group"
	"github.com/Iron-Ham/initiative/internal/model"
)

// Kind distinguishes solo entries from group entries.
type Kind string

const (
	KindSolo  Kind = "solo"
	KindGroup Kind = "group"
)

// Entry is one slot in the turn order.
type Entry struct {
	Kind       Kind
	ID         string // participant ID or group ID
	Name       string
	Initiative float64
	Active     bool
	// MemberIDs are the participants the entry activates. A solo entry
	// lists only itself.
	MemberIDs []string
}

// Bucket is the integer part of the initiative.
func (e Entry) Bucket() int {
	return int(math.Floor(e.Initiative))
}

// Order builds the turn sequence from a snapshot. Tracked ungrouped
// participants and non-staged groups with at least one member are merged
// and sorted by integer initiative descending, then fractional part
// ascending, then name, then ID.
func Order(snapshot []model.Participant) []Entry {
	var entries []Entry

	for _, g := range group.Derive(snapshot) {
		if g.Staged || len(g.Members) == 0 {
			continue
		}
		entries = append(entries, Entry{
			Kind:       KindGroup,
			ID:         g.ID,
			Name:       g.Name,
			Initiative: float64(g.Initiative),
			Active:     g.Active,
			MemberIDs:  g.Members,
		})
	}

	for _, p := range snapshot {
		if !p.InTracker || p.Grouped() {
			continue
		}
		entries = append(entries, Entry{
			Kind:       KindSolo,
			ID:         p.ID,
			Name:       p.Name,
			Initiative: p.Initiative,
			Active:     p.Active,
			MemberIDs:  []string{p.ID},
		})
	}

	slices.SortStableFunc(entries, compareEntries)
	return entries
}

func compareEntries(a, b Entry) int {
	if c := cmp.Compare(b.Bucket(), a.Bucket()); c != 0 {
		return c
	}
	fa := a.Initiative - float64(a.Bucket())
	fb := b.Initiative - float64(b.Bucket())
	if c := cmp.Compare(fa, fb); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Name, b.Name); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// ActiveIndex returns the index of the first active entry, or -1.
func ActiveIndex(entries []Entry) int {
	return slices.IndexFunc(entries, func(e Entry) bool { return e.Active })
}

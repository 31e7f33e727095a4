// Package group derives group aggregates from participant metadata.
//
// Groups are never stored. A group exists while at least one tracked
// participant references its ID and is recomputed from a snapshot on every
// read, so there are no back-links to invalidate.
package group

import "github.com/Iron-Ham/initiative/internal/model"

// Group is the aggregate of every tracked participant sharing a group ID.
type Group struct {
	ID   string
	Name string
	// Initiative is the highest integer initiative among the members.
	Initiative int
	// Active is true when any member is active.
	Active bool
	// Staged is true when any member is staged.
	Staged  bool
	Members []string
}

// Derive computes group aggregates in one pass over the snapshot.
// Participants outside the tracker are ignored. Groups are returned in
// order of first appearance.
func Derive(snapshot []model.Participant) []Group {
	var groups []Group
	index := make(map[string]int)

	for _, p := range snapshot {
		if !p.InTracker || !p.Grouped() {
			continue
		}

		bucket := p.Bucket()
		i, ok := index[p.GroupID]
		if !ok {
			index[p.GroupID] = len(groups)
			groups = append(groups, Group{
				ID:         p.GroupID,
				Initiative: bucket,
			})
			i = len(groups) - 1
		}

		g := &groups[i]
		if bucket > g.Initiative {
			g.Initiative = bucket
		}
		g.Active = g.Active || p.Active
		g.Staged = g.Staged || p.GroupStaged
		if p.GroupName != "" {
			g.Name = p.GroupName
		}
		g.Members = append(g.Members, p.ID)
	}

	for i := range groups {
		if groups[i].Name == "" {
			groups[i].Name = groups[i].ID
		}
	}
	return groups
}

// Members returns the IDs of the tracked participants in a group.
func Members(snapshot []model.Participant, groupID string) []string {
	if groupID == "" {
		return nil
	}
	var ids []string
	for _, p := range snapshot {
		if p.InTracker && p.GroupID == groupID {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// Find returns the group with the given ID.
func Find(groups []Group, id string) (Group, bool) {
	for _, g := range groups {
		if g.ID == id {
			return g, true
		}
	}
	return Group{}, false
}

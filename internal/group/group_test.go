package group

import (
	"slices"
	"testing"

	"github.com/Iron-Ham/initiative/internal/model"
)

func member(id, group string, initiative float64) model.Participant {
	return model.Participant{ID: id, Name: id, GroupID: group, Initiative: initiative, InTracker: true}
}

func TestDerive_Aggregate(t *testing.T) {
	snapshot := []model.Participant{
		member("g1", "G", 12.00),
		member("g2", "G", 12.02),
		member("g3", "G", 12.01),
	}

	tests := []struct {
		name       string
		activeIdx  int
		wantActive bool
	}{
		{"no member active", -1, false},
		{"one member active", 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := model.CloneAll(snapshot)
			if tt.activeIdx >= 0 {
				snap[tt.activeIdx].Active = true
			}

			groups := Derive(snap)
			if len(groups) != 1 {
				t.Fatalf("got %d groups, want 1", len(groups))
			}
			g := groups[0]
			if g.ID != "G" || g.Initiative != 12 {
				t.Errorf("group = %+v, want G at 12", g)
			}
			if g.Active != tt.wantActive {
				t.Errorf("Active = %v, want %v", g.Active, tt.wantActive)
			}
			if !slices.Equal(g.Members, []string{"g1", "g2", "g3"}) {
				t.Errorf("Members = %v", g.Members)
			}
		})
	}
}

func TestDerive_MaxOfMembers(t *testing.T) {
	groups := Derive([]model.Participant{
		member("a", "G", 9.5),
		member("b", "G", 14.2),
		member("c", "G", 11),
	})
	if groups[0].Initiative != 14 {
		t.Errorf("Initiative = %d, want 14", groups[0].Initiative)
	}
}

func TestDerive_SkipsUntracked(t *testing.T) {
	untracked := member("x", "G", 20)
	untracked.InTracker = false

	groups := Derive([]model.Participant{untracked, member("y", "G", 3)})
	if len(groups) != 1 || groups[0].Initiative != 3 || len(groups[0].Members) != 1 {
		t.Errorf("unexpected groups %+v", groups)
	}

	if got := Derive([]model.Participant{untracked}); len(got) != 0 {
		t.Errorf("group with only untracked members should vanish, got %+v", got)
	}
}

func TestDerive_StagedAndName(t *testing.T) {
	a := member("a", "G", 5)
	a.GroupName = "Wolves"
	b := member("b", "G", 5)
	b.GroupStaged = true
	c := member("c", "G", 5)
	c.GroupName = "Dire Wolves"

	g := Derive([]model.Participant{a, b, c})[0]
	if !g.Staged {
		t.Error("any staged member stages the group")
	}
	if g.Name != "Dire Wolves" {
		t.Errorf("Name = %q, want last non-empty name", g.Name)
	}
}

func TestDerive_FirstAppearanceOrder(t *testing.T) {
	groups := Derive([]model.Participant{
		member("a", "B", 1),
		member("b", "A", 20),
		member("c", "B", 1),
		{ID: "solo", InTracker: true},
	})

	var ids []string
	for _, g := range groups {
		ids = append(ids, g.ID)
	}
	if !slices.Equal(ids, []string{"B", "A"}) {
		t.Errorf("group order = %v", ids)
	}
	if groups[1].Name != "A" {
		t.Errorf("unnamed group should fall back to its ID, got %q", groups[1].Name)
	}
}

func TestMembers(t *testing.T) {
	snapshot := []model.Participant{
		member("a", "G", 1),
		member("b", "H", 1),
		member("c", "G", 1),
	}
	if got := Members(snapshot, "G"); !slices.Equal(got, []string{"a", "c"}) {
		t.Errorf("Members = %v", got)
	}
	if got := Members(snapshot, ""); got != nil {
		t.Errorf("empty group ID should have no members, got %v", got)
	}

	if _, ok := Find(Derive(snapshot), "H"); !ok {
		t.Error("Find should locate H")
	}
}

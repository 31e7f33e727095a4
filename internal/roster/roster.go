// Package roster loads and saves encounter rosters as YAML.
//
// A roster lists the participants of an encounter, optionally organized in
// groups. Importing a roster adds every participant to the tracker; group
// membership is carried on the participant records, so groups need no
// separate storage.
package roster

import (
	"context"
	"fmt"
	"math"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/initiative/internal/group"
	"github.com/Iron-Ham/initiative/internal/model"
)

// Version is the roster file format version.
const Version = "1"

// File is a roster definition.
type File struct {
	// Name is the encounter's display name (e.g., "Goblin Ambush").
	Name string `yaml:"name"`
	// Version is the roster file format version (currently "1").
	Version string `yaml:"version"`
	// Participants are the ungrouped combatants.
	Participants []model.Participant `yaml:"participants,omitempty"`
	// Groups are combatants that share a turn.
	Groups []Group `yaml:"groups,omitempty"`
}

// Group is a named set of participants taking one turn together.
type Group struct {
	ID      string              `yaml:"id"`
	Name    string              `yaml:"name,omitempty"`
	Staged  bool                `yaml:"staged,omitempty"`
	Members []model.Participant `yaml:"members"`
}

var hexColorRegex = regexp.MustCompile(`^#([0-9A-Fa-f]{3}|[0-9A-Fa-f]{6})$`)

// LoadFile reads and validates a roster from a YAML file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading roster file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a roster.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing roster file: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("invalid roster: %w", err)
	}
	return &f, nil
}

// Validate checks that the roster is well-formed.
func (f *File) Validate() error {
	if f.Version == "" {
		return fmt.Errorf("roster version is required")
	}
	if f.Version != Version {
		return fmt.Errorf("unsupported roster version: %s (supported: %s)", f.Version, Version)
	}
	if len(f.Participants) == 0 && len(f.Groups) == 0 {
		return fmt.Errorf("roster has no participants")
	}

	for i, p := range f.Participants {
		if err := validateParticipant(p); err != nil {
			return fmt.Errorf("participants[%d]: %w", i, err)
		}
	}

	seen := make(map[string]bool, len(f.Groups))
	for i, g := range f.Groups {
		if g.ID == "" {
			return fmt.Errorf("groups[%d]: id is required", i)
		}
		if seen[g.ID] {
			return fmt.Errorf("groups[%d]: duplicate group id %q", i, g.ID)
		}
		seen[g.ID] = true
		if len(g.Members) == 0 {
			return fmt.Errorf("group %q has no members", g.ID)
		}
		for j, p := range g.Members {
			if err := validateParticipant(p); err != nil {
				return fmt.Errorf("group %q members[%d]: %w", g.ID, j, err)
			}
		}
	}
	return nil
}

func validateParticipant(p model.Participant) error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if math.IsNaN(p.Initiative) || math.IsInf(p.Initiative, 0) {
		return fmt.Errorf("initiative must be a finite number")
	}
	for name, v := range map[string]float64{"size": p.Size, "movement": p.Movement, "attack_range": p.AttackRange} {
		if v < 0 {
			return fmt.Errorf("%s must be non-negative, got %g", name, v)
		}
	}
	if p.Rings.Mode != "" && !p.Rings.Mode.Valid() {
		return fmt.Errorf("unknown ring mode %q", p.Rings.Mode)
	}
	switch p.Rings.Attachment {
	case "", model.AttachPinned, model.AttachPlaced:
	default:
		return fmt.Errorf("unknown ring attachment %q", p.Rings.Attachment)
	}
	for name, color := range map[string]string{"movement": p.Rings.Movement.Color, "attack": p.Rings.Attack.Color} {
		if color != "" && !hexColorRegex.MatchString(color) {
			return fmt.Errorf("ring color '%s' has invalid format: %s (expected #RGB or #RRGGBB)", name, color)
		}
	}
	return nil
}

// Flatten flattens the roster into participant records carrying
// their group membership.
func (f *File) Flatten() []model.Participant {
	out := make([]model.Participant, 0, len(f.Participants))
	for _, p := range f.Participants {
		out = append(out, p.Clone())
	}
	for _, g := range f.Groups {
		for _, m := range g.Members {
			p := m.Clone()
			p.GroupID = g.ID
			p.GroupName = g.Name
			p.GroupStaged = g.Staged
			out = append(out, p)
		}
	}
	return out
}

// Adder adds a participant and returns its ID, or "" on failure.
type Adder interface {
	AddParticipant(ctx context.Context, p model.Participant) string
}

// Import adds every roster participant and returns the IDs that were added.
func Import(ctx context.Context, to Adder, f *File) []string {
	var ids []string
	for _, p := range f.Flatten() {
		if err := ctx.Err(); err != nil {
			break
		}
		if id := to.AddParticipant(ctx, p); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// FromSnapshot builds a roster from the tracked participants of a
// snapshot. Grouped participants are listed under their group.
func FromSnapshot(name string, snapshot []model.Participant) *File {
	f := &File{Name: name, Version: Version}

	tracked := make([]model.Participant, 0, len(snapshot))
	for _, p := range snapshot {
		if !p.InTracker {
			continue
		}
		p = p.Clone()
		p.Active = false
		tracked = append(tracked, p)
	}

	for _, g := range group.Derive(tracked) {
		f.Groups = append(f.Groups, Group{ID: g.ID, Name: g.Name, Staged: g.Staged})
	}
	index := make(map[string]int, len(f.Groups))
	for i, g := range f.Groups {
		index[g.ID] = i
	}

	for _, p := range tracked {
		if !p.Grouped() {
			f.Participants = append(f.Participants, p)
			continue
		}
		g := &f.Groups[index[p.GroupID]]
		p.GroupID, p.GroupName, p.GroupStaged = "", "", false
		g.Members = append(g.Members, p)
	}
	return f
}

// Save writes the roster to path as YAML.
func (f *File) Save(path string) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshaling roster: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing roster file: %w", err)
	}
	return nil
}

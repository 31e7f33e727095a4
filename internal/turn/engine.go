package turn

import (
	"context"

	"github.com/Iron-Ham/initiative/internal/errors"
	"github.com/Iron-Ham/initiative/internal/logging"
	"github.com/Iron-Ham/initiative/internal/model"
	"github.com/Iron-Ham/initiative/internal/store"
)

// Command names a turn transition.
type Command string

const (
	CommandStart Command = "start"
	CommandNext  Command = "next"
	CommandPrev  Command = "prev"
	CommandEnd   Command = "end"
)

// State is the turn order together with the round bookkeeping.
type State struct {
	Round       int
	Started     bool
	ActiveIndex int // -1 when nothing is active
	Entries     []Entry
}

// Active returns the active entry, if any.
func (s State) Active() (Entry, bool) {
	if s.ActiveIndex < 0 || s.ActiveIndex >= len(s.Entries) {
		return Entry{}, false
	}
	return s.Entries[s.ActiveIndex], true
}

// ActiveMembers returns the participant IDs of the active entry.
func (s State) ActiveMembers() []string {
	e, ok := s.Active()
	if !ok {
		return nil
	}
	return e.MemberIDs
}

// Engine applies turn transitions to the participant document.
//
// Every transition issues at most one BatchPatch covering exactly the
// records whose active flag changes, plus one encounter record patch when
// the round bookkeeping changes. All transitions are no-ops on an empty
// turn order.
type Engine struct {
	entities store.EntityStore
	logger   *logging.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *logging.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates a turn engine over the participant document.
func NewEngine(entities store.EntityStore, opts ...EngineOption) *Engine {
	e := &Engine{
		entities: entities,
		logger:   logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State reads the current turn state without changing anything.
func (e *Engine) State(ctx context.Context) (State, error) {
	snapshot, enc, err := e.read(ctx)
	if err != nil {
		return State{}, err
	}
	entries := Order(snapshot)
	return State{
		Round:       enc.Round,
		Started:     enc.Started,
		ActiveIndex: ActiveIndex(entries),
		Entries:     entries,
	}, nil
}

// Start activates the first entry and sets round 1.
func (e *Engine) Start(ctx context.Context) (State, error) {
	return e.apply(ctx, CommandStart, func(int, int, model.Encounter) (int, model.Encounter) {
		return 0, model.Encounter{Round: 1, Started: true}
	})
}

// Next activates the following entry. Wrapping past the last entry from a
// real active entry starts a new round.
func (e *Engine) Next(ctx context.Context) (State, error) {
	return e.apply(ctx, CommandNext, func(prev, n int, enc model.Encounter) (int, model.Encounter) {
		round := max(enc.Round, 1)
		if prev < 0 {
			return 0, model.Encounter{Round: round, Started: true}
		}
		idx := (prev + 1) % n
		if idx == 0 {
			round++
		}
		return idx, model.Encounter{Round: round, Started: true}
	})
}

// Prev activates the preceding entry. Rewinding from the first entry
// wraps to the last and steps the round back, never below 1.
func (e *Engine) Prev(ctx context.Context) (State, error) {
	return e.apply(ctx, CommandPrev, func(prev, n int, enc model.Encounter) (int, model.Encounter) {
		round := max(enc.Round, 1)
		if prev < 0 {
			return n - 1, model.Encounter{Round: round, Started: true}
		}
		idx := (prev - 1 + n) % n
		if prev == 0 {
			round = max(1, round-1)
		}
		return idx, model.Encounter{Round: round, Started: true}
	})
}

// End clears every active flag and resets the round. Clearing the turn
// rings is left to the caller.
func (e *Engine) End(ctx context.Context) (State, error) {
	return e.apply(ctx, CommandEnd, func(int, int, model.Encounter) (int, model.Encounter) {
		return -1, model.Encounter{}
	})
}

type transition func(prev, n int, enc model.Encounter) (next int, result model.Encounter)

func (e *Engine) apply(ctx context.Context, cmd Command, next transition) (State, error) {
	snapshot, enc, err := e.read(ctx)
	if err != nil {
		return State{}, err
	}

	entries := Order(snapshot)
	prev := ActiveIndex(entries)
	if len(entries) == 0 {
		e.logger.Debug("turn command ignored on empty order", "command", string(cmd))
		return State{Round: enc.Round, Started: enc.Started, ActiveIndex: -1}, nil
	}

	idx, result := next(prev, len(entries), enc)

	want := make(map[string]bool)
	if idx >= 0 {
		for _, id := range entries[idx].MemberIDs {
			want[id] = true
		}
	}

	var changed []string
	for _, p := range snapshot {
		if p.Active != want[p.ID] {
			changed = append(changed, p.ID)
		}
	}

	if len(changed) > 0 {
		err := e.entities.BatchPatch(ctx, changed, func(p *model.Participant) {
			p.Active = want[p.ID]
		})
		if err != nil {
			return State{}, errors.Wrapf(err, "turn %s: patch active flags", cmd)
		}
	}

	if result != enc {
		err := e.entities.PatchEncounter(ctx, func(r *model.Encounter) {
			*r = result
		})
		if err != nil {
			return State{}, errors.Wrapf(err, "turn %s: patch encounter", cmd)
		}
	}

	for i := range entries {
		entries[i].Active = i == idx
	}

	e.logger.Debug("turn command applied",
		"command", string(cmd),
		"round", result.Round,
		"active_index", idx,
		"patched", len(changed),
	)

	return State{
		Round:       result.Round,
		Started:     result.Started,
		ActiveIndex: idx,
		Entries:     entries,
	}, nil
}

func (e *Engine) read(ctx context.Context) ([]model.Participant, model.Encounter, error) {
	snapshot, err := e.entities.Participants(ctx)
	if err != nil {
		return nil, model.Encounter{}, errors.Wrap(err, "read participants")
	}
	enc, err := e.entities.Encounter(ctx)
	if err != nil {
		return nil, model.Encounter{}, errors.Wrap(err, "read encounter")
	}
	return snapshot, enc, nil
}

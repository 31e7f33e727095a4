package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/initiative/internal/errors"
	"github.com/Iron-Ham/initiative/internal/model"
)

var addCmd = &cobra.Command{
	Use:   "add <name> <initiative>",
	Short: "Add a participant to the encounter",
	Long: `Add a participant to the turn order.

Distances are in game units (feet by default). Player-controlled
participants get movement and attack rings while it is their turn.

Examples:
  initiative add Aria 18 --pc --move 30 --reach 60
  initiative add "Goblin 1" 12 --group goblins --group-name Goblins`,
	Args: cobra.ExactArgs(2),
	RunE: runAdd,
}

var removeCmd = &cobra.Command{
	Use:     "remove <participant>",
	Aliases: []string{"rm"},
	Short:   "Remove a participant from the turn order",
	Long:    `Remove a participant from the turn order. The record stays on the map.`,
	Args:    cobra.ExactArgs(1),
	RunE:    runRemove,
}

var rollCmd = &cobra.Command{
	Use:   "roll <participant> <initiative>",
	Short: "Set a participant's initiative",
	Args:  cobra.ExactArgs(2),
	RunE:  runRoll,
}

var (
	addPC        bool
	addSize      float64
	addMove      float64
	addReach     float64
	addTouch     bool
	addGroup     string
	addGroupName string
	addID        string
	addHidden    bool
)

func init() {
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(rollCmd)

	addCmd.Flags().BoolVar(&addPC, "pc", false, "Player-controlled participant")
	addCmd.Flags().Float64Var(&addSize, "size", 5, "Footprint diameter in game units")
	addCmd.Flags().Float64Var(&addMove, "move", 30, "Movement distance in game units")
	addCmd.Flags().Float64Var(&addReach, "reach", 5, "Attack range in game units")
	addCmd.Flags().BoolVar(&addTouch, "touch", false, "Melee attacker using the touch range")
	addCmd.Flags().StringVar(&addGroup, "group", "", "Group ID to join")
	addCmd.Flags().StringVar(&addGroupName, "group-name", "", "Group display name (defaults to the group ID)")
	addCmd.Flags().StringVar(&addID, "id", "", "Participant ID (generated when empty)")
	addCmd.Flags().BoolVar(&addHidden, "hidden", false, "Hide the participant from players")
}

func runAdd(cmd *cobra.Command, args []string) error {
	initiative, err := parseInitiative(args[1])
	if err != nil {
		return err
	}

	p := model.Participant{
		ID:               addID,
		Name:             args[0],
		Initiative:       initiative,
		Visible:          !addHidden,
		PlayerControlled: addPC,
		Size:             addSize,
		Movement:         addMove,
		AttackRange:      addReach,
		Touch:            addTouch,
	}
	if addGroup != "" {
		p.GroupID = addGroup
		p.GroupName = addGroupName
		if p.GroupName == "" {
			p.GroupName = addGroup
		}
	}

	return withEnv(cmd, false, func(ctx context.Context, e *env) error {
		id := e.tracker.AddParticipant(ctx, p)
		if id == "" {
			return e.Failed()
		}
		e.printer(cmd).success("Added %s (%s)", p.Name, id)
		return nil
	})
}

func runRemove(cmd *cobra.Command, args []string) error {
	return withEnv(cmd, false, func(ctx context.Context, e *env) error {
		p, err := e.resolve(ctx, args[0])
		if err != nil {
			return err
		}
		e.tracker.RemoveParticipant(ctx, p.ID)
		if err := e.Failed(); err != nil {
			return err
		}
		e.printer(cmd).success("Removed %s", p.Name)
		return nil
	})
}

func runRoll(cmd *cobra.Command, args []string) error {
	initiative, err := parseInitiative(args[1])
	if err != nil {
		return err
	}
	return withEnv(cmd, false, func(ctx context.Context, e *env) error {
		p, err := e.resolve(ctx, args[0])
		if err != nil {
			return err
		}
		e.tracker.SetInitiative(ctx, p.ID, initiative)
		if err := e.Failed(); err != nil {
			return err
		}
		e.printer(cmd).success("%s rolled %g", p.Name, initiative)
		return nil
	})
}

func parseInitiative(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.NewValidationError("initiative must be a number").WithField("initiative").WithValue(s)
	}
	return v, nil
}

// resolve finds a participant by ID, or by name when the name is unique.
func (e *env) resolve(ctx context.Context, ref string) (model.Participant, error) {
	snapshot := e.tracker.Participants(ctx)
	for _, p := range snapshot {
		if p.ID == ref {
			return p, nil
		}
	}

	var matches []model.Participant
	for _, p := range snapshot {
		if strings.EqualFold(p.Name, ref) {
			matches = append(matches, p)
		}
	}
	switch len(matches) {
	case 0:
		return model.Participant{}, errors.NewNotFoundError("participant", ref)
	case 1:
		return matches[0], nil
	default:
		return model.Participant{}, errors.NewValidationError(
			fmt.Sprintf("%d participants are named %q; use an ID", len(matches), ref),
		).WithField("participant").WithValue(ref)
	}
}

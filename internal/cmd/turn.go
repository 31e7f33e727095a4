package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/initiative/internal/turn"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the encounter at round 1",
	Long: `Start the encounter: round 1 begins with the first entry of the turn
order. Rings are drawn for the active player-controlled participants.`,
	Args: cobra.NoArgs,
	RunE: turnRunner(func(ctx context.Context, e *env) turn.State { return e.tracker.StartTurn(ctx) }),
}

var nextCmd = &cobra.Command{
	Use:     "next",
	Aliases: []string{"n"},
	Short:   "Advance to the next turn",
	Long:    `Advance to the next entry of the turn order, wrapping into a new round.`,
	Args:    cobra.NoArgs,
	RunE:    turnRunner(func(ctx context.Context, e *env) turn.State { return e.tracker.NextTurn(ctx) }),
}

var prevCmd = &cobra.Command{
	Use:     "prev",
	Aliases: []string{"p"},
	Short:   "Go back to the previous turn",
	Args:    cobra.NoArgs,
	RunE:    turnRunner(func(ctx context.Context, e *env) turn.State { return e.tracker.PrevTurn(ctx) }),
}

var endCmd = &cobra.Command{
	Use:   "end",
	Short: "End the encounter",
	Long:  `End the encounter: nobody is active, the round resets and turn rings are removed.`,
	Args:  cobra.NoArgs,
	RunE:  turnRunner(func(ctx context.Context, e *env) turn.State { return e.tracker.EndTurn(ctx) }),
}

var orderCmd = &cobra.Command{
	Use:     "order",
	Aliases: []string{"status", "ls"},
	Short:   "Show the turn order",
	Args:    cobra.NoArgs,
	RunE:    runOrder,
}

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(nextCmd)
	rootCmd.AddCommand(prevCmd)
	rootCmd.AddCommand(endCmd)
	rootCmd.AddCommand(orderCmd)
}

// turnRunner runs a turn command and prints the resulting order.
func turnRunner(run func(context.Context, *env) turn.State) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return withEnv(cmd, false, func(ctx context.Context, e *env) error {
			st := run(ctx, e)
			if err := e.Failed(); err != nil {
				return err
			}
			e.printer(cmd).state(st, e.tracker.Participants(ctx), e.tracker.Grid())
			return nil
		})
	}
}

func runOrder(cmd *cobra.Command, args []string) error {
	return withEnv(cmd, false, func(ctx context.Context, e *env) error {
		e.printer(cmd).state(e.tracker.State(ctx), e.tracker.Participants(ctx), e.tracker.Grid())
		return e.Failed()
	})
}

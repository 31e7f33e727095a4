package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Manage participant groups",
	Long: `Groups take a single turn together. A group's initiative is the highest
initiative among its members. Staged groups are held out of the turn order
until they are unstaged.`,
}

var groupAssignCmd = &cobra.Command{
	Use:   "assign <group-id> <participant>...",
	Short: "Put participants in a group",
	Long: `Put participants in a group, creating it if needed. An empty group ID
("") takes the participants out of their group.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runGroupAssign,
}

var groupStageCmd = &cobra.Command{
	Use:   "stage <group-id>",
	Short: "Hold a group out of the turn order",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return runGroupStaged(cmd, args[0], true) },
}

var groupUnstageCmd = &cobra.Command{
	Use:   "unstage <group-id>",
	Short: "Return a staged group to the turn order",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return runGroupStaged(cmd, args[0], false) },
}

var groupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List groups",
	Args:  cobra.NoArgs,
	RunE:  runGroupList,
}

var groupName string

func init() {
	rootCmd.AddCommand(groupCmd)
	groupCmd.AddCommand(groupAssignCmd)
	groupCmd.AddCommand(groupStageCmd)
	groupCmd.AddCommand(groupUnstageCmd)
	groupCmd.AddCommand(groupListCmd)

	groupAssignCmd.Flags().StringVar(&groupName, "name", "", "Group display name (keeps the current name when empty)")
}

func runGroupAssign(cmd *cobra.Command, args []string) error {
	groupID := args[0]

	return withEnv(cmd, false, func(ctx context.Context, e *env) error {
		ids := make([]string, 0, len(args)-1)
		for _, ref := range args[1:] {
			p, err := e.resolve(ctx, ref)
			if err != nil {
				return err
			}
			ids = append(ids, p.ID)
		}

		e.tracker.AssignGroup(ctx, ids, groupID, groupName)
		if err := e.Failed(); err != nil {
			return err
		}
		if groupID == "" {
			e.printer(cmd).success("Ungrouped %d participant(s)", len(ids))
		} else {
			e.printer(cmd).success("Assigned %d participant(s) to %s", len(ids), groupID)
		}
		return nil
	})
}

func runGroupStaged(cmd *cobra.Command, groupID string, staged bool) error {
	return withEnv(cmd, false, func(ctx context.Context, e *env) error {
		e.tracker.SetGroupStaged(ctx, groupID, staged)
		if err := e.Failed(); err != nil {
			return err
		}
		verb := "Unstaged"
		if staged {
			verb = "Staged"
		}
		e.printer(cmd).success("%s %s", verb, groupID)
		return nil
	})
}

func runGroupList(cmd *cobra.Command, args []string) error {
	return withEnv(cmd, false, func(ctx context.Context, e *env) error {
		groups := e.tracker.Groups(ctx)
		out := cmd.OutOrStdout()
		if len(groups) == 0 {
			fmt.Fprintln(out, "No groups")
			return e.Failed()
		}
		for _, g := range groups {
			status := ""
			if g.Staged {
				status = " [staged]"
			}
			if g.Active {
				status += " [active]"
			}
			fmt.Fprintf(out, "%-12s %-20s init %-3d members %d%s\n", g.ID, g.Name, g.Initiative, len(g.Members), status)
		}
		return e.Failed()
	})
}

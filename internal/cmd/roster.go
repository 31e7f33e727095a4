package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/initiative/internal/roster"
)

var importCmd = &cobra.Command{
	Use:   "import <roster.yaml>",
	Short: "Add the participants of a roster file",
	Long: `Add every participant of a YAML roster file to the encounter.

Example roster:
  name: Goblin Ambush
  version: "1"
  participants:
    - name: Aria
      initiative: 18
      player_controlled: true
      movement: 30
      attack_range: 60
  groups:
    - id: goblins
      name: Goblins
      members:
        - name: Goblin 1
          initiative: 12`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var exportCmd = &cobra.Command{
	Use:   "export <roster.yaml>",
	Short: "Write the tracked participants to a roster file",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

var exportName string

func init() {
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportName, "name", "", "Encounter name (defaults to the file name)")
}

func runImport(cmd *cobra.Command, args []string) error {
	f, err := roster.LoadFile(args[0])
	if err != nil {
		return err
	}

	return withEnv(cmd, false, func(ctx context.Context, e *env) error {
		ids := roster.Import(ctx, e.tracker, f)
		if err := e.Failed(); err != nil {
			return fmt.Errorf("imported %d participant(s): %w", len(ids), err)
		}
		e.printer(cmd).success("Imported %d participant(s) from %s", len(ids), displayName(f.Name, args[0]))
		return nil
	})
}

func runExport(cmd *cobra.Command, args []string) error {
	name := displayName(exportName, args[0])
	return withEnv(cmd, false, func(ctx context.Context, e *env) error {
		f := roster.FromSnapshot(name, e.tracker.Participants(ctx))
		if err := e.Failed(); err != nil {
			return err
		}
		if err := f.Save(args[0]); err != nil {
			return err
		}
		e.printer(cmd).success("Exported %d participant(s) to %s", len(f.Flatten()), args[0])
		return nil
	})
}

func displayName(name, path string) string {
	if name != "" {
		return name
	}
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

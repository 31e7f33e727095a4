package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/initiative/internal/config"
	"github.com/Iron-Ham/initiative/internal/metrics"
	"github.com/Iron-Ham/initiative/internal/tui"
	"github.com/Iron-Ham/initiative/internal/tui/styles"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the encounter in an interactive view",
	Long: `Open an interactive view of the encounter. The view follows changes made
by other terminals and keeps the active participants' rings in sync.

Keys: s start, n next, p prev, e end, r sync rings, c clear rings, q quit.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

var watchTitle string

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVar(&watchTitle, "title", "", "Encounter title shown in the header")
}

func runWatch(cmd *cobra.Command, args []string) error {
	return withEnv(cmd, true, func(ctx context.Context, e *env) error {
		if e.cfg.Metrics.Addr != "" && e.registry != nil {
			srv := metrics.NewServer(e.cfg.Metrics.Addr, e.registry, e.logger)
			if err := srv.Start(); err != nil {
				return err
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()
		}

		model := tui.NewModel(e.tracker, styles.ForTheme(e.cfg.TUI.Theme), e.cfg.TUI.RefreshInterval())
		if watchTitle != "" {
			model = model.WithTitle(watchTitle)
		}
		if err := tui.New(model, e.bus).Run(); err != nil {
			return fmt.Errorf("watch view failed: %w", err)
		}

		// Failures shown in the view are not repeated on exit.
		e.resetFailures()
		return nil
	})
}

// loadCustomThemes registers the theme files in the user's config
// directory. Bad files are logged and skipped.
func (e *env) loadCustomThemes() {
	dir := filepath.Join(config.ConfigDir(), "themes")
	names, errs := styles.DiscoverCustomThemes(dir)
	for _, err := range errs {
		e.logger.Warn("skipping custom theme", "error", err.Error())
	}
	if len(names) > 0 {
		e.logger.Debug("loaded custom themes", "themes", names)
	}
}

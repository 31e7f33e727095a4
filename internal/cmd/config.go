package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/initiative/internal/config"
	"github.com/Iron-Ham/initiative/internal/tui/styles"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify initiative configuration",
	Long: `View or modify initiative configuration.

Without arguments, displays the current configuration.
Use subcommands to modify settings or create a config file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  initiative config set grid.units_per_cell 1.5
  initiative config set rings.mode movement
  initiative config set tui.theme nord

Valid keys:
  grid.units_per_cell        - Game distance per grid cell
  grid.pixels_per_cell       - Rendered size of a grid cell
  grid.unit_label            - Distance label (ft, m)
  rings.debounce_ms          - Delay before rings are reconciled
  rings.delete_poll_attempts - Polls waiting for ring deletion
  rings.delete_poll_delay_ms - Delay between deletion polls
  rings.touch_range          - Attack range of touch attackers
  rings.mode                 - Default ring mode
                               Options: off, movement, attack, both
  rings.attachment           - Default ring attachment
                               Options: pinned, placed
  store.backend              - Document store (sqlite, memory)
  store.path                 - SQLite database file
  logging.enabled            - Write a debug log (true/false)
  logging.level              - Log level (debug, info, warn, error)
  logging.dir                - Debug log directory
  tui.theme                  - Watch view color theme
  tui.refresh_ms             - Watch view refresh interval
  metrics.enabled            - Prometheus instrumentation (true/false)
  metrics.namespace          - Metric name prefix
  metrics.addr               - Address serving /metrics from watch`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/initiative/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "Current configuration:")
	fmt.Fprintln(out)

	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Config file: (none - using defaults)\n")
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "grid:")
	fmt.Fprintf(out, "  units_per_cell: %g\n", cfg.Grid.UnitsPerCell)
	fmt.Fprintf(out, "  pixels_per_cell: %g\n", cfg.Grid.PixelsPerCell)
	fmt.Fprintf(out, "  unit_label: %s\n", cfg.Grid.UnitLabel)

	fmt.Fprintln(out, "rings:")
	fmt.Fprintf(out, "  debounce_ms: %d\n", cfg.Rings.DebounceMs)
	fmt.Fprintf(out, "  delete_poll_attempts: %d\n", cfg.Rings.DeletePollAttempts)
	fmt.Fprintf(out, "  delete_poll_delay_ms: %d\n", cfg.Rings.DeletePollDelayMs)
	fmt.Fprintf(out, "  touch_range: %g\n", cfg.Rings.TouchRange)
	fmt.Fprintf(out, "  mode: %s\n", cfg.Rings.Mode)
	fmt.Fprintf(out, "  attachment: %s\n", cfg.Rings.Attachment)
	fmt.Fprintf(out, "  movement: %s %gpx %v %.2f\n", cfg.Rings.Movement.Color, cfg.Rings.Movement.Weight, cfg.Rings.Movement.Dash, cfg.Rings.Movement.Opacity)
	fmt.Fprintf(out, "  attack: %s %gpx %v %.2f\n", cfg.Rings.Attack.Color, cfg.Rings.Attack.Weight, cfg.Rings.Attack.Dash, cfg.Rings.Attack.Opacity)

	fmt.Fprintln(out, "store:")
	fmt.Fprintf(out, "  backend: %s\n", cfg.Store.Backend)
	fmt.Fprintf(out, "  path: %s\n", cfg.Store.Path)

	fmt.Fprintln(out, "logging:")
	fmt.Fprintf(out, "  enabled: %v\n", cfg.Logging.Enabled)
	fmt.Fprintf(out, "  level: %s\n", cfg.Logging.Level)
	fmt.Fprintf(out, "  dir: %s\n", cfg.Logging.Dir)

	fmt.Fprintln(out, "tui:")
	fmt.Fprintf(out, "  theme: %s\n", cfg.TUI.Theme)
	fmt.Fprintf(out, "  refresh_ms: %d\n", cfg.TUI.RefreshMs)

	fmt.Fprintln(out, "metrics:")
	fmt.Fprintf(out, "  enabled: %v\n", cfg.Metrics.Enabled)
	fmt.Fprintf(out, "  namespace: %s\n", cfg.Metrics.Namespace)
	fmt.Fprintf(out, "  addr: %s\n", cfg.Metrics.Addr)

	return nil
}

// configKeys maps settable keys to their value type.
var configKeys = map[string]string{
	"grid.units_per_cell":        "float",
	"grid.pixels_per_cell":       "float",
	"grid.unit_label":            "string",
	"rings.debounce_ms":          "int",
	"rings.delete_poll_attempts": "int",
	"rings.delete_poll_delay_ms": "int",
	"rings.touch_range":          "float",
	"rings.mode":                 "string",
	"rings.attachment":           "string",
	"store.backend":              "string",
	"store.path":                 "string",
	"logging.enabled":            "bool",
	"logging.level":              "string",
	"logging.dir":                "string",
	"tui.theme":                  "string",
	"tui.refresh_ms":             "int",
	"metrics.enabled":            "bool",
	"metrics.namespace":          "string",
	"metrics.addr":               "string",
}

// configChoices lists the allowed values of enumerated keys.
func configChoices(key string) []string {
	switch key {
	case "rings.mode":
		return config.ValidRingModes()
	case "rings.attachment":
		return config.ValidAttachments()
	case "store.backend":
		return config.ValidBackends()
	case "logging.level":
		return config.ValidLogLevels()
	case "tui.theme":
		return append(styles.ValidThemes(), styles.CustomThemeNames()...)
	}
	return nil
}

// parseConfigValue validates value for key and converts it to the key's type.
func parseConfigValue(key, value string) (any, error) {
	keyType, ok := configKeys[key]
	if !ok {
		return nil, fmt.Errorf("unknown configuration key: %s\nRun 'initiative config set --help' to see valid keys", key)
	}

	switch keyType {
	case "string":
		if choices := configChoices(key); choices != nil && !slices.Contains(choices, value) {
			return nil, fmt.Errorf("invalid value for %s: %s\nValid options: %s",
				key, value, strings.Join(choices, ", "))
		}
		return value, nil
	case "bool":
		if value != "true" && value != "false" {
			return nil, fmt.Errorf("invalid value for %s: expected true or false", key)
		}
		return value == "true", nil
	case "float":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: expected number", key)
		}
		if f <= 0 {
			return nil, fmt.Errorf("invalid value for %s: must be positive", key)
		}
		return f, nil
	default:
		i, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: expected integer", key)
		}
		if i < 0 {
			return nil, fmt.Errorf("invalid value for %s: must be non-negative", key)
		}
		return i, nil
	}
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	typedValue, err := parseConfigValue(key, args[1])
	if err != nil {
		return err
	}

	configDir := config.ConfigDir()
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	viper.Set(key, typedValue)

	configFile := config.ConfigFile()
	if viper.ConfigFileUsed() != "" {
		configFile = viper.ConfigFileUsed()
	}
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %v\n", key, typedValue)
	fmt.Fprintf(cmd.OutOrStdout(), "Config saved to %s\n", configFile)

	return nil
}

const defaultConfigContent = `# Initiative Configuration

# Map grid used to convert distances to pixels
grid:
  # Game distance covered by one grid cell
  units_per_cell: 5
  # Rendered size of one grid cell in pixels
  pixels_per_cell: 70
  # Distance label shown next to ring sizes
  unit_label: ft

# Range rings
rings:
  # Wait this long after the last command before reconciling rings
  debounce_ms: 100
  # How long to wait for the map to confirm ring deletions
  delete_poll_attempts: 10
  delete_poll_delay_ms: 50
  # Attack range of touch attackers, in game units
  touch_range: 5
  # Defaults for participants without ring preferences
  # Options: off, movement, attack, both
  mode: both
  # Options: pinned, placed
  attachment: pinned
  movement:
    color: "#60A5FA"
    weight: 4
    opacity: 0.6
  attack:
    color: "#F87171"
    weight: 4
    dash: [8, 8]
    opacity: 0.6

# Encounter storage
store:
  # Options: sqlite, memory
  backend: sqlite
  path: .initiative/encounter.db

# Debug logging
logging:
  enabled: true
  # Options: debug, info, warn, error
  level: info
  dir: .initiative

# Watch view
tui:
  # Options: default, dracula, nord, solarized-light, or a theme file
  # in ~/.config/initiative/themes
  theme: default
  refresh_ms: 1000

# Prometheus metrics
metrics:
  enabled: false
  namespace: initiative
  # Serve /metrics from the watch command, e.g. ":9464"
  addr: ""
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir := config.ConfigDir()
	configFile := config.ConfigFile()

	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s\nUse 'initiative config set' to modify values", configFile)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(configFile, []byte(defaultConfigContent), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created config file at %s\n", configFile)
	fmt.Fprintln(cmd.OutOrStdout(), "Edit this file to customize initiative's behavior.")

	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	configFile := config.ConfigFile()

	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Default path: %s (not created)\n", configFile)
	}

	fmt.Fprintln(out, "\nSearch paths:")
	fmt.Fprintf(out, "  1. %s\n", filepath.Join(config.ConfigDir(), "config.yaml"))
	fmt.Fprintf(out, "  2. %s\n", filepath.Join(config.DataDir, "config.yaml"))
	fmt.Fprintln(out, "\nEnvironment variables: INITIATIVE_* (e.g., INITIATIVE_RINGS_DEBOUNCE_MS)")

	return nil
}

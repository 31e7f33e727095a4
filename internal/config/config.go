package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/Iron-Ham/initiative/internal/grid"
	"github.com/Iron-Ham/initiative/internal/model"
)

// Config represents the complete initiative configuration
type Config struct {
	Grid    GridConfig    `mapstructure:"grid"`
	Rings   RingsConfig   `mapstructure:"rings"`
	Store   StoreConfig   `mapstructure:"store"`
	Logging LoggingConfig `mapstructure:"logging"`
	TUI     TUIConfig     `mapstructure:"tui"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// GridConfig describes the map grid used to convert distances to pixels
type GridConfig struct {
	// UnitsPerCell is the game distance covered by one grid cell (default: 5)
	UnitsPerCell float64 `mapstructure:"units_per_cell"`
	// PixelsPerCell is the rendered size of one grid cell (default: 70)
	PixelsPerCell float64 `mapstructure:"pixels_per_cell"`
	// UnitLabel is the display label of the game unit (default: "ft")
	UnitLabel string `mapstructure:"unit_label"`
}

// RingsConfig controls ring reconciliation
type RingsConfig struct {
	// DebounceMs is how long the coordinator waits after the last command
	// before reconciling rings (default: 100)
	DebounceMs int `mapstructure:"debounce_ms"`
	// DeletePollAttempts bounds the wait for confirmed ring deletion (default: 10)
	DeletePollAttempts int `mapstructure:"delete_poll_attempts"`
	// DeletePollDelayMs is the delay between deletion polls (default: 50)
	DeletePollDelayMs int `mapstructure:"delete_poll_delay_ms"`
	// TouchRange is the attack distance of touch attackers in game units.
	// It is not scaled by the grid. (default: 5)
	TouchRange float64 `mapstructure:"touch_range"`
	// Mode is the ring mode given to participants without one
	// Options: "off", "movement", "attack", "both"
	Mode string `mapstructure:"mode"`
	// Attachment is the attachment given to participants without one
	// Options: "pinned", "placed"
	Attachment string `mapstructure:"attachment"`
	// Movement is the default movement ring style
	Movement StyleConfig `mapstructure:"movement"`
	// Attack is the default attack ring style
	Attack StyleConfig `mapstructure:"attack"`
}

// StyleConfig is a ring stroke style
type StyleConfig struct {
	Color   string    `mapstructure:"color"`
	Weight  float64   `mapstructure:"weight"`
	Dash    []float64 `mapstructure:"dash"`
	Opacity float64   `mapstructure:"opacity"`
}

// StoreConfig selects the document store backend
type StoreConfig struct {
	// Backend is "sqlite" (default) or "memory"
	Backend string `mapstructure:"backend"`
	// Path is the sqlite database file (default: .initiative/encounter.db)
	Path string `mapstructure:"path"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled writes a debug log (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the minimum level written (default: "info")
	Level string `mapstructure:"level"`
	// Dir is where debug.log is written (default: .initiative)
	Dir string `mapstructure:"dir"`
}

// TUIConfig controls the watch view
type TUIConfig struct {
	// Theme is the color theme (default: "default")
	Theme string `mapstructure:"theme"`
	// RefreshMs is the fallback refresh interval of the watch view (default: 1000)
	RefreshMs int `mapstructure:"refresh_ms"`
}

// MetricsConfig controls Prometheus instrumentation
type MetricsConfig struct {
	// Enabled turns on Prometheus collectors (default: false)
	Enabled bool `mapstructure:"enabled"`
	// Namespace prefixes metric names (default: "initiative")
	Namespace string `mapstructure:"namespace"`
	// Addr serves /metrics from the watch command when set, e.g. ":9464"
	Addr string `mapstructure:"addr"`
}

// DataDir is the per-encounter working directory.
const DataDir = ".initiative"

// Default returns a Config with sensible default values
func Default() *Config {
	defaults := model.DefaultRingDefaults()
	return &Config{
		Grid: GridConfig{
			UnitsPerCell:  5,
			PixelsPerCell: 70,
			UnitLabel:     "ft",
		},
		Rings: RingsConfig{
			DebounceMs:         100,
			DeletePollAttempts: 10,
			DeletePollDelayMs:  50,
			TouchRange:         5,
			Mode:               string(defaults.Mode),
			Attachment:         string(defaults.Attachment),
			Movement:           styleConfig(defaults.Movement),
			Attack:             styleConfig(defaults.Attack),
		},
		Store: StoreConfig{
			Backend: "sqlite",
			Path:    filepath.Join(DataDir, "encounter.db"),
		},
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "info",
			Dir:     DataDir,
		},
		TUI: TUIConfig{
			Theme:     "default",
			RefreshMs: 1000,
		},
		Metrics: MetricsConfig{
			Enabled:   false,
			Namespace: "initiative",
		},
	}
}

func styleConfig(s model.RingStyle) StyleConfig {
	return StyleConfig{Color: s.Color, Weight: s.Weight, Dash: s.Dash, Opacity: s.Opacity}
}

// Style converts the config to a model ring style
func (s StyleConfig) Style() model.RingStyle {
	return model.RingStyle{Color: s.Color, Weight: s.Weight, Dash: s.Dash, Opacity: s.Opacity}.Clone()
}

// Service builds the grid service described by the config
func (g GridConfig) Service() (*grid.Static, error) {
	return grid.NewStatic(g.UnitsPerCell, g.PixelsPerCell, g.UnitLabel)
}

// Debounce returns the debounce delay as a time.Duration
func (r *RingsConfig) Debounce() time.Duration {
	return time.Duration(r.DebounceMs) * time.Millisecond
}

// DeletePollDelay returns the deletion poll delay as a time.Duration
func (r *RingsConfig) DeletePollDelay() time.Duration {
	return time.Duration(r.DeletePollDelayMs) * time.Millisecond
}

// Defaults returns the ring defaults applied when migrating participants
func (r *RingsConfig) Defaults() model.Defaults {
	return model.Defaults{
		Mode:       model.RingMode(r.Mode),
		Attachment: model.Attachment(r.Attachment),
		Movement:   r.Movement.Style(),
		Attack:     r.Attack.Style(),
	}
}

// RefreshInterval returns the watch refresh interval as a time.Duration
func (t *TUIConfig) RefreshInterval() time.Duration {
	return time.Duration(t.RefreshMs) * time.Millisecond
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Grid defaults
	viper.SetDefault("grid.units_per_cell", defaults.Grid.UnitsPerCell)
	viper.SetDefault("grid.pixels_per_cell", defaults.Grid.PixelsPerCell)
	viper.SetDefault("grid.unit_label", defaults.Grid.UnitLabel)

	// Ring defaults
	viper.SetDefault("rings.debounce_ms", defaults.Rings.DebounceMs)
	viper.SetDefault("rings.delete_poll_attempts", defaults.Rings.DeletePollAttempts)
	viper.SetDefault("rings.delete_poll_delay_ms", defaults.Rings.DeletePollDelayMs)
	viper.SetDefault("rings.touch_range", defaults.Rings.TouchRange)
	viper.SetDefault("rings.mode", defaults.Rings.Mode)
	viper.SetDefault("rings.attachment", defaults.Rings.Attachment)
	viper.SetDefault("rings.movement.color", defaults.Rings.Movement.Color)
	viper.SetDefault("rings.movement.weight", defaults.Rings.Movement.Weight)
	viper.SetDefault("rings.movement.dash", defaults.Rings.Movement.Dash)
	viper.SetDefault("rings.movement.opacity", defaults.Rings.Movement.Opacity)
	viper.SetDefault("rings.attack.color", defaults.Rings.Attack.Color)
	viper.SetDefault("rings.attack.weight", defaults.Rings.Attack.Weight)
	viper.SetDefault("rings.attack.dash", defaults.Rings.Attack.Dash)
	viper.SetDefault("rings.attack.opacity", defaults.Rings.Attack.Opacity)

	// Store defaults
	viper.SetDefault("store.backend", defaults.Store.Backend)
	viper.SetDefault("store.path", defaults.Store.Path)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)

	// TUI defaults
	viper.SetDefault("tui.theme", defaults.TUI.Theme)
	viper.SetDefault("tui.refresh_ms", defaults.TUI.RefreshMs)

	// Metrics defaults
	viper.SetDefault("metrics.enabled", defaults.Metrics.Enabled)
	viper.SetDefault("metrics.namespace", defaults.Metrics.Namespace)
	viper.SetDefault("metrics.addr", defaults.Metrics.Addr)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "initiative")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return DataDir
	}
	return filepath.Join(home, ".config", "initiative")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// ValidBackends returns the list of valid store backends
func ValidBackends() []string {
	return []string{"sqlite", "memory"}
}

package config

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/Iron-Ham/initiative/internal/model"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "rings.debounce_ms")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// hexColorRegex matches #RGB and #RRGGBB colors
var hexColorRegex = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// IsHexColor reports whether s is a #RGB or #RRGGBB color
func IsHexColor(s string) bool {
	return hexColorRegex.MatchString(s)
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidRingModes returns the list of valid ring modes
func ValidRingModes() []string {
	return []string{
		string(model.RingModeOff),
		string(model.RingModeMovement),
		string(model.RingModeAttack),
		string(model.RingModeBoth),
	}
}

// ValidAttachments returns the list of valid ring attachments
func ValidAttachments() []string {
	return []string{string(model.AttachPinned), string(model.AttachPlaced)}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateGrid()...)
	errors = append(errors, c.validateRings()...)
	errors = append(errors, c.validateStore()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateTUI()...)

	return errors
}

// validateGrid validates the GridConfig
func (c *Config) validateGrid() []ValidationError {
	var errors []ValidationError

	if c.Grid.UnitsPerCell <= 0 {
		errors = append(errors, ValidationError{
			Field:   "grid.units_per_cell",
			Value:   c.Grid.UnitsPerCell,
			Message: "must be positive",
		})
	}
	if c.Grid.PixelsPerCell <= 0 {
		errors = append(errors, ValidationError{
			Field:   "grid.pixels_per_cell",
			Value:   c.Grid.PixelsPerCell,
			Message: "must be positive",
		})
	}

	return errors
}

// validateRings validates the RingsConfig
func (c *Config) validateRings() []ValidationError {
	var errors []ValidationError

	if c.Rings.DebounceMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "rings.debounce_ms",
			Value:   c.Rings.DebounceMs,
			Message: "must be non-negative",
		})
	}

	const maxDebounceMs = 5000
	if c.Rings.DebounceMs > maxDebounceMs {
		errors = append(errors, ValidationError{
			Field:   "rings.debounce_ms",
			Value:   c.Rings.DebounceMs,
			Message: fmt.Sprintf("exceeds maximum of %dms", maxDebounceMs),
		})
	}

	if c.Rings.DeletePollAttempts < 1 {
		errors = append(errors, ValidationError{
			Field:   "rings.delete_poll_attempts",
			Value:   c.Rings.DeletePollAttempts,
			Message: "must be at least 1",
		})
	}
	if c.Rings.DeletePollDelayMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "rings.delete_poll_delay_ms",
			Value:   c.Rings.DeletePollDelayMs,
			Message: "must be non-negative",
		})
	}
	if c.Rings.TouchRange < 0 {
		errors = append(errors, ValidationError{
			Field:   "rings.touch_range",
			Value:   c.Rings.TouchRange,
			Message: "must be non-negative",
		})
	}

	if c.Rings.Mode != "" && !slices.Contains(ValidRingModes(), c.Rings.Mode) {
		errors = append(errors, ValidationError{
			Field:   "rings.mode",
			Value:   c.Rings.Mode,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidRingModes(), ", ")),
		})
	}
	if c.Rings.Attachment != "" && !slices.Contains(ValidAttachments(), c.Rings.Attachment) {
		errors = append(errors, ValidationError{
			Field:   "rings.attachment",
			Value:   c.Rings.Attachment,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidAttachments(), ", ")),
		})
	}

	errors = append(errors, validateStyle("rings.movement", c.Rings.Movement)...)
	errors = append(errors, validateStyle("rings.attack", c.Rings.Attack)...)

	return errors
}

func validateStyle(prefix string, s StyleConfig) []ValidationError {
	var errors []ValidationError

	if s.Color != "" && !hexColorRegex.MatchString(s.Color) {
		errors = append(errors, ValidationError{
			Field:   prefix + ".color",
			Value:   s.Color,
			Message: "must be a hex color like #RRGGBB",
		})
	}
	if s.Weight < 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".weight",
			Value:   s.Weight,
			Message: "must be non-negative",
		})
	}
	if s.Opacity < 0 || s.Opacity > 1 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".opacity",
			Value:   s.Opacity,
			Message: "must be between 0 and 1",
		})
	}
	for _, d := range s.Dash {
		if d < 0 {
			errors = append(errors, ValidationError{
				Field:   prefix + ".dash",
				Value:   s.Dash,
				Message: "segments must be non-negative",
			})
			break
		}
	}

	return errors
}

// validateStore validates the StoreConfig
func (c *Config) validateStore() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidBackends(), c.Store.Backend) {
		errors = append(errors, ValidationError{
			Field:   "store.backend",
			Value:   c.Store.Backend,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidBackends(), ", ")),
		})
	}

	if c.Store.Backend == "sqlite" {
		if c.Store.Path == "" {
			errors = append(errors, ValidationError{
				Field:   "store.path",
				Value:   c.Store.Path,
				Message: "is required for the sqlite backend",
			})
		}
		if strings.ContainsRune(c.Store.Path, '\x00') {
			errors = append(errors, ValidationError{
				Field:   "store.path",
				Value:   c.Store.Path,
				Message: "path contains invalid null character",
			})
		}
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errors
}

// validateTUI validates the TUIConfig
func (c *Config) validateTUI() []ValidationError {
	var errors []ValidationError

	if c.TUI.RefreshMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "tui.refresh_ms",
			Value:   c.TUI.RefreshMs,
			Message: "must be non-negative",
		})
	}

	return errors
}

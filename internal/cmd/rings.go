package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/initiative/internal/config"
	"github.com/Iron-Ham/initiative/internal/errors"
	"github.com/Iron-Ham/initiative/internal/model"
)

var ringsCmd = &cobra.Command{
	Use:   "rings",
	Short: "Manage movement and attack rings",
}

var ringsSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile the rings of the active participants",
	Long: `Reconcile the rings of the active participants with the map. Use this
after moving tokens or editing records outside the tracker.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return ringsRun(cmd, func(ctx context.Context, e *env) (string, error) {
			e.tracker.SyncRings(ctx)
			return "Rings synced", nil
		})
	},
}

var ringsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every ring from the map",
	Long:  `Remove every turn and preview ring from the map and turn previews off.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return ringsRun(cmd, func(ctx context.Context, e *env) (string, error) {
			e.tracker.ClearAllRings(ctx)
			return "Rings cleared", nil
		})
	},
}

var ringsDMCmd = &cobra.Command{
	Use:       "dm <participant> on|off",
	Short:     "Toggle the GM-only ring preview of a participant",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"on", "off"},
	RunE:      runRingsDM,
}

var ringsModeCmd = &cobra.Command{
	Use:   "mode <participant> <mode>",
	Short: "Choose which rings a participant shows",
	Long: `Choose which rings a participant shows.

Modes: ` + strings.Join(config.ValidRingModes(), ", "),
	Args: cobra.ExactArgs(2),
	RunE: runRingsMode,
}

var ringsAttachCmd = &cobra.Command{
	Use:   "attach <participant> <attachment>",
	Short: "Pin rings to the token or place them once",
	Long: `Pin rings to the token so they follow it, or place them at the
token's position when the turn starts.

Attachments: ` + strings.Join(config.ValidAttachments(), ", "),
	Args: cobra.ExactArgs(2),
	RunE: runRingsAttach,
}

var ringsStyleCmd = &cobra.Command{
	Use:   "style <participant> movement|attack",
	Short: "Change a ring's stroke style",
	Long: `Change a ring's stroke style. Only the flags given are changed.

Examples:
  initiative rings style Aria movement --color "#22C55E"
  initiative rings style Aria attack --dash 4,4 --opacity 0.8`,
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"movement", "attack"},
	RunE:      runRingsStyle,
}

var (
	styleColor   string
	styleWeight  float64
	styleDash    []float64
	styleOpacity float64
)

func init() {
	rootCmd.AddCommand(ringsCmd)
	ringsCmd.AddCommand(ringsSyncCmd)
	ringsCmd.AddCommand(ringsClearCmd)
	ringsCmd.AddCommand(ringsDMCmd)
	ringsCmd.AddCommand(ringsModeCmd)
	ringsCmd.AddCommand(ringsAttachCmd)
	ringsCmd.AddCommand(ringsStyleCmd)

	ringsStyleCmd.Flags().StringVar(&styleColor, "color", "", "Stroke color (#RRGGBB)")
	ringsStyleCmd.Flags().Float64Var(&styleWeight, "weight", 0, "Stroke weight")
	ringsStyleCmd.Flags().Float64SliceVar(&styleDash, "dash", nil, "Dash pattern, e.g. 8,8 (empty for solid)")
	ringsStyleCmd.Flags().Float64Var(&styleOpacity, "opacity", 0, "Stroke opacity (0-1)")
}

func ringsRun(cmd *cobra.Command, fn func(context.Context, *env) (string, error)) error {
	return withEnv(cmd, false, func(ctx context.Context, e *env) error {
		msg, err := fn(ctx, e)
		if err != nil {
			return err
		}
		// Ring passes are debounced; wait for them before reporting.
		if err := e.tracker.Flush(ctx); err != nil {
			return err
		}
		if err := e.Failed(); err != nil {
			return err
		}
		e.printer(cmd).success("%s", msg)
		return nil
	})
}

func runRingsDM(cmd *cobra.Command, args []string) error {
	var on bool
	switch args[1] {
	case "on":
		on = true
	case "off":
	default:
		return errors.NewValidationError("expected on or off").WithField("preview").WithValue(args[1])
	}

	return ringsRun(cmd, func(ctx context.Context, e *env) (string, error) {
		p, err := e.resolve(ctx, args[0])
		if err != nil {
			return "", err
		}
		e.tracker.SetDMPreview(ctx, p.ID, on)
		return "GM preview " + args[1] + " for " + p.Name, nil
	})
}

func runRingsMode(cmd *cobra.Command, args []string) error {
	return ringsRun(cmd, func(ctx context.Context, e *env) (string, error) {
		p, err := e.resolve(ctx, args[0])
		if err != nil {
			return "", err
		}
		e.tracker.SetRingMode(ctx, p.ID, model.RingMode(args[1]))
		return p.Name + " rings: " + args[1], nil
	})
}

func runRingsAttach(cmd *cobra.Command, args []string) error {
	return ringsRun(cmd, func(ctx context.Context, e *env) (string, error) {
		p, err := e.resolve(ctx, args[0])
		if err != nil {
			return "", err
		}
		e.tracker.SetRingAttachment(ctx, p.ID, model.Attachment(args[1]))
		return p.Name + " rings " + args[1], nil
	})
}

func runRingsStyle(cmd *cobra.Command, args []string) error {
	var kind model.RingKind
	switch args[1] {
	case "movement":
		kind = model.KindMovement
	case "attack":
		kind = model.KindRange
	default:
		return errors.NewValidationError("expected movement or attack").WithField("kind").WithValue(args[1])
	}

	flags := cmd.Flags()
	return ringsRun(cmd, func(ctx context.Context, e *env) (string, error) {
		p, err := e.resolve(ctx, args[0])
		if err != nil {
			return "", err
		}

		style := p.Rings.Style(kind).Clone()
		if flags.Changed("color") {
			style.Color = styleColor
		}
		if flags.Changed("weight") {
			style.Weight = styleWeight
		}
		if flags.Changed("dash") {
			style.Dash = styleDash
		}
		if flags.Changed("opacity") {
			style.Opacity = styleOpacity
		}
		if err := validateStyle(style); err != nil {
			return "", err
		}

		e.tracker.SetRingStyle(ctx, p.ID, kind, style)
		return "Updated " + args[1] + " ring of " + p.Name, nil
	})
}

func validateStyle(s model.RingStyle) error {
	if s.Weight <= 0 {
		return errors.NewValidationError("weight must be positive").WithField("weight").WithValue(s.Weight)
	}
	if s.Opacity < 0 || s.Opacity > 1 {
		return errors.NewValidationError("opacity must be between 0 and 1").WithField("opacity").WithValue(s.Opacity)
	}
	if !config.IsHexColor(s.Color) {
		return errors.NewValidationError("color must be #RRGGBB").WithField("color").WithValue(s.Color)
	}
	return nil
}

package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/initiative/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "initiative",
	Short: "Initiative tracker with movement and attack rings",
	Long: `Initiative tracks turn order for a tabletop encounter and keeps the
movement and attack rings of the active combatant in sync on the shared map.

Encounter state lives in a SQLite database (.initiative/encounter.db by
default) so several terminals can drive and watch the same encounter.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/initiative/config.yaml)")
	rootCmd.PersistentFlags().String("db", "", "encounter database (default is .initiative/encounter.db)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("store.path", rootCmd.PersistentFlags().Lookup("db"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath(config.DataDir)
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("INITIATIVE")
	// e.g., INITIATIVE_RINGS_DEBOUNCE_MS for rings.debounce_ms
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}

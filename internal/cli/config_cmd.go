package cli

import (
	"github.com/spf13/cobra"

	"github.com/thesujaljaiswal/Voice-Chat-Application/internal/config"
	"github.com/thesujaljaiswal/Voice-Chat-Application/internal/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the resolved client configuration",
	Long:  `Show the configuration the client would use, after applying environment variables over the built-in defaults.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load(config.Options{})
		ui.RenderConfigTable([]ui.ConfigRow{
			{Key: "Signaling Server", Value: cfg.ServerURL},
			{Key: "STUN Server", Value: cfg.STUNServer},
			{Key: "TURN Server", Value: cfg.TURNServer},
			{Key: "TURN Username", Value: cfg.TURNUser},
		})
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}

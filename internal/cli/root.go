package cli

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/thesujaljaiswal/Voice-Chat-Application/internal/ui"
	"github.com/thesujaljaiswal/Voice-Chat-Application/internal/version"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "voicecall",
	Short:   "Customer/Agent voice calls over WebRTC, coordinated by a signaling server",
	Long:    `Voicecall is a command-line client for two-party voice calls between a Customer and an Agent. It joins a shared room on the signaling server, exchanges WebRTC offers, answers and ICE candidates with the peer, and carries side-channel chat while the call runs.`,
	Version: version.Version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		os.Exit(0)
	}()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}

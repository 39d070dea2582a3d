// Command alertbridge runs the MQTT auth bridge and mints tokens for
// clients, devices and the backend.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "alertbridge",
		Short: "JWT auth bridge between an MQTT broker and the alert backend",
		Long: `alertbridge answers the authentication and ACL callbacks of an MQTT
broker's JWT plugin, mints tokens for web clients and devices, and
publishes alert data to the per-user topics of their recipients.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: $ALERTBRIDGE_CONFIG, ./config.yaml, /etc/alertbridge/config.yaml)")

	rootCmd.AddCommand(
		serveCmd(&configPath),
		tokenCmd(&configPath),
		versionCmd(),
	)
	return rootCmd
}

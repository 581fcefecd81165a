// Zgxctl is a command-line toolkit for HP ZGX AI workstations.
//
// It discovers devices on the local network via mDNS/DNS-SD, manages a
// persisted device registry, verifies SSH connectivity during setup,
// installs AI development tooling on devices, and runs a background loop
// that keeps stored device addresses current as DHCP leases change.
//
// Usage:
//
//	zgxctl [command] [flags]
//
// See 'zgxctl --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zgxtoolkit/zgxctl/internal/logging"
	"github.com/zgxtoolkit/zgxctl/internal/version"
)

func main() {
	if err := logging.InitializeFromEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "zgxctl",
	Short: "HP ZGX Workstation Toolkit",
	Long: `A command-line toolkit for HP ZGX AI workstations.

Discovers devices on the local network over mDNS/DNS-SD, manages the device
registry, verifies SSH setup, and installs AI development tooling.`,
	Version: version.Version,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("zgxctl %s (commit: %s)\n", version.Version, version.Commit)
	},
}

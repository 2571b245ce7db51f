// Package main — cmd/sairenctl/main.go
//
// sairenctl is the operator CLI for a running SAIREN-OS agent, talking to
// its operatorconsole Unix socket to pin/unpin baseline locks and clear
// category cooldowns, grounded on the wider example pack's cobra
// root-command/subcommand layout.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ashton-dyke/sairen-os/internal/operatorconsole"
)

var (
	socketPath string
	version    = "dev"
)

var rootCmd = &cobra.Command{
	Use:     "sairenctl",
	Short:   "Operator console for a running SAIREN-OS agent",
	Long:    `sairenctl connects to a SAIREN-OS agent's operator console socket to lock or downgrade equipment baselines, clear advisory cooldowns, and inspect agent status.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&socketPath, "socket", "/var/run/sairen/operator.sock", "operator console Unix socket path")

	rootCmd.AddCommand(lockBaselineCmd)
	rootCmd.AddCommand(downgradeBaselineCmd)
	rootCmd.AddCommand(clearCooldownCmd)
	rootCmd.AddCommand(statusCmd)
}

// Subcommands are defined in separate files:
// - lockBaselineCmd, downgradeBaselineCmd in baseline.go
// - clearCooldownCmd in cooldown.go
// - statusCmd in status.go

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func dialConsole() (*operatorconsole.Client, error) {
	c, err := operatorconsole.Dial(socketPath)
	if err != nil {
		return nil, fmt.Errorf("connect to operator console at %q: %w", socketPath, err)
	}
	return c, nil
}

func printResponse(resp operatorconsole.Response) error {
	if !resp.OK {
		return fmt.Errorf("operator console rejected request: %s", resp.Error)
	}
	fmt.Println("ok")
	return nil
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ashton-dyke/sairen-os/internal/operatorconsole"
)

var lockBaselineCmd = &cobra.Command{
	Use:   "lock-baseline <equipment> <metric>",
	Args:  cobra.ExactArgs(2),
	Short: "Force a baseline to lock immediately with its current samples",
	RunE:  runLockBaseline,
}

var downgradeBaselineCmd = &cobra.Command{
	Use:   "downgrade-baseline <equipment> <metric>",
	Args:  cobra.ExactArgs(2),
	Short: "Reopen a locked baseline's accumulation window",
	RunE:  runDowngradeBaseline,
}

func runLockBaseline(cmd *cobra.Command, args []string) error {
	c, err := dialConsole()
	if err != nil {
		return err
	}
	defer c.Close()

	resp, err := c.Send(operatorconsole.Request{Cmd: "lock_baseline", Equipment: args[0], Metric: args[1]})
	if err != nil {
		return fmt.Errorf("send lock_baseline: %w", err)
	}
	return printResponse(resp)
}

func runDowngradeBaseline(cmd *cobra.Command, args []string) error {
	c, err := dialConsole()
	if err != nil {
		return err
	}
	defer c.Close()

	resp, err := c.Send(operatorconsole.Request{Cmd: "downgrade_baseline", Equipment: args[0], Metric: args[1]})
	if err != nil {
		return fmt.Errorf("send downgrade_baseline: %w", err)
	}
	return printResponse(resp)
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ashton-dyke/sairen-os/internal/operatorconsole"
)

var clearCooldownCmd = &cobra.Command{
	Use:   "clear-cooldown <category>",
	Args:  cobra.ExactArgs(1),
	Short: "Force-clear the tactical agent's cooldown for a ticket category",
	Long:  `Category must be one of: WellControl, Hydraulics, Mechanical, DrillingEfficiency, Formation.`,
	RunE:  runClearCooldown,
}

func runClearCooldown(cmd *cobra.Command, args []string) error {
	c, err := dialConsole()
	if err != nil {
		return err
	}
	defer c.Close()

	resp, err := c.Send(operatorconsole.Request{Cmd: "clear_cooldown", Category: args[0]})
	if err != nil {
		return fmt.Errorf("send clear_cooldown: %w", err)
	}
	return printResponse(resp)
}

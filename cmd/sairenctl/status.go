package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ashton-dyke/sairen-os/internal/operatorconsole"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Args:  cobra.NoArgs,
	Short: "Print the agent's operator-visible status as JSON",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	c, err := dialConsole()
	if err != nil {
		return err
	}
	defer c.Close()

	resp, err := c.Send(operatorconsole.Request{Cmd: "status"})
	if err != nil {
		return fmt.Errorf("send status: %w", err)
	}
	if !resp.OK {
		return fmt.Errorf("operator console rejected request: %s", resp.Error)
	}

	data, err := json.MarshalIndent(resp.Status, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

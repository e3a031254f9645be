package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pavadmin/pavadmin/internal/rcon"
)

var execCmd = &cobra.Command{
	Use:   "exec <command> [args...]",
	Short: "Connect, run one RCON command, print the reply and disconnect",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOnce(cmd, rcon.Command{Raw: strings.Join(args, " ")})
	},
}

// runOnce opens a session, executes rc, prints the reply and says goodbye.
func runOnce(cmd *cobra.Command, rc rcon.Command) error {
	ctx := cmd.Context()
	client := rcon.NewClient(rconConfig(cfg), logger, nil)
	defer client.Close()

	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("connect %s: %w", client.Addr(), err)
	}
	reply, err := client.Execute(ctx, rc)
	if disconnectErr := client.Disconnect(ctx); disconnectErr != nil && err == nil {
		err = disconnectErr
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), reply)
	return nil
}

func init() {
	rootCmd.AddCommand(execCmd)
}

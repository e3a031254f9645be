package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pavadmin/pavadmin/internal/rcon"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Query and control the game server",
}

var playerCmd = &cobra.Command{
	Use:   "player",
	Short: "Inspect and moderate players",
}

// fixed builds a subcommand that sends one argument-free command.
func fixed(use, short string, build func() rcon.Command) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, build())
		},
	}
}

// byID builds a subcommand taking a player's unique id.
func byID(use, short string, build func(string) rcon.Command) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <unique-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, build(args[0]))
		},
	}
}

var switchMapCmd = &cobra.Command{
	Use:   "switchmap <map> <game-mode>",
	Short: "Load a map with the given game mode",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOnce(cmd, rcon.SwitchMap(args[0], args[1]))
	},
}

var teamCmd = &cobra.Command{
	Use:   "team <unique-id> <team>",
	Short: "Move a player to another team",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		team, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid team %q: %w", args[1], err)
		}
		return runOnce(cmd, rcon.SwitchTeam(args[0], team))
	},
}

var giveCmd = &cobra.Command{
	Use:   "give <unique-id> <item>",
	Short: "Give an item to a player",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOnce(cmd, rcon.GiveItem(args[0], args[1]))
	},
}

func init() {
	serverCmd.AddCommand(
		fixed("info", "Show server name, map, mode and player count", rcon.ServerInfo),
		fixed("maps", "List the map rotation", rcon.MapList),
		fixed("rotate", "Move to the next map in rotation", rcon.RotateMap),
		switchMapCmd,
	)
	playerCmd.AddCommand(
		fixed("list", "List connected players", rcon.RefreshList),
		byID("inspect", "Show one player's details", rcon.InspectPlayer),
		byID("kick", "Kick a player", rcon.Kick),
		byID("ban", "Ban a player", rcon.Ban),
		byID("unban", "Lift a ban", rcon.Unban),
		teamCmd,
		giveCmd,
	)
	rootCmd.AddCommand(serverCmd, playerCmd)
}

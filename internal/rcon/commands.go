package rcon

import (
	"context"
	"fmt"
)

// Command is a single administrative directive.
type Command struct {
	Raw string
}

// Execute sends cmd and returns the server's reply.
func (c *Client) Execute(ctx context.Context, cmd Command) (string, error) {
	return c.SendCommand(ctx, cmd.Raw)
}

// ServerInfo asks for the server name, map, mode and player count.
func ServerInfo() Command { return Command{Raw: "ServerInfo"} }

// RefreshList lists connected players.
func RefreshList() Command { return Command{Raw: "RefreshList"} }

// MapList lists the configured map rotation.
func MapList() Command { return Command{Raw: "MapList"} }

// RotateMap moves to the next map in rotation.
func RotateMap() Command { return Command{Raw: "RotateMap"} }

func InspectPlayer(uniqueID string) Command {
	return Command{Raw: fmt.Sprintf("InspectPlayer %s", uniqueID)}
}

func Kick(uniqueID string) Command {
	return Command{Raw: fmt.Sprintf("Kick %s", uniqueID)}
}

func Ban(uniqueID string) Command {
	return Command{Raw: fmt.Sprintf("Ban %s", uniqueID)}
}

func Unban(uniqueID string) Command {
	return Command{Raw: fmt.Sprintf("Unban %s", uniqueID)}
}

// SwitchMap loads mapID (a map name or workshop id such as "UGC1758245796")
// with the given game mode.
func SwitchMap(mapID, gameMode string) Command {
	return Command{Raw: fmt.Sprintf("SwitchMap %s %s", mapID, gameMode)}
}

func SwitchTeam(uniqueID string, team int) Command {
	return Command{Raw: fmt.Sprintf("SwitchTeam %s %d", uniqueID, team)}
}

func GiveItem(uniqueID, item string) Command {
	return Command{Raw: fmt.Sprintf("GiveItem %s %s", uniqueID, item)}
}

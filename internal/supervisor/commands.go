package supervisor

import (
	"fmt"
	"strings"
)

// Convenience wrappers over Command for the common console operations.
// They only format; gating and delivery follow the same rules as Command.

// Say broadcasts a chat message to all players.
func (s *Supervisor) Say(message string) error {
	return s.Command("say " + message)
}

// Kick disconnects a player, with an optional reason.
func (s *Supervisor) Kick(player, reason string) error {
	if strings.TrimSpace(reason) == "" {
		return s.Command("kick " + player)
	}
	return s.Command(fmt.Sprintf("kick %s %s", player, reason))
}

// Ban bans a player, with an optional reason.
func (s *Supervisor) Ban(player, reason string) error {
	if strings.TrimSpace(reason) == "" {
		return s.Command("ban " + player)
	}
	return s.Command(fmt.Sprintf("ban %s %s", player, reason))
}

// SetGameMode changes a player's game mode (survival, creative, adventure,
// spectator).
func (s *Supervisor) SetGameMode(player, mode string) error {
	return s.Command(fmt.Sprintf("gamemode %s %s", mode, player))
}

// Teleport moves a player to the given coordinates.
func (s *Supervisor) Teleport(player string, x, y, z float64) error {
	return s.Command(fmt.Sprintf("tp %s %g %g %g", player, x, y, z))
}

// Give hands an item stack to a player.
func (s *Supervisor) Give(player, item string, count int) error {
	if count <= 0 {
		count = 1
	}
	return s.Command(fmt.Sprintf("give %s %s %d", player, item, count))
}

// SetTime sets the world time ("day", "night" or a tick value).
func (s *Supervisor) SetTime(value string) error {
	return s.Command("time set " + value)
}

// SetWeather sets the weather ("clear", "rain" or "thunder").
func (s *Supervisor) SetWeather(kind string) error {
	return s.Command("weather " + kind)
}

// SaveAll forces a world save.
func (s *Supervisor) SaveAll() error {
	return s.Command("save-all")
}

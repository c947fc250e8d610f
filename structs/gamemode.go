package structs

import (
	"strings"

	"github.com/pkg/errors"
)

// GameMode is the play mode of a connected player.
type GameMode int

const (
	Survival GameMode = iota
	Creative
	Adventure
	Spectator
)

func (m GameMode) String() string {
	switch m {
	case Survival:
		return "survival"
	case Creative:
		return "creative"
	case Adventure:
		return "adventure"
	case Spectator:
		return "spectator"
	}
	return "unknown"
}

// ParseGameMode accepts the numeric form (0-3), the full name, or the
// short alias (s, c, a, sp), all case-insensitively.
func ParseGameMode(s string) (GameMode, error) {
	switch strings.ToLower(s) {
	case "0", "s", "survival":
		return Survival, nil
	case "1", "c", "creative":
		return Creative, nil
	case "2", "a", "adventure":
		return Adventure, nil
	case "3", "sp", "spectator":
		return Spectator, nil
	}
	return Survival, errors.Errorf("unknown game mode %q", s)
}

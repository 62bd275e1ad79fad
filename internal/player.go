package internal

import "fmt"

type Player struct {
	Id    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Source supplies randomness for display colors. Implementations must be safe
// for concurrent use.
type Source interface {
	// Intn returns a value in [0, n). n > 0.
	Intn(n int) int
}

// PlayerColor returns an HSL color with a uniformly sampled hue and fixed
// saturation and lightness.
func PlayerColor(src Source) string {
	return fmt.Sprintf("hsl(%d, 70%%, 60%%)", src.Intn(360))
}

func (p *Player) ToPublicPlayer() Player {
	return Player{
		Id:    p.Id,
		Name:  p.Name,
		Color: p.Color,
	}
}

package grid_world

import (
	"fmt"
	"strings"
)

// Tier is the difficulty of a maze, derived only from its shortest-path length.
type Tier int

const (
	Easy Tier = iota
	Medium
	Hard
)

// Path length boundaries between tiers.
const (
	EasyBelow = 30 // lengths below are Easy
	HardAbove = 55 // lengths above are Hard
)

var Tiers = [...]Tier{Easy, Medium, Hard}

// Classify maps a shortest-path length to its tier.
func Classify(length int) Tier {
	switch {
	case length < EasyBelow:
		return Easy
	case length > HardAbove:
		return Hard
	}
	return Medium
}

// ClassifyPath is Classify for a search result. An unreachable maze has no
// tier: ok is false and the maze should be regenerated.
func ClassifyPath(length int, reachable bool) (tier Tier, ok bool) {
	if !reachable {
		return Medium, false
	}
	return Classify(length), true
}

// Measure runs the search and classifies the result in one call.
func Measure(g Grid) (tier Tier, length int, ok bool) {
	length, ok = ShortestPathLength(g)
	tier, ok = ClassifyPath(length, ok)
	return
}

func (t Tier) String() string {
	switch t {
	case Easy:
		return "easy"
	case Medium:
		return "medium"
	case Hard:
		return "hard"
	}
	return fmt.Sprintf("tier(%d)", int(t))
}

func ParseTier(s string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy":
		return Easy, nil
	case "medium":
		return Medium, nil
	case "hard":
		return Hard, nil
	}
	return Medium, fmt.Errorf("grid_world: unknown tier %q", s)
}

// Next cycles easy -> medium -> hard -> easy, the order in which the
// dashboard asks for new mazes.
func (t Tier) Next() Tier {
	switch t {
	case Easy:
		return Medium
	case Medium:
		return Hard
	}
	return Easy
}

// MinEpisodes is the training budget below which a policy for a maze of this
// tier is considered undertrained.
func (t Tier) MinEpisodes() int {
	switch t {
	case Hard:
		return 2000
	case Medium:
		return 1000
	}
	return 500
}

// SuggestedGamma is the discount factor recommended for this tier.
func (t Tier) SuggestedGamma() float64 {
	if t == Hard {
		return 0.99
	}
	return 0.95
}

// MarshalText lets tiers appear by name in json and yaml documents.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Tier) UnmarshalText(text []byte) (err error) {
	*t, err = ParseTier(string(text))
	return
}

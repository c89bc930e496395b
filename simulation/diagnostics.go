package simulation

import (
	"fmt"

	. "mazerl/grid_world"
)

// Context is what the diagnostics know about how the policy was trained and
// the maze it runs on.
type Context struct {
	Alpha    float64
	Gamma    float64
	Epsilon  float64
	Episodes int
	// Tier and PathLength describe the maze; PathLength is its shortest
	// start-to-goal route.
	Tier       Tier
	PathLength int
}

// Gamma below this cannot plan far enough for any of the mazes.
const lowGamma = 0.9

type rule struct {
	when    func(Context) bool
	message func(Context) string
}

// otherwise is the catch-all closing every rule table.
func otherwise(Context) bool { return true }

func lowDiscount(ctx Context) bool {
	return ctx.Gamma < lowGamma
}

func undertrained(ctx Context) bool {
	return ctx.Episodes < ctx.Tier.MinEpisodes()
}

var wallRules = []rule{
	{lowDiscount, func(ctx Context) string {
		return fmt.Sprintf("Gamma (%v) is too low for this %s maze (path: %d steps). Increase to %v for better long-term planning.",
			ctx.Gamma, ctx.Tier, ctx.PathLength, ctx.Tier.SuggestedGamma())
	}},
	{undertrained, func(ctx Context) string {
		return fmt.Sprintf("Only %d episodes for %s maze - not enough training. This maze needs %d+ episodes for complete learning.",
			ctx.Episodes, ctx.Tier, ctx.Tier.MinEpisodes())
	}},
	{otherwise, func(ctx Context) string {
		return fmt.Sprintf("Agent hit a wall in %s maze. Try epsilon=0.15, gamma=%v, and %d+ episodes.",
			ctx.Tier, ctx.Tier.SuggestedGamma(), ctx.Tier.MinEpisodes())
	}},
}

var loopRules = []rule{
	{func(ctx Context) bool { return ctx.Alpha > 0.7 }, func(ctx Context) string {
		return fmt.Sprintf("Alpha (%v) is too high - learning is unstable. Reduce to 0.2-0.3 and train for %d+ episodes on this %s maze.",
			ctx.Alpha, ctx.Tier.MinEpisodes(), ctx.Tier)
	}},
	{lowDiscount, func(ctx Context) string {
		return fmt.Sprintf("Gamma (%v) is too low for %s maze - agent can't plan %d-step path. Increase gamma to 0.99.",
			ctx.Gamma, ctx.Tier, ctx.PathLength)
	}},
	{undertrained, func(ctx Context) string {
		return fmt.Sprintf("%d episodes insufficient for %s maze (%d-step solution). Train for %d+ episodes.",
			ctx.Episodes, ctx.Tier, ctx.PathLength, ctx.Tier.MinEpisodes())
	}},
	{otherwise, func(ctx Context) string {
		return fmt.Sprintf("Loop in %s maze - try alpha=0.3, gamma=0.99, epsilon=0.1, episodes=%d.",
			ctx.Tier, ctx.Tier.MinEpisodes())
	}},
}

var stepLimitRules = []rule{
	{func(ctx Context) bool { return ctx.Epsilon > 0.3 }, func(ctx Context) string {
		return fmt.Sprintf("Epsilon (%v) too high for %s maze. Reduce to 0.1 and train %d+ episodes.",
			ctx.Epsilon, ctx.Tier, ctx.Tier.MinEpisodes())
	}},
	{lowDiscount, func(ctx Context) string {
		return fmt.Sprintf("Gamma (%v) too low for %d-step solution. Increase to 0.99 for this %s maze.",
			ctx.Gamma, ctx.PathLength, ctx.Tier)
	}},
	{undertrained, func(ctx Context) string {
		return fmt.Sprintf("%d episodes not enough for %s maze. This %d-step path needs %d+ episodes.",
			ctx.Episodes, ctx.Tier, ctx.PathLength, ctx.Tier.MinEpisodes())
	}},
	{otherwise, func(ctx Context) string {
		return fmt.Sprintf("Inefficient path in %s maze (optimal: %d steps). Try alpha=0.3, gamma=0.99, episodes=%d.",
			ctx.Tier, ctx.PathLength, ctx.Tier.MinEpisodes())
	}},
}

const (
	noActionMessage    = "Policy has no action for this position. Try increasing episodes to 1000+ or gamma to 0.99 for better coverage."
	outOfBoundsMessage = "Agent tried to move outside the maze. Policy is broken - try alpha=0.3, gamma=0.99, and 1000+ episodes."
)

func firstMatch(rules []rule, ctx Context) string {
	for _, r := range rules {
		if r.when(ctx) {
			return r.message(ctx)
		}
	}
	return ""
}

// Diagnose explains a failed outcome with a hint about which hyperparameter
// to change. Rules are tried in order and the first match wins. Non-failure
// outcomes get an empty string.
func Diagnose(outcome Outcome, ctx Context) string {
	switch outcome {
	case NoActionAvailable:
		return noActionMessage
	case OutOfBounds:
		return outOfBoundsMessage
	case WallCollision:
		return firstMatch(wallRules, ctx)
	case LoopDetected:
		return firstMatch(loopRules, ctx)
	case StepLimitExceeded:
		return firstMatch(stepLimitRules, ctx)
	}
	return ""
}

// Summary is the one-line log entry for a finished run.
func Summary(res Result) string {
	switch res.Outcome {
	case GoalReached:
		return fmt.Sprintf("Goal reached in %d steps", res.Trace.Moves())
	case NoActionAvailable:
		return fmt.Sprintf("Simulation failed: no action at %s", res.Trace.Head())
	case OutOfBounds:
		return "Simulation failed: Agent tried to move out of bounds"
	case WallCollision:
		if res.Collision != nil {
			return fmt.Sprintf("Simulation failed: Agent hit a wall at %s", *res.Collision)
		}
		return "Simulation failed: Agent hit a wall"
	case LoopDetected:
		return "Simulation failed: Agent got stuck in a loop (poor policy)"
	case StepLimitExceeded:
		return fmt.Sprintf("Simulation failed: Agent couldn't reach goal in %d steps", MaxSteps)
	}
	return res.Outcome.String()
}

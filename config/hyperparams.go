package config

import (
	"fmt"

	"mazerl/grid_world"
)

// Algorithms understood by the training service.
const (
	QLearning  = "q_learning"
	SARSA      = "sarsa"
	MonteCarlo = "monte_carlo"
)

// Monte Carlo return estimation methods.
const (
	FirstVisit = "first_visit"
	EveryVisit = "every_visit"
)

// Hyperparameter keys accepted in training.hyperParams.
const (
	KeyEpisodes     = "episodes"
	KeyAlpha        = "alpha"
	KeyGamma        = "gamma"
	KeyEpsilon      = "epsilon"
	KeyEpsilonDecay = "epsilonDecay"
	KeyMinEpsilon   = "minEpsilon"
	KeyMaxSteps     = "maxSteps"
)

// Hyperparams is a complete set of training parameters for one job.
type Hyperparams struct {
	Algorithm    string  `json:"algorithm"`
	MCMethod     string  `json:"mc_method"`
	Episodes     int     `json:"episodes"`
	Alpha        float64 `json:"alpha"`
	Gamma        float64 `json:"gamma"`
	Epsilon      float64 `json:"epsilon"`
	EpsilonDecay float64 `json:"epsilon_decay"`
	MinEpsilon   float64 `json:"min_epsilon"`
	MaxSteps     int     `json:"max_steps"`
}

func (hp Hyperparams) String() string {
	return fmt.Sprintf("%s episodes=%d alpha=%v gamma=%v epsilon=%v",
		hp.Algorithm, hp.Episodes, hp.Alpha, hp.Gamma, hp.Epsilon)
}

type preset struct {
	episodes                 int
	alpha, gamma, epsilon    float64
	epsilonDecay, minEpsilon float64
}

// presets are the parameters known to train each algorithm well on each tier.
// Monte Carlo ignores alpha; it keeps the untouched default.
var presets = map[string][3]preset{
	QLearning: {
		grid_world.Easy:   {episodes: 500, alpha: 0.3, gamma: 0.95, epsilon: 0.15},
		grid_world.Medium: {episodes: 1000, alpha: 0.3, gamma: 0.99, epsilon: 0.15},
		grid_world.Hard:   {episodes: 2000, alpha: 0.2, gamma: 0.99, epsilon: 0.1},
	},
	SARSA: {
		grid_world.Easy:   {episodes: 600, alpha: 0.25, gamma: 0.95, epsilon: 0.2},
		grid_world.Medium: {episodes: 1200, alpha: 0.25, gamma: 0.99, epsilon: 0.18},
		grid_world.Hard:   {episodes: 2500, alpha: 0.15, gamma: 0.99, epsilon: 0.15},
	},
	MonteCarlo: {
		grid_world.Easy:   {episodes: 2000, alpha: 0.1, gamma: 0.95, epsilon: 0.3, epsilonDecay: 0.9996, minEpsilon: 0.05},
		grid_world.Medium: {episodes: 5000, alpha: 0.1, gamma: 0.99, epsilon: 0.3, epsilonDecay: 0.9996, minEpsilon: 0.05},
		grid_world.Hard:   {episodes: 8000, alpha: 0.1, gamma: 0.99, epsilon: 0.4, epsilonDecay: 0.9998, minEpsilon: 0.08},
	},
}

// Defaults for decay settings when a preset leaves them unset.
const (
	defaultEpsilonDecay = 0.9996
	defaultMinEpsilon   = 0.05
)

// OptimalHyperparams returns the preset for algorithm on a maze of the given
// tier. Unknown algorithms are an error.
func OptimalHyperparams(algorithm string, tier grid_world.Tier) (Hyperparams, error) {
	table, ok := presets[algorithm]
	if !ok {
		return Hyperparams{}, fmt.Errorf("config: unknown algorithm %q", algorithm)
	}
	if tier < grid_world.Easy || tier > grid_world.Hard {
		tier = grid_world.Medium
	}
	p := table[tier]

	hp := Hyperparams{
		Algorithm:    algorithm,
		MCMethod:     FirstVisit,
		Episodes:     p.episodes,
		Alpha:        p.alpha,
		Gamma:        p.gamma,
		Epsilon:      p.epsilon,
		EpsilonDecay: p.epsilonDecay,
		MinEpsilon:   p.minEpsilon,
		MaxSteps:     grid_world.MaxSteps,
	}
	if hp.EpsilonDecay == 0 {
		hp.EpsilonDecay = defaultEpsilonDecay
	}
	if hp.MinEpsilon == 0 {
		hp.MinEpsilon = defaultMinEpsilon
	}
	return hp, nil
}

// Hyperparams resolves the parameters for a job on a maze of the given tier:
// the preset for the configured algorithm, overridden by any hyperParams set
// in the config.
func (cfg *Training) Hyperparams(tier grid_world.Tier) (Hyperparams, error) {
	hp, err := OptimalHyperparams(cfg.Algorithm, tier)
	if err != nil {
		return hp, err
	}
	if cfg.MCMethod != "" {
		hp.MCMethod = cfg.MCMethod
	}
	hp.Episodes = int(cfg.GetHyperParamOrDefault(KeyEpisodes, float64(hp.Episodes)))
	hp.Alpha = cfg.GetHyperParamOrDefault(KeyAlpha, hp.Alpha)
	hp.Gamma = cfg.GetHyperParamOrDefault(KeyGamma, hp.Gamma)
	hp.Epsilon = cfg.GetHyperParamOrDefault(KeyEpsilon, hp.Epsilon)
	hp.EpsilonDecay = cfg.GetHyperParamOrDefault(KeyEpsilonDecay, hp.EpsilonDecay)
	hp.MinEpsilon = cfg.GetHyperParamOrDefault(KeyMinEpsilon, hp.MinEpsilon)
	hp.MaxSteps = int(cfg.GetHyperParamOrDefault(KeyMaxSteps, float64(hp.MaxSteps)))
	return hp, nil
}

package models

// Signals holds the per-timestep outputs of the signal stage.
// Note: every series is aligned with the feature rows it was built from.
type Signals struct {
	Regime    []int // HMM signal: 1 when the regime is favorable
	Trend     []int // MA signal: 1 when fast MA > slow MA (or trend disabled)
	Main      []int // Regime AND Trend
	Favorable []int // favorable regime labels, best first
	Ranking   []RegimeStat
}

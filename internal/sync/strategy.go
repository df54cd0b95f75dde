package sync

import "fmt"

// Strategy selects the conflict resolver used for a run.
type Strategy string

const (
	// StrategyInteractive merges cleanly when it can and asks otherwise.
	StrategyInteractive Strategy = "interactive"

	// StrategyMarkers writes conflict markers into the local file.
	StrategyMarkers Strategy = "markers"

	// StrategyLocalWins keeps the local document.
	StrategyLocalWins Strategy = "local-wins"

	// StrategyRemoteWins takes the remote page.
	StrategyRemoteWins Strategy = "remote-wins"
)

// DefaultStrategy is used when a profile does not name one.
const DefaultStrategy = StrategyInteractive

// IsValid returns true if the strategy is recognized.
func (s Strategy) IsValid() bool {
	switch s {
	case StrategyInteractive, StrategyMarkers, StrategyLocalWins, StrategyRemoteWins:
		return true
	default:
		return false
	}
}

// AllStrategies returns all supported conflict strategies.
func AllStrategies() []Strategy {
	return []Strategy{StrategyInteractive, StrategyMarkers, StrategyLocalWins, StrategyRemoteWins}
}

// String returns the string representation of the strategy.
func (s Strategy) String() string {
	return string(s)
}

// Description returns a human-readable description of the strategy.
func (s Strategy) Description() string {
	switch s {
	case StrategyInteractive:
		return "Merge automatically when possible, otherwise prompt for each conflict"
	case StrategyMarkers:
		return "Write conflict markers into the local file for manual editing"
	case StrategyLocalWins:
		return "Keep the local document and overwrite the remote page"
	case StrategyRemoteWins:
		return "Take the remote page and overwrite the local document"
	default:
		return "Unknown strategy"
	}
}

// ParseStrategy converts a string to a Strategy. An empty string yields
// the default.
func ParseStrategy(s string) (Strategy, error) {
	if s == "" {
		return DefaultStrategy, nil
	}
	st := Strategy(s)
	if !st.IsValid() {
		return "", fmt.Errorf("unknown conflict strategy: %q (want one of %v)", s, AllStrategies())
	}
	return st, nil
}

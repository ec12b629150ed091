package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Mode selects the search algorithm.
type Mode uint8

const (
	// Exhaustive is plain minimax over the full game tree.
	Exhaustive Mode = iota
	// AlphaBeta is minimax with alpha-beta pruning; it returns the same
	// value as Exhaustive on every position.
	AlphaBeta
	// DepthLimited cuts the tree at MaxDepth and scores the frontier
	// with the weighted line-counting evaluator.
	DepthLimited
)

func (m Mode) String() string {
	switch m {
	case Exhaustive:
		return "minimax"
	case AlphaBeta:
		return "alphabeta"
	case DepthLimited:
		return "depth"
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

// ParseMode accepts the names used in configuration files and forms.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "minimax", "exhaustive", "a":
		return Exhaustive, nil
	case "alphabeta", "alpha-beta", "ab", "b":
		return AlphaBeta, nil
	case "depth", "depth-limited", "heuristic", "c":
		return DepthLimited, nil
	}
	return 0, fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, s)
}

// Scale is the score awarded to a won position, negated for a loss.
type Scale int

const (
	UnitScale Scale = 1
	TenScale  Scale = 10
	WideScale Scale = 10000
)

// Sentinels seed min/max accumulators and the alpha-beta window. Every
// genuine score lies strictly between them.
const (
	ScoreLow  = -1 << 30
	ScoreHigh = 1 << 30
)

// Weights of the line-counting evaluator:
// C3*c3 + N2*n2 + C2*c2 + N1*n1 + C1*c1.
type Weights struct {
	C3 int `toml:"c3"`
	N2 int `toml:"n2"`
	C2 int `toml:"c2"`
	N1 int `toml:"n1"`
	C1 int `toml:"c1"`
}

var (
	ReferenceWeights  = Weights{C3: 123, N2: -63, C2: 31, N1: -15, C1: 7}
	SimplifiedWeights = Weights{C3: 1230, N2: -63, C2: 31}
	UnitWeights       = Weights{C3: 1, N2: -1, C2: 1, N1: -1, C1: 1}
)

var namedWeights = []struct {
	name string
	w    Weights
}{
	{"reference", ReferenceWeights},
	{"simplified", SimplifiedWeights},
	{"unit", UnitWeights},
}

// ParseWeights looks up a named weight set.
func ParseWeights(s string) (Weights, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, nw := range namedWeights {
		if nw.name == s {
			return nw.w, nil
		}
	}
	return Weights{}, fmt.Errorf("%w: unknown weights %q", ErrInvalidConfig, s)
}

func (w Weights) String() string {
	for _, nw := range namedWeights {
		if nw.w == w {
			return nw.name
		}
	}
	return fmt.Sprintf("%d*c3%+d*n2%+d*c2%+d*n1%+d*c1", w.C3, w.N2, w.C2, w.N1, w.C1)
}

// Bound is the largest magnitude Score can reach. Each of the 8 lines
// falls into at most one counted category.
func (w Weights) Bound() int {
	m := 0
	for _, v := range []int{w.C3, w.N2, w.C2, w.N1, w.C1} {
		if v < 0 {
			v = -v
		}
		m = max(m, v)
	}
	return 8 * m
}

// Config describes one engine variant.
type Config struct {
	Mode    Mode
	Scale   Scale
	Weights Weights
	// MaxDepth is only read in DepthLimited mode. The position handed to
	// the search is depth 0.
	MaxDepth int
	// Ordering sorts alpha-beta children by a shallow pre-score and the
	// session's history table.
	Ordering bool
	// Parallel searches the root moves concurrently.
	Parallel bool
}

var ErrInvalidConfig = errors.New("invalid engine config")

// DefaultConfig returns the usual settings for mode: ±10 for minimax, ±1 for
// alpha-beta and a two-ply horizon on ±10000 for the depth-limited search.
func DefaultConfig(mode Mode) Config {
	switch mode {
	case AlphaBeta:
		return Config{Mode: AlphaBeta, Scale: UnitScale, Weights: ReferenceWeights}
	case DepthLimited:
		return Config{Mode: DepthLimited, Scale: WideScale, Weights: ReferenceWeights, MaxDepth: 2}
	default:
		return Config{Mode: Exhaustive, Scale: TenScale, Weights: ReferenceWeights}
	}
}

// Validate checks that the score ranges cannot collide.
func (c Config) Validate() error {
	switch c.Mode {
	case Exhaustive, AlphaBeta, DepthLimited:
	default:
		return fmt.Errorf("%w: unknown mode %d", ErrInvalidConfig, c.Mode)
	}
	if c.Scale <= 0 {
		return fmt.Errorf("%w: scale must be positive, got %d", ErrInvalidConfig, c.Scale)
	}
	if int(c.Scale) >= ScoreHigh {
		return fmt.Errorf("%w: scale %d reaches the sentinel range", ErrInvalidConfig, c.Scale)
	}
	if c.Mode != DepthLimited {
		return nil
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("%w: negative max depth %d", ErrInvalidConfig, c.MaxDepth)
	}
	if b := c.Weights.Bound(); int(c.Scale) <= b {
		return fmt.Errorf("%w: scale %d does not exceed evaluator bound %d", ErrInvalidConfig, c.Scale, b)
	}
	return nil
}

func (c Config) String() string {
	switch c.Mode {
	case DepthLimited:
		return fmt.Sprintf("%s(depth=%d, weights=%s, scale=%d)", c.Mode, c.MaxDepth, c.Weights, c.Scale)
	case AlphaBeta:
		if c.Ordering {
			return fmt.Sprintf("%s(scale=%d, ordered)", c.Mode, c.Scale)
		}
	}
	return fmt.Sprintf("%s(scale=%d)", c.Mode, c.Scale)
}

package boxblur

import (
	"errors"
	"fmt"
	"math"

	"github.com/boatbomber/boxblur/internal/lru"
)

// Passes is the number of box-blur passes used to approximate a Gaussian.
const Passes = 3

// DefaultPlannerCapacity bounds the radius memo of the default planner.
const DefaultPlannerCapacity = 256

// MinStrength is the smallest supported blur strength. Any finite value
// greater than zero is accepted; at the low end every pass degenerates
// to radius 0 or 1.
const MinStrength = math.SmallestNonzeroFloat64

// ErrInvalidStrength is returned for a non-positive, NaN or infinite strength.
var ErrInvalidStrength = errors.New("blur strength must be a finite number greater than zero")

// BoxRadii holds the radius of each of the three box-blur passes.
type BoxRadii [Passes]int

// ComputeBoxRadii converts a Gaussian-like strength (standard deviation) into
// the three box radii whose successive passes approximate that Gaussian.
func ComputeBoxRadii(strength float64) (BoxRadii, error) {
	if err := checkStrength(strength); err != nil {
		return BoxRadii{}, err
	}
	return boxRadii(strength), nil
}

func checkStrength(strength float64) error {
	if !(strength > 0) || math.IsInf(strength, 0) {
		return fmt.Errorf("%w: got %v", ErrInvalidStrength, strength)
	}
	return nil
}

// boxRadii assumes a valid strength.
func boxRadii(strength float64) BoxRadii {
	ideal := math.Sqrt(12*strength*strength/Passes + 1)

	lower := int(math.Floor(ideal))
	if lower%2 == 0 {
		lower--
	}
	upper := (lower + 1) / 2

	return BoxRadii{(lower - 1) / 2, upper, upper}
}

// Planner memoizes ComputeBoxRadii in a bounded LRU cache.
// The cache is a pure performance optimization: hits return exactly what a
// fresh computation would. A Planner is safe for concurrent use.
type Planner struct {
	cache *lru.Cache[uint64, BoxRadii]
}

// NewPlanner creates a planner whose cache holds at most capacity strengths.
// A non-positive capacity selects the cache default.
func NewPlanner(capacity int) *Planner {
	return &Planner{cache: lru.New[uint64, BoxRadii](capacity)}
}

var defaultPlanner = NewPlanner(DefaultPlannerCapacity)

// DefaultPlanner returns the process-wide planner used when a Processor has none.
func DefaultPlanner() *Planner {
	return defaultPlanner
}

// Radii returns the box radii for strength, computing them on a cache miss.
// Keys are the exact bit pattern of strength.
// Invalid strengths are rejected before the cache is consulted.
func (p *Planner) Radii(strength float64) (BoxRadii, error) {
	if err := checkStrength(strength); err != nil {
		return BoxRadii{}, err
	}
	return p.cache.GetOrCreate(math.Float64bits(strength), func() BoxRadii {
		return boxRadii(strength)
	}), nil
}

// Len returns the number of memoized strengths.
func (p *Planner) Len() int { return p.cache.Len() }

// Clear drops every memoized strength.
func (p *Planner) Clear() { p.cache.Clear() }

// Stats returns the cache counters.
func (p *Planner) Stats() lru.Stats { return p.cache.Stats() }

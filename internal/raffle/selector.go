package raffle

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"ms-engagement/internal/rejection"
)

// Scheme maps an attendee's points to a relative draw weight.
type Scheme string

const (
	// SchemeLinear weights by points through the cumulative-distribution walk.
	SchemeLinear Scheme = "linear"
	// SchemeShares gives one entry per point and draws uniformly among entries.
	// Probabilistically identical to SchemeLinear.
	SchemeShares Scheme = "shares"
	// SchemeWeighted weights by points cubed, favouring heavy scanners.
	SchemeWeighted Scheme = "weighted"
)

var ErrNoEligible = rejection.EmptyPool("no eligible attendees")

func ParseScheme(s string) (Scheme, error) {
	switch Scheme(strings.ToLower(strings.TrimSpace(s))) {
	case SchemeLinear:
		return SchemeLinear, nil
	case SchemeShares:
		return SchemeShares, nil
	case SchemeWeighted:
		return SchemeWeighted, nil
	}
	return "", rejection.Validation(fmt.Sprintf("invalid raffle type %q", s))
}

// Source is the randomness a draw consumes. *rand.Rand satisfies it.
type Source interface {
	Float64() float64
	Intn(n int) int
}

// NewSource returns a seeded source; equal seeds reproduce equal draws.
func NewSource(seed int64) Source {
	return rand.New(rand.NewSource(seed))
}

// Candidate is the part of an attendee the selector looks at.
type Candidate struct {
	ID     string
	Points int
}

// Weight returns the draw weight of points under the scheme.
func (s Scheme) Weight(points int) float64 {
	if points <= 0 {
		return 0
	}
	p := float64(points)
	if s == SchemeWeighted {
		return p * p * p
	}
	return p
}

// Select picks exactly one index of candidates with probability
// weight(i) / sum(weight).
func Select(candidates []Candidate, scheme Scheme, src Source) (int, error) {
	if scheme == SchemeShares {
		return selectShares(candidates, src)
	}
	return selectCumulative(candidates, scheme, src)
}

func selectCumulative(candidates []Candidate, scheme Scheme, src Source) (int, error) {
	total := 0.0
	for _, c := range candidates {
		total += scheme.Weight(c.Points)
	}
	if len(candidates) == 0 || total <= 0 || math.IsInf(total, 0) {
		return 0, ErrNoEligible
	}

	r := src.Float64() * total
	cumulative := 0.0
	last := -1
	for i, c := range candidates {
		w := scheme.Weight(c.Points)
		if w <= 0 {
			continue
		}
		last = i
		cumulative += w
		if r <= cumulative {
			return i, nil
		}
	}

	// rounding can leave r just above the final cumulative sum
	return last, nil
}

// selectShares draws one share uniformly and walks the running share count
// to its owner, so memory stays linear in the number of candidates.
func selectShares(candidates []Candidate, src Source) (int, error) {
	total := 0
	for _, c := range candidates {
		if c.Points > 0 {
			total += c.Points
		}
	}
	if total <= 0 {
		return 0, ErrNoEligible
	}

	k := src.Intn(total)
	cumulative := 0
	last := -1
	for i, c := range candidates {
		if c.Points <= 0 {
			continue
		}
		last = i
		cumulative += c.Points
		if k < cumulative {
			return i, nil
		}
	}
	return last, nil
}

// Probabilities returns each candidate's chance of winning one draw under the scheme.
func Probabilities(candidates []Candidate, scheme Scheme) []float64 {
	out := make([]float64, len(candidates))
	total := 0.0
	for _, c := range candidates {
		total += scheme.Weight(c.Points)
	}
	if total <= 0 {
		return out
	}
	for i, c := range candidates {
		out[i] = scheme.Weight(c.Points) / total
	}
	return out
}

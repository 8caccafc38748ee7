package raffle

import (
	"ms-engagement/internal/models"
	"ms-engagement/internal/rejection"
)

var ErrNoneRemaining = rejection.EmptyPool("no eligible attendees remaining")

// Draw is the outcome of one selection over a pool.
type Draw struct {
	Winner      models.Attendee
	Scheme      Scheme
	Weight      float64
	Probability float64
}

// DrawFrom selects one winner and returns the pool the next draw must use.
// With allowRepeat the pool comes back unchanged.
func DrawFrom(pool Pool, scheme Scheme, src Source, allowRepeat bool) (Draw, Pool, error) {
	if pool.Empty() {
		return Draw{}, pool, ErrNoneRemaining
	}

	candidates := pool.Candidates()
	idx, err := Select(candidates, scheme, src)
	if err != nil {
		return Draw{}, pool, ErrNoneRemaining.With(err)
	}

	winner := pool.attendees[idx]
	draw := Draw{
		Winner:      winner,
		Scheme:      scheme,
		Weight:      scheme.Weight(winner.Points),
		Probability: Probabilities(candidates, scheme)[idx],
	}

	if allowRepeat {
		return draw, pool, nil
	}
	return draw, pool.Without(winner.ID), nil
}

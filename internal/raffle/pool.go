package raffle

import (
	"context"
	"sort"

	"ms-engagement/internal/models"
	"ms-engagement/internal/rejection"
)

// EligibleSource loads the attendees that may enter a raffle.
type EligibleSource interface {
	LoadEligibleAttendees(ctx context.Context) ([]models.Attendee, error)
}

// Pool is an immutable snapshot of raffle candidates ordered by points
// descending, then id. Removing a winner yields a new Pool.
type Pool struct {
	attendees   []models.Attendee
	totalPoints int
}

// NewPool applies the eligibility filter and the stable display order.
func NewPool(attendees []models.Attendee) Pool {
	eligible := make([]models.Attendee, 0, len(attendees))
	total := 0
	for _, a := range attendees {
		if !a.RaffleEligible() {
			continue
		}
		eligible = append(eligible, a)
		total += a.Points
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		if eligible[i].Points != eligible[j].Points {
			return eligible[i].Points > eligible[j].Points
		}
		return eligible[i].ID < eligible[j].ID
	})
	return Pool{attendees: eligible, totalPoints: total}
}

// LoadEligible snapshots the eligible pool from storage.
func LoadEligible(ctx context.Context, source EligibleSource) (Pool, error) {
	attendees, err := source.LoadEligibleAttendees(ctx)
	if err != nil {
		return Pool{}, rejection.Storage("failed to load eligible attendees", err)
	}
	return NewPool(attendees), nil
}

func (p Pool) Len() int {
	return len(p.attendees)
}

func (p Pool) Empty() bool {
	return len(p.attendees) == 0
}

func (p Pool) TotalPoints() int {
	return p.totalPoints
}

func (p Pool) Attendees() []models.Attendee {
	out := make([]models.Attendee, len(p.attendees))
	copy(out, p.attendees)
	return out
}

func (p Pool) Candidates() []Candidate {
	out := make([]Candidate, len(p.attendees))
	for i, a := range p.attendees {
		out[i] = Candidate{ID: a.ID, Points: a.Points}
	}
	return out
}

func (p Pool) Contains(id string) bool {
	for _, a := range p.attendees {
		if a.ID == id {
			return true
		}
	}
	return false
}

// Without returns the pool minus id, with the running total reduced by its points.
func (p Pool) Without(id string) Pool {
	next := Pool{attendees: make([]models.Attendee, 0, len(p.attendees)), totalPoints: p.totalPoints}
	for _, a := range p.attendees {
		if a.ID == id {
			next.totalPoints -= a.Points
			continue
		}
		next.attendees = append(next.attendees, a)
	}
	return next
}

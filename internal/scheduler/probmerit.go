package scheduler

import "math/rand"

// ProbMerit picks cell i with probability merit_i / sum(merit_j) on every
// call, via a weighted random draw.
type ProbMerit struct {
	baseWeights
	rng *rand.Rand
}

func NewProbMerit(numCells int, rng *rand.Rand) *ProbMerit {
	return &ProbMerit{baseWeights: newBaseWeights(numCells), rng: rng}
}

func (p *ProbMerit) NextID() int {
	total := 0.0
	for _, m := range p.merit {
		total += m
	}
	if total <= 0 {
		return -1
	}
	draw := p.rng.Float64() * total
	running := 0.0
	for id, m := range p.merit {
		running += m
		if draw < running {
			return id
		}
	}
	// Floating point rounding can leave draw just past the last
	// cumulative sum; fall back to the last weighted cell.
	for id := len(p.merit) - 1; id >= 0; id-- {
		if p.merit[id] > 0 {
			return id
		}
	}
	return -1
}

func (p *ProbMerit) Adjust(cellID int, merit float64)    { p.adjust(cellID, merit) }
func (p *ProbMerit) SetChangeHook(hook func(cellID int)) { p.setChangeHook(hook) }
func (p *ProbMerit) NumCells() int                       { return p.numCells() }
func (p *ProbMerit) OK() bool                            { return p.ok() }

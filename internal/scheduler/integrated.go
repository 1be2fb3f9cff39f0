package scheduler

// IntegratedMerit deterministically interleaves cells so each cell i is
// chosen with long-run frequency proportional to merit_i. It tracks how
// many times each cell has run and always picks the cell whose
// virtual-time key (timesRun+1)/merit is smallest, breaking ties by the
// lowest cell id — a canonical, reproducible ordering even when merits
// tie exactly.
type IntegratedMerit struct {
	baseWeights
	timesRun []int64
}

func NewIntegratedMerit(numCells int) *IntegratedMerit {
	return &IntegratedMerit{
		baseWeights: newBaseWeights(numCells),
		timesRun:    make([]int64, numCells),
	}
}

func (s *IntegratedMerit) NextID() int {
	best := -1
	var bestKey float64
	for id, m := range s.merit {
		if m <= 0 {
			continue
		}
		key := float64(s.timesRun[id]+1) / m
		if best == -1 || key < bestKey {
			best = id
			bestKey = key
		}
	}
	if best == -1 {
		return -1
	}
	s.timesRun[best]++
	return best
}

func (s *IntegratedMerit) Adjust(cellID int, merit float64)    { s.adjust(cellID, merit) }
func (s *IntegratedMerit) SetChangeHook(hook func(cellID int)) { s.setChangeHook(hook) }
func (s *IntegratedMerit) NumCells() int                       { return s.numCells() }
func (s *IntegratedMerit) OK() bool                             { return s.ok() }

package deme

import (
	"math"
	"math/rand"
	"sort"

	"avidacore/internal/grid"
)

// Env is the adapter the population façade implements so this package
// never needs to know about organisms or classification directly.
type Env interface {
	IsOccupied(cellID int) bool
	Kill(cellID int)
	// Clone copies the organism occupying src into dst, killing whatever
	// occupied dst first. Cloning a cell into itself is a valid no-op
	// re-injection used by ResetDemes.
	Clone(src, dst int)
	Rotate(cellID, towardCellID int)

	Fitness(cellID int) float64     // current-phenotype fitness, mode 2/4
	LifeFitness(cellID int) float64 // mode 5/6
	DivType(cellID int) float64     // mode 3

	SetMerit(cellID int, merit float64)

	Rand() *rand.Rand
}

// Mode selects the per-deme fitness function CompeteDemes uses to weight
// repopulation, per spec §4.7.
type Mode int

const (
	ModeConstant Mode = iota
	ModeBirthCount
	ModeMeanFitness
	ModeMeanInvDivType
	ModeRankFitness
	ModeMeanLifeFitness
	ModeRankLifeFitness
)

// Trigger selects the condition ReplicateDemes checks before replicating
// a deme.
type Trigger int

const (
	TriggerAllNonEmpty Trigger = iota
	TriggerFull
	TriggerCorners
)

func meanOver(d *Deme, env Env, score func(int) float64) float64 {
	var sum float64
	n := 0
	for _, c := range d.Cells {
		if env.IsOccupied(c) {
			sum += score(c)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// baseFitness computes the per-deme fitness vector for every mode except
// the two rank-derived ones, which need this as their input.
func baseFitness(s *Set, env Env, mode Mode) []float64 {
	out := make([]float64, len(s.Demes))
	for i := range s.Demes {
		d := &s.Demes[i]
		switch mode {
		case ModeConstant:
			out[i] = 1
		case ModeBirthCount:
			out[i] = float64(d.BirthCount)
		case ModeMeanFitness, ModeRankFitness:
			out[i] = meanOver(d, env, env.Fitness)
		case ModeMeanInvDivType:
			out[i] = meanOver(d, env, func(c int) float64 {
				dt := env.DivType(c)
				if dt == 0 {
					return 0
				}
				return 1 / dt
			})
		case ModeMeanLifeFitness, ModeRankLifeFitness:
			out[i] = meanOver(d, env, env.LifeFitness)
		}
	}
	return out
}

// rank assigns 1-based competition ranks in descending order of value:
// rank(v) = 1 + count(values strictly greater than v). Every deme tied
// within a group shares that group's best rank, so ties never demote a
// tied deme below another member of its own group.
func rank(values []float64) []int {
	n := len(values)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return values[order[a]] > values[order[b]] })

	out := make([]int, n)
	i := 0
	for i < n {
		j := i
		for j+1 < n && values[order[j+1]] == values[order[i]] {
			j++
		}
		r := i + 1
		for k := i; k <= j; k++ {
			out[order[k]] = r
		}
		i = j + 1
	}
	return out
}

func fitnessVector(s *Set, env Env, mode Mode) []float64 {
	switch mode {
	case ModeRankFitness:
		base := baseFitness(s, env, ModeMeanFitness)
		ranks := rank(base)
		out := make([]float64, len(base))
		for i, r := range ranks {
			out[i] = math.Pow(2, -float64(r))
		}
		return out
	case ModeRankLifeFitness:
		base := baseFitness(s, env, ModeMeanLifeFitness)
		ranks := rank(base)
		out := make([]float64, len(base))
		for i, r := range ranks {
			out[i] = math.Pow(2, -float64(r))
		}
		return out
	default:
		return baseFitness(s, env, mode)
	}
}

func weightedDraw(fitness []float64, sum float64, rng *rand.Rand) int {
	if sum <= 0 {
		return rng.Intn(len(fitness))
	}
	x := rng.Float64() * sum
	var acc float64
	for i, f := range fitness {
		acc += f
		if x < acc {
			return i
		}
	}
	return len(fitness) - 1
}

// CompeteDemes repopulates the deme array by sampling num_demes parents
// weighted by per-mode fitness, copying over-sampled demes into demes
// that were not sampled at all, and re-injecting every other deme into
// itself. Grounded on cPopulation::CompeteDemes.
func CompeteDemes(s *Set, env Env, mode Mode) {
	n := len(s.Demes)
	if n == 0 {
		return
	}
	fitness := fitnessVector(s, env, mode)
	var sum float64
	for _, f := range fitness {
		sum += f
	}

	rng := env.Rand()
	counts := make([]int, n)
	for i := 0; i < n; i++ {
		counts[weightedDraw(fitness, sum, rng)]++
	}

	var pool []int
	for d, c := range counts {
		if c == 0 {
			pool = append(pool, d)
		}
	}

	for d, c := range counts {
		for extra := 1; extra < c; extra++ {
			target := pool[len(pool)-1]
			pool = pool[:len(pool)-1]
			copyDemeInto(s, d, target, env)
		}
	}
	for d, c := range counts {
		if c == 1 {
			reinjectDeme(s.Deme(d), env)
		}
	}

	for i := range s.Demes {
		s.Demes[i].Reset()
	}
}

func copyDemeInto(s *Set, a, b int, env Env) {
	src, dst := s.Deme(a), s.Deme(b)
	for i := range src.Cells {
		srcCell, dstCell := src.Cells[i], dst.Cells[i]
		if env.IsOccupied(srcCell) {
			env.Clone(srcCell, dstCell)
		} else {
			env.Kill(dstCell)
		}
	}
}

func reinjectDeme(d *Deme, env Env) {
	for _, c := range d.Cells {
		if env.IsOccupied(c) {
			env.Clone(c, c)
		}
	}
}

// CopyDeme mirrors a onto b including empty cells.
func CopyDeme(s *Set, a, b int, env Env) {
	copyDemeInto(s, a, b, env)
}

// ResetDemes re-injects every occupant of every deme into its own cell.
func ResetDemes(s *Set, env Env) {
	for i := range s.Demes {
		reinjectDeme(&s.Demes[i], env)
	}
}

func killDeme(d *Deme, env Env, except int) {
	for _, c := range d.Cells {
		if c == except {
			continue
		}
		env.Kill(c)
	}
}

func pickOccupied(d *Deme, env Env) (int, bool) {
	var occupied []int
	for _, c := range d.Cells {
		if env.IsOccupied(c) {
			occupied = append(occupied, c)
		}
	}
	if len(occupied) == 0 {
		return 0, false
	}
	return occupied[env.Rand().Intn(len(occupied))], true
}

func pickDifferentDeme(s *Set, exclude int, rng *rand.Rand) int {
	if len(s.Demes) < 2 {
		return exclude
	}
	for {
		d := rng.Intn(len(s.Demes))
		if d != exclude {
			return d
		}
	}
}

// ReplicateDemes walks every deme and, for each matching trigger,
// replaces a random different target deme and the source deme itself
// with clones of one randomly chosen source occupant, facing both
// injected clones toward their north-west neighbor.
func ReplicateDemes(s *Set, g *grid.Grid, env Env, trigger Trigger) {
	for i := range s.Demes {
		src := &s.Demes[i]
		if !triggerMatch(src, env, trigger) {
			continue
		}
		srcCell, ok := pickOccupied(src, env)
		if !ok {
			continue
		}
		targetID := pickDifferentDeme(s, src.ID, env.Rand())
		target := s.Deme(targetID)

		targetCentral := target.CentralCellID()
		killDeme(target, env, -1)
		env.Clone(srcCell, targetCentral)

		sourceCentral := src.CentralCellID()
		killDeme(src, env, srcCell)
		env.Clone(srcCell, sourceCentral)
		if sourceCentral != srcCell {
			env.Kill(srcCell)
		}

		faceNorthWest(g, env, targetCentral)
		faceNorthWest(g, env, sourceCentral)
	}
}

func faceNorthWest(g *grid.Grid, env Env, cellID int) {
	if nw, ok := g.NeighborOffset(cellID, -1, -1); ok {
		env.Rotate(cellID, nw)
	}
}

func triggerMatch(d *Deme, env Env, trigger Trigger) bool {
	switch trigger {
	case TriggerFull:
		return countOccupied(d, env) == d.Size()
	case TriggerCorners:
		return cornersOccupied(d, env)
	default:
		return countOccupied(d, env) > 0
	}
}

func countOccupied(d *Deme, env Env) int {
	n := 0
	for _, c := range d.Cells {
		if env.IsOccupied(c) {
			n++
		}
	}
	return n
}

// cornersOccupied treats the deme's cell list as the row-major w x h
// rectangle it was built from and checks its four corners.
func cornersOccupied(d *Deme, env Env) bool {
	n := len(d.Cells)
	w := d.Width
	if n == 0 || w <= 0 || n%w != 0 {
		return false
	}
	h := n / w
	corners := []int{0, w - 1, (h-1)*w, n - 1}
	for _, idx := range corners {
		if !env.IsOccupied(d.Cells[idx]) {
			return false
		}
	}
	return true
}

// DivideDemes splits every full deme: odd-indexed occupants clone into
// even-indexed cells of a random different target deme (which is wiped
// first), the moved originals are killed, and every surviving organism
// in both demes receives merit 100*2^distinctTasks.
func DivideDemes(s *Set, env Env, distinctTasks func(demeID int) int) {
	for i := range s.Demes {
		src := &s.Demes[i]
		if countOccupied(src, env) != src.Size() {
			continue
		}
		targetID := pickDifferentDeme(s, src.ID, env.Rand())
		target := s.Deme(targetID)
		n := src.Size()
		if n > target.Size() {
			n = target.Size()
		}

		distinct := distinctTasks(src.ID)
		killDeme(target, env, -1)

		for idx := 1; idx < n; idx += 2 {
			env.Clone(src.Cells[idx], target.Cells[idx-1])
		}
		for idx := 1; idx < n; idx += 2 {
			env.Kill(src.Cells[idx])
		}

		merit := 100 * math.Pow(2, float64(distinct))
		for idx := 0; idx < n; idx += 2 {
			env.SetMerit(src.Cells[idx], merit)
			env.SetMerit(target.Cells[idx], merit)
		}
	}
}

// SpawnDeme wipes b and clones a random occupant of a into a random
// cell of b.
func SpawnDeme(s *Set, a, b int, env Env) {
	src := s.Deme(a)
	dst := s.Deme(b)
	srcCell, ok := pickOccupied(src, env)
	if !ok {
		return
	}
	killDeme(dst, env, -1)
	dstCell := dst.Cells[env.Rand().Intn(dst.Size())]
	env.Clone(srcCell, dstCell)
}

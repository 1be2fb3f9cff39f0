// Package placement implements the child-position policy engine: given a
// parent cell and a parent_ok flag, decide which cell a new child will
// occupy.
package placement

import "math/rand"

type Policy int

// Codes below NumLocalPositionChild select among the parent and its
// neighbors ("local" methods); the rest pick globally. Placement
// dispatch and config validation both rely on this partition.
const (
	PolicyRandom Policy = iota
	PolicyAge
	PolicyMerit
	PolicyEmpty
	NumLocalPositionChild
)

const (
	PolicyFullSoupRandom Policy = NumLocalPositionChild + iota
	PolicyFullSoupEldest
	PolicyDemeRandom
	PolicyParentFacing
	PolicyNextCell
)

func (p Policy) IsLocal() bool {
	return p < NumLocalPositionChild
}

// Env is the adapter the population façade implements so this package
// never needs to know about organisms, grids, or demes directly.
type Env interface {
	NumCells() int
	Connections(cellID int) []int
	IsOccupied(cellID int) bool
	Age(cellID int) int
	MeritRatio(cellID int) float64 // merit / gestation_time
	CellFaced(cellID int) int

	HasDemes() bool
	DemeIDOf(cellID int) int
	DemeSize(demeID int) int
	DemeCellID(demeID, index int) int
	IncDemeBirthCount(demeID int)

	Rand() *rand.Rand
}

// Config carries the two config-file knobs that affect placement.
type Config struct {
	Policy      Policy
	PreferEmpty bool
}

// Select runs the full PositionChild contract and returns the target
// cell id. If demes exist and the chosen method is local, or the method
// is deme_random, the parent's deme birth count is incremented as a side
// effect, matching spec §4.5.
func Select(env Env, reaper *ReaperQueue, parentCell int, parentOK bool, cfg Config) int {
	switch cfg.Policy {
	case PolicyFullSoupRandom:
		return selectFullSoupRandom(env, parentCell, parentOK)
	case PolicyFullSoupEldest:
		return selectFullSoupEldest(reaper, parentCell, parentOK)
	case PolicyDemeRandom:
		return selectDemeRandom(env, parentCell, parentOK)
	case PolicyParentFacing:
		return env.CellFaced(parentCell)
	case PolicyNextCell:
		return (parentCell + 1) % env.NumCells()
	default:
		return selectLocal(env, parentCell, parentOK, cfg)
	}
}

func selectFullSoupRandom(env Env, parentCell int, parentOK bool) int {
	n := env.NumCells()
	out := env.Rand().Intn(n)
	for !parentOK && out == parentCell {
		out = env.Rand().Intn(n)
	}
	return out
}

func selectFullSoupEldest(reaper *ReaperQueue, parentCell int, parentOK bool) int {
	out := reaper.PopBack()
	if out == -1 {
		return parentCell
	}
	if !parentOK && out == parentCell {
		next := reaper.PopBack()
		reaper.PushBack(parentCell)
		if next == -1 {
			return parentCell
		}
		out = next
	}
	return out
}

func selectDemeRandom(env Env, parentCell int, parentOK bool) int {
	demeID := env.DemeIDOf(parentCell)
	size := env.DemeSize(demeID)
	idx := env.Rand().Intn(size)
	out := env.DemeCellID(demeID, idx)
	for !parentOK && out == parentCell {
		idx = env.Rand().Intn(size)
		out = env.DemeCellID(demeID, idx)
	}
	env.IncDemeBirthCount(demeID)
	return out
}

func selectLocal(env Env, parentCell int, parentOK bool, cfg Config) int {
	conns := env.Connections(parentCell)
	var candidates []int

	if cfg.Policy == PolicyEmpty {
		candidates = emptyNeighbors(env, conns)
	} else if cfg.PreferEmpty {
		if empty := emptyNeighbors(env, conns); len(empty) > 0 {
			candidates = empty
		}
	}

	if candidates == nil {
		switch cfg.Policy {
		case PolicyAge:
			candidates = scoreMax(conns, parentCell, parentOK, func(id int) float64 {
				return float64(env.Age(id))
			})
		case PolicyMerit:
			candidates = scoreMax(conns, parentCell, parentOK, env.MeritRatio)
		case PolicyRandom:
			candidates = append([]int{}, conns...)
			if parentOK {
				candidates = append(candidates, parentCell)
			}
		case PolicyEmpty:
			// candidates stays nil: no empty neighbors found.
		}
	}

	if env.HasDemes() {
		env.IncDemeBirthCount(env.DemeIDOf(parentCell))
	}

	if len(candidates) == 0 {
		return parentCell
	}
	return candidates[env.Rand().Intn(len(candidates))]
}

func emptyNeighbors(env Env, conns []int) []int {
	var out []int
	for _, id := range conns {
		if !env.IsOccupied(id) {
			out = append(out, id)
		}
	}
	return out
}

// scoreMax mirrors cPopulation::PositionAge/PositionMerit: start from the
// parent (its score disqualified to -1 when parent_ok is false), then
// scan every neighbor in connection order (an empty neighbor gets
// whatever score env reports for it), keeping only those tied for the
// maximum score.
func scoreMax(conns []int, parentCell int, parentOK bool, score func(id int) float64) []int {
	best := score(parentCell)
	if !parentOK {
		best = -1
	}
	found := []int{parentCell}

	for _, id := range conns {
		cur := score(id)
		switch {
		case cur > best:
			best = cur
			found = []int{id}
		case cur == best:
			found = append(found, id)
		}
	}
	return found
}

// FacesParentAfterBirth applies the rotate-toward-parent rule: for local
// methods and parent_facing, the child cell faces the parent it was born
// from.
func FacesParentAfterBirth(policy Policy) bool {
	return policy.IsLocal() || policy == PolicyParentFacing
}

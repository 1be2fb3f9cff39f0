// Package deme implements the group-selection engine: fitness
// evaluation, probabilistic deme copying, replication, and division.
package deme

import (
	"fmt"

	"avidacore/internal/grid"
)

// Deme is a contiguous sub-grid treated as a group-selection unit.
type Deme struct {
	ID         int
	Cells      []int
	Width      int
	OrgCount   int
	BirthCount int
}

func (d *Deme) Size() int          { return len(d.Cells) }
func (d *Deme) GetCellID(i int) int { return d.Cells[i] }
func (d *Deme) IncBirthCount()     { d.BirthCount++ }
func (d *Deme) IncOrgCount()       { d.OrgCount++ }
func (d *Deme) DecOrgCount()       { d.OrgCount-- }

func (d *Deme) Reset() {
	d.BirthCount = 0
}

// CentralCellID returns the middle entry of the deme's cell list
// (index Size()/2). For a deme with an even number of rows that is the
// first cell of row h/2, not the rectangle's geometric center.
func (d *Deme) CentralCellID() int {
	return d.Cells[len(d.Cells)/2]
}

// Set is the ordered collection of every deme partitioning the grid.
type Set struct {
	Demes []Deme
}

// NewSet builds a Set from a grid that has already been partitioned
// (grid.New cuts deme walls and stamps DemeID on construction).
func NewSet(g *grid.Grid) (*Set, error) {
	if g.NumDemes <= 1 {
		return &Set{}, nil
	}
	s := &Set{Demes: make([]Deme, g.NumDemes)}
	for i := range s.Demes {
		s.Demes[i].ID = i
		s.Demes[i].Width = g.W
	}
	for i := range g.Cells {
		d := g.Cells[i].DemeID
		if d < 0 || d >= len(s.Demes) {
			return nil, fmt.Errorf("deme: cell %d has out-of-range deme id %d", i, d)
		}
		s.Demes[d].Cells = append(s.Demes[d].Cells, g.Cells[i].ID)
	}
	return s, nil
}

func (s *Set) NumDemes() int { return len(s.Demes) }

func (s *Set) Deme(id int) *Deme { return &s.Demes[id] }

// OK checks the §3 invariant that each deme's org_count equals the number
// of occupied cells it owns, given an occupancy predicate.
func (s *Set) OK(isOccupied func(cellID int) bool) bool {
	for i := range s.Demes {
		d := &s.Demes[i]
		n := 0
		for _, c := range d.Cells {
			if isOccupied(c) {
				n++
			}
		}
		if n != d.OrgCount {
			return false
		}
	}
	return true
}

// Package grid implements the static spatial topology of the population:
// cell identity, neighbor adjacency, and deme-wall partitioning.
package grid

import "fmt"

type Geometry int

const (
	GeometryBounded Geometry = iota
	GeometryTorus
)

func ParseGeometry(s string) (Geometry, error) {
	switch s {
	case "grid":
		return GeometryBounded, nil
	case "torus":
		return GeometryTorus, nil
	default:
		return 0, fmt.Errorf("grid: unknown geometry %q (want %q or %q)", s, "grid", "torus")
	}
}

// offsets is the clockwise-from-south-west neighbor order; the contract in
// spec §4.1 requires placement policies to see connections in exactly this
// order.
var offsets = [8][2]int{
	{-1, 1},  // SW
	{-1, 0},  // W
	{-1, -1}, // NW
	{0, -1},  // N
	{1, -1},  // NE
	{1, 0},   // E
	{1, 1},   // SE
	{0, 1},   // S
}

// Grid is the fixed W x H topology. It never changes shape after
// construction except for the one-time deme-wall cut.
type Grid struct {
	W, H     int
	Geometry Geometry
	NumDemes int
	Cells    []Cell
}

// New builds a grid of w*h cells with the given geometry and cuts deme
// walls if numDemes > 1. numDemes == 0 means "no deme partitioning" and
// is treated identically to numDemes == 1.
func New(w, h int, geom Geometry, numDemes int) (*Grid, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("grid: invalid dimensions %dx%d", w, h)
	}
	if numDemes > 0 && h%numDemes != 0 {
		return nil, fmt.Errorf("grid: %d rows do not divide evenly into %d demes", h, numDemes)
	}

	g := &Grid{W: w, H: h, Geometry: geom, NumDemes: numDemes, Cells: make([]Cell, w*h)}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			id := y*w + x
			c := &g.Cells[id]
			c.ID = id
			c.X = x
			c.Y = y
			c.FacedCellID = -1
			c.Connections = g.buildConnections(x, y)
		}
	}

	g.assignDemes(numDemes)
	if numDemes > 1 {
		g.cutDemeWalls(numDemes)
	}

	return g, nil
}

func (g *Grid) buildConnections(x, y int) []int {
	conns := make([]int, 0, 8)
	for _, off := range offsets {
		nx, ny := x+off[0], y+off[1]
		id, ok := g.neighbor(nx, ny)
		if ok {
			conns = append(conns, id)
		}
	}
	return conns
}

// neighbor resolves raw (possibly out-of-range) coordinates into a cell id
// under the grid's geometry. For torus geometry it always succeeds; for
// bounded geometry it fails (ok=false) outside [0,W) x [0,H).
func (g *Grid) neighbor(x, y int) (int, bool) {
	if g.Geometry == GeometryTorus {
		x = ((x % g.W) + g.W) % g.W
		y = ((y % g.H) + g.H) % g.H
		return y*g.W + x, true
	}
	if x < 0 || x >= g.W || y < 0 || y >= g.H {
		return 0, false
	}
	return y*g.W + x, true
}

func (g *Grid) assignDemes(numDemes int) {
	if numDemes <= 1 {
		return
	}
	rowsPerDeme := g.H / numDemes
	for i := range g.Cells {
		c := &g.Cells[i]
		c.DemeID = c.Y / rowsPerDeme
	}
}

// cutDemeWalls removes the three cross-boundary connections at every
// horizontal deme seam, symmetrically on both endpoints. Seam d=0 is the
// wraparound between the last and first rows; it only has edges to cut
// on a torus.
func (g *Grid) cutDemeWalls(numDemes int) {
	rowsPerDeme := g.H / numDemes
	for d := 0; d < numDemes; d++ {
		r := d * rowsPerDeme
		for c := 0; c < g.W; c++ {
			idA, ok := g.neighbor(c, r)
			if !ok {
				continue
			}
			for _, dx := range []int{-1, 0, 1} {
				idB, ok := g.neighbor(c+dx, r-1)
				if !ok {
					continue
				}
				g.removeEdge(idA, idB)
			}
		}
	}
}

func (g *Grid) removeEdge(a, b int) {
	g.Cells[a].Connections = removeID(g.Cells[a].Connections, b)
	g.Cells[b].Connections = removeID(g.Cells[b].Connections, a)
}

func removeID(list []int, id int) []int {
	out := list[:0]
	for _, v := range list {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// NeighborOffset resolves the cell geometrically dx,dy away from id,
// independent of whether that relation survived a deme-wall cut. Used by
// operations (like deme replication) that need an explicit compass
// direction rather than the connection list.
func (g *Grid) NeighborOffset(id, dx, dy int) (int, bool) {
	c := &g.Cells[id]
	return g.neighbor(c.X+dx, c.Y+dy)
}

func (g *Grid) Cell(id int) *Cell {
	return &g.Cells[id]
}

func (g *Grid) NumCells() int {
	return len(g.Cells)
}

// OK runs the grid self-check described in spec §6: cell count must match
// W*H and no connection list may contain a self-reference.
func (g *Grid) OK() bool {
	if len(g.Cells) != g.W*g.H {
		return false
	}
	for i := range g.Cells {
		c := &g.Cells[i]
		if c.ID != i {
			return false
		}
		if c.hasConnection(c.ID) {
			return false
		}
	}
	return true
}

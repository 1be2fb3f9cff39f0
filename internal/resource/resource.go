// Package resource implements per-resource diffusion/inflow/outflow,
// with optional spatial (per-cell) variants, consumed and replenished
// once per organism step.
package resource

import (
	"fmt"
	"math"
)

// Def describes one resource's static parameters, set at construction
// (NewField); Field has no method that changes them afterwards.
type Def struct {
	Name    string
	Inflow  float64
	Outflow float64 // decay = 1 - Outflow

	Spatial bool
	// XDiffuse/YDiffuse are the diffusion coefficients; XGravity/YGravity
	// the drift coefficients, applied only when Spatial is true.
	XDiffuse, YDiffuse float64
	XGravity, YGravity float64

	// Inflow/outflow window, in cell coordinates, for spatial resources.
	X1, X2, Y1, Y2 int
}

type resourceState struct {
	def   Def
	level float64      // meaningful for non-spatial resources
	grid  []float64    // meaningful for spatial resources, len W*H
}

// Field is the full set of resources tracked by a population, plus the
// world dimensions needed to interpret spatial grids.
type Field struct {
	W, H      int
	resources []resourceState
	byName    map[string]int
}

func NewField(w, h int, defs []Def) (*Field, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("resource: invalid dimensions %dx%d", w, h)
	}
	f := &Field{W: w, H: h, byName: make(map[string]int, len(defs))}
	for _, d := range defs {
		if _, dup := f.byName[d.Name]; dup {
			return nil, fmt.Errorf("resource: duplicate resource name %q", d.Name)
		}
		rs := resourceState{def: d}
		if d.Spatial {
			rs.grid = make([]float64, w*h)
		}
		f.byName[d.Name] = len(f.resources)
		f.resources = append(f.resources, rs)
	}
	return f, nil
}

func (f *Field) indexOf(id int) (*resourceState, error) {
	if id < 0 || id >= len(f.resources) {
		return nil, fmt.Errorf("resource: id %d out of range", id)
	}
	return &f.resources[id], nil
}

func (f *Field) IndexByName(name string) (int, bool) {
	id, ok := f.byName[name]
	return id, ok
}

func (f *Field) NumResources() int { return len(f.resources) }

// Update advances every resource by dt virtual-time units: spatial
// resources diffuse/drift/flow on their grid; global resources integrate
// level <- level*decay^dt + inflow*dt, whose steady state is
// inflow/(1-decay) at dt == 1 (inflow*dt/(1-decay^dt) in general).
func (f *Field) Update(dt float64) {
	for i := range f.resources {
		rs := &f.resources[i]
		if rs.def.Spatial {
			f.updateSpatial(rs, dt)
		} else {
			f.updateGlobal(rs, dt)
		}
	}
}

func (f *Field) updateGlobal(rs *resourceState, dt float64) {
	decay := 1 - rs.def.Outflow
	rs.level = rs.level*pow(decay, dt) + rs.def.Inflow*dt
	if rs.level < 0 {
		rs.level = 0
	}
}

func pow(base, exp float64) float64 {
	if base <= 0 {
		return 0
	}
	return math.Pow(base, exp)
}

func (f *Field) updateSpatial(rs *resourceState, dt float64) {
	decay := 1 - rs.def.Outflow
	next := make([]float64, len(rs.grid))
	for y := 0; y < f.H; y++ {
		for x := 0; x < f.W; x++ {
			id := y*f.W + x
			v := rs.grid[id] * pow(decay, dt)

			// Diffusion: average with neighbors weighted by coefficient.
			if rs.def.XDiffuse > 0 || rs.def.YDiffuse > 0 {
				left := f.wrapGet(rs.grid, x-1, y)
				right := f.wrapGet(rs.grid, x+1, y)
				up := f.wrapGet(rs.grid, x, y-1)
				down := f.wrapGet(rs.grid, x, y+1)
				v += rs.def.XDiffuse * dt * ((left + right)/2 - rs.grid[id])
				v += rs.def.YDiffuse * dt * ((up + down) / 2 - rs.grid[id])
			}

			// Gravity drift: pull mass from the upstream neighbor.
			if rs.def.XGravity != 0 {
				src := f.wrapGet(rs.grid, x-sign(rs.def.XGravity), y)
				v += rs.def.XGravity * dt * (src - rs.grid[id])
			}
			if rs.def.YGravity != 0 {
				src := f.wrapGet(rs.grid, x, y-sign(rs.def.YGravity))
				v += rs.def.YGravity * dt * (src - rs.grid[id])
			}

			if inWindow(x, y, rs.def) {
				v += rs.def.Inflow * dt
				v -= rs.def.Outflow * rs.grid[id] * dt
			}

			if v < 0 {
				v = 0
			}
			next[id] = v
		}
	}
	rs.grid = next
}

func inWindow(x, y int, d Def) bool {
	if d.X2 > d.X1 && (x < d.X1 || x >= d.X2) {
		return false
	}
	if d.Y2 > d.Y1 && (y < d.Y1 || y >= d.Y2) {
		return false
	}
	return true
}

func sign(v float64) int {
	if v > 0 {
		return 1
	}
	if v < 0 {
		return -1
	}
	return 0
}

func (f *Field) wrapGet(grid []float64, x, y int) float64 {
	x = ((x % f.W) + f.W) % f.W
	y = ((y % f.H) + f.H) % f.H
	return grid[y*f.W+x]
}

// Get returns the current level of a global resource, clamped to zero.
func (f *Field) Get(id int) (float64, error) {
	rs, err := f.indexOf(id)
	if err != nil {
		return 0, err
	}
	if rs.level < 0 {
		return 0, nil
	}
	return rs.level, nil
}

// Set overrides a global resource's level directly.
func (f *Field) Set(id int, v float64) error {
	rs, err := f.indexOf(id)
	if err != nil {
		return err
	}
	rs.level = v
	return nil
}

// Modify adjusts a global resource by delta (organism consumption is
// negative, production positive).
func (f *Field) Modify(id int, delta float64) error {
	rs, err := f.indexOf(id)
	if err != nil {
		return err
	}
	rs.level += delta
	if rs.level < 0 {
		rs.level = 0
	}
	return nil
}

// GetCell returns the level of a spatial resource at a single cell.
func (f *Field) GetCell(id, cellID int) (float64, error) {
	rs, err := f.indexOf(id)
	if err != nil {
		return 0, err
	}
	if !rs.def.Spatial {
		return 0, fmt.Errorf("resource: %q is not spatial", rs.def.Name)
	}
	v := rs.grid[cellID]
	if v < 0 {
		return 0, nil
	}
	return v, nil
}

// ModifyCell adjusts a spatial resource vector at one cell; negative
// results clamp to zero per-cell.
func (f *Field) ModifyCell(id int, delta float64, cellID int) error {
	rs, err := f.indexOf(id)
	if err != nil {
		return err
	}
	if !rs.def.Spatial {
		return fmt.Errorf("resource: %q is not spatial", rs.def.Name)
	}
	rs.grid[cellID] += delta
	if rs.grid[cellID] < 0 {
		rs.grid[cellID] = 0
	}
	return nil
}

package grid

// MutationRates holds the per-cell mutation probabilities that a child
// inherits from the cell it is born into, not from its parent.
type MutationRates struct {
	CopyMutProb float64
	DivMutProb  float64
	InsMutProb  float64
	DelMutProb  float64
}

// Cell is a single grid location. Connections is ordered clockwise
// starting from south-west; placement policies rely on that order for
// tie-breaking, so it must never be re-sorted after construction.
type Cell struct {
	ID   int
	X, Y int

	Connections []int
	FacedCellID int // -1 until Rotate is called

	MutationRates MutationRates
	DemeID        int

	// Occupant is opaque to the grid package. The population façade
	// stores a *organism.Organism here and is the only consumer that
	// casts it back.
	Occupant any
}

func (c *Cell) Occupied() bool {
	return c.Occupant != nil
}

// Rotate points the cell's faced direction toward towardCellID.
func (c *Cell) Rotate(towardCellID int) {
	c.FacedCellID = towardCellID
}

// CellFaced returns the cell id this cell currently faces, or -1 if
// Rotate was never called.
func (c *Cell) CellFaced() int {
	return c.FacedCellID
}

func (c *Cell) hasConnection(id int) bool {
	for _, n := range c.Connections {
		if n == id {
			return true
		}
	}
	return false
}

package population

import (
	"context"
	"fmt"
)

// ProcessStep runs one virtual-CPU step for the organism at cellID.
// Preconditions: the cell must be occupied and stepSize must be
// positive — both are defensive asserts, not recoverable failures.
// SingleProcess may reentrantly trigger births (ActivateOffspring),
// parasite injection, kills, and scheduler adjustments before
// returning. A Kill of this organism during that call completes
// immediately; the Running flag only marks it PendingDelete, and
// ProcessStep then skips aging and the ToDelete check for it.
func (p *Population) ProcessStep(ctx context.Context, stepSize float64, cellID int) error {
	if stepSize <= 0 {
		return fmt.Errorf("population: ProcessStep: step_size %v <= 0", stepSize)
	}
	org := p.organismAt(cellID)
	if org == nil {
		return fmt.Errorf("population: ProcessStep: cell %d is not occupied", cellID)
	}

	org.Running = true
	err := org.Hardware.SingleProcess(ctx)
	org.Running = false

	if !org.PendingDelete() {
		org.Pheno.IncAge()
		if org.Pheno.ToDelete() {
			p.Kill(cellID)
		}
	}

	p.Resources.Update(stepSize)
	p.Update++

	return err
}

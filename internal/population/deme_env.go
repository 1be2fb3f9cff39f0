package population

import (
	"context"

	"avidacore/internal/organism"
)

// The methods below satisfy deme.Env. IsOccupied is already defined in
// placement_env.go, Kill in lifecycle.go, and Rand in population.go —
// deme.Env's signatures for those match the ones placement.Env and the
// lifecycle methods already require.

// Clone materializes a fresh organism carrying src's genome into dst,
// killing whatever currently occupies dst first. Used by every
// deme-level copy operation (CompeteDemes, ReplicateDemes, DivideDemes,
// CopyDeme, SpawnDeme), none of which go through BirthChamber.
func (p *Population) Clone(src, dst int) {
	source := p.organismAt(src)
	if source == nil {
		p.Kill(dst)
		return
	}

	hw := p.NewHardware(source.Genome)
	pheno := p.NewPhenotype()
	pheno.SetupClone(source.Pheno)

	child := &organism.Organism{
		Genome:       source.Genome,
		Hardware:     hw,
		Pheno:        pheno,
		LineageLabel: source.LineageLabel,
	}
	child.Genotype = p.Classification.GetGenotype(child.Genome, source.Genotype, nil)

	_ = p.Activate(context.Background(), child, dst)
}

func (p *Population) Rotate(cellID, towardCellID int) {
	p.cell(cellID).Rotate(towardCellID)
}

func (p *Population) Fitness(cellID int) float64 {
	org := p.organismAt(cellID)
	if org == nil {
		return 0
	}
	return org.Pheno.Fitness()
}

func (p *Population) LifeFitness(cellID int) float64 {
	org := p.organismAt(cellID)
	if org == nil {
		return 0
	}
	return org.Pheno.LifeFitness()
}

func (p *Population) DivType(cellID int) float64 {
	org := p.organismAt(cellID)
	if org == nil {
		return 0
	}
	return org.Pheno.DivType()
}

func (p *Population) SetMerit(cellID int, merit float64) {
	org := p.organismAt(cellID)
	if org == nil {
		return
	}
	org.Pheno.SetMerit(merit)
	p.Scheduler.Adjust(cellID, merit)
}

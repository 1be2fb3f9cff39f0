package population

import (
	"context"
	"fmt"
	"io"

	"avidacore/internal/organism"
	"avidacore/internal/persistence/clone"
)

// detailedGenotype is the archive-internal accessor surface that
// sqlitearchive.Genotype exposes beyond organism.Genotype. SaveClone
// degrades gracefully (zero-valued fields) against a Classification
// implementation that doesn't provide it.
type detailedGenotype interface {
	ParentID() int64
	Depth() int
	UpdateBorn() int64
	UpdateDead() int64
	MeritSum() float64
	GestationSum() float64
	FitnessSum() float64
}

// genotypeRestorer is the archive-internal injection surface
// sqlitearchive.Archive exposes for LoadClone/LoadDumpFile
// reconstruction, beyond organism.Classification.
type genotypeRestorer interface {
	Restore(id int64, genome organism.Genome, parentID int64, depth int, updateBorn, updateDead int64, meritSum, gestationSum, fitnessSum float64) organism.Genotype
}

// SaveClone writes the full population state to w in the spec §6
// line-oriented clone format: every live genotype (best-first) plus
// one cell->genotype-id mapping entry per grid cell.
func (p *Population) SaveClone(w io.Writer, archiveBlob string) error {
	snap := clone.Snapshot{
		Update:         p.Update,
		ArchiveBlob:    archiveBlob,
		CellGenotypeID: make([]int64, p.Grid.NumCells()),
	}

	genomeByID := make(map[int64]organism.Genome)
	var order []organism.Genotype
	for g := p.Classification.GetBestGenotype(); g != nil; g = p.Classification.Next(g) {
		genomeByID[g.ID()] = g.Genome()
		order = append(order, g)
	}

	for _, g := range order {
		rec := clone.GenotypeRecord{
			ID:      g.ID(),
			NumCPUs: g.NumOrganisms(),
			TotalCPUs: g.NumOrganisms(),
			Length:  g.Genome().Size(),
			Genome:  g.Genome().String(),
		}
		if d, ok := g.(detailedGenotype); ok {
			rec.ParentID = d.ParentID()
			rec.Depth = d.Depth()
			rec.UpdateBorn = d.UpdateBorn()
			rec.UpdateDead = d.UpdateDead()
			rec.Merit = d.MeritSum()
			rec.GestTime = d.GestationSum()
			rec.Fitness = d.FitnessSum()
			if parentGenome, ok := genomeByID[rec.ParentID]; ok {
				rec.ParentDist = g.Genome().HammingDistance(parentGenome)
			}
		}
		snap.Genotypes = append(snap.Genotypes, rec)
	}

	for i := 0; i < p.Grid.NumCells(); i++ {
		org := p.organismAt(i)
		if org == nil {
			snap.CellGenotypeID[i] = -1
		} else {
			snap.CellGenotypeID[i] = org.Genotype.ID()
		}
	}

	return clone.Save(w, snap)
}

// LoadClone reads a clone snapshot from r and repopulates the grid: the
// archive is restored genotype-by-genotype (via Restore if the
// Classification supports it), then every non-empty cell gets a fresh
// organism instantiated through NewHardware/NewPhenotype/NewGenome and
// installed via Activate.
func (p *Population) LoadClone(r io.Reader) error {
	snap, err := clone.Load(r, p.Update)
	if err != nil {
		return err
	}
	if len(snap.CellGenotypeID) != p.Grid.NumCells() {
		return fmt.Errorf("population: LoadClone: %d cells in snapshot, grid has %d", len(snap.CellGenotypeID), p.Grid.NumCells())
	}

	restorer, canRestore := p.Classification.(genotypeRestorer)
	genomeByGenotypeID := make(map[int64]organism.Genome)

	for _, rec := range snap.Genotypes {
		genome := p.NewGenome(rec.Genome)
		genomeByGenotypeID[rec.ID] = genome
		if canRestore {
			restorer.Restore(rec.ID, genome, rec.ParentID, rec.Depth, rec.UpdateBorn, rec.UpdateDead, rec.Merit, rec.GestTime, rec.Fitness)
		}
	}

	p.Update = snap.Update
	for cellID, genoID := range snap.CellGenotypeID {
		if genoID < 0 {
			continue
		}
		genome, ok := genomeByGenotypeID[genoID]
		if !ok {
			return fmt.Errorf("population: LoadClone: cell %d references unknown genotype id %d", cellID, genoID)
		}
		org := &organism.Organism{
			Genome:   genome,
			Hardware: p.NewHardware(genome),
			Pheno:    p.NewPhenotype(),
		}
		if err := p.Activate(context.Background(), org, cellID); err != nil {
			return err
		}
	}
	return nil
}

// LoadDumpFile parses a standalone archive dump (not tied to any grid
// state) and seeds one freshly constructed genotype per record into the
// Classification archive, for reseeding a fresh grid from historical
// lineage data rather than a live snapshot. Returns the parse errors
// LoadDumpFile's line-level tolerance collected, if any.
func (p *Population) LoadDumpFile(r io.Reader) ([]organism.Genotype, []error) {
	records, errs := clone.LoadDumpFile(r, p.Update)
	restorer, canRestore := p.Classification.(genotypeRestorer)
	if !canRestore {
		return nil, append(errs, fmt.Errorf("population: LoadDumpFile: Classification does not support Restore"))
	}

	out := make([]organism.Genotype, 0, len(records))
	for _, rec := range records {
		genome := p.NewGenome(rec.Genome)
		g := restorer.Restore(rec.ID, genome, rec.ParentID, rec.Depth, rec.UpdateBorn, rec.UpdateDead, rec.Merit, rec.GestTime, rec.Fitness)
		out = append(out, g)
	}
	return out, errs
}

package population

import (
	"math"

	"avidacore/internal/transport/observer"
)

// OrganismStats holds the aggregate quantities UpdateOrganismStats
// produces: pure read-only walks over every occupied cell.
type OrganismStats struct {
	NumOrganisms   int
	AverageFitness float64
	AverageMerit   float64
	MaxFitness     float64
	MaxMerit       float64
	AverageAge     float64
}

// UpdateOrganismStats walks every occupied cell once and returns
// averages and maxes over the live phenotype population.
func (p *Population) UpdateOrganismStats() OrganismStats {
	var st OrganismStats
	var fitnessSum, meritSum float64
	var ageSum int

	for i := 0; i < p.Grid.NumCells(); i++ {
		org := p.organismAt(i)
		if org == nil {
			continue
		}
		st.NumOrganisms++
		f := org.Pheno.Fitness()
		m := org.Pheno.Merit()
		fitnessSum += f
		meritSum += m
		ageSum += org.Pheno.Age()
		if f > st.MaxFitness {
			st.MaxFitness = f
		}
		if m > st.MaxMerit {
			st.MaxMerit = m
		}
	}

	if st.NumOrganisms > 0 {
		n := float64(st.NumOrganisms)
		st.AverageFitness = fitnessSum / n
		st.AverageMerit = meritSum / n
		st.AverageAge = float64(ageSum) / n
	}
	return st
}

// GenotypeStats holds the archive-wide aggregates UpdateGenotypeStats
// produces: genotype count and Shannon diversity over genotype
// abundance (organism count per genotype, as a fraction of the total
// population).
type GenotypeStats struct {
	NumGenotypes     int
	ShannonDiversity float64
	AverageCopiedSize float64
	AverageExecutedSize float64
}

// sizeAccumulators is the optional detail surface sqlitearchive.Genotype
// exposes beyond organism.Genotype for the copied/executed size
// averages below.
type sizeAccumulators interface {
	CopiedSize() int
	ExecutedSize() int
}

// UpdateGenotypeStats walks the classification archive's best-first
// iteration once, computing genotype count and Shannon entropy
// -Σ p·log(p) over each genotype's share of the live population.
func (p *Population) UpdateGenotypeStats() GenotypeStats {
	var st GenotypeStats
	if p.NumOrganisms == 0 {
		return st
	}

	total := float64(p.NumOrganisms)
	var entropy, copiedSum, executedSum float64
	for g := p.Classification.GetBestGenotype(); g != nil; g = p.Classification.Next(g) {
		st.NumGenotypes++
		n := g.NumOrganisms()
		if n <= 0 {
			continue
		}
		frac := float64(n) / total
		entropy -= frac * math.Log(frac)
		if sz, ok := g.(sizeAccumulators); ok {
			copiedSum += float64(sz.CopiedSize())
			executedSum += float64(sz.ExecutedSize())
		}
	}
	st.ShannonDiversity = entropy
	if st.NumGenotypes > 0 {
		st.AverageCopiedSize = copiedSum / float64(st.NumGenotypes)
		st.AverageExecutedSize = executedSum / float64(st.NumGenotypes)
	}
	return st
}

// SpeciesStats is a task histogram: how many live organisms have
// performed each number of distinct tasks. The phenotype interface
// exposes only a count of distinct tasks performed, so this histogram
// buckets by that count rather than by task identity.
type SpeciesStats struct {
	ByDistinctTaskCount map[int]int
}

// UpdateSpeciesStats buckets every live organism by its number of
// distinct tasks performed.
func (p *Population) UpdateSpeciesStats() SpeciesStats {
	st := SpeciesStats{ByDistinctTaskCount: make(map[int]int)}
	for i := 0; i < p.Grid.NumCells(); i++ {
		org := p.organismAt(i)
		if org == nil {
			continue
		}
		st.ByDistinctTaskCount[org.Pheno.DistinctTasksPerformed()]++
	}
	return st
}

// DominantStats reports the genotype with the most living organisms;
// UpdateDominantStats returns (DominantStats{}, false) when the archive
// holds no genotype.
type DominantStats struct {
	GenotypeID   int64
	NumOrganisms int
	AbundanceFrac float64
}

// UpdateDominantStats returns the current best (most-organisms)
// genotype's summary.
func (p *Population) UpdateDominantStats() (DominantStats, bool) {
	best := p.Classification.GetBestGenotype()
	if best == nil {
		return DominantStats{}, false
	}
	var frac float64
	if p.NumOrganisms > 0 {
		frac = float64(best.NumOrganisms()) / float64(p.NumOrganisms)
	}
	return DominantStats{
		GenotypeID:    best.ID(),
		NumOrganisms:  best.NumOrganisms(),
		AbundanceFrac: frac,
	}, true
}

// Snapshot aggregates every stats pass into one observer.Snapshot,
// ready to broadcast over the read-only WebSocket feed.
func (p *Population) Snapshot() observer.Snapshot {
	os := p.UpdateOrganismStats()
	gs := p.UpdateGenotypeStats()
	return observer.Snapshot{
		Update:           p.Update,
		NumOrganisms:     os.NumOrganisms,
		NumGenotypes:     gs.NumGenotypes,
		AverageFitness:   os.AverageFitness,
		AverageMerit:     os.AverageMerit,
		MaxFitness:       os.MaxFitness,
		ShannonDiversity: gs.ShannonDiversity,
	}
}

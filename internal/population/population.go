// Package population is the façade tying together grid, resource,
// market, scheduler, placement, deme, and organism into the single
// cooperative executor spec §5 describes: one driver loop calling
// ProcessStep, with every subsystem mutated only through this package.
package population

import (
	"math/rand"

	demepkg "avidacore/internal/deme"
	"avidacore/internal/grid"
	"avidacore/internal/market"
	"avidacore/internal/organism"
	"avidacore/internal/persistence/lineagelog"
	"avidacore/internal/placement"
	"avidacore/internal/resource"
	"avidacore/internal/scheduler"
)

// Population owns every shared subsystem and is the only code allowed
// to mutate cell occupancy, classification reference counts, or deme
// bookkeeping.
type Population struct {
	Grid      *grid.Grid
	Demes     *demepkg.Set
	Resources *resource.Field
	Market    *market.Market
	Scheduler scheduler.Scheduler
	Reaper    *placement.ReaperQueue

	Classification organism.Classification
	BirthChamber   organism.BirthChamber
	Lineage        *lineagelog.Log

	PlacementCfg placement.Config

	// MaxCPUThreads caps how many threads a single organism's hardware
	// may run; ActivateParasite refuses to inject into a neighbor
	// already at this limit (spec §4.6).
	MaxCPUThreads int

	// NewHardware and NewPhenotype materialize fresh collaborator
	// instances for injection paths that do not go through
	// BirthChamber.SubmitOffspring: direct genome injection (used by
	// LoadClone) and deme-level cloning (CompeteDemes, CopyDeme,
	// ReplicateDemes, DivideDemes, SpawnDeme, ResetDemes), none of
	// which are a birth-chamber submission in the original model.
	NewHardware  func(genome organism.Genome) organism.Hardware
	NewPhenotype func() organism.Phenotype

	// NewGenome parses the textual genome representation used by the
	// clone/archive persistence format (SaveClone/LoadClone/
	// LoadDumpFile) back into an organism.Genome. Required only when
	// those operations are used.
	NewGenome func(seq string) organism.Genome

	NumOrganisms int
	Update       int64

	nextOrganismID int64
	rng            *rand.Rand
}

// New constructs a Population over an already-built grid/deme
// partition. placementCfg selects the birth-placement policy;
// schedulerImpl and classification are supplied by the caller (the CLI
// wires the config-selected scheduler and a sqlitearchive.Archive).
func New(
	g *grid.Grid,
	demes *demepkg.Set,
	resources *resource.Field,
	mkt *market.Market,
	sched scheduler.Scheduler,
	classification organism.Classification,
	birthChamber organism.BirthChamber,
	lineage *lineagelog.Log,
	placementCfg placement.Config,
	maxCPUThreads int,
	newHardware func(organism.Genome) organism.Hardware,
	newPhenotype func() organism.Phenotype,
	newGenome func(string) organism.Genome,
	seed int64,
) *Population {
	return &Population{
		Grid:           g,
		Demes:          demes,
		Resources:      resources,
		Market:         mkt,
		Scheduler:      sched,
		Reaper:         &placement.ReaperQueue{},
		Classification: classification,
		BirthChamber:   birthChamber,
		Lineage:        lineage,
		PlacementCfg:   placementCfg,
		MaxCPUThreads:  maxCPUThreads,
		NewHardware:    newHardware,
		NewPhenotype:   newPhenotype,
		NewGenome:      newGenome,
		rng:            rand.New(rand.NewSource(seed)),
	}
}

func (p *Population) Rand() *rand.Rand { return p.rng }

func (p *Population) cell(id int) *grid.Cell { return p.Grid.Cell(id) }

func (p *Population) organismAt(cellID int) *organism.Organism {
	occ := p.cell(cellID).Occupant
	if occ == nil {
		return nil
	}
	return occ.(*organism.Organism)
}

func (p *Population) nextID() int64 {
	p.nextOrganismID++
	return p.nextOrganismID
}

// OK runs the population-level self-check spec §6 requires: the
// scheduler, grid, and deme invariants must all hold, and num_organisms
// must equal the occupied-cell count.
func (p *Population) OK() bool {
	if !p.Grid.OK() {
		return false
	}
	if !p.Scheduler.OK() {
		return false
	}
	occupied := 0
	for i := 0; i < p.Grid.NumCells(); i++ {
		if p.Grid.Cell(i).Occupied() {
			occupied++
		}
	}
	if occupied != p.NumOrganisms {
		return false
	}
	if p.Demes != nil && p.Demes.NumDemes() > 0 {
		if !p.Demes.OK(func(cellID int) bool { return p.Grid.Cell(cellID).Occupied() }) {
			return false
		}
	}
	return true
}

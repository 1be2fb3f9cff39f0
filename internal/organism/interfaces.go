// Package organism defines the digital organism and the collaborator
// interfaces the population façade depends on but does not implement:
// Hardware (virtual-CPU execution), Classification (genotype archive),
// Phenotype (per-organism metrics), and BirthChamber (mate pairing /
// sexual recombination). These are specified only at their interfaces;
// instruction-set semantics and RNG primitives live outside this module.
package organism

import "context"

// Genome is an opaque instruction sequence; only its length matters to
// the lifecycle and placement logic in this module.
type Genome interface {
	Size() int
	// HammingDistance counts differing positions against other, used by
	// Kaboom's distance-based kill radius. Implementations may return an
	// arbitrarily large value if the genomes are not directly comparable.
	HammingDistance(other Genome) int
	// String returns the canonical instruction-sequence representation
	// used as the identity key for genotype classification and for the
	// clone/archive persistence formats.
	String() string
}

// Hardware is the virtual CPU driving one organism's execution.
type Hardware interface {
	SingleProcess(ctx context.Context) error
	GetMemory() Genome
	GetLabel() string
	NumThreads() int
	ThreadGetOwner() InjectGenotype
	ThreadSetOwner(g InjectGenotype)
	InjectHost(label string, code Genome) bool
}

// Genotype is the classification archive's handle on a canonicalized
// genome identity. It is reference-counted by the archive; the
// defer-adjust counter suppresses pruning during transient events (an
// organism dying while a new one is about to take over the same
// identity).
type Genotype interface {
	ID() int64
	Genome() Genome
	AddOrganism()
	RemoveOrganism()
	NumOrganisms() int
	IncDeferAdjust()
	DecDeferAdjust()

	AddGestationTime(v float64)
	AddFitness(v float64)
	AddMerit(v float64)
	AddCopiedSize(v int)
	AddExecutedSize(v int)
}

// InjectGenotype is the classification identity for a parasitic code
// payload, distinct from a host Genotype.
type InjectGenotype interface {
	Genome() Genome
	AddParasite()
	RemoveParasite()
}

// Classification is the genotype archive. It owns genotype identity and
// lifetime; the population only ever holds references through pin/unpin
// (IncDeferAdjust/DecDeferAdjust) and AdjustGenotype calls.
type Classification interface {
	GetGenotype(genome Genome, parent, parent2 Genotype) Genotype
	AdjustGenotype(g Genotype)

	GetInjectGenotype(code Genome, parent InjectGenotype) InjectGenotype
	AdjustInjectGenotype(g InjectGenotype)

	// GetBestGenotype/Next implement best-first iteration (by organism
	// count) over every live genotype, used by stats aggregation and by
	// SaveClone.
	GetBestGenotype() Genotype
	Next(g Genotype) Genotype
	GenotypeCount() int
}

// Phenotype is the organism's running metrics: merit, fitness, age,
// task-count vectors. The population façade reads and mutates it through
// this interface only.
type Phenotype interface {
	Merit() float64
	SetMerit(v float64)
	Fitness() float64
	LifeFitness() float64
	GestationTime() int
	DivType() float64
	CopiedSize() int
	ExecutedSize() int
	Age() int
	IncAge()
	NumDivides() int

	DistinctTasksPerformed() int

	SetupOffspring(parent Phenotype, childLength int)
	SetupClone(orig Phenotype)
	SetupInject(length int)
	DivideReset(parentGenomeSize int)

	ToDelete() bool
	SetToDelete(bool)
}

// BirthChamber pairs offspring genomes with potential mates, handling
// sexual recombination; asexual reproduction is the degenerate
// single-child case of the same interface.
type BirthChamber interface {
	SubmitOffspring(ctx context.Context, childGenome Genome, parent *Organism) ([]*Organism, []float64)
}

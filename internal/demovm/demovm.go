// Package demovm is a minimal, dependency-free stand-in for the
// instruction-set virtual CPU (organism.Hardware), genome representation,
// phenotype accounting, and birth-chamber mate pairing that spec.md §1
// scopes out of the core as external collaborators. It exists only so
// cmd/avidad has something concrete to wire up and drive end to end; it
// is not an Avida instruction set. A real deployment replaces this
// package with an actual genetic-language interpreter.
package demovm

import (
	"context"
	"math/rand"

	"avidacore/internal/organism"
)

// Genome is a flat byte sequence; "instructions" are opaque bytes and
// HammingDistance is a plain positional diff, same convention as the
// population package's own test fakes.
type Genome struct {
	seq []byte
}

func NewGenome(seq string) organism.Genome {
	return Genome{seq: []byte(seq)}
}

func (g Genome) Size() int { return len(g.seq) }

func (g Genome) HammingDistance(other organism.Genome) int {
	o, ok := other.(Genome)
	if !ok || len(o.seq) != len(g.seq) {
		return 1 << 30
	}
	d := 0
	for i := range g.seq {
		if g.seq[i] != o.seq[i] {
			d++
		}
	}
	return d
}

func (g Genome) String() string { return string(g.seq) }

// Hardware runs a trivial "replicate after gestationTicks steps" program:
// SingleProcess just counts ticks and, once the gestation clock expires,
// records a mutated copy of its own genome as pending offspring. The
// driver loop (cmd/avidad) polls Offspring after every ProcessStep and
// feeds it to population.ActivateOffspring; this polling handshake
// (rather than a callback baked into the organism.Hardware interface) is
// local to demovm and not part of the core interface.
type Hardware struct {
	genome Genome
	rng    *rand.Rand

	ticks    int
	gestation int

	owner organism.InjectGenotype

	pendingChild organism.Genome
	hasPending   bool
}

// NewHardware builds the organism.Hardware factory population.New
// expects: gestation time scales with genome length so longer genomes
// take proportionally longer to replicate, mirroring the real VM's
// execute-the-whole-copy-loop behavior without implementing one.
func NewHardware(rng *rand.Rand) func(organism.Genome) organism.Hardware {
	return func(g organism.Genome) organism.Hardware {
		gm, _ := g.(Genome)
		gestation := gm.Size() * 2
		if gestation <= 0 {
			gestation = 1
		}
		return &Hardware{genome: gm, rng: rng, gestation: gestation}
	}
}

func (h *Hardware) SingleProcess(ctx context.Context) error {
	h.ticks++
	if h.hasPending || h.ticks < h.gestation {
		return nil
	}
	h.ticks = 0
	h.pendingChild = mutate(h.genome, h.rng, 0.01)
	h.hasPending = true
	return nil
}

func (h *Hardware) GetMemory() organism.Genome             { return h.genome }
func (h *Hardware) GetLabel() string                       { return "demovm" }
func (h *Hardware) NumThreads() int                        { return 1 }
func (h *Hardware) ThreadGetOwner() organism.InjectGenotype { return h.owner }
func (h *Hardware) ThreadSetOwner(g organism.InjectGenotype) { h.owner = g }

// InjectHost always accepts the payload: demovm has no thread budget to
// enforce, so MAX_CPU_THREADS-style limits are left to the real VM.
func (h *Hardware) InjectHost(label string, code organism.Genome) bool { return true }

// Offspring returns the mutated genome recorded by the last
// SingleProcess call that crossed the gestation threshold, clearing the
// pending flag. Not part of organism.Hardware; discovered via type
// assertion by the driver loop.
func (h *Hardware) Offspring() (organism.Genome, bool) {
	if !h.hasPending {
		return nil, false
	}
	h.hasPending = false
	return h.pendingChild, true
}

func mutate(g Genome, rng *rand.Rand, rate float64) Genome {
	out := make([]byte, len(g.seq))
	copy(out, g.seq)
	for i := range out {
		if rng.Float64() < rate {
			out[i] = byte(rng.Intn(256))
		}
	}
	return Genome{seq: out}
}

// Phenotype tracks the handful of fields spec.md's Organism/Genotype
// accumulators need; fitness is merit divided by gestation time, the
// simplest faithful reading of spec §4.2's "fitness = merit / gestation
// time" note.
type Phenotype struct {
	merit      float64
	age        int
	divides    int
	gestation  int
	copiedSize int
}

func NewPhenotype() func() organism.Phenotype {
	return func() organism.Phenotype {
		return &Phenotype{merit: 1}
	}
}

func (p *Phenotype) Merit() float64     { return p.merit }
func (p *Phenotype) SetMerit(v float64) { p.merit = v }
func (p *Phenotype) Fitness() float64 {
	if p.gestation <= 0 {
		return p.merit
	}
	return p.merit / float64(p.gestation)
}
func (p *Phenotype) LifeFitness() float64 { return p.Fitness() }
func (p *Phenotype) GestationTime() int   { return p.gestation }
func (p *Phenotype) DivType() float64     { return 1 }
func (p *Phenotype) CopiedSize() int      { return p.copiedSize }
func (p *Phenotype) ExecutedSize() int    { return p.copiedSize }
func (p *Phenotype) Age() int             { return p.age }
func (p *Phenotype) IncAge()              { p.age++ }
func (p *Phenotype) NumDivides() int      { return p.divides }

func (p *Phenotype) DistinctTasksPerformed() int { return 0 }

func (p *Phenotype) SetupOffspring(parent organism.Phenotype, childLength int) {
	p.merit = 1
	p.copiedSize = childLength
}
func (p *Phenotype) SetupClone(orig organism.Phenotype) {
	p.merit = orig.Merit()
	p.copiedSize = orig.CopiedSize()
}
func (p *Phenotype) SetupInject(length int) { p.copiedSize = length }
func (p *Phenotype) DivideReset(parentGenomeSize int) {
	p.divides++
	p.gestation = p.age
	p.age = 0
}

func (p *Phenotype) ToDelete() bool     { return false }
func (p *Phenotype) SetToDelete(v bool) {}

// BirthChamber is asexual: every submission produces exactly one child
// carrying childGenome, with fresh Hardware/Phenotype built through the
// same factories population.New was given.
type BirthChamber struct {
	newHardware  func(organism.Genome) organism.Hardware
	newPhenotype func() organism.Phenotype
}

func NewBirthChamber(newHardware func(organism.Genome) organism.Hardware, newPhenotype func() organism.Phenotype) *BirthChamber {
	return &BirthChamber{newHardware: newHardware, newPhenotype: newPhenotype}
}

func (b *BirthChamber) SubmitOffspring(ctx context.Context, childGenome organism.Genome, parent *organism.Organism) ([]*organism.Organism, []float64) {
	child := &organism.Organism{
		Genome:   childGenome,
		Hardware: b.newHardware(childGenome),
		Pheno:    b.newPhenotype(),
	}
	return []*organism.Organism{child}, []float64{parent.Pheno.Merit()}
}

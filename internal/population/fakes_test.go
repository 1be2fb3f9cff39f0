package population

import (
	"context"
	"sort"

	"avidacore/internal/organism"
)

// fakeGenome is a minimal organism.Genome: a string sequence compared
// byte-by-byte for HammingDistance, the same convention as demovm.Genome.
type fakeGenome struct {
	seq string
}

func (g fakeGenome) Size() int { return len(g.seq) }

func (g fakeGenome) HammingDistance(other organism.Genome) int {
	o, ok := other.(fakeGenome)
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

func (g fakeGenome) String() string { return g.seq }

// fakeHardware is a no-op virtual CPU: SingleProcess does nothing unless
// onStep is set, letting tests script births/parasitism/self-kills.
type fakeHardware struct {
	label   string
	owner   organism.InjectGenotype
	onStep  func() error
	injectOK bool

	// numThreads overrides NumThreads's default of 1 when non-zero, so
	// tests can exercise the thread-limit guard in ActivateParasite.
	numThreads int
}

func (h *fakeHardware) SingleProcess(ctx context.Context) error {
	if h.onStep != nil {
		return h.onStep()
	}
	return nil
}
func (h *fakeHardware) GetMemory() organism.Genome         { return fakeGenome{} }
func (h *fakeHardware) GetLabel() string                   { return h.label }
func (h *fakeHardware) NumThreads() int {
	if h.numThreads != 0 {
		return h.numThreads
	}
	return 1
}
func (h *fakeHardware) ThreadGetOwner() organism.InjectGenotype { return h.owner }
func (h *fakeHardware) ThreadSetOwner(g organism.InjectGenotype) { h.owner = g }
func (h *fakeHardware) InjectHost(label string, code organism.Genome) bool {
	return h.injectOK
}

// fakePhenotype tracks every field the interface exposes as plain data.
type fakePhenotype struct {
	merit, fitness, life, div float64
	gestation                 int
	copied, executed          int
	age                       int
	divides                   int
	distinctTasks             int
	toDelete                  bool
}

func (p *fakePhenotype) Merit() float64        { return p.merit }
func (p *fakePhenotype) SetMerit(v float64)    { p.merit = v }
func (p *fakePhenotype) Fitness() float64      { return p.fitness }
func (p *fakePhenotype) LifeFitness() float64  { return p.life }
func (p *fakePhenotype) GestationTime() int    { return p.gestation }
func (p *fakePhenotype) DivType() float64      { return p.div }
func (p *fakePhenotype) CopiedSize() int       { return p.copied }
func (p *fakePhenotype) ExecutedSize() int     { return p.executed }
func (p *fakePhenotype) Age() int              { return p.age }
func (p *fakePhenotype) IncAge()               { p.age++ }
func (p *fakePhenotype) NumDivides() int       { return p.divides }
func (p *fakePhenotype) DistinctTasksPerformed() int { return p.distinctTasks }
func (p *fakePhenotype) SetupOffspring(parent organism.Phenotype, childLength int) {}
func (p *fakePhenotype) SetupClone(orig organism.Phenotype)                       {}
func (p *fakePhenotype) SetupInject(length int)                                   {}
func (p *fakePhenotype) DivideReset(parentGenomeSize int)                         { p.divides++ }
func (p *fakePhenotype) ToDelete() bool                                           { return p.toDelete }
func (p *fakePhenotype) SetToDelete(v bool)                                       { p.toDelete = v }

// fakeGenotype is an in-memory organism.Genotype with the detail
// accessors persistence.go looks for via optional interfaces.
type fakeGenotype struct {
	id       int64
	genome   organism.Genome
	parentID int64
	depth    int
	n        int
	defer_   int
	born, dead int64
	meritSum, gestSum, fitSum float64
	copiedSize, executedSize  int
}

func (g *fakeGenotype) ID() int64                { return g.id }
func (g *fakeGenotype) Genome() organism.Genome   { return g.genome }
func (g *fakeGenotype) AddOrganism()              { g.n++ }
func (g *fakeGenotype) RemoveOrganism()           { g.n-- }
func (g *fakeGenotype) NumOrganisms() int         { return g.n }
func (g *fakeGenotype) IncDeferAdjust()           { g.defer_++ }
func (g *fakeGenotype) DecDeferAdjust()           { g.defer_-- }
func (g *fakeGenotype) AddGestationTime(v float64) { g.gestSum += v }
func (g *fakeGenotype) AddFitness(v float64)       { g.fitSum += v }
func (g *fakeGenotype) AddMerit(v float64)         { g.meritSum += v }
func (g *fakeGenotype) AddCopiedSize(v int)        { g.copiedSize += v }
func (g *fakeGenotype) AddExecutedSize(v int)      { g.executedSize += v }
func (g *fakeGenotype) ParentID() int64            { return g.parentID }
func (g *fakeGenotype) Depth() int                 { return g.depth }
func (g *fakeGenotype) UpdateBorn() int64          { return g.born }
func (g *fakeGenotype) UpdateDead() int64          { return g.dead }
func (g *fakeGenotype) MeritSum() float64          { return g.meritSum }
func (g *fakeGenotype) GestationSum() float64      { return g.gestSum }
func (g *fakeGenotype) FitnessSum() float64        { return g.fitSum }
func (g *fakeGenotype) CopiedSize() int            { return g.copiedSize }
func (g *fakeGenotype) ExecutedSize() int          { return g.executedSize }

type fakeInjectGenotype struct {
	genome organism.Genome
	n      int
}

func (g *fakeInjectGenotype) Genome() organism.Genome { return g.genome }
func (g *fakeInjectGenotype) AddParasite()            { g.n++ }
func (g *fakeInjectGenotype) RemoveParasite()         { g.n-- }

// fakeClassification is a minimal in-memory organism.Classification,
// best-first ordered by NumOrganisms then insertion order, plus Restore
// for persistence round-trip tests.
type fakeClassification struct {
	nextID  int64
	byKey   map[string]*fakeGenotype
	order   []*fakeGenotype
	injects map[string]*fakeInjectGenotype
}

func newFakeClassification() *fakeClassification {
	return &fakeClassification{
		byKey:   make(map[string]*fakeGenotype),
		injects: make(map[string]*fakeInjectGenotype),
	}
}

func (c *fakeClassification) GetGenotype(genome organism.Genome, parent, parent2 organism.Genotype) organism.Genotype {
	key := genome.String()
	if g, ok := c.byKey[key]; ok {
		return g
	}
	c.nextID++
	g := &fakeGenotype{id: c.nextID, genome: genome}
	if parent != nil {
		g.parentID = parent.ID()
		if pg, ok := parent.(*fakeGenotype); ok {
			g.depth = pg.depth + 1
		}
	}
	c.byKey[key] = g
	c.order = append(c.order, g)
	return g
}

func (c *fakeClassification) AdjustGenotype(gi organism.Genotype) {
	g, ok := gi.(*fakeGenotype)
	if !ok || g.n > 0 || g.defer_ > 0 {
		return
	}
	delete(c.byKey, g.genome.String())
	for i, o := range c.order {
		if o == g {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func (c *fakeClassification) GetInjectGenotype(code organism.Genome, parent organism.InjectGenotype) organism.InjectGenotype {
	key := code.String()
	if g, ok := c.injects[key]; ok {
		return g
	}
	g := &fakeInjectGenotype{genome: code}
	c.injects[key] = g
	return g
}

func (c *fakeClassification) AdjustInjectGenotype(gi organism.InjectGenotype) {
	g, ok := gi.(*fakeInjectGenotype)
	if !ok || g.n > 0 {
		return
	}
	delete(c.injects, g.genome.String())
}

func (c *fakeClassification) bestOrder() []*fakeGenotype {
	out := append([]*fakeGenotype{}, c.order...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].n > out[j].n })
	return out
}

func (c *fakeClassification) GetBestGenotype() organism.Genotype {
	order := c.bestOrder()
	if len(order) == 0 {
		return nil
	}
	return order[0]
}

func (c *fakeClassification) Next(gi organism.Genotype) organism.Genotype {
	g, ok := gi.(*fakeGenotype)
	if !ok {
		return nil
	}
	order := c.bestOrder()
	for i, o := range order {
		if o == g && i+1 < len(order) {
			return order[i+1]
		}
	}
	return nil
}

func (c *fakeClassification) GenotypeCount() int { return len(c.order) }

func (c *fakeClassification) Restore(id int64, genome organism.Genome, parentID int64, depth int, updateBorn, updateDead int64, meritSum, gestationSum, fitnessSum float64) organism.Genotype {
	g := &fakeGenotype{
		id: id, genome: genome, parentID: parentID, depth: depth,
		born: updateBorn, dead: updateDead,
		meritSum: meritSum, gestSum: gestationSum, fitSum: fitnessSum,
	}
	c.byKey[genome.String()] = g
	c.order = append(c.order, g)
	if id >= c.nextID {
		c.nextID = id
	}
	return g
}

var _ organism.Classification = (*fakeClassification)(nil)

// fakeBirthChamber returns exactly one child per submission, asexual.
type fakeBirthChamber struct {
	merit float64
}

func (b *fakeBirthChamber) SubmitOffspring(ctx context.Context, childGenome organism.Genome, parent *organism.Organism) ([]*organism.Organism, []float64) {
	child := &organism.Organism{
		Genome:   childGenome,
		Hardware: &fakeHardware{},
		Pheno:    &fakePhenotype{merit: b.merit},
	}
	return []*organism.Organism{child}, []float64{b.merit}
}

func fakeNewHardware(g organism.Genome) organism.Hardware { return &fakeHardware{} }
func fakeNewPhenotype() organism.Phenotype                { return &fakePhenotype{} }
func fakeNewGenome(seq string) organism.Genome             { return fakeGenome{seq: seq} }

func mustOrganism(seq string, merit float64) *organism.Organism {
	return &organism.Organism{
		Genome:   fakeGenome{seq: seq},
		Hardware: &fakeHardware{},
		Pheno:    &fakePhenotype{merit: merit},
	}
}

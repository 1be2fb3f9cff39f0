package population

import (
	"bytes"
	"context"
	"testing"

	demepkg "avidacore/internal/deme"
	"avidacore/internal/grid"
	"avidacore/internal/market"
	"avidacore/internal/persistence/lineagelog"
	"avidacore/internal/placement"
	"avidacore/internal/resource"
	"avidacore/internal/scheduler"
)

func newTestPopulation(t *testing.T, w, h, numDemes int, cfg placement.Config) (*Population, *fakeClassification) {
	t.Helper()
	g, err := grid.New(w, h, grid.GeometryBounded, numDemes)
	if err != nil {
		t.Fatalf("grid.New: %v", err)
	}
	var demes *demepkg.Set
	if numDemes > 1 {
		demes, err = demepkg.NewSet(g)
		if err != nil {
			t.Fatalf("demepkg.NewSet: %v", err)
		}
	}
	res, err := resource.NewField(w, h, nil)
	if err != nil {
		t.Fatalf("resource.NewField: %v", err)
	}
	mkt := market.New(market.Config{Size: 4})
	sched := scheduler.NewConstant(w * h)
	cls := newFakeClassification()
	bc := &fakeBirthChamber{merit: 1}

	p := New(g, demes, res, mkt, sched, cls, bc, lineagelog.Open("", false), cfg, 8, fakeNewHardware, fakeNewPhenotype, fakeNewGenome, 1)
	return p, cls
}

func TestActivateAndKillBookkeeping(t *testing.T) {
	p, cls := newTestPopulation(t, 2, 2, 0, placement.Config{Policy: placement.PolicyRandom})

	org := mustOrganism("abc", 2)
	if err := p.Activate(context.Background(), org, 0); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if p.NumOrganisms != 1 {
		t.Fatalf("NumOrganisms = %d, want 1", p.NumOrganisms)
	}
	if !p.OK() {
		t.Fatal("OK() = false after activate")
	}
	if cls.GenotypeCount() != 1 {
		t.Fatalf("GenotypeCount = %d, want 1", cls.GenotypeCount())
	}

	p.Kill(0)
	if p.NumOrganisms != 0 {
		t.Fatalf("NumOrganisms after kill = %d, want 0", p.NumOrganisms)
	}
	if cls.GenotypeCount() != 0 {
		t.Fatalf("GenotypeCount after kill = %d, want 0 (genotype should be pruned)", cls.GenotypeCount())
	}
	if !p.OK() {
		t.Fatal("OK() = false after kill")
	}
}

func TestActivateRejectsTrivialGenome(t *testing.T) {
	p, _ := newTestPopulation(t, 2, 2, 0, placement.Config{})
	org := mustOrganism("a", 1)
	if err := p.Activate(context.Background(), org, 0); err == nil {
		t.Fatal("expected error activating a size-1 genome")
	}
}

func TestProcessStepAgesOrganismAndAdvancesUpdate(t *testing.T) {
	p, _ := newTestPopulation(t, 2, 2, 0, placement.Config{})
	org := mustOrganism("abc", 1)
	if err := p.Activate(context.Background(), org, 0); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	if err := p.ProcessStep(context.Background(), 1, 0); err != nil {
		t.Fatalf("ProcessStep: %v", err)
	}
	if org.Pheno.Age() != 1 {
		t.Fatalf("Age = %d, want 1", org.Pheno.Age())
	}
	if p.Update != 1 {
		t.Fatalf("Update = %d, want 1", p.Update)
	}
}

func TestProcessStepRejectsEmptyCell(t *testing.T) {
	p, _ := newTestPopulation(t, 2, 2, 0, placement.Config{})
	if err := p.ProcessStep(context.Background(), 1, 0); err == nil {
		t.Fatal("expected error stepping an unoccupied cell")
	}
}

func TestActivateOffspringSelfTargetMarksParentDead(t *testing.T) {
	// A 1x1 grid has no neighbors, so PolicyRandom's only candidate is
	// the parent cell itself: the child always lands on top of the
	// parent.
	p, cls := newTestPopulation(t, 1, 1, 0, placement.Config{Policy: placement.PolicyRandom})
	parent := mustOrganism("parent", 3)
	if err := p.Activate(context.Background(), parent, 0); err != nil {
		t.Fatalf("Activate parent: %v", err)
	}

	if err := p.ActivateOffspring(context.Background(), fakeGenome{seq: "child"}, parent, 0); err != nil {
		t.Fatalf("ActivateOffspring: %v", err)
	}

	if p.NumOrganisms != 1 {
		t.Fatalf("NumOrganisms = %d, want 1 (child replaced parent)", p.NumOrganisms)
	}
	installed := p.organismAt(0)
	if installed.Genome.String() != "child" {
		t.Fatalf("cell 0 genome = %q, want %q", installed.Genome.String(), "child")
	}
	if cls.GenotypeCount() != 1 {
		t.Fatalf("GenotypeCount = %d, want 1 (parent genotype pruned)", cls.GenotypeCount())
	}
}

func TestKaboomKillsOnlyDifferingGenomesWithinRadius(t *testing.T) {
	p, _ := newTestPopulation(t, 5, 5, 0, placement.Config{})
	center := 12 // (2,2)
	if err := p.Activate(context.Background(), mustOrganism("same", 1), center); err != nil {
		t.Fatalf("Activate center: %v", err)
	}
	sameNeighbor, _ := p.Grid.NeighborOffset(center, 1, 0)
	diffNeighbor, _ := p.Grid.NeighborOffset(center, -1, 0)
	if err := p.Activate(context.Background(), mustOrganism("same", 1), sameNeighbor); err != nil {
		t.Fatalf("Activate same: %v", err)
	}
	if err := p.Activate(context.Background(), mustOrganism("diff", 1), diffNeighbor); err != nil {
		t.Fatalf("Activate diff: %v", err)
	}

	p.Kaboom(center, 0)

	if p.organismAt(center) != nil {
		t.Error("center should always die")
	}
	if p.organismAt(sameNeighbor) == nil {
		t.Error("same-genotype neighbor should survive distance-0 kaboom")
	}
	if p.organismAt(diffNeighbor) != nil {
		t.Error("differing-genotype neighbor should die under distance-0 kaboom")
	}
}

func TestSerialTransferSamplesDownToK(t *testing.T) {
	p, _ := newTestPopulation(t, 4, 4, 0, placement.Config{})
	for i := 0; i < 10; i++ {
		if err := p.Activate(context.Background(), mustOrganism("abc", 1), i); err != nil {
			t.Fatalf("Activate %d: %v", i, err)
		}
	}

	p.SerialTransfer(4, false)

	if p.NumOrganisms != 4 {
		t.Fatalf("NumOrganisms after SerialTransfer = %d, want 4", p.NumOrganisms)
	}
}

func TestSerialTransferIgnoreDeadsKillsZeroFitness(t *testing.T) {
	p, _ := newTestPopulation(t, 2, 2, 0, placement.Config{})
	dead := mustOrganism("dead", 1)
	dead.Pheno.(*fakePhenotype).fitness = 0
	if err := p.Activate(context.Background(), dead, 0); err != nil {
		t.Fatalf("Activate dead: %v", err)
	}
	alive := mustOrganism("alive", 1)
	alive.Pheno.(*fakePhenotype).fitness = 1
	if err := p.Activate(context.Background(), alive, 1); err != nil {
		t.Fatalf("Activate alive: %v", err)
	}

	p.SerialTransfer(100, true)

	if p.organismAt(0) != nil {
		t.Error("zero-fitness organism should have been killed")
	}
	if p.organismAt(1) == nil {
		t.Error("nonzero-fitness organism should survive")
	}
}

func TestActivateParasiteUsesHostOwnerNotTargetOwner(t *testing.T) {
	p, _ := newTestPopulation(t, 2, 1, 0, placement.Config{})

	hostOwner := &fakeInjectGenotype{genome: fakeGenome{seq: "inject"}}
	targetOwner := &fakeInjectGenotype{genome: fakeGenome{seq: "other"}}

	host := mustOrganism("host", 1)
	host.Hardware.(*fakeHardware).owner = hostOwner
	if err := p.Activate(context.Background(), host, 0); err != nil {
		t.Fatalf("Activate host: %v", err)
	}

	target := mustOrganism("target", 1)
	target.Hardware.(*fakeHardware).owner = targetOwner
	target.Hardware.(*fakeHardware).injectOK = true
	if err := p.Activate(context.Background(), target, 1); err != nil {
		t.Fatalf("Activate target: %v", err)
	}

	injected := fakeGenome{seq: "inject"}
	if !p.ActivateParasite(0, "F0", injected) {
		t.Fatal("ActivateParasite returned false")
	}

	// The reused/parent-derived genotype must match hostOwner's genome
	// (injected's content), proving the host's thread owner was the
	// reference used, not target's prior owner.
	if target.Hardware.(*fakeHardware).owner != hostOwner {
		t.Fatalf("target owner after injection = %v, want hostOwner (reused because it matches injected genome)", target.Hardware.(*fakeHardware).owner)
	}
}

func TestActivateParasiteRejectsAtThreadLimit(t *testing.T) {
	p, _ := newTestPopulation(t, 2, 1, 0, placement.Config{})
	p.MaxCPUThreads = 1

	host := mustOrganism("host", 1)
	if err := p.Activate(context.Background(), host, 0); err != nil {
		t.Fatalf("Activate host: %v", err)
	}
	target := mustOrganism("target", 1)
	target.Hardware.(*fakeHardware).injectOK = true
	target.Hardware.(*fakeHardware).numThreads = 1
	if err := p.Activate(context.Background(), target, 1); err != nil {
		t.Fatalf("Activate target: %v", err)
	}

	if p.ActivateParasite(0, "F0", fakeGenome{seq: "inject"}) {
		t.Fatal("ActivateParasite should refuse a neighbor at the thread limit")
	}
}

func TestPostForSaleLinksHandleToSeller(t *testing.T) {
	p, _ := newTestPopulation(t, 2, 2, 0, placement.Config{})
	seller := mustOrganism("abc", 1)
	if err := p.Activate(context.Background(), seller, 0); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	if !p.PostForSale(0, 42, 1, 10) {
		t.Fatal("PostForSale returned false")
	}
	if p.Market.Len(1) != 1 {
		t.Fatalf("Market.Len(1) = %d, want 1", p.Market.Len(1))
	}
	if len(seller.SoldItems) != 1 {
		t.Fatalf("seller.SoldItems = %d, want 1", len(seller.SoldItems))
	}

	p.Kill(0)
	if p.Market.Len(1) != 0 {
		t.Fatalf("Market.Len(1) after kill = %d, want 0 (Kill should revoke posted items)", p.Market.Len(1))
	}
}

func TestDemeWrappersNoOpWithoutDemes(t *testing.T) {
	p, _ := newTestPopulation(t, 2, 2, 0, placement.Config{})
	p.CompeteDemes(demepkg.ModeConstant)
	p.ReplicateDemes(demepkg.TriggerFull)
	p.ResetDemes()
	p.DivideDemes(func(int) int { return 0 })
}

func TestSaveLoadCloneRoundTrip(t *testing.T) {
	src, _ := newTestPopulation(t, 2, 2, 0, placement.Config{})
	if err := src.Activate(context.Background(), mustOrganism("aaaa", 5), 0); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if err := src.Activate(context.Background(), mustOrganism("bbbb", 7), 2); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	var buf bytes.Buffer
	if err := src.SaveClone(&buf, "blob"); err != nil {
		t.Fatalf("SaveClone: %v", err)
	}

	dst, _ := newTestPopulation(t, 2, 2, 0, placement.Config{})
	if err := dst.LoadClone(&buf); err != nil {
		t.Fatalf("LoadClone: %v", err)
	}

	if dst.NumOrganisms != 2 {
		t.Fatalf("NumOrganisms after LoadClone = %d, want 2", dst.NumOrganisms)
	}
	if got := dst.organismAt(0).Genome.String(); got != "aaaa" {
		t.Errorf("cell 0 genome = %q, want %q", got, "aaaa")
	}
	if got := dst.organismAt(2).Genome.String(); got != "bbbb" {
		t.Errorf("cell 2 genome = %q, want %q", got, "bbbb")
	}
}

func TestUpdateOrganismAndGenotypeStats(t *testing.T) {
	p, _ := newTestPopulation(t, 2, 2, 0, placement.Config{})
	o1 := mustOrganism("aaaa", 2)
	o1.Pheno.(*fakePhenotype).fitness = 4
	o2 := mustOrganism("bbbb", 4)
	o2.Pheno.(*fakePhenotype).fitness = 8
	if err := p.Activate(context.Background(), o1, 0); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if err := p.Activate(context.Background(), o2, 1); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	os := p.UpdateOrganismStats()
	if os.NumOrganisms != 2 {
		t.Fatalf("NumOrganisms = %d, want 2", os.NumOrganisms)
	}
	if os.AverageMerit != 3 {
		t.Fatalf("AverageMerit = %v, want 3", os.AverageMerit)
	}
	if os.MaxFitness != 8 {
		t.Fatalf("MaxFitness = %v, want 8", os.MaxFitness)
	}

	gs := p.UpdateGenotypeStats()
	if gs.NumGenotypes != 2 {
		t.Fatalf("NumGenotypes = %d, want 2", gs.NumGenotypes)
	}
	if gs.ShannonDiversity <= 0 {
		t.Fatalf("ShannonDiversity = %v, want > 0 for two equally sized genotypes", gs.ShannonDiversity)
	}

	snap := p.Snapshot()
	if snap.NumOrganisms != 2 || snap.NumGenotypes != 2 {
		t.Fatalf("Snapshot = %+v, want 2 organisms and 2 genotypes", snap)
	}
}

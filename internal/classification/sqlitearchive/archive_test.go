package sqlitearchive

import (
	"path/filepath"
	"testing"

	"avidacore/internal/organism"
)

type fakeGenome struct{ seq string }

func (g fakeGenome) Size() int { return len(g.seq) }

func (g fakeGenome) HammingDistance(other organism.Genome) int {
	o, ok := other.(fakeGenome)
	if !ok || len(o.seq) != len(g.seq) {
		return len(g.seq)
	}
	n := 0
	for i := range g.seq {
		if g.seq[i] != o.seq[i] {
			n++
		}
	}
	return n
}

func (g fakeGenome) String() string { return g.seq }

func openTestArchive(t *testing.T) *Archive {
	t.Helper()
	path := filepath.Join(t.TempDir(), "archive.db")
	a, err := Open(path, func() int64 { return 0 })
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestGetGenotypeDedupesByGenomeString(t *testing.T) {
	a := openTestArchive(t)
	g1 := a.GetGenotype(fakeGenome{"abba"}, nil, nil)
	g2 := a.GetGenotype(fakeGenome{"abba"}, nil, nil)
	if g1.ID() != g2.ID() {
		t.Errorf("identical genomes got distinct genotype ids %d, %d", g1.ID(), g2.ID())
	}
	g3 := a.GetGenotype(fakeGenome{"zzzz"}, nil, nil)
	if g3.ID() == g1.ID() {
		t.Error("distinct genomes should not share a genotype id")
	}
}

func TestAdjustGenotypePrunesWhenUnreferenced(t *testing.T) {
	a := openTestArchive(t)
	g := a.GetGenotype(fakeGenome{"abba"}, nil, nil)
	g.AddOrganism()
	if a.GenotypeCount() != 1 {
		t.Fatalf("GenotypeCount = %d, want 1", a.GenotypeCount())
	}

	a.AdjustGenotype(g)
	if a.GenotypeCount() != 1 {
		t.Fatalf("genotype pruned while still referenced")
	}

	g.RemoveOrganism()
	a.AdjustGenotype(g)
	if a.GenotypeCount() != 0 {
		t.Fatalf("GenotypeCount = %d, want 0 after last organism removed", a.GenotypeCount())
	}
}

func TestAdjustGenotypeDeferredByPin(t *testing.T) {
	a := openTestArchive(t)
	g := a.GetGenotype(fakeGenome{"abba"}, nil, nil)
	g.IncDeferAdjust()

	a.AdjustGenotype(g)
	if a.GenotypeCount() != 1 {
		t.Fatal("pinned genotype should survive AdjustGenotype")
	}

	g.DecDeferAdjust()
	a.AdjustGenotype(g)
	if a.GenotypeCount() != 0 {
		t.Fatal("unpinned genotype should be pruned")
	}
}

func TestBestGenotypeIterationOrdersByOrganismCount(t *testing.T) {
	a := openTestArchive(t)
	low := a.GetGenotype(fakeGenome{"aaaa"}, nil, nil)
	low.AddOrganism()
	high := a.GetGenotype(fakeGenome{"bbbb"}, nil, nil)
	high.AddOrganism()
	high.AddOrganism()
	high.AddOrganism()

	best := a.GetBestGenotype()
	if best.ID() != high.ID() {
		t.Errorf("GetBestGenotype = %d, want %d (most organisms)", best.ID(), high.ID())
	}
	next := a.Next(best)
	if next == nil || next.ID() != low.ID() {
		t.Errorf("Next(best) should be the remaining genotype")
	}
	if a.Next(next) != nil {
		t.Error("Next past the last genotype should return nil")
	}
}

func TestInjectGenotypeDedupeAndPrune(t *testing.T) {
	a := openTestArchive(t)
	ig1 := a.GetInjectGenotype(fakeGenome{"para"}, nil)
	ig2 := a.GetInjectGenotype(fakeGenome{"para"}, nil)
	if ig1 != ig2 {
		t.Error("identical parasite code should share one InjectGenotype")
	}
	ig1.AddParasite()
	a.AdjustInjectGenotype(ig1)
	if _, ok := a.injectByGenome["para"]; !ok {
		t.Error("referenced inject genotype should not be pruned")
	}
	ig1.RemoveParasite()
	a.AdjustInjectGenotype(ig1)
	if _, ok := a.injectByGenome["para"]; ok {
		t.Error("unreferenced inject genotype should be pruned")
	}
}

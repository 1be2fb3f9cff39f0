package population

import (
	"context"
	"fmt"

	"avidacore/internal/organism"
	"avidacore/internal/persistence/lineagelog"
	"avidacore/internal/placement"
)

// Activate installs organism org into cellID, per spec §4.6. Preconditions:
// org.Genome.Size() > 1 (a defensive assert, not a recoverable failure).
func (p *Population) Activate(ctx context.Context, org *organism.Organism, cellID int) error {
	if org.Genome.Size() <= 1 {
		return fmt.Errorf("population: Activate: genome size %d <= 1", org.Genome.Size())
	}

	if org.Genotype == nil {
		org.Genotype = p.Classification.GetGenotype(org.Genome, nil, nil)
	}

	c := p.cell(cellID)
	var oldGenotype organism.Genotype
	if prev := p.organismAt(cellID); prev != nil {
		oldGenotype = prev.Genotype
		oldGenotype.IncDeferAdjust()
		p.Kill(cellID)
	}

	org.ID = p.nextID()
	c.Occupant = org

	org.Genotype.AddOrganism()
	if oldGenotype != nil {
		oldGenotype.DecDeferAdjust()
		p.Classification.AdjustGenotype(oldGenotype)
	}

	p.Scheduler.Adjust(cellID, org.Pheno.Merit())

	if p.PlacementCfg.Policy == placement.PolicyFullSoupEldest {
		p.Reaper.PushFront(cellID)
	}

	p.NumOrganisms++
	if c.DemeID >= 0 && p.Demes != nil && p.Demes.NumDemes() > 0 {
		p.Demes.Deme(c.DemeID).IncOrgCount()
	}

	_ = p.Lineage.Write(lineagelog.Event{
		Update: p.Update, Kind: "birth", OrganismID: org.ID,
		GenotypeID: org.Genotype.ID(), LineageLabel: org.LineageLabel, CellID: cellID,
		Merit: org.Pheno.Merit(),
	})

	return nil
}

// Kill removes whatever organism occupies cellID: all bookkeeping
// (stats, market, scheduler, genotype counts) happens immediately, even
// if that organism's virtual CPU is currently on-stack (Running) — Go's
// garbage collector makes deferring the free unnecessary. Running only
// marks PendingDelete so ProcessStep knows, once SingleProcess returns,
// that the organism it was driving is already gone and must not be
// touched again (no IncAge, no second Kill), per spec §5's reentrancy
// contract. No-op if cellID is unoccupied.
func (p *Population) Kill(cellID int) {
	c := p.cell(cellID)
	org := p.organismAt(cellID)
	if org == nil {
		return
	}

	_ = p.Lineage.Write(lineagelog.Event{
		Update: p.Update, Kind: "death", OrganismID: org.ID,
		GenotypeID: org.Genotype.ID(), LineageLabel: org.LineageLabel, CellID: cellID,
	})

	for _, h := range org.TakeSoldItems() {
		p.Market.Revoke(h)
	}

	p.NumOrganisms--
	if c.DemeID >= 0 && p.Demes != nil && p.Demes.NumDemes() > 0 {
		p.Demes.Deme(c.DemeID).DecOrgCount()
	}

	for _, ig := range org.DetachParasites() {
		ig.RemoveParasite()
		p.Classification.AdjustInjectGenotype(ig)
	}

	c.Occupant = nil
	p.Scheduler.Adjust(cellID, 0)

	if org.Running {
		org.MarkToDeleteAfterRun()
	}

	geno := org.Genotype
	geno.RemoveOrganism()
	p.Classification.AdjustGenotype(geno)
}

// placeChild runs the configured placement policy for one child of a
// parent at parentCell, with parentAlive telling the policy whether the
// parent cell itself is still a legal target.
func (p *Population) placeChild(parentCell int, parentAlive bool) int {
	return placement.Select(p, p.Reaper, parentCell, parentAlive, p.PlacementCfg)
}

// ActivateOffspring submits childGenome to the birth chamber, places
// each returned child, and updates the parent's genotype accumulators.
func (p *Population) ActivateOffspring(ctx context.Context, childGenome organism.Genome, parent *organism.Organism, parentCell int) error {
	parent.Pheno.DivideReset(parent.Genome.Size())

	children, merits := p.BirthChamber.SubmitOffspring(ctx, childGenome, parent)

	parentAlive := true
	for i, child := range children {
		target := p.placeChild(parentCell, parentAlive)
		if target == parentCell {
			parentAlive = false
		}

		child.Genotype = p.Classification.GetGenotype(child.Genome, parent.Genotype, nil)
		child.Genotype.IncDeferAdjust()

		child.Pheno.SetupOffspring(parent.Pheno, child.Genome.Size())
		if i < len(merits) {
			child.Pheno.SetMerit(merits[i])
		}
		child.LineageLabel = parent.LineageLabel

		if placement.FacesParentAfterBirth(p.PlacementCfg.Policy) {
			p.cell(target).Rotate(parentCell)
		}

		if err := p.Activate(ctx, child, target); err != nil {
			return err
		}
		child.Genotype.DecDeferAdjust()
		p.Classification.AdjustGenotype(child.Genotype)
	}

	if parentAlive {
		p.Scheduler.Adjust(parentCell, parent.Pheno.Merit())
	}

	pg := parent.Genotype
	pg.AddGestationTime(float64(parent.Pheno.GestationTime()))
	pg.AddFitness(parent.Pheno.Fitness())
	pg.AddMerit(parent.Pheno.Merit())
	pg.AddCopiedSize(parent.Pheno.CopiedSize())
	pg.AddExecutedSize(parent.Pheno.ExecutedSize())

	return nil
}

// ActivateParasite attempts to inject injectedCode into a random
// neighbor of hostCell, on behalf of the host thread labeled
// hostCodeLabel. Returns false if there is no neighbor, the neighbor is
// empty, the neighbor's hardware is already at the thread limit, or its
// hardware refuses the injection.
func (p *Population) ActivateParasite(hostCell int, hostCodeLabel string, injectedCode organism.Genome) bool {
	conns := p.cell(hostCell).Connections
	if len(conns) == 0 {
		return false
	}
	neighbor := conns[p.rng.Intn(len(conns))]
	target := p.organismAt(neighbor)
	if target == nil {
		return false
	}
	if target.Hardware.NumThreads() >= p.MaxCPUThreads {
		return false
	}
	if !target.Hardware.InjectHost(hostCodeLabel, injectedCode) {
		return false
	}

	// The parent/reuse reference is the host's own thread owner, not
	// the neighbor being injected into: the neighbor only just
	// acquired this thread, so its prior owner has no relation to
	// injectedCode's lineage.
	host := p.organismAt(hostCell)
	var owner organism.InjectGenotype
	if host != nil {
		owner = host.Hardware.ThreadGetOwner()
	}
	var ig organism.InjectGenotype
	if owner != nil && owner.Genome().String() == injectedCode.String() {
		ig = owner
	} else {
		ig = p.Classification.GetInjectGenotype(injectedCode, owner)
	}
	ig.AddParasite()
	target.AddParasite(ig)
	target.Hardware.ThreadSetOwner(ig)
	return true
}

// PostForSale posts data under label on behalf of the organism
// occupying cellID, at the given price, and records the resulting
// handle on that organism so Kill can revoke it later. This is the
// only production path that should call Market.Post: posting without
// also calling Organism.AddSoldItem leaves the item unreachable from
// its seller, breaking the revoke-on-death invariant spec §4.3
// describes. Returns false if cellID is unoccupied or the post itself
// fails (bad label).
func (p *Population) PostForSale(cellID, data, label, price int) bool {
	org := p.organismAt(cellID)
	if org == nil {
		return false
	}
	handle, ok := p.Market.Post(data, label, price, int(org.ID), cellID)
	if !ok {
		return false
	}
	org.AddSoldItem(handle)
	return true
}

// Kaboom examines the 5x5 block centered on cellID and kills every
// occupant that differs from the center by more than distance, per
// spec §4.6. distance==0 uses genotype-id identity instead of Hamming
// distance.
func (p *Population) Kaboom(cellID int, distance int) {
	center := p.organismAt(cellID)
	if center == nil {
		return
	}

	for dy := -2; dy <= 2; dy++ {
		for dx := -2; dx <= 2; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			id, ok := p.Grid.NeighborOffset(cellID, dx, dy)
			if !ok {
				continue
			}
			org := p.organismAt(id)
			if org == nil {
				continue
			}
			if distance == 0 {
				if org.Genotype.ID() != center.Genotype.ID() {
					p.Kill(id)
				}
				continue
			}
			if org.Genome.HammingDistance(center.Genome) > distance {
				p.Kill(id)
			}
		}
	}

	p.Kill(cellID)
}

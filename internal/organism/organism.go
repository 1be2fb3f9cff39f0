package organism

import "avidacore/internal/market"

// Lineage is an opaque lineage-tracking handle; nil when LOG_LINEAGES is
// disabled. The population façade owns the concrete implementation.
type Lineage interface {
	ID() int64
}

// Organism is one self-replicating digital organism. It is owned
// uniquely by the cell slot it occupies; the population façade is the
// only code that constructs, moves, or destroys one.
type Organism struct {
	ID int64

	Genome   Genome
	Hardware Hardware
	Pheno    Phenotype

	Genotype Genotype
	Lineage  Lineage
	LineageLabel int64

	Parasites []InjectGenotype

	// SoldItems holds a market handle per posting still live for this
	// organism, so Kill can revoke every one of them in O(1) each.
	SoldItems []market.Handle

	// Running is set while the virtual CPU for this organism is
	// on-stack. Kill still completes its bookkeeping immediately; the
	// flag only makes it mark the organism; see population/lifecycle.go.
	Running bool
	toDeleteAfterRun bool
}

// MarkToDeleteAfterRun records that Kill happened while Running was set.
// The organism is already removed from its cell; ProcessStep checks the
// mark once SingleProcess returns and skips its post-step work.
func (o *Organism) MarkToDeleteAfterRun() {
	o.toDeleteAfterRun = true
}

func (o *Organism) PendingDelete() bool {
	return o.toDeleteAfterRun
}

func (o *Organism) AddParasite(g InjectGenotype) {
	o.Parasites = append(o.Parasites, g)
}

func (o *Organism) DetachParasites() []InjectGenotype {
	out := o.Parasites
	o.Parasites = nil
	return out
}

func (o *Organism) AddSoldItem(h market.Handle) {
	o.SoldItems = append(o.SoldItems, h)
}

// TakeSoldItems removes and returns every live market handle, used by
// Kill to revoke all postings in one pass.
func (o *Organism) TakeSoldItems() []market.Handle {
	out := o.SoldItems
	o.SoldItems = nil
	return out
}

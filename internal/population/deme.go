package population

import (
	demepkg "avidacore/internal/deme"
)

// CompeteDemes repopulates the deme array per spec §4.7.
func (p *Population) CompeteDemes(mode demepkg.Mode) {
	if p.Demes == nil || p.Demes.NumDemes() == 0 {
		return
	}
	demepkg.CompeteDemes(p.Demes, p, mode)
}

// ReplicateDemes walks every deme and replicates those matching trigger.
func (p *Population) ReplicateDemes(trigger demepkg.Trigger) {
	if p.Demes == nil || p.Demes.NumDemes() == 0 {
		return
	}
	demepkg.ReplicateDemes(p.Demes, p.Grid, p, trigger)
}

// DivideDemes splits every full deme. distinctTasks reports the number
// of distinct tasks the source deme has performed, driving the
// 100*2^n merit award; the population façade leaves task accounting to
// the stats layer and only threads the callback through here.
func (p *Population) DivideDemes(distinctTasks func(demeID int) int) {
	if p.Demes == nil || p.Demes.NumDemes() == 0 {
		return
	}
	demepkg.DivideDemes(p.Demes, p, distinctTasks)
}

// ResetDemes re-injects every occupant of every deme into its own cell.
func (p *Population) ResetDemes() {
	if p.Demes == nil || p.Demes.NumDemes() == 0 {
		return
	}
	demepkg.ResetDemes(p.Demes, p)
}

// CopyDeme mirrors deme a onto deme b, including empty cells.
func (p *Population) CopyDeme(a, b int) {
	if p.Demes == nil || p.Demes.NumDemes() == 0 {
		return
	}
	demepkg.CopyDeme(p.Demes, a, b, p)
}

// SpawnDeme wipes deme b and clones a random occupant of deme a into it.
func (p *Population) SpawnDeme(a, b int) {
	if p.Demes == nil || p.Demes.NumDemes() == 0 {
		return
	}
	demepkg.SpawnDeme(p.Demes, a, b, p)
}

package population

// SerialTransfer implements the serial-transfer protocol: optionally
// kill every organism whose current fitness is zero, then if more than
// k organisms remain, uniformly sample num_organisms-k of the
// survivors for killing. Per spec §9's own note, the sampling is
// uniform even though some historical comments describe an
// odd/even split — the sampling behavior is treated as authoritative.
func (p *Population) SerialTransfer(k int, ignoreDeads bool) {
	if ignoreDeads {
		for i := 0; i < p.Grid.NumCells(); i++ {
			org := p.organismAt(i)
			if org != nil && org.Pheno.Fitness() == 0 {
				p.Kill(i)
			}
		}
	}

	var occupied []int
	for i := 0; i < p.Grid.NumCells(); i++ {
		if p.organismAt(i) != nil {
			occupied = append(occupied, i)
		}
	}
	if len(occupied) <= k {
		return
	}

	toKill := len(occupied) - k
	p.rng.Shuffle(len(occupied), func(i, j int) {
		occupied[i], occupied[j] = occupied[j], occupied[i]
	})
	for _, cellID := range occupied[:toKill] {
		p.Kill(cellID)
	}
}

package population

// The methods below satisfy placement.Env; Population is passed
// directly to placement.Select so that package never imports grid,
// organism, or deme.

func (p *Population) NumCells() int { return p.Grid.NumCells() }

func (p *Population) Connections(cellID int) []int {
	return p.cell(cellID).Connections
}

func (p *Population) IsOccupied(cellID int) bool {
	return p.cell(cellID).Occupied()
}

func (p *Population) Age(cellID int) int {
	org := p.organismAt(cellID)
	if org == nil {
		return 0
	}
	return org.Pheno.Age()
}

func (p *Population) MeritRatio(cellID int) float64 {
	org := p.organismAt(cellID)
	if org == nil {
		return 0
	}
	gestation := org.Pheno.GestationTime()
	if gestation <= 0 {
		return 0
	}
	return org.Pheno.Merit() / float64(gestation)
}

func (p *Population) CellFaced(cellID int) int {
	return p.cell(cellID).CellFaced()
}

func (p *Population) HasDemes() bool {
	return p.Demes != nil && p.Demes.NumDemes() > 0
}

func (p *Population) DemeIDOf(cellID int) int {
	return p.cell(cellID).DemeID
}

func (p *Population) DemeSize(demeID int) int {
	return p.Demes.Deme(demeID).Size()
}

func (p *Population) DemeCellID(demeID, index int) int {
	return p.Demes.Deme(demeID).GetCellID(index)
}

func (p *Population) IncDemeBirthCount(demeID int) {
	p.Demes.Deme(demeID).IncBirthCount()
}

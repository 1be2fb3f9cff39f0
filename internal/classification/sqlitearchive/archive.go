// Package sqlitearchive implements organism.Classification: genotype
// identity and lifetime, backed in memory for the live population and
// mirrored to a SQLite store (via modernc.org/sqlite, pure-Go, no cgo)
// for archived history once a genotype's last organism dies. Modeled on
// the teacher's internal/persistence/indexdb.SQLiteIndex: a single
// writer goroutine owns the *sql.DB, fed by a buffered channel so the
// simulation's single executor never blocks on disk I/O.
package sqlitearchive

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	_ "modernc.org/sqlite"

	"avidacore/internal/organism"
)

// Genotype is the live (in-memory) handle on a classified genome.
// Implements organism.Genotype.
type Genotype struct {
	id     int64
	genome organism.Genome
	parent int64

	numOrganisms int
	deferAdjust  int

	gestationSum  float64
	fitnessSum    float64
	meritSum      float64
	copiedSize    int
	executedSize  int
	updateBorn    int64
	updateDead    int64
	depth         int
}

func (g *Genotype) ID() int64             { return g.id }
func (g *Genotype) Genome() organism.Genome { return g.genome }
func (g *Genotype) AddOrganism()          { g.numOrganisms++ }
func (g *Genotype) RemoveOrganism()       { g.numOrganisms-- }
func (g *Genotype) NumOrganisms() int     { return g.numOrganisms }
func (g *Genotype) IncDeferAdjust()       { g.deferAdjust++ }
func (g *Genotype) DecDeferAdjust()       { g.deferAdjust-- }

func (g *Genotype) AddGestationTime(v float64) { g.gestationSum += v }
func (g *Genotype) AddFitness(v float64)       { g.fitnessSum += v }
func (g *Genotype) AddMerit(v float64)         { g.meritSum += v }
func (g *Genotype) AddCopiedSize(v int)        { g.copiedSize += v }
func (g *Genotype) AddExecutedSize(v int)      { g.executedSize += v }

// The accessors below are not part of organism.Genotype; they exist so
// the persistence/clone format (which needs parent id, depth, and
// update-born/dead) can read a Genotype's full identity without the
// core interface leaking archive-internal fields to the rest of the
// module.
func (g *Genotype) ParentID() int64      { return g.parent }
func (g *Genotype) Depth() int           { return g.depth }
func (g *Genotype) UpdateBorn() int64    { return g.updateBorn }
func (g *Genotype) UpdateDead() int64    { return g.updateDead }
func (g *Genotype) GestationSum() float64 { return g.gestationSum }
func (g *Genotype) FitnessSum() float64   { return g.fitnessSum }
func (g *Genotype) MeritSum() float64     { return g.meritSum }
func (g *Genotype) CopiedSize() int       { return g.copiedSize }
func (g *Genotype) ExecutedSize() int     { return g.executedSize }

// InjectGenotype is the parasite-code counterpart to Genotype.
type InjectGenotype struct {
	id           int64
	genome       organism.Genome
	numParasites int
}

func (g *InjectGenotype) Genome() organism.Genome { return g.genome }
func (g *InjectGenotype) AddParasite()            { g.numParasites++ }
func (g *InjectGenotype) RemoveParasite()         { g.numParasites-- }

type archiveReq struct {
	row archivedRow
}

type archivedRow struct {
	ID           int64
	ParentID     int64
	NumCPUs      int
	Length       int
	Merit        float64
	GestTime     float64
	Fitness      float64
	UpdateBorn   int64
	UpdateDead   int64
	Depth        int
	Genome       string
}

// Archive is the concrete organism.Classification implementation.
type Archive struct {
	db *sql.DB

	mu       sync.Mutex
	byGenome map[string]*Genotype
	byID     map[int64]*Genotype
	nextID   int64

	injectByGenome map[string]*InjectGenotype
	nextInjectID   int64

	currentUpdate func() int64

	ch   chan archiveReq
	wg   sync.WaitGroup
	done chan struct{}
}

// Open creates (or reuses) the SQLite file at path and starts the
// background archive writer. currentUpdate reports the simulation's
// current update number, stamped onto each archived row.
func Open(path string, currentUpdate func() int64) (*Archive, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlitearchive: empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	a := &Archive{
		db:             db,
		byGenome:       make(map[string]*Genotype),
		byID:           make(map[int64]*Genotype),
		injectByGenome: make(map[string]*InjectGenotype),
		currentUpdate:  currentUpdate,
		ch:             make(chan archiveReq, 4096),
		done:           make(chan struct{}),
	}
	a.wg.Add(1)
	go a.loop()
	return a, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS genotypes (
		id INTEGER PRIMARY KEY,
		parent_id INTEGER NOT NULL,
		num_cpus INTEGER NOT NULL,
		length INTEGER NOT NULL,
		merit REAL NOT NULL,
		gest_time REAL NOT NULL,
		fitness REAL NOT NULL,
		update_born INTEGER NOT NULL,
		update_dead INTEGER NOT NULL,
		depth INTEGER NOT NULL,
		genome TEXT NOT NULL
	);`)
	return err
}

func (a *Archive) loop() {
	defer a.wg.Done()
	for req := range a.ch {
		r := req.row
		_, err := a.db.Exec(
			`INSERT INTO genotypes(id, parent_id, num_cpus, length, merit, gest_time, fitness, update_born, update_dead, depth, genome)
			 VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
			r.ID, r.ParentID, r.NumCPUs, r.Length, r.Merit, r.GestTime, r.Fitness, r.UpdateBorn, r.UpdateDead, r.Depth, r.Genome,
		)
		if err != nil {
			// Archiving is best-effort history, not correctness-critical;
			// a failed insert never blocks the simulation.
			continue
		}
	}
	close(a.done)
}

// Close stops accepting new genotypes and waits for the writer to
// drain, then closes the database.
func (a *Archive) Close() error {
	close(a.ch)
	<-a.done
	return a.db.Close()
}

// GetGenotype finds-or-creates the live genotype for genome's canonical
// string identity.
func (a *Archive) GetGenotype(genome organism.Genome, parent, parent2 organism.Genotype) organism.Genotype {
	key := genome.String()

	a.mu.Lock()
	defer a.mu.Unlock()

	if g, ok := a.byGenome[key]; ok {
		return g
	}

	a.nextID++
	g := &Genotype{id: a.nextID, genome: genome, updateBorn: a.currentUpdate()}
	if parent != nil {
		g.parent = parent.ID()
		if pg, ok := parent.(*Genotype); ok {
			g.depth = pg.depth + 1
		}
	}
	a.byGenome[key] = g
	a.byID[g.id] = g
	return g
}

// AdjustGenotype prunes a genotype with no live organisms and no
// pending defer-adjust pins, archiving it to SQLite first.
func (a *Archive) AdjustGenotype(gi organism.Genotype) {
	g, ok := gi.(*Genotype)
	if !ok {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if g.numOrganisms > 0 || g.deferAdjust > 0 {
		return
	}
	key := g.genome.String()
	if _, live := a.byGenome[key]; !live {
		return
	}
	g.updateDead = a.currentUpdate()
	delete(a.byGenome, key)
	delete(a.byID, g.id)

	select {
	case a.ch <- archiveReq{row: archivedRow{
		ID: g.id, ParentID: g.parent, Length: g.genome.Size(),
		Merit: g.meritSum, GestTime: g.gestationSum, Fitness: g.fitnessSum,
		UpdateBorn: g.updateBorn, UpdateDead: g.updateDead, Depth: g.depth,
		Genome: g.genome.String(),
	}}:
	default:
		// Writer backlog full; the row is lost from durable history but
		// the live archive state above is already consistent.
	}
}

func (a *Archive) GetInjectGenotype(code organism.Genome, parent organism.InjectGenotype) organism.InjectGenotype {
	key := code.String()
	a.mu.Lock()
	defer a.mu.Unlock()
	if g, ok := a.injectByGenome[key]; ok {
		return g
	}
	a.nextInjectID++
	g := &InjectGenotype{id: a.nextInjectID, genome: code}
	a.injectByGenome[key] = g
	return g
}

func (a *Archive) AdjustInjectGenotype(gi organism.InjectGenotype) {
	g, ok := gi.(*InjectGenotype)
	if !ok || g.numParasites > 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.injectByGenome, g.genome.String())
}

// sortedIDs returns every live genotype id, best (most organisms)
// first, ties broken by ascending id for determinism.
func (a *Archive) sortedIDs() []int64 {
	ids := make([]int64, 0, len(a.byID))
	for id := range a.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		gi, gj := a.byID[ids[i]], a.byID[ids[j]]
		if gi.numOrganisms != gj.numOrganisms {
			return gi.numOrganisms > gj.numOrganisms
		}
		return gi.id < gj.id
	})
	return ids
}

func (a *Archive) GetBestGenotype() organism.Genotype {
	a.mu.Lock()
	defer a.mu.Unlock()
	ids := a.sortedIDs()
	if len(ids) == 0 {
		return nil
	}
	return a.byID[ids[0]]
}

func (a *Archive) Next(gi organism.Genotype) organism.Genotype {
	g, ok := gi.(*Genotype)
	if !ok {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	ids := a.sortedIDs()
	for i, id := range ids {
		if id == g.id && i+1 < len(ids) {
			return a.byID[ids[i+1]]
		}
	}
	return nil
}

// Restore injects a genotype under an explicit identity, used to
// reconstruct the live archive from a persisted clone/dump-file record.
// The genotype starts with zero live organisms; callers attach
// organisms afterward via AddOrganism.
func (a *Archive) Restore(id int64, genome organism.Genome, parentID int64, depth int, updateBorn, updateDead int64, meritSum, gestationSum, fitnessSum float64) organism.Genotype {
	a.mu.Lock()
	defer a.mu.Unlock()
	g := &Genotype{
		id: id, genome: genome, parent: parentID, depth: depth,
		updateBorn: updateBorn, updateDead: updateDead,
		meritSum: meritSum, gestationSum: gestationSum, fitnessSum: fitnessSum,
	}
	a.byGenome[genome.String()] = g
	a.byID[g.id] = g
	if id > a.nextID {
		a.nextID = id
	}
	return g
}

func (a *Archive) GenotypeCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.byID)
}

var _ organism.Classification = (*Archive)(nil)

// Command avidad drives one population: it loads a YAML config, builds
// the grid/deme/resource/market/scheduler/classification/lineage
// subsystems, wires them into a population.Population, and runs the
// cooperative scheduler loop behind a small HTTP surface (health,
// Prometheus-style metrics, and the read-only observer WebSocket feed),
// modeled on the teacher's cmd/server/main.go shape: flag-parsed
// config, a signal-derived context, a background driver goroutine, and
// an http.ServeMux with graceful shutdown.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"avidacore/internal/classification/sqlitearchive"
	"avidacore/internal/config"
	"avidacore/internal/deme"
	"avidacore/internal/demovm"
	"avidacore/internal/grid"
	"avidacore/internal/market"
	"avidacore/internal/organism"
	"avidacore/internal/persistence/lineagelog"
	"avidacore/internal/population"
	"avidacore/internal/resource"
	"avidacore/internal/scheduler"
	"avidacore/internal/transport/observer"
)

func main() {
	var (
		configPath = flag.String("config", "./config/avida.yaml", "population config file")
		dataDir    = flag.String("data", "./data", "runtime data directory (sqlite archive, lineage log)")
		addr       = flag.String("addr", ":8080", "http listen address")
		seed       = flag.Int64("seed", 1, "rng seed")
		marketSize = flag.Int("market_size", 16, "number of market labels")
		stepSize   = flag.Float64("step_size", 1, "virtual-time advanced per ProcessStep call")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[avidad] ", log.LstdFlags|log.Lmicroseconds)

	// runID tags every clone save with the process instance that
	// produced it, so an archive blob can be traced back to the run
	// that wrote it even across CLONE_FILE overwrites.
	runID := uuid.NewString()
	logger.Printf("run id %s", runID)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		logger.Fatalf("create data dir: %v", err)
	}

	p, err := buildPopulation(cfg, *dataDir, *seed, *marketSize)
	if err != nil {
		logger.Fatalf("build population: %v", err)
	}

	if err := seedPopulation(p, cfg, *dataDir); err != nil {
		logger.Fatalf("seed population: %v", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	obsSrv := observer.NewServer(logger)

	go driveLoop(ctx, p, *stepSize, obsSrv, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", metricsHandler(p))
	mux.HandleFunc("/v1/observer/ws", obsSrv.WSHandler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Printf("listening on %s, update=%d", *addr, p.Update)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}

	if cfg.CloneFile != "" {
		if err := saveCloneOnExit(p, filepath.Join(*dataDir, cfg.CloneFile), runID); err != nil {
			logger.Printf("save clone on exit: %v", err)
		}
	}
}

// buildPopulation wires every subsystem package into one
// population.Population, per SPEC_FULL.md's component list.
func buildPopulation(cfg config.Config, dataDir string, seed int64, marketSize int) (*population.Population, error) {
	g, err := grid.New(cfg.WorldX, cfg.WorldY, cfg.WorldGeometry, cfg.NumDemes)
	if err != nil {
		return nil, fmt.Errorf("grid: %w", err)
	}

	var demes *deme.Set
	if cfg.NumDemes > 1 {
		demes, err = deme.NewSet(g)
		if err != nil {
			return nil, fmt.Errorf("demes: %w", err)
		}
	}

	resources, err := resource.NewField(cfg.WorldX, cfg.WorldY, nil)
	if err != nil {
		return nil, fmt.Errorf("resources: %w", err)
	}

	mkt := market.New(market.Config{Size: marketSize})

	// p is assigned below, after the archive is built; the closure
	// captures the variable (not its zero value) so the archive always
	// reads the population's live Update counter once p exists.
	var p *population.Population
	archive, err := sqlitearchive.Open(filepath.Join(dataDir, "archive.sqlite"), func() int64 {
		if p == nil {
			return 0
		}
		return p.Update
	})
	if err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}

	lineage := lineagelog.Open(dataDir, cfg.LogLineages)

	rng := rand.New(rand.NewSource(seed))
	newHardware := demovm.NewHardware(rng)
	newPhenotype := demovm.NewPhenotype()
	birthChamber := demovm.NewBirthChamber(newHardware, newPhenotype)

	var sched scheduler.Scheduler
	switch cfg.SlicingMethod {
	case config.SlicingProbMerit:
		sched = scheduler.NewProbMerit(g.NumCells(), rng)
	case config.SlicingIntegratedMerit:
		sched = scheduler.NewIntegratedMerit(g.NumCells())
	default:
		sched = scheduler.NewConstant(g.NumCells())
	}

	p = population.New(g, demes, resources, mkt, sched, archive, birthChamber, lineage, cfg.Placement, cfg.MaxCPUThreads, newHardware, newPhenotype, demovm.NewGenome, seed)

	return p, nil
}

// seedPopulation installs the starting population: either a saved
// clone file (full-state resume) or a single copy of START_CREATURE
// placed in the grid's center cell.
func seedPopulation(p *population.Population, cfg config.Config, dataDir string) error {
	if cfg.CloneFile != "" {
		path := filepath.Join(dataDir, cfg.CloneFile)
		if f, err := os.Open(path); err == nil {
			defer f.Close()
			return p.LoadClone(f)
		}
	}

	if cfg.StartCreature == "" {
		return nil
	}

	seqBytes, err := os.ReadFile(cfg.StartCreature)
	if err != nil {
		return fmt.Errorf("read start creature: %w", err)
	}

	genome := demovm.NewGenome(string(seqBytes))
	org := &organism.Organism{
		Genome:   genome,
		Hardware: p.NewHardware(genome),
		Pheno:    p.NewPhenotype(),
	}

	center := (cfg.WorldY/2)*cfg.WorldX + cfg.WorldX/2
	return p.Activate(context.Background(), org, center)
}

// driveLoop is the cooperative scheduler loop spec §5 describes: pick
// the next cell, run one virtual-CPU step, then poll the hardware's
// demovm-specific Offspring() hook (a handshake local to demovm, not
// part of organism.Hardware) to turn a completed gestation into a
// birth through ActivateOffspring.
func driveLoop(ctx context.Context, p *population.Population, stepSize float64, obsSrv *observer.Server, logger *log.Logger) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		cellID := p.Scheduler.NextID()
		if err := p.ProcessStep(ctx, stepSize, cellID); err != nil {
			// Constant round-robins over every cell regardless of
			// occupancy; an empty-cell step is expected and common
			// early on, so don't busy-spin on it.
			time.Sleep(time.Millisecond)
			continue
		}

		if occ := p.Grid.Cell(cellID).Occupant; occ != nil {
			org := occ.(*organism.Organism)
			if offspringSrc, ok := org.Hardware.(interface {
				Offspring() (organism.Genome, bool)
			}); ok {
				if childGenome, has := offspringSrc.Offspring(); has {
					if err := p.ActivateOffspring(ctx, childGenome, org, cellID); err != nil {
						logger.Printf("activate offspring: %v", err)
					}
				}
			}
		}

		select {
		case <-ticker.C:
			obsSrv.Broadcast(p.Snapshot())
		default:
		}
	}
}

func metricsHandler(p *population.Population) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		snap := p.Snapshot()

		fmt.Fprintf(rw, "# HELP avida_update Current virtual-time update counter.\n")
		fmt.Fprintf(rw, "# TYPE avida_update counter\n")
		fmt.Fprintf(rw, "avida_update %d\n", snap.Update)

		fmt.Fprintf(rw, "# HELP avida_organisms Current live organism count.\n")
		fmt.Fprintf(rw, "# TYPE avida_organisms gauge\n")
		fmt.Fprintf(rw, "avida_organisms %d\n", snap.NumOrganisms)

		fmt.Fprintf(rw, "# HELP avida_genotypes Current live genotype count.\n")
		fmt.Fprintf(rw, "# TYPE avida_genotypes gauge\n")
		fmt.Fprintf(rw, "avida_genotypes %d\n", snap.NumGenotypes)

		fmt.Fprintf(rw, "# HELP avida_average_merit Average merit across live organisms.\n")
		fmt.Fprintf(rw, "# TYPE avida_average_merit gauge\n")
		fmt.Fprintf(rw, "avida_average_merit %.6f\n", snap.AverageMerit)

		fmt.Fprintf(rw, "# HELP avida_shannon_diversity Shannon diversity over genotype abundance.\n")
		fmt.Fprintf(rw, "# TYPE avida_shannon_diversity gauge\n")
		fmt.Fprintf(rw, "avida_shannon_diversity %.6f\n", snap.ShannonDiversity)
	}
}

func saveCloneOnExit(p *population.Population, path, archiveBlob string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return p.SaveClone(f, archiveBlob)
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

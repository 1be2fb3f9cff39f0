// Package lineagelog writes one compressed JSONL record per birth/death
// event when LOG_LINEAGES is enabled, rotating by hour. Adapted from the
// teacher's internal/persistence/log.JSONLZstdWriter.
package lineagelog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// Event is one lineage record, keyed by the organism's lineage label.
// The population façade writes "birth" for every organism it installs
// (deme-level clones included) and "death" for every removal.
type Event struct {
	Update       int64   `json:"update"`
	Kind         string  `json:"kind"` // "birth" | "death"
	OrganismID   int64   `json:"organism_id"`
	GenotypeID   int64   `json:"genotype_id"`
	ParentID     int64   `json:"parent_id,omitempty"`
	LineageLabel int64   `json:"lineage_label"`
	CellID       int     `json:"cell_id"`
	Merit        float64 `json:"merit,omitempty"`
}

type writer struct {
	baseDir string
	prefix  string

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func newWriter(baseDir, prefix string) *writer {
	return &writer{baseDir: baseDir, prefix: prefix}
}

func (w *writer) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := time.Now().UTC().Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *writer) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	dir := filepath.Dir(w.pathForHour(hour))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.pathForHour(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 64*1024)
	w.curHour = hour
	return nil
}

func (w *writer) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	return err1
}

func (w *writer) pathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

func (w *writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

// Log is the lineage logger the population façade writes birth/death
// events to. A nil *Log is valid and every method on it is a no-op, so
// callers can construct one unconditionally and only skip it when
// LOG_LINEAGES is false.
type Log struct {
	w *writer
}

// Open returns a Log rooted at dataDir/lineage, or nil if enabled is
// false.
func Open(dataDir string, enabled bool) *Log {
	if !enabled {
		return nil
	}
	return &Log{w: newWriter(filepath.Join(dataDir, "lineage"), "lineage")}
}

func (l *Log) Write(e Event) error {
	if l == nil {
		return nil
	}
	return l.w.Write(e)
}

func (l *Log) Close() error {
	if l == nil {
		return nil
	}
	return l.w.Close()
}

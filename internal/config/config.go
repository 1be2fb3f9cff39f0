// Package config loads and validates the population's configuration
// file: the keys spec §6 enumerates (WORLD_X, WORLD_Y,
// WORLD_GEOMETRY, NUM_DEMES, BIRTH_METHOD, PREFER_EMPTY,
// SLICING_METHOD, MAX_CPU_THREADS, LOG_LINEAGES, CLONE_FILE,
// START_CREATURE), translated into the enum/option types the grid,
// placement, and scheduler packages expect. Modeled on the teacher's
// internal/sim/tuning.Load: read the file, unmarshal with yaml.v3,
// wrap parse errors with the file name.
package config

import (
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"avidacore/internal/grid"
	"avidacore/internal/placement"
)

// raw mirrors the YAML file's keys verbatim; Load translates it into
// the typed Config below after schema validation.
type rawConfig struct {
	WorldX         int    `yaml:"WORLD_X" json:"WORLD_X"`
	WorldY         int    `yaml:"WORLD_Y" json:"WORLD_Y"`
	WorldGeometry  string `yaml:"WORLD_GEOMETRY" json:"WORLD_GEOMETRY"`
	NumDemes       int    `yaml:"NUM_DEMES" json:"NUM_DEMES"`
	BirthMethod    int    `yaml:"BIRTH_METHOD" json:"BIRTH_METHOD"`
	PreferEmpty    bool   `yaml:"PREFER_EMPTY" json:"PREFER_EMPTY"`
	SlicingMethod  string `yaml:"SLICING_METHOD" json:"SLICING_METHOD"`
	MaxCPUThreads  int    `yaml:"MAX_CPU_THREADS" json:"MAX_CPU_THREADS"`
	LogLineages    bool   `yaml:"LOG_LINEAGES" json:"LOG_LINEAGES"`
	CloneFile      string `yaml:"CLONE_FILE" json:"CLONE_FILE"`
	StartCreature  string `yaml:"START_CREATURE" json:"START_CREATURE"`
}

// Config is the validated, typed configuration the rest of the module
// consumes.
type Config struct {
	WorldX, WorldY int
	WorldGeometry  grid.Geometry
	NumDemes       int

	Placement placement.Config

	SlicingMethod SlicingMethod
	MaxCPUThreads int

	LogLineages   bool
	CloneFile     string
	StartCreature string
}

type SlicingMethod int

const (
	SlicingConstant SlicingMethod = iota
	SlicingProbMerit
	SlicingIntegratedMerit
)

func parseSlicingMethod(s string) (SlicingMethod, error) {
	switch s {
	case "constant":
		return SlicingConstant, nil
	case "prob_merit":
		return SlicingProbMerit, nil
	case "integrated_merit":
		return SlicingIntegratedMerit, nil
	default:
		return 0, fmt.Errorf("config: unknown SLICING_METHOD %q", s)
	}
}

// Load reads path as YAML, validates it against the embedded JSON
// schema, and translates it into a Config.
func Load(path string) (Config, error) {
	var cfg Config

	rawBytes, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	var doc rawConfig
	if err := yaml.Unmarshal(rawBytes, &doc); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}

	if err := validateSchema(rawBytes); err != nil {
		return cfg, fmt.Errorf("config: %s: schema: %w", path, err)
	}

	return translate(doc)
}

func validateSchema(yamlBytes []byte) error {
	var v any
	if err := yaml.Unmarshal(yamlBytes, &v); err != nil {
		return err
	}
	v = normalizeForJSONSchema(v)

	sch, err := jsonschema.CompileString("config.schema.json", configSchemaJSON)
	if err != nil {
		return fmt.Errorf("compile embedded schema: %w", err)
	}
	return sch.Validate(v)
}

// normalizeForJSONSchema converts yaml.v3's map[string]interface{} tree
// (already string-keyed in v3, but nested maps may still need int64 ->
// float64 normalization) into the json.Unmarshal-shaped value the
// jsonschema package expects.
func normalizeForJSONSchema(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeForJSONSchema(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeForJSONSchema(val)
		}
		return out
	case int:
		return float64(t)
	case int64:
		return float64(t)
	default:
		return v
	}
}

func translate(doc rawConfig) (Config, error) {
	var cfg Config

	geom, err := grid.ParseGeometry(doc.WorldGeometry)
	if err != nil {
		return cfg, err
	}
	if doc.NumDemes > 0 && doc.WorldY%doc.NumDemes != 0 {
		return cfg, fmt.Errorf("config: WORLD_Y=%d does not divide evenly into NUM_DEMES=%d", doc.WorldY, doc.NumDemes)
	}

	policy := placement.Policy(doc.BirthMethod)
	if policy < placement.PolicyRandom || policy > placement.PolicyNextCell {
		return cfg, fmt.Errorf("config: BIRTH_METHOD=%d out of range", doc.BirthMethod)
	}
	if doc.NumDemes > 1 && policy == placement.PolicyNextCell {
		return cfg, fmt.Errorf("config: BIRTH_METHOD=next_cell is not valid with NUM_DEMES>1")
	}

	slicing, err := parseSlicingMethod(doc.SlicingMethod)
	if err != nil {
		return cfg, err
	}

	if doc.CloneFile == "" && doc.StartCreature == "" {
		return cfg, fmt.Errorf("config: either CLONE_FILE or START_CREATURE must be set")
	}

	cfg = Config{
		WorldX:        doc.WorldX,
		WorldY:        doc.WorldY,
		WorldGeometry: geom,
		NumDemes:      doc.NumDemes,
		Placement: placement.Config{
			Policy:      policy,
			PreferEmpty: doc.PreferEmpty,
		},
		SlicingMethod: slicing,
		MaxCPUThreads: doc.MaxCPUThreads,
		LogLineages:   doc.LogLineages,
		CloneFile:     doc.CloneFile,
		StartCreature: doc.StartCreature,
	}
	return cfg, nil
}

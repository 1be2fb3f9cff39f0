package config

// configSchemaJSON validates the raw YAML config document's shape
// before translation, per spec §6's enumerated configuration keys.
// Inlined (rather than loaded from a schemas/ directory, which this
// module does not otherwise need) and compiled once per Load call via
// github.com/santhosh-tekuri/jsonschema/v5, the same library the
// teacher's protocol package uses for its message schemas.
const configSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["WORLD_X", "WORLD_Y", "WORLD_GEOMETRY"],
  "properties": {
    "WORLD_X": {"type": "integer", "minimum": 1},
    "WORLD_Y": {"type": "integer", "minimum": 1},
    "WORLD_GEOMETRY": {"type": "string", "enum": ["grid", "torus"]},
    "NUM_DEMES": {"type": "integer", "minimum": 0},
    "BIRTH_METHOD": {"type": "integer", "minimum": 0, "maximum": 8},
    "PREFER_EMPTY": {"type": "boolean"},
    "SLICING_METHOD": {
      "type": "string",
      "enum": ["constant", "prob_merit", "integrated_merit"]
    },
    "MAX_CPU_THREADS": {"type": "integer", "minimum": 1},
    "LOG_LINEAGES": {"type": "boolean"},
    "CLONE_FILE": {"type": "string"},
    "START_CREATURE": {"type": "string"}
  },
  "additionalProperties": false
}`

package sequences

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// File is the YAML document accepted by the import command.
type File struct {
	Sequences []Definition `yaml:"sequences"`
}

// Parse decodes and validates a YAML sequence file.
func Parse(r io.Reader) ([]Definition, error) {
	var file File
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode sequences yaml: %w", err)
	}

	seen := make(map[string]bool, len(file.Sequences))
	for _, def := range file.Sequences {
		if err := def.Validate(); err != nil {
			return nil, fmt.Errorf("sequence %q: %w", def.Trigger, err)
		}
		if seen[def.Trigger] {
			return nil, fmt.Errorf("sequence %q defined twice", def.Trigger)
		}
		seen[def.Trigger] = true
	}
	return file.Sequences, nil
}

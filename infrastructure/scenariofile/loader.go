// Package scenariofile reads scenarios from YAML files.
package scenariofile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"roadside_e2e/domain/entities"

	"gopkg.in/yaml.v3"
)

// Parse decodes every YAML document in r as a scenario. Unknown keys are errors.
func Parse(r io.Reader) ([]entities.Scenario, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var scenarios []entities.Scenario
	for {
		var sc entities.Scenario
		err := dec.Decode(&sc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode scenario %d: %w", len(scenarios)+1, err)
		}
		if err := sc.Validate(); err != nil {
			return nil, err
		}
		scenarios = append(scenarios, sc)
	}
	if len(scenarios) == 0 {
		return nil, errors.New("no scenarios found")
	}
	return scenarios, nil
}

// Load reads all scenarios from the given files, in order
func Load(paths ...string) ([]entities.Scenario, error) {
	var all []entities.Scenario
	seen := map[string]string{}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		scenarios, err := Parse(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		for _, sc := range scenarios {
			if prev, dup := seen[sc.Name]; dup {
				return nil, fmt.Errorf("%s: scenario %q already defined in %s", path, sc.Name, prev)
			}
			seen[sc.Name] = path
		}
		all = append(all, scenarios...)
	}
	return all, nil
}

// Marshal renders scenarios as a multi-document YAML stream
func Marshal(scenarios []entities.Scenario) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	for _, sc := range scenarios {
		if err := enc.Encode(sc); err != nil {
			return nil, err
		}
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

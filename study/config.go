/*
config.go - YAML registry override

PURPOSE:
  The composite membership question (exactly which items enter the
  Intermediality Index, and which reversed) is treated as configuration
  to be supplied, not inferred. A YAML file can replace the built-in
  item and construct definitions wholesale; the same fatal validation
  applies either way.

FORMAT:
  items:
    - id: B_5
      label: B5 destructive interference
      phase: post
      polarity: negative
      domain: likert
      scale_min: 1
      scale_max: 7
  constructs:
    - id: Intermediality Index
      formula: mean
      interpretation: Higher values indicate stronger intermedial coherence
      members:
        - item: B_1
        - item: B_5
          reversed: true

SEE ALSO:
  - registry.go: Built-in defaults used when no file is given
*/
package study

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/tz5/results-engine/tidy"
)

type registryFile struct {
	Items      []itemYAML      `yaml:"items"`
	Constructs []constructYAML `yaml:"constructs"`
}

type itemYAML struct {
	ID       string `yaml:"id"`
	Label    string `yaml:"label"`
	Phase    string `yaml:"phase"`
	Polarity string `yaml:"polarity"`
	Domain   string `yaml:"domain"`
	ScaleMin int    `yaml:"scale_min"`
	ScaleMax int    `yaml:"scale_max"`
}

type constructYAML struct {
	ID             string       `yaml:"id"`
	Formula        string       `yaml:"formula"`
	Interpretation string       `yaml:"interpretation"`
	Members        []memberYAML `yaml:"members"`
}

type memberYAML struct {
	Item     string `yaml:"item"`
	Reversed bool   `yaml:"reversed"`
	Negated  bool   `yaml:"negated"`
	Weight   string `yaml:"weight"`
}

// LoadRegistryFile reads a YAML registry definition and validates it.
// Errors here are fatal to the run: an invalid registry would make every
// downstream composite meaningless.
func LoadRegistryFile(path string) (*tidy.Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry config: %w", err)
	}
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse registry config: %w", err)
	}

	items := make([]tidy.ItemDefinition, 0, len(file.Items))
	for _, it := range file.Items {
		items = append(items, tidy.ItemDefinition{
			ID:       tidy.ItemID(it.ID),
			Label:    it.Label,
			Phase:    tidy.Phase(it.Phase),
			Polarity: tidy.Polarity(it.Polarity),
			Domain:   tidy.ValueDomain(it.Domain),
			ScaleMin: it.ScaleMin,
			ScaleMax: it.ScaleMax,
		})
	}

	constructs := make([]tidy.ConstructDefinition, 0, len(file.Constructs))
	for _, c := range file.Constructs {
		members := make([]tidy.ConstructMember, 0, len(c.Members))
		for _, m := range c.Members {
			weight := decimal.Zero
			if m.Weight != "" {
				weight, err = decimal.NewFromString(m.Weight)
				if err != nil {
					return nil, fmt.Errorf("parse registry config: construct %q member %q: bad weight %q",
						c.ID, m.Item, m.Weight)
				}
			}
			members = append(members, tidy.ConstructMember{
				Item:     tidy.ItemID(m.Item),
				Reversed: m.Reversed,
				Negated:  m.Negated,
				Weight:   weight,
			})
		}
		constructs = append(constructs, tidy.ConstructDefinition{
			ID:             tidy.ConstructID(c.ID),
			Formula:        tidy.Formula(c.Formula),
			Interpretation: c.Interpretation,
			Members:        members,
		})
	}

	return tidy.NewRegistry(items, constructs)
}

// LoadRegistry returns the YAML registry when a path is given, otherwise
// the built-in defaults.
func LoadRegistry(path string) (*tidy.Registry, error) {
	if path == "" {
		return DefaultRegistry()
	}
	return LoadRegistryFile(path)
}

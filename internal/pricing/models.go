package pricing

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed pricing.json
var defaultPricingJSON []byte

// Family is a pricing family matched by substring markers. Prices are USD
// per 1M tokens.
type Family struct {
	Name       string   `json:"name" toml:"name"`
	Markers    []string `json:"markers" toml:"markers"`
	Input      float64  `json:"input" toml:"input"`
	Output     float64  `json:"output" toml:"output"`
	CacheWrite float64  `json:"cache_write" toml:"cache_write"`
	CacheRead  float64  `json:"cache_read" toml:"cache_read"`
}

// Table is an ordered family list. The first family with a marker contained
// in the model name wins; unmatched names use Default.
type Table struct {
	Default  string   `json:"default" toml:"default"`
	Families []Family `json:"families" toml:"families"`
}

func LoadDefault() (Table, error) {
	var table Table
	if err := json.Unmarshal(defaultPricingJSON, &table); err != nil {
		return Table{}, err
	}
	return table, table.validate()
}

// LoadFile reads a table from a .json or .toml file.
func LoadFile(path string) (Table, error) {
	var table Table
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.DecodeFile(path, &table); err != nil {
			return Table{}, fmt.Errorf("decode pricing %s: %w", path, err)
		}
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return Table{}, fmt.Errorf("read pricing %s: %w", path, err)
		}
		if err := json.Unmarshal(data, &table); err != nil {
			return Table{}, fmt.Errorf("decode pricing %s: %w", path, err)
		}
	}
	if err := table.validate(); err != nil {
		return Table{}, fmt.Errorf("pricing %s: %w", path, err)
	}
	return table, nil
}

func (t Table) validate() error {
	if len(t.Families) == 0 {
		return fmt.Errorf("no pricing families")
	}
	if _, ok := t.family(t.Default); !ok {
		return fmt.Errorf("default family %q not defined", t.Default)
	}
	return nil
}

func (t Table) family(name string) (Family, bool) {
	for _, f := range t.Families {
		if f.Name == name {
			return f, true
		}
	}
	return Family{}, false
}

// Classify returns the pricing family for a model name.
func (t Table) Classify(model string) Family {
	lower := strings.ToLower(model)
	for _, f := range t.Families {
		for _, m := range f.Markers {
			if strings.Contains(lower, strings.ToLower(m)) {
				return f
			}
		}
	}
	f, _ := t.family(t.Default)
	return f
}

// Cost prices the four token categories with the model's family.
func (t Table) Cost(model string, input, output, cacheWrite, cacheRead int) float64 {
	f := t.Classify(model)
	cost := float64(input) * f.Input / 1_000_000
	cost += float64(output) * f.Output / 1_000_000
	cost += float64(cacheWrite) * f.CacheWrite / 1_000_000
	cost += float64(cacheRead) * f.CacheRead / 1_000_000
	return cost
}

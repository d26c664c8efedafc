package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/danielpatrickdp/exprdiag/internal/diagnostics"
	"github.com/danielpatrickdp/exprdiag/internal/expression"
	"github.com/danielpatrickdp/exprdiag/internal/regime"
	"gopkg.in/yaml.v3"
)

// #region fixture-types

// Fixture is one recorded diagnostics scenario with the results it must
// keep producing.
type Fixture struct {
	Name        string                `json:"name" yaml:"name"`
	Description string                `json:"description" yaml:"description"`
	Expression  expression.Definition `json:"expression" yaml:"expression"`
	Regime      regime.Definition     `json:"regime,omitempty" yaml:"regime,omitempty"`
	Seed        uint64                `json:"seed" yaml:"seed"`
	SampleCount int                   `json:"sample_count" yaml:"sample_count"`
	Expected    FixtureExpected       `json:"expected" yaml:"expected"`
}

// FixtureRange is an inclusive band. A nil end is open.
type FixtureRange struct {
	Min *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max *float64 `json:"max,omitempty" yaml:"max,omitempty"`
}

// Contains reports whether v lies in the band.
func (r FixtureRange) Contains(v float64) bool {
	return (r.Min == nil || v >= *r.Min) && (r.Max == nil || v <= *r.Max)
}

func (r FixtureRange) String() string {
	lo, hi := "-inf", "+inf"
	if r.Min != nil {
		lo = fmt.Sprint(*r.Min)
	}
	if r.Max != nil {
		hi = fmt.Sprint(*r.Max)
	}
	return "[" + lo + ", " + hi + "]"
}

// FixtureExpected lists the checks for one fixture. Empty fields are not
// checked.
type FixtureExpected struct {
	TriggerRate         *FixtureRange     `json:"trigger_rate,omitempty" yaml:"trigger_rate,omitempty"`
	InRegimeTriggerRate *FixtureRange     `json:"in_regime_trigger_rate,omitempty" yaml:"in_regime_trigger_rate,omitempty"`
	TopBlocker          string            `json:"top_blocker,omitempty" yaml:"top_blocker,omitempty"`
	ChokeTypes          map[string]string `json:"choke_types,omitempty" yaml:"choke_types,omitempty"`
	Recommendations     []string          `json:"recommendations,omitempty" yaml:"recommendations,omitempty"`
	TopPrototype        string            `json:"top_prototype,omitempty" yaml:"top_prototype,omitempty"`
	Unachievable        []string          `json:"unachievable,omitempty" yaml:"unachievable,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads a JSON or YAML fixture, chosen by extension. The name
// defaults to the file name.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &f)
	default:
		err = json.Unmarshal(data, &f)
	}
	if err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	if f.Name == "" {
		f.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return &f, nil
}

// LoadDir loads every .json, .yaml and .yml fixture in dir, sorted by name.
func LoadDir(dir string) ([]*Fixture, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read fixture dir %s: %w", dir, err)
	}
	var out []*Fixture
	for _, e := range entries {
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".json", ".yaml", ".yml":
		default:
			continue
		}
		if e.IsDir() {
			continue
		}
		f, err := LoadFixture(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ToRequest converts a fixture into a diagnostics request.
func (f *Fixture) ToRequest() diagnostics.Request {
	seed := f.Seed
	return diagnostics.Request{
		Definition:  f.Expression,
		Regime:      f.Regime,
		Seed:        &seed,
		SampleCount: f.SampleCount,
	}
}

// #endregion fixture-loader

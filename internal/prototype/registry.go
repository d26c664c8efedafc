package prototype

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/danielpatrickdp/exprdiag/internal/axis"
	"github.com/danielpatrickdp/exprdiag/internal/gate"
	"gopkg.in/yaml.v3"
)

//go:embed data/*.json
var builtin embed.FS

// #region registry
// Registry holds validated prototypes by id. It is read-only after loading.
type Registry struct {
	model *axis.Model
	byID  map[string]*Prototype
	ids   []string
}

// NewRegistry creates an empty registry that validates against model.
func NewRegistry(model *axis.Model) *Registry {
	return &Registry{model: model, byID: make(map[string]*Prototype)}
}

// Default loads the built-in emotion and sexual lookup tables.
func Default(model *axis.Model) (*Registry, error) {
	r := NewRegistry(model)
	for _, src := range []struct {
		file string
		typ  Type
	}{
		{"data/emotion_prototypes.json", TypeEmotion},
		{"data/sexual_prototypes.json", TypeSexual},
	} {
		data, err := builtin.ReadFile(src.file)
		if err != nil {
			return nil, fmt.Errorf("read builtin %s: %w", src.file, err)
		}
		var table LookupTable
		if err := json.Unmarshal(data, &table); err != nil {
			return nil, fmt.Errorf("parse builtin %s: %w", src.file, err)
		}
		if err := r.Load(table, src.typ); err != nil {
			return nil, fmt.Errorf("load builtin %s: %w", src.file, err)
		}
	}
	return r, nil
}

// #endregion registry

// #region load
// Load validates and adds every entry of a lookup table. Every weight key and
// gate axis must resolve to a known axis; the first one that does not aborts
// the load with an UnknownAxisError so authoring drift is never skipped. A
// failed load leaves the registry unchanged.
func (r *Registry) Load(table LookupTable, defaultType Type) error {
	ids := make([]string, 0, len(table.Entries))
	for id := range table.Entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	built := make([]*Prototype, 0, len(ids))
	for _, id := range ids {
		p, err := r.build(id, table.Entries[id], defaultType)
		if err != nil {
			return err
		}
		built = append(built, p)
	}

	for _, p := range built {
		if _, dup := r.byID[p.ID]; !dup {
			r.ids = append(r.ids, p.ID)
		}
		r.byID[p.ID] = p
	}
	sort.Strings(r.ids)
	return nil
}

func (r *Registry) build(id string, e LookupEntry, defaultType Type) (*Prototype, error) {
	typ := e.Type
	if typ == "" {
		typ = defaultType
	}
	if typ != TypeEmotion && typ != TypeSexual {
		return nil, fmt.Errorf("prototype %s: invalid type %q", id, typ)
	}

	weights := make([]Weight, 0, len(e.Weights))
	for name, v := range e.Weights {
		a, err := r.model.LookupIn(name, fmt.Sprintf("prototype %s weights", id))
		if err != nil {
			return nil, err
		}
		weights = append(weights, Weight{Axis: a.Name, Value: v})
	}
	sort.Slice(weights, func(i, j int) bool { return weights[i].Axis < weights[j].Axis })

	gates, err := gate.ParseAll(r.model, e.Gates)
	if err != nil {
		return nil, fmt.Errorf("prototype %s: %w", id, err)
	}

	return &Prototype{ID: id, Type: typ, Weights: weights, Gates: gates}, nil
}

// LoadFile reads a lookup table from JSON or YAML (by extension).
func (r *Registry) LoadFile(path string, defaultType Type) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read lookup %s: %w", path, err)
	}
	var table LookupTable
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &table)
	default:
		err = json.Unmarshal(data, &table)
	}
	if err != nil {
		return fmt.Errorf("parse lookup %s: %w", path, err)
	}
	return r.Load(table, defaultType)
}

// #endregion load

// #region queries
// GetPrototype returns one prototype by id.
func (r *Registry) GetPrototype(id string) (*Prototype, error) {
	p, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPrototype, id)
	}
	return p, nil
}

// GetPrototypesByType lists prototypes of one family, sorted by id.
func (r *Registry) GetPrototypesByType(t Type) []*Prototype {
	var out []*Prototype
	for _, id := range r.ids {
		if p := r.byID[id]; p.Type == t {
			out = append(out, p)
		}
	}
	return out
}

// GetAllPrototypes lists prototypes selected by the filter, sorted by id.
func (r *Registry) GetAllPrototypes(f Filter) []*Prototype {
	all := !f.HasEmotions && !f.HasSexualStates
	var out []*Prototype
	for _, id := range r.ids {
		p := r.byID[id]
		if all ||
			(f.HasEmotions && p.Type == TypeEmotion) ||
			(f.HasSexualStates && p.Type == TypeSexual) {
			out = append(out, p)
		}
	}
	return out
}

// Has reports membership of id within a family.
func (r *Registry) Has(id string, t Type) bool {
	p, ok := r.byID[id]
	return ok && p.Type == t
}

// Len is the number of registered prototypes.
func (r *Registry) Len() int {
	return len(r.ids)
}

// Model returns the axis model the registry validates against.
func (r *Registry) Model() *axis.Model {
	return r.model
}

// #endregion queries

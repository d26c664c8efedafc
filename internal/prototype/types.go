package prototype

import (
	"errors"

	"github.com/danielpatrickdp/exprdiag/internal/gate"
)

// #region type
// Type is the declared family of a prototype.
type Type string

const (
	TypeEmotion Type = "emotion"
	TypeSexual  Type = "sexual"
)

// #endregion type

// #region weight
// Weight is one axis coefficient. Weights are kept as a sorted slice so
// iteration order, and therefore float summation order, is fixed.
type Weight struct {
	Axis  string  `json:"axis"`
	Value float64 `json:"value"`
}

// #endregion weight

// #region prototype
// Prototype derives one named emotion or sexual state from axes: a weighted
// sum gated by threshold predicates.
type Prototype struct {
	ID      string           `json:"id"`
	Type    Type             `json:"type"`
	Weights []Weight         `json:"weights"`
	Gates   []gate.Predicate `json:"gates"`
}

// #endregion prototype

// #region lookup-table
// LookupTable is the external prototype definition format:
// { "entries": { "<id>": { "weights": {...}, "gates": ["axis >= t", ...] } } }.
type LookupTable struct {
	Entries map[string]LookupEntry `json:"entries" yaml:"entries"`
}

// LookupEntry is one prototype in a lookup table. Type is optional and
// defaults to the type the table was loaded as.
type LookupEntry struct {
	Type    Type               `json:"type,omitempty" yaml:"type,omitempty"`
	Weights map[string]float64 `json:"weights" yaml:"weights"`
	Gates   []string           `json:"gates" yaml:"gates"`
}

// #endregion lookup-table

// #region filter
// Filter selects prototype families. A zero Filter selects everything.
type Filter struct {
	HasEmotions     bool
	HasSexualStates bool
}

// #endregion filter

// #region errors
// ErrUnknownPrototype is returned when an id is not registered.
var ErrUnknownPrototype = errors.New("unknown prototype")

// #endregion errors

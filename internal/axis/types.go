package axis

import (
	"errors"
	"fmt"
)

// #region kind
// Kind groups axes by the part of the psychological state they belong to.
type Kind string

const (
	KindMood    Kind = "mood"
	KindTrait   Kind = "trait"
	KindSexual  Kind = "sexual"
	KindDerived Kind = "derived" // computed from other axes, never sampled directly
)

// #endregion kind

// #region canonical-names
const (
	Valence           = "valence"
	Arousal           = "arousal"
	AgencyControl     = "agency_control"
	Threat            = "threat"
	Engagement        = "engagement"
	FutureExpectancy  = "future_expectancy"
	SelfEvaluation    = "self_evaluation"
	Affiliation       = "affiliation"
	InhibitoryControl = "inhibitory_control"
	Uncertainty       = "uncertainty"

	AffectiveEmpathy      = "affective_empathy"
	CognitiveEmpathy      = "cognitive_empathy"
	HarmAversion          = "harm_aversion"
	SelfControl           = "self_control"
	DisgustSensitivity    = "disgust_sensitivity"
	RuminativeTendency    = "ruminative_tendency"
	EvaluationSensitivity = "evaluation_sensitivity"

	SexExcitation  = "sex_excitation"
	SexInhibition  = "sex_inhibition"
	BaselineLibido = "baseline_libido"

	SexualArousal = "sexual_arousal"
)

// #endregion canonical-names

// #region axis
// Axis describes one scalar dimension and its raw/normalized domains.
// Normalization is the linear map from [RawMin, RawMax] onto [NormMin, NormMax].
type Axis struct {
	Name    string  `json:"name"`
	Kind    Kind    `json:"kind"`
	RawMin  float64 `json:"raw_min"`
	RawMax  float64 `json:"raw_max"`
	NormMin float64 `json:"norm_min"`
	NormMax float64 `json:"norm_max"`
}

// Bipolar reports whether the normalized domain is centred on zero.
func (a Axis) Bipolar() bool {
	return a.NormMin < 0
}

// NormMid is the neutral point of the normalized domain.
func (a Axis) NormMid() float64 {
	return (a.NormMin + a.NormMax) / 2
}

// RawWidth is the size of the raw domain.
func (a Axis) RawWidth() float64 {
	return a.RawMax - a.RawMin
}

// #endregion axis

// #region errors
// ErrUnknownAxis is matched by every UnknownAxisError.
var ErrUnknownAxis = errors.New("unknown axis")

// UnknownAxisError reports a name that resolves to no mood axis, affect trait
// or sexual axis. Context names where the name was found (a prototype weight,
// a gate, a comparison path).
type UnknownAxisError struct {
	Name    string
	Context string
}

func (e *UnknownAxisError) Error() string {
	if e.Context == "" {
		return fmt.Sprintf("unknown axis %q", e.Name)
	}
	return fmt.Sprintf("unknown axis %q in %s", e.Name, e.Context)
}

func (e *UnknownAxisError) Is(target error) bool {
	return target == ErrUnknownAxis
}

// #endregion errors

// #region interval
// Interval is a closed range [Lo, Hi] in normalized units.
type Interval struct {
	Lo float64 `json:"lo"`
	Hi float64 `json:"hi"`
}

// Empty reports whether the interval contains no points.
func (i Interval) Empty() bool {
	return i.Lo > i.Hi
}

// Intersect returns the overlap of two intervals (possibly empty).
func (i Interval) Intersect(o Interval) Interval {
	lo, hi := i.Lo, i.Hi
	if o.Lo > lo {
		lo = o.Lo
	}
	if o.Hi < hi {
		hi = o.Hi
	}
	return Interval{Lo: lo, Hi: hi}
}

// NormInterval is the axis's full normalized domain.
func (a Axis) NormInterval() Interval {
	return Interval{Lo: a.NormMin, Hi: a.NormMax}
}

// #endregion interval

// Package decision reproduces, for display only, the biometric service's
// multi-threshold classification of a cosine distance. It never decides a
// verdict; the verdict always comes from the service response.
package decision

import "math"

// DisplayCeiling is the distance that maps to the right end of the gauge.
const DisplayCeiling = 0.8

// Thresholds are the three zone boundaries. Valid sets satisfy
// 0 <= SuperStrict < Strict < Loose <= 1.
type Thresholds struct {
	SuperStrict float64
	Strict      float64
	Loose       float64
}

// Defaults are used for any threshold the service omits.
var Defaults = Thresholds{SuperStrict: 0.33, Strict: 0.40, Loose: 0.52}

// Valid reports whether the thresholds are ordered and inside [0, 1].
func (t Thresholds) Valid() bool {
	return t.SuperStrict >= 0 && t.SuperStrict < t.Strict && t.Strict < t.Loose && t.Loose <= 1
}

// Resolve builds thresholds from optional values, substituting Defaults.
func Resolve(superStrict, strict, loose *float64) Thresholds {
	t := Defaults
	if superStrict != nil {
		t.SuperStrict = *superStrict
	}
	if strict != nil {
		t.Strict = *strict
	}
	if loose != nil {
		t.Loose = *loose
	}
	return t
}

// Zone is a distance range, ordered from best (A) to worst (D).
type Zone int

const (
	// ZoneA: at or below super-strict, approved by the fast detector alone.
	ZoneA Zone = iota
	// ZoneB: above super-strict up to strict, approved only when the fallback confirms.
	ZoneB
	// ZoneC: above strict up to loose, the gray zone.
	ZoneC
	// ZoneD: above loose, rejected.
	ZoneD
)

func (z Zone) String() string {
	switch z {
	case ZoneA:
		return "A"
	case ZoneB:
		return "B"
	case ZoneC:
		return "C"
	default:
		return "D"
	}
}

// Label is the operator-facing zone name.
func (z Zone) Label() string {
	switch z {
	case ZoneA:
		return "Super-estrito"
	case ZoneB:
		return "Estrito"
	case ZoneC:
		return "Zona cinza"
	default:
		return "Rejeição"
	}
}

// Tone is the styling token for the zone.
func (z Zone) Tone() string {
	switch z {
	case ZoneA:
		return "accent"
	case ZoneB:
		return "warn"
	case ZoneC:
		return "orange"
	default:
		return "danger"
	}
}

// Classify maps a distance to its zone. Invalid thresholds, negative
// distances and NaN all classify as ZoneD.
func Classify(distance float64, t Thresholds) Zone {
	if !t.Valid() || math.IsNaN(distance) || distance < 0 {
		return ZoneD
	}
	switch {
	case distance <= t.SuperStrict:
		return ZoneA
	case distance <= t.Strict:
		return ZoneB
	case distance <= t.Loose:
		return ZoneC
	default:
		return ZoneD
	}
}

// Position projects a distance onto the gauge as a fraction in [0, 1].
func Position(v float64) float64 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	return math.Min(v/DisplayCeiling, 1)
}

// Gauge holds the value marker and the three boundary markers, all projected
// through Position so they line up on the same bar.
type Gauge struct {
	Value       float64
	SuperStrict float64
	Strict      float64
	Loose       float64
	Zone        Zone
	Thresholds  Thresholds
}

// NewGauge builds the gauge for a distance.
func NewGauge(distance float64, t Thresholds) Gauge {
	return Gauge{
		Value:       Position(distance),
		SuperStrict: Position(t.SuperStrict),
		Strict:      Position(t.Strict),
		Loose:       Position(t.Loose),
		Zone:        Classify(distance, t),
		Thresholds:  t,
	}
}

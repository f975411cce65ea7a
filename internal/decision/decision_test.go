package decision

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr(v float64) *float64 { return &v }

func TestDefaultsAreValid(t *testing.T) {
	assert.True(t, Defaults.Valid())
	assert.Less(t, Defaults.SuperStrict, Defaults.Strict)
	assert.Less(t, Defaults.Strict, Defaults.Loose)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		distance float64
		want     Zone
	}{
		{"zero", 0, ZoneA},
		{"well inside super-strict", 0.21, ZoneA},
		{"on super-strict boundary", 0.33, ZoneA},
		{"just above super-strict", 0.3300001, ZoneB},
		{"on strict boundary", 0.40, ZoneB},
		{"gray zone", 0.45, ZoneC},
		{"on loose boundary", 0.52, ZoneC},
		{"above loose", 0.53, ZoneD},
		{"beyond ceiling", 1.7, ZoneD},
		{"negative", -0.1, ZoneD},
		{"nan", math.NaN(), ZoneD},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.distance, Defaults))
		})
	}
}

func TestClassify_InvalidThresholds(t *testing.T) {
	invalid := []Thresholds{
		{SuperStrict: 0.40, Strict: 0.33, Loose: 0.52},
		{SuperStrict: 0.33, Strict: 0.33, Loose: 0.52},
		{SuperStrict: 0.33, Strict: 0.40, Loose: 1.5},
		{SuperStrict: -0.1, Strict: 0.40, Loose: 0.52},
	}
	for _, th := range invalid {
		assert.False(t, th.Valid())
		assert.Equal(t, ZoneD, Classify(0.0, th), "invalid thresholds %+v", th)
	}
}

func TestClassify_Monotonic(t *testing.T) {
	sets := []Thresholds{
		Defaults,
		{SuperStrict: 0.1, Strict: 0.2, Loose: 0.9},
		{SuperStrict: 0.5, Strict: 0.4, Loose: 0.3},
	}
	for _, th := range sets {
		prev := ZoneA
		for d := 0.0; d <= 1.2; d += 0.001 {
			z := Classify(d, th)
			assert.GreaterOrEqual(t, z, prev, "distance %.3f moved to a better zone with %+v", d, th)
			prev = z
		}
	}
}

func TestResolve(t *testing.T) {
	assert.Equal(t, Defaults, Resolve(nil, nil, nil))

	got := Resolve(nil, ptr(0.45), nil)
	assert.Equal(t, Thresholds{SuperStrict: 0.33, Strict: 0.45, Loose: 0.52}, got)

	got = Resolve(ptr(0.2), ptr(0.3), ptr(0.6))
	assert.Equal(t, Thresholds{SuperStrict: 0.2, Strict: 0.3, Loose: 0.6}, got)
}

func TestPosition(t *testing.T) {
	assert.InDelta(t, 0.2625, Position(0.21), 1e-12)
	assert.InDelta(t, 0.5, Position(0.4), 1e-12)
	assert.Equal(t, 1.0, Position(0.8))
	assert.Equal(t, 1.0, Position(3))
	assert.Equal(t, 0.0, Position(-1))
	assert.Equal(t, 0.0, Position(math.NaN()))
}

func TestNewGauge(t *testing.T) {
	g := NewGauge(0.21, Defaults)

	assert.Equal(t, ZoneA, g.Zone)
	assert.InDelta(t, 0.2625, g.Value, 1e-12)
	assert.InDelta(t, 0.4125, g.SuperStrict, 1e-12)
	assert.InDelta(t, 0.5, g.Strict, 1e-12)
	assert.InDelta(t, 0.65, g.Loose, 1e-12)
}

func TestZoneLabels(t *testing.T) {
	assert.Equal(t, "A", ZoneA.String())
	assert.Equal(t, "D", ZoneD.String())
	assert.Equal(t, "accent", ZoneA.Tone())
	assert.Equal(t, "danger", ZoneD.Tone())
	assert.Equal(t, "Zona cinza", ZoneC.Label())
}

package orient

import (
	"fmt"
	"math"
	"sort"
)

// Calibration maps raw decomposed angles onto the angles one particular
// render engine expects. Each axis gets a sign and then an offset:
//
//	engine = sign*raw + offset
//
// The constants were tuned against a single engine and dataset, so they
// are configuration rather than derived values.
type Calibration struct {
	YawSign     float64 `yaml:"yaw_sign"`
	PitchSign   float64 `yaml:"pitch_sign"`
	RollSign    float64 `yaml:"roll_sign"`
	YawOffset   float64 `yaml:"yaw_offset"`
	PitchOffset float64 `yaml:"pitch_offset"`
	RollOffset  float64 `yaml:"roll_offset"`
}

// DefaultCalibration negates roll and applies no offsets.
func DefaultCalibration() Calibration {
	return Calibration{
		YawSign:   1,
		PitchSign: 1,
		RollSign:  -1,
	}
}

// NoCalibration reports raw angles unchanged.
func NoCalibration() Calibration {
	return Calibration{YawSign: 1, PitchSign: 1, RollSign: 1}
}

var presets = map[string]Calibration{
	"default": DefaultCalibration(),
	"raw":     NoCalibration(),
	// tuned against an A-Frame a-sky scene
	"aframe-sky": {YawSign: 1, PitchSign: 1, RollSign: -1, YawOffset: 90},
}

// Preset returns a named calibration.
func Preset(name string) (Calibration, error) {
	c, ok := presets[name]
	if !ok {
		return Calibration{}, fmt.Errorf("unknown calibration preset %q (have %v)", name, PresetNames())
	}
	return c, nil
}

// PresetNames lists the known presets in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Validate checks that every sign is +1 or -1.
func (c Calibration) Validate() error {
	for _, s := range []struct {
		axis string
		v    float64
	}{{"yaw", c.YawSign}, {"pitch", c.PitchSign}, {"roll", c.RollSign}} {
		if s.v != 1 && s.v != -1 {
			return fmt.Errorf("calibration %s_sign must be 1 or -1, got %v", s.axis, s.v)
		}
	}
	return nil
}

// Apply converts raw angles to engine angles.
func (c Calibration) Apply(raw Angles) Angles {
	return Angles{
		Yaw:   WrapDegrees(c.YawSign*raw.Yaw + c.YawOffset),
		Pitch: WrapDegrees(c.PitchSign*raw.Pitch + c.PitchOffset),
		Roll:  WrapDegrees(c.RollSign*raw.Roll + c.RollOffset),
	}
}

// Remove converts engine angles back to raw angles.
func (c Calibration) Remove(engine Angles) Angles {
	return Angles{
		Yaw:   WrapDegrees((engine.Yaw - c.YawOffset) * c.YawSign),
		Pitch: WrapDegrees((engine.Pitch - c.PitchOffset) * c.PitchSign),
		Roll:  WrapDegrees((engine.Roll - c.RollOffset) * c.RollSign),
	}
}

// WrapDegrees folds an angle into (-180, 180].
func WrapDegrees(deg float64) float64 {
	if deg > -180 && deg <= 180 {
		return deg
	}
	w := math.Mod(deg+180, 360)
	if w <= 0 {
		w += 360
	}
	return w - 180
}

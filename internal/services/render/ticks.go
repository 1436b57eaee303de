package render

import (
	"fmt"
	"math"
)

// Tick is a labelled position on an axis
type Tick struct {
	Value float64
	Label string
}

// niceStep returns a 1, 2 or 5 times power-of-ten step that splits span
// into at most about target intervals
func niceStep(span float64, target int) float64 {
	if span <= 0 || target <= 0 {
		return 1
	}
	raw := span / float64(target)
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	for _, m := range []float64{1, 2, 5, 10} {
		if step := m * mag; step >= raw {
			return step
		}
	}
	return 10 * mag
}

// ticksBetween returns multiples of step inside [lo, hi]
func ticksBetween(lo, hi, step float64) []float64 {
	if step <= 0 || hi < lo {
		return nil
	}
	var out []float64
	first := math.Ceil(lo/step-1e-9) * step
	for v := first; v <= hi+step*1e-9; v += step {
		// Rounding keeps labels like 0.30000000000000004 out
		tick := math.Round(v/step) * step
		if tick == 0 {
			tick = 0 // no negative zero
		}
		out = append(out, tick)
	}
	return out
}

// FrequencyLabel formats a frequency tick: "N kHz" from 1000 Hz on,
// otherwise "N Hz"
func FrequencyLabel(hz float64) string {
	v := int(math.Round(hz))
	if v >= 1000 {
		return fmt.Sprintf("%d kHz", v/1000)
	}
	return fmt.Sprintf("%d Hz", v)
}

// DecibelLabel formats a colorbar tick as a signed integer, e.g. "+0 dB"
// or "-40 dB"
func DecibelLabel(db float64) string {
	if math.Abs(db) < 0.5 {
		db = 0
	}
	return fmt.Sprintf("%+.0f dB", db)
}

// TimeLabel formats a time tick with as many decimals as step needs
func TimeLabel(seconds, step float64) string {
	decimals := 0
	for s := step; decimals < 3 && math.Abs(s-math.Round(s)) > 1e-9; s *= 10 {
		decimals++
	}
	return fmt.Sprintf("%.*f", decimals, seconds)
}

// FrequencyTicks returns ticks every step Hz from 0 to nyquist
func FrequencyTicks(nyquist, step float64) []Tick {
	if step <= 0 {
		return nil
	}
	values := ticksBetween(0, nyquist, step)
	ticks := make([]Tick, len(values))
	for i, v := range values {
		ticks[i] = Tick{Value: v, Label: FrequencyLabel(v)}
	}
	return ticks
}

// TimeTicks returns evenly spaced ticks covering [0, duration]
func TimeTicks(duration float64, target int) []Tick {
	if duration <= 0 {
		return []Tick{{Value: 0, Label: "0"}}
	}
	step := niceStep(duration, target)
	values := ticksBetween(0, duration, step)
	ticks := make([]Tick, len(values))
	for i, v := range values {
		ticks[i] = Tick{Value: v, Label: TimeLabel(v, step)}
	}
	return ticks
}

// DecibelTicks returns colorbar ticks covering [lo, hi]
func DecibelTicks(lo, hi float64, target int) []Tick {
	step := niceStep(hi-lo, target)
	values := ticksBetween(lo, hi, step)
	ticks := make([]Tick, len(values))
	for i, v := range values {
		ticks[i] = Tick{Value: v, Label: DecibelLabel(v)}
	}
	return ticks
}

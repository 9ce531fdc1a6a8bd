package wheel

import (
	"math"
	"time"
)

// EaseOutCubic maps linear progress p to 1-(1-p)^3, clamping p to [0,1].
func EaseOutCubic(p float64) float64 {
	p = clamp01(p)
	return 1 - math.Pow(1-p, 3)
}

// Progress returns elapsed/duration clamped to [0,1].
func Progress(elapsed, duration time.Duration) float64 {
	if duration <= 0 {
		return 1
	}
	return clamp01(float64(elapsed) / float64(duration))
}

// TotalRotation converts a uniform sample u in [0,1) into a spin of 5-8 full turns.
func TotalRotation(u float64) float64 {
	u = clamp01(u)
	return (minTurns + u*(maxTurns-minTurns)) * FullTurn
}

// Animation describes one spin from a starting angle.
type Animation struct {
	Start    float64
	Total    float64
	Duration time.Duration
}

// RotationAt returns the displayed rotation after elapsed time.
func (a Animation) RotationAt(elapsed time.Duration) float64 {
	return a.Start + a.Total*EaseOutCubic(Progress(elapsed, a.Duration))
}

// Final is the rotation once the animation has completed.
func (a Animation) Final() float64 {
	return a.Start + a.Total
}

// Done reports whether elapsed has reached the end of the animation.
func (a Animation) Done(elapsed time.Duration) bool {
	return Progress(elapsed, a.Duration) >= 1
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

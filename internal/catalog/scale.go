package catalog

import "math"

// Raw answer scale.
const (
	RawMin     = 1
	RawMax     = 5
	RawDefault = 3
)

// Canonical scale bounds.
const (
	CanonicalMin = 0.0
	CanonicalMax = 100.0
)

// ToCanonical converts a value on the raw 1-5 scale to 0-100.
func ToCanonical(raw float64) float64 {
	return (raw - RawMin) / (RawMax - RawMin) * CanonicalMax
}

// FromCanonical converts a 0-100 value back to the 1-5 scale for display.
func FromCanonical(c float64) float64 {
	return c/CanonicalMax*(RawMax-RawMin) + RawMin
}

// DeltaToCanonical converts a difference on the raw scale (e.g. a 0.5 gap
// threshold) to the equivalent canonical difference.
func DeltaToCanonical(d float64) float64 {
	return d / (RawMax - RawMin) * CanonicalMax
}

// precision is the resolution derived scores are snapped to.
const precision = 1e9

// Round snaps v to 1e-9. Means, offsets and conversions drift by a few ulps,
// so a value that is exactly 37.5 on paper can come out as 37.499999999999993.
// Snapping keeps ladder floors and gap thresholds inclusive where they should be.
func Round(v float64) float64 {
	return math.Round(v*precision) / precision
}

// Clamp bounds v to the canonical scale.
func Clamp(v float64) float64 {
	if v < CanonicalMin {
		return CanonicalMin
	}
	if v > CanonicalMax {
		return CanonicalMax
	}
	return v
}

// ValidRaw reports whether v is an acceptable raw answer.
func ValidRaw(v int) bool {
	return v >= RawMin && v <= RawMax
}

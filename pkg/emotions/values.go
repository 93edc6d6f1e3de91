package emotions

import "math"

// values is the averaging scale. Disgusted and Sad share -2.
var values = map[Label]int{
	Angry:     -3,
	Disgusted: -2,
	Fear:      -1,
	Happy:     3,
	Sad:       -2,
	Surprised: 2,
	Neutral:   0,
}

// inverse is built in All order so a later label overwrites an earlier one
// with the same value: -2 resolves to Sad.
var inverse = func() map[int]Label {
	m := make(map[int]Label, len(values))
	for _, l := range All {
		m[values[l]] = l
	}
	return m
}()

// Value returns the label's numeric value. Unknown labels count as 0.
func (l Label) Value() int {
	return values[l]
}

// FromValue maps an integer back to a label. Values without a label
// (1, or anything outside -3..3) report false.
func FromValue(v int) (Label, bool) {
	l, ok := inverse[v]
	return l, ok
}

// Resolve rounds a mean value half-to-even and maps it back to a label,
// returning Unknown when the rounded value has no label.
func Resolve(mean float64) Label {
	if math.IsNaN(mean) || math.IsInf(mean, 0) {
		return Unknown
	}
	if l, ok := FromValue(int(math.RoundToEven(mean))); ok {
		return l
	}
	return Unknown
}

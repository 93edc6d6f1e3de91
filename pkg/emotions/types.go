// Package emotions defines the closed set of facial-expression labels the
// classifier produces, their numeric values used for smoothing, and the
// actuator palette that turns a label into a light color and brightness.
package emotions

import "strings"

// Label is a facial-expression classification.
type Label string

// Known labels, in classifier output order.
const (
	Angry     Label = "Angry"
	Disgusted Label = "Disgusted"
	Fear      Label = "Fear"
	Happy     Label = "Happy"
	Sad       Label = "Sad"
	Surprised Label = "Surprised"
	Neutral   Label = "Neutral"
)

// Unknown is reported when a smoothed value has no label.
// It is never published.
const Unknown Label = "Unknown"

// All lists the known labels in classifier output order.
// The order matters: it decides which label wins when two share a value.
var All = []Label{Angry, Disgusted, Fear, Happy, Sad, Surprised, Neutral}

// ParseLabel resolves a label name. Matching ignores case and surrounding
// whitespace; the canonical spelling is returned.
func ParseLabel(s string) (Label, bool) {
	s = strings.TrimSpace(s)
	for _, l := range All {
		if strings.EqualFold(s, string(l)) {
			return l, true
		}
	}
	return "", false
}

// Known reports whether l is one of the seven classifier labels.
func (l Label) Known() bool {
	_, ok := values[l]
	return ok
}

// String returns the label name.
func (l Label) String() string {
	return string(l)
}

package emotion

import "context"

// Label is a discrete emotion label.
type Label string

const (
	LabelLoving  Label = "loving"
	LabelHappy   Label = "happy"
	LabelPlayful Label = "playful"
	LabelSad     Label = "sad"
	LabelAngry   Label = "angry"
	LabelAnxious Label = "anxious"
	LabelJealous Label = "jealous"
	LabelLonely  Label = "lonely"
	LabelHorny   Label = "horny"
	LabelNeutral Label = "neutral"
)

// Labels lists every label the classifier can emit.
var Labels = []Label{
	LabelLoving, LabelHappy, LabelPlayful, LabelSad, LabelAngry,
	LabelAnxious, LabelJealous, LabelLonely, LabelHorny, LabelNeutral,
}

// ParseLabel maps a string to a Label, defaulting to LabelNeutral.
func ParseLabel(s string) Label {
	for _, label := range Labels {
		if s == string(label) {
			return label
		}
	}
	return LabelNeutral
}

// Classification is a label with a confidence score in [0,1].
type Classification struct {
	Label      Label
	Confidence float64
}

// Classifier maps raw text to a classification. Implementations never fail:
// on any internal error they return the neutral label at low confidence.
type Classifier interface {
	Classify(ctx context.Context, text string) Classification
}

// Neutral is the fallback classification for empty or unscorable input.
func Neutral() Classification {
	return Classification{Label: LabelNeutral, Confidence: 0.2}
}

// ClampConfidence maps a raw match score into the confidence range.
func ClampConfidence(score int) float64 {
	conf := float64(score) / 3
	if conf < 0.2 {
		return 0.2
	}
	if conf > 0.95 {
		return 0.95
	}
	return conf
}

package domain

import "strings"

// emphasisMarker wraps the phrases of an explanation line that the page
// renders in bold.
const emphasisMarker = "**"

// Explanation is the plain-language note shown with every prediction.
var Explanation = []string{
	"The rock’s **chemical composition** influences how much material dissolves during rain or snow.",
	"**Event quantity** and **temperature** affect how much leachate is produced.",
	"Acidic events generally increase leaching by reacting with minerals.",
	"The model compares this event with historical patterns in similar rocks.",
}

// ExplanationSegment is a run of explanation text, emphasized or not.
type ExplanationSegment struct {
	Text     string
	Emphasis bool
}

// SplitEmphasis breaks a line into alternating plain and emphasized runs.
// Empty runs are dropped.
func SplitEmphasis(line string) []ExplanationSegment {
	parts := strings.Split(line, emphasisMarker)
	segs := make([]ExplanationSegment, 0, len(parts))
	for i, p := range parts {
		if p == "" {
			continue
		}
		segs = append(segs, ExplanationSegment{Text: p, Emphasis: i%2 == 1})
	}
	return segs
}

// PlainExplanation returns Explanation without emphasis markers.
func PlainExplanation() []string {
	out := make([]string, len(Explanation))
	for i, line := range Explanation {
		out[i] = strings.ReplaceAll(line, emphasisMarker, "")
	}
	return out
}

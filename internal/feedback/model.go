package feedback

// Tip kinds. Anything not explicitly marked "good" normalizes to "improve".
const (
	KindGood    = "good"
	KindImprove = "improve"
)

// Tip is a single piece of advice attached to a category or the ATS section.
type Tip struct {
	Kind        string `json:"kind"`
	Text        string `json:"text"`
	Explanation string `json:"explanation,omitempty"`
}

// Category holds a clamped 0-100 score and its tips.
type Category struct {
	Score float64 `json:"score"`
	Tips  []Tip   `json:"tips"`
}

// ATS holds the ATS-compatibility score and its suggestions.
type ATS struct {
	Score       float64 `json:"score"`
	Suggestions []Tip   `json:"suggestions"`
}

// Feedback is the canonical scored structure consumed by display logic.
// It is produced only by Normalize and is always fully defaulted: every
// score lies in [0,100] and every tip has non-empty text.
type Feedback struct {
	OverallRating float64  `json:"overallRating"`
	ATS           ATS      `json:"ats"`
	ToneAndStyle  Category `json:"toneAndStyle"`
	Content       Category `json:"content"`
	Structure     Category `json:"structure"`
	Skills        Category `json:"skills"`
}

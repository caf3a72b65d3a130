package resumes

import (
	"encoding/json"
	"time"
)

// Record is the persisted unit for one analysis run. It is written as JSON
// text into the key-value store under "resume:<id>". Feedback stays null
// until the remote call lands, so a partial run remains inspectable with
// both blob references in place.
type Record struct {
	ID             string          `json:"id"`
	UserID         string          `json:"userId,omitempty"`
	DocumentKey    string          `json:"documentRef"`
	ImageKey       string          `json:"imageRef"`
	CompanyName    string          `json:"companyName"`
	JobTitle       string          `json:"jobTitle"`
	JobDescription string          `json:"jobDescription"`
	Feedback       json.RawMessage `json:"feedback"`
	Status         string          `json:"status"`
	FailureStage   string          `json:"failureStage,omitempty"`
	Error          string          `json:"error,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// HasFeedback reports whether the analysis payload has been written.
func (r Record) HasFeedback() bool {
	return len(r.Feedback) > 0 && string(r.Feedback) != "null"
}

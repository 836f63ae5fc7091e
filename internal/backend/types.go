package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ID is an identifier the backend may encode as a JSON string or number.
type ID string

// UnmarshalJSON accepts both `"abc"` and `42`.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("backend: id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// Interview is one entry of the interview listing shown on the dashboard.
type Interview struct {
	ID            ID       `json:"id"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	InterviewType string   `json:"interview_type"`
	TechStack     []string `json:"tech_stack"`
}

// Role describes what to expect from interviews for one job title.
type Role struct {
	Title   string      `json:"title"`
	Details RoleDetails `json:"details"`
}

// RoleDetails is the descriptive part of a [Role].
type RoleDetails struct {
	InterviewType     string     `json:"interviewType"`
	TechStack         []string   `json:"techStack"`
	ExpectedQuestions []string   `json:"expectedQuestions"`
	Requirements      []string   `json:"requirements"`
	PreparationTips   []string   `json:"preparationTips"`
	CommonMistakes    []string   `json:"commonMistakes"`
	Resources         []Resource `json:"resources"`
}

// Resource is a learning resource linked from a role.
type Resource struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// CategoryScore is the score and comment for one assessed category.
type CategoryScore struct {
	Name    string  `json:"name"`
	Score   float64 `json:"score"`
	Comment string  `json:"comment"`
}

// AnalysisResult is the backend's assessment of an interview transcript.
//
// The exact response body is kept in Raw and re-emitted by MarshalJSON, so a
// result can be handed on without losing fields this type does not know.
type AnalysisResult struct {
	TotalScore          float64         `json:"totalScore"`
	CategoryScores      []CategoryScore `json:"categoryScores"`
	Strengths           []string        `json:"strengths"`
	AreasForImprovement []string        `json:"areasForImprovement"`
	FinalAssessment     string          `json:"finalAssessment"`

	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes the known fields and keeps a copy of b in Raw.
func (a *AnalysisResult) UnmarshalJSON(b []byte) error {
	type plain AnalysisResult
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*a = AnalysisResult(p)
	a.Raw = bytes.Clone(b)
	return nil
}

// MarshalJSON returns Raw when set, otherwise the encoded known fields.
func (a AnalysisResult) MarshalJSON() ([]byte, error) {
	if len(a.Raw) > 0 {
		return a.Raw, nil
	}
	type plain AnalysisResult
	return json.Marshal(plain(a))
}

// Contact is the body of the contact form.
type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Query string `json:"query"`
}

// Validate returns [ErrIncompleteForm] when a field is blank.
func (c Contact) Validate() error {
	if blank(c.Name, c.Email, c.Query) {
		return ErrIncompleteForm
	}
	return nil
}

// Feedback is the body of the feedback form. Rating is 1 to 5.
type Feedback struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
	Rating  int    `json:"rating"`
}

// Validate returns [ErrIncompleteForm] when a field is blank or the rating is
// outside 1..5.
func (f Feedback) Validate() error {
	if blank(f.Name, f.Email, f.Message) || f.Rating < 1 || f.Rating > 5 {
		return ErrIncompleteForm
	}
	return nil
}

func blank(fields ...string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) == "" {
			return true
		}
	}
	return false
}

package session

import (
	"fmt"
	"strings"

	"github.com/mockhire/mockhire/internal/identity"
)

// Difficulty is the interview difficulty chosen on the dashboard.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// Difficulties lists the selectable difficulties in display order.
var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

// Durations lists the selectable interview lengths in display order.
var Durations = []string{"3 min", "5 min"}

// ParseDifficulty matches s against [Difficulties], ignoring case.
func ParseDifficulty(s string) (Difficulty, error) {
	for _, d := range Difficulties {
		if strings.EqualFold(strings.TrimSpace(s), string(d)) {
			return d, nil
		}
	}
	return "", fmt.Errorf("session: unknown difficulty %q", s)
}

// InterviewRoute is the navigation state the interview screen is opened with.
type InterviewRoute struct {
	Role       string
	Difficulty Difficulty
	Duration   string
	ResumeText string
}

// IsZero reports whether r carries no state at all. The interview screen
// sends the user back to the dashboard in that case.
func (r InterviewRoute) IsZero() bool {
	return r == InterviewRoute{}
}

// Params are the session variables sent to the voice-call service. They are
// fixed once built.
type Params struct {
	Role       string
	Difficulty Difficulty
	Duration   string
	ResumeText string
	UserName   string
	UserEmail  string
	UserID     string
}

// NewParams combines the interview route with the signed-in user.
func NewParams(r InterviewRoute, u identity.User) Params {
	return Params{
		Role:       r.Role,
		Difficulty: r.Difficulty,
		Duration:   r.Duration,
		ResumeText: r.ResumeText,
		UserName:   u.DisplayName(),
		UserEmail:  u.Email,
		UserID:     u.ID,
	}
}

// Variables returns p keyed by the variable names the interviewer assistant
// templates use. Every key is always present.
func (p Params) Variables() map[string]string {
	return map[string]string{
		"role":       p.Role,
		"difficulty": string(p.Difficulty),
		"duration":   p.Duration,
		"resumeText": p.ResumeText,
		"userName":   p.UserName,
		"userEmail":  p.UserEmail,
		"userId":     p.UserID,
	}
}

package screen

import (
	"context"
	"strconv"
)

// MsgNoResults is shown when the results page is opened without an analysis.
const MsgNoResults = "No interview results found."

// Results shows the analysis of the interview that just ended.
type Results struct {
	Console *Console
}

// Show implements Screen.
func (s *Results) Show(ctx context.Context, r Route) (Route, error) {
	c := s.Console
	a := r.Results.Analysis
	if r.Results.IsZero() {
		c.Heading(MsgNoResults)
		if _, err := c.Prompt(ctx, "Press Enter to go to the dashboard."); err != nil {
			return Route{}, err
		}
		return Route{Kind: KindDashboard}, nil
	}

	c.Heading("Interview Analysis Results")
	c.Printf("Overall Score: %s\n", formatScore(a.TotalScore))
	if a.FinalAssessment != "" {
		c.Println(a.FinalAssessment)
	}

	c.Println("\nCategory Scores")
	for _, cat := range a.CategoryScores {
		c.Printf("  %s: %s\n", cat.Name, formatScore(cat.Score))
		if cat.Comment != "" {
			c.Printf("    %s\n", cat.Comment)
		}
	}
	list(c, "Strengths", a.Strengths)
	list(c, "Areas For Improvement", a.AreasForImprovement)

	for {
		line, err := c.Prompt(ctx, "\nPress Enter to go back to the dashboard, or type 'transcript':")
		if err != nil {
			return Route{}, err
		}
		if name, _ := command(line); name != "transcript" {
			return Route{Kind: KindDashboard}, nil
		}
		c.Heading("Transcript")
		if r.Results.Transcript == "" {
			c.Println("(empty)")
		} else {
			c.Println(r.Results.Transcript)
		}
	}
}

func list(c *Console, title string, items []string) {
	c.Printf("\n%s\n", title)
	for _, it := range items {
		c.Printf("  - %s\n", it)
	}
}

func formatScore(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

package screen

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/mockhire/mockhire/internal/backend"
)

// Role page messages.
const (
	MsgRoleLoadFailed = "Failed to load role details. Please try again."
	MsgNoRole         = "No role found."
)

// RoleFetcher looks up role details by title. *backend.Client implements it.
type RoleFetcher interface {
	Role(ctx context.Context, title string) (*backend.Role, error)
}

// Role shows the details of one role.
type Role struct {
	Console *Console
	Backend RoleFetcher
}

// Show implements Screen.
func (s *Role) Show(ctx context.Context, r Route) (Route, error) {
	c := s.Console
	c.Println("Loading role details…")

	role, err := s.Backend.Role(ctx, r.Role)
	switch {
	case err == nil:
		renderRole(c, role)
	case ctx.Err() != nil:
		return Route{}, ctx.Err()
	case errors.Is(err, backend.ErrRoleNotFound):
		c.Heading(MsgNoRole)
	default:
		slog.Warn("failed to load role", "title", r.Role, "err", err)
		c.Heading(MsgRoleLoadFailed)
	}

	if _, err := c.Prompt(ctx, "\nPress Enter to go back to the dashboard."); err != nil {
		return Route{}, err
	}
	return Route{Kind: KindDashboard}, nil
}

func renderRole(c *Console, role *backend.Role) {
	d := role.Details
	c.Heading(PrettifyTitle(role.Title))
	if d.InterviewType != "" {
		c.Printf("Interview type: %s\n", d.InterviewType)
	}
	if len(d.TechStack) > 0 {
		c.Printf("\nTech Stack\n  %s\n", strings.Join(d.TechStack, ", "))
	}
	numbered(c, "Expected Questions", d.ExpectedQuestions)
	list(c, "Requirements", d.Requirements)
	numbered(c, "Preparation Tips", d.PreparationTips)
	list(c, "Common Mistakes to Avoid", d.CommonMistakes)
	if len(d.Resources) > 0 {
		c.Println("\nResources")
		for _, res := range d.Resources {
			c.Printf("  - %s", res.Name)
			if res.Description != "" {
				c.Printf(": %s", res.Description)
			}
			if res.URL != "" {
				c.Printf(" <%s>", res.URL)
			}
			c.Println()
		}
	}
}

func numbered(c *Console, title string, items []string) {
	c.Printf("\n%s\n", title)
	for i, it := range items {
		c.Printf("  %d. %s\n", i+1, it)
	}
}

// PrettifyTitle turns a snake_case role title into Title Case.
func PrettifyTitle(raw string) string {
	words := strings.Split(raw, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

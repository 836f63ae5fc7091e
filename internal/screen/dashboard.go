package screen

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/mockhire/mockhire/internal/backend"
	"github.com/mockhire/mockhire/internal/identity"
	"github.com/mockhire/mockhire/internal/session"
)

// MsgNoInterviews is shown when the backend lists no interviews.
const MsgNoInterviews = "No Interview Found. Refresh Database."

// InterviewLister lists the available interview templates. *backend.Client
// implements it.
type InterviewLister interface {
	ListInterviews(ctx context.Context) ([]backend.Interview, error)
}

// Dashboard lists interviews and opens the interview form.
type Dashboard struct {
	Console *Console
	Backend InterviewLister
	User    identity.User

	// ReadResume defaults to the package-level ReadResume.
	ReadResume func(path string) (string, error)
}

// Show implements Screen.
func (d *Dashboard) Show(ctx context.Context, _ Route) (Route, error) {
	c := d.Console
	interviews, err := d.Backend.ListInterviews(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return Route{}, ctx.Err()
		}
		slog.Warn("failed to list interviews", "err", err)
		interviews = nil
	}

	c.Heading("Dashboard")
	if name := d.User.DisplayName(); name != "" {
		c.Printf("Welcome, %s.\n", name)
	}
	c.Println("Get Interview-Ready with AI-Powered Practice & Feedback")
	c.Println()
	c.Println("Pick Your Interview")
	if len(interviews) == 0 {
		c.Println("  " + MsgNoInterviews)
	}
	for i, iv := range interviews {
		c.Printf("  %d. %s", i+1, iv.Title)
		if iv.InterviewType != "" {
			c.Printf(" (%s)", iv.InterviewType)
		}
		if len(iv.TechStack) > 0 {
			c.Printf(" [%s]", strings.Join(iv.TechStack, ", "))
		}
		c.Println()
		if iv.Description != "" {
			c.Printf("     %s\n", iv.Description)
		}
	}
	c.Println("Commands: start, role <number|title>, refresh, contact, feedback, quit")

	for {
		line, err := c.Prompt(ctx, ">")
		if err != nil {
			return Route{}, err
		}
		name, arg := command(line)
		switch name {
		case "":
		case "start":
			r, ok, err := d.schedule(ctx, interviews)
			if err != nil {
				return Route{}, err
			}
			if ok {
				return Route{Kind: KindInterview, Interview: r}, nil
			}
		case "role":
			title, ok := pick(arg, interviewTitles(interviews))
			if !ok {
				title = arg
			}
			if title == "" {
				c.Println("Usage: role <number|title>")
				continue
			}
			return Route{Kind: KindRole, Role: title}, nil
		case "refresh":
			return Route{Kind: KindDashboard}, nil
		case "contact":
			return Route{Kind: KindContact}, nil
		case "feedback":
			return Route{Kind: KindFeedback}, nil
		case "quit", "exit":
			return Route{Kind: KindExit}, nil
		default:
			c.Printf("Unknown command %q.\n", name)
		}
	}
}

// schedule runs the interview form. ok is false when the form was cancelled
// or left incomplete.
func (d *Dashboard) schedule(ctx context.Context, interviews []backend.Interview) (r session.InterviewRoute, ok bool, err error) {
	defer func() {
		if errors.Is(err, errCancelled) {
			err = nil
		}
	}()
	c := d.Console
	c.Heading("Schedule Interview")
	c.Println("Please fill in the details below. Type 'cancel' to go back.")

	roles := uniqueTitles(interviews)
	difficulties := make([]string, len(session.Difficulties))
	for i, v := range session.Difficulties {
		difficulties[i] = string(v)
	}

	role, err := d.choose(ctx, "Role", roles)
	if err != nil {
		return r, false, err
	}
	difficulty, err := d.choose(ctx, "Difficulty Level", difficulties)
	if err != nil {
		return r, false, err
	}
	duration, err := d.choose(ctx, "Interview Duration", session.Durations)
	if err != nil {
		return r, false, err
	}
	path, err := c.Prompt(ctx, "Upload Resume (.pdf) path:")
	if err != nil {
		return r, false, err
	}
	if isCancel(path) {
		return r, false, errCancelled
	}

	var resume string
	if path != "" {
		read := d.ReadResume
		if read == nil {
			read = ReadResume
		}
		resume, err = read(path)
		if err != nil {
			slog.Error("failed to extract text from resume", "path", path, "err", err)
			resume = ""
		}
	}

	if role == "" || difficulty == "" || duration == "" || resume == "" {
		c.Println(backend.ErrIncompleteForm.Error())
		return r, false, nil
	}
	return session.InterviewRoute{
		Role:       role,
		Difficulty: session.Difficulty(difficulty),
		Duration:   duration,
		ResumeText: resume,
	}, true, nil
}

// errCancelled ends the form early; schedule swallows it.
var errCancelled = errors.New("cancelled")

// choose lists options and reads a choice by number or by name. An unknown
// or empty answer yields "".
func (d *Dashboard) choose(ctx context.Context, label string, options []string) (string, error) {
	c := d.Console
	c.Println(label + ":")
	for i, o := range options {
		c.Printf("  %d. %s\n", i+1, o)
	}
	answer, err := c.Prompt(ctx, ">")
	if err != nil {
		return "", err
	}
	if isCancel(answer) {
		return "", errCancelled
	}
	v, _ := pick(answer, options)
	return v, nil
}

// pick resolves a 1-based index or a case-insensitive name against options.
func pick(answer string, options []string) (string, bool) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", false
	}
	if n, err := strconv.Atoi(answer); err == nil {
		if n >= 1 && n <= len(options) {
			return options[n-1], true
		}
		return "", false
	}
	for _, o := range options {
		if strings.EqualFold(o, answer) {
			return o, true
		}
	}
	return "", false
}

func isCancel(s string) bool { return strings.EqualFold(strings.TrimSpace(s), "cancel") }

func interviewTitles(interviews []backend.Interview) []string {
	out := make([]string, len(interviews))
	for i, iv := range interviews {
		out[i] = iv.Title
	}
	return out
}

// uniqueTitles returns the interview titles in listing order without
// duplicates.
func uniqueTitles(interviews []backend.Interview) []string {
	var out []string
	for _, iv := range interviews {
		if iv.Title != "" && !slices.Contains(out, iv.Title) {
			out = append(out, iv.Title)
		}
	}
	return out
}

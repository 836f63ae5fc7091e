package screen

import (
	"context"
)

// Home is the public landing page.
type Home struct {
	Console  *Console
	SignedIn bool
}

// Show implements Screen.
func (h *Home) Show(ctx context.Context, _ Route) (Route, error) {
	h.Console.Heading("MockHire")
	h.Console.Println("Get Interview-Ready with AI-Powered Practice & Feedback")
	h.Console.Println("Practice real interview questions & get instant feedback.")
	if !h.SignedIn {
		h.Console.Println("Set MOCKHIRE_SESSION_TOKEN to sign in.")
	}
	h.Console.Println("Commands: dashboard, about, faq, contact, feedback, quit")

	for {
		line, err := h.Console.Prompt(ctx, ">")
		if err != nil {
			return Route{}, err
		}
		switch name, _ := command(line); name {
		case "":
		case "dashboard", "login":
			return Route{Kind: KindDashboard}, nil
		case "about":
			return Route{Kind: KindAbout}, nil
		case "faq":
			return Route{Kind: KindFAQ}, nil
		case "contact":
			return Route{Kind: KindContact}, nil
		case "feedback":
			return Route{Kind: KindFeedback}, nil
		case "quit", "exit":
			return Route{Kind: KindExit}, nil
		default:
			h.Console.Printf("Unknown command %q.\n", name)
		}
	}
}

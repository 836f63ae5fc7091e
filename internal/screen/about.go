package screen

import "context"

var benefits = []string{
	"AI-powered interview simulations tailored to your industry",
	"Real-time feedback to improve your performance instantly",
	"Practice with realistic scenarios from top companies",
	"Track your progress with detailed analytics",
}

// FAQEntry is one question of the FAQ page.
type FAQEntry struct {
	Question string
	Answer   string
}

// FAQEntries are the questions shown on the FAQ page, in order.
var FAQEntries = []FAQEntry{
	{
		"What is MockHire and how does it help job seekers?",
		"MockHire is an AI-powered interview preparation platform that helps job seekers build confidence and land their dream jobs. It offers personalized, data-driven feedback and realistic interview practice sessions tailored to different industries and roles.",
	},
	{
		"Is MockHire accessible?",
		"Yes. MockHire is designed with accessibility in mind so that every user gets an inclusive experience.",
	},
	{
		"Do I need to create an account to use MockHire?",
		"Yes, creating an account allows MockHire to personalize your experience, track your progress, and provide tailored feedback based on your interview sessions.",
	},
	{
		"What industries or job roles does MockHire support?",
		"MockHire supports a wide range of industries including tech, finance, healthcare, marketing, and more. You can select your desired role or industry to receive tailored practice interviews.",
	},
	{
		"Is there a free version of MockHire?",
		"Yes, MockHire offers a free version with limited features. For access to advanced simulations, analytics, and personalized coaching, you can upgrade to one of our premium plans.",
	},
}

// About is the public about page.
type About struct {
	Console *Console
}

// Show implements Screen.
func (s *About) Show(ctx context.Context, _ Route) (Route, error) {
	c := s.Console
	c.Heading("About MockHire")
	c.Println("MockHire democratizes interview preparation with cutting-edge AI technology.")
	c.Println("We help job seekers build confidence and land their dream jobs through")
	c.Println("personalized, data-driven feedback and comprehensive practice sessions.")
	c.Println("")
	c.Println("Why MockHire?")
	for _, b := range benefits {
		c.Printf("  * %s\n", b)
	}
	return goBackOnEnter(ctx, c)
}

// FAQ is the public questions page.
type FAQ struct {
	Console *Console
}

// Show implements Screen.
func (s *FAQ) Show(ctx context.Context, _ Route) (Route, error) {
	c := s.Console
	c.Heading("FAQ - MockHire")
	for i, e := range FAQEntries {
		c.Printf("%d. %s\n   %s\n", i+1, e.Question, e.Answer)
	}
	return goBackOnEnter(ctx, c)
}

// goBackOnEnter waits for Enter and leaves the page.
func goBackOnEnter(ctx context.Context, c *Console) (Route, error) {
	if _, err := c.Prompt(ctx, "\nPress Enter to go back."); err != nil {
		return Route{}, err
	}
	return Route{Kind: KindBack}, nil
}

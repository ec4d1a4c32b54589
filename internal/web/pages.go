package web

import (
	"strconv"
	"strings"

	"github.com/ashureev/cosmic-frontier/internal/domain"
	"github.com/ashureev/cosmic-frontier/internal/richtext"
	"github.com/ashureev/cosmic-frontier/internal/wizard"
	g "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"
)

// HomePage is the landing page.
func HomePage(authenticated bool) g.Node {
	return g.Group([]g.Node{
		Section(
			Class("hero"),
			H1(g.Text("GALACTIC INNOVATIONS")),
			P(g.Text("In the vast expanse of the cosmos, our mission is to connect humanity with the stars.")),
			A(Href("/get-started"), Class("glow-button"), g.Text("JOIN THE FRONTIER")),
		),
		Section(
			Class("space-card"),
			H2(g.Text("ABOUT THE MISSION")),
			P(g.Text("Through advanced technology and pioneering research, we bridge the gap between Earth and the unknown.")),
			P(g.Text("Our team of brilliant scientists, engineers, and visionaries work tirelessly to develop tools that will propel human consciousness beyond our solar system and into the galactic community.")),
		),
		Section(
			Class("space-card"),
			H2(g.Text("SONAR")),
			P(Class("subtitle"), g.Text("Stellar Operational Navigation and Research")),
			P(g.Text("Our advanced AI assistant, designed to navigate the complexities of space exploration with you.")),
			g.If(authenticated, A(Href("/chat"), Class("glow-button"), g.Text("Chat with SONAR"))),
			g.If(!authenticated, A(Href("/login"), Class("glow-button"), g.Text("Log in to chat with SONAR"))),
		),
		Section(
			Class("cta"),
			H2(g.Text("BEGIN YOUR JOURNEY")),
			P(g.Text("Ready to embark on your cosmic journey? Join us today and be part of humanity's greatest adventure.")),
			A(Href("/get-started"), Class("glow-button"), g.Text("Get Started")),
		),
	})
}

// AboutPage describes the initiative and SONAR.
func AboutPage() g.Node {
	return g.Group([]g.Node{
		H1(g.Text("About Us")),
		Section(
			Class("space-card"),
			H2(g.Text("Cosmic Frontier")),
			P(g.Text("Exploring the boundaries of space technology and intergalactic communication.")),
		),
		Section(
			Class("space-card"),
			H2(g.Text("Meet SONAR")),
			P(g.Text("SONAR is our proprietary AI designed specifically for space communications and research. With advanced quantum processing capabilities, SONAR can analyze astronomical data, translate alien signals, and provide mission-critical information in real-time.")),
			P(g.Text("Using SONAR's interface, you can access a wealth of cosmic knowledge and receive guidance for your interstellar journey. Whether you're planning an expedition or researching distant galaxies, SONAR is your ultimate companion in space exploration.")),
		),
	})
}

// LoginView is the state of the login form.
type LoginView struct {
	Email string
	Error string
}

// LoginPage renders the login form.
func LoginPage(v LoginView) g.Node {
	return Div(
		Class("narrow"),
		H1(Class("page-title"), g.Text("Welcome Back")),
		Form(
			Method("post"), Action("/login"), Class("space-card"),
			g.If(v.Error != "", Div(Class("alert"), g.Attr("role", "alert"), g.Text(v.Error))),
			Div(
				Class("field"),
				Label(g.Attr("for", "email"), g.Text("Email")),
				Input(Type("email"), ID("email"), Name("email"), Value(v.Email), Placeholder("Enter your email"), Required()),
			),
			Div(
				Class("field"),
				Label(g.Attr("for", "password"), g.Text("Password")),
				Input(Type("password"), ID("password"), Name("password"), Placeholder("Enter your password"), Required()),
			),
			Button(Type("submit"), Class("glow-button"), g.Text("Login")),
		),
	)
}

// ChatPage renders the transcript and the prompt form. The live channel
// script upgrades the form when WebSockets are available.
func ChatPage(messages []domain.Message) g.Node {
	return Div(
		Class("chat"),
		H1(Class("page-title"), g.Text("Chat with SONAR")),
		Div(
			ID("transcript"), Class("transcript"), g.Attr("aria-live", "polite"),
			g.Group(g.Map(messages, messageNode)),
		),
		Div(ID("chat-loading"), Class("loading"), g.Attr("hidden", ""), g.Text("Generating response...")),
		Form(
			ID("chat-form"), Method("post"), Action("/chat"), Class("chat-form"),
			Input(Type("text"), Name("message"), Placeholder("Ask SONAR anything..."), g.Attr("autocomplete", "off"), Required()),
			Button(Type("submit"), Class("glow-button"), g.Text("Send")),
		),
	)
}

// messageNode renders one transcript entry. Visitor text is always escaped;
// assistant text goes through the rich text allow-list.
func messageNode(m domain.Message) g.Node {
	body := g.Text(m.Text)
	class := "message user"
	if !m.IsUser() {
		body = g.Raw(richtext.Render(m.Text))
		class = "message assistant"
	}
	return Div(
		Class(class),
		g.Attr("data-id", strconv.Itoa(m.ID)),
		Div(Class("bubble"), body),
		Span(Class("timestamp"), g.Text(m.Timestamp.Format("15:04"))),
	)
}

// WizardView is a snapshot of a wizard taken under the visit lock.
type WizardView struct {
	Current   int
	Steps     []wizard.Step
	Fields    map[string]string
	Valid     bool
	CanSubmit bool
	Terminal  bool
}

// NewWizardView snapshots w.
func NewWizardView(w *wizard.Wizard) WizardView {
	return WizardView{
		Current:   w.Current(),
		Steps:     w.Steps(),
		Fields:    w.Fields(),
		Valid:     w.IsStepValid(w.Current()),
		CanSubmit: w.CanSubmit(),
		Terminal:  w.IsTerminal(),
	}
}

// GetStartedPage renders the current wizard step.
func GetStartedPage(v WizardView) g.Node {
	return Div(
		Class("narrow"),
		H1(Class("page-title"), g.Text("Get Started")),
		stepIndicator(v),
		Form(
			ID("wizard"), Method("post"), Action("/get-started"), Class("space-card"),
			g.Attr("novalidate", ""),
			g.Attr("data-required", strings.Join(v.Steps[v.Current].Fields, " ")),
			stepBody(v),
			g.If(!v.Terminal, wizardButtons(v)),
		),
	)
}

func stepIndicator(v WizardView) g.Node {
	items := make([]g.Node, 0, len(v.Steps))
	for i, s := range v.Steps {
		class := "step"
		switch {
		case i == v.Current:
			class += " current"
		case i < v.Current:
			class += " done"
		}
		items = append(items, Li(Class(class), Span(Class("step-number"), g.Text(strconv.Itoa(i+1))), g.Text(s.Title)))
	}
	return Ol(Class("steps"), g.Group(items))
}

func stepBody(v WizardView) g.Node {
	f := v.Fields
	switch v.Current {
	case 0:
		return g.Group([]g.Node{
			H2(g.Text("Personal Information")),
			Div(
				Class("field"),
				Label(g.Attr("for", wizard.FieldName), g.Text("Full Name")),
				Input(Type("text"), ID(wizard.FieldName), Name(wizard.FieldName), Value(f[wizard.FieldName]), Placeholder("Enter your full name")),
			),
			Div(
				Class("field"),
				Label(g.Attr("for", wizard.FieldEmail), g.Text("Email Address")),
				Input(Type("email"), ID(wizard.FieldEmail), Name(wizard.FieldEmail), Value(f[wizard.FieldEmail]), Placeholder("Enter your email address")),
			),
		})
	case 1:
		selected := f[wizard.FieldInterest]
		return g.Group([]g.Node{
			H2(g.Text("Space Interests")),
			Div(
				Class("field"),
				Label(g.Attr("for", wizard.FieldInterest), g.Text("Primary Interest")),
				Select(
					ID(wizard.FieldInterest), Name(wizard.FieldInterest),
					Option(Value(""), g.Text("Select your primary interest")),
					g.Group(g.Map(wizard.Interests, func(in wizard.Interest) g.Node {
						return Option(Value(in.Value), g.If(in.Value == selected, Selected()), g.Text(in.Label))
					})),
				),
			),
		})
	case 2:
		return g.Group([]g.Node{
			H2(g.Text("Additional Details")),
			Div(
				Class("field"),
				Label(g.Attr("for", wizard.FieldMessage), g.Text("Your Message")),
				Textarea(ID(wizard.FieldMessage), Name(wizard.FieldMessage), g.Attr("rows", "4"),
					Placeholder("Tell us more about your interest in space exploration"),
					g.Text(f[wizard.FieldMessage]),
				),
			),
		})
	default:
		return confirmation(f)
	}
}

func confirmation(f map[string]string) g.Node {
	row := func(label, value string) g.Node {
		return Div(Class("summary-row"), Span(Class("summary-label"), g.Text(label)), Span(g.Text(value)))
	}
	return Div(
		Class("confirmation"),
		H2(g.Text("Application Submitted")),
		P(g.Text("Thank you for your interest in joining the Cosmic Frontier initiative. We'll review your application and contact you shortly.")),
		Div(
			Class("space-card summary"),
			H3(g.Text("Application Summary")),
			row("Name:", f[wizard.FieldName]),
			row("Email:", f[wizard.FieldEmail]),
			row("Interest:", f[wizard.FieldInterest]),
		),
		A(Href("/"), Class("glow-button"), g.Text("Return Home")),
	)
}

// wizardButtons puts the forward button first so that pressing Enter in a
// field triggers it; CSS restores the visual order.
func wizardButtons(v WizardView) g.Node {
	forward := ActionNext
	label := "Next"
	if v.CanSubmit {
		forward = ActionSubmit
		label = "Submit"
	}
	return Div(
		Class("wizard-buttons"),
		Button(Type("submit"), Name("action"), Value(forward), Class("glow-button"),
			g.If(!v.Valid, Disabled()), g.Text(label)),
		Button(Type("submit"), Name("action"), Value(ActionPrevious), g.Attr("formnovalidate", ""),
			g.If(v.Current == 0, Disabled()), g.Text("Previous")),
		g.If(v.Current > 0, Button(Type("submit"), Name("action"), Value(ActionRestart), Class("link-button"),
			g.Attr("formnovalidate", ""), g.Text("Start over"))),
	)
}

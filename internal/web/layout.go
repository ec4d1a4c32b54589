package web

import (
	"strconv"
	"time"

	"github.com/ashureev/cosmic-frontier/internal/session"
	g "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"
)

const siteName = "Cosmic Frontier"

// PageConfig describes one rendered page.
type PageConfig struct {
	Title       string
	Description string
	// Path marks the active navbar link.
	Path string
	Auth session.Auth
	// Scripts are extra script URLs loaded at the end of the body.
	Scripts []string
}

// Layout wraps content in the document shell with navbar and footer.
func Layout(config PageConfig, content ...g.Node) g.Node {
	title := siteName
	if config.Title != "" {
		title = config.Title + " | " + siteName
	}
	if config.Description == "" {
		config.Description = "Exploring the boundaries of space technology and intergalactic communication."
	}

	return g.Group([]g.Node{
		g.Raw("<!DOCTYPE html>"),
		HTML(
			Lang("en"),
			Head(
				Meta(Charset("utf-8")),
				Meta(Name("viewport"), Content("width=device-width, initial-scale=1.0")),
				TitleEl(g.Text(title)),
				Meta(Name("description"), Content(config.Description)),
				Link(Rel("stylesheet"), Href("/static/styles.css")),
			),
			Body(
				Class("bg-space-dark"),
				Navbar(config.Path, config.Auth),
				Main(Class("page"), g.Group(content)),
				PageFooter(),
				g.Group(g.Map(config.Scripts, func(src string) g.Node {
					return Script(Src(src))
				})),
			),
		),
	})
}

type navLink struct {
	Name string
	Path string
}

// navLinks returns the navbar entries for auth. Logout is rendered
// separately because it is a form post.
func navLinks(auth session.Auth) []navLink {
	links := []navLink{{Name: "Home", Path: "/"}}
	if auth.Authenticated {
		links = append(links, navLink{Name: "Chat with SONAR", Path: "/chat"})
	}
	links = append(links,
		navLink{Name: "About Us", Path: "/about"},
		navLink{Name: "Get Started", Path: "/get-started"},
	)
	if !auth.Authenticated {
		links = append(links, navLink{Name: "Login", Path: "/login"})
	}
	return links
}

// Navbar renders the top navigation for the current auth state.
func Navbar(current string, auth session.Auth) g.Node {
	return Nav(
		Class("navbar"),
		A(Href("/"), Class("brand"), g.Text(siteName)),
		Ul(
			Class("nav-links"),
			g.Group(g.Map(navLinks(auth), func(l navLink) g.Node {
				return Li(A(
					Href(l.Path),
					g.If(l.Path == current, Class("active")),
					g.Text(l.Name),
				))
			})),
			g.If(auth.Authenticated, Li(
				Form(
					Method("post"), Action("/logout"), Class("inline"),
					Button(Type("submit"), Class("link-button"), g.Text("Logout")),
				),
			)),
		),
	)
}

// PageFooter renders the site footer.
func PageFooter() g.Node {
	return Footer(
		Class("footer"),
		Div(
			Class("footer-grid"),
			Div(
				H3(g.Text(siteName)),
				P(g.Text("Exploring the boundaries of space technology and intergalactic communication.")),
			),
			Div(
				H3(g.Text("Quick Links")),
				Ul(
					Li(A(Href("/"), g.Text("Home"))),
					Li(A(Href("/chat"), g.Text("Chat with SONAR"))),
					Li(A(Href("/about"), g.Text("About Us"))),
					Li(A(Href("/get-started"), g.Text("Get Started"))),
				),
			),
			Div(
				H3(g.Text("Connect")),
				Div(
					Class("social"),
					g.Group(g.Map([]string{"Twitter", "GitHub", "LinkedIn"}, func(platform string) g.Node {
						return A(Href("#"), g.Text(platform))
					})),
				),
			),
		),
		P(Class("copyright"), g.Raw("&copy; "), g.Text(strconv.Itoa(time.Now().Year())+" "+siteName+". All rights reserved.")),
	)
}

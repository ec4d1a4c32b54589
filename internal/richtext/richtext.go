// Package richtext renders untrusted assistant replies as a small allow-listed
// subset of HTML.
package richtext

import (
	"log/slog"
	"strings"

	"github.com/kennygrant/sanitize"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// AllowedTags are the only elements kept in rendered replies.
var AllowedTags = []string{"b", "strong", "i", "em", "p", "br", "ul", "ol", "li", "code", "pre"}

// noAttributes drops every attribute, including href and style.
var noAttributes = []string{}

// Replies render inside a message bubble.
var fragmentContext = &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}

// Render returns text as HTML safe to embed in a page. Tags outside
// AllowedTags are removed, attributes are stripped and text is escaped.
// Unclosed tags are closed so markup never leaks past the reply.
func Render(text string) string {
	out, err := sanitize.HTMLAllowing(text, AllowedTags, noAttributes)
	if err != nil {
		slog.Debug("Rich text sanitize failed, escaping", "error", err)
		return html.EscapeString(text)
	}
	balanced, err := balance(out)
	if err != nil {
		slog.Debug("Rich text balance failed, escaping", "error", err)
		return html.EscapeString(text)
	}
	return balanced
}

// balance re-parses a sanitized fragment and renders it back, which closes
// open elements and drops stray end tags.
func balance(fragment string) (string, error) {
	nodes, err := html.ParseFragment(strings.NewReader(fragment), fragmentContext)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, n := range nodes {
		if err := html.Render(&b, n); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}

// Plain escapes text for embedding as-is.
func Plain(text string) string {
	return html.EscapeString(text)
}

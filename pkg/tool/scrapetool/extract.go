// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package scrapetool

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// skipped subtrees never contribute text.
var skipped = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Svg:      true,
	atom.Iframe:   true,
	atom.Form:     true,
	atom.Button:   true,
	atom.Nav:      true,
	atom.Footer:   true,
	atom.Aside:    true,
	atom.Template: true,
	atom.Head:     true,
}

var blankLines = regexp.MustCompile(`\n{3,}`)

// HTMLToMarkdown renders the readable part of an HTML document as
// lightweight markdown. When the page has an <article> or <main> element
// only that subtree is rendered.
func HTMLToMarkdown(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	root := findFirst(doc, atom.Article)
	if root == nil {
		root = findFirst(doc, atom.Main)
	}
	if root == nil {
		root = doc
	}

	w := &markdownWriter{}
	w.node(root)

	out := blankLines.ReplaceAllString(w.b.String(), "\n\n")
	return strings.TrimSpace(out), nil
}

func findFirst(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, a); found != nil {
			return found
		}
	}
	return nil
}

type markdownWriter struct {
	b         strings.Builder
	listDepth int
	pre       bool
}

func (w *markdownWriter) block() {
	s := w.b.String()
	if s == "" || strings.HasSuffix(s, "\n\n") {
		return
	}
	if strings.HasSuffix(s, "\n") {
		w.b.WriteString("\n")
		return
	}
	w.b.WriteString("\n\n")
}

func (w *markdownWriter) text(s string) {
	if w.pre {
		w.b.WriteString(s)
		return
	}
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return
	}
	cur := w.b.String()
	if cur != "" && !strings.HasSuffix(cur, "\n") && !strings.HasSuffix(cur, " ") &&
		!strings.HasSuffix(cur, "[") && !strings.ContainsAny(s[:1], ".,;:!?)") {
		w.b.WriteString(" ")
	}
	w.b.WriteString(s)
}

func (w *markdownWriter) children(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.node(c)
	}
}

func (w *markdownWriter) node(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		w.text(n.Data)
		return
	case html.DocumentNode:
		w.children(n)
		return
	case html.ElementNode:
	default:
		return
	}

	if skipped[n.DataAtom] {
		return
	}

	switch n.DataAtom {
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		w.block()
		level := int(n.Data[1] - '0')
		w.b.WriteString(strings.Repeat("#", level) + " ")
		w.children(n)
		w.block()
	case atom.P, atom.Div, atom.Section, atom.Article, atom.Main, atom.Header, atom.Figure, atom.Table:
		w.block()
		w.children(n)
		w.block()
	case atom.Ul, atom.Ol:
		w.block()
		w.listDepth++
		w.children(n)
		w.listDepth--
		w.block()
	case atom.Li:
		if !strings.HasSuffix(w.b.String(), "\n") && w.b.Len() > 0 {
			w.b.WriteString("\n")
		}
		w.b.WriteString(strings.Repeat("  ", max(w.listDepth-1, 0)) + "- ")
		w.children(n)
		w.b.WriteString("\n")
	case atom.Blockquote:
		w.block()
		w.b.WriteString("> ")
		w.children(n)
		w.block()
	case atom.Pre:
		w.block()
		w.b.WriteString("```\n")
		w.pre = true
		w.children(n)
		w.pre = false
		w.b.WriteString("\n```")
		w.block()
	case atom.Br:
		w.b.WriteString("\n")
	case atom.Tr:
		w.children(n)
		w.b.WriteString("\n")
	case atom.A:
		href := attr(n, "href")
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
			w.children(n)
			return
		}
		w.text("[")
		w.children(n)
		w.b.WriteString("](" + href + ")")
	default:
		w.children(n)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

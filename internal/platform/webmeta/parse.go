package webmeta

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Page is the metadata pulled out of one HTML document.
type Page struct {
	Title     string
	Canonical string
	// Meta maps meta name/property/itemprop to content; first occurrence wins.
	Meta map[string]string
}

// ParseHTML walks the document once collecting <title>, <meta> and the
// canonical <link>. Title falls back to og:title then twitter:title.
func ParseHTML(r io.Reader) (*Page, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	p := &Page{Meta: map[string]string{}}
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if p.Title == "" {
					p.Title = collapse(textOf(n))
				}
			case "meta":
				key := strings.ToLower(firstAttr(n, "property", "name", "itemprop"))
				content := collapse(attr(n, "content"))
				if key != "" && content != "" {
					if _, seen := p.Meta[key]; !seen {
						p.Meta[key] = content
					}
				}
			case "link":
				if p.Canonical == "" && hasToken(attr(n, "rel"), "canonical") {
					p.Canonical = strings.TrimSpace(attr(n, "href"))
				}
			case "svg", "script", "style":
				// <title> inside inline svg is not the page title.
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if p.Title == "" {
		p.Title = p.Meta["og:title"]
	}
	if p.Title == "" {
		p.Title = p.Meta["twitter:title"]
	}
	return p, nil
}

// Metadata flattens the page into the JSON blob stored on the resource.
func (p *Page) Metadata() map[string]any {
	out := make(map[string]any, len(p.Meta)+2)
	for k, v := range p.Meta {
		out[k] = v
	}
	if p.Title != "" {
		out["title"] = p.Title
	}
	if p.Canonical != "" {
		out["canonical"] = p.Canonical
	}
	return out
}

func textOf(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func firstAttr(n *html.Node, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(attr(n, k)); v != "" {
			return v
		}
	}
	return ""
}

func hasToken(list, token string) bool {
	for _, f := range strings.Fields(list) {
		if strings.EqualFold(f, token) {
			return true
		}
	}
	return false
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

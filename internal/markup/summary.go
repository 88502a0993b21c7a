package markup

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// firstParagraph returns the whitespace-collapsed text of the first <p>
// element in fragment, or "".
func firstParagraph(fragment string) string {
	nodes, err := html.ParseFragment(strings.NewReader(fragment), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil {
		return ""
	}
	for _, n := range nodes {
		if p := findParagraph(n); p != nil {
			return strings.Join(strings.Fields(extractText(p)), " ")
		}
	}
	return ""
}

func findParagraph(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.P {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if p := findParagraph(c); p != nil {
			return p
		}
	}
	return nil
}

func extractText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(extractText(c))
	}
	return b.String()
}

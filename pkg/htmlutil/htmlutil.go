package htmlutil

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// GetText concatenates every text node under node, like lxml's text_content().
func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

// OwnText returns the text that appears before the first child element of the
// first node in sel.
func OwnText(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	var buffer bytes.Buffer
	for child := sel.Nodes[0].FirstChild; child != nil; child = child.NextSibling {
		if child.Type != html.TextNode {
			break
		}
		buffer.WriteString(child.Data)
	}
	return buffer.String()
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// CleanText trims text and collapses inner whitespace runs.
func CleanText(s string) string {
	s = removeNonPrintable(s)
	s = strings.TrimSpace(s)
	return innerWhitespace.ReplaceAllString(s, " ")
}

// ResolveAttr resolves the attribute `attr` of the first node in sel against base.
// ok is false when the attribute is missing or not a valid url reference.
func ResolveAttr(base *url.URL, sel *goquery.Selection, attr string) (resolved *url.URL, ok bool) {
	value, exists := sel.Attr(attr)
	if !exists {
		return nil, false
	}
	ref, err := url.Parse(strings.TrimSpace(value))
	if err != nil {
		return nil, false
	}
	return base.ResolveReference(ref), true
}

// ResolveAll resolves `attr` of every node in sel against base, skipping nodes
// where it is missing or invalid.
func ResolveAll(base *url.URL, sel *goquery.Selection, attr string) []*url.URL {
	var out []*url.URL
	sel.Each(func(_ int, s *goquery.Selection) {
		resolved, ok := ResolveAttr(base, s, attr)
		if !ok {
			return
		}
		out = append(out, resolved)
	})
	return out
}

// ParseDocument parses an html body, the returned document has its Url set so
// that relative references can be resolved by callers.
func ParseDocument(base *url.URL, body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	doc.Url = base
	return doc, nil
}

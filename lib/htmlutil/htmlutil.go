package htmlutil

import (
	"bytes"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

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

var whitespaceRun = regexp.MustCompile(`\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) || unicode.IsSpace(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// CleanText flattens scraped text into a single trimmed line.
func CleanText(s string) string {
	s = removeNonPrintable(s)
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.Trim(s, " ")
}

// LabeledCellValue finds a table cell whose text is exactly `label` and
// returns the text of the cell next to it. The portal lays out device
// metadata as <td>Label</td><td>Value</td> rows.
func LabeledCellValue(doc *goquery.Document, label string) string {
	value := ""
	doc.Find("td").EachWithBreak(func(_ int, cell *goquery.Selection) bool {
		if len(cell.Nodes) == 0 || CleanText(GetText(cell.Nodes[0])) != label {
			return true
		}
		value = CleanText(cell.Next().Text())
		return false
	})
	return value
}

// IsHTMLDocument reports whether a response body looks like a full HTML
// document rather than the JSON/plain-text payload an AJAX endpoint
// should produce. The portal serves its login page with a 200 status,
// so this is the only way to tell the two apart.
func IsHTMLDocument(body []byte) bool {
	trimmed := bytes.TrimLeftFunc(body, unicode.IsSpace)
	if len(trimmed) == 0 {
		return false
	}
	lower := bytes.ToLower(trimmed)
	return bytes.HasPrefix(lower, []byte("<html")) ||
		bytes.HasPrefix(lower, []byte("<!doctype html"))
}

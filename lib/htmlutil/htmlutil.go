package htmlutil

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/html"
)

var tracer = otel.Tracer("lib/htmlutil")

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
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		getTextRecursive(child, buffer)
	}
}

var innerWhitespace = regexp.MustCompile(`[\s\p{Zs}]+`)

// CleanText drops non-printable characters and collapses runs of
// whitespace, including the full width space, into a single space.
func CleanText(s string) string {
	var out strings.Builder
	for _, c := range s {
		if unicode.IsPrint(c) || unicode.IsSpace(c) {
			out.WriteRune(c)
		}
	}
	return strings.TrimSpace(innerWhitespace.ReplaceAllString(out.String(), " "))
}

// Text returns the cleaned text of the first node in sel, "" when sel is
// empty.
func Text(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	return CleanText(GetText(sel.Nodes[0]))
}

// InputValue returns the value of the first input named name in doc.
func InputValue(doc *goquery.Document, name string) string {
	return doc.Find(fmt.Sprintf(`input[name="%s"]`, name)).First().AttrOr("value", "")
}

// HiddenValues collects the hidden inputs of form, the way a browser would
// submit them.
func HiddenValues(ctx context.Context, form *goquery.Selection) url.Values {
	_, span := tracer.Start(ctx, "HiddenValues")
	defer span.End()

	values := url.Values{}
	form.Find(`input[type="hidden"]`).Each(func(_ int, input *goquery.Selection) {
		name, ok := input.Attr("name")
		if !ok || name == "" {
			return
		}
		values.Set(name, input.AttrOr("value", ""))
		span.AddEvent("field", trace.WithAttributes(attribute.String("name", name)))
	})
	return values
}

// Package viewstate decodes the nested, escape-delimited page state the
// academic portal embeds in its score pages.
//
// The text format is a flat stream of scalars separated by ';'. A scalar
// directly followed by '<' becomes the tag of a list that ends at the
// matching '>'. The source emits a redundant ';' after every '>', which is
// absorbed. '\' escapes the next character.
package viewstate

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// FooterSize is the length of the trailing, non-semantic suffix (a MAC)
// appended to the decoded state bytes.
const FooterSize = 20

var ErrMalformed = errors.New("malformed view state")

type DecodeError struct {
	// byte offset into the decoded text, -1 when not applicable
	Offset int
	Reason string
}

func (e *DecodeError) Error() string {
	if e.Offset < 0 {
		return fmt.Sprintf("%s: %s", ErrMalformed.Error(), e.Reason)
	}
	return fmt.Sprintf("%s: offset %d: %s", ErrMalformed.Error(), e.Offset, e.Reason)
}

func (e *DecodeError) Is(target error) bool {
	return target == ErrMalformed
}

// DecodeBase64 decodes the value of a __VIEWSTATE form field.
func DecodeBase64(state string) (Node, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(state))
	if err != nil {
		return Node{}, &DecodeError{Offset: -1, Reason: fmt.Sprintf("base64: %s", err.Error())}
	}
	return Decode(raw)
}

// Decode strips the footer from raw and parses the remainder as UTF-8 text.
func Decode(raw []byte) (Node, error) {
	if len(raw) < FooterSize {
		return Node{}, &DecodeError{
			Offset: -1,
			Reason: fmt.Sprintf("state is %d bytes, shorter than the %d byte footer", len(raw), FooterSize),
		}
	}
	body := raw[:len(raw)-FooterSize]
	if !utf8.Valid(body) {
		return Node{}, &DecodeError{Offset: -1, Reason: "state is not valid utf-8"}
	}
	return Parse(string(body))
}

type frame struct {
	tag    string
	length int
	offset int
}

// Parse runs the decoder state machine over already decoded text and
// returns the first top-level value.
func Parse(text string) (Node, error) {
	var acc strings.Builder
	var values []Node
	var stack []frame

	escaped := false
	skipSemicolon := false

	for offset, char := range text {
		if skipSemicolon {
			skipSemicolon = false
			if char == ';' {
				continue
			}
		}

		if escaped {
			acc.WriteRune(char)
			escaped = false
			continue
		}

		switch char {
		case '\\':
			escaped = true
		case '<':
			stack = append(stack, frame{tag: acc.String(), length: len(values), offset: offset})
			acc.Reset()
		case '>':
			values = append(values, Scalar(acc.String()))
			acc.Reset()

			if len(stack) == 0 {
				return Node{}, &DecodeError{Offset: offset, Reason: "'>' without a matching '<'"}
			}
			open := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			children := make([]Node, len(values)-open.length)
			copy(children, values[open.length:])
			values = append(values[:open.length], List(open.tag, children...))

			skipSemicolon = true
		case ';':
			values = append(values, Scalar(acc.String()))
			acc.Reset()
		default:
			acc.WriteRune(char)
		}
	}

	if escaped {
		return Node{}, &DecodeError{Offset: len(text), Reason: "dangling escape at end of input"}
	}
	if len(stack) > 0 {
		open := stack[len(stack)-1]
		return Node{}, &DecodeError{
			Offset: open.offset,
			Reason: fmt.Sprintf("'<' of list %q is never closed", open.tag),
		}
	}
	if acc.Len() > 0 {
		values = append(values, Scalar(acc.String()))
	}
	if len(values) == 0 {
		return Node{}, &DecodeError{Offset: -1, Reason: "state is empty"}
	}

	return values[0], nil
}

func escape(s string) string {
	var out strings.Builder
	for _, c := range s {
		switch c {
		case '\\', '<', '>', ';':
			out.WriteRune('\\')
		}
		out.WriteRune(c)
	}
	return out.String()
}

// Encode is the inverse of Parse for trees whose lists are non-empty and
// end in a scalar, since the format cannot express the other shapes.
func Encode(n Node) string {
	var out strings.Builder
	encode(&out, n)
	return out.String()
}

func encode(out *strings.Builder, n Node) {
	if !n.IsList() {
		out.WriteString(escape(n.Text))
		return
	}
	out.WriteString(escape(n.Tag))
	out.WriteRune('<')
	for i, c := range n.Children {
		if i > 0 {
			out.WriteRune(';')
		}
		encode(out, c)
	}
	out.WriteRune('>')
}

// EncodeBase64 appends an empty footer to the encoded tree and returns it
// in the form the portal embeds in its pages.
func EncodeBase64(n Node) string {
	raw := append([]byte(Encode(n)), make([]byte, FooterSize)...)
	return base64.StdEncoding.EncodeToString(raw)
}

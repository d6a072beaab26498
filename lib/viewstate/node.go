package viewstate

import (
	"fmt"
	"strings"
)

type Kind int

const (
	KindScalar Kind = iota
	KindList
)

// Node is one value of a decoded view-state tree, either a scalar string
// or a tagged, ordered list of child nodes.
type Node struct {
	Kind     Kind
	Text     string
	Tag      string
	Children []Node
}

func Scalar(text string) Node {
	return Node{Kind: KindScalar, Text: text}
}

func List(tag string, children ...Node) Node {
	if children == nil {
		children = []Node{}
	}
	return Node{Kind: KindList, Tag: tag, Children: children}
}

func (n Node) IsList() bool {
	return n.Kind == KindList
}

// Step is a single structural coordinate, the node at the current
// position must be a list tagged with Tag and the walk continues at
// its child Index.
type Step struct {
	Tag   string
	Index int
}

func (s Step) String() string {
	return fmt.Sprintf("%s[%d]", s.Tag, s.Index)
}

func FormatPath(path []Step) string {
	parts := make([]string, len(path))
	for i, s := range path {
		parts[i] = s.String()
	}
	return strings.Join(parts, ".")
}

// PathError reports the first coordinate at which a walk did not match
// the tree.
type PathError struct {
	Path   []Step
	Depth  int
	Reason string
}

func (e *PathError) Error() string {
	at := "root"
	if e.Depth > 0 {
		at = FormatPath(e.Path[:e.Depth])
	}
	return fmt.Sprintf("view state path %s: at %s: %s", FormatPath(e.Path), at, e.Reason)
}

func (n Node) Walk(path []Step) (Node, error) {
	current := n
	for depth, step := range path {
		if !current.IsList() {
			return Node{}, &PathError{Path: path, Depth: depth, Reason: "expected a list, got a scalar"}
		}
		if current.Tag != step.Tag {
			return Node{}, &PathError{
				Path:   path,
				Depth:  depth,
				Reason: fmt.Sprintf("expected tag %q, got %q", step.Tag, current.Tag),
			}
		}
		if step.Index < 0 || step.Index >= len(current.Children) {
			return Node{}, &PathError{
				Path:   path,
				Depth:  depth,
				Reason: fmt.Sprintf("index %d out of range (%d children)", step.Index, len(current.Children)),
			}
		}
		current = current.Children[step.Index]
	}
	return current, nil
}

// ListOf returns the children of n, n must be a list tagged with tag.
func (n Node) ListOf(tag string) ([]Node, error) {
	if !n.IsList() {
		return nil, fmt.Errorf("expected list %q, got a scalar", tag)
	}
	if n.Tag != tag {
		return nil, fmt.Errorf("expected list %q, got %q", tag, n.Tag)
	}
	return n.Children, nil
}

// String renders the tree in an indented form, mostly for debugging
// coordinate changes.
func (n Node) String() string {
	var out strings.Builder
	n.format(&out, 0, -1)
	return out.String()
}

func (n Node) format(out *strings.Builder, depth, index int) {
	out.WriteString(strings.Repeat("  ", depth))
	if index >= 0 {
		fmt.Fprintf(out, "[%d] ", index)
	}
	if !n.IsList() {
		fmt.Fprintf(out, "%q\n", n.Text)
		return
	}
	fmt.Fprintf(out, "%s<%d>\n", n.Tag, len(n.Children))
	for i, c := range n.Children {
		c.format(out, depth+1, i)
	}
}

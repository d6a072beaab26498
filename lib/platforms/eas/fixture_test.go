package eas

import (
	"fmt"
	"scorepusher/lib/viewstate"
)

// nest builds the minimal tree in which leaf sits at path. Every list gets
// a trailing scalar so the tree survives an encode/decode round trip.
func nest(path []viewstate.Step, leaf viewstate.Node) viewstate.Node {
	if len(path) == 0 {
		return leaf
	}
	step := path[0]
	children := make([]viewstate.Node, step.Index+1)
	for i := range children {
		children[i] = viewstate.Scalar("")
	}
	children[step.Index] = nest(path[1:], leaf)
	children = append(children, viewstate.Scalar(""))
	return viewstate.List(step.Tag, children...)
}

func cellNode(text string) viewstate.Node {
	return nest(DefaultLayout.Text, viewstate.Scalar(text))
}

func rowNode(texts []string) viewstate.Node {
	cells := make([]viewstate.Node, 0, len(texts)+1)
	for _, text := range texts {
		cells = append(cells, cellNode(text))
	}
	cells = append(cells, viewstate.Scalar(""))
	return nest(DefaultLayout.Cells.Path, viewstate.List(DefaultLayout.Cells.List, cells...))
}

func pageTree(rows ...[]string) viewstate.Node {
	nodes := make([]viewstate.Node, 0, len(rows)+1)
	for _, row := range rows {
		nodes = append(nodes, rowNode(row))
	}
	// the grid ends in a stray scalar, as the portal emits
	nodes = append(nodes, viewstate.Scalar("footer"))
	return nest(DefaultLayout.Rows.Path, viewstate.List(DefaultLayout.Rows.List, nodes...))
}

// scoreRow returns the 22 cells of a grid row.
func scoreRow(year, term, code, name, credit, gpa, score string) []string {
	row := make([]string, 22)
	for i := range row {
		row[i] = "&nbsp;"
	}
	row[0] = year
	row[1] = term
	row[2] = code
	row[3] = name
	row[4] = "必修"
	row[6] = credit
	row[7] = gpa
	row[13] = score
	row[14] = "0"
	row[18] = "计算机学院"
	row[21] = fmt.Sprintf("%s (en)", name)
	return row
}

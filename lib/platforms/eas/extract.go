package eas

import (
	"errors"
	"fmt"
	"math"
	"scorepusher/lib/scores"
	"scorepusher/lib/viewstate"
	"strconv"
	"strings"
)

var ErrShape = errors.New("unexpected score page shape")

type ShapeError struct {
	Where  string
	Reason string
	Err    error
}

func (e *ShapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %s", ErrShape.Error(), e.Where, e.Reason, e.Err.Error())
	}
	return fmt.Sprintf("%s: %s: %s", ErrShape.Error(), e.Where, e.Reason)
}

func (e *ShapeError) Is(target error) bool {
	return target == ErrShape
}

func (e *ShapeError) Unwrap() error {
	return e.Err
}

// Coordinate locates a list node by position, the source format carries
// no field names.
type Coordinate struct {
	Path []viewstate.Step
	List string
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%s.%s", viewstate.FormatPath(c.Path), c.List)
}

func (c Coordinate) Resolve(n viewstate.Node) ([]viewstate.Node, error) {
	target, err := n.Walk(c.Path)
	if err != nil {
		return nil, err
	}
	return target.ListOf(c.List)
}

// Layout is where the score grid lives inside the decoded page state.
type Layout struct {
	// the data grid rows, relative to the root
	Rows Coordinate
	// the cells of one row, relative to the row
	Cells Coordinate
	// the rendered text of one cell, relative to the cell
	Text []viewstate.Step
}

var DefaultLayout = Layout{
	Rows: Coordinate{
		Path: []viewstate.Step{
			{Tag: "t", Index: 1},
			{Tag: "t", Index: 2},
			{Tag: "l", Index: 0},
			{Tag: "t", Index: 2},
			{Tag: "l", Index: 13},
			{Tag: "t", Index: 2},
			{Tag: "l", Index: 0},
			{Tag: "t", Index: 2},
		},
		List: "l",
	},
	Cells: Coordinate{
		Path: []viewstate.Step{{Tag: "t", Index: 2}},
		List: "l",
	},
	Text: []viewstate.Step{
		{Tag: "t", Index: 0},
		{Tag: "p", Index: 0},
		{Tag: "p", Index: 1},
		{Tag: "l", Index: 0},
	},
}

// Column maps one cell of a row onto a record field.
type Column struct {
	Index int
	Name  string
	Set   func(r *scores.Record, text string) error
}

func textColumn(index int, name string, field func(r *scores.Record) *string) Column {
	return Column{
		Index: index,
		Name:  name,
		Set: func(r *scores.Record, text string) error {
			*field(r) = text
			return nil
		},
	}
}

// empty cells become zero
func decimalColumn(index int, name string, field func(r *scores.Record) *float64) Column {
	return Column{
		Index: index,
		Name:  name,
		Set: func(r *scores.Record, text string) error {
			if text == "" {
				*field(r) = 0
				return nil
			}
			v, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return err
			}
			// NaN breaks record equality and json encoding
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%q is not a finite number", text)
			}
			*field(r) = v
			return nil
		},
	}
}

func flagColumn(index int, name string, field func(r *scores.Record) *bool) Column {
	return Column{
		Index: index,
		Name:  name,
		Set: func(r *scores.Record, text string) error {
			*field(r) = text != "" && text != "0"
			return nil
		},
	}
}

var Columns = []Column{
	textColumn(0, "year", func(r *scores.Record) *string { return &r.Year }),
	textColumn(1, "term", func(r *scores.Record) *string { return &r.Term }),
	textColumn(2, "course_code", func(r *scores.Record) *string { return &r.CourseCode }),
	textColumn(3, "course_name", func(r *scores.Record) *string { return &r.CourseName }),
	textColumn(4, "course_nature", func(r *scores.Record) *string { return &r.CourseNature }),
	textColumn(5, "course_belong", func(r *scores.Record) *string { return &r.CourseBelong }),
	decimalColumn(6, "credit", func(r *scores.Record) *float64 { return &r.Credit }),
	decimalColumn(7, "gpa", func(r *scores.Record) *float64 { return &r.GradePoint }),
	textColumn(13, "score", func(r *scores.Record) *string { return &r.Score }),
	flagColumn(14, "minor_flag", func(r *scores.Record) *bool { return &r.MinorFlag }),
	textColumn(15, "makeup_score", func(r *scores.Record) *string { return &r.MakeupScore }),
	textColumn(16, "retake_score", func(r *scores.Record) *string { return &r.RetakeScore }),
	textColumn(18, "college_name", func(r *scores.Record) *string { return &r.CollegeName }),
	textColumn(19, "comment", func(r *scores.Record) *string { return &r.Comment }),
	flagColumn(20, "retake_flag", func(r *scores.Record) *bool { return &r.RetakeFlag }),
	textColumn(21, "course_english_name", func(r *scores.Record) *string { return &r.CourseEnglishName }),
}

func requiredCells(columns []Column) int {
	n := 0
	for _, c := range columns {
		if c.Index+1 > n {
			n = c.Index + 1
		}
	}
	return n
}

func cleanCell(text string) string {
	return strings.TrimSpace(strings.ReplaceAll(text, "&nbsp;", " "))
}

func Extract(root viewstate.Node) (scores.Snapshot, error) {
	return DefaultLayout.Extract(root, Columns)
}

// Extract reads every grid row into a record. Entries that are not lists
// are skipped at both the row and the cell level. Any other mismatch fails
// the whole extraction.
func (l Layout) Extract(root viewstate.Node, columns []Column) (scores.Snapshot, error) {
	rows, err := l.Rows.Resolve(root)
	if err != nil {
		return nil, &ShapeError{Where: l.Rows.String(), Reason: "locate rows", Err: err}
	}

	minCells := requiredCells(columns)
	result := scores.Snapshot{}

	for rowIdx, row := range rows {
		if !row.IsList() {
			continue
		}
		where := fmt.Sprintf("row %d", rowIdx)

		cells, err := l.Cells.Resolve(row)
		if err != nil {
			return nil, &ShapeError{Where: where, Reason: "locate cells", Err: err}
		}

		var texts []string
		for cellIdx, cell := range cells {
			if !cell.IsList() {
				continue
			}
			leaf, err := cell.Walk(l.Text)
			if err != nil {
				return nil, &ShapeError{
					Where:  fmt.Sprintf("%s cell %d", where, cellIdx),
					Reason: "locate text",
					Err:    err,
				}
			}
			if leaf.IsList() {
				return nil, &ShapeError{
					Where:  fmt.Sprintf("%s cell %d", where, cellIdx),
					Reason: fmt.Sprintf("expected text, got list %q", leaf.Tag),
				}
			}
			texts = append(texts, cleanCell(leaf.Text))
		}

		if len(texts) < minCells {
			return nil, &ShapeError{
				Where:  where,
				Reason: fmt.Sprintf("expected at least %d cells, got %d", minCells, len(texts)),
			}
		}

		var record scores.Record
		for _, col := range columns {
			err := col.Set(&record, texts[col.Index])
			if err != nil {
				return nil, &ShapeError{
					Where:  fmt.Sprintf("%s column %s", where, col.Name),
					Reason: fmt.Sprintf("parse %q", texts[col.Index]),
					Err:    err,
				}
			}
		}
		result = append(result, record)
	}

	return result, nil
}

package cmd

import (
	"io"
	"scorepusher/lib/scores"

	"github.com/jedib0t/go-pretty/v6/table"
)

func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(out)
	return t
}

func renderRecords(out io.Writer, snapshot scores.Snapshot) {
	t := newTable(out)
	t.AppendHeader(table.Row{"Year", "Term", "Code", "Course", "Credit", "GPA", "Score", "Makeup", "Retake"})
	for _, r := range snapshot {
		t.AppendRow(table.Row{
			r.Year,
			r.Term,
			r.CourseCode,
			r.CourseName,
			scores.FormatDecimal(r.Credit),
			scores.FormatDecimal(r.GradePoint),
			r.Score,
			r.MakeupScore,
			r.RetakeScore,
		})
	}
	t.AppendFooter(table.Row{"", "", "", "Total", len(snapshot)})
	t.Render()
}

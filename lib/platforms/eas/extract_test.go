package eas

import (
	"errors"
	"scorepusher/lib/scores"
	"scorepusher/lib/viewstate"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	retake := scoreRow("2022-2023", "2", "B0401011S", "高等数学", "5", "1.5", "65")
	retake[16] = " 88&nbsp;"
	retake[20] = "1"
	retake[14] = ""

	tree := pageTree(
		scoreRow("2023-2024", "1", "B1100011S", "程序设计", "3.0", "", "优秀"),
		retake,
	)

	records, err := Extract(tree)
	require.NoError(t, err)

	expected := scores.Snapshot{
		{
			Year:              "2023-2024",
			Term:              "1",
			CourseCode:        "B1100011S",
			CourseName:        "程序设计",
			CourseNature:      "必修",
			Credit:            3,
			GradePoint:        0,
			Score:             "优秀",
			CollegeName:       "计算机学院",
			CourseEnglishName: "程序设计 (en)",
		},
		{
			Year:              "2022-2023",
			Term:              "2",
			CourseCode:        "B0401011S",
			CourseName:        "高等数学",
			CourseNature:      "必修",
			Credit:            5,
			GradePoint:        1.5,
			Score:             "65",
			RetakeScore:       "88",
			RetakeFlag:        true,
			CollegeName:       "计算机学院",
			CourseEnglishName: "高等数学 (en)",
		},
	}
	if diff := cmp.Diff(expected, records); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractSurvivesEncoding(t *testing.T) {
	tree := pageTree(scoreRow("2023", "1", "CS;101", "a<b>", "2", "3", "90"))
	root, err := viewstate.DecodeBase64(viewstate.EncodeBase64(tree))
	require.NoError(t, err)

	records, err := Extract(root)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "CS;101", records[0].CourseCode)
	require.Equal(t, "a<b>", records[0].CourseName)
}

func TestExtractEmptyGrid(t *testing.T) {
	records, err := Extract(pageTree())
	require.NoError(t, err)
	require.NotNil(t, records)
	require.Len(t, records, 0)
}

func TestExtractShapeErrors(t *testing.T) {
	short := scoreRow("2023", "1", "CS101", "x", "1", "1", "60")[:10]
	badCredit := scoreRow("2023", "1", "CS101", "x", "three", "1", "60")
	nanCredit := scoreRow("2023", "1", "CS101", "x", "NaN", "1", "60")
	infGpa := scoreRow("2023", "1", "CS101", "x", "1", "+Inf", "60")

	testCases := []struct {
		name string
		tree viewstate.Node
	}{
		{name: "root is a scalar", tree: viewstate.Scalar("x")},
		{name: "wrong root tag", tree: viewstate.List("p", viewstate.Scalar("x"))},
		{name: "too few cells", tree: pageTree(short)},
		{name: "unparsable credit", tree: pageTree(badCredit)},
		{name: "nan credit", tree: pageTree(nanCredit)},
		{name: "infinite grade point", tree: pageTree(infGpa)},
		{
			name: "cell text is a list",
			tree: pageTree(scoreRow("2023", "1", "CS101", "x", "1", "1", "60")),
		},
	}
	// replace the text of the first cell of the last case with a list
	last := &testCases[len(testCases)-1]
	rows, err := DefaultLayout.Rows.Resolve(last.tree)
	require.NoError(t, err)
	rows[0] = nest(DefaultLayout.Cells.Path, viewstate.List("l",
		nest(DefaultLayout.Text, viewstate.List("x", viewstate.Scalar(""))),
	))

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			records, err := Extract(test.tree)
			require.Nil(t, records)
			require.True(t, errors.Is(err, ErrShape))

			var shapeErr *ShapeError
			require.ErrorAs(t, err, &shapeErr)
		})
	}
}

func TestRequiredCells(t *testing.T) {
	require.Equal(t, 22, requiredCells(Columns))
}

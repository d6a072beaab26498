package scores

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	headerNew     = "【新成绩】"
	headerUpdated = "【成绩更新】"
	headerRemoved = "【成绩移除】"

	labelCourse      = "课程"
	labelScore       = "成绩"
	labelMakeupScore = "补考成绩"
	labelRetakeScore = "重修成绩"
	labelCredit      = "学分"
	labelGradePoint  = "绩点"
)

// FormatDecimal renders credits and grade points the way they have always
// appeared in messages, integral values keep a trailing ".0".
func FormatDecimal(v float64) string {
	if v == math.Trunc(v) && !math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

type messageBuilder struct {
	out strings.Builder
}

func (b *messageBuilder) line(label, value string) {
	fmt.Fprintf(&b.out, "%s：%s\n", label, value)
}

func (b *messageBuilder) transition(label, old, current string) {
	if old != current {
		b.line(label, fmt.Sprintf("%s → %s", old, current))
		return
	}
	b.line(label, current)
}

// optionalTransition omits the line entirely when both sides are empty.
func (b *messageBuilder) optionalTransition(label, old, current string) {
	if old == "" && current == "" {
		return
	}
	b.transition(label, old, current)
}

func (b *messageBuilder) header(text string, r Record) {
	b.out.WriteString(text)
	b.out.WriteString("\n")
	b.line(labelCourse, fmt.Sprintf("%s %s （%s）", r.Key().String(), r.CourseName, r.CourseNature))
}

func renderSingle(header string, r Record) string {
	b := &messageBuilder{}
	b.header(header, r)
	b.line(labelScore, r.Score)
	b.optionalTransition(labelMakeupScore, r.MakeupScore, r.MakeupScore)
	b.optionalTransition(labelRetakeScore, r.RetakeScore, r.RetakeScore)
	b.line(labelCredit, FormatDecimal(r.Credit))
	b.line(labelGradePoint, FormatDecimal(r.GradePoint))
	return b.out.String()
}

func renderUpdated(prev, curr Record) string {
	b := &messageBuilder{}
	b.header(headerUpdated, curr)
	b.transition(labelScore, prev.Score, curr.Score)
	b.optionalTransition(labelMakeupScore, prev.MakeupScore, curr.MakeupScore)
	b.optionalTransition(labelRetakeScore, prev.RetakeScore, curr.RetakeScore)
	b.transition(labelCredit, FormatDecimal(prev.Credit), FormatDecimal(curr.Credit))
	b.transition(labelGradePoint, FormatDecimal(prev.GradePoint), FormatDecimal(curr.GradePoint))
	return b.out.String()
}

// Render builds the channel-agnostic notification text for a change.
func Render(c Change) (string, error) {
	switch c.Kind {
	case ChangeNew:
		return renderSingle(headerNew, c.Record), nil
	case ChangeRemoved:
		return renderSingle(headerRemoved, c.Record), nil
	case ChangeUpdated:
		if c.Previous == nil {
			return "", fmt.Errorf("updated change for %s has no previous record", c.Record.Key().String())
		}
		return renderUpdated(*c.Previous, c.Record), nil
	}
	return "", fmt.Errorf("unsupported change kind %s", c.Kind.String())
}

package scores

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func course(year, term, code, score string) Record {
	return Record{
		Year:         year,
		Term:         term,
		CourseCode:   code,
		CourseName:   "course " + code,
		CourseNature: "必修",
		Credit:       3,
		GradePoint:   3.5,
		Score:        score,
	}
}

func kinds(changes []Change) []string {
	out := make([]string, len(changes))
	for i, c := range changes {
		out[i] = fmt.Sprintf("%s:%s", c.Kind.String(), c.Record.Key().String())
	}
	return out
}

func TestDiff(t *testing.T) {
	a := course("2023", "1", "CS101", "85")
	b := course("2023", "1", "MA201", "90")
	c := course("2023", "2", "PH110", "A")

	aUpdated := a
	aUpdated.Score = "90"

	bRetaken := b
	bRetaken.RetakeFlag = true

	testCases := []struct {
		name     string
		prev     Snapshot
		curr     Snapshot
		expected []string
	}{
		{
			name:     "first observation",
			prev:     nil,
			curr:     Snapshot{a},
			expected: []string{"new:2023-1-CS101"},
		},
		{
			name:     "unchanged",
			prev:     Snapshot{a, b},
			curr:     Snapshot{a, b},
			expected: []string{},
		},
		{
			name:     "score update",
			prev:     Snapshot{a, b},
			curr:     Snapshot{aUpdated, b},
			expected: []string{"updated:2023-1-CS101"},
		},
		{
			name:     "identity preserving field counts as update",
			prev:     Snapshot{b},
			curr:     Snapshot{bRetaken},
			expected: []string{"updated:2023-1-MA201"},
		},
		{
			name:     "removal",
			prev:     Snapshot{a, b},
			curr:     Snapshot{b},
			expected: []string{"removed:2023-1-CS101"},
		},
		{
			name: "ordering",
			prev: Snapshot{c, a, b},
			curr: Snapshot{aUpdated, course("2024", "1", "EN100", "77")},
			expected: []string{
				"updated:2023-1-CS101",
				"new:2024-1-EN100",
				"removed:2023-2-PH110",
				"removed:2023-1-MA201",
			},
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			changes, err := Diff(test.prev, test.curr, DiffOptions{})
			require.NoError(t, err)
			require.Equal(t, test.expected, kinds(changes))
		})
	}
}

func TestDiffUpdatedCarriesPrevious(t *testing.T) {
	prev := course("2023", "1", "CS101", "85")
	curr := prev
	curr.Score = "90"

	changes, err := Diff(Snapshot{prev}, Snapshot{curr}, DiffOptions{})
	require.NoError(t, err)
	require.Len(t, changes, 1)
	require.NotNil(t, changes[0].Previous)
	if diff := cmp.Diff(prev, *changes[0].Previous); diff != "" {
		t.Fatalf("previous mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, curr, changes[0].Record)
}

func TestDiffDuplicates(t *testing.T) {
	first := course("2023", "1", "CS101", "55")
	second := course("2023", "1", "CS101", "75")
	other := course("2023", "1", "MA201", "80")

	changes, err := Diff(nil, Snapshot{first, other, second}, DiffOptions{Duplicates: LastWins})
	require.NoError(t, err)
	require.Equal(t, []string{"new:2023-1-CS101", "new:2023-1-MA201"}, kinds(changes))
	require.Equal(t, "75", changes[0].Record.Score)

	_, err = Diff(nil, Snapshot{first, second}, DiffOptions{Duplicates: Reject})
	var dupErr *DuplicateKeyError
	require.ErrorAs(t, err, &dupErr)
	require.Equal(t, first.Key(), dupErr.Key)
}

func randomSnapshot(r *rand.Rand) Snapshot {
	var s Snapshot
	seen := map[Key]bool{}
	n := r.Intn(12)
	for i := 0; i < n; i++ {
		rec := course(
			fmt.Sprint(2020+r.Intn(3)),
			fmt.Sprint(1+r.Intn(2)),
			fmt.Sprintf("C%d", r.Intn(6)),
			fmt.Sprint(60+r.Intn(3)),
		)
		if seen[rec.Key()] {
			continue
		}
		seen[rec.Key()] = true
		s = append(s, rec)
	}
	return s
}

func TestDiffProperties(t *testing.T) {
	r := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		prev := randomSnapshot(r)
		curr := randomSnapshot(r)

		self, err := Diff(curr, curr, DiffOptions{})
		require.NoError(t, err)
		require.Empty(t, self)

		changes, err := Diff(prev, curr, DiffOptions{})
		require.NoError(t, err)

		prevIdx, _ := prev.Index(LastWins)
		currIdx, _ := curr.Index(LastWins)

		counted := map[Key]int{}
		for _, c := range changes {
			key := c.Record.Key()
			counted[key]++

			_, inPrev := prevIdx.Get(key)
			_, inCurr := currIdx.Get(key)
			switch c.Kind {
			case ChangeNew:
				require.True(t, inCurr && !inPrev)
			case ChangeRemoved:
				require.True(t, inPrev && !inCurr)
			case ChangeUpdated:
				require.True(t, inPrev && inCurr)
				p, _ := prevIdx.Get(key)
				q, _ := currIdx.Get(key)
				require.False(t, p.Equal(q))
			}
		}
		for key, n := range counted {
			require.Equal(t, 1, n, key.String())
		}

		for _, key := range currIdx.Keys() {
			p, inPrev := prevIdx.Get(key)
			q, _ := currIdx.Get(key)
			if !inPrev || !p.Equal(q) {
				require.Equal(t, 1, counted[key], key.String())
			} else {
				require.Zero(t, counted[key], key.String())
			}
		}
		for _, key := range prevIdx.Keys() {
			if _, inCurr := currIdx.Get(key); !inCurr {
				require.Equal(t, 1, counted[key], key.String())
			}
		}
	}
}

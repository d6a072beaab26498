package scores

import (
	"fmt"
	"log/slog"
)

// Record is one course outcome as listed on the portal's score page.
type Record struct {
	Year              string  `json:"year"`
	Term              string  `json:"term"`
	CourseCode        string  `json:"course_code"`
	CourseName        string  `json:"course_name"`
	CourseNature      string  `json:"course_nature"`
	CourseBelong      string  `json:"course_belong"`
	Credit            float64 `json:"credit"`
	GradePoint        float64 `json:"gpa"`
	Score             string  `json:"score"` // numeric text or a letter grade
	MinorFlag         bool    `json:"minor_flag"`
	MakeupScore       string  `json:"makeup_score"`
	RetakeScore       string  `json:"retake_score"`
	CollegeName       string  `json:"college_name"`
	Comment           string  `json:"comment"`
	RetakeFlag        bool    `json:"retake_flag"`
	CourseEnglishName string  `json:"course_english_name"`
}

// Key identifies the same course occurrence across fetches.
type Key struct {
	Year       string
	Term       string
	CourseCode string
}

func (k Key) String() string {
	return fmt.Sprintf("%s-%s-%s", k.Year, k.Term, k.CourseCode)
}

func (r Record) Key() Key {
	return Key{Year: r.Year, Term: r.Term, CourseCode: r.CourseCode}
}

func (r Record) Equal(other Record) bool {
	return r == other
}

// Snapshot is the complete, ordered observation of one fetch.
type Snapshot []Record

type DuplicatePolicy int

const (
	// LastWins keeps the last record seen for a key, at the position the
	// key was first seen.
	LastWins DuplicatePolicy = iota
	// Reject fails indexing when a key occurs more than once.
	Reject
)

func (p DuplicatePolicy) String() string {
	switch p {
	case LastWins:
		return "last_wins"
	case Reject:
		return "reject"
	}
	return fmt.Sprintf("DuplicatePolicy(%d)", int(p))
}

func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch s {
	case "", "last_wins":
		return LastWins, nil
	case "reject":
		return Reject, nil
	}
	return LastWins, fmt.Errorf("unknown duplicate policy %q", s)
}

type DuplicateKeyError struct {
	Key Key
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate course key %s", e.Key.String())
}

// KeyIndex is an insertion-ordered association of keys to records.
type KeyIndex struct {
	keys  []Key
	byKey map[Key]Record
}

func (s Snapshot) Index(policy DuplicatePolicy) (*KeyIndex, error) {
	idx := &KeyIndex{
		keys:  make([]Key, 0, len(s)),
		byKey: make(map[Key]Record, len(s)),
	}
	for _, r := range s {
		key := r.Key()
		if _, exists := idx.byKey[key]; exists {
			if policy == Reject {
				return nil, &DuplicateKeyError{Key: key}
			}
			slog.Warn("duplicate course key in snapshot, keeping the later record", "key", key.String())
			idx.byKey[key] = r
			continue
		}
		idx.keys = append(idx.keys, key)
		idx.byKey[key] = r
	}
	return idx, nil
}

func (i *KeyIndex) Get(key Key) (Record, bool) {
	r, ok := i.byKey[key]
	return r, ok
}

// Keys returns the keys in the order they were first seen.
func (i *KeyIndex) Keys() []Key {
	return i.keys
}

func (i *KeyIndex) Len() int {
	return len(i.keys)
}

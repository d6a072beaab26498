package scores

import "fmt"

type ChangeKind int

const (
	ChangeNew ChangeKind = iota + 1
	ChangeUpdated
	ChangeRemoved
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeNew:
		return "new"
	case ChangeUpdated:
		return "updated"
	case ChangeRemoved:
		return "removed"
	}
	return fmt.Sprintf("ChangeKind(%d)", int(k))
}

// Change classifies one record relative to the previous snapshot.
// Previous is only set for ChangeUpdated.
type Change struct {
	Kind     ChangeKind
	Record   Record
	Previous *Record
}

type DiffOptions struct {
	Duplicates DuplicatePolicy
}

// Diff compares two snapshots by course key. New and updated records are
// returned in the order of curr, followed by removed records in the order
// of prev. Unchanged records produce nothing.
func Diff(prev, curr Snapshot, opts DiffOptions) ([]Change, error) {
	prevIdx, err := prev.Index(opts.Duplicates)
	if err != nil {
		return nil, fmt.Errorf("index previous snapshot: %w", err)
	}
	currIdx, err := curr.Index(opts.Duplicates)
	if err != nil {
		return nil, fmt.Errorf("index current snapshot: %w", err)
	}

	var changes []Change
	for _, key := range currIdx.Keys() {
		record, _ := currIdx.Get(key)
		previous, found := prevIdx.Get(key)
		if !found {
			changes = append(changes, Change{Kind: ChangeNew, Record: record})
			continue
		}
		if previous.Equal(record) {
			continue
		}
		changes = append(changes, Change{
			Kind:     ChangeUpdated,
			Record:   record,
			Previous: &previous,
		})
	}

	for _, key := range prevIdx.Keys() {
		if _, found := currIdx.Get(key); found {
			continue
		}
		record, _ := prevIdx.Get(key)
		changes = append(changes, Change{Kind: ChangeRemoved, Record: record})
	}

	return changes, nil
}

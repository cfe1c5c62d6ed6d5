// Package kanban computes sort-key placement for drag-and-drop moves on
// status-grouped ordered columns.
package kanban

import "sort"

// Item is the minimal view of a task the planner needs: its identity and
// current sort key within a column.
type Item struct {
	ID        string
	SortOrder int
}

// Reassign instructs the caller to persist a new sort key for an item
// other than the one being moved. Emitted only by a collision reindex.
type Reassign struct {
	ID        string
	SortOrder int
}

// Plan is the outcome of a move computation: the moved item's new sort
// key plus any reindex assignments for the rest of the destination
// column. Reassignments list only items whose key actually changes.
type Plan struct {
	SortOrder int
	Reindex   []Reassign
}

// PlanMove computes the placement of an item dropped into a column.
//
// column holds the destination column's items with the moved item
// excluded; order does not matter, the planner sorts a copy. targetIndex
// is the drop position within that column; a negative index or one past
// the end appends.
//
// Placement rules:
//   - append: max existing key + 1, or 0 for an empty column
//   - before the first item: first key - 1
//   - between neighbors: floor of the key midpoint; when no integer room
//     remains the whole column is reindexed to sequential keys with the
//     moved item at targetIndex
//
// Keys are only ordered relative to peers in the same column; no
// cross-column coupling exists.
func PlanMove(column []Item, targetIndex int) Plan {
	sorted := make([]Item, len(column))
	copy(sorted, column)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SortOrder < sorted[j].SortOrder
	})

	// Append: empty column, explicit append, or index past the end.
	if targetIndex < 0 || targetIndex >= len(sorted) {
		if len(sorted) == 0 {
			return Plan{SortOrder: 0}
		}
		return Plan{SortOrder: sorted[len(sorted)-1].SortOrder + 1}
	}

	if targetIndex == 0 {
		return Plan{SortOrder: sorted[0].SortOrder - 1}
	}

	prev := sorted[targetIndex-1].SortOrder
	next := sorted[targetIndex].SortOrder
	mid := floorDiv(prev+next, 2)
	if mid != prev && mid != next {
		return Plan{SortOrder: mid}
	}

	// No integer room between the neighbors: reindex the whole column to
	// sequential keys with the moved item occupying targetIndex.
	plan := Plan{SortOrder: targetIndex}
	for i, it := range sorted {
		want := i
		if i >= targetIndex {
			want = i + 1
		}
		if it.SortOrder != want {
			plan.Reindex = append(plan.Reindex, Reassign{ID: it.ID, SortOrder: want})
		}
	}
	return plan
}

// NoOpFor reports whether applying the plan to the given item would
// change nothing: same key, no reindexing. Callers must still persist
// when the move also changes the item's column.
func (p Plan) NoOpFor(moved Item) bool {
	return p.SortOrder == moved.SortOrder && len(p.Reindex) == 0
}

// floorDiv divides rounding toward negative infinity, matching midpoint
// semantics for negative sort keys.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

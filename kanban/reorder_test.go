package kanban

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func col(keys ...int) []Item {
	items := make([]Item, len(keys))
	for i, k := range keys {
		items[i] = Item{ID: string(rune('a' + i)), SortOrder: k}
	}
	return items
}

func TestPlanMove_AppendEmptyColumn(t *testing.T) {
	plan := PlanMove(nil, 0)
	if plan.SortOrder != 0 {
		t.Errorf("SortOrder = %d, want 0", plan.SortOrder)
	}
	if len(plan.Reindex) != 0 {
		t.Errorf("Reindex = %v, want none", plan.Reindex)
	}
}

func TestPlanMove_AppendPastEnd(t *testing.T) {
	plan := PlanMove(col(3, 7), 5)
	if plan.SortOrder != 8 {
		t.Errorf("SortOrder = %d, want 8", plan.SortOrder)
	}
	if plan2 := PlanMove(col(3, 7), -1); plan2.SortOrder != 8 {
		t.Errorf("negative index SortOrder = %d, want 8", plan2.SortOrder)
	}
}

func TestPlanMove_BeforeFirst(t *testing.T) {
	plan := PlanMove(col(4, 9), 0)
	if plan.SortOrder != 3 {
		t.Errorf("SortOrder = %d, want 3", plan.SortOrder)
	}

	// Works below zero too.
	plan = PlanMove(col(0, 5), 0)
	if plan.SortOrder != -1 {
		t.Errorf("SortOrder = %d, want -1", plan.SortOrder)
	}
}

func TestPlanMove_MidpointBetweenNeighbors(t *testing.T) {
	plan := PlanMove(col(1, 5), 1)
	if plan.SortOrder != 3 {
		t.Errorf("SortOrder = %d, want 3", plan.SortOrder)
	}
	if len(plan.Reindex) != 0 {
		t.Errorf("Reindex = %v, want none", plan.Reindex)
	}
}

func TestPlanMove_NegativeMidpointFloors(t *testing.T) {
	// Midpoint of -3 and 0 floors to -2, not toward zero.
	plan := PlanMove(col(-3, 0), 1)
	if plan.SortOrder != -2 {
		t.Errorf("SortOrder = %d, want -2", plan.SortOrder)
	}
}

func TestPlanMove_CollisionReindexes(t *testing.T) {
	// Adjacent keys 1,2 leave no integer room at index 1.
	plan := PlanMove(col(1, 2), 1)
	if plan.SortOrder != 1 {
		t.Errorf("SortOrder = %d, want 1", plan.SortOrder)
	}
	want := []Reassign{
		{ID: "a", SortOrder: 0},
		// "b" already holds key 2, the slot after the insertion point.
	}
	if diff := cmp.Diff(want, plan.Reindex); diff != "" {
		t.Errorf("Reindex mismatch (-want +got):\n%s", diff)
	}
}

func TestPlanMove_ReindexListsOnlyChangedKeys(t *testing.T) {
	// Keys 0,1,2,3 with a drop at index 2: items before the slot keep
	// their sequential keys and must not appear in the plan.
	plan := PlanMove(col(0, 1, 2, 3), 2)
	if plan.SortOrder != 2 {
		t.Errorf("SortOrder = %d, want 2", plan.SortOrder)
	}
	want := []Reassign{
		{ID: "c", SortOrder: 3},
		{ID: "d", SortOrder: 4},
	}
	if diff := cmp.Diff(want, plan.Reindex); diff != "" {
		t.Errorf("Reindex mismatch (-want +got):\n%s", diff)
	}
}

func TestPlanMove_UnsortedInputIsSorted(t *testing.T) {
	items := []Item{
		{ID: "x", SortOrder: 9},
		{ID: "y", SortOrder: 2},
	}
	plan := PlanMove(items, 1)
	// Between y(2) and x(9): floor(11/2) = 5.
	if plan.SortOrder != 5 {
		t.Errorf("SortOrder = %d, want 5", plan.SortOrder)
	}
}

func TestPlan_NoOpFor(t *testing.T) {
	plan := PlanMove(col(1, 5), 1)
	if !plan.NoOpFor(Item{ID: "m", SortOrder: 3}) {
		t.Error("move to own key should be a no-op")
	}
	if plan.NoOpFor(Item{ID: "m", SortOrder: 4}) {
		t.Error("different key is not a no-op")
	}

	reindexing := PlanMove(col(1, 2), 1)
	if reindexing.NoOpFor(Item{ID: "m", SortOrder: 1}) {
		t.Error("plan with reindexing is never a no-op")
	}
}

func TestFloorDiv(t *testing.T) {
	cases := []struct {
		a, b, want int
	}{
		{7, 2, 3},
		{-7, 2, -4},
		{-3, 2, -2},
		{6, 2, 3},
		{-6, 2, -3},
	}
	for _, c := range cases {
		if got := floorDiv(c.a, c.b); got != c.want {
			t.Errorf("floorDiv(%d, %d) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

package domain

import "testing"

func TestComputeStatsCountsByDimension(t *testing.T) {
	tasks := []Task{
		{ID: 1, Column: ColumnTodo, Priority: PriorityHigh, Category: CategoryBug},
		{ID: 2, Column: ColumnTodo, Priority: PriorityMedium, Category: CategoryFeature},
		{ID: 3, Column: ColumnDone, Priority: PriorityHigh, Category: CategoryFeature},
	}

	st := ComputeStats(tasks)

	if st.Total != 3 {
		t.Fatalf("unexpected total: %d", st.Total)
	}
	if st.ByColumn[ColumnTodo] != 2 || st.ByColumn[ColumnDone] != 1 || st.ByColumn[ColumnInProgress] != 0 {
		t.Fatalf("unexpected column counts: %#v", st.ByColumn)
	}
	if st.ByPriority[PriorityHigh] != 2 || st.ByPriority[PriorityMedium] != 1 || st.ByPriority[PriorityLow] != 0 {
		t.Fatalf("unexpected priority counts: %#v", st.ByPriority)
	}
	if st.ByCategory[CategoryFeature] != 2 || st.ByCategory[CategoryBug] != 1 {
		t.Fatalf("unexpected category counts: %#v", st.ByCategory)
	}
}

func TestComputeStatsEmptyCollectionKeepsBuckets(t *testing.T) {
	st := ComputeStats(nil)
	if st.Total != 0 {
		t.Fatalf("unexpected total: %d", st.Total)
	}
	if len(st.ByColumn) != 3 || len(st.ByPriority) != 3 || len(st.ByCategory) != 3 {
		t.Fatal("expected every enumerated bucket to be present")
	}
}

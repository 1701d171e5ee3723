package domain

// Stats is the chart projection of a task collection: counts by column,
// priority and category. It is a pure function of the collection and owns no
// state of its own.
type Stats struct {
	Total      int              `json:"total"`
	ByColumn   map[Column]int   `json:"byColumn"`
	ByPriority map[Priority]int `json:"byPriority"`
	ByCategory map[Category]int `json:"byCategory"`
}

// ComputeStats tallies tasks into a Stats projection. Every enumerated value
// appears in the maps so consumers can render empty buckets.
func ComputeStats(tasks []Task) Stats {
	st := Stats{
		Total: len(tasks),
		ByColumn: map[Column]int{
			ColumnTodo:       0,
			ColumnInProgress: 0,
			ColumnDone:       0,
		},
		ByPriority: map[Priority]int{
			PriorityLow:    0,
			PriorityMedium: 0,
			PriorityHigh:   0,
		},
		ByCategory: map[Category]int{
			CategoryBug:         0,
			CategoryFeature:     0,
			CategoryEnhancement: 0,
		},
	}
	for _, t := range tasks {
		st.ByColumn[t.Column]++
		st.ByPriority[t.Priority]++
		st.ByCategory[t.Category]++
	}
	return st
}

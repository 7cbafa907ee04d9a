package models

// StatusCounts buckets ideas by lifecycle status.
type StatusCounts struct {
	Submitted   int `json:"submitted"`
	UnderReview int `json:"under_review"`
	Approved    int `json:"approved"`
	Rejected    int `json:"rejected"`
}

// ClassificationCounts buckets reviewed ideas by assigned category.
type ClassificationCounts struct {
	Automation             int `json:"automation"`
	ProcessImprovement     int `json:"process_improvement"`
	OperationalEnhancement int `json:"operational_enhancement"`
}

// EvaluationCounts buckets approved ideas by priority label. Ideas in
// any other status are excluded even when a priority is stored.
type EvaluationCounts struct {
	Low      int `json:"low"`
	Medium   int `json:"medium"`
	High     int `json:"high"`
	Critical int `json:"critical"`
}

// IdeaStatistics is the aggregate payload backing the admin dashboard.
// Every count reflects a single consistent pass over the filtered set;
// no idea lands in more than one bucket per dimension.
type IdeaStatistics struct {
	Total            int                  `json:"total"`
	ByStatus         StatusCounts         `json:"by_status"`
	ByDepartment     map[string]int       `json:"by_department"`
	ByCountry        map[string]int       `json:"by_country"`
	ByClassification ClassificationCounts `json:"by_classification"`
	Evaluation       EvaluationCounts     `json:"evaluation"`
}

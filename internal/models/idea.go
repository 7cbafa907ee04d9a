package models

import (
	"time"

	"github.com/lib/pq"
)

// IdeaStatus represents the lifecycle state of a submitted idea.
type IdeaStatus string

const (
	StatusSubmitted   IdeaStatus = "Submitted"
	StatusUnderReview IdeaStatus = "Under Review"
	StatusApproved    IdeaStatus = "Approved"
	StatusRejected    IdeaStatus = "Rejected"
)

// Terminal reports whether the status permits no further transitions.
func (s IdeaStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// ValidStatus reports whether the value is a member of the status set.
func ValidStatus(s IdeaStatus) bool {
	switch s {
	case StatusSubmitted, StatusUnderReview, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Departments eligible to submit or be involved in an idea.
var Departments = []string{"IT", "HR", "Costing", "Logistics", "Planning", "Purchasing", "Admin"}

// Countries covered by the intake programme.
var Countries = []string{"Philippines", "US", "Indonesia"}

// ExpectedBenefits a submitter may select.
var ExpectedBenefits = []string{"Automation", "Process Improvement"}

// Classifications an administrator may assign during review.
var Classifications = []string{"Automation", "Process Improvement", "Operational Enhancement"}

// ValidDepartment reports membership in the department enumeration.
func ValidDepartment(d string) bool { return contains(Departments, d) }

// ValidCountry reports membership in the country enumeration.
func ValidCountry(c string) bool { return contains(Countries, c) }

// ValidExpectedBenefit reports membership in the benefit enumeration.
func ValidExpectedBenefit(b string) bool { return contains(ExpectedBenefits, b) }

// ValidClassification reports membership in the classification enumeration.
func ValidClassification(c string) bool { return contains(Classifications, c) }

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// Priority is the ordinal review urgency scale. Zero means no priority
// has been assigned yet and is never rendered as "Low".
type Priority int

const (
	PriorityNotSelected Priority = 0
	PriorityLow         Priority = 1
	PriorityMedium      Priority = 2
	PriorityHigh        Priority = 3
	PriorityCritical    Priority = 4
)

// PriorityLabels lists the labels of assigned priorities, highest first.
var PriorityLabels = []string{"Critical", "High", "Medium", "Low"}

// Selected reports whether a real priority level has been assigned.
func (p Priority) Selected() bool {
	return p >= PriorityLow && p <= PriorityCritical
}

// Label maps a priority level to its display label. Unassigned and
// out-of-range values map to "N/A".
func (p Priority) Label() string {
	switch p {
	case PriorityLow:
		return "Low"
	case PriorityMedium:
		return "Medium"
	case PriorityHigh:
		return "High"
	case PriorityCritical:
		return "Critical"
	}
	return "N/A"
}

// PriorityFromLabel resolves a label back to its level. Unknown labels
// resolve to PriorityNotSelected.
func PriorityFromLabel(label string) Priority {
	switch label {
	case "Low":
		return PriorityLow
	case "Medium":
		return PriorityMedium
	case "High":
		return PriorityHigh
	case "Critical":
		return PriorityCritical
	}
	return PriorityNotSelected
}

// PriorityFromLegacyScore maps the retired 1-10 continuous scale onto the
// ordinal levels. Used only when importing historical records.
func PriorityFromLegacyScore(score int) Priority {
	switch {
	case score >= 9:
		return PriorityCritical
	case score >= 7:
		return PriorityHigh
	case score >= 4:
		return PriorityMedium
	case score >= 1:
		return PriorityLow
	}
	return PriorityNotSelected
}

// Idea represents one submitted automation/process-improvement proposal.
// Submission fields are immutable after creation; review fields are
// written only by the lifecycle service while the status permits.
type Idea struct {
	ID                 string     `db:"id" json:"id"`
	Title              string     `db:"title" json:"title"`
	Description        string     `db:"description" json:"description"`
	Department         string     `db:"department" json:"department"`
	Country            string     `db:"country" json:"country"`
	ExpectedBenefit    string     `db:"expected_benefit" json:"expected_benefit"`
	Frequency          string     `db:"frequency" json:"frequency"`
	SubmitterFirstName string     `db:"submitter_first_name" json:"submitter_first_name"`
	SubmitterLastName  string     `db:"submitter_last_name" json:"submitter_last_name"`
	SubmitterEmail     string     `db:"submitter_email" json:"submitter_email"`
	Status             IdeaStatus `db:"status" json:"status"`
	DateSubmitted      time.Time  `db:"date_submitted" json:"date_submitted"`

	CurrentProcessTitle    *string        `db:"current_process_title" json:"current_process_title,omitempty"`
	CurrentProcessProblem  *string        `db:"current_process_problem" json:"current_process_problem,omitempty"`
	IsManualProcess        bool           `db:"is_manual_process" json:"is_manual_process"`
	InvolvesMultipleDepts  bool           `db:"involves_multiple_departments" json:"involves_multiple_departments"`
	InvolvedDepartments    pq.StringArray `db:"involved_departments" json:"involved_departments,omitempty"`

	Classification *string  `db:"classification" json:"classification,omitempty"`
	Priority       Priority `db:"priority" json:"priority"`
	AdminRemarks   *string  `db:"admin_remarks" json:"admin_remarks,omitempty"`
	ReviewedBy     *string  `db:"reviewed_by" json:"reviewed_by,omitempty"`

	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SubmitterName returns the submitter's display name.
func (i *Idea) SubmitterName() string {
	return i.SubmitterFirstName + " " + i.SubmitterLastName
}

// PriorityLabel returns the display label of the stored priority.
func (i *Idea) PriorityLabel() string {
	return i.Priority.Label()
}

// ReviewData carries the optional review fields accompanying a transition
// or a direct review edit.
type ReviewData struct {
	Classification string   `json:"classification"`
	Priority       Priority `json:"priority"`
	Remarks        string   `json:"remarks"`
	ReviewedBy     string   `json:"reviewed_by"`
}

// IdeaFilter captures filtering criteria for listing ideas.
type IdeaFilter struct {
	Country       string
	Department    string
	Status        IdeaStatus
	PriorityLabel string
	SubmittedFrom *time.Time
	SubmittedTo   *time.Time
	Search        string
	Page          int
	PageSize      int
	SortBy        string
	SortOrder     string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

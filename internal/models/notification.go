package models

// SubmissionNotification carries the confirmation payload dispatched
// after a successful idea submission. Delivery failures never roll back
// or block the submission itself.
type SubmissionNotification struct {
	ReferenceID    string `json:"reference_id"`
	SubmitterName  string `json:"submitter_name"`
	SubmitterEmail string `json:"submitter_email"`
	Title          string `json:"idea_title"`
	Department     string `json:"department"`
	DateSubmitted  string `json:"date_submitted"`
}

package models

import "time"

// Priority is computed once when a submission is accepted.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// SubmissionFlag is an advisory tag attached to a submission at creation time.
type SubmissionFlag string

const (
	FlagHighFrequency    SubmissionFlag = "high_frequency"
	FlagDuplicateEmail   SubmissionFlag = "duplicate_email"
	FlagDuplicateContent SubmissionFlag = "duplicate_content"
)

// SubmissionStatus is the admin workflow state of a submission.
type SubmissionStatus string

const (
	SubmissionNew        SubmissionStatus = "new"
	SubmissionInProgress SubmissionStatus = "in_progress"
	SubmissionResolved   SubmissionStatus = "resolved"
	SubmissionClosed     SubmissionStatus = "closed"
)

// submissionTransitions lists the forward-only admin workflow.
var submissionTransitions = map[SubmissionStatus][]SubmissionStatus{
	SubmissionNew:        {SubmissionInProgress, SubmissionResolved, SubmissionClosed},
	SubmissionInProgress: {SubmissionResolved, SubmissionClosed},
	SubmissionResolved:   {SubmissionClosed},
	SubmissionClosed:     {},
}

// CanTransition reports whether an admin may move a submission from one status to another.
// Re-applying the current status is allowed.
func (s SubmissionStatus) CanTransition(to SubmissionStatus) bool {
	if s == to {
		_, known := submissionTransitions[s]
		return known
	}
	for _, next := range submissionTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// ParseSubmissionStatus validates a workflow status string.
func ParseSubmissionStatus(raw string) (SubmissionStatus, error) {
	s := SubmissionStatus(raw)
	if _, ok := submissionTransitions[s]; !ok {
		return "", ErrInvalidStatus
	}
	return s, nil
}

// SubmissionChange is one admin write to a submission. An empty To leaves the
// status alone. A non-empty From limits the write to rows still in that status.
type SubmissionChange struct {
	From        SubmissionStatus
	To          SubmissionStatus
	SetAssignee bool
	AssignedTo  *string
}

// SubmissionKind selects the priority policy and the backing table.
type SubmissionKind string

const (
	SubmissionKindGeneral    SubmissionKind = "inquiry"
	SubmissionKindDealership SubmissionKind = "dealership_inquiry"
)

// SubmissionMetadata is stored as JSONB next to each submission.
type SubmissionMetadata struct {
	Flags             []SubmissionFlag `json:"flags"`
	RecentSubmissions int              `json:"recent_submissions"`
}

// SubmissionMeta holds the fields shared by every public submission.
type SubmissionMeta struct {
	ID         string
	Priority   Priority
	Status     SubmissionStatus
	IPAddress  string
	UserAgent  string
	Metadata   SubmissionMetadata
	AssignedTo *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Inquiry is a general contact-form submission.
type Inquiry struct {
	SubmissionMeta
	Name        string
	Email       string
	Phone       string
	Company     string
	Subject     string
	Message     string
	InquiryType string
}

// DealershipInquiry is a dealership-interest submission.
type DealershipInquiry struct {
	SubmissionMeta
	CompanyName   string
	ContactName   string
	Email         string
	Phone         string
	Location      string
	MonthlyVolume string
	Message       string
}

// RecentFilter selects the submissions counted by the abuse heuristic.
// Exactly one field is expected to be set.
type RecentFilter struct {
	IPAddress string
	Email     string
	Message   string
}

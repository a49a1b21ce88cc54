package domain

import "time"

// ApplicationStatus is free-text by contract; these are the values the admin
// frontend actually sends.
type ApplicationStatus string

const (
	StatusPending  ApplicationStatus = "Pending"
	StatusApproved ApplicationStatus = "Approved"
	StatusRejected ApplicationStatus = "Rejected"
)

// Application is a submitted student application. Fields other than Status
// are written once at submission and never mutated afterwards.
type Application struct {
	ID          string            `json:"id"`
	FullName    string            `json:"fullName"`
	Email       string            `json:"email"`
	Phone       string            `json:"phone,omitempty"`
	Program     string            `json:"program,omitempty"`
	Details     map[string]string `json:"details,omitempty"`
	DocumentURL *string           `json:"documentUrl,omitempty"`
	Status      ApplicationStatus `json:"status"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

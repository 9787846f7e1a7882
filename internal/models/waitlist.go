package models

import "time"

// Role is the kind of member joining the waitlist
type Role string

const (
	RoleClient Role = "client"
	RoleChef   Role = "chef"
)

// FakeReferralCode is returned to submissions caught by the honeypot
const FakeReferralCode = "TYEB000000"

// Submission is a validated and normalized waitlist form submission
type Submission struct {
	Role       Role
	Name       string
	Email      string
	Phone      string
	ReferredBy string
	Website    string
}

// HasContact reports whether at least one contact channel is present
func (s *Submission) HasContact() bool {
	return s.Email != "" || s.Phone != ""
}

// IsBot reports whether the honeypot field was filled
func (s *Submission) IsBot() bool {
	return s.Website != ""
}

// JoinRequest carries one inbound request to the waitlist service
type JoinRequest struct {
	Candidate      map[string]any
	ClientIP       string
	TurnstileToken string
}

// JoinResponse is the success body of POST /api/waitlist
type JoinResponse struct {
	Success      bool   `json:"success"`
	ReferralCode string `json:"referralCode"`
	ShareURL     string `json:"shareUrl,omitempty"`
}

// ErrorResponse is the body of every failed response
type ErrorResponse struct {
	Error string `json:"error"`
}

// RecordMetadata is stored in the metadata jsonb column
type RecordMetadata struct {
	Source string `json:"source"`
	IPHash string `json:"ip_hash"`
}

// WaitlistRecord is a persisted waitlist_users row
type WaitlistRecord struct {
	ID           string
	Role         Role
	Name         string
	Email        *string
	Phone        *string
	ReferredBy   *string
	ReferralCode string
	Metadata     RecordMetadata
	CreatedAt    time.Time
}

// WaitlistStats is the body of GET /api/waitlist/stats
type WaitlistStats struct {
	Count     int `json:"count"`
	Capacity  int `json:"capacity"`
	Remaining int `json:"remaining"`
}

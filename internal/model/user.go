package model

// UserRole is carried in the caller's token. Users themselves live in the
// identity service.
type UserRole string

const (
	Candidate UserRole = "candidate"
	Reviewer  UserRole = "reviewer"
	Admin     UserRole = "admin"
)

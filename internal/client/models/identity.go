// Package models defines client-side data models used by the realmkeeper CLI.
package models

// Profile is the public projection of an identity as returned by the server.
type Profile struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	ProfileImage string `json:"profileImage"`
}

// ProfileUpdate is an administrator's edit of a user. Empty fields are left
// unchanged by the server.
type ProfileUpdate struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
}

// Admin describes the administrator principal.
type Admin struct {
	Email string `json:"email"`
}

// AuthResult is what register, login and token verification return. Exactly
// one of User and Admin is set.
type AuthResult struct {
	Token string
	User  *Profile
	Admin *Admin
}

// SweepReport summarizes one orphan sweep on the server.
type SweepReport struct {
	Deleted int `json:"deleted"`
	Failed  int `json:"failed"`
}

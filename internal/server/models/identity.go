// Package models defines server-side data models persisted in the database.
package models

import "time"

// AssetReference points at a profile image held by the external asset store.
type AssetReference struct {
	// URL is the public display URL.
	URL string
	// AssetID is the store-side handle used for deletion.
	AssetID string
}

// Identity is an end-user account.
type Identity struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string

	// ProfileImage is nil when no image has been uploaded.
	ProfileImage *AssetReference

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProfileUpdate carries the fields an administrator may change. Empty
// fields are left as they are.
type ProfileUpdate struct {
	Username     string
	Email        string
	PasswordHash string
}

// Public returns the client-safe projection of the identity.
func (i *Identity) Public() PublicIdentity {
	p := PublicIdentity{ID: i.ID, Username: i.Username, Email: i.Email}
	if i.ProfileImage != nil {
		p.ProfileImage = i.ProfileImage.URL
	}
	return p
}

// PublicIdentity never carries the password hash or the asset id.
type PublicIdentity struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	ProfileImage string `json:"profileImage"`
}

// PublicAdmin is what an admin login returns about the principal.
type PublicAdmin struct {
	Email string `json:"email"`
}

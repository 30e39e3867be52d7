// Package common contains shared constants and sentinel errors used across
// realmkeeper components.
package common

// AuthorizationHeaderName carries the bearer token on guarded requests.
const AuthorizationHeaderName = "Authorization"

// BearerScheme is the only accepted authorization scheme.
const BearerScheme = "Bearer"

// ProfileImageFormField is the multipart field holding a profile image.
const ProfileImageFormField = "profileImage"

// DefaultAssetFolder groups uploaded profile images in the asset store.
const DefaultAssetFolder = "profile_images"

// GenericFailureMessage is returned to clients instead of internal error text.
const GenericFailureMessage = "An unknown error occurred."

// Package rest exposes the identity and profile-asset operations over
// HTTP/JSON using fiber.
package rest

import (
	"github.com/dmitrijs2005/realmkeeper/internal/server/models"
	"github.com/gofiber/fiber/v2"
)

// Response messages shown to clients.
const (
	msgFieldsRequired   = "All fields are required"
	msgEmailInUse       = "Email already in use"
	msgInvalidLogin     = "Invalid email or password"
	msgRegistered       = "User registered successfully"
	msgLoggedIn         = "Login successful"
	msgAdminLoggedIn    = "Admin login successful"
	msgNoToken          = "No token provided"
	msgTokenRejected    = "Failed to authenticate token"
	msgTokenValid       = "Token is valid"
	msgUserNotFound     = "User not found"
	msgUserCreated      = "User created successfully"
	msgUserUpdated      = "User updated successfully"
	msgUserDeleted      = "User deleted successfully"
	msgNoImage          = "No image provided"
	msgInvalidRequest   = "Invalid request"
	msgForbidden        = "Not allowed to modify this user"
	msgSweepFinished    = "Orphan sweep finished"
	msgValidationFailed = "Validation failed"
)

// envelope is the body of every JSON response.
type envelope struct {
	Success bool                    `json:"success"`
	Message string                  `json:"message,omitempty"`
	User    *models.PublicIdentity  `json:"user,omitempty"`
	Users   []models.PublicIdentity `json:"users,omitempty"`
	Admin   *models.PublicAdmin     `json:"admin,omitempty"`
	Data    any                     `json:"data,omitempty"`
	Token   string                  `json:"token,omitempty"`
	Errors  map[string]string       `json:"errors,omitempty"`
}

func ok(c *fiber.Ctx, status int, body envelope) error {
	body.Success = true
	return c.Status(status).JSON(body)
}

func fail(c *fiber.Ctx, status int, message string, fields map[string]string) error {
	return c.Status(status).JSON(envelope{Success: false, Message: message, Errors: fields})
}

func publicIdentity(i *models.Identity) *models.PublicIdentity {
	p := i.Public()
	return &p
}

func publicIdentities(list []*models.Identity) []models.PublicIdentity {
	out := make([]models.PublicIdentity, 0, len(list))
	for _, i := range list {
		out = append(out, i.Public())
	}
	return out
}

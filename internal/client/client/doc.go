// Package client talks to the realmkeeper HTTP API and bootstraps the
// client's local database.
//
// HTTP failures come back as *APIError. Use errors.Is with ErrUnauthorized
// to detect a rejected token (HTTP 401 or 403) and with ErrUnavailable for
// transport failures.
package client

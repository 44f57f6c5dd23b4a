package domain

import (
	"errors"
	"fmt"
)

// --- ERREURS DU DOMAINE ---
var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrBusy             = errors.New("action already in progress")
	ErrEmptyPost        = errors.New("post has no content and no image")
	ErrEmptyComment     = errors.New("comment is empty")
	ErrMissingLogin     = errors.New("login and password are required")
	ErrMissingFields    = errors.New("email, username and both passwords are required")
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrCancelled        = errors.New("cancelled")
	ErrNotFound         = errors.New("not found")
)

// APIError est l'unique type d'erreur HTTP : le statut et le corps brut de la réponse.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return e.Body
}

// IsStatus teste le statut d'une APIError enveloppée.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

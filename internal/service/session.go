package service

import (
	"github.com/google/uuid"
)

// GenerateSessionID returns a new random cart session id.
func GenerateSessionID() string {
	return uuid.NewString()
}

// NormalizeSessionID parses id as a UUID and returns its canonical form.
// Braced and urn forms are accepted.
func NormalizeSessionID(id string) (string, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", ErrInvalidSession
	}
	return parsed.String(), nil
}

// CartKey is the storage key of a session's cart snapshot.
func CartKey(sessionID string) string {
	return "carts/" + sessionID + ".json"
}

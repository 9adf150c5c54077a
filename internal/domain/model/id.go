package model

import "github.com/google/uuid"

// generateID returns a random UUIDv4 string used to break ties between
// entries minted in the same tick.
func generateID() string {
	return uuid.NewString()
}

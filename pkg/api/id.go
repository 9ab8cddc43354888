package api

import "github.com/google/uuid"

// NewItemID generates a new random (version 4) item ID.
func NewItemID() string {
	return uuid.NewString()
}

// ValidateItemID checks whether the given string is a structurally valid
// item ID in canonical hyphenated UUID form. Callers treat invalid IDs
// exactly like IDs that were never issued.
func ValidateItemID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		// v7 only fails when the random source does
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// ParseID parses a non-empty identifier
func ParseID(s string) (ID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("ID cannot be empty")
	}
	return ID(strings.TrimSpace(s)), nil
}

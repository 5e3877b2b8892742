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
	// Falls back to v4 if v7 generation fails
	id, err := uuid.NewV7()
	if err != nil {
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

// Domain-specific ID types
type (
	SessionID    ID
	RespondentID ID
)

// NewSessionID creates a time-ordered collection session identifier
func NewSessionID() SessionID { return SessionID(NewID()) }

// NewRespondentID creates a time-ordered respondent identifier
func NewRespondentID() RespondentID { return RespondentID(NewID()) }

// String conversions for domain IDs
func (id SessionID) String() string    { return ID(id).String() }
func (id RespondentID) String() string { return ID(id).String() }

// ParseSessionID parses a string into SessionID
func ParseSessionID(s string) (SessionID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("session ID cannot be empty")
	}
	return SessionID(s), nil
}

// ParseRespondentID parses a string into RespondentID
func ParseRespondentID(s string) (RespondentID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("respondent ID cannot be empty")
	}
	return RespondentID(s), nil
}

package domain

import (
	"github.com/google/uuid"

	dErrors "vigil/pkg/domain-errors"
)

// Typed UUID identifiers. Distinct types keep subject, outcome, and
// notification ids from being swapped at call sites; the compiler enforces it.
type (
	SubjectID      uuid.UUID
	OutcomeID      uuid.UUID
	NotificationID uuid.UUID
)

func NewSubjectID() SubjectID           { return SubjectID(uuid.New()) }
func NewOutcomeID() OutcomeID           { return OutcomeID(uuid.New()) }
func NewNotificationID() NotificationID { return NotificationID(uuid.New()) }

func (id SubjectID) String() string      { return uuid.UUID(id).String() }
func (id OutcomeID) String() string      { return uuid.UUID(id).String() }
func (id NotificationID) String() string { return uuid.UUID(id).String() }

func (id SubjectID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id OutcomeID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id NotificationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// ParseSubjectID validates that the input is a well-formed, non-nil UUID.
// Invalid ids are rejected at the trust boundary with CodeInvalidInput.
func ParseSubjectID(s string) (SubjectID, error) {
	u, err := parseUUID(s)
	return SubjectID(u), err
}

func ParseOutcomeID(s string) (OutcomeID, error) {
	u, err := parseUUID(s)
	return OutcomeID(u), err
}

func ParseNotificationID(s string) (NotificationID, error) {
	u, err := parseUUID(s)
	return NotificationID(u), err
}

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be the nil UUID")
	}
	return u, nil
}

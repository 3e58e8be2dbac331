package kafka

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventBorrowed        EventType = "BORROWED"
	EventReturned        EventType = "RETURNED"
	EventFinePaid        EventType = "FINE_PAID"
	EventMemberSuspended EventType = "MEMBER_SUSPENDED"
	EventMemberActivated EventType = "MEMBER_ACTIVATED"
)

// EventLending is the message published for every committed ledger change.
type EventLending struct {
	ID         uuid.UUID `json:"id"`
	Type       EventType `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	MemberID   int64     `json:"member_id"`
	BookID     int64     `json:"book_id,omitempty"`
	LoanID     int64     `json:"loan_id,omitempty"`
	FineID     int64     `json:"fine_id,omitempty"`
	FineAmount string    `json:"fine_amount,omitempty"`
}

func NewEvent(typ EventType, memberID int64, ts time.Time) EventLending {
	return EventLending{
		ID:        uuid.New(),
		Type:      typ,
		Timestamp: ts.UTC(),
		MemberID:  memberID,
	}
}

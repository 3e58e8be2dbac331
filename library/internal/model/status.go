package model

type BookStatus string

const (
	BookAvailable   BookStatus = "available"
	BookBorrowed    BookStatus = "borrowed"
	BookReserved    BookStatus = "reserved"
	BookMaintenance BookStatus = "maintenance"
)

func (s BookStatus) Valid() bool {
	switch s {
	case BookAvailable, BookBorrowed, BookReserved, BookMaintenance:
		return true
	}
	return false
}

// Pinned statuses are set by staff and survive copy movements.
func (s BookStatus) Pinned() bool {
	switch s {
	case BookReserved, BookMaintenance:
		return true
	}
	return false
}

type MemberStatus string

const (
	MemberActive    MemberStatus = "active"
	MemberSuspended MemberStatus = "suspended"
)

func (s MemberStatus) Valid() bool {
	switch s {
	case MemberActive, MemberSuspended:
		return true
	}
	return false
}

type LoanStatus string

const (
	LoanActive   LoanStatus = "active"
	LoanOverdue  LoanStatus = "overdue"
	LoanReturned LoanStatus = "returned"
)

// CanTransitionTo lists the only moves a loan may make: active -> overdue by the
// sweep, active|overdue -> returned by a return.
func (s LoanStatus) CanTransitionTo(next LoanStatus) bool {
	switch s {
	case LoanActive:
		return next == LoanOverdue || next == LoanReturned
	case LoanOverdue:
		return next == LoanReturned
	case LoanReturned:
		return false
	}
	return false
}

type FineStatus string

const (
	FineUnpaid FineStatus = "unpaid"
	FinePaid   FineStatus = "paid"
)

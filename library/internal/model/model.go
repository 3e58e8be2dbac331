package model

import (
	"time"

	"github.com/Astemirdum/library-lending/library/internal/errs"
	"github.com/shopspring/decimal"
)

func init() {
	// money goes over the wire as a JSON number
	decimal.MarshalJSONWithoutQuotes = true
}

type Book struct {
	ID              int64      `json:"id" db:"id"`
	ISBN            string     `json:"isbn" db:"isbn"`
	Title           string     `json:"title" db:"title"`
	Author          string     `json:"author" db:"author"`
	Category        string     `json:"category" db:"category"`
	Status          BookStatus `json:"status" db:"status"`
	TotalCopies     int        `json:"total_copies" db:"total_copies"`
	AvailableCopies int        `json:"available_copies" db:"available_copies"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// CheckOut takes one copy off the shelf.
func (b *Book) CheckOut() error {
	if b.Status != BookAvailable || b.AvailableCopies <= 0 {
		return errs.ErrBookUnavailable
	}
	b.AvailableCopies--
	if b.AvailableCopies == 0 {
		b.Status = BookBorrowed
	}
	return nil
}

// CheckIn puts one copy back, never above TotalCopies.
func (b *Book) CheckIn() {
	b.AvailableCopies = min(b.TotalCopies, b.AvailableCopies+1)
	if !b.Status.Pinned() {
		b.Status = BookAvailable
	}
}

func (b *Book) Validate() error {
	if !b.Status.Valid() {
		return errs.ErrInvalidStatus
	}
	if b.TotalCopies < 0 || b.AvailableCopies < 0 || b.AvailableCopies > b.TotalCopies {
		return errs.ErrInvalidCopies
	}
	return nil
}

type Member struct {
	ID               int64        `json:"id" db:"id"`
	Name             string       `json:"name" db:"name"`
	Email            string       `json:"email" db:"email"`
	MembershipNumber string       `json:"membership_number" db:"membership_number"`
	Status           MemberStatus `json:"status" db:"status"`
	CreatedAt        time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at" db:"updated_at"`
}

func (m *Member) Validate() error {
	if !m.Status.Valid() {
		return errs.ErrInvalidStatus
	}
	return nil
}

// ApplyOverdueCount suspends the member at threshold overdue loans and
// reinstates any suspended member below it. It reports whether Status changed.
//
// Reinstatement does not know why the member was suspended: a manual
// suspension is lifted too once the member has fewer than threshold overdue loans.
func (m *Member) ApplyOverdueCount(overdue, threshold int) bool {
	prev := m.Status
	switch {
	case overdue >= threshold:
		m.Status = MemberSuspended
	case m.Status == MemberSuspended:
		m.Status = MemberActive
	}
	return prev != m.Status
}

type Loan struct {
	ID         int64      `json:"id" db:"id"`
	MemberID   int64      `json:"member_id" db:"member_id"`
	BookID     int64      `json:"book_id" db:"book_id"`
	BorrowedAt time.Time  `json:"borrowed_at" db:"borrowed_at"`
	DueDate    time.Time  `json:"due_date" db:"due_date"`
	ReturnedAt *time.Time `json:"returned_at" db:"returned_at"`
	Status     LoanStatus `json:"status" db:"status"`
}

func NewLoan(memberID, bookID int64, now time.Time, period time.Duration) Loan {
	return Loan{
		MemberID:   memberID,
		BookID:     bookID,
		BorrowedAt: now,
		DueDate:    now.Add(period),
		Status:     LoanActive,
	}
}

func (l *Loan) MarkReturned(now time.Time) error {
	if !l.Status.CanTransitionTo(LoanReturned) {
		return errs.ErrAlreadyReturned
	}
	l.Status = LoanReturned
	l.ReturnedAt = &now
	return nil
}

type Fine struct {
	ID       int64           `json:"id" db:"id"`
	MemberID int64           `json:"member_id" db:"member_id"`
	LoanID   int64           `json:"loan_id" db:"loan_id"`
	Amount   decimal.Decimal `json:"amount" db:"amount"`
	PaidAt   *time.Time      `json:"paid_at" db:"paid_at"`
}

func (f *Fine) Status() FineStatus {
	if f.PaidAt != nil {
		return FinePaid
	}
	return FineUnpaid
}

func (f *Fine) Pay(now time.Time) error {
	if f.Status() == FinePaid {
		return errs.ErrAlreadyPaid
	}
	f.PaidAt = &now
	return nil
}

type ReturnResult struct {
	Loan       Loan            `json:"loan"`
	FineAmount decimal.Decimal `json:"fine_amount"`
}

// Policy holds the lending rules.
type Policy struct {
	LoanPeriod       time.Duration   `envconfig:"LOAN_PERIOD" default:"336h"`
	FinePerDay       decimal.Decimal `envconfig:"FINE_PER_DAY" default:"0.5"`
	BorrowLimit      int             `envconfig:"BORROW_LIMIT" default:"3"`
	SuspendThreshold int             `envconfig:"SUSPEND_THRESHOLD" default:"3"`
}

func DefaultPolicy() Policy {
	return Policy{
		LoanPeriod:       14 * 24 * time.Hour,
		FinePerDay:       decimal.NewFromFloat(0.5),
		BorrowLimit:      3,
		SuspendThreshold: 3,
	}
}

const day = 24 * time.Hour

// DaysLate rounds any positive remainder up to a whole day.
func DaysLate(due, at time.Time) int64 {
	late := at.Sub(due)
	if late <= 0 {
		return 0
	}
	days := int64(late / day)
	if late%day > 0 {
		days++
	}
	return days
}

func (p Policy) FineFor(due, returnedAt time.Time) decimal.Decimal {
	return decimal.NewFromInt(DaysLate(due, returnedAt)).Mul(p.FinePerDay).Round(2)
}

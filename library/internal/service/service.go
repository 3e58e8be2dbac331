package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-lending/library/internal/errs"
	"github.com/Astemirdum/library-lending/library/internal/model"
	"github.com/Astemirdum/library-lending/library/internal/repository"
	"github.com/Astemirdum/library-lending/pkg/kafka"
)

// Service is the lending engine. It is the only writer of books, members,
// loans and fines.
//
// Lock order inside a transaction is loan -> member -> book; every operation
// that takes more than one row lock follows it.
type Service struct {
	log       *zap.Logger
	repo      repository.Repository
	publisher kafka.Publisher
	policy    model.Policy
	now       func() time.Time
}

type Option func(s *Service)

func WithPolicy(p model.Policy) Option {
	return func(s *Service) { s.policy = p }
}

func WithPublisher(p kafka.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(repo repository.Repository, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		log:       log.Named("service"),
		repo:      repo,
		publisher: kafka.NewNoopPublisher(),
		policy:    model.DefaultPolicy(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// clock returns the current time at the precision postgres stores.
func (s *Service) clock() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// Borrow lends one copy of bookID to memberID.
func (s *Service) Borrow(ctx context.Context, memberID, bookID int64) (model.Loan, error) {
	if _, err := s.Sweep(ctx); err != nil {
		return model.Loan{}, err
	}
	now := s.clock()

	var loan model.Loan
	err := s.repo.Atomic(ctx, func(q repository.Querier) error {
		member, err := q.LockMember(ctx, memberID)
		if err != nil {
			return err
		}
		if member.Status != model.MemberActive {
			return errs.ErrMemberNotActive
		}
		unpaid, err := q.CountUnpaidFines(ctx, memberID)
		if err != nil {
			return err
		}
		if unpaid > 0 {
			return errs.ErrUnpaidFines
		}
		open, err := q.CountLoans(ctx, memberID, model.LoanActive, model.LoanOverdue)
		if err != nil {
			return err
		}
		if open >= s.policy.BorrowLimit {
			return errs.ErrBorrowLimitReached
		}

		book, err := q.LockBook(ctx, bookID)
		if err != nil {
			return err
		}
		if err = book.CheckOut(); err != nil {
			return err
		}

		loan, err = q.CreateLoan(ctx, model.NewLoan(memberID, bookID, now, s.policy.LoanPeriod))
		if err != nil {
			return err
		}
		_, err = q.UpdateBook(ctx, book)
		return err
	})
	if err != nil {
		return model.Loan{}, err
	}

	s.log.Info("book borrowed",
		zap.Int64("loan_id", loan.ID),
		zap.Int64("member_id", memberID),
		zap.Int64("book_id", bookID),
		zap.Time("due_date", loan.DueDate))

	ev := kafka.NewEvent(kafka.EventBorrowed, memberID, now)
	ev.BookID, ev.LoanID = bookID, loan.ID
	s.publisher.Publish(ctx, ev)
	return loan, nil
}

// Return closes loanID, charging a fine when it is late.
func (s *Service) Return(ctx context.Context, loanID int64) (model.ReturnResult, error) {
	if _, err := s.Sweep(ctx); err != nil {
		return model.ReturnResult{}, err
	}
	now := s.clock()

	var (
		res           model.ReturnResult
		fine          model.Fine
		member        model.Member
		statusChanged bool
	)
	err := s.repo.Atomic(ctx, func(q repository.Querier) error {
		loan, err := q.LockLoan(ctx, loanID)
		if err != nil {
			return err
		}
		if err = loan.MarkReturned(now); err != nil {
			return err
		}
		if err = q.UpdateLoan(ctx, loan); err != nil {
			return err
		}

		member, err = q.LockMember(ctx, loan.MemberID)
		if err != nil {
			return err
		}

		amount := s.policy.FineFor(loan.DueDate, now)
		if amount.IsPositive() {
			fine, err = q.CreateFine(ctx, model.Fine{
				MemberID: loan.MemberID,
				LoanID:   loan.ID,
				Amount:   amount,
			})
			if err != nil {
				return err
			}
		}

		book, err := q.LockBook(ctx, loan.BookID)
		if err != nil {
			return err
		}
		book.CheckIn()
		if _, err = q.UpdateBook(ctx, book); err != nil {
			return err
		}

		member, statusChanged, err = s.reconcileMember(ctx, q, member)
		if err != nil {
			return err
		}

		res = model.ReturnResult{Loan: loan, FineAmount: amount}
		return nil
	})
	if err != nil {
		return model.ReturnResult{}, err
	}

	s.log.Info("book returned",
		zap.Int64("loan_id", loanID),
		zap.Int64("member_id", res.Loan.MemberID),
		zap.String("fine", res.FineAmount.String()))

	ev := kafka.NewEvent(kafka.EventReturned, res.Loan.MemberID, now)
	ev.BookID, ev.LoanID = res.Loan.BookID, loanID
	ev.FineID = fine.ID
	if res.FineAmount.IsPositive() {
		ev.FineAmount = res.FineAmount.StringFixed(2)
	}
	events := []kafka.EventLending{ev}
	if statusChanged {
		events = append(events, s.memberEvent(member, now))
	}
	s.publisher.Publish(ctx, events...)
	return res, nil
}

// PayFine marks fineID as paid. It does not touch member status.
func (s *Service) PayFine(ctx context.Context, fineID int64) (model.Fine, error) {
	now := s.clock()

	var fine model.Fine
	err := s.repo.Atomic(ctx, func(q repository.Querier) error {
		var err error
		fine, err = q.LockFine(ctx, fineID)
		if err != nil {
			return err
		}
		if err = fine.Pay(now); err != nil {
			return err
		}
		return q.UpdateFine(ctx, fine)
	})
	if err != nil {
		return model.Fine{}, err
	}

	s.log.Info("fine paid", zap.Int64("fine_id", fineID), zap.Int64("member_id", fine.MemberID))
	ev := kafka.NewEvent(kafka.EventFinePaid, fine.MemberID, now)
	ev.LoanID, ev.FineID = fine.LoanID, fine.ID
	ev.FineAmount = fine.Amount.StringFixed(2)
	s.publisher.Publish(ctx, ev)
	return fine, nil
}

func (s *Service) ListOverdue(ctx context.Context) ([]model.Loan, error) {
	if _, err := s.Sweep(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListLoans(ctx, repository.LoanFilter{
		Statuses: []model.LoanStatus{model.LoanOverdue},
	})
}

func (s *Service) ListBorrowedByMember(ctx context.Context, memberID int64) ([]model.Loan, error) {
	if _, err := s.Sweep(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListLoans(ctx, repository.LoanFilter{
		MemberID: memberID,
		Statuses: []model.LoanStatus{model.LoanActive, model.LoanOverdue},
	})
}

func (s *Service) ListFines(ctx context.Context) ([]model.Fine, error) {
	return s.repo.ListFines(ctx)
}

// recomputeMemberStatus locks memberID and reconciles its status with its
// overdue loan count.
func (s *Service) recomputeMemberStatus(ctx context.Context, q repository.Querier, memberID int64) (model.Member, bool, error) {
	member, err := q.LockMember(ctx, memberID)
	if err != nil {
		return model.Member{}, false, err
	}
	return s.reconcileMember(ctx, q, member)
}

// reconcileMember expects member to be locked by the caller.
func (s *Service) reconcileMember(ctx context.Context, q repository.Querier, member model.Member) (model.Member, bool, error) {
	overdue, err := q.CountLoans(ctx, member.ID, model.LoanOverdue)
	if err != nil {
		return model.Member{}, false, err
	}
	if !member.ApplyOverdueCount(overdue, s.policy.SuspendThreshold) {
		return member, false, nil
	}
	updated, err := q.UpdateMember(ctx, member)
	if err != nil {
		return model.Member{}, false, errors.Wrap(err, "update member status")
	}
	s.log.Info("member status changed",
		zap.Int64("member_id", member.ID),
		zap.String("status", string(updated.Status)),
		zap.Int("overdue", overdue))
	return updated, true, nil
}

func (s *Service) memberEvent(member model.Member, now time.Time) kafka.EventLending {
	typ := kafka.EventMemberActivated
	if member.Status == model.MemberSuspended {
		typ = kafka.EventMemberSuspended
	}
	return kafka.NewEvent(typ, member.ID, now)
}
